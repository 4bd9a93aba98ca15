package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mkopo/lending-engine/internal/domain"
	"github.com/mkopo/lending-engine/internal/service"
	"github.com/mkopo/lending-engine/pkg/response"
)

type LendingHandler struct {
	service   *service.LendingService
	validator *validator.Validate
}

func NewLendingHandler(service *service.LendingService) *LendingHandler {
	return &LendingHandler{
		service:   service,
		validator: validator.New(),
	}
}

func (h *LendingHandler) pathID(r *http.Request, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[key])
	return id, err == nil
}

// CreateApplication handles POST /loans
func (h *LendingHandler) CreateApplication(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	officerID, ok := actorID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing bearer token")
		return
	}

	loan, err := h.service.CreateApplication(r.Context(), &req, officerID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, loan)
}

// GetLoan handles GET /loans/{loanId}
func (h *LendingHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.pathID(r, "loanId")
	if !ok {
		response.BadRequest(w, "Invalid loan id", nil)
		return
	}

	loan, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, loan)
}

// ApproveLoan handles POST /loans/{loanId}/approve (admin only)
func (h *LendingHandler) ApproveLoan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.pathID(r, "loanId")
	if !ok {
		response.BadRequest(w, "Invalid loan id", nil)
		return
	}

	var req domain.ApproveLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	loan, err := h.service.ApproveLoan(r.Context(), loanID, req.DisbursedAmount)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, loan)
}

// RejectLoan handles POST /loans/{loanId}/reject (admin only)
func (h *LendingHandler) RejectLoan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.pathID(r, "loanId")
	if !ok {
		response.BadRequest(w, "Invalid loan id", nil)
		return
	}

	var req domain.RejectLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	loan, err := h.service.RejectLoan(r.Context(), loanID, req.Reason)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, loan)
}

// DisburseLoan handles POST /loans/{loanId}/disburse (admin only)
func (h *LendingHandler) DisburseLoan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.pathID(r, "loanId")
	if !ok {
		response.BadRequest(w, "Invalid loan id", nil)
		return
	}

	var req domain.DisburseLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	actor, ok := actorID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing bearer token")
		return
	}

	loan, err := h.service.DisburseLoan(r.Context(), loanID, req.MpesaCode, actor)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, loan)
}

// PostRepayment handles POST /loans/{loanId}/repayments
func (h *LendingHandler) PostRepayment(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.pathID(r, "loanId")
	if !ok {
		response.BadRequest(w, "Invalid loan id", nil)
		return
	}

	var req domain.PostRepaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	actor, ok := actorID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing bearer token")
		return
	}

	repayment, loan, err := h.service.PostRepayment(r.Context(), loanID, req.Amount, req.MpesaCode, actor)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, map[string]interface{}{
		"repayment": repayment,
		"loan":      loan,
	})
}

// ListRepayments handles GET /loans/{loanId}/repayments
func (h *LendingHandler) ListRepayments(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.pathID(r, "loanId")
	if !ok {
		response.BadRequest(w, "Invalid loan id", nil)
		return
	}

	repayments, err := h.service.ListRepayments(r.Context(), loanID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, repayments)
}

// VoidRepayment handles DELETE /repayments/{repaymentId}
func (h *LendingHandler) VoidRepayment(w http.ResponseWriter, r *http.Request) {
	repaymentID, ok := h.pathID(r, "repaymentId")
	if !ok {
		response.BadRequest(w, "Invalid repayment id", nil)
		return
	}

	loan, err := h.service.VoidRepayment(r.Context(), repaymentID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, loan)
}

// ReconcileLoan handles POST /loans/{loanId}/reconcile
func (h *LendingHandler) ReconcileLoan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.pathID(r, "loanId")
	if !ok {
		response.BadRequest(w, "Invalid loan id", nil)
		return
	}

	loan, err := h.service.ReconcileLoan(r.Context(), loanID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, loan)
}

// RollOverLoan handles POST /loans/{loanId}/rollover
func (h *LendingHandler) RollOverLoan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.pathID(r, "loanId")
	if !ok {
		response.BadRequest(w, "Invalid loan id", nil)
		return
	}

	loan, err := h.service.RollOverLoan(r.Context(), loanID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, loan)
}

// ListRollovers handles GET /loans/{loanId}/rollovers
func (h *LendingHandler) ListRollovers(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.pathID(r, "loanId")
	if !ok {
		response.BadRequest(w, "Invalid loan id", nil)
		return
	}

	rollovers, err := h.service.ListRollovers(r.Context(), loanID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, rollovers)
}

// RunDefaultScan handles POST /scans/defaults (on-demand trigger)
func (h *LendingHandler) RunDefaultScan(w http.ResponseWriter, r *http.Request) {
	defaulted, err := h.service.RunDefaultScan(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}

	ids := make([]uuid.UUID, 0, len(defaulted))
	for _, loan := range defaulted {
		ids = append(ids, loan.ID)
	}

	response.Success(w, domain.ScanResponse{
		Processed: len(defaulted),
		LoanIDs:   ids,
		RanAt:     time.Now(),
	})
}

// RunMissedPaymentScan handles POST /scans/missed-payments
func (h *LendingHandler) RunMissedPaymentScan(w http.ResponseWriter, r *http.Request) {
	processed, err := h.service.RunMissedPaymentScan(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, domain.ScanResponse{
		Processed: processed,
		RanAt:     time.Now(),
	})
}

// MpesaWebhook handles POST /webhooks/mpesa. The rail expects an
// acknowledgement regardless of whether the credit matched a loan, so
// processing errors are logged but still acked.
func (h *LendingHandler) MpesaWebhook(w http.ResponseWriter, r *http.Request) {
	var payload domain.MpesaWebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.BadRequest(w, "Invalid payload", err)
		return
	}
	if err := h.validator.Struct(&payload); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	if err := h.service.ProcessMpesaCredit(r.Context(), &payload); err != nil {
		log.Printf("mpesa webhook %s: %v", payload.TransID, err)
	}

	response.Success(w, map[string]string{
		"ResultCode": "0",
		"ResultDesc": "Accepted",
	})
}
