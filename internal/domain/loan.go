package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Funded-loan statuses. pending_approval covers the application shell
// before the origination decision lands.
const (
	LoanStatusPendingApproval     = "pending_approval"
	LoanStatusPendingDisbursement = "pending_disbursement"
	LoanStatusActive              = "active"
	LoanStatusPartiallyPaid       = "partially_paid"
	LoanStatusPaid                = "paid"
	LoanStatusDefaulted           = "defaulted"
)

// Origination decision, tracked independently of the funded-loan status.
const (
	ApprovalStatusPending  = "pending"
	ApprovalStatusApproved = "approved"
	ApprovalStatusRejected = "rejected"
)

const (
	InstallmentTypeDaily  = "daily"
	InstallmentTypeWeekly = "weekly"
)

// Loan is the central entity, carrying both the application artifact and
// the funded credit record.
type Loan struct {
	ID              uuid.UUID `json:"id" db:"id"`
	CustomerID      uuid.UUID `json:"customer_id" db:"customer_id"`
	ProductID       uuid.UUID `json:"product_id" db:"product_id"`
	OfficerID       uuid.UUID `json:"officer_id" db:"officer_id"`
	RequestedAmount decimal.Decimal `json:"requested_amount" db:"requested_amount"`
	Purpose         string          `json:"purpose" db:"purpose"`
	InstallmentType string          `json:"installment_type" db:"installment_type"`

	ApprovalStatus  string     `json:"approval_status" db:"approval_status"`
	RejectionReason *string    `json:"rejection_reason,omitempty" db:"rejection_reason"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty" db:"approved_at"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty" db:"rejected_at"`

	Principal         decimal.Decimal `json:"principal" db:"principal"`
	ProcessingFee     decimal.Decimal `json:"processing_fee" db:"processing_fee"`
	TotalInterest     decimal.Decimal `json:"total_interest" db:"total_interest"`
	TotalAmount       decimal.Decimal `json:"total_amount" db:"total_amount"`
	InstallmentAmount decimal.Decimal `json:"installment_amount" db:"installment_amount"`
	// Arrears is the accumulated shortfall. Overpayment draws it below
	// zero; the negative value is an overpayment credit and is not clamped.
	Arrears          decimal.Decimal `json:"arrears" db:"arrears"`
	InstallmentsSum  decimal.Decimal `json:"installments_sum" db:"installments_sum"`
	RemainingBalance decimal.Decimal `json:"remaining_balance" db:"remaining_balance"`

	Status                 string     `json:"status" db:"status"`
	DisbursementCode       *string    `json:"disbursement_code,omitempty" db:"disbursement_code"`
	DisbursementDate       *time.Time `json:"disbursement_date,omitempty" db:"disbursement_date"`
	DueDate                *time.Time `json:"due_date,omitempty" db:"due_date"`
	ExpectedCompletionDate time.Time  `json:"expected_completion_date" db:"expected_completion_date"`
	DefaultDate            *time.Time `json:"default_date,omitempty" db:"default_date"`
	RolledOver             bool       `json:"rolled_over" db:"rolled_over"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsDisbursed reports whether funds have gone out on this loan.
func (l *Loan) IsDisbursed() bool {
	return l.DisbursementDate != nil
}

// InstallmentStepDays maps the cadence to its due-date increment given the
// configured daily/weekly steps.
func (l *Loan) InstallmentStepDays(daily, weekly int) int {
	if l.InstallmentType == InstallmentTypeWeekly {
		return weekly
	}
	return daily
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	CustomerID      uuid.UUID       `json:"customer_id" validate:"required"`
	ProductID       uuid.UUID       `json:"product_id" validate:"required"`
	Amount          decimal.Decimal `json:"amount" validate:"required"`
	Purpose         string          `json:"purpose" validate:"required,min=5"`
	InstallmentType string          `json:"installment_type" validate:"required,oneof=daily weekly"`
}

type ApproveLoanRequest struct {
	DisbursedAmount decimal.Decimal `json:"disbursed_amount" validate:"required"`
}

type RejectLoanRequest struct {
	Reason string `json:"reason" validate:"required,min=5"`
}

type DisburseLoanRequest struct {
	MpesaCode string `json:"mpesa_code" validate:"required"`
}

type PostRepaymentRequest struct {
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	MpesaCode string          `json:"mpesa_code" validate:"required"`
}

type ScanResponse struct {
	Processed int     `json:"processed"`
	LoanIDs   []uuid.UUID `json:"loan_ids,omitempty"`
	RanAt     time.Time   `json:"ran_at"`
}
