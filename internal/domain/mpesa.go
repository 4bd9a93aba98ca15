package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MpesaTypeDisbursement = "disbursement"
	MpesaTypeRepayment    = "repayment"
)

const (
	MpesaStatusCompleted = "completed"
	MpesaStatusPending   = "pending"
	MpesaStatusFailed    = "failed"
)

// MpesaTransaction is an append-only audit log entry for the payment rail.
type MpesaTransaction struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	LoanID        uuid.UUID       `json:"loan_id" db:"loan_id"`
	CustomerID    uuid.UUID       `json:"customer_id" db:"customer_id"`
	InitiatedBy   uuid.UUID       `json:"initiated_by" db:"initiated_by"`
	Type          string          `json:"type" db:"type"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	ReferenceCode string          `json:"reference_code" db:"reference_code"`
	Status        string          `json:"status" db:"status"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// MpesaWebhookPayload is the inbound credit notification from the rail.
// The narration carries the payer phone number; TransID is the rail's
// unique reference for the credit.
type MpesaWebhookPayload struct {
	TransID       string `json:"TransID" validate:"required"`
	TransAmount   string `json:"TransAmount" validate:"required"`
	AccountNumber string `json:"BillRefNumber"`
	Narration     string `json:"Narration"`
	MSISDN        string `json:"MSISDN"`
}
