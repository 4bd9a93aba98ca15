package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	RepaymentStatusPending = "pending"
	RepaymentStatusPaid    = "paid"
	RepaymentStatusLate    = "late"
	RepaymentStatusMissed  = "missed"
)

// Repayment is an immutable ledger entry. Rows are never updated after
// creation; the only correction mechanism is voiding (deleting) a row and
// re-running reconciliation.
type Repayment struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	LoanID     uuid.UUID       `json:"loan_id" db:"loan_id"`
	Amount     decimal.Decimal `json:"amount" db:"amount"`
	DueDate    *time.Time      `json:"due_date,omitempty" db:"due_date"`
	PaidDate   *time.Time      `json:"paid_date,omitempty" db:"paid_date"`
	MpesaCode  string          `json:"mpesa_code" db:"mpesa_code"`
	Status     string          `json:"status" db:"status"`
	RecordedBy uuid.UUID       `json:"recorded_by" db:"recorded_by"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}
