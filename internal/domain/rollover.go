package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RolledOverLoan is a write-once archive snapshot taken at the moment a
// loan rolls over to a fresh schedule.
type RolledOverLoan struct {
	ID                     uuid.UUID       `json:"id" db:"id"`
	LoanID                 uuid.UUID       `json:"loan_id" db:"loan_id"`
	Principal              decimal.Decimal `json:"principal" db:"principal"`
	BalanceAtRollover      decimal.Decimal `json:"balance_at_rollover" db:"balance_at_rollover"`
	TotalAmount            decimal.Decimal `json:"total_amount" db:"total_amount"`
	ApplicationDate        time.Time       `json:"application_date" db:"application_date"`
	ExpectedCompletionDate time.Time       `json:"expected_completion_date" db:"expected_completion_date"`
	CreatedAt              time.Time       `json:"created_at" db:"created_at"`
}
