package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/mkopo/lending-engine/internal/domain"
)

// TxManager opens a transaction and runs fn inside it, committing on nil
// and rolling back on error. Every multi-step loan mutation goes through
// it so concurrent operations on the same loan serialize on the row lock.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

// Repository methods accept an optional transaction. A nil tx runs the
// statement directly on the pool.

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// Create inserts a new loan application shell
	Create(ctx context.Context, tx *sqlx.Tx, loan *domain.Loan) error

	// GetByID retrieves a loan by id
	GetByID(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.Loan, error)

	// GetByIDForUpdate retrieves a loan and locks its row for the
	// duration of the transaction
	GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.Loan, error)

	// Update persists the mutable fields of a loan
	Update(ctx context.Context, tx *sqlx.Tx, loan *domain.Loan) error

	// ListDefaultCandidates returns ids of active/partially_paid loans
	// whose expected completion date has passed
	ListDefaultCandidates(ctx context.Context, tx *sqlx.Tx, asOf time.Time) ([]uuid.UUID, error)

	// ListPastDueCandidates returns ids of active/partially_paid loans
	// whose due date has passed
	ListPastDueCandidates(ctx context.Context, tx *sqlx.Tx, asOf time.Time) ([]uuid.UUID, error)

	// GetLatestActiveByPhone resolves the most recent active or
	// partially paid loan for a customer phone number
	GetLatestActiveByPhone(ctx context.Context, tx *sqlx.Tx, phone string) (*domain.Loan, error)
}

// RepaymentRepository defines the interface for repayment ledger operations
type RepaymentRepository interface {
	// Create appends a ledger row
	Create(ctx context.Context, tx *sqlx.Tx, repayment *domain.Repayment) error

	// GetByID retrieves a single ledger row
	GetByID(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.Repayment, error)

	// Delete voids a ledger row (correction, not a state transition)
	Delete(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error

	// ListByLoanID retrieves all ledger rows for a loan
	ListByLoanID(ctx context.Context, tx *sqlx.Tx, loanID uuid.UUID) ([]*domain.Repayment, error)

	// SumPaidByLoanID totals the paid ledger rows for a loan
	SumPaidByLoanID(ctx context.Context, tx *sqlx.Tx, loanID uuid.UUID) (decimal.Decimal, error)
}

// LedgerRepository covers the append-only audit tables
type LedgerRepository interface {
	// CreateMpesaTransaction appends a payment-rail log entry
	CreateMpesaTransaction(ctx context.Context, tx *sqlx.Tx, txn *domain.MpesaTransaction) error

	// CreateRollover archives a roll-over snapshot
	CreateRollover(ctx context.Context, tx *sqlx.Tx, snapshot *domain.RolledOverLoan) error

	// ListRolloversByLoanID retrieves the roll-over archive for a loan
	ListRolloversByLoanID(ctx context.Context, tx *sqlx.Tx, loanID uuid.UUID) ([]*domain.RolledOverLoan, error)
}

// DirectoryRepository covers the lookup collaborators (customers,
// products, users); the engine only reads them
type DirectoryRepository interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.LoanProduct, error)
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
}
