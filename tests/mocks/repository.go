package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/mkopo/lending-engine/internal/domain"
)

// PassthroughTxManager runs the callback with a nil transaction; the
// repository mocks accept any tx value.
type PassthroughTxManager struct{}

func (PassthroughTxManager) RunInTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return fn(nil)
}

type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) Create(ctx context.Context, tx *sqlx.Tx, loan *domain.Loan) error {
	args := m.Called(ctx, tx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) GetByID(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) Update(ctx context.Context, tx *sqlx.Tx, loan *domain.Loan) error {
	args := m.Called(ctx, tx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) ListDefaultCandidates(ctx context.Context, tx *sqlx.Tx, asOf time.Time) ([]uuid.UUID, error) {
	args := m.Called(ctx, tx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockLoanRepository) ListPastDueCandidates(ctx context.Context, tx *sqlx.Tx, asOf time.Time) ([]uuid.UUID, error) {
	args := m.Called(ctx, tx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockLoanRepository) GetLatestActiveByPhone(ctx context.Context, tx *sqlx.Tx, phone string) (*domain.Loan, error) {
	args := m.Called(ctx, tx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

type MockRepaymentRepository struct {
	mock.Mock
}

func (m *MockRepaymentRepository) Create(ctx context.Context, tx *sqlx.Tx, repayment *domain.Repayment) error {
	args := m.Called(ctx, tx, repayment)
	return args.Error(0)
}

func (m *MockRepaymentRepository) GetByID(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.Repayment, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Repayment), args.Error(1)
}

func (m *MockRepaymentRepository) Delete(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func (m *MockRepaymentRepository) ListByLoanID(ctx context.Context, tx *sqlx.Tx, loanID uuid.UUID) ([]*domain.Repayment, error) {
	args := m.Called(ctx, tx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Repayment), args.Error(1)
}

func (m *MockRepaymentRepository) SumPaidByLoanID(ctx context.Context, tx *sqlx.Tx, loanID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, tx, loanID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) CreateMpesaTransaction(ctx context.Context, tx *sqlx.Tx, txn *domain.MpesaTransaction) error {
	args := m.Called(ctx, tx, txn)
	return args.Error(0)
}

func (m *MockLedgerRepository) CreateRollover(ctx context.Context, tx *sqlx.Tx, snapshot *domain.RolledOverLoan) error {
	args := m.Called(ctx, tx, snapshot)
	return args.Error(0)
}

func (m *MockLedgerRepository) ListRolloversByLoanID(ctx context.Context, tx *sqlx.Tx, loanID uuid.UUID) ([]*domain.RolledOverLoan, error) {
	args := m.Called(ctx, tx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RolledOverLoan), args.Error(1)
}

type MockDirectoryRepository struct {
	mock.Mock
}

func (m *MockDirectoryRepository) GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Customer), args.Error(1)
}

func (m *MockDirectoryRepository) GetProduct(ctx context.Context, id uuid.UUID) (*domain.LoanProduct, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanProduct), args.Error(1)
}

func (m *MockDirectoryRepository) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// MockLocker satisfies the service's dedupe/lease interface.
type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockLocker) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// AlwaysAcquireLocker is a no-op locker for tests that don't exercise
// dedupe behavior.
type AlwaysAcquireLocker struct{}

func (AlwaysAcquireLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return true, nil
}

func (AlwaysAcquireLocker) Release(ctx context.Context, key string) error {
	return nil
}
