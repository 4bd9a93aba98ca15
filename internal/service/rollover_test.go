package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mkopo/lending-engine/internal/domain"
	"github.com/mkopo/lending-engine/pkg/apperrors"
)

func rolloverCandidate(id uuid.UUID) *domain.Loan {
	loan := activeLoan(id)
	loan.Status = domain.LoanStatusDefaulted
	loan.Principal = decimal.NewFromInt(10000)
	loan.TotalInterest = decimal.NewFromInt(1000)
	loan.RemainingBalance = decimal.NewFromInt(6000)
	loan.Arrears = decimal.NewFromFloat(733.34)
	loan.ExpectedCompletionDate = testNow.AddDate(0, 0, -3)
	loan.DefaultDate = timePtr(testNow.AddDate(0, 0, -3))
	loan.CreatedAt = testNow.AddDate(0, 0, -33)
	return loan
}

func TestRollOverLoan(t *testing.T) {
	loanID := uuid.New()

	t.Run("archives a snapshot and restarts the schedule", func(t *testing.T) {
		svc, deps := newTestServiceNoLock()

		loan := rolloverCandidate(loanID)
		priorBalance := loan.RemainingBalance
		priorCompletion := loan.ExpectedCompletionDate

		deps.loans.On("GetByIDForUpdate", mock.Anything, mock.Anything, loanID).Return(loan, nil)
		deps.ledger.On("CreateRollover", mock.Anything, mock.Anything, mock.MatchedBy(func(snap *domain.RolledOverLoan) bool {
			return snap.LoanID == loanID &&
				snap.BalanceAtRollover.Equal(priorBalance) &&
				snap.ExpectedCompletionDate.Equal(priorCompletion)
		})).Return(nil)
		deps.loans.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		updated, err := svc.RollOverLoan(context.Background(), loanID)

		assert.NoError(t, err)
		assert.Equal(t, domain.LoanStatusActive, updated.Status)
		assert.True(t, updated.RolledOver)
		assert.True(t, updated.Arrears.IsZero())
		assert.Nil(t, updated.DefaultDate)
		assert.Equal(t, testNow.AddDate(0, 0, 1), *updated.DueDate)
		assert.Equal(t, testNow.AddDate(0, 0, 30), updated.ExpectedCompletionDate)
		// The balance carries over; the rollover does not forgive debt.
		assert.True(t, updated.RemainingBalance.Equal(priorBalance))

		deps.ledger.AssertExpectations(t)
		deps.loans.AssertExpectations(t)
	})

	t.Run("a loan rolls over at most once", func(t *testing.T) {
		svc, deps := newTestServiceNoLock()

		loan := rolloverCandidate(loanID)
		loan.RolledOver = true
		deps.loans.On("GetByIDForUpdate", mock.Anything, mock.Anything, loanID).Return(loan, nil)

		_, err := svc.RollOverLoan(context.Background(), loanID)

		assert.ErrorIs(t, err, apperrors.ErrNotEligibleForRollover)
		deps.ledger.AssertNotCalled(t, "CreateRollover", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("recovery must exceed the interest portion", func(t *testing.T) {
		svc, deps := newTestServiceNoLock()

		loan := rolloverCandidate(loanID)
		// Recovered 1000 equals the interest, which is not enough.
		loan.RemainingBalance = decimal.NewFromInt(10000)
		deps.loans.On("GetByIDForUpdate", mock.Anything, mock.Anything, loanID).Return(loan, nil)

		_, err := svc.RollOverLoan(context.Background(), loanID)

		assert.ErrorIs(t, err, apperrors.ErrNotEligibleForRollover)
	})

	t.Run("term still running", func(t *testing.T) {
		svc, deps := newTestServiceNoLock()

		loan := rolloverCandidate(loanID)
		loan.ExpectedCompletionDate = testNow.AddDate(0, 0, 5)
		deps.loans.On("GetByIDForUpdate", mock.Anything, mock.Anything, loanID).Return(loan, nil)

		_, err := svc.RollOverLoan(context.Background(), loanID)

		assert.ErrorIs(t, err, apperrors.ErrNotEligibleForRollover)
	})

	t.Run("term ending today qualifies", func(t *testing.T) {
		svc, deps := newTestServiceNoLock()

		loan := rolloverCandidate(loanID)
		loan.Status = domain.LoanStatusPartiallyPaid
		loan.ExpectedCompletionDate = testNow.Add(4 * time.Hour)
		deps.loans.On("GetByIDForUpdate", mock.Anything, mock.Anything, loanID).Return(loan, nil)
		deps.ledger.On("CreateRollover", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		deps.loans.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		updated, err := svc.RollOverLoan(context.Background(), loanID)

		assert.NoError(t, err)
		assert.True(t, updated.RolledOver)
	})

	t.Run("closed loan is ineligible", func(t *testing.T) {
		svc, deps := newTestServiceNoLock()

		loan := rolloverCandidate(loanID)
		loan.Status = domain.LoanStatusPaid
		deps.loans.On("GetByIDForUpdate", mock.Anything, mock.Anything, loanID).Return(loan, nil)

		_, err := svc.RollOverLoan(context.Background(), loanID)

		assert.ErrorIs(t, err, apperrors.ErrNotEligibleForRollover)
	})
}
