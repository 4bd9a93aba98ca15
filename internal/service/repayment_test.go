package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mkopo/lending-engine/internal/domain"
	"github.com/mkopo/lending-engine/pkg/apperrors"
)

func activeLoan(id uuid.UUID) *domain.Loan {
	return &domain.Loan{
		ID:                id,
		CustomerID:        uuid.New(),
		InstallmentType:   domain.InstallmentTypeDaily,
		ApprovalStatus:    domain.ApprovalStatusApproved,
		Status:            domain.LoanStatusActive,
		TotalAmount:       decimal.NewFromInt(11000),
		InstallmentAmount: decimal.NewFromFloat(366.67),
		Arrears:           decimal.Zero,
		RemainingBalance:  decimal.NewFromInt(11000),
		DisbursementDate:  timePtr(testNow.AddDate(0, 0, -5)),
		DueDate:           timePtr(testNow.AddDate(0, 0, 1)),
	}
}

func TestPostRepayment(t *testing.T) {
	loanID := uuid.New()
	officerID := uuid.New()

	t.Run("underpayment grows arrears and advances due date", func(t *testing.T) {
		svc, deps := newTestServiceNoLock()

		loan := activeLoan(loanID)
		priorDue := *loan.DueDate

		deps.loans.On("GetByIDForUpdate", mock.Anything, mock.Anything, loanID).Return(loan, nil)
		deps.repayments.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(r *domain.Repayment) bool {
			return r.Status == domain.RepaymentStatusPaid &&
				r.MpesaCode == "ABC123XYZ9" &&
				r.DueDate.Equal(priorDue)
		})).Return(nil)
		deps.ledger.On("CreateMpesaTransaction", mock.Anything, mock.Anything, mock.MatchedBy(func(txn *domain.MpesaTransaction) bool {
			return txn.Type == domain.MpesaTypeRepayment
		})).Return(nil)
		deps.repayments.On("SumPaidByLoanID", mock.Anything, mock.Anything, loanID).Return(decimal.NewFromInt(300), nil)
		deps.loans.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		repayment, updated, err := svc.PostRepayment(context.Background(), loanID, decimal.NewFromInt(300), "ABC123XYZ9", officerID)

		assert.NoError(t, err)
		assert.True(t, repayment.Amount.Equal(decimal.NewFromInt(300)))
		assert.True(t, updated.Arrears.Equal(decimal.NewFromFloat(66.67)), "arrears: %s", updated.Arrears)
		assert.Equal(t, priorDue.AddDate(0, 0, 1), *updated.DueDate)
		assert.True(t, updated.InstallmentsSum.Equal(decimal.NewFromInt(300)))
		assert.True(t, updated.RemainingBalance.Equal(decimal.NewFromInt(10700)))
		assert.Equal(t, domain.LoanStatusPartiallyPaid, updated.Status)

		deps.repayments.AssertExpectations(t)
		deps.ledger.AssertExpectations(t)
	})

	t.Run("overpayment draws arrears negative", func(t *testing.T) {
		svc, deps := newTestServiceNoLock()

		loan := activeLoan(loanID)
		deps.loans.On("GetByIDForUpdate", mock.Anything, mock.Anything, loanID).Return(loan, nil)
		deps.repayments.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		deps.ledger.On("CreateMpesaTransaction", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		deps.repayments.On("SumPaidByLoanID", mock.Anything, mock.Anything, loanID).Return(decimal.NewFromInt(400), nil)
		deps.loans.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		_, updated, err := svc.PostRepayment(context.Background(), loanID, decimal.NewFromInt(400), "ABC123XYZ9", officerID)

		assert.NoError(t, err)
		// 366.67 - 400 = -33.33: an overpayment credit, not clamped
		assert.True(t, updated.Arrears.Equal(decimal.NewFromFloat(-33.33)), "arrears: %s", updated.Arrears)
	})

	t.Run("payment equal to remaining balance closes the loan", func(t *testing.T) {
		svc, deps := newTestServiceNoLock()

		loan := activeLoan(loanID)
		loan.Arrears = decimal.NewFromFloat(733.34)
		loan.InstallmentsSum = decimal.NewFromInt(5000)
		loan.RemainingBalance = decimal.NewFromInt(6000)

		deps.loans.On("GetByIDForUpdate", mock.Anything, mock.Anything, loanID).Return(loan, nil)
		deps.repayments.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		deps.ledger.On("CreateMpesaTransaction", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		deps.repayments.On("SumPaidByLoanID", mock.Anything, mock.Anything, loanID).Return(decimal.NewFromInt(11000), nil)
		deps.loans.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		_, updated, err := svc.PostRepayment(context.Background(), loanID, decimal.NewFromInt(6000), "ABC123XYZ9", officerID)

		assert.NoError(t, err)
		assert.Equal(t, domain.LoanStatusPaid, updated.Status)
		assert.True(t, updated.RemainingBalance.IsZero())
		assert.True(t, updated.Arrears.IsZero(), "arrears reset on payoff even when previously positive")
	})

	t.Run("duplicate reference is rejected", func(t *testing.T) {
		svc, deps := newTestService()

		deps.locks.On("Acquire", mock.Anything, repaymentDedupeKey(loanID, "ABC123XYZ9"), mock.Anything).Return(false, nil)

		_, _, err := svc.PostRepayment(context.Background(), loanID, decimal.NewFromInt(300), "ABC123XYZ9", officerID)

		assert.ErrorIs(t, err, apperrors.ErrDuplicatePayment)
		deps.loans.AssertNotCalled(t, "GetByIDForUpdate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("fully paid loan rejects further repayments", func(t *testing.T) {
		svc, deps := newTestServiceNoLock()

		loan := activeLoan(loanID)
		loan.Status = domain.LoanStatusPaid
		deps.loans.On("GetByIDForUpdate", mock.Anything, mock.Anything, loanID).Return(loan, nil)

		_, _, err := svc.PostRepayment(context.Background(), loanID, decimal.NewFromInt(300), "ABC123XYZ9", officerID)

		assert.ErrorIs(t, err, apperrors.ErrLoanClosed)
	})

	t.Run("undisbursed loan rejects repayments", func(t *testing.T) {
		svc, deps := newTestServiceNoLock()

		loan := activeLoan(loanID)
		loan.Status = domain.LoanStatusPendingDisbursement
		loan.DisbursementDate = nil
		loan.DueDate = nil
		deps.loans.On("GetByIDForUpdate", mock.Anything, mock.Anything, loanID).Return(loan, nil)

		_, _, err := svc.PostRepayment(context.Background(), loanID, decimal.NewFromInt(300), "ABC123XYZ9", officerID)

		assert.ErrorIs(t, err, apperrors.ErrLoanNotDisbursed)
	})
}

func TestVoidRepayment(t *testing.T) {
	loanID := uuid.New()
	repaymentID := uuid.New()

	t.Run("removes ledger row and reconciles", func(t *testing.T) {
		svc, deps := newTestServiceNoLock()

		loan := activeLoan(loanID)
		loan.Status = domain.LoanStatusPartiallyPaid
		loan.InstallmentsSum = decimal.NewFromInt(5000)
		loan.RemainingBalance = decimal.NewFromInt(6000)

		deps.repayments.On("GetByID", mock.Anything, mock.Anything, repaymentID).Return(&domain.Repayment{
			ID:     repaymentID,
			LoanID: loanID,
			Amount: decimal.NewFromInt(5000),
		}, nil)
		deps.loans.On("GetByIDForUpdate", mock.Anything, mock.Anything, loanID).Return(loan, nil)
		deps.repayments.On("Delete", mock.Anything, mock.Anything, repaymentID).Return(nil)
		deps.repayments.On("SumPaidByLoanID", mock.Anything, mock.Anything, loanID).Return(decimal.Zero, nil)
		deps.loans.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		updated, err := svc.VoidRepayment(context.Background(), repaymentID)

		assert.NoError(t, err)
		assert.True(t, updated.InstallmentsSum.IsZero())
		assert.True(t, updated.RemainingBalance.Equal(decimal.NewFromInt(11000)))
		assert.Equal(t, domain.LoanStatusActive, updated.Status)
	})

	t.Run("unknown repayment", func(t *testing.T) {
		svc, deps := newTestServiceNoLock()

		deps.repayments.On("GetByID", mock.Anything, mock.Anything, repaymentID).Return(nil, sql.ErrNoRows)

		_, err := svc.VoidRepayment(context.Background(), repaymentID)

		assert.ErrorIs(t, err, apperrors.ErrRepaymentNotFound)
	})
}
