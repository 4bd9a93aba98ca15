package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/mkopo/lending-engine/internal/domain"
	"github.com/mkopo/lending-engine/pkg/apperrors"
)

// ReconcileLoan recomputes a loan's installments sum, remaining balance
// and status from its full repayment history.
func (s *LendingService) ReconcileLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	var loan *domain.Loan
	err := s.tx.RunInTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		loan, err = s.loans.GetByIDForUpdate(ctx, tx, loanID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.WrapLoanNotFound(loanID.String())
			}
			return apperrors.WrapDatabaseError(err)
		}

		if !loan.IsDisbursed() {
			return apperrors.WrapLoanNotDisbursed(loanID.String())
		}

		return s.reconcileLocked(ctx, tx, loan)
	})
	if err != nil {
		return nil, err
	}

	return loan, nil
}

// reconcileLocked is the authoritative recompute step. The caller holds
// the loan's row lock. The status priority is deliberate: a loan that is
// both partially paid and overdue stays partially_paid, so defaulted is
// only reachable from here when nothing has been paid yet.
func (s *LendingService) reconcileLocked(ctx context.Context, tx *sqlx.Tx, loan *domain.Loan) error {
	sum, err := s.repayments.SumPaidByLoanID(ctx, tx, loan.ID)
	if err != nil {
		return apperrors.WrapDatabaseError(err)
	}

	loan.InstallmentsSum = sum
	loan.RemainingBalance = loan.TotalAmount.Sub(sum)

	now := s.now()
	switch {
	case loan.RemainingBalance.LessThanOrEqual(decimal.Zero):
		loan.Status = domain.LoanStatusPaid
		loan.Arrears = decimal.Zero
	case sum.GreaterThan(decimal.Zero) && sum.LessThan(loan.TotalAmount):
		loan.Status = domain.LoanStatusPartiallyPaid
	case loan.DueDate != nil && loan.DueDate.Before(now) && loan.Arrears.GreaterThan(decimal.Zero):
		loan.Status = domain.LoanStatusDefaulted
		if loan.DefaultDate == nil {
			loan.DefaultDate = &now
		}
	default:
		loan.Status = domain.LoanStatusActive
	}

	if err := s.loans.Update(ctx, tx, loan); err != nil {
		return apperrors.WrapDatabaseError(err)
	}

	return nil
}
