package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/mkopo/lending-engine/internal/domain"
	"github.com/mkopo/lending-engine/pkg/apperrors"
	"github.com/mkopo/lending-engine/pkg/utils"
)

func repaymentDedupeKey(loanID uuid.UUID, mpesaCode string) string {
	return fmt.Sprintf("repayment:dedupe:%s:%s", loanID, mpesaCode)
}

// PostRepayment applies a payment against a disbursed loan: the arrears
// delta is taken against the installment amount, the due date steps
// forward from its prior value, a ledger row and a rail log entry are
// appended, and the loan is reconciled from its full repayment history.
func (s *LendingService) PostRepayment(ctx context.Context, loanID uuid.UUID, amount decimal.Decimal, mpesaCode string, initiatedBy uuid.UUID) (*domain.Repayment, *domain.Loan, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, nil, apperrors.WrapInvalidAmount("repayment amount must be greater than zero")
	}
	if mpesaCode == "" {
		return nil, nil, apperrors.WrapValidation("mpesa code is required", nil)
	}

	// Soft dedupe guard against webhook retries. A cache failure must
	// not block payment intake; the unique constraint on
	// (loan_id, mpesa_code) is the hard guard.
	key := repaymentDedupeKey(loanID, mpesaCode)
	acquired, err := s.locks.Acquire(ctx, key, s.config.GetDedupeTTL())
	if err != nil {
		log.Printf("repayment dedupe cache unavailable: %v", err)
		acquired = true
	} else if !acquired {
		return nil, nil, apperrors.WrapDuplicatePayment(loanID.String(), mpesaCode)
	}

	var (
		repayment *domain.Repayment
		loan      *domain.Loan
	)
	err = s.tx.RunInTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		loan, err = s.loans.GetByIDForUpdate(ctx, tx, loanID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.WrapLoanNotFound(loanID.String())
			}
			return apperrors.WrapDatabaseError(err)
		}

		if loan.Status == domain.LoanStatusPaid {
			return apperrors.WrapLoanClosed(loanID.String())
		}
		if !loan.IsDisbursed() || loan.DueDate == nil {
			return apperrors.WrapLoanNotDisbursed(loanID.String())
		}

		now := s.now()

		// Underpayment grows arrears by the shortfall; overpayment
		// draws it down, possibly below zero (overpayment credit).
		loan.Arrears = loan.Arrears.Add(loan.InstallmentAmount.Sub(amount))

		dueSnapshot := *loan.DueDate
		nextDue := utils.AdvanceDueDate(dueSnapshot, s.stepDays(loan.InstallmentType))
		loan.DueDate = &nextDue

		repayment = &domain.Repayment{
			ID:         uuid.New(),
			LoanID:     loan.ID,
			Amount:     amount,
			DueDate:    &dueSnapshot,
			PaidDate:   &now,
			MpesaCode:  mpesaCode,
			Status:     domain.RepaymentStatusPaid,
			RecordedBy: initiatedBy,
			CreatedAt:  now,
		}
		if err := s.repayments.Create(ctx, tx, repayment); err != nil {
			var be *apperrors.BusinessError
			if errors.As(err, &be) {
				return err
			}
			return apperrors.WrapDatabaseError(err)
		}

		txn := &domain.MpesaTransaction{
			ID:            uuid.New(),
			LoanID:        loan.ID,
			CustomerID:    loan.CustomerID,
			InitiatedBy:   initiatedBy,
			Type:          domain.MpesaTypeRepayment,
			Amount:        amount,
			ReferenceCode: mpesaCode,
			Status:        domain.MpesaStatusCompleted,
			CreatedAt:     now,
		}
		if err := s.ledger.CreateMpesaTransaction(ctx, tx, txn); err != nil {
			return apperrors.WrapDatabaseError(err)
		}

		// Authoritative recompute from the full repayment history.
		return s.reconcileLocked(ctx, tx, loan)
	})
	if err != nil {
		// Free the dedupe key so a legitimate retry can succeed.
		if releaseErr := s.locks.Release(ctx, key); releaseErr != nil {
			log.Printf("failed to release dedupe key %s: %v", key, releaseErr)
		}
		return nil, nil, err
	}

	return repayment, loan, nil
}

// VoidRepayment removes a ledger row and reconciles the loan. This is a
// correction mechanism, not a state transition.
func (s *LendingService) VoidRepayment(ctx context.Context, repaymentID uuid.UUID) (*domain.Loan, error) {
	var loan *domain.Loan
	err := s.tx.RunInTx(ctx, func(tx *sqlx.Tx) error {
		repayment, err := s.repayments.GetByID(ctx, tx, repaymentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.WrapRepaymentNotFound(repaymentID.String())
			}
			return apperrors.WrapDatabaseError(err)
		}

		loan, err = s.loans.GetByIDForUpdate(ctx, tx, repayment.LoanID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.WrapLoanNotFound(repayment.LoanID.String())
			}
			return apperrors.WrapDatabaseError(err)
		}

		if err := s.repayments.Delete(ctx, tx, repaymentID); err != nil {
			var be *apperrors.BusinessError
			if errors.As(err, &be) {
				return err
			}
			return apperrors.WrapDatabaseError(err)
		}

		return s.reconcileLocked(ctx, tx, loan)
	})
	if err != nil {
		return nil, err
	}

	return loan, nil
}
