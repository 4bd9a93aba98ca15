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
	"github.com/mkopo/lending-engine/pkg/utils"
)

// RollOverLoan converts an eligible overdue or defaulted loan back to an
// active loan with a fresh schedule, archiving a snapshot of the prior
// state. A loan rolls over at most once.
//
// Eligibility: status in {active, partially_paid, defaulted}; the amount
// recovered so far exceeds the total interest; the rolled_over flag is
// unset; and the expected completion date is today or already past.
func (s *LendingService) RollOverLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	var loan *domain.Loan
	err := s.tx.RunInTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		loan, err = s.loans.GetByIDForUpdate(ctx, tx, loanID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.WrapRolloverIneligible(loanID.String())
			}
			return apperrors.WrapDatabaseError(err)
		}

		if !s.rolloverEligible(loan) {
			return apperrors.WrapRolloverIneligible(loanID.String())
		}

		now := s.now()
		snapshot := &domain.RolledOverLoan{
			ID:                     uuid.New(),
			LoanID:                 loan.ID,
			Principal:              loan.Principal,
			BalanceAtRollover:      loan.RemainingBalance,
			TotalAmount:            loan.TotalAmount,
			ApplicationDate:        loan.CreatedAt,
			ExpectedCompletionDate: loan.ExpectedCompletionDate,
			CreatedAt:              now,
		}
		if err := s.ledger.CreateRollover(ctx, tx, snapshot); err != nil {
			return apperrors.WrapDatabaseError(err)
		}

		firstDue := utils.AdvanceDueDate(now, s.config.Business.DailyStepDays)

		loan.Status = domain.LoanStatusActive
		loan.Arrears = decimal.Zero
		loan.RolledOver = true
		loan.DefaultDate = nil
		loan.ExpectedCompletionDate = utils.CompletionHorizon(now, s.config.Business.LoanTermDays)
		loan.DueDate = &firstDue

		if err := s.loans.Update(ctx, tx, loan); err != nil {
			return apperrors.WrapDatabaseError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return loan, nil
}

func (s *LendingService) rolloverEligible(loan *domain.Loan) bool {
	switch loan.Status {
	case domain.LoanStatusActive, domain.LoanStatusPartiallyPaid, domain.LoanStatusDefaulted:
	default:
		return false
	}

	if loan.RolledOver {
		return false
	}

	// Principal substantially recovered: paid-so-far must exceed the
	// interest portion.
	recovered := loan.TotalAmount.Sub(loan.RemainingBalance)
	if !recovered.GreaterThan(loan.TotalInterest) {
		return false
	}

	return utils.SameOrEarlierDay(loan.ExpectedCompletionDate, s.now())
}
