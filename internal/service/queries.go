package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/mkopo/lending-engine/internal/domain"
	"github.com/mkopo/lending-engine/pkg/apperrors"
)

// GetLoan retrieves a loan by id.
func (s *LendingService) GetLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	loan, err := s.loans.GetByID(ctx, nil, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WrapLoanNotFound(loanID.String())
		}
		return nil, apperrors.WrapDatabaseError(err)
	}
	return loan, nil
}

// ListRepayments retrieves the repayment ledger for a loan.
func (s *LendingService) ListRepayments(ctx context.Context, loanID uuid.UUID) ([]*domain.Repayment, error) {
	if _, err := s.GetLoan(ctx, loanID); err != nil {
		return nil, err
	}

	repayments, err := s.repayments.ListByLoanID(ctx, nil, loanID)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	return repayments, nil
}

// ListRollovers retrieves the roll-over archive for a loan.
func (s *LendingService) ListRollovers(ctx context.Context, loanID uuid.UUID) ([]*domain.RolledOverLoan, error) {
	if _, err := s.GetLoan(ctx, loanID); err != nil {
		return nil, err
	}

	rollovers, err := s.ledger.ListRolloversByLoanID(ctx, nil, loanID)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	return rollovers, nil
}
