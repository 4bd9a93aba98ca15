package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mkopo/lending-engine/internal/domain"
	"github.com/mkopo/lending-engine/pkg/apperrors"
	"github.com/mkopo/lending-engine/pkg/utils"
)

const (
	defaultScanLockKey = "scan:defaults:lease"
	missedScanLockKey  = "scan:missed:lease"
	scanLeaseTTL       = 10 * time.Minute
)

// RunDefaultScan marks loans past their expected completion date as
// defaulted and returns the newly defaulted set. Idempotent per run:
// already-defaulted loans are excluded by the status filter.
func (s *LendingService) RunDefaultScan(ctx context.Context) ([]*domain.Loan, error) {
	acquired, err := s.locks.Acquire(ctx, defaultScanLockKey, scanLeaseTTL)
	if err != nil {
		log.Printf("default scan lease unavailable, proceeding: %v", err)
	} else if !acquired {
		log.Println("default scan already running elsewhere, skipping")
		return nil, nil
	} else {
		defer func() {
			if err := s.locks.Release(ctx, defaultScanLockKey); err != nil {
				log.Printf("failed to release default scan lease: %v", err)
			}
		}()
	}

	now := s.now()
	candidates, err := s.loans.ListDefaultCandidates(ctx, nil, now)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	var defaulted []*domain.Loan
	for _, id := range candidates {
		loan, err := s.markDefaulted(ctx, id, now)
		if err != nil {
			// A failed loan must not stop the sweep.
			log.Printf("default scan: loan %s: %v", id, err)
			continue
		}
		if loan != nil {
			defaulted = append(defaulted, loan)
		}
	}

	log.Printf("default scan complete: %d candidates, %d newly defaulted", len(candidates), len(defaulted))
	return defaulted, nil
}

func (s *LendingService) markDefaulted(ctx context.Context, id uuid.UUID, now time.Time) (*domain.Loan, error) {
	var loan *domain.Loan
	err := s.tx.RunInTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		loan, err = s.loans.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.WrapLoanNotFound(id.String())
			}
			return apperrors.WrapDatabaseError(err)
		}

		// Re-check under the lock: a concurrent repayment may have
		// closed the loan between the candidate query and here.
		if loan.Status != domain.LoanStatusActive && loan.Status != domain.LoanStatusPartiallyPaid {
			loan = nil
			return nil
		}
		if !loan.ExpectedCompletionDate.Before(now) {
			loan = nil
			return nil
		}

		loan.Status = domain.LoanStatusDefaulted
		loan.DefaultDate = &now

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

// RunMissedPaymentScan accrues a full installment of arrears on loans
// past their due date and steps the due date forward by one installment
// interval. One accrual per pass, so the cron cadence must be at least
// as fine as the daily installment granularity.
func (s *LendingService) RunMissedPaymentScan(ctx context.Context) (int, error) {
	acquired, err := s.locks.Acquire(ctx, missedScanLockKey, scanLeaseTTL)
	if err != nil {
		log.Printf("missed-payment scan lease unavailable, proceeding: %v", err)
	} else if !acquired {
		log.Println("missed-payment scan already running elsewhere, skipping")
		return 0, nil
	} else {
		defer func() {
			if err := s.locks.Release(ctx, missedScanLockKey); err != nil {
				log.Printf("failed to release missed-payment scan lease: %v", err)
			}
		}()
	}

	now := s.now()
	candidates, err := s.loans.ListPastDueCandidates(ctx, nil, now)
	if err != nil {
		return 0, apperrors.WrapDatabaseError(err)
	}

	processed := 0
	for _, id := range candidates {
		if err := s.accrueMissedPayment(ctx, id, now); err != nil {
			log.Printf("missed-payment scan: loan %s: %v", id, err)
			continue
		}
		processed++
	}

	log.Printf("missed-payment scan complete: %d candidates, %d accrued", len(candidates), processed)
	return processed, nil
}

func (s *LendingService) accrueMissedPayment(ctx context.Context, id uuid.UUID, now time.Time) error {
	return s.tx.RunInTx(ctx, func(tx *sqlx.Tx) error {
		loan, err := s.loans.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.WrapLoanNotFound(id.String())
			}
			return apperrors.WrapDatabaseError(err)
		}

		if loan.Status != domain.LoanStatusActive && loan.Status != domain.LoanStatusPartiallyPaid {
			return nil
		}
		if loan.DueDate == nil || !loan.DueDate.Before(now) {
			return nil
		}

		loan.Arrears = loan.Arrears.Add(loan.InstallmentAmount)
		nextDue := utils.AdvanceDueDate(*loan.DueDate, s.stepDays(loan.InstallmentType))
		loan.DueDate = &nextDue

		if err := s.loans.Update(ctx, tx, loan); err != nil {
			return apperrors.WrapDatabaseError(err)
		}
		return nil
	})
}
