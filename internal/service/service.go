package service

import (
	"time"

	"github.com/mkopo/lending-engine/internal/config"
	"github.com/mkopo/lending-engine/internal/domain"
	"github.com/mkopo/lending-engine/internal/repository"
)

// LendingService implements the loan lifecycle engine: intake, the
// origination decision, disbursement, repayment posting, reconciliation,
// the scheduled scans and roll-over.
type LendingService struct {
	tx         repository.TxManager
	loans      repository.LoanRepository
	repayments repository.RepaymentRepository
	ledger     repository.LedgerRepository
	directory  repository.DirectoryRepository
	locks      Locker
	config     *config.Config

	// now is swappable for tests
	now func() time.Time
}

func NewLendingService(
	tx repository.TxManager,
	loans repository.LoanRepository,
	repayments repository.RepaymentRepository,
	ledger repository.LedgerRepository,
	directory repository.DirectoryRepository,
	locks Locker,
	cfg *config.Config,
) *LendingService {
	return &LendingService{
		tx:         tx,
		loans:      loans,
		repayments: repayments,
		ledger:     ledger,
		directory:  directory,
		locks:      locks,
		config:     cfg,
		now:        time.Now,
	}
}

func (s *LendingService) stepDays(installmentType string) int {
	if installmentType == domain.InstallmentTypeWeekly {
		return s.config.Business.WeeklyStepDays
	}
	return s.config.Business.DailyStepDays
}

func (s *LendingService) installmentCount(installmentType string) int {
	if installmentType == domain.InstallmentTypeWeekly {
		return s.config.Business.WeeklyInstallments
	}
	return s.config.Business.DailyInstallments
}
