package service

import (
	"time"

	"github.com/mkopo/lending-engine/internal/config"
	"github.com/mkopo/lending-engine/tests/mocks"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Business: config.BusinessConfig{
			MinPrincipal:       "1000",
			ProcessingFeeRate:  "0.03",
			LoanTermDays:       30,
			DailyInstallments:  30,
			WeeklyInstallments: 4,
			DailyStepDays:      1,
			WeeklyStepDays:     7,
			DedupeTTL:          "24h",
		},
	}
}

type testDeps struct {
	loans      *mocks.MockLoanRepository
	repayments *mocks.MockRepaymentRepository
	ledger     *mocks.MockLedgerRepository
	directory  *mocks.MockDirectoryRepository
	locks      *mocks.MockLocker
}

func newTestService() (*LendingService, *testDeps) {
	deps := &testDeps{
		loans:      &mocks.MockLoanRepository{},
		repayments: &mocks.MockRepaymentRepository{},
		ledger:     &mocks.MockLedgerRepository{},
		directory:  &mocks.MockDirectoryRepository{},
		locks:      &mocks.MockLocker{},
	}

	svc := NewLendingService(
		mocks.PassthroughTxManager{},
		deps.loans,
		deps.repayments,
		deps.ledger,
		deps.directory,
		deps.locks,
		testConfig(),
	)
	svc.now = func() time.Time { return testNow }

	return svc, deps
}

// newTestServiceNoLock builds a service with a locker that always
// acquires, for tests that don't exercise dedupe behavior.
func newTestServiceNoLock() (*LendingService, *testDeps) {
	svc, deps := newTestService()
	svc.locks = mocks.AlwaysAcquireLocker{}
	return svc, deps
}

func timePtr(t time.Time) *time.Time {
	return &t
}
