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

// The status priority is load-bearing for financial reporting: paid wins
// over everything, partial payment masks overdue, and defaulted is only
// reachable from reconciliation when nothing has been paid.
func TestReconcileStatusPriority(t *testing.T) {
	loanID := uuid.New()
	total := decimal.NewFromInt(11000)

	tests := []struct {
		name           string
		paidSum        decimal.Decimal
		dueDate        time.Time
		arrears        decimal.Decimal
		expectedStatus string
		expectArrears  decimal.Decimal
	}{
		{
			name:           "full payment wins over everything",
			paidSum:        decimal.NewFromInt(11000),
			dueDate:        testNow.AddDate(0, 0, -10),
			arrears:        decimal.NewFromInt(700),
			expectedStatus: domain.LoanStatusPaid,
			expectArrears:  decimal.Zero,
		},
		{
			name:           "overpayment past total still paid",
			paidSum:        decimal.NewFromInt(11500),
			dueDate:        testNow.AddDate(0, 0, 3),
			arrears:        decimal.Zero,
			expectedStatus: domain.LoanStatusPaid,
			expectArrears:  decimal.Zero,
		},
		{
			name:           "partial payment masks overdue arrears",
			paidSum:        decimal.NewFromInt(5000),
			dueDate:        testNow.AddDate(0, 0, -10),
			arrears:        decimal.NewFromInt(700),
			expectedStatus: domain.LoanStatusPartiallyPaid,
			expectArrears:  decimal.NewFromInt(700),
		},
		{
			name:           "nothing paid, overdue with arrears defaults",
			paidSum:        decimal.Zero,
			dueDate:        testNow.AddDate(0, 0, -1),
			arrears:        decimal.NewFromFloat(366.67),
			expectedStatus: domain.LoanStatusDefaulted,
			expectArrears:  decimal.NewFromFloat(366.67),
		},
		{
			name:           "nothing paid, overdue without arrears stays active",
			paidSum:        decimal.Zero,
			dueDate:        testNow.AddDate(0, 0, -1),
			arrears:        decimal.Zero,
			expectedStatus: domain.LoanStatusActive,
			expectArrears:  decimal.Zero,
		},
		{
			name:           "nothing paid, not yet due stays active",
			paidSum:        decimal.Zero,
			dueDate:        testNow.AddDate(0, 0, 1),
			arrears:        decimal.Zero,
			expectedStatus: domain.LoanStatusActive,
			expectArrears:  decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, deps := newTestServiceNoLock()

			loan := activeLoan(loanID)
			loan.TotalAmount = total
			loan.Arrears = tt.arrears
			loan.DueDate = timePtr(tt.dueDate)

			deps.loans.On("GetByIDForUpdate", mock.Anything, mock.Anything, loanID).Return(loan, nil)
			deps.repayments.On("SumPaidByLoanID", mock.Anything, mock.Anything, loanID).Return(tt.paidSum, nil)
			deps.loans.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(nil)

			updated, err := svc.ReconcileLoan(context.Background(), loanID)

			assert.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, updated.Status)
			assert.True(t, updated.InstallmentsSum.Equal(tt.paidSum))
			assert.True(t, updated.RemainingBalance.Equal(total.Sub(tt.paidSum)))
			assert.True(t, updated.Arrears.Equal(tt.expectArrears), "arrears: %s", updated.Arrears)
		})
	}
}

func TestReconcileRequiresDisbursedLoan(t *testing.T) {
	svc, deps := newTestServiceNoLock()

	loanID := uuid.New()
	deps.loans.On("GetByIDForUpdate", mock.Anything, mock.Anything, loanID).Return(&domain.Loan{
		ID:     loanID,
		Status: domain.LoanStatusPendingDisbursement,
	}, nil)

	_, err := svc.ReconcileLoan(context.Background(), loanID)

	assert.ErrorIs(t, err, apperrors.ErrLoanNotDisbursed)
}
