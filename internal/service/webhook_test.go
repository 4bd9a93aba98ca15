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
)

func TestProcessMpesaCredit(t *testing.T) {
	loanID := uuid.New()

	payload := func() *domain.MpesaWebhookPayload {
		return &domain.MpesaWebhookPayload{
			TransID:     "QWE12RTY45",
			TransAmount: "300",
			Narration:   "Paid by JANE WANJIKU 0712345678",
		}
	}

	t.Run("credits the customer's latest open loan", func(t *testing.T) {
		svc, deps := newTestServiceNoLock()

		loan := activeLoan(loanID)
		deps.loans.On("GetLatestActiveByPhone", mock.Anything, mock.Anything, "254712345678").Return(loan, nil)
		deps.loans.On("GetByIDForUpdate", mock.Anything, mock.Anything, loanID).Return(loan, nil)
		deps.repayments.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(r *domain.Repayment) bool {
			// The rail transaction id becomes the repayment reference.
			return r.MpesaCode == "QWE12RTY45" && r.Amount.Equal(decimal.NewFromInt(300))
		})).Return(nil)
		deps.ledger.On("CreateMpesaTransaction", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		deps.repayments.On("SumPaidByLoanID", mock.Anything, mock.Anything, loanID).Return(decimal.NewFromInt(300), nil)
		deps.loans.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		err := svc.ProcessMpesaCredit(context.Background(), payload())

		assert.NoError(t, err)
		deps.repayments.AssertExpectations(t)
	})

	t.Run("falls back to the MSISDN field", func(t *testing.T) {
		svc, deps := newTestServiceNoLock()

		p := payload()
		p.Narration = "Loan repayment"
		p.MSISDN = "+254712345678"

		loan := activeLoan(loanID)
		deps.loans.On("GetLatestActiveByPhone", mock.Anything, mock.Anything, "254712345678").Return(loan, nil)
		deps.loans.On("GetByIDForUpdate", mock.Anything, mock.Anything, loanID).Return(loan, nil)
		deps.repayments.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		deps.ledger.On("CreateMpesaTransaction", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		deps.repayments.On("SumPaidByLoanID", mock.Anything, mock.Anything, loanID).Return(decimal.NewFromInt(300), nil)
		deps.loans.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		err := svc.ProcessMpesaCredit(context.Background(), p)

		assert.NoError(t, err)
	})

	t.Run("no phone number drops the credit without error", func(t *testing.T) {
		svc, deps := newTestServiceNoLock()

		p := payload()
		p.Narration = "Loan repayment"
		p.MSISDN = ""

		err := svc.ProcessMpesaCredit(context.Background(), p)

		assert.NoError(t, err)
		deps.loans.AssertNotCalled(t, "GetLatestActiveByPhone", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("no open loan drops the credit without error", func(t *testing.T) {
		svc, deps := newTestServiceNoLock()

		deps.loans.On("GetLatestActiveByPhone", mock.Anything, mock.Anything, "254712345678").Return(nil, sql.ErrNoRows)

		err := svc.ProcessMpesaCredit(context.Background(), payload())

		assert.NoError(t, err)
		deps.loans.AssertNotCalled(t, "GetByIDForUpdate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("webhook retry is swallowed as a duplicate", func(t *testing.T) {
		svc, deps := newTestService()

		loan := activeLoan(loanID)
		deps.loans.On("GetLatestActiveByPhone", mock.Anything, mock.Anything, "254712345678").Return(loan, nil)
		deps.locks.On("Acquire", mock.Anything, repaymentDedupeKey(loanID, "QWE12RTY45"), mock.Anything).Return(false, nil)

		err := svc.ProcessMpesaCredit(context.Background(), payload())

		assert.NoError(t, err)
	})

	t.Run("malformed amount is a validation error", func(t *testing.T) {
		svc, _ := newTestServiceNoLock()

		p := payload()
		p.TransAmount = "three hundred"

		err := svc.ProcessMpesaCredit(context.Background(), p)

		assert.Error(t, err)
	})
}
