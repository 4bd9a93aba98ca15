package service

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/google/uuid"

	"github.com/mkopo/lending-engine/internal/domain"
	"github.com/mkopo/lending-engine/pkg/apperrors"
	"github.com/mkopo/lending-engine/pkg/utils"
)

// ProcessMpesaCredit handles an inbound credit notification from the
// payment rail. The payer phone is extracted from the narration and
// resolved to that customer's most recent active or partially paid loan;
// if nothing matches, the credit is logged and dropped, because the
// webhook must be acknowledged regardless.
func (s *LendingService) ProcessMpesaCredit(ctx context.Context, payload *domain.MpesaWebhookPayload) error {
	phone, ok := utils.ExtractPhone(payload.Narration)
	if !ok {
		phone, ok = utils.ExtractPhone(payload.MSISDN)
	}
	if !ok {
		log.Printf("mpesa credit %s: no phone number in narration, dropping", payload.TransID)
		return nil
	}

	amount, err := utils.DecimalFromString(payload.TransAmount)
	if err != nil {
		return apperrors.WrapValidation("transaction amount is not a valid decimal", err)
	}

	loan, err := s.loans.GetLatestActiveByPhone(ctx, nil, phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("mpesa credit %s: no active loan for %s, dropping", payload.TransID, phone)
			return nil
		}
		return apperrors.WrapDatabaseError(err)
	}

	// The rail's transaction id doubles as the repayment reference, so
	// webhook retries dedupe naturally.
	_, _, err = s.PostRepayment(ctx, loan.ID, amount, payload.TransID, uuid.Nil)
	if errors.Is(err, apperrors.ErrDuplicatePayment) {
		log.Printf("mpesa credit %s: already recorded for loan %s", payload.TransID, loan.ID)
		return nil
	}

	return err
}
