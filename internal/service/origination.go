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

// CreateApplication records a loan application shell. No financial fields
// are set until the approval decision lands.
func (s *LendingService) CreateApplication(ctx context.Context, req *domain.CreateLoanRequest, officerID uuid.UUID) (*domain.Loan, error) {
	if req.Amount.LessThan(s.config.GetMinPrincipal()) {
		return nil, apperrors.WrapInvalidAmount("requested amount is below the minimum loan amount")
	}

	if _, err := s.directory.GetCustomer(ctx, req.CustomerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WrapEntityNotFound("Customer", req.CustomerID.String(), apperrors.ErrCustomerNotFound)
		}
		return nil, apperrors.WrapDatabaseError(err)
	}

	if _, err := s.directory.GetProduct(ctx, req.ProductID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WrapEntityNotFound("Loan product", req.ProductID.String(), apperrors.ErrProductNotFound)
		}
		return nil, apperrors.WrapDatabaseError(err)
	}

	if _, err := s.directory.GetUser(ctx, officerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WrapEntityNotFound("Officer", officerID.String(), apperrors.ErrOfficerNotFound)
		}
		return nil, apperrors.WrapDatabaseError(err)
	}

	now := s.now()
	loan := &domain.Loan{
		ID:              uuid.New(),
		CustomerID:      req.CustomerID,
		ProductID:       req.ProductID,
		OfficerID:       officerID,
		RequestedAmount: req.Amount,
		Purpose:         req.Purpose,
		InstallmentType: req.InstallmentType,
		ApprovalStatus:  domain.ApprovalStatusPending,
		Status:          domain.LoanStatusPendingApproval,
		// Fixed horizon regardless of product duration; recomputed
		// again at disbursement.
		ExpectedCompletionDate: utils.CompletionHorizon(now, s.config.Business.LoanTermDays),
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	if err := s.loans.Create(ctx, nil, loan); err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	return loan, nil
}

// ApproveLoan sets the financial terms and moves the application to
// pending disbursement. One-way: an already decided application is
// rejected with a conflict.
func (s *LendingService) ApproveLoan(ctx context.Context, loanID uuid.UUID, disbursedAmount decimal.Decimal) (*domain.Loan, error) {
	if disbursedAmount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.WrapInvalidAmount("disbursed amount must be greater than zero")
	}

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

		if loan.ApprovalStatus != domain.ApprovalStatusPending {
			return apperrors.WrapAlreadyProcessed(loanID.String())
		}

		product, err := s.directory.GetProduct(ctx, loan.ProductID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.WrapEntityNotFound("Loan product", loan.ProductID.String(), apperrors.ErrProductNotFound)
			}
			return apperrors.WrapDatabaseError(err)
		}

		now := s.now()
		hundred := decimal.NewFromInt(100)

		fee := utils.RoundMoney(disbursedAmount.Mul(s.config.GetProcessingFeeRate()))
		interest := utils.RoundMoney(disbursedAmount.Mul(product.InterestRate).Div(hundred))
		total := disbursedAmount.Add(interest)
		divisor := decimal.NewFromInt(int64(s.installmentCount(loan.InstallmentType)))
		installment := utils.RoundMoney(total.Div(divisor))
		firstDue := utils.AdvanceDueDate(now, s.stepDays(loan.InstallmentType))

		loan.Principal = disbursedAmount
		loan.ProcessingFee = fee
		loan.TotalInterest = interest
		loan.TotalAmount = total
		loan.InstallmentAmount = installment
		loan.RemainingBalance = total
		loan.DueDate = &firstDue
		loan.Status = domain.LoanStatusPendingDisbursement
		loan.ApprovalStatus = domain.ApprovalStatusApproved
		loan.ApprovedAt = &now

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

// RejectLoan records a terminal rejection with its reason.
func (s *LendingService) RejectLoan(ctx context.Context, loanID uuid.UUID, reason string) (*domain.Loan, error) {
	if reason == "" {
		return nil, apperrors.WrapValidation("rejection reason is required", nil)
	}

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

		if loan.ApprovalStatus != domain.ApprovalStatusPending {
			return apperrors.WrapAlreadyProcessed(loanID.String())
		}

		now := s.now()
		loan.ApprovalStatus = domain.ApprovalStatusRejected
		loan.RejectionReason = &reason
		loan.RejectedAt = &now

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

// DisburseLoan releases funds on an approved loan: status goes active,
// the balance is initialized and the funds-out event is logged on the
// rail, all in one transaction.
func (s *LendingService) DisburseLoan(ctx context.Context, loanID uuid.UUID, mpesaCode string, actorID uuid.UUID) (*domain.Loan, error) {
	if mpesaCode == "" {
		return nil, apperrors.WrapValidation("mpesa code is required", nil)
	}

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

		if loan.Status != domain.LoanStatusPendingDisbursement {
			return apperrors.WrapNotPendingDisbursement(loanID.String())
		}

		now := s.now()
		loan.Status = domain.LoanStatusActive
		loan.DisbursementDate = &now
		loan.DisbursementCode = &mpesaCode
		loan.ExpectedCompletionDate = utils.CompletionHorizon(now, s.config.Business.LoanTermDays)
		loan.RemainingBalance = loan.TotalAmount

		if err := s.loans.Update(ctx, tx, loan); err != nil {
			return apperrors.WrapDatabaseError(err)
		}

		txn := &domain.MpesaTransaction{
			ID:            uuid.New(),
			LoanID:        loan.ID,
			CustomerID:    loan.CustomerID,
			InitiatedBy:   actorID,
			Type:          domain.MpesaTypeDisbursement,
			Amount:        loan.TotalAmount,
			ReferenceCode: mpesaCode,
			Status:        domain.MpesaStatusCompleted,
			CreatedAt:     now,
		}
		if err := s.ledger.CreateMpesaTransaction(ctx, tx, txn); err != nil {
			return apperrors.WrapDatabaseError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return loan, nil
}
