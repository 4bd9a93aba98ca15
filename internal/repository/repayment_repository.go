package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/mkopo/lending-engine/internal/domain"
	"github.com/mkopo/lending-engine/pkg/apperrors"
)

const pqUniqueViolation = "23505"

type repaymentRepository struct {
	db *sqlx.DB
}

func NewRepaymentRepository(db *sqlx.DB) RepaymentRepository {
	return &repaymentRepository{db: db}
}

func (r *repaymentRepository) ext(tx *sqlx.Tx) sqlx.ExtContext {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *repaymentRepository) Create(ctx context.Context, tx *sqlx.Tx, repayment *domain.Repayment) error {
	query := `
		INSERT INTO repayments (
			id, loan_id, amount, due_date, paid_date, mpesa_code, status,
			recorded_by, created_at
		) VALUES (
			:id, :loan_id, :amount, :due_date, :paid_date, :mpesa_code,
			:status, :recorded_by, :created_at
		)
	`

	_, err := sqlx.NamedExecContext(ctx, r.ext(tx), query, repayment)
	if err != nil {
		// The unique (loan_id, mpesa_code) constraint is the hard
		// guard against double-counted webhook retries.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return apperrors.WrapDuplicatePayment(repayment.LoanID.String(), repayment.MpesaCode)
		}
		return err
	}

	return nil
}

func (r *repaymentRepository) GetByID(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.Repayment, error) {
	query := `
		SELECT id, loan_id, amount, due_date, paid_date, mpesa_code,
			status, recorded_by, created_at
		FROM repayments
		WHERE id = $1
	`

	var repayment domain.Repayment
	if err := sqlx.GetContext(ctx, r.ext(tx), &repayment, query, id); err != nil {
		return nil, err
	}

	return &repayment, nil
}

func (r *repaymentRepository) Delete(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	query := `DELETE FROM repayments WHERE id = $1`

	result, err := r.ext(tx).ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.WrapRepaymentNotFound(id.String())
	}

	return nil
}

func (r *repaymentRepository) ListByLoanID(ctx context.Context, tx *sqlx.Tx, loanID uuid.UUID) ([]*domain.Repayment, error) {
	query := `
		SELECT id, loan_id, amount, due_date, paid_date, mpesa_code,
			status, recorded_by, created_at
		FROM repayments
		WHERE loan_id = $1
		ORDER BY created_at
	`

	var repayments []*domain.Repayment
	if err := sqlx.SelectContext(ctx, r.ext(tx), &repayments, query, loanID); err != nil {
		return nil, err
	}

	return repayments, nil
}

func (r *repaymentRepository) SumPaidByLoanID(ctx context.Context, tx *sqlx.Tx, loanID uuid.UUID) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM repayments
		WHERE loan_id = $1 AND status = $2
	`

	var sum decimal.Decimal
	err := sqlx.GetContext(ctx, r.ext(tx), &sum, query, loanID, domain.RepaymentStatusPaid)
	if err != nil {
		return decimal.Zero, err
	}

	return sum, nil
}
