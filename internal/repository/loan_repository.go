package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mkopo/lending-engine/internal/domain"
)

const loanColumns = `
	id, customer_id, product_id, officer_id, requested_amount, purpose,
	installment_type, approval_status, rejection_reason, approved_at,
	rejected_at, principal, processing_fee, total_interest, total_amount,
	installment_amount, arrears, installments_sum, remaining_balance,
	status, disbursement_code, disbursement_date, due_date,
	expected_completion_date, default_date, rolled_over, created_at,
	updated_at`

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) ext(tx *sqlx.Tx) sqlx.ExtContext {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *loanRepository) Create(ctx context.Context, tx *sqlx.Tx, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (
			id, customer_id, product_id, officer_id, requested_amount,
			purpose, installment_type, approval_status, principal,
			processing_fee, total_interest, total_amount,
			installment_amount, arrears, installments_sum,
			remaining_balance, status, expected_completion_date,
			rolled_over, created_at, updated_at
		) VALUES (
			:id, :customer_id, :product_id, :officer_id, :requested_amount,
			:purpose, :installment_type, :approval_status, :principal,
			:processing_fee, :total_interest, :total_amount,
			:installment_amount, :arrears, :installments_sum,
			:remaining_balance, :status, :expected_completion_date,
			:rolled_over, :created_at, :updated_at
		)
	`

	_, err := sqlx.NamedExecContext(ctx, r.ext(tx), query, loan)
	return err
}

func (r *loanRepository) GetByID(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`

	var loan domain.Loan
	if err := sqlx.GetContext(ctx, r.ext(tx), &loan, query, id); err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1 FOR UPDATE`

	var loan domain.Loan
	if err := sqlx.GetContext(ctx, r.ext(tx), &loan, query, id); err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) Update(ctx context.Context, tx *sqlx.Tx, loan *domain.Loan) error {
	loan.UpdatedAt = time.Now()

	query := `
		UPDATE loans SET
			approval_status = :approval_status,
			rejection_reason = :rejection_reason,
			approved_at = :approved_at,
			rejected_at = :rejected_at,
			principal = :principal,
			processing_fee = :processing_fee,
			total_interest = :total_interest,
			total_amount = :total_amount,
			installment_amount = :installment_amount,
			arrears = :arrears,
			installments_sum = :installments_sum,
			remaining_balance = :remaining_balance,
			status = :status,
			disbursement_code = :disbursement_code,
			disbursement_date = :disbursement_date,
			due_date = :due_date,
			expected_completion_date = :expected_completion_date,
			default_date = :default_date,
			rolled_over = :rolled_over,
			updated_at = :updated_at
		WHERE id = :id
	`

	_, err := sqlx.NamedExecContext(ctx, r.ext(tx), query, loan)
	return err
}

func (r *loanRepository) ListDefaultCandidates(ctx context.Context, tx *sqlx.Tx, asOf time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM loans
		WHERE status IN ($1, $2) AND expected_completion_date < $3
		ORDER BY expected_completion_date
	`

	var ids []uuid.UUID
	err := sqlx.SelectContext(ctx, r.ext(tx), &ids, query,
		domain.LoanStatusActive, domain.LoanStatusPartiallyPaid, asOf)
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *loanRepository) ListPastDueCandidates(ctx context.Context, tx *sqlx.Tx, asOf time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM loans
		WHERE status IN ($1, $2) AND due_date IS NOT NULL AND due_date < $3
		ORDER BY due_date
	`

	var ids []uuid.UUID
	err := sqlx.SelectContext(ctx, r.ext(tx), &ids, query,
		domain.LoanStatusActive, domain.LoanStatusPartiallyPaid, asOf)
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *loanRepository) GetLatestActiveByPhone(ctx context.Context, tx *sqlx.Tx, phone string) (*domain.Loan, error) {
	query := `
		SELECT l.id, l.customer_id, l.product_id, l.officer_id,
			l.requested_amount, l.purpose, l.installment_type,
			l.approval_status, l.rejection_reason, l.approved_at,
			l.rejected_at, l.principal, l.processing_fee, l.total_interest,
			l.total_amount, l.installment_amount, l.arrears,
			l.installments_sum, l.remaining_balance, l.status,
			l.disbursement_code, l.disbursement_date, l.due_date,
			l.expected_completion_date, l.default_date, l.rolled_over,
			l.created_at, l.updated_at
		FROM loans l
		JOIN customers c ON c.id = l.customer_id
		WHERE c.phone = $1 AND l.status IN ($2, $3)
		ORDER BY l.created_at DESC
		LIMIT 1
	`

	var loan domain.Loan
	err := sqlx.GetContext(ctx, r.ext(tx), &loan, query,
		phone, domain.LoanStatusActive, domain.LoanStatusPartiallyPaid)
	if err != nil {
		return nil, err
	}

	return &loan, nil
}
