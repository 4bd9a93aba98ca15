package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mkopo/lending-engine/internal/domain"
)

type ledgerRepository struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) ext(tx *sqlx.Tx) sqlx.ExtContext {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *ledgerRepository) CreateMpesaTransaction(ctx context.Context, tx *sqlx.Tx, txn *domain.MpesaTransaction) error {
	query := `
		INSERT INTO mpesa_transactions (
			id, loan_id, customer_id, initiated_by, type, amount,
			reference_code, status, created_at
		) VALUES (
			:id, :loan_id, :customer_id, :initiated_by, :type, :amount,
			:reference_code, :status, :created_at
		)
	`

	_, err := sqlx.NamedExecContext(ctx, r.ext(tx), query, txn)
	return err
}

func (r *ledgerRepository) CreateRollover(ctx context.Context, tx *sqlx.Tx, snapshot *domain.RolledOverLoan) error {
	query := `
		INSERT INTO rolled_over_loans (
			id, loan_id, principal, balance_at_rollover, total_amount,
			application_date, expected_completion_date, created_at
		) VALUES (
			:id, :loan_id, :principal, :balance_at_rollover, :total_amount,
			:application_date, :expected_completion_date, :created_at
		)
	`

	_, err := sqlx.NamedExecContext(ctx, r.ext(tx), query, snapshot)
	return err
}

func (r *ledgerRepository) ListRolloversByLoanID(ctx context.Context, tx *sqlx.Tx, loanID uuid.UUID) ([]*domain.RolledOverLoan, error) {
	query := `
		SELECT id, loan_id, principal, balance_at_rollover, total_amount,
			application_date, expected_completion_date, created_at
		FROM rolled_over_loans
		WHERE loan_id = $1
		ORDER BY created_at
	`

	var snapshots []*domain.RolledOverLoan
	if err := sqlx.SelectContext(ctx, r.ext(tx), &snapshots, query, loanID); err != nil {
		return nil, err
	}

	return snapshots, nil
}
