package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mkopo/lending-engine/internal/domain"
)

type directoryRepository struct {
	db *sqlx.DB
}

func NewDirectoryRepository(db *sqlx.DB) DirectoryRepository {
	return &directoryRepository{db: db}
}

func (r *directoryRepository) GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	query := `SELECT id, name, phone, national_id, created_at FROM customers WHERE id = $1`

	var customer domain.Customer
	if err := r.db.GetContext(ctx, &customer, query, id); err != nil {
		return nil, err
	}

	return &customer, nil
}

func (r *directoryRepository) GetProduct(ctx context.Context, id uuid.UUID) (*domain.LoanProduct, error) {
	query := `SELECT id, name, interest_rate, created_at FROM loan_products WHERE id = $1`

	var product domain.LoanProduct
	if err := r.db.GetContext(ctx, &product, query, id); err != nil {
		return nil, err
	}

	return &product, nil
}

func (r *directoryRepository) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT id, name, role, phone, created_at FROM users WHERE id = $1`

	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}

	return &user, nil
}
