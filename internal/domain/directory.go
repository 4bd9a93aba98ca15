package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	RoleAdmin   = "admin"
	RoleOfficer = "officer"
)

// Customer is a lookup collaborator; the engine never mutates it.
type Customer struct {
	ID         uuid.UUID `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Phone      string    `json:"phone" db:"phone"`
	NationalID string    `json:"national_id" db:"national_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// LoanProduct carries the interest rate as a percentage (10 means 10%).
type LoanProduct struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	InterestRate decimal.Decimal `json:"interest_rate" db:"interest_rate"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// User is an officer or admin operating the dashboard.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Role      string    `json:"role" db:"role"`
	Phone     string    `json:"phone" db:"phone"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
