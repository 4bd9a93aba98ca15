package apperrors

import (
	"errors"
	"fmt"
)

// Kind buckets a failure so transports can map it to a status class
// without string matching.
type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindDatabase
)

// Domain errors
var (
	ErrLoanNotFound          = errors.New("loan not found")
	ErrCustomerNotFound      = errors.New("customer not found")
	ErrProductNotFound       = errors.New("loan product not found")
	ErrOfficerNotFound       = errors.New("officer not found")
	ErrRepaymentNotFound     = errors.New("repayment not found")
	ErrAlreadyProcessed      = errors.New("loan not found or already processed")
	ErrNotPendingDisbursement = errors.New("loan is not in pending disbursement status")
	ErrLoanNotDisbursed      = errors.New("loan has not been disbursed")
	ErrLoanClosed            = errors.New("loan is fully paid")
	ErrDuplicatePayment      = errors.New("payment reference already recorded")
	ErrNotEligibleForRollover = errors.New("loan not found or not eligible for roll-over")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrForbidden             = errors.New("insufficient role for this operation")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(kind Kind, code, message string, err error) *BusinessError {
	return &BusinessError{
		Kind:    kind,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// KindOf extracts the Kind from an error chain, defaulting to database
// (infrastructure) for unclassified failures.
func KindOf(err error) Kind {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindDatabase
}

// Error codes
const (
	ErrCodeLoanNotFound       = "LOAN_NOT_FOUND"
	ErrCodeEntityNotFound     = "ENTITY_NOT_FOUND"
	ErrCodeRepaymentNotFound  = "REPAYMENT_NOT_FOUND"
	ErrCodeAlreadyProcessed   = "ALREADY_PROCESSED"
	ErrCodeNotPending         = "NOT_PENDING_DISBURSEMENT"
	ErrCodeLoanNotDisbursed   = "LOAN_NOT_DISBURSED"
	ErrCodeLoanClosed         = "LOAN_CLOSED"
	ErrCodeDuplicatePayment   = "DUPLICATE_PAYMENT"
	ErrCodeRolloverIneligible = "ROLLOVER_INELIGIBLE"
	ErrCodeInvalidAmount      = "INVALID_AMOUNT"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeDatabaseError      = "DATABASE_ERROR"
)

// Wrap common errors with business context

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		KindNotFound,
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapEntityNotFound(entity, id string, sentinel error) *BusinessError {
	return NewBusinessError(
		KindNotFound,
		ErrCodeEntityNotFound,
		fmt.Sprintf("%s %s not found", entity, id),
		sentinel,
	)
}

func WrapRepaymentNotFound(id string) *BusinessError {
	return NewBusinessError(
		KindNotFound,
		ErrCodeRepaymentNotFound,
		fmt.Sprintf("Repayment %s not found", id),
		ErrRepaymentNotFound,
	)
}

func WrapAlreadyProcessed(loanID string) *BusinessError {
	return NewBusinessError(
		KindConflict,
		ErrCodeAlreadyProcessed,
		fmt.Sprintf("Loan %s not found or already processed", loanID),
		ErrAlreadyProcessed,
	)
}

func WrapNotPendingDisbursement(loanID string) *BusinessError {
	return NewBusinessError(
		KindConflict,
		ErrCodeNotPending,
		fmt.Sprintf("Loan %s is not in pending disbursement status", loanID),
		ErrNotPendingDisbursement,
	)
}

func WrapLoanNotDisbursed(loanID string) *BusinessError {
	return NewBusinessError(
		KindConflict,
		ErrCodeLoanNotDisbursed,
		fmt.Sprintf("Loan %s has not been disbursed", loanID),
		ErrLoanNotDisbursed,
	)
}

func WrapLoanClosed(loanID string) *BusinessError {
	return NewBusinessError(
		KindConflict,
		ErrCodeLoanClosed,
		fmt.Sprintf("Loan %s is fully paid; repayments are no longer accepted", loanID),
		ErrLoanClosed,
	)
}

func WrapDuplicatePayment(loanID, reference string) *BusinessError {
	return NewBusinessError(
		KindConflict,
		ErrCodeDuplicatePayment,
		fmt.Sprintf("Payment %s already recorded for loan %s", reference, loanID),
		ErrDuplicatePayment,
	)
}

func WrapRolloverIneligible(loanID string) *BusinessError {
	return NewBusinessError(
		KindConflict,
		ErrCodeRolloverIneligible,
		fmt.Sprintf("Loan %s not found or not eligible for roll-over", loanID),
		ErrNotEligibleForRollover,
	)
}

func WrapInvalidAmount(detail string) *BusinessError {
	return NewBusinessError(
		KindValidation,
		ErrCodeInvalidAmount,
		detail,
		ErrInvalidAmount,
	)
}

func WrapValidation(detail string, err error) *BusinessError {
	return NewBusinessError(
		KindValidation,
		ErrCodeValidation,
		detail,
		err,
	)
}

func WrapForbidden(detail string) *BusinessError {
	return NewBusinessError(
		KindForbidden,
		ErrCodeForbidden,
		detail,
		ErrForbidden,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		KindDatabase,
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}
