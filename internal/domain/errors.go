package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyDeleted     = errors.New("group is already deleted")
	ErrAlreadyActive      = errors.New("group is already active")
	ErrPartialReversal    = errors.New("group cannot be reversed atomically")
	ErrAllocationMismatch = errors.New("split allocation does not match currency total")
	ErrMissingRate        = errors.New("missing or invalid exchange rate")
	ErrPermissionDenied   = errors.New("permission denied")
)

// ValidationError reports malformed input on a single field.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError creates a ValidationError with a formatted reason.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports an unknown group, asset, debt or entry reference.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q %s", e.Resource, e.ID, ErrNotFound)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// AlreadyDeletedError is returned when deleting a group whose members are all soft-deleted.
type AlreadyDeletedError struct {
	GroupID string
}

func (e *AlreadyDeletedError) Error() string {
	return fmt.Sprintf("group %q: %s", e.GroupID, ErrAlreadyDeleted)
}

func (e *AlreadyDeletedError) Is(target error) bool { return target == ErrAlreadyDeleted }

// AlreadyActiveError is returned when restoring a group whose members are all active.
type AlreadyActiveError struct {
	GroupID string
}

func (e *AlreadyActiveError) Error() string {
	return fmt.Sprintf("group %q: %s", e.GroupID, ErrAlreadyActive)
}

func (e *AlreadyActiveError) Is(target error) bool { return target == ErrAlreadyActive }

// PartialReversalError means one member of a group could not be reversed;
// no member of the group was mutated.
type PartialReversalError struct {
	GroupID       string
	TransactionID string
	Err           error
}

func (e *PartialReversalError) Error() string {
	return fmt.Sprintf("group %q: %s: transaction %q: %v", e.GroupID, ErrPartialReversal, e.TransactionID, e.Err)
}

func (e *PartialReversalError) Is(target error) bool { return target == ErrPartialReversal }

func (e *PartialReversalError) Unwrap() error { return e.Err }

// AllocationMismatchError reports split parts that do not add up to the currency total.
type AllocationMismatchError struct {
	Currency    string
	Total       decimal.Decimal
	Allocated   decimal.Decimal
	Discrepancy decimal.Decimal
}

func (e *AllocationMismatchError) Error() string {
	return fmt.Sprintf("%s: %s total %s, allocated %s (discrepancy %s)",
		ErrAllocationMismatch, e.Currency, e.Total, e.Allocated, e.Discrepancy)
}

func (e *AllocationMismatchError) Is(target error) bool { return target == ErrAllocationMismatch }

// MissingRateError reports a non-zero currency total without a usable rate.
type MissingRateError struct {
	Currency string
	Total    decimal.Decimal
}

func (e *MissingRateError) Error() string {
	return fmt.Sprintf("%s: %s (total %s)", ErrMissingRate, e.Currency, e.Total)
}

func (e *MissingRateError) Is(target error) bool { return target == ErrMissingRate }
