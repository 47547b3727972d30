package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrValidation indicates bad input from the caller.
	ErrValidation = errors.New("validation failed")

	// ErrNoBalanceAvailable is returned when a receipt has nothing left to
	// allocate (or never received anything).
	ErrNoBalanceAvailable = errors.New("no balance available on receipt")

	// ErrInvariantViolation marks the allocated-exceeds-received case. It is
	// unreachable through the allocation service; the importer returns it when
	// a received-quantity decrease would land below what is already allocated.
	ErrInvariantViolation = errors.New("allocated quantity would exceed received quantity")

	// ErrLocationSiteMismatch is returned when the referenced location does
	// not belong to the referenced site.
	ErrLocationSiteMismatch = errors.New("location does not belong to site")
)

// InsufficientBalanceError rejects an allocation and carries the exact
// available quantity so the caller can retry with a corrected amount.
type InsufficientBalanceError struct {
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: requested %s, available %s",
		e.Requested.String(), e.Available.String())
}
