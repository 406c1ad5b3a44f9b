// Package service provides business logic implementations.
package service

import (
	"errors"
	"fmt"
	"time"
)

// Error taxonomy. All of these are recoverable and reported back to the user
// (or silently logged for authorization failures); none crash the process.
var (
	// ErrValidation covers bad user input: non-numeric amounts, amounts below
	// the configured minimums or above the withdrawable limit, wrong step.
	ErrValidation = errors.New("validation failed")

	// ErrAuthorization is returned when a non-admin invokes an admin action.
	ErrAuthorization = errors.New("not authorized")

	// ErrNotActivated is returned when the account has not deposited enough
	// to unlock BTC rounds.
	ErrNotActivated = errors.New("account not activated")

	// ErrAlreadyFinalized guards the approval gate against double decisions.
	ErrAlreadyFinalized = errors.New("request already finalized")

	// ErrAccountNotFound mirrors the store's not-found condition.
	ErrAccountNotFound = errors.New("account not found")
)

// CooldownError is a business-rule denial carrying the concrete remaining
// wait, so handlers can tell the user exactly how long to hold on.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("trade cooldown active: %s remaining", e.Remaining.Round(time.Second))
}

// validationf wraps ErrValidation with a user-facing description of the
// expected input.
func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}
