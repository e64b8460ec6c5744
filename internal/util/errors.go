// internal/util/errors.go
package util

import "errors"

// Common application-specific errors.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input provided")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAccountNotFound   = errors.New("account not found")
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrDuplicateEntry    = errors.New("duplicate entry")
	ErrUnauthorized      = errors.New("caller is not authorized for this operation")

	// Engine errors surfaced verbatim to callers.
	ErrQuotaExhausted          = errors.New("daily task quota exhausted")
	ErrNotEligible             = errors.New("not eligible to spin yet")
	ErrPendingWithdrawalExists = errors.New("a pending withdrawal request already exists")
	ErrBelowMinimum            = errors.New("amount is below the minimum withdrawal")
	ErrAboveMaximum            = errors.New("amount is above the maximum withdrawal")
	ErrExceedsAvailable        = errors.New("amount exceeds the withdrawable balance")

	// ErrConcurrencyConflict is transient: the caller should retry the whole
	// logical operation, not just part of it.
	ErrConcurrencyConflict = errors.New("concurrent modification conflict, retry the operation")

	// ErrConfigurationInvalid is fatal at configuration load and must block
	// activation rather than fail at run time.
	ErrConfigurationInvalid = errors.New("configuration invalid")
)

// IsError reports whether err matches the target sentinel anywhere in its chain.
func IsError(err, target error) bool {
	return errors.Is(err, target)
}
