package tokenledger

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("tokenledger: not found")
	ErrAlreadyExists = errors.New("tokenledger: already exists")
	ErrInvalidInput  = errors.New("tokenledger: invalid input")

	// Account errors
	ErrAccountNotFound = errors.New("tokenledger: account not found")

	// Subscription errors
	ErrSubscriptionNotFound = errors.New("tokenledger: subscription not found")
	ErrNoActiveSubscription = errors.New("tokenledger: no active subscription")

	// Cycle errors
	ErrCycleNotFound = errors.New("tokenledger: cycle not found")
	ErrCycleExists   = errors.New("tokenledger: cycle already exists for account and number")
	ErrNoActiveCycle = errors.New("tokenledger: no active billing cycle")

	// Guard errors
	ErrInsufficientBalance = errors.New("tokenledger: insufficient token balance")
	ErrDuplicateEntry      = errors.New("tokenledger: duplicate idempotency key")
	ErrEntryNotFound       = errors.New("tokenledger: ledger entry not found")
	ErrConflict            = errors.New("tokenledger: transaction aborted due to contention")

	// Production errors
	ErrProductionNotFound    = errors.New("tokenledger: production not found")
	ErrProductionNotComplete = errors.New("tokenledger: production not complete")

	// Mulligan errors
	ErrMulliganNotFound    = errors.New("tokenledger: mulligan token not found")
	ErrMulliganAlreadyUsed = errors.New("tokenledger: mulligan already used")
	ErrMulliganNotIssued   = errors.New("tokenledger: mulligan not yet issued")

	// Remote balance errors
	ErrRemoteUnavailable = errors.New("tokenledger: remote balance service unavailable")

	// Store errors
	ErrStoreClosed       = errors.New("tokenledger: store is closed")
	ErrTransactionFailed = errors.New("tokenledger: transaction failed")
	ErrMigrationFailed   = errors.New("tokenledger: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("tokenledger: validation failed for %s: %s", e.Field, e.Message)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrSubscriptionNotFound) ||
		errors.Is(err, ErrCycleNotFound) ||
		errors.Is(err, ErrEntryNotFound) ||
		errors.Is(err, ErrProductionNotFound) ||
		errors.Is(err, ErrMulliganNotFound)
}

// IsUserFacing returns true for errors that are expected outcomes of
// user action and safe to surface verbatim (as opposed to storage or
// infrastructure failures).
func IsUserFacing(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrMulliganAlreadyUsed) ||
		errors.Is(err, ErrMulliganNotFound) ||
		errors.Is(err, ErrProductionNotComplete) ||
		errors.Is(err, ErrNoActiveSubscription)
}

// IsRetryable returns true if the error is temporary and the operation
// can be retried. Retrying a reserve must reuse the original
// idempotency key so an already-committed outcome is replayed rather
// than spent twice.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrTransactionFailed) ||
		errors.Is(err, ErrRemoteUnavailable)
}
