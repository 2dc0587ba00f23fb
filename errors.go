package rosca

import (
	"errors"
	"fmt"

	"github.com/xraph/rosca/lock"
)

// Ledger errors. A rejected operation leaves the pool unchanged. Besides
// these, operations return a ValidationError (matching ErrInvalidInput) for
// malformed input such as an empty caller, a foreign currency or an
// overflowing total.
var (
	ErrNotOperator        = errors.New("rosca: caller is not the operator")
	ErrAlreadyContributed = errors.New("rosca: already contributed this cycle")
	ErrAmountTooLow       = errors.New("rosca: amount below minimum contribution")
	ErrNotPaymentPhase    = errors.New("rosca: participant quota not reached")
	ErrNotNextInQueue     = errors.New("rosca: caller is not next in queue")
	ErrNoPendingRequest   = errors.New("rosca: no pending payout request")
	ErrTransferFailure    = errors.New("rosca: transfer failed")
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("rosca: not found")
	ErrAlreadyExists = errors.New("rosca: already exists")
	ErrInvalidInput  = errors.New("rosca: invalid input")

	// Pool errors
	ErrPoolNotFound = errors.New("rosca: pool not found")

	// Journal errors
	ErrJournalBufferFull = errors.New("rosca: journal buffer full")

	// Store errors
	ErrStoreNotReady = errors.New("rosca: store not ready")
	ErrStoreClosed   = errors.New("rosca: store is closed")
	ErrLockFailed    = lock.ErrNotAcquired
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("rosca: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// MultiError collects several errors, e.g. every invalid field of a pool
// configuration.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "rosca: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("rosca: %d errors occurred", len(e.Errors))
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error { return e.Errors }

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrPoolNotFound)
}

// IsPrecondition reports whether err is a ledger rejection the caller can
// retry once the pool's state changes.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrAlreadyContributed) ||
		errors.Is(err, ErrAmountTooLow) ||
		errors.Is(err, ErrNotPaymentPhase) ||
		errors.Is(err, ErrNotNextInQueue) ||
		errors.Is(err, ErrNoPendingRequest)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransferFailure) ||
		errors.Is(err, ErrJournalBufferFull) ||
		errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrLockFailed)
}
