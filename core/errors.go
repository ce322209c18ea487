package core

import "errors"

// Kind classifies an error for transport mapping and retry policy.
type Kind int

const (
	// KindValidation marks malformed input; never retried.
	KindValidation Kind = iota

	// KindAuth marks authentication failures; never retried.
	KindAuth

	// KindConflict marks state conflicts the client may retry after the
	// conflicting state resolves.
	KindConflict

	// KindNotFound marks missing (or intentionally hidden) records.
	KindNotFound

	// KindInfrastructure marks dependency failures eligible for retry with
	// backoff.
	KindInfrastructure
)

// Error is a coded domain error. Code is the stable machine-readable string
// surfaced to clients; matching is by identity via errors.Is.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrMissingAddress       = &Error{KindValidation, "MISSING_ADDRESS", "address is required"}
	ErrInvalidAddress       = &Error{KindValidation, "INVALID_ADDRESS", "invalid wallet address"}
	ErrInvalidMessageFormat = &Error{KindValidation, "INVALID_MESSAGE_FORMAT", "challenge message does not match the expected template"}
	ErrAddressMismatch      = &Error{KindValidation, "ADDRESS_MISMATCH", "message was issued for a different address"}
	ErrInvalidTimestamp     = &Error{KindValidation, "INVALID_TIMESTAMP", "challenge timestamp is outside the accepted window"}
	ErrInvalidSignature     = &Error{KindAuth, "INVALID_SIGNATURE", "signature verification failed"}

	ErrMissingToken     = &Error{KindAuth, "MISSING_TOKEN", "bearer token is required"}
	ErrUnauthenticated  = &Error{KindAuth, "UNAUTHENTICATED", "session is missing, inactive or expired"}
	ErrRefreshFailed    = &Error{KindInfrastructure, "REFRESH_FAILED", "failed to refresh session"}
	ErrDisconnectFailed = &Error{KindInfrastructure, "DISCONNECT_FAILED", "failed to disconnect session"}

	ErrInvalidAmount       = &Error{KindValidation, "INVALID_AMOUNT", "claim amount must be positive"}
	ErrAmountMismatch      = &Error{KindValidation, "AMOUNT_MISMATCH", "expected amount deviates from the computed reward"}
	ErrClaimTooSoon        = &Error{KindValidation, "CLAIM_TOO_SOON", "minimum claim interval has not elapsed"}
	ErrClaimInProgress     = &Error{KindConflict, "CLAIM_IN_PROGRESS", "a pending claim already exists for this account"}
	ErrTransactionNotFound = &Error{KindNotFound, "TRANSACTION_NOT_FOUND", "claim transaction not found"}
	ErrTransactionExpired  = &Error{KindValidation, "TRANSACTION_EXPIRED", "claim transaction expired before confirmation"}
	ErrPoolInactive        = &Error{KindConflict, "POOL_NOT_ACTIVE", "reward pool is not active"}

	ErrDatabase              = &Error{KindInfrastructure, "DATABASE_ERROR", "store operation failed"}
	ErrUserCreationFailed    = &Error{KindInfrastructure, "USER_CREATION_FAILED", "failed to create account"}
	ErrSessionCreationFailed = &Error{KindInfrastructure, "SESSION_CREATION_FAILED", "failed to create session"}
)

// ErrNotFound is the store-level sentinel adapters return for missing rows.
// Services translate it into the appropriate coded error.
var ErrNotFound = errors.New("not found")

// CodedError extracts the *Error from an error chain, or nil.
func CodedError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}
