// Package errors provides structured error handling with localized
// user-facing messages.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Rejection kinds produced by the game engine and gateway.
	CodeNotFound            Code = "NOT_FOUND"
	CodePhaseViolation      Code = "PHASE_VIOLATION"
	CodeTurnViolation       Code = "TURN_VIOLATION"
	CodePermissionViolation Code = "PERMISSION_VIOLATION"
	CodeValidation          Code = "VALIDATION_ERROR"
	CodePoolExhausted       Code = "POOL_EXHAUSTED"
	CodeConcurrencyConflict Code = "CONCURRENCY_CONFLICT"

	// Identity errors
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeTokenInvalid    Code = "TOKEN_INVALID"
	CodeTokenExpired    Code = "TOKEN_EXPIRED"

	// Storage errors
	CodeCodeTaken Code = "SESSION_CODE_TAKEN"

	// Transport errors
	CodeRateLimited Code = "RATE_LIMITED"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeValidation:
		return codes.InvalidArgument

	case CodePhaseViolation:
		return codes.FailedPrecondition

	// Acting out of turn is a permission problem for the caller, not a
	// state problem for the session.
	case CodeTurnViolation, CodePermissionViolation:
		return codes.PermissionDenied

	case CodeNotFound:
		return codes.NotFound

	case CodePoolExhausted, CodeRateLimited:
		return codes.ResourceExhausted

	case CodeConcurrencyConflict:
		return codes.Aborted

	case CodeCodeTaken:
		return codes.AlreadyExists

	case CodeUnauthenticated, CodeTokenInvalid, CodeTokenExpired:
		return codes.Unauthenticated

	default:
		return codes.Internal
	}
}

// Retryable reports whether a caller may retry the same request unchanged.
func (c Code) Retryable() bool {
	return c == CodeConcurrencyConflict
}
