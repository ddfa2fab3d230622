// Package perrors defines Persona's error taxonomy: one Go type per failure
// mode named in the core specification, so callers can switch on type rather
// than on a string code.
package perrors

import "fmt"

// AuthenticationFailed covers wrong password, locked service, an auto-locked
// session, a missing pairing, or a failed bridge MAC/timestamp check.
type AuthenticationFailed struct {
	Reason string
}

func (e *AuthenticationFailed) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

// NotFound reports a repository lookup that returned nothing for a required
// entity.
type NotFound struct {
	Entity string
	ID     string
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// AlreadyExists reports a uniqueness violation.
type AlreadyExists struct {
	Entity string
	Key    string
}

func (e *AlreadyExists) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Entity, e.Key)
}

// InvalidInput reports a validation failure caught before any I/O.
type InvalidInput struct {
	Field  string
	Reason string
}

func (e *InvalidInput) Error() string {
	return fmt.Sprintf("invalid input for %s: %s", e.Field, e.Reason)
}

// CryptographicErrorKind enumerates the ways a cryptographic operation can
// fail. Never downgraded to a generic error at a module boundary.
type CryptographicErrorKind string

const (
	KindAuthenticationFailed CryptographicErrorKind = "authentication_failed"
	KindKDFFailure           CryptographicErrorKind = "kdf_failure"
	KindBadKeySize           CryptographicErrorKind = "bad_key_size"
	KindMalformedHeader      CryptographicErrorKind = "malformed_ciphertext_header"
	KindUnsupportedAlgorithm CryptographicErrorKind = "unsupported_algorithm"
)

// CryptographicError wraps a cryptographic failure. It is never swallowed or
// downgraded to success; it always aborts the current operation.
type CryptographicError struct {
	Kind CryptographicErrorKind
	Err  error
}

func (e *CryptographicError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cryptographic error (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("cryptographic error (%s)", e.Kind)
}

func (e *CryptographicError) Unwrap() error { return e.Err }

// PolicyDenied reports a §4.5 rule rejecting a request.
type PolicyDenied struct {
	Reason string
}

func (e *PolicyDenied) Error() string {
	return fmt.Sprintf("policy denied: %s", e.Reason)
}

// RateLimited reports a rate or quota cap being reached.
type RateLimited struct {
	Reason string
}

func (e *RateLimited) Error() string {
	return fmt.Sprintf("rate limited: %s", e.Reason)
}

// UnsupportedOperation reports an unknown message type or unsupported
// algorithm.
type UnsupportedOperation struct {
	Operation string
}

func (e *UnsupportedOperation) Error() string {
	return fmt.Sprintf("unsupported operation: %s", e.Operation)
}

// Storage reports a transactional abort or schema mismatch.
type Storage struct {
	Underlying error
}

func (e *Storage) Error() string {
	return fmt.Sprintf("storage error: %v", e.Underlying)
}

func (e *Storage) Unwrap() error { return e.Underlying }

// Io reports a socket or file error.
type Io struct {
	Underlying error
}

func (e *Io) Error() string {
	return fmt.Sprintf("io error: %v", e.Underlying)
}

func (e *Io) Unwrap() error { return e.Underlying }

// AccountLocked reports that UserAuth.locked_until has not yet elapsed.
type AccountLocked struct {
	Until string
}

func (e *AccountLocked) Error() string {
	return fmt.Sprintf("account locked until %s", e.Until)
}

// BridgeErrorString maps a Go error from this taxonomy to one of the
// canonical strings the native-messaging bridge returns on the wire (§7).
func BridgeErrorString(err error) string {
	switch e := err.(type) {
	case *AuthenticationFailed:
		switch e.Reason {
		case "locked":
			return "locked"
		case "session_expired":
			return "session_expired"
		case "pairing_required":
			return "pairing_required"
		case "pairing_not_approved":
			return "pairing_not_approved"
		case "stale timestamp":
			return "authentication_failed: stale timestamp"
		default:
			return "authentication_failed"
		}
	case *NotFound:
		return "not_found"
	case *InvalidInput:
		if e.Field == "user_gesture" {
			return "user_gesture_required"
		}
		if e.Field == "origin" {
			return "origin_mismatch"
		}
		if e.Field == "credential_type" {
			return "unsupported_credential_type"
		}
		return "invalid_payload"
	case *UnsupportedOperation:
		return "unsupported_credential_type"
	case *PolicyDenied:
		return "authentication_failed"
	default:
		return "invalid_payload"
	}
}
