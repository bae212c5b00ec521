package apperrors

import (
	"errors"
	"fmt"
)

// Kind identifies the failure class so callers can branch on it
// programmatically instead of matching message strings.
type Kind string

const (
	KindUnauthorized     Kind = "UNAUTHORIZED"
	KindInvalidArgument  Kind = "INVALID_ARGUMENT"
	KindNotFound         Kind = "NOT_FOUND"
	KindAlreadyExists    Kind = "ALREADY_EXISTS"
	KindInvalidState     Kind = "INVALID_STATE"
	KindCapacityExceeded Kind = "CAPACITY_EXCEEDED"
	KindTooManyGuilds    Kind = "TOO_MANY_GUILDS"
	KindCooldownActive   Kind = "COOLDOWN_ACTIVE"
	KindGuildNotActive   Kind = "GUILD_NOT_ACTIVE"
	KindRouting          Kind = "ROUTING_ERROR"
	KindSessionMismatch  Kind = "SESSION_MISMATCH"
	KindPolicy           Kind = "POLICY_ERROR"
)

// Error is the structured failure every entry point surfaces. Details
// carries the identifying keys (organization, guild, user, selector).
type Error struct {
	Kind    Kind
	Message string
	Details map[string]string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New creates a structured error with identifying key/value details.
// Details are passed as alternating key, value strings.
func New(kind Kind, message string, kv ...string) *Error {
	details := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		details[kv[i]] = kv[i+1]
	}
	return &Error{Kind: kind, Message: message, Details: details}
}

// KindOf extracts the failure kind from any error chain. Unclassified
// errors report as INVALID_STATE so nothing maps to a silent success.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInvalidState
}

// DetailsOf extracts the identifying keys from an error chain, if any.
func DetailsOf(err error) map[string]string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Details
	}
	return nil
}

// Is lets errors.Is match on kind: two *Errors are equal when their
// kinds match, regardless of message or details.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// IsKind reports whether err carries the given failure kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}
