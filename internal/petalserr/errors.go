// Package petalserr defines the structured error taxonomy shared by every
// layer of the index service: the filter taxonomy, the build pipeline, the
// catalog, and the predicate evaluator all fail through the same Kind enum
// so callers can distinguish build-time from serve-time failures with a
// single errors.As check.
package petalserr

import "fmt"

// Kind identifies one of the error categories a caller may need to branch
// on. New kinds should only be added when a consumer needs to distinguish
// the failure programmatically, not merely log it differently.
type Kind int

const (
	// KindMalformedPredicate marks a structurally invalid query: a
	// composite with zero rules, or an unrecognized condition tag.
	KindMalformedPredicate Kind = iota

	// KindUnsupportedColumnType marks a build-time failure where the
	// strategy selector has no applicable rule for a column's type.
	KindUnsupportedColumnType

	// KindTypeMismatch marks a probe value incompatible with a filter's
	// declared domain.
	KindTypeMismatch

	// KindFilterLoadFailed marks an I/O or deserialization failure while
	// materializing a catalog placeholder.
	KindFilterLoadFailed

	// KindEmptyInput marks a column-chunk stream that yielded zero
	// non-null values for a variant that cannot represent emptiness.
	KindEmptyInput

	// KindBackendUnavailable marks a storage backend refusing enumeration
	// or read/write.
	KindBackendUnavailable

	// KindProtocolError marks a framing or payload decode failure at the
	// wire boundary.
	KindProtocolError
)

func (k Kind) String() string {
	switch k {
	case KindMalformedPredicate:
		return "MalformedPredicate"
	case KindUnsupportedColumnType:
		return "UnsupportedColumnType"
	case KindTypeMismatch:
		return "TypeMismatch"
	case KindFilterLoadFailed:
		return "FilterLoadFailed"
	case KindEmptyInput:
		return "EmptyInput"
	case KindBackendUnavailable:
		return "BackendUnavailable"
	case KindProtocolError:
		return "ProtocolError"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type raised across the service. Path and
// Cause are optional and only meaningful for a subset of Kinds (notably
// KindFilterLoadFailed); they're plain fields rather than a parallel set of
// Kind-specific types because callers almost always just want the Kind and
// a message, and errors.As on a single struct is simpler than a type switch
// over seven.
type Error struct {
	Cause   error
	Kind    Kind
	Path    string
	Message string
}

func (e *Error) Error() string {
	if e.Path != "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s (%s): %v", e.Kind, e.Message, e.Path, e.Cause)
		}
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Path)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, petalserr.New(KindTypeMismatch, "")) if they only
// care about the category.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an *Error with no path or cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf constructs an *Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an *Error carrying a path and an underlying cause, used
// by the catalog when a backing-store read fails during materialization.
func Wrap(kind Kind, path string, cause error) *Error {
	return &Error{Kind: kind, Path: path, Cause: cause, Message: "operation failed"}
}

// MalformedPredicate is a convenience constructor for the most common
// serve-time failure.
func MalformedPredicate(format string, args ...any) *Error {
	return Newf(KindMalformedPredicate, format, args...)
}

// TypeMismatch is a convenience constructor for probe-time type errors.
func TypeMismatch(format string, args ...any) *Error {
	return Newf(KindTypeMismatch, format, args...)
}
