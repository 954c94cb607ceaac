package form

import "errors"

// ErrorKind classifies a field-scoped validation failure. The zero value means
// the field has no known error.
type ErrorKind string

const (
	KindNone          ErrorKind = ""
	KindRequired      ErrorKind = "required"
	KindInvalidFormat ErrorKind = "invalid_format"
	KindWrongLength   ErrorKind = "wrong_length"
	KindTooWeak       ErrorKind = "too_weak"
	KindMismatch      ErrorKind = "mismatch"
	// KindNotFound and KindLookupFailed are only produced by remote
	// verification, never by a synchronous rule.
	KindNotFound     ErrorKind = "not_found"
	KindLookupFailed ErrorKind = "lookup_failed"
)

// Kinds lists every error kind in a stable order.
func Kinds() []ErrorKind {
	return []ErrorKind{
		KindRequired,
		KindInvalidFormat,
		KindWrongLength,
		KindTooWeak,
		KindMismatch,
		KindNotFound,
		KindLookupFailed,
	}
}

// Deferred reports whether the kind comes from an asynchronous check.
func (k ErrorKind) Deferred() bool {
	return k == KindNotFound || k == KindLookupFailed
}

// FieldError is the single error attached to a field. Message is the
// localized text shown beneath the input; Kind is what callers assert on.
type FieldError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message,omitempty"`
}

// IsZero reports whether the entry carries no error.
func (e FieldError) IsZero() bool {
	return e.Kind == KindNone
}

var (
	// ErrUnknownField is returned when a field is not declared by the store.
	ErrUnknownField = errors.New("form: unknown field")
	// ErrNotInitialized is returned when a nil or zero Store is used.
	ErrNotInitialized = errors.New("form: store not initialized")
)
