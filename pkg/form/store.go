package form

import (
	"fmt"
	"sort"
)

// Store owns the current value and error of every field for one form session.
// It is the only writer of that state. A Store is not safe for concurrent
// use; callers serialize access through a single owner.
type Store struct {
	fields []string
	values map[string]string
	errors map[string]FieldError
}

// NewStore declares the fields the store tracks, in display order. Duplicate
// and empty names are ignored.
func NewStore(fields ...string) *Store {
	s := &Store{
		values: make(map[string]string, len(fields)),
		errors: make(map[string]FieldError),
	}
	for _, name := range fields {
		if name == "" {
			continue
		}
		if _, exists := s.values[name]; exists {
			continue
		}
		s.fields = append(s.fields, name)
		s.values[name] = ""
	}
	return s
}

// Initialized reports whether the store was built by NewStore.
func (s *Store) Initialized() bool {
	return s != nil && s.values != nil
}

// Fields returns the declared field names in order.
func (s *Store) Fields() []string {
	if !s.Initialized() {
		return nil
	}
	return append([]string(nil), s.fields...)
}

// Has reports whether the field is declared.
func (s *Store) Has(field string) bool {
	if !s.Initialized() {
		return false
	}
	_, ok := s.values[field]
	return ok
}

// Value returns the current value of a field.
func (s *Store) Value(field string) string {
	if !s.Initialized() {
		return ""
	}
	return s.values[field]
}

// SetValue records the latest user-entered representation of a field. When
// the value differs from the stored one, any error attached to the field is
// dropped immediately so a stale message never outlives the input it was
// computed for.
func (s *Store) SetValue(field, value string) (bool, error) {
	if !s.Initialized() {
		return false, ErrNotInitialized
	}
	current, ok := s.values[field]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	if current == value {
		return false, nil
	}
	s.values[field] = value
	delete(s.errors, field)
	return true, nil
}

// SetError attaches an error to a field. A zero FieldError clears it.
func (s *Store) SetError(field string, fieldErr FieldError) error {
	if !s.Initialized() {
		return ErrNotInitialized
	}
	if _, ok := s.values[field]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	if fieldErr.IsZero() {
		delete(s.errors, field)
		return nil
	}
	s.errors[field] = fieldErr
	return nil
}

// ClearError removes any error attached to the field.
func (s *Store) ClearError(field string) {
	if !s.Initialized() {
		return
	}
	delete(s.errors, field)
}

// Error returns the error attached to a field, if any.
func (s *Store) Error(field string) (FieldError, bool) {
	if !s.Initialized() {
		return FieldError{}, false
	}
	fieldErr, ok := s.errors[field]
	return fieldErr, ok
}

// Errors returns a copy of the error map. Fields without errors are absent.
func (s *Store) Errors() map[string]FieldError {
	if !s.Initialized() || len(s.errors) == 0 {
		return map[string]FieldError{}
	}
	out := make(map[string]FieldError, len(s.errors))
	for field, fieldErr := range s.errors {
		out[field] = fieldErr
	}
	return out
}

// ErrorFields returns the names of fields that currently carry an error,
// sorted in declaration order.
func (s *Store) ErrorFields() []string {
	if !s.Initialized() || len(s.errors) == 0 {
		return nil
	}
	order := make(map[string]int, len(s.fields))
	for idx, name := range s.fields {
		order[name] = idx
	}
	out := make([]string, 0, len(s.errors))
	for field := range s.errors {
		out = append(out, field)
	}
	sort.Slice(out, func(i, j int) bool {
		return order[out[i]] < order[out[j]]
	})
	return out
}

// HasErrors reports whether any field carries an error.
func (s *Store) HasErrors() bool {
	return s.Initialized() && len(s.errors) > 0
}

// Snapshot captures the current values for a single validation pass.
func (s *Store) Snapshot() Snapshot {
	if !s.Initialized() {
		return Snapshot{}
	}
	return NewSnapshot(s.values)
}

// Reset empties every value and error while keeping the declared fields.
func (s *Store) Reset() {
	if !s.Initialized() {
		return
	}
	for field := range s.values {
		s.values[field] = ""
	}
	s.errors = make(map[string]FieldError)
}
