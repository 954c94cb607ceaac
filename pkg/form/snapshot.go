package form

// Snapshot is a read-only copy of every field value, handed to rules that
// need cross-field context. Build a fresh one per validation pass.
type Snapshot struct {
	values map[string]string
}

// NewSnapshot copies values into a Snapshot.
func NewSnapshot(values map[string]string) Snapshot {
	out := make(map[string]string, len(values))
	for field, value := range values {
		out[field] = value
	}
	return Snapshot{values: out}
}

// Value returns the value of a field, or "" when absent.
func (s Snapshot) Value(field string) string {
	return s.values[field]
}

// Lookup returns the value of a field and whether it was present.
func (s Snapshot) Lookup(field string) (string, bool) {
	value, ok := s.values[field]
	return value, ok
}

// Len reports the number of captured fields.
func (s Snapshot) Len() int {
	return len(s.values)
}
