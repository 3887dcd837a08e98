package analysis

import (
	"bytes"
	"encoding/json"
)

// Section wraps a report section that the model may omit. Consumers ask for
// the value explicitly via Get instead of null-checking optional fields at
// every use site. The zero value is an absent section.
type Section[T any] struct {
	value   T
	present bool
}

// Of builds a present section holding v.
func Of[T any](v T) Section[T] {
	return Section[T]{value: v, present: true}
}

// Get returns the section value and whether it is present.
func (s Section[T]) Get() (T, bool) {
	return s.value, s.present
}

// Present reports whether the section carries a value.
func (s Section[T]) Present() bool { return s.present }

// MarshalJSON emits null for an absent section.
func (s Section[T]) MarshalJSON() ([]byte, error) {
	if !s.present {
		return []byte("null"), nil
	}
	return json.Marshal(s.value)
}

// UnmarshalJSON treats JSON null as absent. A missing key leaves the zero
// (absent) value untouched.
func (s *Section[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = Section[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Section[T]{value: v, present: true}
	return nil
}
