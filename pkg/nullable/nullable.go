// Package nullable distinguishes "field absent" from "field set to null" in
// partial-update JSON bodies.
package nullable

import "encoding/json"

// Value records whether a JSON field was present. Ptr is nil when the field
// was explicitly null.
type Value[T any] struct {
	Set bool
	Ptr *T
}

// Of returns a present, non-null Value.
func Of[T any](v T) Value[T] {
	return Value[T]{Set: true, Ptr: &v}
}

// Null returns a present, explicitly null Value.
func Null[T any]() Value[T] {
	return Value[T]{Set: true}
}

func (v *Value[T]) UnmarshalJSON(b []byte) error {
	v.Set = true
	if string(b) == "null" {
		v.Ptr = nil
		return nil
	}
	var x T
	if err := json.Unmarshal(b, &x); err != nil {
		return err
	}
	v.Ptr = &x
	return nil
}

func (v Value[T]) MarshalJSON() ([]byte, error) {
	if v.Ptr == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*v.Ptr)
}

// ApplyTo overwrites *dst when the field was present.
func (v Value[T]) ApplyTo(dst **T) {
	if v.Set {
		*dst = v.Ptr
	}
}
