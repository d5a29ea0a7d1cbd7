package probe

import "fmt"

// Placeholder is how an absent property renders.
const Placeholder = "-"

// Optional holds a property that a container may or may not report.
type Optional[T any] struct {
	value T
	ok    bool
}

// Some wraps a reported value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, ok: true}
}

// FromPtr converts a decoded pointer field.
func FromPtr[T any](v *T) Optional[T] {
	if v == nil {
		return Optional[T]{}
	}
	return Some(*v)
}

// Get returns the value and whether it was reported.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.ok
}

// Present reports whether the value was reported.
func (o Optional[T]) Present() bool {
	return o.ok
}

// Or returns the value, or def when absent.
func (o Optional[T]) Or(def T) T {
	if !o.ok {
		return def
	}
	return o.value
}

func (o Optional[T]) String() string {
	if !o.ok {
		return Placeholder
	}
	switch v := any(o.value).(type) {
	case bool:
		if v {
			return "yes"
		}
		return "no"
	case string:
		if v == "" {
			return Placeholder
		}
		return v
	}
	return fmt.Sprint(o.value)
}
