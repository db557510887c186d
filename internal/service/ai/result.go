package ai

import "errors"

// ErrEmptyResponse marks a call that completed but produced nothing usable.
// It is distinct from a transport failure.
var ErrEmptyResponse = errors.New("ai: empty response")

// Result is the outcome of a capability call that may legitimately produce
// nothing: Ok(value) or Empty.
type Result[T any] struct {
	value T
	ok    bool
}

func Ok[T any](value T) Result[T] {
	return Result[T]{value: value, ok: true}
}

func Empty[T any]() Result[T] {
	return Result[T]{}
}

// Get returns the value and whether one is present.
func (r Result[T]) Get() (T, bool) {
	return r.value, r.ok
}

func (r Result[T]) IsEmpty() bool {
	return !r.ok
}
