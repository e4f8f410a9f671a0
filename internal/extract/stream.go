// internal/extract/stream.go
package extract

import (
	"context"
	"iter"
)

// Stream is a sequence fetched on demand. Iterating it again refetches from
// the start.
type Stream[T any] struct {
	run func(ctx context.Context, yield func(T) bool) error
}

// NewStream creates a stream backed by run, which calls yield for each item
// until it returns false.
func NewStream[T any](run func(ctx context.Context, yield func(T) bool) error) *Stream[T] {
	return &Stream[T]{run: run}
}

// All iterates the stream. A fetch error is yielded once as the last element.
func (s *Stream[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		stopped := false
		err := s.run(ctx, func(item T) bool {
			if !yield(item, nil) {
				stopped = true
				return false
			}
			return true
		})
		if err != nil && !stopped {
			var zero T
			yield(zero, err)
		}
	}
}

// Collect materializes up to limit items; limit <= 0 means all.
func (s *Stream[T]) Collect(ctx context.Context, limit int) ([]T, error) {
	out := []T{}
	err := s.run(ctx, func(item T) bool {
		out = append(out, item)
		return limit <= 0 || len(out) < limit
	})
	return out, err
}

// MarshalJSON encodes an unconsumed stream as null.
func (s *Stream[T]) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}
