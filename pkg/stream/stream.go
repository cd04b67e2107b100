// Package stream provides the lazy, single-subscriber sequence used as the
// calling convention between the HTTP layer and registered units.
//
// A Stream does nothing until Subscribe is called. The producer pushes
// elements through an Emit callback; returning nil from the producer signals
// completion, returning an error signals failure. Cancelling the subscription
// context makes Emit fail with the context error so producers unwind promptly.
package stream

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrSubscribed is returned when a non-replayable stream is subscribed twice.
var ErrSubscribed = errors.New("stream: already subscribed")

// errStop is used internally to end a subscription early without reporting failure.
var errStop = errors.New("stream: stop")

// Emit pushes one element downstream. A non-nil error means the subscriber is
// gone (cancellation or downstream failure) and the producer must return it.
type Emit[T any] func(T) error

// Producer generates the elements of a stream.
type Producer[T any] func(ctx context.Context, emit Emit[T]) error

// Stream is a lazy sequence of T with single-subscriber semantics.
type Stream[T any] struct {
	produce Producer[T]
	replay  bool
	used    atomic.Bool
}

// New builds a stream from a producer. The producer runs once per subscription.
func New[T any](p Producer[T]) *Stream[T] {
	return &Stream[T]{produce: p}
}

// FromSlice builds a replayable stream over a materialized collection.
func FromSlice[T any](items []T) *Stream[T] {
	s := New[T](func(ctx context.Context, emit Emit[T]) error {
		for _, v := range items {
			if err := emit(v); err != nil {
				return err
			}
		}
		return nil
	})
	s.replay = true
	return s
}

// Just is FromSlice over its arguments.
func Just[T any](items ...T) *Stream[T] { return FromSlice(items) }

// Empty completes immediately.
func Empty[T any]() *Stream[T] { return FromSlice[T](nil) }

// Fail terminates with err on subscription.
func Fail[T any](err error) *Stream[T] {
	return New[T](func(context.Context, Emit[T]) error { return err })
}

// Subscribe runs the producer, calling next for each element in production
// order. It returns nil on completion and the terminal error otherwise.
// A nil stream behaves like Empty.
func (s *Stream[T]) Subscribe(ctx context.Context, next func(T) error) error {
	if s == nil || s.produce == nil {
		return nil
	}
	if !s.replay && !s.used.CompareAndSwap(false, true) {
		return ErrSubscribed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.produce(ctx, func(v T) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return next(v)
	})
}

// Collect materializes the stream.
func (s *Stream[T]) Collect(ctx context.Context) ([]T, error) {
	var out []T
	err := s.Subscribe(ctx, func(v T) error {
		out = append(out, v)
		return nil
	})
	return out, err
}

// First returns the first element and cancels the rest of the subscription.
// ok is false when the stream completed without elements.
func First[T any](ctx context.Context, s *Stream[T]) (v T, ok bool, err error) {
	err = s.Subscribe(ctx, func(x T) error {
		v, ok = x, true
		return errStop
	})
	if errors.Is(err, errStop) {
		err = nil
	}
	return v, ok, err
}

// Map applies fn element-wise. An error from fn terminates the output at the
// position it occurred.
func Map[I, O any](s *Stream[I], fn func(context.Context, I) (O, error)) *Stream[O] {
	return New[O](func(ctx context.Context, emit Emit[O]) error {
		return s.Subscribe(ctx, func(v I) error {
			out, err := fn(ctx, v)
			if err != nil {
				return err
			}
			return emit(out)
		})
	})
}
