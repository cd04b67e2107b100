package stream

import (
	"context"
	"fmt"
	"reflect"
)

// Bridge is implemented by every *Stream[T]. It lets reflection-driven callers
// move between the typed form a unit declares and the erased *Stream[any]
// form the HTTP layer works with. ElementType and FromErased are safe on a nil
// receiver, so a zero value obtained with reflect.Zero is enough to use them.
type Bridge interface {
	ElementType() reflect.Type
	FromErased(src *Stream[any]) any
	Erase() *Stream[any]
}

var bridgeType = reflect.TypeFor[Bridge]()

// IsStream reports whether t is a *Stream[X] instantiation.
func IsStream(t reflect.Type) bool {
	return t != nil && t.Kind() == reflect.Pointer && t.Implements(bridgeType)
}

// ElementOf returns X for t = *Stream[X], or nil when t is not a stream type.
func ElementOf(t reflect.Type) reflect.Type {
	if !IsStream(t) {
		return nil
	}
	return reflect.Zero(t).Interface().(Bridge).ElementType()
}

// Typed converts src into a value of stream type t (a *Stream[X]) wrapped in a
// reflect.Value, ready to be passed to reflect.Value.Call.
func Typed(t reflect.Type, src *Stream[any]) (reflect.Value, error) {
	if !IsStream(t) {
		return reflect.Value{}, fmt.Errorf("stream: %v is not a stream type", t)
	}
	return reflect.ValueOf(reflect.Zero(t).Interface().(Bridge).FromErased(src)), nil
}

// Erased converts a *Stream[X] held in v into *Stream[any]. A nil stream
// becomes Empty.
func Erased(v reflect.Value) (*Stream[any], error) {
	if !v.IsValid() {
		return Empty[any](), nil
	}
	b, ok := v.Interface().(Bridge)
	if !ok {
		return nil, fmt.Errorf("stream: %v is not a stream", v.Type())
	}
	return b.Erase(), nil
}

func (*Stream[T]) ElementType() reflect.Type { return reflect.TypeFor[T]() }

func (*Stream[T]) FromErased(src *Stream[any]) any {
	return New[T](func(ctx context.Context, emit Emit[T]) error {
		return src.Subscribe(ctx, func(v any) error {
			t, err := assign[T](v)
			if err != nil {
				return err
			}
			return emit(t)
		})
	})
}

func (s *Stream[T]) Erase() *Stream[any] {
	if s == nil {
		return Empty[any]()
	}
	return New[any](func(ctx context.Context, emit Emit[any]) error {
		return s.Subscribe(ctx, func(v T) error { return emit(v) })
	})
}

func assign[T any](v any) (T, error) {
	if t, ok := v.(T); ok {
		return t, nil
	}
	var zero T
	if v == nil {
		return zero, nil
	}
	want := reflect.TypeFor[T]()
	rv := reflect.ValueOf(v)
	if rv.Kind() == want.Kind() && rv.Type().ConvertibleTo(want) {
		return rv.Convert(want).Interface().(T), nil
	}
	return zero, fmt.Errorf("stream: element of type %T is not assignable to %v", v, want)
}
