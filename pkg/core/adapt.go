package core

import (
	"context"
	"fmt"
	"reflect"

	"github.com/joeydtaylor/steeze-function/pkg/metadata"
	"github.com/joeydtaylor/steeze-function/pkg/stream"
)

// Stream forms of the three unit shapes. The HTTP layer only ever talks to
// these; plain units are adapted and native stream units are bridged.

type FluxSupplier interface {
	Get(ctx context.Context) *stream.Stream[any]
}

type FluxFunction interface {
	Apply(ctx context.Context, in *stream.Stream[any]) *stream.Stream[any]
}

type FluxConsumer interface {
	Accept(ctx context.Context, in *stream.Stream[any]) error
}

var ctxType = reflect.TypeFor[context.Context]()

// invoker calls a unit func through reflection. It knows whether the func
// takes a leading context and returns a trailing error.
type invoker struct {
	name    string
	fn      reflect.Value
	withCtx bool
	withErr bool
	shape   metadata.Shape
	in      reflect.Type
	out     reflect.Type
}

func newInvoker(name string, unit any) (*invoker, error) {
	ft := reflect.TypeOf(unit)
	shape, in, out, err := metadata.Analyze(ft)
	if err != nil {
		return nil, err
	}
	return &invoker{
		name:    name,
		fn:      reflect.ValueOf(unit),
		withCtx: ft.NumIn() > 0 && ft.In(0) == ctxType,
		withErr: ft.NumOut() > 0 && ft.Out(ft.NumOut()-1) == reflect.TypeFor[error](),
		shape:   shape,
		in:      in,
		out:     out,
	}, nil
}

// call runs the unit. arg is ignored for suppliers. Panics are recovered
// into a UnitError.
func (iv *invoker) call(ctx context.Context, arg reflect.Value) (res reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &UnitError{Name: iv.name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	args := make([]reflect.Value, 0, 2)
	if iv.withCtx {
		args = append(args, reflect.ValueOf(&ctx).Elem())
	}
	if iv.in != nil {
		args = append(args, arg)
	}
	outs := iv.fn.Call(args)
	if iv.withErr {
		if e := outs[len(outs)-1]; !e.IsNil() {
			return reflect.Value{}, &UnitError{Name: iv.name, Err: e.Interface().(error)}
		}
	}
	if iv.out != nil {
		res = outs[0]
	}
	return res, nil
}

// argFor turns an erased element into a value the unit accepts.
func (iv *invoker) argFor(v any) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(iv.in), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(iv.in) {
		return rv, nil
	}
	if rv.Kind() == iv.in.Kind() && rv.Type().ConvertibleTo(iv.in) {
		return rv.Convert(iv.in), nil
	}
	return reflect.Value{}, fmt.Errorf("%w: %T to %v", ErrArgumentType, v, iv.in)
}

func valueOf(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	return v.Interface()
}

// SupplierAdapter yields the single value of a plain supplier, invoking it
// once per subscription.
type SupplierAdapter struct{ iv *invoker }

func (a *SupplierAdapter) Get(context.Context) *stream.Stream[any] {
	return stream.New[any](func(ctx context.Context, emit stream.Emit[any]) error {
		res, err := a.iv.call(ctx, reflect.Value{})
		if err != nil {
			return err
		}
		return emit(valueOf(res))
	})
}

// FunctionAdapter maps each input element through a plain function, in order.
type FunctionAdapter struct{ iv *invoker }

func (a *FunctionAdapter) Apply(_ context.Context, in *stream.Stream[any]) *stream.Stream[any] {
	return stream.New[any](func(ctx context.Context, emit stream.Emit[any]) error {
		return in.Subscribe(ctx, func(v any) error {
			arg, err := a.iv.argFor(v)
			if err != nil {
				return err
			}
			res, err := a.iv.call(ctx, arg)
			if err != nil {
				return err
			}
			return emit(valueOf(res))
		})
	})
}

// ConsumerAdapter feeds each input element to a plain consumer and returns
// once the input completes.
type ConsumerAdapter struct{ iv *invoker }

func (a *ConsumerAdapter) Accept(ctx context.Context, in *stream.Stream[any]) error {
	return in.Subscribe(ctx, func(v any) error {
		arg, err := a.iv.argFor(v)
		if err != nil {
			return err
		}
		_, err = a.iv.call(ctx, arg)
		return err
	})
}

type nativeSupplier struct{ iv *invoker }

func (n *nativeSupplier) Get(ctx context.Context) *stream.Stream[any] {
	res, err := n.iv.call(ctx, reflect.Value{})
	if err != nil {
		return stream.Fail[any](err)
	}
	s, err := stream.Erased(res)
	if err != nil {
		return stream.Fail[any](err)
	}
	return s
}

type nativeFunction struct{ iv *invoker }

func (n *nativeFunction) Apply(ctx context.Context, in *stream.Stream[any]) *stream.Stream[any] {
	typed, err := stream.Typed(n.iv.in, in)
	if err != nil {
		return stream.Fail[any](err)
	}
	res, err := n.iv.call(ctx, typed)
	if err != nil {
		return stream.Fail[any](err)
	}
	s, err := stream.Erased(res)
	if err != nil {
		return stream.Fail[any](err)
	}
	return s
}

type nativeConsumer struct{ iv *invoker }

func (n *nativeConsumer) Accept(ctx context.Context, in *stream.Stream[any]) error {
	typed, err := stream.Typed(n.iv.in, in)
	if err != nil {
		return err
	}
	_, err = n.iv.call(ctx, typed)
	return err
}
