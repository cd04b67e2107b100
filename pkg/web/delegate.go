// Package web publishes registered units as HTTP endpoints: it picks a
// delegate per unit shape, synthesizes the routes for every unit name and
// dispatches requests through the JSON stream codec.
package web

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/joeydtaylor/steeze-function/pkg/convert"
	"github.com/joeydtaylor/steeze-function/pkg/core"
	"github.com/joeydtaylor/steeze-function/pkg/metadata"
	"github.com/joeydtaylor/steeze-function/pkg/registry"
	"github.com/joeydtaylor/steeze-function/pkg/stream"
)

// Delegate is the HTTP-facing side of one unit. Kind selects which of
// Supply, Apply or Accept applies. The wrapped unit is looked up on first use
// and cached.
type Delegate struct {
	Kind metadata.Shape
	Name string

	reg  *registry.Registry
	proc *core.Processor
	conv convert.Converter

	once    sync.Once
	handler any
	err     error
}

// NewDelegate builds the delegate for name. Units of unknown shape are
// rejected.
func NewDelegate(reg *registry.Registry, proc *core.Processor, conv convert.Converter, name string) (*Delegate, error) {
	e, ok := reg.Entry(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", registry.ErrNotFound, name)
	}
	switch e.Shape {
	case metadata.ShapeSupplier, metadata.ShapeFunction, metadata.ShapeConsumer:
	default:
		return nil, fmt.Errorf("%w: %q", metadata.ErrUnsupportedShape, name)
	}
	if conv == nil {
		conv = convert.Default{}
	}
	return &Delegate{Kind: e.Shape, Name: e.Name, reg: reg, proc: proc, conv: conv}, nil
}

// Names is the canonical name followed by the aliases.
func (d *Delegate) Names() []string {
	return append([]string{d.Name}, d.reg.Aliases(d.Name)...)
}

// InputType is nil for suppliers.
func (d *Delegate) InputType() (reflect.Type, error) {
	return d.proc.Introspector().FindInputType(d.Name)
}

// OutputType is nil for consumers.
func (d *Delegate) OutputType() (reflect.Type, error) {
	return d.proc.Introspector().FindOutputType(d.Name)
}

// Convert coerces a single path value into the input type.
func (d *Delegate) Convert(input string) (any, error) {
	t, err := d.InputType()
	if err != nil {
		return nil, err
	}
	return d.conv.Convert(input, t)
}

func (d *Delegate) wrapped() (any, error) {
	d.once.Do(func() {
		d.handler, d.err = d.proc.Handler(d.Name)
	})
	return d.handler, d.err
}

func (d *Delegate) Supply(ctx context.Context) (*stream.Stream[any], error) {
	h, err := d.wrapped()
	if err != nil {
		return nil, err
	}
	s, ok := h.(core.FluxSupplier)
	if !ok {
		return nil, fmt.Errorf("web: %q is a %s", d.Name, d.Kind)
	}
	return s.Get(ctx), nil
}

func (d *Delegate) Apply(ctx context.Context, in *stream.Stream[any]) (*stream.Stream[any], error) {
	h, err := d.wrapped()
	if err != nil {
		return nil, err
	}
	f, ok := h.(core.FluxFunction)
	if !ok {
		return nil, fmt.Errorf("web: %q is a %s", d.Name, d.Kind)
	}
	return f.Apply(ctx, in), nil
}

func (d *Delegate) Accept(ctx context.Context, in *stream.Stream[any]) error {
	h, err := d.wrapped()
	if err != nil {
		return err
	}
	c, ok := h.(core.FluxConsumer)
	if !ok {
		return fmt.Errorf("web: %q is a %s", d.Name, d.Kind)
	}
	return c.Accept(ctx, in)
}
