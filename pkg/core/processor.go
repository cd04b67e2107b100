package core

import (
	"errors"
	"fmt"
	"sync"

	"github.com/joeydtaylor/steeze-function/pkg/metadata"
	"github.com/joeydtaylor/steeze-function/pkg/registry"
	"github.com/joeydtaylor/steeze-function/pkg/stream"
)

// Processor turns registered units into their stream form. The wrapped form
// of a unit is built once and reused for the life of the process.
type Processor struct {
	reg   *registry.Registry
	types *Introspector

	mu       sync.RWMutex
	handlers map[string]any
}

func NewProcessor(reg *registry.Registry) *Processor {
	return &Processor{
		reg:      reg,
		types:    NewIntrospector(reg),
		handlers: map[string]any{},
	}
}

func (p *Processor) Registry() *registry.Registry { return p.reg }

func (p *Processor) Introspector() *Introspector { return p.types }

// Handler returns the stream form of name: a FluxSupplier, FluxFunction or
// FluxConsumer depending on the unit's shape.
func (p *Processor) Handler(name string) (any, error) {
	canonical, ok := p.reg.Canonical(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", registry.ErrNotFound, name)
	}

	p.mu.RLock()
	h, ok := p.handlers[canonical]
	p.mu.RUnlock()
	if ok {
		return h, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.handlers[canonical]; ok {
		return h, nil
	}
	h, err := p.build(canonical)
	if err != nil {
		return nil, err
	}
	p.handlers[canonical] = h
	return h, nil
}

func (p *Processor) Supplier(name string) (FluxSupplier, error) {
	h, err := p.Handler(name)
	if err != nil {
		return nil, err
	}
	s, ok := h.(FluxSupplier)
	if !ok {
		return nil, fmt.Errorf("core: %q is not a supplier", name)
	}
	return s, nil
}

func (p *Processor) Function(name string) (FluxFunction, error) {
	h, err := p.Handler(name)
	if err != nil {
		return nil, err
	}
	f, ok := h.(FluxFunction)
	if !ok {
		return nil, fmt.Errorf("core: %q is not a function", name)
	}
	return f, nil
}

func (p *Processor) Consumer(name string) (FluxConsumer, error) {
	h, err := p.Handler(name)
	if err != nil {
		return nil, err
	}
	c, ok := h.(FluxConsumer)
	if !ok {
		return nil, fmt.Errorf("core: %q is not a consumer", name)
	}
	return c, nil
}

// Warm wraps every registered unit up front. Failures are joined; units that
// wrap cleanly stay usable.
func (p *Processor) Warm() error {
	var errs []error
	for _, e := range p.reg.Units() {
		if _, err := p.Handler(e.Name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Processor) build(name string) (any, error) {
	unit, ok := p.reg.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", registry.ErrNotFound, name)
	}
	iv, err := newInvoker(name, unit)
	if err != nil {
		return nil, err
	}
	native, err := p.types.IsNative(name)
	if err != nil {
		return nil, err
	}
	if !native && (stream.IsStream(iv.in) || stream.IsStream(iv.out)) {
		return nil, fmt.Errorf("%w: %q", ErrMixedSignature, name)
	}

	switch iv.shape {
	case metadata.ShapeSupplier:
		if native {
			return &nativeSupplier{iv: iv}, nil
		}
		return &SupplierAdapter{iv: iv}, nil
	case metadata.ShapeFunction:
		if native {
			return &nativeFunction{iv: iv}, nil
		}
		return &FunctionAdapter{iv: iv}, nil
	case metadata.ShapeConsumer:
		if native {
			return &nativeConsumer{iv: iv}, nil
		}
		return &ConsumerAdapter{iv: iv}, nil
	}
	return nil, fmt.Errorf("%w: %q", metadata.ErrUnsupportedShape, name)
}
