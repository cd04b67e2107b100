package core

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/joeydtaylor/steeze-function/pkg/metadata"
	"github.com/joeydtaylor/steeze-function/pkg/registry"
	"github.com/joeydtaylor/steeze-function/pkg/stream"
)

type typeKey struct {
	name  string
	index int
}

// Introspector resolves the element types of registered units from their
// registration metadata. Results are cached per unit and index.
type Introspector struct {
	reg *registry.Registry

	mu    sync.Mutex
	types map[typeKey]reflect.Type
}

func NewIntrospector(reg *registry.Registry) *Introspector {
	return &Introspector{reg: reg, types: map[typeKey]reflect.Type{}}
}

// FindType returns the concrete element type at index. An index beyond the
// declared type arguments resolves to the first one: suppliers and consumers
// declare a single generic that serves both roles.
func (in *Introspector) FindType(name string, index int) (reflect.Type, error) {
	canonical, ok := in.reg.Canonical(name)
	if !ok {
		return nil, &IntrospectionError{Name: name, Index: index, Err: registry.ErrNotFound}
	}
	key := typeKey{name: canonical, index: index}

	in.mu.Lock()
	defer in.mu.Unlock()
	if t, ok := in.types[key]; ok {
		return t, nil
	}

	md, err := in.reg.MetadataFor(canonical)
	if err != nil {
		return nil, &IntrospectionError{Name: canonical, Index: index, Err: err}
	}
	args, err := md.TypeArgs()
	if err != nil {
		return nil, &IntrospectionError{Name: canonical, Index: index, Err: err}
	}
	if len(args) == 0 {
		return nil, &IntrospectionError{Name: canonical, Index: index, Err: metadata.ErrNotParameterized}
	}

	ref := args[0]
	if index >= 0 && index < len(args) {
		ref = args[index]
	}
	t := reduce(ref)
	if t == nil || stream.IsStream(t) {
		return nil, &IntrospectionError{
			Name:  canonical,
			Index: index,
			Err:   fmt.Errorf("%w: %s", ErrUnresolvedType, ref),
		}
	}
	in.types[key] = t
	return t, nil
}

// reduce takes the first type argument of a parameterized reference and, if
// that is parameterized as well, its raw type.
func reduce(ref metadata.TypeRef) reflect.Type {
	if !ref.Parameterized() {
		return ref.Raw
	}
	return ref.Args[0].Raw
}

// FindInputType is nil for suppliers.
func (in *Introspector) FindInputType(name string) (reflect.Type, error) {
	e, ok := in.reg.Entry(name)
	if !ok {
		return nil, &IntrospectionError{Name: name, Err: registry.ErrNotFound}
	}
	if e.Shape == metadata.ShapeSupplier {
		return nil, nil
	}
	return in.FindType(e.Name, 0)
}

// FindOutputType is nil for consumers.
func (in *Introspector) FindOutputType(name string) (reflect.Type, error) {
	e, ok := in.reg.Entry(name)
	if !ok {
		return nil, &IntrospectionError{Name: name, Index: 1, Err: registry.ErrNotFound}
	}
	if e.Shape == metadata.ShapeConsumer {
		return nil, nil
	}
	return in.FindType(e.Name, 1)
}

// IsNative reports whether the unit already speaks streams. Signature metadata
// decides when it declares exactly as many type arguments as the shape needs;
// otherwise the unit's func type is probed.
func (in *Introspector) IsNative(name string) (bool, error) {
	e, ok := in.reg.Entry(name)
	if !ok {
		return false, fmt.Errorf("%w: %q", registry.ErrNotFound, name)
	}
	if sig, ok := e.Metadata.(metadata.Signature); ok {
		if args, err := sig.TypeArgs(); err == nil && len(args) == e.Shape.Arity() {
			for _, a := range args {
				if !a.IsStream() {
					return false, nil
				}
			}
			return true, nil
		}
	}
	unit, _ := in.reg.Get(e.Name)
	return probeNative(reflect.TypeOf(unit))
}

func probeNative(ft reflect.Type) (bool, error) {
	_, argIn, argOut, err := metadata.Analyze(ft)
	if err != nil {
		return false, err
	}
	for _, t := range []reflect.Type{argIn, argOut} {
		if t != nil && !stream.IsStream(t) {
			return false, nil
		}
	}
	return true, nil
}
