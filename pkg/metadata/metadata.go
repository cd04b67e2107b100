// Package metadata describes what is known about a registered unit's generic
// signature. Three sources exist: the unit's func signature (Signature), type
// names declared in a manifest (Declared), and a tree resolved at compile time
// through generic registration helpers (Tree). All of them reduce to an
// ordered list of TypeRef via Source.TypeArgs.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/joeydtaylor/steeze-function/pkg/stream"
)

var (
	ErrNotAFunc         = errors.New("metadata: unit is not a func")
	ErrUnsupportedShape = errors.New("metadata: unsupported func shape")
	ErrNotParameterized = errors.New("metadata: declaration is not parameterized")
	ErrTypeNotFound     = errors.New("metadata: type cannot be loaded")
)

// Shape is the calling shape of a unit.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeSupplier
	ShapeFunction
	ShapeConsumer
)

func (s Shape) String() string {
	switch s {
	case ShapeSupplier:
		return "supplier"
	case ShapeFunction:
		return "function"
	case ShapeConsumer:
		return "consumer"
	default:
		return "unknown"
	}
}

// ParseShape accepts the lower-case names produced by String.
func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "supplier":
		return ShapeSupplier, nil
	case "function":
		return ShapeFunction, nil
	case "consumer":
		return ShapeConsumer, nil
	}
	return ShapeUnknown, fmt.Errorf("%w: %q", ErrUnsupportedShape, s)
}

// Arity is the number of top-level type arguments a unit of this shape declares.
func (s Shape) Arity() int {
	if s == ShapeFunction {
		return 2
	}
	return 1
}

// TypeRef is a possibly parameterized type. Raw is the type itself; Args holds
// its type arguments. For *stream.Stream[X], Args is [X].
type TypeRef struct {
	Raw  reflect.Type
	Args []TypeRef
}

// Parameterized reports whether the reference carries type arguments.
func (r TypeRef) Parameterized() bool { return len(r.Args) > 0 }

// IsStream reports whether Raw is the stream wrapper.
func (r TypeRef) IsStream() bool { return stream.IsStream(r.Raw) }

func (r TypeRef) String() string {
	if r.Raw == nil {
		return "<nil>"
	}
	if !r.Parameterized() {
		return r.Raw.String()
	}
	args := make([]string, len(r.Args))
	for i, a := range r.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s[%s]", r.Raw, strings.Join(args, ","))
}

// RefOf builds a TypeRef for t, expanding stream wrappers into their element.
func RefOf(t reflect.Type) TypeRef {
	if elem := stream.ElementOf(t); elem != nil {
		return TypeRef{Raw: t, Args: []TypeRef{RefOf(elem)}}
	}
	return TypeRef{Raw: t}
}

// Of is RefOf for a static type.
func Of[T any]() TypeRef { return RefOf(reflect.TypeFor[T]()) }

// StreamOf is the reference for *stream.Stream[T].
func StreamOf[T any]() TypeRef { return RefOf(reflect.TypeFor[*stream.Stream[T]]()) }

// Source is the registration metadata of a unit.
type Source interface {
	TypeArgs() ([]TypeRef, error)
}

var (
	ctxType = reflect.TypeFor[context.Context]()
	errType = reflect.TypeFor[error]()
)

// Analyze classifies a func type. A leading context.Context parameter and a
// trailing error result are allowed and ignored. in and out are nil when the
// shape has no input or output.
func Analyze(ft reflect.Type) (shape Shape, in, out reflect.Type, err error) {
	if ft == nil || ft.Kind() != reflect.Func {
		return ShapeUnknown, nil, nil, ErrNotAFunc
	}
	if ft.IsVariadic() {
		return ShapeUnknown, nil, nil, fmt.Errorf("%w: variadic %v", ErrUnsupportedShape, ft)
	}
	var params, results []reflect.Type
	for i := 0; i < ft.NumIn(); i++ {
		params = append(params, ft.In(i))
	}
	for i := 0; i < ft.NumOut(); i++ {
		results = append(results, ft.Out(i))
	}
	if len(params) > 0 && params[0] == ctxType {
		params = params[1:]
	}
	if n := len(results); n > 0 && results[n-1] == errType {
		results = results[:n-1]
	}

	switch {
	case len(params) == 0 && len(results) == 1:
		return ShapeSupplier, nil, results[0], nil
	case len(params) == 1 && len(results) == 1:
		return ShapeFunction, params[0], results[0], nil
	case len(params) == 1 && len(results) == 0:
		return ShapeConsumer, params[0], nil, nil
	}
	return ShapeUnknown, nil, nil, fmt.Errorf("%w: %v", ErrUnsupportedShape, ft)
}

// Signature is metadata read from the unit's func type. Its type arguments
// are the declared input (if any) followed by the declared output (if any).
type Signature struct {
	Func reflect.Type
}

func (s Signature) TypeArgs() ([]TypeRef, error) {
	_, in, out, err := Analyze(s.Func)
	if err != nil {
		return nil, err
	}
	var args []TypeRef
	if in != nil {
		args = append(args, RefOf(in))
	}
	if out != nil {
		args = append(args, RefOf(out))
	}
	return args, nil
}

// Declared is metadata read from a manifest: the unit's element types are
// given by name and resolved through a Catalog.
type Declared struct {
	Shape   Shape
	Input   string
	Output  string
	Catalog *Catalog
}

func (d Declared) TypeArgs() ([]TypeRef, error) {
	var names []string
	if d.Shape != ShapeSupplier && strings.TrimSpace(d.Input) != "" {
		names = append(names, d.Input)
	}
	if d.Shape != ShapeConsumer && strings.TrimSpace(d.Output) != "" {
		names = append(names, d.Output)
	}
	if len(names) == 0 {
		return nil, ErrNotParameterized
	}
	cat := d.Catalog
	if cat == nil {
		cat = Types
	}
	args := make([]TypeRef, 0, len(names))
	for _, n := range names {
		t, ok := cat.Lookup(n)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrTypeNotFound, n)
		}
		args = append(args, RefOf(t))
	}
	return args, nil
}

// Tree is a pre-resolved generic tree. For every top-level generic the type
// argument used is its first nested argument, or the generic itself when it
// has none.
type Tree struct {
	Generics []TypeRef
}

// TreeOf builds a Tree from top-level generics.
func TreeOf(generics ...TypeRef) Tree { return Tree{Generics: generics} }

func (t Tree) TypeArgs() ([]TypeRef, error) {
	if len(t.Generics) == 0 {
		return nil, ErrNotParameterized
	}
	out := make([]TypeRef, len(t.Generics))
	for i, g := range t.Generics {
		if g.Parameterized() {
			out[i] = g.Args[0]
		} else {
			out[i] = g
		}
	}
	return out, nil
}
