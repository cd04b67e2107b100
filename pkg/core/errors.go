package core

import (
	"errors"
	"fmt"
)

var (
	ErrUnresolvedType = errors.New("core: element type is not concrete")
	ErrMixedSignature = errors.New("core: unit mixes stream and plain arguments")
	ErrArgumentType   = errors.New("core: element not assignable to unit argument")
)

// IntrospectionError reports a unit whose element types cannot be resolved.
// Publication of that unit is aborted; other units proceed.
type IntrospectionError struct {
	Name  string
	Index int
	Err   error
}

func (e *IntrospectionError) Error() string {
	return fmt.Sprintf("core: cannot introspect %q (type argument %d): %v", e.Name, e.Index, e.Err)
}

func (e *IntrospectionError) Unwrap() error { return e.Err }

// UnitError wraps a failure raised by a user unit, including recovered panics.
type UnitError struct {
	Name string
	Err  error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("core: unit %q failed: %v", e.Name, e.Err)
}

func (e *UnitError) Unwrap() error { return e.Err }
