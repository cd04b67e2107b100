// Package convert coerces single path values into a unit's input type.
package convert

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"

	"github.com/joeydtaylor/steeze-function/pkg/codec"
)

// Converter turns the string form of a value into target.
type Converter interface {
	Convert(input string, target reflect.Type) (any, error)
}

// CoercionError reports an input that cannot be represented as Target.
type CoercionError struct {
	Input  string
	Target reflect.Type
	Err    error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("convert: cannot coerce %q to %v: %v", e.Input, e.Target, e.Err)
}

func (e *CoercionError) Unwrap() error { return e.Err }

// Default handles scalar kinds with strconv, types implementing
// encoding.TextUnmarshaler, and falls back to decoding the input as JSON for
// structs, maps and slices.
type Default struct {
	Codec codec.Codec
}

var textUnmarshaler = reflect.TypeFor[encoding.TextUnmarshaler]()

func (d Default) Convert(input string, target reflect.Type) (any, error) {
	if target == nil || target.Kind() == reflect.Interface && target.NumMethod() == 0 {
		return input, nil
	}
	v, err := d.convert(input, target)
	if err != nil {
		return nil, &CoercionError{Input: input, Target: target, Err: err}
	}
	return v.Interface(), nil
}

func (d Default) convert(input string, target reflect.Type) (reflect.Value, error) {
	ptr := reflect.New(target)
	if reflect.PointerTo(target).Implements(textUnmarshaler) {
		err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(input))
		return ptr.Elem(), err
	}

	v := ptr.Elem()
	switch target.Kind() {
	case reflect.String:
		v.SetString(input)
	case reflect.Bool:
		b, err := strconv.ParseBool(input)
		if err != nil {
			return v, err
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(input, 10, target.Bits())
		if err != nil {
			return v, err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(input, 10, target.Bits())
		if err != nil {
			return v, err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(input, target.Bits())
		if err != nil {
			return v, err
		}
		v.SetFloat(f)
	case reflect.Pointer:
		inner, err := d.convert(input, target.Elem())
		if err != nil {
			return v, err
		}
		p := reflect.New(target.Elem())
		p.Elem().Set(inner)
		v.Set(p)
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array:
		c := d.Codec
		if c == nil {
			c = codec.JSON
		}
		if err := c.Unmarshal([]byte(input), ptr.Interface()); err != nil {
			return v, err
		}
	default:
		return v, fmt.Errorf("unsupported kind %s", target.Kind())
	}
	return v, nil
}
