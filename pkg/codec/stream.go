package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
)

var (
	ErrTrailingContent = errors.New("json trailing content")
	ErrNotArray        = errors.New("request body must be a JSON array")
)

// CodecError reports a body that cannot be decoded into the expected
// element type. The HTTP layer answers it with 400.
type CodecError struct {
	Err error
}

func (e *CodecError) Error() string { return "codec: " + e.Err.Error() }

func (e *CodecError) Unwrap() error { return e.Err }

var anyType = reflect.TypeFor[any]()

// DecodeList reads a JSON array whose elements are decoded as elem. An empty
// body or a bare value is a CodecError. A nil elem decodes elements
// generically.
func DecodeList(r io.Reader, elem reflect.Type) ([]any, error) {
	return decodeList(JSON, r, elem)
}

func decodeList(c Codec, r io.Reader, elem reflect.Type) ([]any, error) {
	if elem == nil {
		elem = anyType
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &CodecError{Err: err}
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil, &CodecError{Err: ErrNotArray}
	}

	ptr := reflect.New(reflect.SliceOf(elem))
	if err := c.Unmarshal(data, ptr.Interface()); err != nil {
		return nil, &CodecError{Err: err}
	}
	list := ptr.Elem()
	out := make([]any, list.Len())
	for i := range out {
		out[i] = list.Index(i).Interface()
	}
	return out, nil
}

// ArrayEncoder writes a JSON array one element at a time, flushing after each
// write when the writer supports it. begin runs once, right before the first
// byte is written. An element that cannot be marshaled writes nothing.
type ArrayEncoder struct {
	w     io.Writer
	codec Codec
	begin func()
	n     int
	open  bool
}

func NewArrayEncoder(w io.Writer, begin func()) *ArrayEncoder {
	return &ArrayEncoder{w: w, codec: JSON, begin: begin}
}

// Count is the number of elements written so far.
func (e *ArrayEncoder) Count() int { return e.n }

// Started reports whether any byte has reached the writer.
func (e *ArrayEncoder) Started() bool { return e.open }

func (e *ArrayEncoder) Encode(v any) error {
	b, err := e.codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("codec: encode element %d: %w", e.n, err)
	}
	sep := []byte{','}
	if !e.open {
		e.start()
		sep = []byte{'['}
	}
	if _, err := e.w.Write(append(sep, b...)); err != nil {
		return err
	}
	e.n++
	e.flush()
	return nil
}

// Close terminates the array. An encoder that never saw an element writes [].
func (e *ArrayEncoder) Close() error {
	if !e.open {
		e.start()
		if _, err := e.w.Write([]byte{'['}); err != nil {
			return err
		}
	}
	if _, err := e.w.Write([]byte{']'}); err != nil {
		return err
	}
	e.flush()
	return nil
}

func (e *ArrayEncoder) start() {
	e.open = true
	if e.begin != nil {
		e.begin()
	}
}

func (e *ArrayEncoder) flush() {
	if f, ok := e.w.(http.Flusher); ok {
		f.Flush()
	}
}
