package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/bytedance/sonic"
)

type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	ContentType() string
}

type jsonCodec struct {
	api sonic.API
}

// JSON follows encoding/json semantics: unknown object fields are ignored and
// a document followed by anything but whitespace is rejected.
var JSON Codec = jsonCodec{api: sonic.ConfigStd}

func (c jsonCodec) Marshal(v any) ([]byte, error) {
	return c.api.Marshal(v)
}

func (c jsonCodec) Unmarshal(data []byte, v any) error {
	dec := c.api.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("json decode: %w", err)
	}
	// must be EOF
	var extra any
	if err := dec.Decode(&extra); err != io.EOF {
		return ErrTrailingContent
	}
	return nil
}

func (jsonCodec) ContentType() string { return "application/json" }
