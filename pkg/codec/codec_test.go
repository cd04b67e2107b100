package codec

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestUnmarshal(t *testing.T) {
	var p payload
	if err := JSON.Unmarshal([]byte(`{"id":7,"name":"x"}`), &p); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if p != (payload{ID: 7, Name: "x"}) {
		t.Fatalf("unexpected payload %#v", p)
	}

	p = payload{}
	require.NoError(t, JSON.Unmarshal([]byte(`{"id":3,"extra":1}`), &p))
	assert.Equal(t, payload{ID: 3}, p)

	err := JSON.Unmarshal([]byte(`{"id":7} {"id":8}`), &p)
	assert.ErrorIs(t, err, ErrTrailingContent)
	assert.Equal(t, "application/json", JSON.ContentType())
}

func TestDecodeList(t *testing.T) {
	got, err := DecodeList(strings.NewReader(`["a","b"]`), reflect.TypeFor[string]())
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, got)

	got, err = DecodeList(strings.NewReader(`[{"id":1,"name":"p"}]`), reflect.TypeFor[payload]())
	require.NoError(t, err)
	assert.Equal(t, []any{payload{ID: 1, Name: "p"}}, got)

	got, err = DecodeList(strings.NewReader(`[{"id":2,"name":"q","extra":true}]`), reflect.TypeFor[payload]())
	require.NoError(t, err)
	assert.Equal(t, []any{payload{ID: 2, Name: "q"}}, got)

	got, err = DecodeList(strings.NewReader(" [] "), reflect.TypeFor[int]())
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = DecodeList(strings.NewReader(`[1,"x"]`), nil)
	require.NoError(t, err)
	assert.Equal(t, []any{float64(1), "x"}, got)
}

func TestDecodeListErrors(t *testing.T) {
	var ce *CodecError
	for _, body := range []string{`not json`, `["a"`, `["a"] ["b"]`} {
		_, err := DecodeList(strings.NewReader(body), reflect.TypeFor[string]())
		assert.ErrorAs(t, err, &ce, body)
	}

	_, err := DecodeList(strings.NewReader(`["a"]`), reflect.TypeFor[int]())
	assert.ErrorAs(t, err, &ce)

	for _, body := range []string{``, `  `, `42`, `"a"`, `{"id":1}`} {
		_, err := DecodeList(strings.NewReader(body), reflect.TypeFor[string]())
		assert.ErrorIs(t, err, ErrNotArray, "%q", body)
		assert.ErrorAs(t, err, &ce, "%q", body)
	}
}

func TestArrayEncoder(t *testing.T) {
	rec := httptest.NewRecorder()
	began := 0
	enc := NewArrayEncoder(rec, func() { began++ })
	require.NoError(t, enc.Encode("A"))
	require.NoError(t, enc.Encode(payload{ID: 2}))
	require.NoError(t, enc.Close())

	assert.Equal(t, 1, began)
	assert.Equal(t, 2, enc.Count())
	assert.True(t, rec.Flushed)
	assert.JSONEq(t, `["A",{"id":2,"name":""}]`, rec.Body.String())
}

func TestArrayEncoderEmptyAndFailure(t *testing.T) {
	buf := &bytes.Buffer{}
	enc := NewArrayEncoder(buf, nil)
	require.NoError(t, enc.Close())
	assert.Equal(t, "[]", buf.String())

	buf.Reset()
	enc = NewArrayEncoder(buf, nil)
	err := enc.Encode(func() {})
	require.Error(t, err)
	var ce *CodecError
	assert.False(t, errors.As(err, &ce))
	assert.False(t, enc.Started())
	assert.Zero(t, buf.Len())
}
