package core

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeydtaylor/steeze-function/pkg/metadata"
	"github.com/joeydtaylor/steeze-function/pkg/registry"
	"github.com/joeydtaylor/steeze-function/pkg/stream"
)

type point struct{ X, Y int }

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	require.NoError(t, r.Register("upper", strings.ToUpper))
	require.NoError(t, r.Register("words", func() []string { return []string{"a", "b"} }))
	require.NoError(t, r.Register("sink", func(context.Context, point) error { return nil }))
	require.NoError(t, registry.FluxFunction(r, "double", func(_ context.Context, in *stream.Stream[int]) *stream.Stream[int] {
		return stream.Map(in, func(_ context.Context, v int) (int, error) { return v * 2, nil })
	}))
	require.NoError(t, r.Register("ticks", func(context.Context) *stream.Stream[int] { return stream.Just(1, 2, 3) }))
	return r
}

func TestFindTypeConvention(t *testing.T) {
	in := NewIntrospector(newRegistry(t))

	typ, err := in.FindType("upper", 0)
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeFor[string](), typ)

	// one declared argument serves every index
	typ, err = in.FindType("words", 0)
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeFor[[]string](), typ)
	typ, err = in.FindType("words", 7)
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeFor[[]string](), typ)

	typ, err = in.FindType("ticks", 1)
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeFor[int](), typ)

	typ, err = in.FindInputType("words")
	require.NoError(t, err)
	assert.Nil(t, typ)

	typ, err = in.FindOutputType("sink")
	require.NoError(t, err)
	assert.Nil(t, typ)

	typ, err = in.FindInputType("sink")
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeFor[point](), typ)

	typ, err = in.FindOutputType("double")
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeFor[int](), typ)
}

func TestFindTypeFailures(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Register("nested", func(*stream.Stream[*stream.Stream[int]]) *stream.Stream[int] { return nil }))
	require.NoError(t, r.Register("undeclared", func(any) any { return nil },
		registry.WithMetadata(metadata.Declared{Shape: metadata.ShapeFunction})))
	require.NoError(t, r.Register("unknown", func(any) any { return nil },
		registry.WithMetadata(metadata.Declared{Shape: metadata.ShapeFunction, Input: "nope", Output: "nope"})))
	in := NewIntrospector(r)

	var ie *IntrospectionError

	_, err := in.FindType("nested", 0)
	require.ErrorAs(t, err, &ie)
	assert.ErrorIs(t, err, ErrUnresolvedType)

	_, err = in.FindType("undeclared", 0)
	require.ErrorAs(t, err, &ie)
	assert.ErrorIs(t, err, metadata.ErrNotParameterized)

	_, err = in.FindType("unknown", 1)
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "unknown", ie.Name)
	assert.Equal(t, 1, ie.Index)
	assert.ErrorIs(t, err, metadata.ErrTypeNotFound)

	_, err = in.FindType("missing", 0)
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestIsNative(t *testing.T) {
	in := NewIntrospector(newRegistry(t))
	for name, want := range map[string]bool{
		"upper":  false,
		"words":  false,
		"sink":   false,
		"double": true,
		"ticks":  true,
	} {
		got, err := in.IsNative(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestHandlerIsMemoized(t *testing.T) {
	p := NewProcessor(newRegistry(t))
	h1, err := p.Handler("upper")
	require.NoError(t, err)
	h2, err := p.Handler("/upper")
	require.NoError(t, err)
	assert.Same(t, h1, h2)
	assert.IsType(t, &FunctionAdapter{}, h1)
}

func TestAdaptersPreserveOrder(t *testing.T) {
	p := NewProcessor(newRegistry(t))
	ctx := context.Background()

	fn, err := p.Function("upper")
	require.NoError(t, err)
	got, err := fn.Apply(ctx, stream.Just[any]("a", "b", "c")).Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{"A", "B", "C"}, got)

	sup, err := p.Supplier("words")
	require.NoError(t, err)
	got, err = sup.Get(ctx).Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{[]string{"a", "b"}}, got)

	dbl, err := p.Function("double")
	require.NoError(t, err)
	got, err = dbl.Apply(ctx, stream.Just[any](1, 2)).Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{2, 4}, got)

	ticks, err := p.Supplier("ticks")
	require.NoError(t, err)
	got, err = ticks.Get(ctx).Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2, 3}, got)
}

func TestConsumerAdapter(t *testing.T) {
	r := registry.New()
	var seen []point
	require.NoError(t, r.Register("sink", func(p point) { seen = append(seen, p) }))
	p := NewProcessor(r)

	c, err := p.Consumer("sink")
	require.NoError(t, err)
	require.NoError(t, c.Accept(context.Background(), stream.Just[any](point{1, 2}, point{3, 4})))
	assert.Equal(t, []point{{1, 2}, {3, 4}}, seen)

	err = c.Accept(context.Background(), stream.Just[any]("wrong"))
	assert.ErrorIs(t, err, ErrArgumentType)
}

func TestUnitFailures(t *testing.T) {
	boom := errors.New("boom")
	r := registry.New()
	require.NoError(t, r.Register("fails", func(string) (string, error) { return "", boom }))
	require.NoError(t, r.Register("panics", func(string) string { panic("bad input") }))
	p := NewProcessor(r)
	ctx := context.Background()

	var ue *UnitError

	fn, err := p.Function("fails")
	require.NoError(t, err)
	_, err = fn.Apply(ctx, stream.Just[any]("x")).Collect(ctx)
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "fails", ue.Name)
	assert.ErrorIs(t, err, boom)

	fn, err = p.Function("panics")
	require.NoError(t, err)
	_, err = fn.Apply(ctx, stream.Just[any]("x")).Collect(ctx)
	require.ErrorAs(t, err, &ue)
	assert.Contains(t, ue.Error(), "bad input")
}

func TestWarmReportsMixedSignatures(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Register("ok", strings.ToUpper))
	require.NoError(t, r.Register("mixed", func(*stream.Stream[int]) int { return 0 }))
	p := NewProcessor(r)

	err := p.Warm()
	assert.ErrorIs(t, err, ErrMixedSignature)

	_, err = p.Function("ok")
	assert.NoError(t, err)
}
