package stream

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSliceIsReplayable(t *testing.T) {
	s := Just(1, 2, 3)

	first, err := s.Collect(context.Background())
	require.NoError(t, err)
	second, err := s.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, first)
	assert.Equal(t, first, second)
}

func TestNewIsSingleSubscriber(t *testing.T) {
	calls := 0
	s := New[string](func(ctx context.Context, emit Emit[string]) error {
		calls++
		return emit("x")
	})

	got, err := s.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, got)

	_, err = s.Collect(context.Background())
	assert.ErrorIs(t, err, ErrSubscribed)
	assert.Equal(t, 1, calls)
}

func TestCompletionDistinctFromError(t *testing.T) {
	boom := errors.New("boom")
	s := New[int](func(ctx context.Context, emit Emit[int]) error {
		if err := emit(1); err != nil {
			return err
		}
		return boom
	})

	got, err := s.Collect(context.Background())
	assert.Equal(t, []int{1}, got)
	assert.ErrorIs(t, err, boom)

	got, err = Empty[int]().Collect(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestSubscribeCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	produced := 0
	s := New[int](func(ctx context.Context, emit Emit[int]) error {
		for i := 0; ; i++ {
			if err := emit(i); err != nil {
				return err
			}
			produced++
		}
	})

	err := s.Subscribe(ctx, func(v int) error {
		if v == 2 {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, produced)
}

func TestMapStopsAtFirstError(t *testing.T) {
	bad := errors.New("bad element")
	out := Map(Just("1", "2", "x", "4"), func(_ context.Context, s string) (int, error) {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, bad
		}
		return n * 10, nil
	})

	got, err := out.Collect(context.Background())
	assert.Equal(t, []int{10, 20}, got)
	assert.ErrorIs(t, err, bad)
}

func TestFirstCancelsRemainder(t *testing.T) {
	emitted := 0
	s := New[int](func(ctx context.Context, emit Emit[int]) error {
		for i := 1; i <= 5; i++ {
			if err := emit(i); err != nil {
				return err
			}
			emitted++
		}
		return nil
	})

	v, ok, err := First(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 0, emitted)

	_, ok, err = First(context.Background(), Empty[int]())
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestBridge(t *testing.T) {
	typ := reflect.TypeFor[*Stream[string]]()
	assert.True(t, IsStream(typ))
	assert.False(t, IsStream(reflect.TypeFor[string]()))
	assert.Equal(t, reflect.TypeFor[string](), ElementOf(typ))
	assert.Nil(t, ElementOf(reflect.TypeFor[[]string]()))

	v, err := Typed(typ, Just[any]("a", "b"))
	require.NoError(t, err)
	typed, ok := v.Interface().(*Stream[string])
	require.True(t, ok)

	got, err := typed.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	erased, err := Erased(reflect.ValueOf(Just(1, 2)))
	require.NoError(t, err)
	back, err := erased.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2}, back)
}

func TestBridgeRejectsMismatchedElements(t *testing.T) {
	v, err := Typed(reflect.TypeFor[*Stream[int]](), Just[any]("nope"))
	require.NoError(t, err)
	_, err = v.Interface().(*Stream[int]).Collect(context.Background())
	assert.Error(t, err)
}
