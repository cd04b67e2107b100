package registry

import (
	"context"

	"github.com/joeydtaylor/steeze-function/pkg/metadata"
	"github.com/joeydtaylor/steeze-function/pkg/stream"
)

// The helpers below register a unit together with a pre-resolved type tree,
// so introspection does not depend on reading the func signature.

func Supplier[O any](r *Registry, name string, fn func(context.Context) (O, error), opts ...Option) error {
	return r.Register(name, fn, prepend(metadata.TreeOf(metadata.Of[O]()), opts)...)
}

func Function[I, O any](r *Registry, name string, fn func(context.Context, I) (O, error), opts ...Option) error {
	return r.Register(name, fn, prepend(metadata.TreeOf(metadata.Of[I](), metadata.Of[O]()), opts)...)
}

func Consumer[I any](r *Registry, name string, fn func(context.Context, I) error, opts ...Option) error {
	return r.Register(name, fn, prepend(metadata.TreeOf(metadata.Of[I]()), opts)...)
}

func FluxSupplier[O any](r *Registry, name string, fn func(context.Context) *stream.Stream[O], opts ...Option) error {
	return r.Register(name, fn, prepend(metadata.TreeOf(metadata.StreamOf[O]()), opts)...)
}

func FluxFunction[I, O any](r *Registry, name string, fn func(context.Context, *stream.Stream[I]) *stream.Stream[O], opts ...Option) error {
	return r.Register(name, fn, prepend(metadata.TreeOf(metadata.StreamOf[I](), metadata.StreamOf[O]()), opts)...)
}

func FluxConsumer[I any](r *Registry, name string, fn func(context.Context, *stream.Stream[I]) error, opts ...Option) error {
	return r.Register(name, fn, prepend(metadata.TreeOf(metadata.StreamOf[I]()), opts)...)
}

func prepend(tree metadata.Tree, opts []Option) []Option {
	return append([]Option{WithMetadata(tree)}, opts...)
}
