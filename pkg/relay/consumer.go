// Package relay forwards stream elements to an electrician receiver.
package relay

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/joeydtaylor/electrician/pkg/builder"

	"github.com/joeydtaylor/steeze-function/pkg/stream"
)

// NewConsumer builds a Wire[T] feeding a ForwardRelay[T] and returns a native
// stream consumer that submits every element to it. Without targets the
// consumer drains its input and forwards nothing.
func NewConsumer[T any](ctx context.Context, cfg Config) (func(context.Context, *stream.Stream[T]) error, error) {
	if len(cfg.Targets) == 0 {
		return func(ctx context.Context, in *stream.Stream[T]) error {
			return in.Subscribe(ctx, func(T) error { return nil })
		}, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	logger := builder.NewLogger(builder.LoggerWithDevelopment(true))
	wire := builder.NewWire[T](ctx, builder.WireWithLogger[T](logger))

	perf := builder.NewPerformanceOptions(cfg.Snappy, builder.COMPRESS_SNAPPY)
	sec := builder.NewSecurityOptions(cfg.AESGCM, builder.ENCRYPTION_AES_GCM)
	tlsCfg := builder.NewTlsClientConfig(
		cfg.TLS, cfg.TLSCert, cfg.TLSKey, cfg.TLSCA,
		tls.VersionTLS13, tls.VersionTLS13,
	)

	relay := builder.NewForwardRelay[T](
		ctx,
		builder.ForwardRelayWithLogger[T](logger),
		builder.ForwardRelayWithTarget[T](cfg.Targets...),
		builder.ForwardRelayWithPerformanceOptions[T](perf),
		builder.ForwardRelayWithSecurityOptions[T](sec, string(cfg.AESKey)),
		builder.ForwardRelayWithTLSConfig[T](tlsCfg),
		builder.ForwardRelayWithStaticHeaders[T](cfg.StaticHeaders),
		builder.ForwardRelayWithInput(wire),
	)

	if err := wire.Start(ctx); err != nil {
		return nil, fmt.Errorf("relay: wire start: %w", err)
	}
	if err := relay.Start(ctx); err != nil {
		return nil, fmt.Errorf("relay: start: %w", err)
	}

	return func(ctx context.Context, in *stream.Stream[T]) error {
		return in.Subscribe(ctx, func(v T) error {
			return wire.Submit(ctx, v)
		})
	}, nil
}
