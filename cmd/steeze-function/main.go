package main

import (
	"context"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/joeydtaylor/steeze-function/pkg/manifest"
	"github.com/joeydtaylor/steeze-function/pkg/registry"
	"github.com/joeydtaylor/steeze-function/pkg/relay"
	"github.com/joeydtaylor/steeze-function/pkg/serverfx"
	"github.com/joeydtaylor/steeze-function/pkg/stream"
)

func main() {
	fx.New(
		fx.Invoke(registerUnits),
		serverfx.Module(serverfx.WithService("steeze-function")),
	).Run()
}

func init() {
	// available to [[function]] entries as handler = "json-identity"
	manifest.RegisterHandler("json-identity", func(_ context.Context, v any) (any, error) { return v, nil })
}

func registerUnits(lc fx.Lifecycle, reg *registry.Registry, zl *zap.Logger) error {
	if err := reg.Register("uppercase", strings.ToUpper, registry.WithAliases("upper")); err != nil {
		return err
	}
	if err := reg.Register("count", func(context.Context) *stream.Stream[int] {
		return stream.Just(1, 2, 3)
	}); err != nil {
		return err
	}
	if err := reg.Register("log", func(s string) {
		zl.Info("log function", zap.String("value", s))
	}); err != nil {
		return err
	}

	cfg, err := relay.ConfigFromEnv()
	if err != nil {
		return err
	}
	if len(cfg.Targets) == 0 {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.StopHook(cancel))
	forward, err := relay.NewConsumer[map[string]any](ctx, cfg)
	if err != nil {
		cancel()
		return err
	}
	zl.Info("relay function enabled", zap.Strings("targets", cfg.Targets))
	return reg.Register("relay", forward)
}
