package serverfx

import (
	"context"
	"errors"
	"net/http"
	"time"

	chimd "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/joeydtaylor/steeze-function/pkg/core"
	"github.com/joeydtaylor/steeze-function/pkg/manifest"
	"github.com/joeydtaylor/steeze-function/pkg/metadata"
	"github.com/joeydtaylor/steeze-function/pkg/middleware/logger"
	"github.com/joeydtaylor/steeze-function/pkg/middleware/metrics"
	"github.com/joeydtaylor/steeze-function/pkg/registry"
	"github.com/joeydtaylor/steeze-function/pkg/transport/httpx"
	"github.com/joeydtaylor/steeze-function/pkg/web"
)

// ---------- Options ----------

type Config struct {
	Service       string             // for logs only
	Registry      *registry.Registry // units to publish
	Catalog       *metadata.Catalog  // type names for manifest entries
	DefaultListen string
}

type Option func(*Config)

func WithService(s string) Option              { return func(c *Config) { c.Service = s } }
func WithRegistry(r *registry.Registry) Option { return func(c *Config) { c.Registry = r } }
func WithCatalog(cat *metadata.Catalog) Option { return func(c *Config) { c.Catalog = cat } }
func WithDefaultListen(addr string) Option     { return func(c *Config) { c.DefaultListen = addr } }

func defaultConfig() Config {
	return Config{
		Service:       "steeze-function",
		Registry:      registry.Default,
		Catalog:       metadata.Types,
		DefaultListen: ":4000",
	}
}

// Module returns a complete Fx option set; register units before fx.New runs
// or through fx.Invoke against *registry.Registry.
func Module(opts ...Option) fx.Option {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return fx.Options(
		logger.Module,
		fx.Provide(fx.Annotate(metrics.ProvideMetrics, fx.ResultTags(`name:"metrics"`))),
		fx.Provide(func() httpx.Router { return httpx.NewChi() }),
		fx.Supply(cfg),
		fx.Provide(
			provideManifest,
			func(c Config) *registry.Registry { return c.Registry },
			core.NewProcessor,
			provideDispatcher,
		),
		fx.Provide(fx.Annotate(provideRouter, fx.ResultTags(`name:"app"`))),
		fx.Invoke(registerHooks),
	)
}

func provideManifest(zl *zap.Logger) (manifest.Config, error) {
	man, path, err := manifest.Resolve()
	if err != nil {
		return manifest.Config{}, err
	}
	if path == "" {
		zl.Info("no manifest file, using environment", zap.String("webPath", man.Functions.Web.Path))
	} else {
		zl.Info("manifest loaded", zap.String("path", path), zap.Int("functions", len(man.Units)))
	}
	return man, nil
}

func provideDispatcher(zl *zap.Logger) *web.Dispatcher {
	return web.NewDispatcher(web.WithLogger(zl))
}

// ---------- Router ----------

type routerDeps struct {
	fx.In

	Cfg      Config
	Manifest manifest.Config
	LogMW    *logger.Middleware
	Metrics  http.Handler `name:"metrics"`
	Router   httpx.Router
	Registry *registry.Registry
	Proc     *core.Processor
	Disp     *web.Dispatcher
	Log      *zap.Logger
}

func provideRouter(d routerDeps) (http.Handler, error) {
	if err := d.Manifest.Bind(d.Registry, d.Cfg.Catalog); err != nil {
		return nil, err
	}

	r := d.Router
	r.Use(chimd.RequestID, chimd.Recoverer, chimd.Heartbeat("/ping"))
	r.Use(d.LogMW.Middleware(), metrics.Collect())
	metrics.SetPathNormalizer(func(req *http.Request) string {
		if p, ok := r.Pattern(req.Method, httpx.RoutingPath(req)); ok {
			return p
		}
		return req.URL.Path
	})

	r.Get("/metrics", d.Metrics)

	pub, err := web.Publish(r, d.Registry, d.Proc, d.Disp, d.Manifest.Functions.Web.Path)
	if err != nil {
		d.Log.Error("some functions were not published", zap.Int("skipped", len(pub.Skipped)), zap.Error(err))
	}
	for _, rt := range pub.Routes {
		d.Log.Info("function route",
			zap.String("service", d.Cfg.Service),
			zap.String("route", rt.String()),
			zap.String("function", rt.Delegate.Name),
			zap.String("operation", rt.Op.String()),
		)
	}
	return r.Mux(), nil
}

// ---------- Lifecycle ----------

type serverDeps struct {
	fx.In
	Cfg      Config
	Manifest manifest.Config
	Logger   *zap.Logger
	App      http.Handler `name:"app"`
}

func registerHooks(lc fx.Lifecycle, d serverDeps) {
	addr := d.Manifest.Server.Listen
	if addr == "" {
		addr = d.Cfg.DefaultListen
	}

	srv := &http.Server{
		Addr:         addr,
		Handler:      d.App,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			d.Logger.Info("server starting",
				zap.String("service", d.Cfg.Service),
				zap.String("addr", addr),
			)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					d.Logger.Fatal("server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			d.Logger.Info("server stopping", zap.String("service", d.Cfg.Service))
			return srv.Shutdown(ctx)
		},
	})
}
