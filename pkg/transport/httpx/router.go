// pkg/transport/httpx/router.go
package httpx

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
)

// DefaultOrder is the order of the mapping that plain Handle/Get/... calls
// register into. Mappings with a lower order are consulted first.
const DefaultOrder = 0

// Router is the minimal HTTP router contract steeze-function depends on.
// transport/httpx.NewChi implements this.
type Router interface {
	Handle(method, path string, h http.Handler)
	Get(path string, h http.Handler)
	Post(path string, h http.Handler)
	Put(path string, h http.Handler)
	Delete(path string, h http.Handler)
	Mux() http.Handler
	Use(mw ...func(http.Handler) http.Handler)

	// Mapping returns the handler mapping at order, creating it on first use.
	Mapping(order int) Mapping
	// Pattern returns the route pattern a request would be served by.
	Pattern(method, path string) (string, bool)
}

// Mapping is one ordered set of routes.
type Mapping interface {
	Order() int
	// Register adds a route. A method and path already taken anywhere in the
	// router is reported as *RouteConflict and handled per ConflictPolicy.
	Register(method, path string, h http.Handler) error
}

// RouteConflict is returned when two registrations claim the same route.
type RouteConflict struct {
	Method string
	Path   string
}

func (e *RouteConflict) Error() string {
	return fmt.Sprintf("httpx: route %s %s already registered", e.Method, e.Path)
}

// ConflictPolicy decides what happens to a conflicting registration.
type ConflictPolicy int

const (
	// ConflictReject keeps the existing route and returns the conflict.
	ConflictReject ConflictPolicy = iota
	// ConflictOverride registers the route anyway and still returns the
	// conflict. Within one mapping the newer handler wins; across mappings
	// the lower order wins.
	ConflictOverride
)

type Option func(*chiRouter)

func WithConflictPolicy(p ConflictPolicy) Option {
	return func(c *chiRouter) { c.policy = p }
}

// chiRouter is our default Router backed by github.com/go-chi/chi. Each
// mapping is its own chi.Mux.
type chiRouter struct {
	mu       sync.RWMutex
	mappings []*chiMapping // sorted by order
	routes   map[string]struct{}
	policy   ConflictPolicy
	mws      []func(http.Handler) http.Handler
}

type chiMapping struct {
	owner *chiRouter
	order int
	mux   *chi.Mux
}

// NewChi returns a Chi-backed Router.
func NewChi(opts ...Option) Router {
	c := &chiRouter{routes: map[string]struct{}{}}
	for _, o := range opts {
		o(c)
	}
	c.Mapping(DefaultOrder)
	return c
}

func (c *chiRouter) Handle(method, path string, h http.Handler) {
	c.Mapping(DefaultOrder).(*chiMapping).mux.Method(method, path, h)
	c.mu.Lock()
	c.routes[routeKey(method, path)] = struct{}{}
	c.mu.Unlock()
}

func (c *chiRouter) Get(path string, h http.Handler)           { c.Handle(http.MethodGet, path, h) }
func (c *chiRouter) Post(path string, h http.Handler)          { c.Handle(http.MethodPost, path, h) }
func (c *chiRouter) Put(path string, h http.Handler)           { c.Handle(http.MethodPut, path, h) }
func (c *chiRouter) Delete(path string, h http.Handler)        { c.Handle(http.MethodDelete, path, h) }
func (c *chiRouter) Use(mw ...func(http.Handler) http.Handler) { c.mws = append(c.mws, mw...) }

func (c *chiRouter) Mux() http.Handler {
	return chi.Chain(c.mws...).HandlerFunc(c.serve)
}

func (c *chiRouter) Mapping(order int) Mapping {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.mappings {
		if m.order == order {
			return m
		}
	}
	m := &chiMapping{owner: c, order: order, mux: chi.NewRouter()}
	c.mappings = append(c.mappings, m)
	sort.SliceStable(c.mappings, func(i, j int) bool { return c.mappings[i].order < c.mappings[j].order })
	return m
}

// serve hands the request to the first mapping with a matching route, or to
// the default mapping so it can answer 404/405.
func (c *chiRouter) serve(w http.ResponseWriter, r *http.Request) {
	path := RoutingPath(r)
	c.mu.RLock()
	mappings := c.mappings
	c.mu.RUnlock()

	var fallback *chiMapping
	for _, m := range mappings {
		if m.order == DefaultOrder {
			fallback = m
		}
		if m.mux.Match(chi.NewRouteContext(), r.Method, path) {
			m.mux.ServeHTTP(w, r)
			return
		}
	}
	fallback.mux.ServeHTTP(w, r)
}

// RoutingPath is the path routes are matched against: RawPath when the URL
// carries escapes that Path cannot represent, Path otherwise.
func RoutingPath(r *http.Request) string {
	if r.URL.RawPath != "" {
		return r.URL.RawPath
	}
	return r.URL.Path
}

func (c *chiRouter) Pattern(method, path string) (string, bool) {
	c.mu.RLock()
	mappings := c.mappings
	c.mu.RUnlock()
	for _, m := range mappings {
		rctx := chi.NewRouteContext()
		if m.mux.Match(rctx, method, path) {
			return rctx.RoutePattern(), true
		}
	}
	return "", false
}

func (m *chiMapping) Order() int { return m.order }

func (m *chiMapping) Register(method, path string, h http.Handler) error {
	c := m.owner
	key := routeKey(method, path)
	c.mu.Lock()
	_, taken := c.routes[key]
	if taken && c.policy == ConflictReject {
		c.mu.Unlock()
		return &RouteConflict{Method: method, Path: path}
	}
	c.routes[key] = struct{}{}
	c.mu.Unlock()

	m.mux.Method(method, path, h)
	if taken {
		return &RouteConflict{Method: method, Path: path}
	}
	return nil
}

func routeKey(method, path string) string { return method + " " + path }
