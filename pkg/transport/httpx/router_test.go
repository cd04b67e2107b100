package httpx

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func text(s string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, s) })
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestLowerOrderWins(t *testing.T) {
	r := NewChi(WithConflictPolicy(ConflictOverride))
	r.Get("/*", text("default"))
	r.Get("/health", text("health"))

	err := r.Mapping(DefaultOrder-5).Register(http.MethodGet, "/echo/{input}", text("echo"))
	require.NoError(t, err)

	h := r.Mux()
	assert.Equal(t, "echo", do(t, h, http.MethodGet, "/echo/x").Body.String())
	assert.Equal(t, "health", do(t, h, http.MethodGet, "/health").Body.String())
	assert.Equal(t, "default", do(t, h, http.MethodGet, "/other").Body.String())
}

func TestUnmatchedFallsBackToDefault(t *testing.T) {
	r := NewChi()
	require.NoError(t, r.Mapping(-5).Register(http.MethodPost, "/upper", text("ok")))

	h := r.Mux()
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/upper").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/missing").Code)
}

func TestConflictRejectedByDefault(t *testing.T) {
	r := NewChi()
	m := r.Mapping(-5)
	require.NoError(t, m.Register(http.MethodPost, "/upper", text("first")))

	err := m.Register(http.MethodPost, "/upper", text("second"))
	var rc *RouteConflict
	require.ErrorAs(t, err, &rc)
	assert.Equal(t, "/upper", rc.Path)
	assert.Equal(t, "first", do(t, r.Mux(), http.MethodPost, "/upper").Body.String())

	// a different method on the same path is not a conflict
	assert.NoError(t, m.Register(http.MethodGet, "/upper", text("get")))
}

func TestConflictOverride(t *testing.T) {
	r := NewChi(WithConflictPolicy(ConflictOverride))
	m := r.Mapping(-5)
	require.NoError(t, m.Register(http.MethodPost, "/upper", text("first")))
	err := m.Register(http.MethodPost, "/upper", text("second"))
	assert.Error(t, err)
	assert.Equal(t, "second", do(t, r.Mux(), http.MethodPost, "/upper").Body.String())
}

func TestMiddlewareWrapsEveryMapping(t *testing.T) {
	r := NewChi()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("X-Seen", "1")
			next.ServeHTTP(w, req)
		})
	})
	require.NoError(t, r.Mapping(-5).Register(http.MethodGet, "/a", text("a")))

	h := r.Mux()
	assert.Equal(t, "1", do(t, h, http.MethodGet, "/a").Header().Get("X-Seen"))
	assert.Equal(t, "1", do(t, h, http.MethodGet, "/nope").Header().Get("X-Seen"))
}

func TestPattern(t *testing.T) {
	r := NewChi()
	require.NoError(t, r.Mapping(-5).Register(http.MethodGet, "/api/upper/{input}", text("x")))

	p, ok := r.Pattern(http.MethodGet, "/api/upper/abc")
	require.True(t, ok)
	assert.Equal(t, "/api/upper/{input}", p)

	_, ok = r.Pattern(http.MethodGet, "/none")
	assert.False(t, ok)
}

func TestRoutingPath(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/upper/a%2Fb", nil)
	assert.Equal(t, "/api/upper/a%2Fb", RoutingPath(req))

	req = httptest.NewRequest(http.MethodGet, "/api/upper/%2541", nil)
	assert.Equal(t, "/api/upper/%41", RoutingPath(req))

	r := NewChi()
	require.NoError(t, r.Mapping(-5).Register(http.MethodGet, "/api/upper/{input}", text("x")))
	p, ok := r.Pattern(http.MethodGet, RoutingPath(httptest.NewRequest(http.MethodGet, "/api/upper/a%2Fb", nil)))
	require.True(t, ok)
	assert.Equal(t, "/api/upper/{input}", p)
	assert.Equal(t, "x", do(t, r.Mux(), http.MethodGet, "/api/upper/a%2Fb").Body.String())
}
