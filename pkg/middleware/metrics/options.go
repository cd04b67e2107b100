package metrics

import (
	"net/http"
	"sync"
)

var (
	skipPaths = map[string]struct{}{"/metrics": {}}

	normMu         sync.RWMutex
	pathNormalizer = func(r *http.Request) string { return r.URL.Path }
)

// SetPathNormalizer allows callers to normalize the URI label (e.g., collapse IDs).
// By default it returns r.URL.Path unchanged.
func SetPathNormalizer(fn func(*http.Request) string) {
	if fn == nil {
		return
	}
	normMu.Lock()
	pathNormalizer = fn
	normMu.Unlock()
}

func isSkipPath(r *http.Request) bool {
	_, ok := skipPaths[r.URL.Path]
	return ok
}

func normalizePath(r *http.Request) string {
	normMu.RLock()
	fn := pathNormalizer
	normMu.RUnlock()
	return fn(r)
}
