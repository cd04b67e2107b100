package manifest

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/joeydtaylor/steeze-function/pkg/metadata"
	"github.com/joeydtaylor/steeze-function/pkg/registry"
)

var (
	handlersMu sync.RWMutex
	handlers   = map[string]any{}
)

// RegisterHandler makes fn available to manifest [[function]] entries under
// name. fn is typically dynamically typed, e.g. func(context.Context, any)
// (any, error); the entry's input and output names decide the wire types.
func RegisterHandler(name string, fn any) {
	handlersMu.Lock()
	handlers[name] = fn
	handlersMu.Unlock()
}

func LookupHandler(name string) (any, bool) {
	handlersMu.RLock()
	fn, ok := handlers[name]
	handlersMu.RUnlock()
	return fn, ok
}

// Bind registers every declared unit in reg with Declared metadata resolved
// through cat. A nil cat uses metadata.Types.
func (c *Config) Bind(reg *registry.Registry, cat *metadata.Catalog) error {
	for i, u := range c.Units {
		fn, ok := LookupHandler(u.Handler)
		if !ok {
			return fmt.Errorf("function %d (%s): handler %q not registered", i, u.Name, u.Handler)
		}
		want, err := metadata.ParseShape(u.Shape)
		if err != nil {
			return fmt.Errorf("function %d (%s): %w", i, u.Name, err)
		}
		got, _, _, err := metadata.Analyze(reflect.TypeOf(fn))
		if err != nil {
			return fmt.Errorf("function %d (%s): %w", i, u.Name, err)
		}
		if got != want {
			return fmt.Errorf("function %d (%s): handler %q is a %s, declared %s", i, u.Name, u.Handler, got, want)
		}
		md := metadata.Declared{Shape: want, Input: u.Input, Output: u.Output, Catalog: cat}
		if err := reg.Register(u.Name, fn, registry.WithAliases(u.Aliases...), registry.WithMetadata(md)); err != nil {
			return fmt.Errorf("function %d (%s): %w", i, u.Name, err)
		}
	}
	return nil
}
