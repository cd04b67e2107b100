package metadata

import (
	"fmt"
	"reflect"
	"sync"
)

// Catalog maps symbolic type names (as used in manifests) to Go types.
type Catalog struct {
	mu     sync.RWMutex
	byName map[string]reflect.Type
}

// Types is the process-wide catalog used when a Declared source names none.
var Types = NewCatalog()

// NewCatalog returns a catalog preloaded with the JSON scalar types.
func NewCatalog() *Catalog {
	c := &Catalog{byName: map[string]reflect.Type{}}
	c.byName["string"] = reflect.TypeFor[string]()
	c.byName["int"] = reflect.TypeFor[int]()
	c.byName["int64"] = reflect.TypeFor[int64]()
	c.byName["float64"] = reflect.TypeFor[float64]()
	c.byName["bool"] = reflect.TypeFor[bool]()
	c.byName["object"] = reflect.TypeFor[map[string]any]()
	c.byName["any"] = reflect.TypeFor[any]()
	return c
}

// Register binds T to name.
func Register[T any](c *Catalog, name string) error {
	if name == "" {
		return fmt.Errorf("metadata: type name required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byName[name]; ok {
		return fmt.Errorf("metadata: type %q already registered", name)
	}
	c.byName[name] = reflect.TypeFor[T]()
	return nil
}

func MustRegister[T any](c *Catalog, name string) {
	if err := Register[T](c, name); err != nil {
		panic(err)
	}
}

// Lookup resolves a name.
func (c *Catalog) Lookup(name string) (reflect.Type, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.byName[name]
	return t, ok
}
