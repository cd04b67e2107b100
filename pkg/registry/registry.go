// Package registry holds user units by name. Units are plain Go funcs whose
// signature decides their shape (see metadata.Analyze); the registry records
// aliases and registration metadata, and is sealed once routes are published.
package registry

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/joeydtaylor/steeze-function/pkg/metadata"
)

var (
	ErrNameRequired  = errors.New("registry: unit name required")
	ErrNotAUnit      = errors.New("registry: value is not a supplier, function or consumer")
	ErrDuplicateName = errors.New("registry: name already registered")
	ErrSealed        = errors.New("registry: sealed after publication")
	ErrNotFound      = errors.New("registry: unit not found")
)

// Entry is the registration record of one unit.
type Entry struct {
	Name     string
	Aliases  []string
	Shape    metadata.Shape
	Metadata metadata.Source
}

type record struct {
	unit  any
	entry Entry
}

// Registry is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	byName map[string]*record
	alias  map[string]string // alias -> canonical
	sealed bool
}

// Default is the process-wide registry used by the package-level helpers.
var Default = New()

func New() *Registry {
	return &Registry{
		byName: map[string]*record{},
		alias:  map[string]string{},
	}
}

type options struct {
	aliases  []string
	metadata metadata.Source
}

// Option customizes a registration.
type Option func(*options)

// WithAliases adds extra names the unit is reachable under.
func WithAliases(aliases ...string) Option {
	return func(o *options) { o.aliases = append(o.aliases, aliases...) }
}

// WithMetadata replaces the signature metadata derived from the func type.
func WithMetadata(src metadata.Source) Option {
	return func(o *options) { o.metadata = src }
}

// Register adds unit to the Default registry.
func Register(name string, unit any, opts ...Option) error {
	return Default.Register(name, unit, opts...)
}

// MustRegister panics on registration errors; meant for init-time wiring.
func MustRegister(name string, unit any, opts ...Option) {
	if err := Default.Register(name, unit, opts...); err != nil {
		panic(err)
	}
}

// Register adds a unit under name.
func (r *Registry) Register(name string, unit any, opts ...Option) error {
	name = cleanName(name)
	if name == "" {
		return ErrNameRequired
	}
	shape, _, _, err := metadata.Analyze(reflect.TypeOf(unit))
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrNotAUnit, name, err)
	}

	var o options
	for _, fn := range opts {
		fn(&o)
	}
	md := o.metadata
	if md == nil {
		md = metadata.Signature{Func: reflect.TypeOf(unit)}
	}

	aliases := make([]string, 0, len(o.aliases))
	seen := map[string]struct{}{name: {}}
	for _, a := range o.aliases {
		a = cleanName(a)
		if a == "" {
			continue
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		aliases = append(aliases, a)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrSealed
	}
	for n := range seen {
		if r.taken(n) {
			return fmt.Errorf("%w: %q", ErrDuplicateName, n)
		}
	}

	r.byName[name] = &record{
		unit: unit,
		entry: Entry{
			Name:     name,
			Aliases:  aliases,
			Shape:    shape,
			Metadata: md,
		},
	}
	for _, a := range aliases {
		r.alias[a] = name
	}
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) taken(n string) bool {
	if _, ok := r.byName[n]; ok {
		return true
	}
	_, ok := r.alias[n]
	return ok
}

// Seal freezes the registry; later registrations fail with ErrSealed.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Units returns every entry in registration order.
func (r *Registry) Units() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.order))
	for _, n := range r.order {
		e := r.byName[n].entry
		e.Aliases = append([]string(nil), e.Aliases...)
		out = append(out, e)
	}
	return out
}

// Canonical resolves a name or alias to the canonical name.
func (r *Registry) Canonical(name string) (string, bool) {
	name = cleanName(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.byName[name]; ok {
		return name, true
	}
	c, ok := r.alias[name]
	return c, ok
}

// Get returns the unit registered under name or one of its aliases.
func (r *Registry) Get(name string) (any, bool) {
	rec, ok := r.lookup(name)
	if !ok {
		return nil, false
	}
	return rec.unit, true
}

// Entry returns the registration record for name or alias.
func (r *Registry) Entry(name string) (Entry, bool) {
	rec, ok := r.lookup(name)
	if !ok {
		return Entry{}, false
	}
	e := rec.entry
	e.Aliases = append([]string(nil), e.Aliases...)
	return e, true
}

// Aliases returns the aliases of the canonical name.
func (r *Registry) Aliases(name string) []string {
	e, ok := r.Entry(name)
	if !ok {
		return nil
	}
	return e.Aliases
}

// FindNames returns the canonical names of every unit whose dynamic type
// matches unit's, in registration order.
func (r *Registry) FindNames(unit any) []string {
	t := reflect.TypeOf(unit)
	if t == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, n := range r.order {
		if reflect.TypeOf(r.byName[n].unit) == t {
			out = append(out, n)
		}
	}
	return out
}

// MetadataFor returns the registration metadata of name.
func (r *Registry) MetadataFor(name string) (metadata.Source, error) {
	rec, ok := r.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return rec.entry.Metadata, nil
}

func (r *Registry) lookup(name string) (*record, bool) {
	c, ok := r.Canonical(name)
	if !ok {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byName[c]
	return rec, ok
}

// cleanName collapses leading and trailing slashes so "/upper" and "upper"
// name the same route.
func cleanName(n string) string {
	return strings.Trim(strings.TrimSpace(n), "/")
}
