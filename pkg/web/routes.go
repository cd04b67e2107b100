package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/joeydtaylor/steeze-function/pkg/convert"
	"github.com/joeydtaylor/steeze-function/pkg/core"
	"github.com/joeydtaylor/steeze-function/pkg/metadata"
	"github.com/joeydtaylor/steeze-function/pkg/registry"
	"github.com/joeydtaylor/steeze-function/pkg/transport/httpx"
)

// Order is the handler mapping order function routes are registered at; it
// wins over the host's default mapping.
const Order = httpx.DefaultOrder - 5

// InputParam is the path variable of single-value function routes.
const InputParam = "input"

// Operation is what a route does with its delegate.
type Operation int

const (
	OpSupply Operation = iota
	OpApply
	OpApplySingle
	OpAccept
)

func (o Operation) String() string {
	switch o {
	case OpSupply:
		return "supply"
	case OpApply:
		return "apply"
	case OpApplySingle:
		return "apply-single"
	case OpAccept:
		return "accept"
	}
	return "unknown"
}

// Route binds a method and path template to a delegate operation.
type Route struct {
	Method   string
	Path     string
	Op       Operation
	Delegate *Delegate
}

func (r Route) String() string { return r.Method + " " + r.Path }

// NormalizePrefix strips trailing slashes and makes a non-empty prefix start
// with one.
func NormalizePrefix(p string) string {
	p = strings.TrimRight(strings.TrimSpace(p), "/")
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// Synthesize lists the routes of every delegate under every one of its
// names. prefix must already be normalized.
func Synthesize(prefix string, delegates []*Delegate) []Route {
	var out []Route
	for _, d := range delegates {
		for _, n := range d.Names() {
			path := prefix + "/" + n
			switch d.Kind {
			case metadata.ShapeSupplier:
				out = append(out, Route{Method: http.MethodGet, Path: path, Op: OpSupply, Delegate: d})
			case metadata.ShapeFunction:
				out = append(out,
					Route{Method: http.MethodPost, Path: path, Op: OpApply, Delegate: d},
					Route{Method: http.MethodGet, Path: path + "/{" + InputParam + "}", Op: OpApplySingle, Delegate: d},
				)
			case metadata.ShapeConsumer:
				out = append(out, Route{Method: http.MethodPost, Path: path, Op: OpAccept, Delegate: d})
			}
		}
	}
	return out
}

// Publication is the outcome of Publish.
type Publication struct {
	Prefix string
	Routes []Route
	// Skipped maps unit names that could not be published to the reason.
	Skipped map[string]error
}

// Publish seals the registry, resolves and wraps every unit, and registers
// the routes of those that succeed. A unit that fails introspection or
// wrapping is skipped; a route the router reports as conflicting is not
// listed, and whether it serves is up to the router's ConflictPolicy. All
// such failures are returned joined, alongside the publication.
func Publish(r httpx.Router, reg *registry.Registry, proc *core.Processor, d *Dispatcher, prefix string) (*Publication, error) {
	pub := &Publication{Prefix: NormalizePrefix(prefix), Skipped: map[string]error{}}
	reg.Seal()

	var (
		errs      []error
		delegates []*Delegate
	)
	for _, e := range reg.Units() {
		del, err := prepare(reg, proc, d.conv, e.Name)
		if err != nil {
			pub.Skipped[e.Name] = err
			errs = append(errs, err)
			continue
		}
		delegates = append(delegates, del)
	}

	m := r.Mapping(Order)
	for _, rt := range Synthesize(pub.Prefix, delegates) {
		if err := m.Register(rt.Method, rt.Path, d.Handler(rt)); err != nil {
			errs = append(errs, fmt.Errorf("web: %s for %q: %w", rt, rt.Delegate.Name, err))
			continue
		}
		pub.Routes = append(pub.Routes, rt)
	}
	return pub, errors.Join(errs...)
}

func prepare(reg *registry.Registry, proc *core.Processor, conv convert.Converter, name string) (*Delegate, error) {
	del, err := NewDelegate(reg, proc, conv, name)
	if err != nil {
		return nil, err
	}
	if _, err := del.InputType(); err != nil {
		return nil, err
	}
	if _, err := del.OutputType(); err != nil {
		return nil, err
	}
	if _, err := del.wrapped(); err != nil {
		return nil, err
	}
	return del, nil
}
