package manifest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joeydtaylor/steeze-function/pkg/metadata"
)

// Config is the top-level manifest.
type Config struct {
	Functions Functions `toml:"functions" yaml:"functions"`
	Server    Server    `toml:"server" yaml:"server"`
	Units     []Unit    `toml:"function" yaml:"function"`
}

type Functions struct {
	Web Web `toml:"web" yaml:"web"`
}

// Web holds functions.web.*: Path is the URL prefix every route is
// published under.
type Web struct {
	Path string `toml:"path" yaml:"path"`
}

type Server struct {
	Listen string `toml:"listen" yaml:"listen"`
}

// Unit declares a function backed by a handler registered with
// RegisterHandler. Input and Output name types of the metadata catalog.
type Unit struct {
	Name    string   `toml:"name" yaml:"name"`
	Aliases []string `toml:"aliases" yaml:"aliases"`
	Handler string   `toml:"handler" yaml:"handler"`
	Shape   string   `toml:"shape" yaml:"shape"`
	Input   string   `toml:"input" yaml:"input"`
	Output  string   `toml:"output" yaml:"output"`
}

func (u *Unit) normalize() {
	u.Name = strings.Trim(strings.TrimSpace(u.Name), "/")
	u.Handler = strings.TrimSpace(u.Handler)
	if u.Handler == "" {
		u.Handler = u.Name
	}
	u.Shape = strings.ToLower(strings.TrimSpace(u.Shape))
	u.Input = strings.TrimSpace(u.Input)
	u.Output = strings.TrimSpace(u.Output)
}

func (u *Unit) validate() error {
	if u.Name == "" {
		return errors.New("name is required")
	}
	shape, err := metadata.ParseShape(u.Shape)
	if err != nil {
		return err
	}
	switch shape {
	case metadata.ShapeSupplier:
		if u.Output == "" {
			return errors.New("output is required for a supplier")
		}
		if u.Input != "" {
			return errors.New("a supplier takes no input")
		}
	case metadata.ShapeFunction:
		if u.Input == "" || u.Output == "" {
			return errors.New("input and output are required for a function")
		}
	case metadata.ShapeConsumer:
		if u.Input == "" {
			return errors.New("input is required for a consumer")
		}
		if u.Output != "" {
			return errors.New("a consumer has no output")
		}
	}
	return nil
}

// Validate normalizes every unit and checks it. Errors carry the index of
// the offending entry.
func (c *Config) Validate() error {
	seen := map[string]int{}
	for i := range c.Units {
		u := &c.Units[i]
		u.normalize()
		if err := u.validate(); err != nil {
			return fmt.Errorf("function %d (%s): %w", i, u.Name, err)
		}
		if j, dup := seen[u.Name]; dup {
			return fmt.Errorf("function %d (%s): name already used by function %d", i, u.Name, j)
		}
		seen[u.Name] = i
	}
	return nil
}
