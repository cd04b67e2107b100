package manifest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeydtaylor/steeze-function/pkg/metadata"
	"github.com/joeydtaylor/steeze-function/pkg/registry"
)

const tomlManifest = `
[functions.web]
path = "/api"

[server]
listen = ":8080"

[[function]]
name = "shout"
aliases = ["loud"]
shape = "function"
input = "string"
output = "string"

[[function]]
name = "audit"
handler = "audit-sink"
shape = "consumer"
input = "object"
`

const yamlManifest = `
functions:
  web:
    path: ${FN_PREFIX}
function:
  - name: clock
    shape: supplier
    output: int64
`

func write(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadTOML(t *testing.T) {
	cfg, err := Load(write(t, "functions.toml", tomlManifest))
	require.NoError(t, err)

	assert.Equal(t, "/api", cfg.Functions.Web.Path)
	assert.Equal(t, ":8080", cfg.Server.Listen)
	require.Len(t, cfg.Units, 2)
	assert.Equal(t, "shout", cfg.Units[0].Handler)
	assert.Equal(t, []string{"loud"}, cfg.Units[0].Aliases)
	assert.Equal(t, "audit-sink", cfg.Units[1].Handler)
}

func TestLoadYAMLExpandsEnv(t *testing.T) {
	t.Setenv("FN_PREFIX", "fn/")
	cfg, err := Load(write(t, "functions.yaml", yamlManifest))
	require.NoError(t, err)
	assert.Equal(t, "fn/", cfg.Functions.Web.Path)
	require.Len(t, cfg.Units, 1)
	assert.Equal(t, "supplier", cfg.Units[0].Shape)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv(EnvWebPath, "")
	t.Setenv(EnvListen, ":9999")
	cfg, err := Load(write(t, "functions.toml", tomlManifest))
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Functions.Web.Path)
	assert.Equal(t, ":9999", cfg.Server.Listen)
}

func TestResolveWithoutManifest(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(EnvManifest, "")
	os.Unsetenv(EnvManifest)
	t.Setenv(EnvWebPath, "/v1")

	cfg, path, err := Resolve()
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, "/v1", cfg.Functions.Web.Path)

	t.Setenv(EnvManifest, "missing.toml")
	_, _, err = Resolve()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	for body, want := range map[string]string{
		"[[function]]\nshape = \"function\"\ninput = \"string\"\noutput = \"string\"\n":          "name is required",
		"[[function]]\nname = \"a\"\nshape = \"stream\"\n":                                          "unsupported func shape",
		"[[function]]\nname = \"a\"\nshape = \"supplier\"\n":                                        "output is required",
		"[[function]]\nname = \"a\"\nshape = \"consumer\"\ninput = \"string\"\noutput = \"string\"\n": "no output",
		"[[function]]\nname = \"a\"\nshape = \"supplier\"\noutput = \"int\"\n[[function]]\nname = \"/a\"\nshape = \"supplier\"\noutput = \"int\"\n": "already used",
	} {
		_, err := Load(write(t, "bad.toml", body))
		require.Error(t, err, body)
		assert.Contains(t, err.Error(), want)
		assert.True(t, strings.HasPrefix(err.Error(), "function "), err.Error())
	}
}

func TestBind(t *testing.T) {
	RegisterHandler("shout", func(_ context.Context, v any) (any, error) {
		return strings.ToUpper(v.(string)), nil
	})
	RegisterHandler("audit-sink", func(context.Context, any) error { return nil })

	cfg, err := Load(write(t, "functions.toml", tomlManifest))
	require.NoError(t, err)
	reg := registry.New()
	require.NoError(t, cfg.Bind(reg, nil))

	e, ok := reg.Entry("loud")
	require.True(t, ok)
	assert.Equal(t, "shout", e.Name)
	assert.Equal(t, metadata.ShapeFunction, e.Shape)
	args, err := e.Metadata.TypeArgs()
	require.NoError(t, err)
	require.Len(t, args, 2)
	assert.Equal(t, "string", args[0].String())

	e, ok = reg.Entry("audit")
	require.True(t, ok)
	assert.Equal(t, metadata.ShapeConsumer, e.Shape)
}

func TestBindRejectsShapeMismatch(t *testing.T) {
	RegisterHandler("not-a-supplier", func(context.Context, any) error { return nil })
	cfg := Config{Units: []Unit{{Name: "x", Handler: "not-a-supplier", Shape: "supplier", Output: "int"}}}
	require.NoError(t, cfg.Validate())
	err := cfg.Bind(registry.New(), nil)
	assert.ErrorContains(t, err, "declared supplier")

	cfg = Config{Units: []Unit{{Name: "y", Handler: "nobody", Shape: "supplier", Output: "int"}}}
	assert.ErrorContains(t, cfg.Bind(registry.New(), nil), "not registered")
}
