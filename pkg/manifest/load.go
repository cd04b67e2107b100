package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	EnvManifest = "FUNCTIONS_MANIFEST"
	EnvWebPath  = "FUNCTIONS_WEB_PATH"
	EnvListen   = "SERVER_LISTEN_ADDRESS"

	DefaultManifest = "functions.toml"
)

// Load reads a TOML manifest, or YAML when path ends in .yaml/.yml.
// ${VAR} references are expanded before parsing and the FUNCTIONS_WEB_PATH
// and SERVER_LISTEN_ADDRESS variables override the file.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	b = []byte(os.ExpandEnv(string(b)))

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	default:
		err = toml.Unmarshal(b, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFromEnv builds a manifest from environment variables only.
func LoadFromEnv() Config {
	var cfg Config
	applyEnv(&cfg)
	return cfg
}

// Resolve loads the manifest named by FUNCTIONS_MANIFEST. Without the
// variable it tries functions.toml and falls back to LoadFromEnv when that
// file does not exist; a file named explicitly must exist.
func Resolve() (Config, string, error) {
	path := os.Getenv(EnvManifest)
	if path != "" {
		cfg, err := Load(path)
		return cfg, path, err
	}
	cfg, err := Load(DefaultManifest)
	if errors.Is(err, fs.ErrNotExist) {
		return LoadFromEnv(), "", nil
	}
	return cfg, DefaultManifest, err
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv(EnvWebPath); ok {
		cfg.Functions.Web.Path = v
	}
	if v := os.Getenv(EnvListen); v != "" {
		cfg.Server.Listen = v
	}
}
