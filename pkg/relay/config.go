package relay

import (
	"encoding/hex"
	"errors"
	"os"
	"strings"
)

// Config describes the electrician forward relay a consumer submits to.
type Config struct {
	Targets []string

	TLS     bool
	TLSCert string
	TLSKey  string
	TLSCA   string

	Snappy bool
	AESGCM bool
	AESKey []byte // 32 bytes when AESGCM is set

	StaticHeaders map[string]string
}

var ErrAESKey = errors.New("relay: ELECTRICIAN_AES256_KEY_HEX must be 64 hex chars (32 bytes)")

// ConfigFromEnv reads the ELECTRICIAN_* variables.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		Targets:       splitCSV(os.Getenv("ELECTRICIAN_TARGET")),
		TLS:           strings.EqualFold(os.Getenv("ELECTRICIAN_TLS_ENABLE"), "true"),
		TLSCert:       envOr("ELECTRICIAN_TLS_CLIENT_CRT", "keys/tls/client.crt"),
		TLSKey:        envOr("ELECTRICIAN_TLS_CLIENT_KEY", "keys/tls/client.key"),
		TLSCA:         envOr("ELECTRICIAN_TLS_CA", "keys/tls/ca.crt"),
		Snappy:        strings.EqualFold(os.Getenv("ELECTRICIAN_COMPRESS"), "snappy"),
		AESGCM:        strings.EqualFold(os.Getenv("ELECTRICIAN_ENCRYPT"), "aesgcm"),
		StaticHeaders: parseKV(os.Getenv("ELECTRICIAN_STATIC_HEADERS")),
	}
	if cfg.AESGCM {
		raw, err := hex.DecodeString(strings.TrimSpace(os.Getenv("ELECTRICIAN_AES256_KEY_HEX")))
		if err != nil || len(raw) != 32 {
			return Config{}, ErrAESKey
		}
		cfg.AESKey = raw
	}
	return cfg, nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if x := strings.TrimSpace(p); x != "" {
			out = append(out, x)
		}
	}
	return out
}

func parseKV(s string) map[string]string {
	if s == "" {
		return nil
	}
	out := map[string]string{}
	for _, kv := range strings.Split(s, ",") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		p := strings.SplitN(kv, "=", 2)
		if len(p) == 2 {
			out[strings.TrimSpace(p[0])] = strings.TrimSpace(p[1])
		}
	}
	return out
}
