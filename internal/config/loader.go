package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if TALLY_CONFIG is set
//  3. env (prefix TALLY_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("TALLY_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Environment variables: TALLY_ADDR, TALLY_STORE_PATH, ...
	// Map env keys like TALLY_STORE_PATH -> store_path (flat keys);
	// underscores are preserved to match the koanf tags on the struct.
	envProvider := env.Provider("TALLY_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "tally_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if cfg.Addr == "" {
		return nil, errors.New("addr must not be empty")
	}
	if cfg.StorePath == "" {
		return nil, errors.New("store_path must not be empty")
	}
	switch cfg.StoreBackend {
	case BackendJSONFile, BackendSQLite:
	default:
		return nil, fmt.Errorf("unknown store_backend: %s", cfg.StoreBackend)
	}
	if cfg.MaxRevisions < 1 {
		return nil, errors.New("max_revisions must be at least 1")
	}
	return &cfg, nil
}
