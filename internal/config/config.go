// Package config loads blockql settings.
//
// Sources are layered, later ones winning:
//  1. Built-in defaults
//  2. The config file (--config, else blockql.yaml or blockql.yml in the
//     working directory)
//  3. BLOCKQL_* environment variables (BLOCKQL_PAGE_SIZE -> page_size)
//  4. Command-line flags that were explicitly set
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "BLOCKQL_"

// Defaults.
const (
	DefaultPageSize       = 20
	DefaultPreviewDelayMS = 1000
	DefaultListen         = "127.0.0.1:8080"
)

// Config holds runtime settings for the CLI and HTTP server.
type Config struct {
	// Database is the SQLite path for saved queries. Empty keeps saved
	// queries in memory for the life of the process.
	Database string `koanf:"database"`

	// Catalog is an optional CUE catalog file. Empty uses the built-in
	// Risk/Trade catalog.
	Catalog string `koanf:"catalog"`

	PageSize       int    `koanf:"page_size"`
	PreviewDelayMS int    `koanf:"preview_delay_ms"`
	Listen         string `koanf:"listen"`
	Verbose        bool   `koanf:"verbose"`

	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

// PreviewDelay converts PreviewDelayMS for preview.MockExecutor, where a
// negative delay disables waiting.
func (c *Config) PreviewDelay() time.Duration {
	if c.PreviewDelayMS <= 0 {
		return -1
	}
	return time.Duration(c.PreviewDelayMS) * time.Millisecond
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	var errs []error
	if c.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("page_size must be positive, got %d", c.PageSize))
	}
	if c.PreviewDelayMS < 0 {
		errs = append(errs, fmt.Errorf("preview_delay_ms must not be negative, got %d", c.PreviewDelayMS))
	}
	if strings.TrimSpace(c.Listen) == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	return errors.Join(errs...)
}

// findConfigFile returns the config file to read.
// Priority: explicit path > blockql.yaml > blockql.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"blockql.yaml", "blockql.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load reads configuration from defaults, file, environment and flags.
// flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]any{
		"database":         "",
		"catalog":          "",
		"page_size":        DefaultPageSize,
		"preview_delay_ms": DefaultPreviewDelayMS,
		"listen":           DefaultListen,
		"verbose":          false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// BLOCKQL_PREVIEW_DELAY_MS -> preview_delay_ms
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
