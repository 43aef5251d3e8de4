// Package config loads the optional canopy.toml configuration file.
//
// Everything has a working default; the file only overrides. Flags, when
// set, override the file in turn (the CLI wires that precedence).
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/canopyview/canopy/pkg/errors"
)

// DefaultFileName is the config file looked up in the working directory
// when no explicit path is given.
const DefaultFileName = "canopy.toml"

// Config holds the file-configurable settings.
type Config struct {
	// DefaultFormat is the render format used when --format is not given.
	DefaultFormat string `toml:"default_format"`

	Cache CacheConfig `toml:"cache"`
	Serve ServeConfig `toml:"serve"`
	View  ViewConfig  `toml:"view"`
}

// CacheConfig configures the pipeline cache.
type CacheConfig struct {
	// Dir overrides the default cache directory.
	Dir string `toml:"dir"`

	// TTL overrides how long cache entries live, as a Go duration string
	// ("1h", "90m"). Zero keeps the per-kind defaults: 24h for layouts,
	// 7 days for rendered artifacts.
	TTL duration `toml:"ttl"`
}

// ServeConfig configures the HTTP server.
type ServeConfig struct {
	Addr string `toml:"addr"`

	// RedisAddr switches the serve-mode cache from files to Redis when set.
	RedisAddr string `toml:"redis_addr"`
}

// ViewConfig configures the terminal viewer.
type ViewConfig struct {
	// UnitsPerCell maps canvas units to one terminal cell.
	UnitsPerCell float64 `toml:"units_per_cell"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DefaultFormat: "svg",
		Serve: ServeConfig{
			Addr: ":8080",
		},
		View: ViewConfig{
			UnitsPerCell: 40,
		},
	}
}

// Load reads the config file at path and merges it over the defaults.
// A missing file is not an error when the path is the default lookup;
// an explicitly named file must exist.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if explicit {
			return cfg, errors.New(errors.ErrCodeNotFound, "config file %s not found", path)
		}
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidInput, err, "read config %s", path)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse config %s", filepath.Base(path))
	}
	return cfg, nil
}

// duration wraps time.Duration with TOML string decoding ("24h", "90m").
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}
