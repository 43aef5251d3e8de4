package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/canopyview/canopy/pkg/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.DefaultFormat != "svg" {
		t.Errorf("DefaultFormat = %q, want svg", cfg.DefaultFormat)
	}
	if cfg.Cache.TTL.Duration != 0 {
		t.Errorf("Cache.TTL = %v, want 0 (per-kind defaults)", cfg.Cache.TTL.Duration)
	}
	if cfg.Serve.Addr != ":8080" {
		t.Errorf("Serve.Addr = %q, want :8080", cfg.Serve.Addr)
	}
	if cfg.View.UnitsPerCell != 40 {
		t.Errorf("View.UnitsPerCell = %v, want 40", cfg.View.UnitsPerCell)
	}
}

func TestLoadMissingDefaultIsOK(t *testing.T) {
	dir := t.TempDir()
	cwd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(cwd)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg.DefaultFormat != "svg" {
		t.Errorf("missing default file did not fall back to defaults")
	}
}

func TestLoadMissingExplicitFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Load() error = %v, want NOT_FOUND", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canopy.toml")
	content := `
default_format = "json"

[cache]
ttl = "90m"

[serve]
addr = ":9999"
redis_addr = "localhost:6379"

[view]
units_per_cell = 25
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DefaultFormat != "json" {
		t.Errorf("DefaultFormat = %q, want json", cfg.DefaultFormat)
	}
	if cfg.Cache.TTL.Duration != 90*time.Minute {
		t.Errorf("Cache.TTL = %v, want 90m", cfg.Cache.TTL.Duration)
	}
	if cfg.Serve.Addr != ":9999" {
		t.Errorf("Serve.Addr = %q, want :9999", cfg.Serve.Addr)
	}
	if cfg.Serve.RedisAddr != "localhost:6379" {
		t.Errorf("Serve.RedisAddr = %q", cfg.Serve.RedisAddr)
	}
	if cfg.View.UnitsPerCell != 25 {
		t.Errorf("View.UnitsPerCell = %v, want 25", cfg.View.UnitsPerCell)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canopy.toml")
	if err := os.WriteFile(path, []byte("default_format = \"dot\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DefaultFormat != "dot" {
		t.Errorf("DefaultFormat = %q, want dot", cfg.DefaultFormat)
	}
	if cfg.Serve.Addr != ":8080" {
		t.Errorf("unset Serve.Addr = %q, want default :8080", cfg.Serve.Addr)
	}
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canopy.toml")
	if err := os.WriteFile(path, []byte("default_format = [broken"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("Load() error = %v, want INVALID_FORMAT", err)
	}
}

func TestLoadBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canopy.toml")
	if err := os.WriteFile(path, []byte("[cache]\nttl = \"soon\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("Load() error = %v, want INVALID_FORMAT", err)
	}
}
