package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "terralink.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadClientConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
address = "10.0.0.8:9000"
generator = "amplified"
queue_depth = 64
dial_timeout = "250ms"
`)
	cfg, err := LoadClientConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Address != "10.0.0.8:9000" {
		t.Fatalf("address: got %q", cfg.Address)
	}
	if cfg.Generator != "amplified" {
		t.Fatalf("generator: got %q", cfg.Generator)
	}
	if cfg.QueueDepth != 64 {
		t.Fatalf("queue depth: got %d", cfg.QueueDepth)
	}
	if cfg.DialTimeout != 250*time.Millisecond {
		t.Fatalf("dial timeout: got %v", cfg.DialTimeout)
	}
	// Absent keys keep their defaults.
	if cfg.LogLevel != DefaultClientConfig().LogLevel {
		t.Fatalf("log level: got %q", cfg.LogLevel)
	}
}

func TestLoadClientConfigRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `dial_timeout = "soon"`)
	if _, err := LoadClientConfig(path); err == nil {
		t.Fatal("expected an error for an unparsable duration")
	}
}

func TestLoadClientConfigRejectsBadCompressionLevel(t *testing.T) {
	path := writeConfig(t, `compression_level = 11`)
	if _, err := LoadClientConfig(path); !errors.Is(err, ErrBadLevel) {
		t.Fatalf("expected ErrBadLevel, got %v", err)
	}
}

func TestLoadClientConfigRejectsEmptyAddress(t *testing.T) {
	path := writeConfig(t, `address = "  "`)
	if _, err := LoadClientConfig(path); !errors.Is(err, ErrNoAddress) {
		t.Fatalf("expected ErrNoAddress, got %v", err)
	}
}

func TestLoadServerConfigGenerators(t *testing.T) {
	path := writeConfig(t, `
listen = "0.0.0.0:47900"
shutdown_grace = "1s"

[[generators]]
name = "flatworld"
min_height = 0
max_height = 64
default_block = 1

[[generators]]
name = "bedrock"
min_height = -64
max_height = -63
default_block = 7
`)
	cfg, err := LoadServerConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ShutdownGrace != time.Second {
		t.Fatalf("shutdown grace: got %v", cfg.ShutdownGrace)
	}
	if len(cfg.Generators) != 2 {
		t.Fatalf("generators: got %d want 2", len(cfg.Generators))
	}
	if cfg.Generators[1].Name != "bedrock" || cfg.Generators[1].MinHeight != -64 {
		t.Fatalf("generator[1]: got %+v", cfg.Generators[1])
	}
}

func TestLoadServerConfigRejectsInvertedHeights(t *testing.T) {
	path := writeConfig(t, `
[[generators]]
name = "broken"
min_height = 10
max_height = 10
`)
	if _, err := LoadServerConfig(path); !errors.Is(err, ErrBadHeights) {
		t.Fatalf("expected ErrBadHeights, got %v", err)
	}
}

func TestDefaultsValidate(t *testing.T) {
	if err := DefaultClientConfig().Validate(); err != nil {
		t.Fatalf("client defaults: %v", err)
	}
	if err := DefaultServerConfig().Validate(); err != nil {
		t.Fatalf("server defaults: %v", err)
	}
}
