package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RIVER_ADDR", ":9999")
	t.Setenv("RIVER_MAX_CONTEXT", "500")
	t.Setenv("RIVER_INTERVAL", "250ms")
	t.Setenv("RIVER_TEMPERATURE", "1.2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9999" {
		t.Errorf("Addr = %q, want :9999", cfg.Addr)
	}
	if cfg.MaxContext != 500 {
		t.Errorf("MaxContext = %d, want 500", cfg.MaxContext)
	}
	if cfg.Interval != 250*time.Millisecond {
		t.Errorf("Interval = %v, want 250ms", cfg.Interval)
	}
	if cfg.Temperature != 1.2 {
		t.Errorf("Temperature = %v, want 1.2", cfg.Temperature)
	}
	// Untouched keys keep their defaults
	if cfg.Model != "llama3.2" {
		t.Errorf("Model = %q, want default", cfg.Model)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "river.yaml")
	body := "model: gemma2\nmax_context: 800\ninterval: 5s\ntop_k: 20\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RIVER_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "gemma2" {
		t.Errorf("Model = %q, want gemma2", cfg.Model)
	}
	if cfg.MaxContext != 800 {
		t.Errorf("MaxContext = %d, want 800", cfg.MaxContext)
	}
	if cfg.Interval != 5*time.Second {
		t.Errorf("Interval = %v, want 5s", cfg.Interval)
	}
	if cfg.TopK != 20 {
		t.Errorf("TopK = %d, want 20", cfg.TopK)
	}
	// Keys absent from the file keep defaults
	if cfg.MaxStream != 3500 {
		t.Errorf("MaxStream = %d, want default 3500", cfg.MaxStream)
	}
}

func TestEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "river.yaml")
	if err := os.WriteFile(path, []byte("model: from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RIVER_CONFIG", path)
	t.Setenv("RIVER_MODEL", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "from-env" {
		t.Errorf("Model = %q, env should win over file", cfg.Model)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"bad int", "RIVER_MAX_CONTEXT", "lots"},
		{"bad duration", "RIVER_INTERVAL", "3 seconds"},
		{"bad float", "RIVER_TOP_P", "most"},
		{"zero interval", "RIVER_INTERVAL", "0s"},
		{"context below word length", "RIVER_MAX_CONTEXT", "10"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load accepted %s=%q", tc.key, tc.value)
			}
		})
	}
}

func TestValidateStreamSmallerThanContext(t *testing.T) {
	cfg := Default()
	cfg.MaxStream = cfg.MaxContext - 1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when display cap is below the context budget")
	}
}
