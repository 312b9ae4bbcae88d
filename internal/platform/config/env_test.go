package config

import (
	"strings"
	"testing"
)

type envTestConfig struct {
	Port    int    `env:"TEST_PORT" envDefault:"123"`
	DataURL string `env:"TEST_DATA_URL"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("expected default port 123, got %d", cfg.Port)
	}
	if cfg.DataURL != "" {
		t.Fatalf("expected empty data url, got %q", cfg.DataURL)
	}
}

func TestParseEnvReadsValues(t *testing.T) {
	t.Setenv("HEALING_HOME_TEST_DATA_URL", "http://localhost:8080")
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.DataURL != "http://localhost:8080" {
		t.Fatalf("DataURL = %q, want %q", cfg.DataURL, "http://localhost:8080")
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("HEALING_HOME_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestParseEnvIgnoresUnprefixedNames(t *testing.T) {
	t.Setenv("TEST_DATA_URL", "http://unprefixed.example.test")
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.DataURL != "" {
		t.Fatalf("DataURL = %q, want empty", cfg.DataURL)
	}
}
