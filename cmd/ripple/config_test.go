package main

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		envVars     map[string]string
		expectError bool
		errorSubstr string
	}{
		{
			name:        "scenario required",
			args:        []string{},
			expectError: true,
			errorSubstr: "scenario path is required",
		},
		{
			name:        "valid run mode",
			args:        []string{"-scenario", "s.yaml"},
			expectError: false,
		},
		{
			name:        "valid risks mode",
			args:        []string{"-scenario", "s.yaml", "-mode", "risks"},
			expectError: false,
		},
		{
			name:        "unsupported mode",
			args:        []string{"-scenario", "s.yaml", "-mode", "bogus"},
			expectError: true,
			errorSubstr: "unsupported mode",
		},
		{
			name:        "zero periods",
			args:        []string{"-scenario", "s.yaml", "-periods", "0"},
			expectError: true,
			errorSubstr: "periods must be positive",
		},
		{
			name:        "invalid cache ttl from env",
			args:        []string{"-scenario", "s.yaml"},
			envVars:     map[string]string{"RIPPLE_CACHE_TTL": "soon"},
			expectError: true,
			errorSubstr: "invalid RIPPLE_CACHE_TTL",
		},
		{
			name:        "negative cache ttl from env",
			args:        []string{"-scenario", "s.yaml"},
			envVars:     map[string]string{"RIPPLE_CACHE_TTL": "-5m"},
			expectError: true,
			errorSubstr: "RIPPLE_CACHE_TTL must not be negative",
		},
		{
			name:        "valid cache ttl from env",
			args:        []string{"-scenario", "s.yaml"},
			envVars:     map[string]string{"RIPPLE_CACHE_TTL": "30m"},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				os.Setenv(k, v)
				defer os.Unsetenv(k)
			}

			_, err := LoadConfig(tt.args)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error containing %q, got nil", tt.errorSubstr)
				} else if !strings.Contains(err.Error(), tt.errorSubstr) {
					t.Errorf("expected error containing %q, got %q", tt.errorSubstr, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig([]string{"-scenario", "s.yaml"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Mode != "run" {
		t.Errorf("expected default mode run, got %s", cfg.Mode)
	}
	if cfg.Periods != 12 {
		t.Errorf("expected default periods 12, got %d", cfg.Periods)
	}
	if cfg.CacheTTL != time.Hour {
		t.Errorf("expected default cache TTL of 1h, got %v", cfg.CacheTTL)
	}
	if cfg.RedisAddr != "" || cfg.DBPath != "" {
		t.Errorf("expected persistence disabled by default, got db=%q redis=%q", cfg.DBPath, cfg.RedisAddr)
	}
}

func TestLoadConfig_EnvFallbacks(t *testing.T) {
	os.Setenv("RIPPLE_DB_PATH", "/tmp/ripple-test.db")
	os.Setenv("RIPPLE_REDIS_ADDR", "127.0.0.1:6379")
	defer os.Unsetenv("RIPPLE_DB_PATH")
	defer os.Unsetenv("RIPPLE_REDIS_ADDR")

	cfg, err := LoadConfig([]string{"-scenario", "s.yaml"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DBPath != "/tmp/ripple-test.db" {
		t.Errorf("expected db path from env, got %q", cfg.DBPath)
	}
	if cfg.RedisAddr != "127.0.0.1:6379" {
		t.Errorf("expected redis addr from env, got %q", cfg.RedisAddr)
	}

	// Flags win over env.
	cfg, err = LoadConfig([]string{"-scenario", "s.yaml", "-db", "/tmp/other.db"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DBPath != "/tmp/other.db" {
		t.Errorf("expected flag to override env, got %q", cfg.DBPath)
	}
}
