// Billy - MultiGP Race Sync for Discord
// Copyright 2026 North Dakota Drone Racing
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/North-Dakota-Drone-Racing/billy

package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Discord.Token = "bot-token"
	return cfg
}

func TestValidate(t *testing.T) {
	t.Run("defaults plus token pass validation", func(t *testing.T) {
		if err := validConfig().Validate(); err != nil {
			t.Fatalf("expected valid config, got %v", err)
		}
	})

	t.Run("missing discord token fails", func(t *testing.T) {
		cfg := defaultConfig()
		err := cfg.Validate()
		if err == nil {
			t.Fatal("expected validation error for empty token")
		}
		if !strings.Contains(err.Error(), "Discord.Token") {
			t.Errorf("expected token field in error, got %v", err)
		}
	})

	t.Run("malformed provider URL fails", func(t *testing.T) {
		cfg := validConfig()
		cfg.Provider.BaseURL = "not a url"
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected validation error for provider URL")
		}
	})

	t.Run("zero unit concurrency fails", func(t *testing.T) {
		cfg := validConfig()
		cfg.Sync.UnitConcurrency = 0
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected validation error for unit concurrency")
		}
	})

	t.Run("unknown log level fails", func(t *testing.T) {
		cfg := validConfig()
		cfg.Logging.Level = "verbose"
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected validation error for log level")
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("DISCORD_TOKEN", "env-token")
		t.Setenv("DB_PATH", ":memory:")
		t.Setenv("SYNC_CATALOG_SCHEDULE", "@every 1h")
		t.Setenv("HTTP_PORT", "9090")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Discord.Token != "env-token" {
			t.Errorf("token = %q, want env-token", cfg.Discord.Token)
		}
		if cfg.Database.Path != ":memory:" {
			t.Errorf("db path = %q, want :memory:", cfg.Database.Path)
		}
		if cfg.Sync.CatalogSchedule != "@every 1h" {
			t.Errorf("catalog schedule = %q, want @every 1h", cfg.Sync.CatalogSchedule)
		}
		if cfg.Server.Port != 9090 {
			t.Errorf("port = %d, want 9090", cfg.Server.Port)
		}
		// Untouched settings keep defaults.
		if cfg.Sync.StatusSchedule != "@every 15m" {
			t.Errorf("status schedule = %q, want default", cfg.Sync.StatusSchedule)
		}
	})

	t.Run("missing token surfaces validation error", func(t *testing.T) {
		t.Setenv("DISCORD_TOKEN", "")
		t.Setenv("DB_PATH", ":memory:")

		if _, err := Load(); err == nil {
			t.Fatal("expected error for unset token")
		}
	})

	t.Run("billy-prefixed variables map to sections", func(t *testing.T) {
		if got := envTransformFunc("BILLY_DISCORD_TOKEN"); got != "discord.token" {
			t.Errorf("transform = %q, want discord.token", got)
		}
		if got := envTransformFunc("RANDOM_HOST_VAR"); got != "" {
			t.Errorf("unmapped variable should be dropped, got %q", got)
		}
	})
}

func TestDefaults(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Provider.Timeout != 15*time.Second {
		t.Errorf("provider timeout default = %v", cfg.Provider.Timeout)
	}
	if cfg.Ollama.Enabled() {
		t.Error("ollama must be disabled by default")
	}
	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Errorf("server addr = %q", cfg.Server.Addr())
	}
}
