// Billy - MultiGP Race Sync for Discord
// Copyright 2026 North Dakota Drone Racing
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/North-Dakota-Drone-Racing/billy

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in priority order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/billy/config.yaml",
	"/etc/billy/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Discord: DiscordConfig{
			Token: "",
		},
		Provider: ProviderConfig{
			BaseURL:       "https://www.multigp.com/mgp/multigpwebservice",
			Timeout:       15 * time.Second,
			RatePerSecond: 2,
		},
		Ollama: OllamaConfig{
			URL:     "",
			Model:   "",
			Timeout: 60 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "/data/billy.db",
		},
		Sync: SyncConfig{
			CatalogSchedule:    "@every 3h",
			StatusSchedule:     "@every 15m",
			UnitConcurrency:    4,
			CatalogTickTimeout: 10 * time.Minute,
			StatusTickTimeout:  5 * time.Minute,
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the configuration from layered sources (highest priority last):
//
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. Environment variables
//
// The result is validated before being returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// BILLY_DISCORD_TOKEN -> discord.token, plus a short-name table for the
	// variables the deployment docs mention.
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables are dropped so unrelated environment noise cannot leak
// into the configuration.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		"discord_token": "discord.token",

		"multigp_base_url":        "provider.base_url",
		"multigp_timeout":         "provider.timeout",
		"multigp_rate_per_second": "provider.rate_per_second",

		"ollama_url":     "ollama.url",
		"ollama_model":   "ollama.model",
		"ollama_timeout": "ollama.timeout",

		"db_path": "database.path",

		"sync_catalog_schedule":     "sync.catalog_schedule",
		"sync_status_schedule":      "sync.status_schedule",
		"sync_unit_concurrency":     "sync.unit_concurrency",
		"sync_catalog_tick_timeout": "sync.catalog_tick_timeout",
		"sync_status_tick_timeout":  "sync.status_tick_timeout",

		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",

		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// BILLY_-prefixed variables map positionally: BILLY_SYNC_STATUS_SCHEDULE
	// is ambiguous under plain underscore splitting, so only the first
	// underscore becomes a dot and the tail keeps its underscores.
	if rest, ok := strings.CutPrefix(key, "billy_"); ok {
		section, field, found := strings.Cut(rest, "_")
		if found {
			return section + "." + field
		}
	}

	return ""
}
