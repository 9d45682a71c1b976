// Billy - MultiGP Race Sync for Discord
// Copyright 2026 North Dakota Drone Racing
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/North-Dakota-Drone-Racing/billy

// Package config loads and validates the application configuration from
// layered sources (built-in defaults, optional YAML file, environment
// variables) using Koanf v2.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the top-level application configuration.
type Config struct {
	Discord  DiscordConfig  `koanf:"discord"`
	Provider ProviderConfig `koanf:"provider"`
	Ollama   OllamaConfig   `koanf:"ollama"`
	Database DatabaseConfig `koanf:"database"`
	Sync     SyncConfig     `koanf:"sync"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// DiscordConfig configures the Discord gateway and REST client.
type DiscordConfig struct {
	// Token is the bot token. Required.
	Token string `koanf:"token" validate:"required"`
}

// ProviderConfig configures the MultiGP RaceSync client.
type ProviderConfig struct {
	// BaseURL is the RaceSync web service root.
	BaseURL string `koanf:"base_url" validate:"required,url"`
	// Timeout bounds every provider HTTP call.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
	// RatePerSecond caps outbound provider calls; 0 disables the limiter.
	RatePerSecond float64 `koanf:"rate_per_second" validate:"gte=0"`
}

// OllamaConfig configures the optional announcement text generator.
// The collaborator is inactive unless URL and Model are both set.
type OllamaConfig struct {
	URL     string        `koanf:"url" validate:"omitempty,url"`
	Model   string        `koanf:"model"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// Enabled reports whether announcement generation is configured.
func (c OllamaConfig) Enabled() bool {
	return c.URL != "" && c.Model != ""
}

// DatabaseConfig configures the sqlite store.
type DatabaseConfig struct {
	// Path is the sqlite database file; ":memory:" is accepted for tests.
	Path string `koanf:"path" validate:"required"`
}

// SyncConfig configures the two periodic reconciliation drivers.
type SyncConfig struct {
	// CatalogSchedule is a cron spec for the coarse catalog sync
	// (robfig/cron syntax, "@every 3h" style accepted).
	CatalogSchedule string `koanf:"catalog_schedule" validate:"required"`
	// StatusSchedule is a cron spec for the fine status sync.
	StatusSchedule string `koanf:"status_schedule" validate:"required"`
	// UnitConcurrency bounds the per-tick fan-out over organizing units.
	UnitConcurrency int `koanf:"unit_concurrency" validate:"gte=1"`
	// CatalogTickTimeout bounds one whole catalog tick.
	CatalogTickTimeout time.Duration `koanf:"catalog_tick_timeout" validate:"gt=0"`
	// StatusTickTimeout bounds one whole status tick.
	StatusTickTimeout time.Duration `koanf:"status_tick_timeout" validate:"gt=0"`
}

// ServerConfig configures the ops HTTP surface (health, metrics, calendar).
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// Addr returns the listen address in host:port form.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoggingConfig configures the zerolog global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration and returns a descriptive error for the
// first violated constraint.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config: field %s fails %q constraint", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
