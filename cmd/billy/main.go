// Billy - MultiGP Race Sync for Discord
// Copyright 2026 North Dakota Drone Racing
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/North-Dakota-Drone-Racing/billy

// Package main is the entry point for the billy bot.
//
// Billy keeps Discord scheduled events in step with a chapter's MultiGP
// race listings. Components start in the following order:
//
//  1. Configuration: environment variables and config file (Koanf v2)
//  2. Database: SQLite store for server bindings and tracked races
//  3. MultiGP client: circuit-breaker wrapped RaceSync API client
//  4. Discord session: gateway connection and scheduled-event client
//  5. Sync manager: cron-driven catalog and status reconciliation
//  6. HTTP server: health, Prometheus metrics, and iCalendar feeds
//
// All long-running pieces run under a suture supervision tree, so a
// Discord outage or a panicking sync pass restarts only the affected
// service.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables prefixed BILLY_, then a
// config.yaml, then built-in defaults. Minimum viable setup:
//
//	export BILLY_DISCORD_TOKEN=your-bot-token
//	./billy
//
// Optional Ollama-generated announcements:
//
//	export BILLY_OLLAMA_URL=http://localhost:11434
//	export BILLY_OLLAMA_MODEL=llama3
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: cron schedules drain,
// the gateway closes its websocket, and the HTTP server finishes
// in-flight requests before the process exits.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"

	"github.com/North-Dakota-Drone-Racing/billy/internal/api"
	"github.com/North-Dakota-Drone-Racing/billy/internal/config"
	"github.com/North-Dakota-Drone-Racing/billy/internal/database"
	"github.com/North-Dakota-Drone-Racing/billy/internal/discord"
	"github.com/North-Dakota-Drone-Racing/billy/internal/logging"
	"github.com/North-Dakota-Drone-Racing/billy/internal/multigp"
	"github.com/North-Dakota-Drone-Racing/billy/internal/ollama"
	"github.com/North-Dakota-Drone-Racing/billy/internal/supervisor"
	"github.com/North-Dakota-Drone-Racing/billy/internal/supervisor/services"
	"github.com/North-Dakota-Drone-Racing/billy/internal/sync"
	"github.com/North-Dakota-Drone-Racing/billy/internal/window"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("provider_url", cfg.Provider.BaseURL).
		Bool("ollama_enabled", cfg.Ollama.Enabled()).
		Msg("Configuration loaded")

	store, err := database.Open(cfg.Database.Path)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized")

	// Circuit breaker prevents hammering MultiGP when the API is down.
	provider := multigp.NewBreakerClient(&cfg.Provider)

	announcer := ollama.NewClient(&cfg.Ollama)
	if announcer.Active() {
		logging.Info().Str("model", cfg.Ollama.Model).Msg("Ollama announcements enabled")
	} else {
		logging.Info().Msg("Ollama announcements disabled")
	}

	// The timezone finder loads embedded polygon data; this is the
	// slowest part of startup.
	windows, err := window.NewCalculator()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize timezone finder")
	}

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create Discord session")
	}

	platform := discord.NewClient(session)
	gateway := discord.NewGateway(session, store, provider)

	publisher := sync.NewPublisher(provider, platform, windows, announcer)
	status := sync.NewStatusReconciler(store, platform)
	manager := sync.NewManager(&cfg.Sync, store, provider, publisher, status)

	server := api.NewServer(&cfg.Server, store, provider, windows)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddBotService(services.NewGatewayService(gateway))
	tree.AddBotService(services.NewSyncService(manager))
	tree.AddOpsService(services.NewHTTPService(server))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", cfg.Server.Addr()).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Billy stopped gracefully")
}
