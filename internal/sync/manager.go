// Billy - MultiGP Race Sync for Discord
// Copyright 2026 North Dakota Drone Racing
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/North-Dakota-Drone-Racing/billy

/*
manager.go - Periodic Sync Drivers

Two cron-driven loops share this manager:

  - Catalog sync (default every 3h): per bound guild, diff the chapter's
    remote race listing against the tracked set, publish additions, drop
    removals. Guilds of the same chapter are serialized with a keyed mutex
    so the first guild to publish wins and the rest see the race as tracked.
  - Status sync (default every 15m): walk published events and drive the
    scheduled -> active -> completed transitions from Discord's own instants.

Ticks never overlap themselves (SkipIfStillRunning) and every unit failure
is isolated: one chapter's dead API key or one broken event never stalls
the rest of the tick.
*/
package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/North-Dakota-Drone-Racing/billy/internal/config"
	"github.com/North-Dakota-Drone-Racing/billy/internal/logging"
	"github.com/North-Dakota-Drone-Racing/billy/internal/metrics"
	"github.com/North-Dakota-Drone-Racing/billy/internal/models"
	"github.com/North-Dakota-Drone-Racing/billy/internal/multigp"
)

// managerStore is the slice of the database the catalog sync needs.
type managerStore interface {
	statusStore
	ListServers(ctx context.Context) ([]models.Server, error)
	TrackedRaceIDs(ctx context.Context, chapterID string) (map[string]struct{}, error)
	InsertRaces(ctx context.Context, races []models.TrackedRace) error
	DeleteRaces(ctx context.Context, raceIDs []string) error
}

// Manager owns the cron scheduler and the two sync loops.
type Manager struct {
	cfg       *config.SyncConfig
	store     managerStore
	provider  multigp.API
	publisher *Publisher
	status    *StatusReconciler

	cron *cron.Cron

	// chapterLocks serializes catalog units that share a chapter.
	mu           stdsync.Mutex
	chapterLocks map[string]*stdsync.Mutex
}

// NewManager wires the sync loops. Start must be called to begin ticking.
func NewManager(cfg *config.SyncConfig, store managerStore, provider multigp.API, publisher *Publisher, status *StatusReconciler) *Manager {
	cronLogger := newCronLogger()
	return &Manager{
		cfg:       cfg,
		store:     store,
		provider:  provider,
		publisher: publisher,
		status:    status,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cronLogger),
			cron.Recover(cronLogger),
		)),
		chapterLocks: make(map[string]*stdsync.Mutex),
	}
}

// Start registers both schedules, runs one immediate catalog pass, and
// starts the scheduler.
func (m *Manager) Start() error {
	if _, err := m.cron.AddFunc(m.cfg.CatalogSchedule, m.catalogTick); err != nil {
		return fmt.Errorf("sync: invalid catalog schedule %q: %w", m.cfg.CatalogSchedule, err)
	}
	if _, err := m.cron.AddFunc(m.cfg.StatusSchedule, m.statusTick); err != nil {
		return fmt.Errorf("sync: invalid status schedule %q: %w", m.cfg.StatusSchedule, err)
	}

	// First catalog pass runs now rather than a full period from now.
	go m.catalogTick()

	m.cron.Start()
	logging.Info().
		Str("catalog_schedule", m.cfg.CatalogSchedule).
		Str("status_schedule", m.cfg.StatusSchedule).
		Msg("Sync manager started")
	return nil
}

// Stop halts the scheduler and waits for any running tick to finish.
func (m *Manager) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	logging.Info().Msg("Sync manager stopped")
}

// catalogTick reconciles every bound guild against its chapter's remote
// listing, with bounded concurrency.
func (m *Manager) catalogTick() {
	started := time.Now()
	defer func() {
		metrics.CatalogTickDuration.Observe(time.Since(started).Seconds())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.CatalogTickTimeout)
	defer cancel()

	servers, err := m.store.ListServers(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("Catalog tick: failed to list servers")
		return
	}
	if len(servers) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.UnitConcurrency)
	for _, server := range servers {
		g.Go(func() error {
			if err := m.syncUnit(gctx, server); err != nil {
				metrics.CatalogUnitFailures.Inc()
				logging.Error().Err(err).
					Str("guild_id", server.GuildID).
					Str("chapter_id", server.ChapterID).
					Msg("Catalog unit failed")
			}
			// Unit failures are isolated; never cancel sibling units.
			return nil
		})
	}
	_ = g.Wait()

	logging.Debug().Int("units", len(servers)).Dur("elapsed", time.Since(started)).Msg("Catalog tick complete")
}

// syncUnit reconciles one guild/chapter pair. Units sharing a chapter are
// serialized so only the first publishes events for a new race.
func (m *Manager) syncUnit(ctx context.Context, server models.Server) error {
	lock := m.chapterLock(server.ChapterID)
	lock.Lock()
	defer lock.Unlock()

	remote, err := m.provider.ListRaces(ctx, server.ChapterID, server.APIKey)
	if err != nil {
		return fmt.Errorf("list remote races: %w", err)
	}

	tracked, err := m.store.TrackedRaceIDs(ctx, server.ChapterID)
	if err != nil {
		return fmt.Errorf("load tracked races: %w", err)
	}

	diff := computeDiff(remote, tracked)
	if diff.Empty() {
		return nil
	}

	var inserts []models.TrackedRace
	for _, listing := range diff.Added {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		race, err := m.publisher.PublishRace(ctx, server, listing)
		if err != nil {
			// Rejected this cycle; the next tick re-evaluates it.
			logging.Debug().Err(err).Str("race_id", listing.RaceID).Msg("Race not tracked this cycle")
			continue
		}
		inserts = append(inserts, *race)
	}

	if err := m.store.InsertRaces(ctx, inserts); err != nil {
		return fmt.Errorf("insert races: %w", err)
	}
	if err := m.store.DeleteRaces(ctx, diff.Removed); err != nil {
		return fmt.Errorf("delete races: %w", err)
	}
	if n := len(diff.Removed); n > 0 {
		metrics.RacesRemoved.Add(float64(n))
	}

	logging.Info().
		Str("chapter_id", server.ChapterID).
		Int("added", len(inserts)).
		Int("removed", len(diff.Removed)).
		Msg("Chapter reconciled")
	return nil
}

// statusTick runs one status reconciliation pass.
func (m *Manager) statusTick() {
	started := time.Now()
	defer func() {
		metrics.StatusTickDuration.Observe(time.Since(started).Seconds())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.StatusTickTimeout)
	defer cancel()

	if err := m.status.Run(ctx); err != nil {
		logging.Error().Err(err).Msg("Status tick failed")
	}
}

func (m *Manager) chapterLock(chapterID string) *stdsync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.chapterLocks[chapterID]
	if !ok {
		lock = &stdsync.Mutex{}
		m.chapterLocks[chapterID] = lock
	}
	return lock
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{}

func newCronLogger() cronLogger { return cronLogger{} }

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logging.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logging.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
