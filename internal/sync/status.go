// Billy - MultiGP Race Sync for Discord
// Copyright 2026 North Dakota Drone Racing
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/North-Dakota-Drone-Racing/billy

package sync

import (
	"context"
	"errors"
	"time"

	"github.com/North-Dakota-Drone-Racing/billy/internal/discord"
	"github.com/North-Dakota-Drone-Racing/billy/internal/logging"
	"github.com/North-Dakota-Drone-Racing/billy/internal/metrics"
	"github.com/North-Dakota-Drone-Racing/billy/internal/models"
)

// statusStore is the slice of the database the status reconciler reads.
type statusStore interface {
	ListPublishedRaces(ctx context.Context) ([]models.TrackedRace, error)
	ListServersByChapter(ctx context.Context, chapterID string) ([]models.Server, error)
}

// StatusReconciler drives published events through their lifecycle on a
// faster cadence than the catalog sync. Discord holds the instants of
// record: an event whose start has passed is started, an active event whose
// end has passed is completed. Events with no end instant are never
// completed automatically.
type StatusReconciler struct {
	store    statusStore
	platform discord.EventPlatform
	now      func() time.Time
}

// NewStatusReconciler wires the reconciler.
func NewStatusReconciler(store statusStore, platform discord.EventPlatform) *StatusReconciler {
	return &StatusReconciler{
		store:    store,
		platform: platform,
		now:      time.Now,
	}
}

// Run performs one status pass. Failures are isolated per race and per
// guild; one broken event never blocks the rest of the pass.
func (r *StatusReconciler) Run(ctx context.Context) error {
	races, err := r.store.ListPublishedRaces(ctx)
	if err != nil {
		return err
	}

	for _, race := range races {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.reconcileRace(ctx, race)
	}
	return nil
}

// reconcileRace checks the race's event in every guild bound to its chapter.
// Only the guild that owns the event finds it; the others see not-found and
// skip.
func (r *StatusReconciler) reconcileRace(ctx context.Context, race models.TrackedRace) {
	servers, err := r.store.ListServersByChapter(ctx, race.ChapterID)
	if err != nil {
		logging.Error().Err(err).Str("chapter_id", race.ChapterID).Msg("Failed to list chapter guilds")
		return
	}

	for _, server := range servers {
		remote, err := r.platform.GetScheduledEvent(ctx, server.GuildID, race.EventID)
		if err != nil {
			if errors.Is(err, discord.ErrEventNotFound) {
				continue
			}
			logging.Warn().Err(err).
				Str("event_id", race.EventID).
				Str("guild_id", server.GuildID).
				Msg("Failed to fetch scheduled event")
			continue
		}

		r.transition(ctx, server.GuildID, race, remote)
	}
}

func (r *StatusReconciler) transition(ctx context.Context, guildID string, race models.TrackedRace, remote *models.RemoteEvent) {
	now := r.now()

	switch remote.Status {
	case models.EventScheduled:
		if !now.After(remote.Start) {
			return
		}
		if err := r.platform.StartEvent(ctx, guildID, race.EventID); err != nil {
			metrics.EventTransitionFailures.Inc()
			logging.Warn().Err(err).Str("event_id", race.EventID).Msg("Failed to start event")
			return
		}
		metrics.EventTransitions.WithLabelValues("start").Inc()
		logging.Info().Str("event_id", race.EventID).Str("race_id", race.RaceID).Msg("Event started")

	case models.EventActive:
		if remote.End == nil || !now.After(*remote.End) {
			return
		}
		if err := r.platform.EndEvent(ctx, guildID, race.EventID); err != nil {
			metrics.EventTransitionFailures.Inc()
			logging.Warn().Err(err).Str("event_id", race.EventID).Msg("Failed to end event")
			return
		}
		metrics.EventTransitions.WithLabelValues("end").Inc()
		logging.Info().Str("event_id", race.EventID).Str("race_id", race.RaceID).Msg("Event completed")
	}
}
