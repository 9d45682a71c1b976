// Billy - MultiGP Race Sync for Discord
// Copyright 2026 North Dakota Drone Racing
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/North-Dakota-Drone-Racing/billy

package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/North-Dakota-Drone-Racing/billy/internal/discord"
	"github.com/North-Dakota-Drone-Racing/billy/internal/logging"
	"github.com/North-Dakota-Drone-Racing/billy/internal/metrics"
	"github.com/North-Dakota-Drone-Racing/billy/internal/models"
	"github.com/North-Dakota-Drone-Racing/billy/internal/multigp"
	"github.com/North-Dakota-Drone-Racing/billy/internal/window"
)

// errRejected marks races that are skipped this cycle without being tracked:
// quiet hours, unresolvable venue, or a failed detail fetch. The next catalog
// cycle sees them as added again.
var errRejected = errors.New("sync: race rejected this cycle")

// evaluator decides what to do with a fetched race. Satisfied by
// window.Calculator.
type evaluator interface {
	Evaluate(race *models.RaceDetail) (models.RaceWindow, window.Decision, error)
}

// announcer generates announcement copy. Satisfied by ollama.Client.
type announcer interface {
	Active() bool
	Generate(ctx context.Context, prompt string) (string, error)
}

// Publisher turns newly discovered races into Discord scheduled events.
// Each race is attempted at most once: a failed creation is tracked as
// publish_failed and never retried.
type Publisher struct {
	provider  multigp.API
	platform  discord.EventPlatform
	evaluator evaluator
	announcer announcer

	// announceTimeout bounds the fire-and-forget announcement; text
	// generation on modest hardware dominates it.
	announceTimeout time.Duration
}

// NewPublisher wires the publisher's collaborators.
func NewPublisher(provider multigp.API, platform discord.EventPlatform, eval evaluator, ann announcer) *Publisher {
	return &Publisher{
		provider:        provider,
		platform:        platform,
		evaluator:       eval,
		announcer:       ann,
		announceTimeout: 3 * time.Minute,
	}
}

// PublishRace evaluates one newly discovered race for one guild and returns
// the tracking row to persist. A nil row with errRejected means the race is
// not tracked this cycle.
func (p *Publisher) PublishRace(ctx context.Context, server models.Server, listing models.RaceListing) (*models.TrackedRace, error) {
	detail, err := p.provider.GetRace(ctx, listing.RaceID, server.APIKey)
	if err != nil {
		metrics.RacesDiscovered.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: detail fetch: %w", errRejected, err)
	}

	win, decision, err := p.evaluator.Evaluate(detail)
	if err != nil {
		metrics.RacesDiscovered.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: %w", errRejected, err)
	}

	if decision == window.DecisionAlreadyStarted {
		metrics.RacesDiscovered.WithLabelValues("already_started").Inc()
		logging.Debug().Str("race_id", listing.RaceID).Msg("Race already started, tracking without event")
		return &models.TrackedRace{
			RaceID:    listing.RaceID,
			ChapterID: server.ChapterID,
			State:     models.StateAlreadyStarted,
		}, nil
	}

	eventID, eventURL, err := p.platform.CreateScheduledEvent(ctx, server.GuildID, detail, win)
	if err != nil {
		metrics.RacesDiscovered.WithLabelValues("publish_failed").Inc()
		logging.Error().Err(err).
			Str("race_id", listing.RaceID).
			Str("guild_id", server.GuildID).
			Msg("Failed to create scheduled event")
		return &models.TrackedRace{
			RaceID:    listing.RaceID,
			ChapterID: server.ChapterID,
			State:     models.StatePublishFailed,
		}, nil
	}

	metrics.RacesDiscovered.WithLabelValues("published").Inc()
	logging.Info().
		Str("race_id", listing.RaceID).
		Str("event_id", eventID).
		Str("guild_id", server.GuildID).
		Str("timezone", win.Timezone).
		Msg("Scheduled new event")

	if p.announcer != nil && p.announcer.Active() {
		go p.announce(server, detail, win, eventURL)
	}

	return &models.TrackedRace{
		RaceID:    listing.RaceID,
		ChapterID: server.ChapterID,
		State:     models.StatePublished,
		EventID:   eventID,
	}, nil
}

// announce generates and posts the announcement for a freshly published
// event. Best effort: failures are logged and otherwise ignored.
func (p *Publisher) announce(server models.Server, race *models.RaceDetail, win models.RaceWindow, eventURL string) {
	ctx, cancel := context.WithTimeout(context.Background(), p.announceTimeout)
	defer cancel()

	prompt := fmt.Sprintf(
		"Cleverly announce an upcoming drone racing event called %s "+
			"to the members of drone racing group named %s. It will occur on %s.",
		race.Name, race.ChapterName, win.Start.Format("2006-1-2"))

	text, err := p.announcer.Generate(ctx, prompt)
	if err != nil {
		logging.Warn().Err(err).Str("race_id", race.RaceID).Msg("Announcement generation failed")
		return
	}

	content := fmt.Sprintf("@everyone %s\n%s", text, eventURL)
	if err := p.platform.Announce(ctx, server.ChannelID, content); err != nil {
		logging.Warn().Err(err).Str("race_id", race.RaceID).Msg("Announcement send failed")
		return
	}

	metrics.AnnouncementsSent.Inc()
	logging.Info().Str("race_id", race.RaceID).Msg("Announced new event")
}
