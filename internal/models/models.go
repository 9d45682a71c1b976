// Billy - MultiGP Race Sync for Discord
// Copyright 2026 North Dakota Drone Racing
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/North-Dakota-Drone-Racing/billy

// Package models defines the persistent and transient data types shared
// across the sync engine, the store, and the collaborator adapters.
package models

import "time"

// Server is an organizing unit: a Discord guild bound to one MultiGP chapter.
// A chapter may be bound by more than one guild; a guild binds at most one
// chapter. Created by the /activate command, deleted when the bot leaves the
// guild.
type Server struct {
	// GuildID is the Discord guild snowflake. Unique per Server.
	GuildID string
	// ChannelID is the announcement channel within the guild.
	ChannelID string
	// ChapterID is the bound MultiGP chapter.
	ChapterID string
	// APIKey is the chapter's RaceSync API credential.
	APIKey string
}

// PublishState records the outcome of evaluating a newly discovered race.
// Races rejected for the cycle (geo resolution failure, outside quiet hours,
// detail fetch failure) are not persisted at all and therefore carry no state;
// they re-enter the diff as "added" on the next cycle.
type PublishState string

const (
	// StatePublished means a Discord scheduled event was created; EventID is set.
	StatePublished PublishState = "published"
	// StateAlreadyStarted means the race start had passed at discovery time,
	// so no event was warranted. Tracked to keep it out of future diffs.
	StateAlreadyStarted PublishState = "already_started"
	// StatePublishFailed means event creation was attempted once and failed.
	// The race stays tracked; creation is not retried.
	StatePublishFailed PublishState = "publish_failed"
)

// TrackedRace is a MultiGP race the engine has recorded for a chapter.
// EventID is set exactly when State is StatePublished and is never mutated
// after insertion.
type TrackedRace struct {
	RaceID    string
	ChapterID string
	State     PublishState
	// EventID is the Discord scheduled event snowflake, empty unless published.
	EventID string
}

// Published reports whether the race has a live scheduled event to reconcile.
func (r TrackedRace) Published() bool {
	return r.State == StatePublished && r.EventID != ""
}

// RaceWindow is the resolved scheduling window for a race. It is derived
// fresh each catalog cycle and never persisted; after publication the remote
// platform holds the instants of record.
type RaceWindow struct {
	// Timezone is the IANA zone resolved from the race coordinates.
	Timezone string
	// Start is the absolute start instant.
	Start time.Time
	// End is the absolute end instant (defaulted to Start+3h when the
	// provider supplies none, or a non-positive span).
	End time.Time
}

// RaceListing is one entry of a chapter's current race list.
type RaceListing struct {
	RaceID string
	Name   string
}

// RaceDetail is the full provider record for a single race, fetched only for
// races newly observed in a cycle.
type RaceDetail struct {
	RaceID      string
	Name        string
	Latitude    float64
	Longitude   float64
	// StartLocal and EndLocal are naive local timestamps in the provider's
	// "2006-01-02 3:04 PM" format; EndLocal may be empty.
	StartLocal  string
	EndLocal    string
	Description string
	VenueName   string
	ChapterName string
}

// EventStatus mirrors the remote platform's scheduled-event lifecycle.
type EventStatus string

const (
	EventScheduled EventStatus = "scheduled"
	EventActive    EventStatus = "active"
	EventCompleted EventStatus = "completed"
	EventCanceled  EventStatus = "canceled"
)

// RemoteEvent is the status-relevant view of a Discord scheduled event.
// End is nil when the remote platform holds no end instant.
type RemoteEvent struct {
	EventID string
	Status  EventStatus
	Start   time.Time
	End     *time.Time
}
