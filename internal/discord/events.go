// Billy - MultiGP Race Sync for Discord
// Copyright 2026 North Dakota Drone Racing
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/North-Dakota-Drone-Racing/billy

/*
events.go - Scheduled Event Adapter

Wraps the discordgo REST surface the sync engine needs: creating external
scheduled events for races, reading an event's live status, and driving the
scheduled -> active -> completed transitions. Discord is the system of
record for event instants once an event exists; the local store only keeps
the event ID.
*/
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/North-Dakota-Drone-Racing/billy/internal/models"
)

// ErrEventNotFound means the scheduled event no longer exists on Discord
// (deleted by a moderator, or cancelled).
var ErrEventNotFound = errors.New("discord: scheduled event not found")

// EventPlatform is the sync engine's view of Discord. Implemented by Client;
// tests substitute mocks.
type EventPlatform interface {
	CreateScheduledEvent(ctx context.Context, guildID string, race *models.RaceDetail, window models.RaceWindow) (eventID, eventURL string, err error)
	GetScheduledEvent(ctx context.Context, guildID, eventID string) (*models.RemoteEvent, error)
	StartEvent(ctx context.Context, guildID, eventID string) error
	EndEvent(ctx context.Context, guildID, eventID string) error
	Announce(ctx context.Context, channelID, content string) error
}

// session is the slice of discordgo.Session the adapter calls.
type session interface {
	GuildScheduledEventCreate(guildID string, event *discordgo.GuildScheduledEventParams, options ...discordgo.RequestOption) (*discordgo.GuildScheduledEvent, error)
	GuildScheduledEvent(guildID, eventID string, userCount bool, options ...discordgo.RequestOption) (*discordgo.GuildScheduledEvent, error)
	GuildScheduledEventEdit(guildID, eventID string, event *discordgo.GuildScheduledEventParams, options ...discordgo.RequestOption) (*discordgo.GuildScheduledEvent, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Client implements EventPlatform over a discordgo session. Safe for
// concurrent use; discordgo serializes REST calls per rate limit bucket.
type Client struct {
	session session
}

var _ EventPlatform = (*Client)(nil)

// NewClient wraps an open discordgo session.
func NewClient(s *discordgo.Session) *Client {
	return &Client{session: s}
}

// CreateScheduledEvent publishes a race as an external scheduled event and
// returns the event ID and shareable URL.
func (c *Client) CreateScheduledEvent(ctx context.Context, guildID string, race *models.RaceDetail, window models.RaceWindow) (string, string, error) {
	description := fmt.Sprintf(
		"[Sign Up on MultiGP](https://www.multigp.com/races/view/?race=%s)\n\n%s",
		race.RaceID, race.Description)

	start := window.Start
	end := window.End
	params := &discordgo.GuildScheduledEventParams{
		Name:               race.Name,
		Description:        description,
		ScheduledStartTime: &start,
		ScheduledEndTime:   &end,
		PrivacyLevel:       discordgo.GuildScheduledEventPrivacyLevelGuildOnly,
		EntityType:         discordgo.GuildScheduledEventEntityTypeExternal,
		EntityMetadata: &discordgo.GuildScheduledEventEntityMetadata{
			Location: race.VenueName,
		},
	}

	event, err := c.session.GuildScheduledEventCreate(guildID, params, discordgo.WithContext(ctx))
	if err != nil {
		return "", "", fmt.Errorf("create scheduled event for race %s: %w", race.RaceID, err)
	}

	url := fmt.Sprintf("https://discord.com/events/%s/%s", guildID, event.ID)
	return event.ID, url, nil
}

// GetScheduledEvent reads the live state of an event. A missing event is
// reported as ErrEventNotFound.
func (c *Client) GetScheduledEvent(ctx context.Context, guildID, eventID string) (*models.RemoteEvent, error) {
	event, err := c.session.GuildScheduledEvent(guildID, eventID, false, discordgo.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("event %s: %w", eventID, ErrEventNotFound)
		}
		return nil, fmt.Errorf("get scheduled event %s: %w", eventID, err)
	}

	return &models.RemoteEvent{
		EventID: event.ID,
		Status:  statusFromDiscord(event.Status),
		Start:   event.ScheduledStartTime,
		End:     event.ScheduledEndTime,
	}, nil
}

// StartEvent transitions a scheduled event to active.
func (c *Client) StartEvent(ctx context.Context, guildID, eventID string) error {
	return c.setStatus(ctx, guildID, eventID, discordgo.GuildScheduledEventStatusActive)
}

// EndEvent transitions an active event to completed.
func (c *Client) EndEvent(ctx context.Context, guildID, eventID string) error {
	return c.setStatus(ctx, guildID, eventID, discordgo.GuildScheduledEventStatusCompleted)
}

func (c *Client) setStatus(ctx context.Context, guildID, eventID string, status discordgo.GuildScheduledEventStatus) error {
	params := &discordgo.GuildScheduledEventParams{Status: status}
	if _, err := c.session.GuildScheduledEventEdit(guildID, eventID, params, discordgo.WithContext(ctx)); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("event %s: %w", eventID, ErrEventNotFound)
		}
		return fmt.Errorf("edit scheduled event %s: %w", eventID, err)
	}
	return nil
}

// Announce posts a message to a guild's announcement channel.
func (c *Client) Announce(ctx context.Context, channelID, content string) error {
	if _, err := c.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("announce to channel %s: %w", channelID, err)
	}
	return nil
}

// isNotFound reports whether a discordgo REST error is an HTTP 404.
func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}

func statusFromDiscord(status discordgo.GuildScheduledEventStatus) models.EventStatus {
	switch status {
	case discordgo.GuildScheduledEventStatusScheduled:
		return models.EventScheduled
	case discordgo.GuildScheduledEventStatusActive:
		return models.EventActive
	case discordgo.GuildScheduledEventStatusCompleted:
		return models.EventCompleted
	case discordgo.GuildScheduledEventStatusCanceled:
		return models.EventCanceled
	default:
		return models.EventStatus(fmt.Sprintf("unknown(%d)", status))
	}
}
