// Billy - MultiGP Race Sync for Discord
// Copyright 2026 North Dakota Drone Racing
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/North-Dakota-Drone-Racing/billy

package discord

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/North-Dakota-Drone-Racing/billy/internal/models"
)

// fakeSession records calls and plays back canned responses.
type fakeSession struct {
	createdParams *discordgo.GuildScheduledEventParams
	editedParams  *discordgo.GuildScheduledEventParams
	editedEventID string
	sentContent   string

	event    *discordgo.GuildScheduledEvent
	getErr   error
	editErr  error
	sendErr  error
	createID string
}

func (f *fakeSession) GuildScheduledEventCreate(guildID string, event *discordgo.GuildScheduledEventParams, options ...discordgo.RequestOption) (*discordgo.GuildScheduledEvent, error) {
	f.createdParams = event
	return &discordgo.GuildScheduledEvent{ID: f.createID, GuildID: guildID}, nil
}

func (f *fakeSession) GuildScheduledEvent(guildID, eventID string, userCount bool, options ...discordgo.RequestOption) (*discordgo.GuildScheduledEvent, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.event, nil
}

func (f *fakeSession) GuildScheduledEventEdit(guildID, eventID string, event *discordgo.GuildScheduledEventParams, options ...discordgo.RequestOption) (*discordgo.GuildScheduledEvent, error) {
	if f.editErr != nil {
		return nil, f.editErr
	}
	f.editedEventID = eventID
	f.editedParams = event
	return &discordgo.GuildScheduledEvent{ID: eventID}, nil
}

func (f *fakeSession) ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sentContent = content
	return &discordgo.Message{}, nil
}

func notFoundErr() error {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusNotFound},
	}
}

func TestCreateScheduledEvent(t *testing.T) {
	fake := &fakeSession{createID: "event-1"}
	c := &Client{session: fake}

	loc, _ := time.LoadLocation("UTC")
	window := models.RaceWindow{
		Timezone: "UTC",
		Start:    time.Date(2026, 6, 6, 15, 0, 0, 0, loc),
		End:      time.Date(2026, 6, 6, 21, 0, 0, 0, loc),
	}
	race := &models.RaceDetail{
		RaceID:      "7",
		Name:        "Spring GP",
		Description: "Qualifiers",
		VenueName:   "Lindenwood Park",
	}

	eventID, url, err := c.CreateScheduledEvent(context.Background(), "guild-1", race, window)
	if err != nil {
		t.Fatalf("CreateScheduledEvent: %v", err)
	}
	if eventID != "event-1" {
		t.Errorf("eventID = %q", eventID)
	}
	if url != "https://discord.com/events/guild-1/event-1" {
		t.Errorf("url = %q", url)
	}

	params := fake.createdParams
	if params.Name != "Spring GP" {
		t.Errorf("event name = %q", params.Name)
	}
	if params.EntityType != discordgo.GuildScheduledEventEntityTypeExternal {
		t.Errorf("entity type = %v, want external", params.EntityType)
	}
	if params.EntityMetadata == nil || params.EntityMetadata.Location != "Lindenwood Park" {
		t.Errorf("location = %+v", params.EntityMetadata)
	}
	if params.ScheduledStartTime == nil || !params.ScheduledStartTime.Equal(window.Start) {
		t.Errorf("start = %v", params.ScheduledStartTime)
	}
	if params.ScheduledEndTime == nil || !params.ScheduledEndTime.Equal(window.End) {
		t.Errorf("end = %v", params.ScheduledEndTime)
	}
	wantLink := "https://www.multigp.com/races/view/?race=7"
	if !strings.Contains(params.Description, wantLink) {
		t.Errorf("description missing signup link: %q", params.Description)
	}
}

func TestGetScheduledEvent(t *testing.T) {
	t.Run("active with end", func(t *testing.T) {
		end := time.Date(2026, 6, 6, 21, 0, 0, 0, time.UTC)
		fake := &fakeSession{event: &discordgo.GuildScheduledEvent{
			ID:                 "event-1",
			Status:             discordgo.GuildScheduledEventStatusActive,
			ScheduledStartTime: time.Date(2026, 6, 6, 15, 0, 0, 0, time.UTC),
			ScheduledEndTime:   &end,
		}}
		c := &Client{session: fake}

		remote, err := c.GetScheduledEvent(context.Background(), "guild-1", "event-1")
		if err != nil {
			t.Fatalf("GetScheduledEvent: %v", err)
		}
		if remote.Status != models.EventActive {
			t.Errorf("status = %q", remote.Status)
		}
		if remote.End == nil || !remote.End.Equal(end) {
			t.Errorf("end = %v", remote.End)
		}
	})

	t.Run("deleted event", func(t *testing.T) {
		fake := &fakeSession{getErr: notFoundErr()}
		c := &Client{session: fake}

		_, err := c.GetScheduledEvent(context.Background(), "guild-1", "gone")
		if !errors.Is(err, ErrEventNotFound) {
			t.Errorf("err = %v, want ErrEventNotFound", err)
		}
	})

	t.Run("other REST error", func(t *testing.T) {
		fake := &fakeSession{getErr: &discordgo.RESTError{
			Response: &http.Response{StatusCode: http.StatusForbidden},
		}}
		c := &Client{session: fake}

		_, err := c.GetScheduledEvent(context.Background(), "guild-1", "event-1")
		if err == nil || errors.Is(err, ErrEventNotFound) {
			t.Errorf("403 must not map to ErrEventNotFound, got: %v", err)
		}
	})
}

func TestStartAndEndEvent(t *testing.T) {
	fake := &fakeSession{}
	c := &Client{session: fake}

	if err := c.StartEvent(context.Background(), "guild-1", "event-1"); err != nil {
		t.Fatalf("StartEvent: %v", err)
	}
	if fake.editedParams.Status != discordgo.GuildScheduledEventStatusActive {
		t.Errorf("start status = %v", fake.editedParams.Status)
	}

	if err := c.EndEvent(context.Background(), "guild-1", "event-1"); err != nil {
		t.Fatalf("EndEvent: %v", err)
	}
	if fake.editedParams.Status != discordgo.GuildScheduledEventStatusCompleted {
		t.Errorf("end status = %v", fake.editedParams.Status)
	}

	fake.editErr = notFoundErr()
	if err := c.StartEvent(context.Background(), "guild-1", "gone"); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("err = %v, want ErrEventNotFound", err)
	}
}

func TestAnnounce(t *testing.T) {
	fake := &fakeSession{}
	c := &Client{session: fake}

	if err := c.Announce(context.Background(), "chan-1", "@everyone race time"); err != nil {
		t.Fatalf("Announce: %v", err)
	}
	if fake.sentContent != "@everyone race time" {
		t.Errorf("content = %q", fake.sentContent)
	}
}
