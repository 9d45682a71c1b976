// Billy - MultiGP Race Sync for Discord
// Copyright 2026 North Dakota Drone Racing
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/North-Dakota-Drone-Racing/billy

package discord

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/North-Dakota-Drone-Racing/billy/internal/database"
	"github.com/North-Dakota-Drone-Racing/billy/internal/models"
)

type fakeStore struct {
	servers       map[string]models.Server
	chapterCounts map[string]int
	droppedChapter string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		servers:       make(map[string]models.Server),
		chapterCounts: make(map[string]int),
	}
}

func (f *fakeStore) UpsertServer(ctx context.Context, server models.Server) error {
	f.servers[server.GuildID] = server
	return nil
}

func (f *fakeStore) GetServer(ctx context.Context, guildID string) (*models.Server, error) {
	server, ok := f.servers[guildID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &server, nil
}

func (f *fakeStore) DeleteServer(ctx context.Context, guildID string) error {
	delete(f.servers, guildID)
	return nil
}

func (f *fakeStore) CountServersByChapter(ctx context.Context, chapterID string) (int, error) {
	return f.chapterCounts[chapterID], nil
}

func (f *fakeStore) DeleteRacesByChapter(ctx context.Context, chapterID string) error {
	f.droppedChapter = chapterID
	return nil
}

type fakeResolver struct {
	chapter *chapterInfo
	err     error
}

func (f fakeResolver) FindChapter(ctx context.Context, apiKey string) (*chapterInfo, error) {
	return f.chapter, f.err
}

type fakeResponder struct {
	deferred bool
	edited   string
	direct   string
}

func (f *fakeResponder) InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	if resp.Type == discordgo.InteractionResponseDeferredChannelMessageWithSource {
		f.deferred = true
		return nil
	}
	if resp.Data != nil {
		f.direct = resp.Data.Content
	}
	return nil
}

func (f *fakeResponder) InteractionResponseEdit(i *discordgo.Interaction, edit *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if edit.Content != nil {
		f.edited = *edit.Content
	}
	return &discordgo.Message{}, nil
}

func activateInteraction(guildID, channelID, apiKey string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:    discordgo.InteractionApplicationCommand,
			GuildID: guildID,
			Data: discordgo.ApplicationCommandInteractionData{
				Name: "activate",
				Options: []*discordgo.ApplicationCommandInteractionDataOption{
					{Name: "channel", Type: discordgo.ApplicationCommandOptionChannel, Value: channelID},
					{Name: "apikey", Type: discordgo.ApplicationCommandOptionString, Value: apiKey},
				},
			},
		},
	}
}

func TestHandleActivate(t *testing.T) {
	t.Run("valid key binds guild", func(t *testing.T) {
		store := newFakeStore()
		g := &Gateway{
			store:    store,
			resolver: fakeResolver{chapter: &chapterInfo{ID: "101", Name: "NDDR"}},
		}
		resp := &fakeResponder{}

		g.handleActivate(resp, activateInteraction("guild-1", "chan-1", "key-1"))

		if !resp.deferred {
			t.Error("interaction was not deferred")
		}
		server, ok := store.servers["guild-1"]
		if !ok {
			t.Fatal("guild not bound")
		}
		if server.ChapterID != "101" || server.ChannelID != "chan-1" || server.APIKey != "key-1" {
			t.Errorf("binding = %+v", server)
		}
		if !strings.Contains(resp.edited, "NDDR") {
			t.Errorf("confirmation should name the chapter: %q", resp.edited)
		}
	})

	t.Run("bad key does not bind", func(t *testing.T) {
		store := newFakeStore()
		g := &Gateway{
			store:    store,
			resolver: fakeResolver{err: errors.New("rejected")},
		}
		resp := &fakeResponder{}

		g.handleActivate(resp, activateInteraction("guild-1", "chan-1", "bogus"))

		if len(store.servers) != 0 {
			t.Error("guild bound despite rejected key")
		}
		if !strings.Contains(resp.edited, "not recognized") {
			t.Errorf("reply = %q", resp.edited)
		}
	})

	t.Run("outside a guild", func(t *testing.T) {
		g := &Gateway{store: newFakeStore(), resolver: fakeResolver{}}
		resp := &fakeResponder{}

		g.handleActivate(resp, activateInteraction("", "chan-1", "key-1"))

		if resp.direct == "" {
			t.Error("expected a direct refusal")
		}
	})
}

func TestHandleGuildRemove(t *testing.T) {
	t.Run("last guild drops chapter races", func(t *testing.T) {
		store := newFakeStore()
		store.servers["guild-1"] = models.Server{GuildID: "guild-1", ChapterID: "101"}
		store.chapterCounts["101"] = 0 // after deletion

		g := &Gateway{store: store, resolver: fakeResolver{}}
		g.handleGuildRemove("guild-1")

		if _, ok := store.servers["guild-1"]; ok {
			t.Error("binding not deleted")
		}
		if store.droppedChapter != "101" {
			t.Errorf("droppedChapter = %q, want 101", store.droppedChapter)
		}
	})

	t.Run("other guilds keep chapter races", func(t *testing.T) {
		store := newFakeStore()
		store.servers["guild-1"] = models.Server{GuildID: "guild-1", ChapterID: "101"}
		store.chapterCounts["101"] = 1

		g := &Gateway{store: store, resolver: fakeResolver{}}
		g.handleGuildRemove("guild-1")

		if store.droppedChapter != "" {
			t.Errorf("chapter races dropped while guild-2 still bound")
		}
	})

	t.Run("unknown guild is a no-op", func(t *testing.T) {
		store := newFakeStore()
		g := &Gateway{store: store, resolver: fakeResolver{}}
		g.handleGuildRemove("stranger")

		if store.droppedChapter != "" {
			t.Error("nothing should be dropped")
		}
	})
}
