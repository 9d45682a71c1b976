// Billy - MultiGP Race Sync for Discord
// Copyright 2026 North Dakota Drone Racing
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/North-Dakota-Drone-Racing/billy

/*
gateway.go - Discord Gateway Binding

Owns the bot's gateway connection and the two guild-facing behaviors:

  - /activate <channel> <apikey>: validates the MultiGP API key against the
    chapter lookup endpoint and binds the guild to the resolved chapter.
    Re-running the command rebinds the guild.
  - Guild removal: when the bot is kicked, the binding is deleted; if that
    was the last guild bound to the chapter, the chapter's tracked races are
    dropped too so a future re-activation republishes from scratch.
*/
package discord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/North-Dakota-Drone-Racing/billy/internal/database"
	"github.com/North-Dakota-Drone-Racing/billy/internal/logging"
	"github.com/North-Dakota-Drone-Racing/billy/internal/models"
	"github.com/North-Dakota-Drone-Racing/billy/internal/multigp"
)

// interactionTimeout bounds the chapter lookup inside an interaction; Discord
// voids the interaction token after 3 seconds unless deferred, so the
// response is deferred first.
const interactionTimeout = 15 * time.Second

// gatewayStore is the slice of the database the gateway needs.
type gatewayStore interface {
	UpsertServer(ctx context.Context, server models.Server) error
	GetServer(ctx context.Context, guildID string) (*models.Server, error)
	DeleteServer(ctx context.Context, guildID string) error
	CountServersByChapter(ctx context.Context, chapterID string) (int, error)
	DeleteRacesByChapter(ctx context.Context, chapterID string) error
}

// responder is the interaction surface of discordgo.Session.
type responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// chapterInfo narrows the provider response to what the gateway reads.
type chapterInfo struct {
	ID   string
	Name string
}

// chapterResolver is the slice of the MultiGP API the gateway needs.
type chapterResolver interface {
	FindChapter(ctx context.Context, apiKey string) (*chapterInfo, error)
}

// resolverAdapter adapts multigp.API to chapterResolver.
type resolverAdapter struct {
	api multigp.API
}

func (r resolverAdapter) FindChapter(ctx context.Context, apiKey string) (*chapterInfo, error) {
	resp, err := r.api.FindChapter(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return &chapterInfo{ID: resp.ChapterID, Name: resp.ChapterName}, nil
}

// Gateway runs the bot's gateway connection and guild-facing commands.
type Gateway struct {
	session  *discordgo.Session
	store    gatewayStore
	resolver chapterResolver
}

// NewGateway builds a Gateway over an existing session. The session must not
// be open yet; Run opens and closes it.
func NewGateway(session *discordgo.Session, store gatewayStore, api multigp.API) *Gateway {
	session.Identify.Intents = discordgo.IntentsGuilds
	return &Gateway{
		session:  session,
		store:    store,
		resolver: resolverAdapter{api: api},
	}
}

// activateCommand is the /activate slash command definition.
var activateCommand = &discordgo.ApplicationCommand{
	Name:        "activate",
	Description: "Bind this server to a MultiGP chapter",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionChannel,
			Name:        "channel",
			Description: "Channel for race announcements",
			Required:    true,
			ChannelTypes: []discordgo.ChannelType{
				discordgo.ChannelTypeGuildText,
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "apikey",
			Description: "MultiGP chapter API key",
			Required:    true,
		},
	},
}

// Run connects to the gateway, registers the slash command, and blocks until
// the context is cancelled.
func (g *Gateway) Run(ctx context.Context) error {
	g.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		if i.ApplicationCommandData().Name != activateCommand.Name {
			return
		}
		g.handleActivate(s, i)
	})
	g.session.AddHandler(func(s *discordgo.Session, gd *discordgo.GuildDelete) {
		// BeforeDelete is nil on outages; only a real removal carries it.
		if gd.Unavailable {
			return
		}
		g.handleGuildRemove(gd.ID)
	})

	if err := g.session.Open(); err != nil {
		return fmt.Errorf("gateway: open session: %w", err)
	}
	defer g.session.Close()

	appID := g.session.State.User.ID
	if _, err := g.session.ApplicationCommandCreate(appID, "", activateCommand); err != nil {
		return fmt.Errorf("gateway: register /activate: %w", err)
	}

	logging.Info().Str("user", g.session.State.User.Username).Msg("Gateway connected")

	<-ctx.Done()
	return ctx.Err()
}

// handleActivate validates the submitted API key and binds the guild.
func (g *Gateway) handleActivate(s responder, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		g.respond(s, i, "This command only works inside a server.")
		return
	}

	var channelID, apiKey string
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "channel":
			channelID = opt.ChannelValue(nil).ID
		case "apikey":
			apiKey = opt.StringValue()
		}
	}

	// Defer: the chapter lookup can exceed Discord's 3s interaction window.
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		logging.Error().Err(err).Str("guild_id", i.GuildID).Msg("Failed to defer interaction")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	chapter, err := g.resolver.FindChapter(ctx, apiKey)
	if err != nil {
		logging.Warn().Err(err).Str("guild_id", i.GuildID).Msg("Chapter lookup failed for /activate")
		g.followUp(s, i, "API key not recognized.")
		return
	}

	server := models.Server{
		GuildID:   i.GuildID,
		ChannelID: channelID,
		ChapterID: chapter.ID,
		APIKey:    apiKey,
	}
	if err := g.store.UpsertServer(ctx, server); err != nil {
		logging.Error().Err(err).Str("guild_id", i.GuildID).Msg("Failed to save server binding")
		g.followUp(s, i, "Something went wrong saving the configuration.")
		return
	}

	logging.Info().Str("guild_id", i.GuildID).Str("chapter_id", chapter.ID).Msg("Guild bound to chapter")
	g.followUp(s, i, fmt.Sprintf(
		"API key recognized. %s has been set as the server's chapter and <#%s> will be used for announcements.",
		chapter.Name, channelID))
}

// handleGuildRemove drops the binding for a removed guild, and the chapter's
// tracked races when no other guild still binds it.
func (g *Gateway) handleGuildRemove(guildID string) {
	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	server, err := g.store.GetServer(ctx, guildID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			logging.Debug().Str("guild_id", guildID).Msg("Removed from guild with no binding")
		} else {
			logging.Error().Err(err).Str("guild_id", guildID).Msg("Failed to load binding for removed guild")
		}
		return
	}

	if err := g.store.DeleteServer(ctx, guildID); err != nil {
		logging.Error().Err(err).Str("guild_id", guildID).Msg("Failed to delete server binding")
		return
	}

	count, err := g.store.CountServersByChapter(ctx, server.ChapterID)
	if err != nil {
		logging.Error().Err(err).Str("chapter_id", server.ChapterID).Msg("Failed to count chapter bindings")
		return
	}
	if count == 0 {
		if err := g.store.DeleteRacesByChapter(ctx, server.ChapterID); err != nil {
			logging.Error().Err(err).Str("chapter_id", server.ChapterID).Msg("Failed to drop chapter races")
			return
		}
		logging.Info().Str("chapter_id", server.ChapterID).Msg("Last guild left; chapter races dropped")
	}

	logging.Info().Str("guild_id", guildID).Msg("Guild binding removed")
}

func (g *Gateway) respond(s responder, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
	if err != nil {
		logging.Error().Err(err).Msg("Failed to respond to interaction")
	}
}

func (g *Gateway) followUp(s responder, i *discordgo.InteractionCreate, content string) {
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	}); err != nil {
		logging.Error().Err(err).Msg("Failed to edit interaction response")
	}
}
