// Billy - MultiGP Race Sync for Discord
// Copyright 2026 North Dakota Drone Racing
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/North-Dakota-Drone-Racing/billy

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/North-Dakota-Drone-Racing/billy/internal/models"
)

// UpsertServer inserts a guild binding or replaces its channel, chapter and
// API key when the guild is already bound. Re-running /activate with a new
// key rebinds the guild.
func (s *Store) UpsertServer(ctx context.Context, server models.Server) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO servers (guild_id, channel_id, chapter_id, api_key)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			channel_id = excluded.channel_id,
			chapter_id = excluded.chapter_id,
			api_key    = excluded.api_key`,
		server.GuildID, server.ChannelID, server.ChapterID, server.APIKey)
	if err != nil {
		return fmt.Errorf("upsert server %s: %w", server.GuildID, err)
	}
	return nil
}

// GetServer returns the binding for one guild, or ErrNotFound.
func (s *Store) GetServer(ctx context.Context, guildID string) (*models.Server, error) {
	var server models.Server
	err := s.db.QueryRowContext(ctx, `
		SELECT guild_id, channel_id, chapter_id, api_key
		FROM servers WHERE guild_id = ?`, guildID).
		Scan(&server.GuildID, &server.ChannelID, &server.ChapterID, &server.APIKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("server %s: %w", guildID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get server %s: %w", guildID, err)
	}
	return &server, nil
}

// ListServers returns every bound guild. The sync engine iterates this on
// each tick.
func (s *Store) ListServers(ctx context.Context) ([]models.Server, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT guild_id, channel_id, chapter_id, api_key
		FROM servers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list servers: %w", err)
	}
	defer rows.Close()

	var servers []models.Server
	for rows.Next() {
		var server models.Server
		if err := rows.Scan(&server.GuildID, &server.ChannelID, &server.ChapterID, &server.APIKey); err != nil {
			return nil, fmt.Errorf("scan server: %w", err)
		}
		servers = append(servers, server)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list servers: %w", err)
	}
	return servers, nil
}

// ListServersByChapter returns every guild bound to a chapter.
func (s *Store) ListServersByChapter(ctx context.Context, chapterID string) ([]models.Server, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT guild_id, channel_id, chapter_id, api_key
		FROM servers WHERE chapter_id = ? ORDER BY id`, chapterID)
	if err != nil {
		return nil, fmt.Errorf("list servers for chapter %s: %w", chapterID, err)
	}
	defer rows.Close()

	var servers []models.Server
	for rows.Next() {
		var server models.Server
		if err := rows.Scan(&server.GuildID, &server.ChannelID, &server.ChapterID, &server.APIKey); err != nil {
			return nil, fmt.Errorf("scan server: %w", err)
		}
		servers = append(servers, server)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list servers for chapter %s: %w", chapterID, err)
	}
	return servers, nil
}

// CountServersByChapter reports how many guilds are still bound to a
// chapter. Zero means the chapter's tracked races can be dropped.
func (s *Store) CountServersByChapter(ctx context.Context, chapterID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM servers WHERE chapter_id = ?`, chapterID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count servers for chapter %s: %w", chapterID, err)
	}
	return count, nil
}

// DeleteServer removes a guild binding. Deleting an unknown guild is a no-op.
func (s *Store) DeleteServer(ctx context.Context, guildID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM servers WHERE guild_id = ?`, guildID); err != nil {
		return fmt.Errorf("delete server %s: %w", guildID, err)
	}
	return nil
}
