// Billy - MultiGP Race Sync for Discord
// Copyright 2026 North Dakota Drone Racing
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/North-Dakota-Drone-Racing/billy

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/North-Dakota-Drone-Racing/billy/internal/models"
)

// InsertRaces records newly tracked races in one transaction. Races already
// tracked (by race_id) are ignored, which makes concurrent catalog passes
// over the same chapter safe.
func (s *Store) InsertRaces(ctx context.Context, races []models.TrackedRace) error {
	if len(races) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert races: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO races (race_id, chapter_id, publish_state, event_id)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("insert races: %w", err)
	}
	defer stmt.Close()

	for _, race := range races {
		eventID := sql.NullString{String: race.EventID, Valid: race.EventID != ""}
		if _, err := stmt.ExecContext(ctx, race.RaceID, race.ChapterID, string(race.State), eventID); err != nil {
			return fmt.Errorf("insert race %s: %w", race.RaceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert races: %w", err)
	}
	return nil
}

// DeleteRaces drops tracking rows for races the provider no longer lists.
func (s *Store) DeleteRaces(ctx context.Context, raceIDs []string) error {
	if len(raceIDs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete races: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM races WHERE race_id = ?`)
	if err != nil {
		return fmt.Errorf("delete races: %w", err)
	}
	defer stmt.Close()

	for _, raceID := range raceIDs {
		if _, err := stmt.ExecContext(ctx, raceID); err != nil {
			return fmt.Errorf("delete race %s: %w", raceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete races: %w", err)
	}
	return nil
}

// DeleteRacesByChapter drops every tracked race of a chapter. Used when the
// last guild bound to the chapter removes the bot.
func (s *Store) DeleteRacesByChapter(ctx context.Context, chapterID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM races WHERE chapter_id = ?`, chapterID); err != nil {
		return fmt.Errorf("delete races for chapter %s: %w", chapterID, err)
	}
	return nil
}

// TrackedRaceIDs returns the set of race IDs tracked for a chapter.
func (s *Store) TrackedRaceIDs(ctx context.Context, chapterID string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT race_id FROM races WHERE chapter_id = ?`, chapterID)
	if err != nil {
		return nil, fmt.Errorf("tracked races for chapter %s: %w", chapterID, err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan race id: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tracked races for chapter %s: %w", chapterID, err)
	}
	return ids, nil
}

// ListPublishedRaces returns tracked races that carry a scheduled event,
// i.e. candidates for status transitions.
func (s *Store) ListPublishedRaces(ctx context.Context) ([]models.TrackedRace, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT race_id, chapter_id, publish_state, event_id
		FROM races
		WHERE publish_state = ? AND event_id IS NOT NULL
		ORDER BY id`, string(models.StatePublished))
	if err != nil {
		return nil, fmt.Errorf("list published races: %w", err)
	}
	defer rows.Close()

	var races []models.TrackedRace
	for rows.Next() {
		var race models.TrackedRace
		var state string
		var eventID sql.NullString
		if err := rows.Scan(&race.RaceID, &race.ChapterID, &state, &eventID); err != nil {
			return nil, fmt.Errorf("scan race: %w", err)
		}
		race.State = models.PublishState(state)
		race.EventID = eventID.String
		races = append(races, race)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list published races: %w", err)
	}
	return races, nil
}
