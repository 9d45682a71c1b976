// Billy - MultiGP Race Sync for Discord
// Copyright 2026 North Dakota Drone Racing
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/North-Dakota-Drone-Racing/billy

package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/North-Dakota-Drone-Racing/billy/internal/models"
	mgp "github.com/North-Dakota-Drone-Racing/billy/internal/models/multigp"
	"github.com/North-Dakota-Drone-Racing/billy/internal/window"
)

// mockProvider serves canned chapter listings and race details.
type mockProvider struct {
	mu       stdsync.Mutex
	listings map[string][]models.RaceListing // chapterID -> listings
	details  map[string]*models.RaceDetail   // raceID -> detail
	listErr  map[string]error                // chapterID -> error
	getErr   map[string]error                // raceID -> error
}

func newMockProvider() *mockProvider {
	return &mockProvider{
		listings: make(map[string][]models.RaceListing),
		details:  make(map[string]*models.RaceDetail),
		listErr:  make(map[string]error),
		getErr:   make(map[string]error),
	}
}

func (m *mockProvider) FindChapter(ctx context.Context, apiKey string) (*mgp.ChapterResponse, error) {
	return nil, fmt.Errorf("not used in sync tests")
}

func (m *mockProvider) ListRaces(ctx context.Context, chapterID, apiKey string) ([]models.RaceListing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.listErr[chapterID]; err != nil {
		return nil, err
	}
	return m.listings[chapterID], nil
}

func (m *mockProvider) GetRace(ctx context.Context, raceID, apiKey string) (*models.RaceDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.getErr[raceID]; err != nil {
		return nil, err
	}
	detail, ok := m.details[raceID]
	if !ok {
		return nil, fmt.Errorf("unknown race %s", raceID)
	}
	return detail, nil
}

// mockPlatform records event operations.
type mockPlatform struct {
	mu        stdsync.Mutex
	created   []string // race IDs with events created
	started   []string // event IDs transitioned to active
	ended     []string // event IDs transitioned to completed
	announced []string // channel IDs announced to

	createErr error
	getErr    map[string]error // eventID -> error
	events    map[string]*models.RemoteEvent
	nextID    int
}

func newMockPlatform() *mockPlatform {
	return &mockPlatform{
		getErr: make(map[string]error),
		events: make(map[string]*models.RemoteEvent),
	}
}

func (m *mockPlatform) CreateScheduledEvent(ctx context.Context, guildID string, race *models.RaceDetail, win models.RaceWindow) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return "", "", m.createErr
	}
	m.nextID++
	eventID := fmt.Sprintf("event-%d", m.nextID)
	m.created = append(m.created, race.RaceID)
	return eventID, "https://discord.com/events/" + guildID + "/" + eventID, nil
}

func (m *mockPlatform) GetScheduledEvent(ctx context.Context, guildID, eventID string) (*models.RemoteEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.getErr[eventID]; err != nil {
		return nil, err
	}
	event, ok := m.events[eventID]
	if !ok {
		return nil, fmt.Errorf("no canned event %s", eventID)
	}
	return event, nil
}

func (m *mockPlatform) StartEvent(ctx context.Context, guildID, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = append(m.started, eventID)
	return nil
}

func (m *mockPlatform) EndEvent(ctx context.Context, guildID, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ended = append(m.ended, eventID)
	return nil
}

func (m *mockPlatform) Announce(ctx context.Context, channelID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.announced = append(m.announced, channelID)
	return nil
}

// mockEvaluator returns a fixed decision per race.
type mockEvaluator struct {
	decisions map[string]window.Decision // raceID -> decision
	errs      map[string]error           // raceID -> error
	win       models.RaceWindow
}

func newMockEvaluator() *mockEvaluator {
	return &mockEvaluator{
		decisions: make(map[string]window.Decision),
		errs:      make(map[string]error),
		win: models.RaceWindow{
			Timezone: "America/Chicago",
			Start:    time.Date(2026, 6, 6, 15, 0, 0, 0, time.UTC),
			End:      time.Date(2026, 6, 6, 21, 0, 0, 0, time.UTC),
		},
	}
}

func (m *mockEvaluator) Evaluate(race *models.RaceDetail) (models.RaceWindow, window.Decision, error) {
	if err := m.errs[race.RaceID]; err != nil {
		return models.RaceWindow{}, 0, err
	}
	return m.win, m.decisions[race.RaceID], nil
}

// mockStore is an in-memory managerStore.
type mockStore struct {
	mu      stdsync.Mutex
	servers []models.Server
	races   map[string]models.TrackedRace // raceID -> row
}

func newMockStore() *mockStore {
	return &mockStore{races: make(map[string]models.TrackedRace)}
}

func (m *mockStore) ListServers(ctx context.Context) ([]models.Server, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Server(nil), m.servers...), nil
}

func (m *mockStore) ListServersByChapter(ctx context.Context, chapterID string) ([]models.Server, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Server
	for _, s := range m.servers {
		if s.ChapterID == chapterID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockStore) TrackedRaceIDs(ctx context.Context, chapterID string) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]struct{})
	for id, race := range m.races {
		if race.ChapterID == chapterID {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (m *mockStore) InsertRaces(ctx context.Context, races []models.TrackedRace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, race := range races {
		if _, ok := m.races[race.RaceID]; ok {
			continue // INSERT OR IGNORE
		}
		m.races[race.RaceID] = race
	}
	return nil
}

func (m *mockStore) DeleteRaces(ctx context.Context, raceIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range raceIDs {
		delete(m.races, id)
	}
	return nil
}

func (m *mockStore) ListPublishedRaces(ctx context.Context) ([]models.TrackedRace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.TrackedRace
	for _, race := range m.races {
		if race.Published() {
			out = append(out, race)
		}
	}
	return out, nil
}
