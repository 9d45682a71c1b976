// Billy - MultiGP Race Sync for Discord
// Copyright 2026 North Dakota Drone Racing
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/North-Dakota-Drone-Racing/billy

package api

import (
	"fmt"
	"net/http"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/go-chi/chi/v5"

	"github.com/North-Dakota-Drone-Racing/billy/internal/logging"
)

// handleCalendar serves a chapter's current race listing as an iCalendar
// feed, so members can subscribe from any calendar app without Discord.
// The feed is built live from MultiGP using the chapter's stored API key;
// races whose venue or dates do not resolve are omitted.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	chapterID := chi.URLParam(r, "chapterID")

	servers, err := s.store.ListServersByChapter(ctx, chapterID)
	if err != nil {
		logging.Error().Err(err).Str("chapter_id", chapterID).Msg("Calendar: store lookup failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if len(servers) == 0 {
		http.Error(w, "unknown chapter", http.StatusNotFound)
		return
	}
	apiKey := servers[0].APIKey

	listings, err := s.provider.ListRaces(ctx, chapterID, apiKey)
	if err != nil {
		logging.Warn().Err(err).Str("chapter_id", chapterID).Msg("Calendar: listing fetch failed")
		http.Error(w, "provider unavailable", http.StatusBadGateway)
		return
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//North Dakota Drone Racing//Billy//EN")

	now := time.Now()
	for _, listing := range listings {
		detail, err := s.provider.GetRace(ctx, listing.RaceID, apiKey)
		if err != nil {
			logging.Debug().Err(err).Str("race_id", listing.RaceID).Msg("Calendar: race detail skipped")
			continue
		}
		win, err := s.windows.Window(detail)
		if err != nil {
			logging.Debug().Err(err).Str("race_id", listing.RaceID).Msg("Calendar: race window skipped")
			continue
		}

		event := cal.AddEvent(fmt.Sprintf("race-%s@billy", detail.RaceID))
		event.SetDtStampTime(now)
		event.SetStartAt(win.Start)
		event.SetEndAt(win.End)
		event.SetSummary(detail.Name)
		event.SetLocation(detail.VenueName)
		event.SetDescription(detail.Description)
		event.SetURL("https://www.multigp.com/races/view/?race=" + detail.RaceID)
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", chapterID+".ics"))
	if _, err := w.Write([]byte(cal.Serialize())); err != nil {
		logging.Debug().Err(err).Msg("Calendar: write failed")
	}
}
