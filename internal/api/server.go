// Billy - MultiGP Race Sync for Discord
// Copyright 2026 North Dakota Drone Racing
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/North-Dakota-Drone-Racing/billy

// Package api serves the operational HTTP surface: liveness, Prometheus
// metrics, and a public iCalendar feed of each chapter's upcoming races.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/North-Dakota-Drone-Racing/billy/internal/config"
	"github.com/North-Dakota-Drone-Racing/billy/internal/logging"
	"github.com/North-Dakota-Drone-Racing/billy/internal/models"
	"github.com/North-Dakota-Drone-Racing/billy/internal/multigp"
)

// calendarStore is the slice of the database the calendar feed needs.
type calendarStore interface {
	ListServersByChapter(ctx context.Context, chapterID string) ([]models.Server, error)
}

// windower resolves a race's scheduling window. Satisfied by
// window.Calculator.
type windower interface {
	Window(race *models.RaceDetail) (models.RaceWindow, error)
}

// Server is the ops HTTP server.
type Server struct {
	cfg      *config.ServerConfig
	store    calendarStore
	provider multigp.API
	windows  windower
	started  time.Time
}

// NewServer wires the ops server.
func NewServer(cfg *config.ServerConfig, store calendarStore, provider multigp.API, windows windower) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		provider: provider,
		windows:  windows,
		started:  time.Now(),
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// The calendar feed fans out to MultiGP; keep strangers from turning
	// this process into a proxy.
	r.Route("/calendar", func(r chi.Router) {
		r.Use(httprate.LimitByIP(10, time.Minute))
		r.Get("/{chapterID}.ics", s.handleCalendar)
	})

	return r
}

// Run serves until the context is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return ctx.Err()
}

// requestLogger logs one line per request at debug level. The ops
// surface is low-traffic; info would drown the sync logs.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(started)).
			Msg("HTTP request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}
