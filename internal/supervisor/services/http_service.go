// Billy - MultiGP Race Sync for Discord
// Copyright 2026 North Dakota Drone Racing
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/North-Dakota-Drone-Racing/billy

package services

import (
	"context"

	"github.com/North-Dakota-Drone-Racing/billy/internal/logging"
)

// HTTPService supervises the ops HTTP server (health, metrics, calendar).
type HTTPService struct {
	server Runner
}

// NewHTTPService wraps the HTTP server for supervision.
func NewHTTPService(server Runner) *HTTPService {
	return &HTTPService{server: server}
}

// Serve implements suture.Service.
func (s *HTTPService) Serve(ctx context.Context) error {
	logging.Info().Msg("Starting HTTP service")

	err := s.server.Run(ctx)
	if err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("HTTP server exited")
		return err
	}

	logging.Info().Msg("HTTP service stopped")
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logs.
func (s *HTTPService) String() string {
	return "http-service"
}
