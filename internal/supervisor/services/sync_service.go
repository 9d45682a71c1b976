// Billy - MultiGP Race Sync for Discord
// Copyright 2026 North Dakota Drone Racing
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/North-Dakota-Drone-Racing/billy

// Package services adapts billy's long-running components to the
// suture.Service interface so the supervision tree can restart them.
package services

import (
	"context"

	"github.com/North-Dakota-Drone-Racing/billy/internal/logging"
)

// StartStopManager is anything with cron-style lifecycle: a Start that
// schedules work and a Stop that drains it. The sync manager fits.
type StartStopManager interface {
	Start() error
	Stop()
}

// SyncService supervises the sync manager. Serve starts the cron
// schedules, blocks until the context is cancelled, then drains.
type SyncService struct {
	manager StartStopManager
}

// NewSyncService wraps a sync manager for supervision.
func NewSyncService(manager StartStopManager) *SyncService {
	return &SyncService{manager: manager}
}

// Serve implements suture.Service.
func (s *SyncService) Serve(ctx context.Context) error {
	logging.Info().Msg("Starting sync service")

	if err := s.manager.Start(); err != nil {
		logging.Error().Err(err).Msg("Failed to start sync manager")
		return err
	}

	<-ctx.Done()

	logging.Info().Msg("Stopping sync service")
	s.manager.Stop()

	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logs.
func (s *SyncService) String() string {
	return "sync-service"
}
