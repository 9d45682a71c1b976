// Billy - MultiGP Race Sync for Discord
// Copyright 2026 North Dakota Drone Racing
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/North-Dakota-Drone-Racing/billy

package services

import (
	"context"

	"github.com/North-Dakota-Drone-Racing/billy/internal/logging"
)

// Runner is a component whose whole lifetime is a single blocking Run
// call that honors context cancellation. The Discord gateway and the
// HTTP server both fit.
type Runner interface {
	Run(ctx context.Context) error
}

// GatewayService supervises the Discord gateway connection. If the
// websocket session dies unrecoverably, the supervisor restarts it and
// the gateway re-registers its commands on reconnect.
type GatewayService struct {
	gateway Runner
}

// NewGatewayService wraps the Discord gateway for supervision.
func NewGatewayService(gateway Runner) *GatewayService {
	return &GatewayService{gateway: gateway}
}

// Serve implements suture.Service.
func (s *GatewayService) Serve(ctx context.Context) error {
	logging.Info().Msg("Starting Discord gateway service")

	err := s.gateway.Run(ctx)
	if err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("Discord gateway exited")
		return err
	}

	logging.Info().Msg("Discord gateway service stopped")
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logs.
func (s *GatewayService) String() string {
	return "gateway-service"
}
