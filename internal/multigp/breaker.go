// Billy - MultiGP Race Sync for Discord
// Copyright 2026 North Dakota Drone Racing
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/North-Dakota-Drone-Racing/billy

package multigp

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/North-Dakota-Drone-Racing/billy/internal/config"
	"github.com/North-Dakota-Drone-Racing/billy/internal/logging"
	"github.com/North-Dakota-Drone-Racing/billy/internal/metrics"
	"github.com/North-Dakota-Drone-Racing/billy/internal/models"
	mgp "github.com/North-Dakota-Drone-Racing/billy/internal/models/multigp"
)

// BreakerClient wraps Client with a circuit breaker so that a dead RaceSync
// service fails fast instead of stalling every sync tick on timeouts.
//
// The breaker uses real time (via sony/gobreaker) for its interval and
// timeout calculations. Unit tests should mock the API interface, not the
// breaker.
type BreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// compile-time interface checks
var (
	_ API = (*Client)(nil)
	_ API = (*BreakerClient)(nil)
)

// NewBreakerClient creates a RaceSync client with circuit breaker protection.
// Breaker configuration:
//   - Max 3 concurrent requests in half-open state
//   - 1 minute measurement window
//   - 2 minute timeout before attempting recovery
//   - Opens after 60% failure rate with minimum 10 requests
func NewBreakerClient(cfg *config.ProviderConfig) *BreakerClient {
	client := NewClient(cfg)
	cbName := "multigp-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6

			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}

			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()

			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &BreakerClient{
		client: client,
		cb:     cb,
		name:   cbName,
	}
}

// execute runs one API call through the breaker and records outcome metrics.
// An open breaker surfaces as ErrUnavailable so callers skip the cycle.
func (bc *BreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := bc.cb.Execute(fn)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(bc.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}

		metrics.CircuitBreakerRequests.WithLabelValues(bc.name, "failure").Inc()
		counts := bc.cb.Counts()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(bc.name).Set(float64(counts.ConsecutiveFailures))
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(bc.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(bc.name).Set(0)

	return result, nil
}

// castResult safely type-casts the circuit breaker result with error checking.
func castResult[T any](result interface{}, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	typed, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// FindChapter resolves a chapter API key with circuit breaker protection.
func (bc *BreakerClient) FindChapter(ctx context.Context, apiKey string) (*mgp.ChapterResponse, error) {
	return castResult[mgp.ChapterResponse](bc.execute(func() (interface{}, error) {
		return bc.client.FindChapter(ctx, apiKey)
	}))
}

// ListRaces lists chapter races with circuit breaker protection.
func (bc *BreakerClient) ListRaces(ctx context.Context, chapterID, apiKey string) ([]models.RaceListing, error) {
	result, err := bc.execute(func() (interface{}, error) {
		return bc.client.ListRaces(ctx, chapterID, apiKey)
	})
	if err != nil {
		return nil, err
	}
	listings, ok := result.([]models.RaceListing)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return listings, nil
}

// GetRace fetches race detail with circuit breaker protection.
func (bc *BreakerClient) GetRace(ctx context.Context, raceID, apiKey string) (*models.RaceDetail, error) {
	return castResult[models.RaceDetail](bc.execute(func() (interface{}, error) {
		return bc.client.GetRace(ctx, raceID, apiKey)
	}))
}
