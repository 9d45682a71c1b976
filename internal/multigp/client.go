// Billy - MultiGP Race Sync for Discord
// Copyright 2026 North Dakota Drone Racing
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/North-Dakota-Drone-Racing/billy

/*
client.go - MultiGP RaceSync API Client

HTTP client for the MultiGP RaceSync web service. Every endpoint is a POST
whose JSON body carries the chapter API key; race/listForChapter and
race/view additionally take URL query parameters.

Resilience:
  - Token-bucket rate limiting before every request
  - Exponential backoff (1s, 2s, 4s, 8s, 16s) on HTTP 429, honoring Retry-After
  - Context support for cancellation and timeouts
  - Circuit breaker protection available via BreakerClient (breaker.go)
*/
package multigp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/North-Dakota-Drone-Racing/billy/internal/config"
	"github.com/North-Dakota-Drone-Racing/billy/internal/metrics"
	"github.com/North-Dakota-Drone-Racing/billy/internal/models"
	mgp "github.com/North-Dakota-Drone-Racing/billy/internal/models/multigp"
)

// ErrUnavailable marks transport-level failures (connection refused, 5xx,
// rate limit exhaustion). Callers treat it as "skip this cycle, retry next
// tick" rather than a data error.
var ErrUnavailable = errors.New("multigp: service unavailable")

// maxErrorBodySize limits how much of a failed response body is read for
// error reporting.
const maxErrorBodySize = 64 * 1024 // 64KB

// API is the subset of RaceSync operations the sync engine and the Discord
// gateway consume. Implemented by Client and BreakerClient; tests substitute
// mocks.
type API interface {
	FindChapter(ctx context.Context, apiKey string) (*mgp.ChapterResponse, error)
	ListRaces(ctx context.Context, chapterID, apiKey string) ([]models.RaceListing, error)
	GetRace(ctx context.Context, raceID, apiKey string) (*models.RaceDetail, error)
}

// Client talks to the RaceSync web service. Safe for concurrent use; each
// request builds its own *http.Request and the limiter is goroutine-safe.
type Client struct {
	baseURL        string
	client         *http.Client
	limiter        *rate.Limiter
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewClient builds a RaceSync client from configuration. A zero or negative
// rate disables client-side throttling.
func NewClient(cfg *config.ProviderConfig) *Client {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	return &Client{
		baseURL: cfg.BaseURL,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:        rate.NewLimiter(limit, 1),
		maxRetries:     5,
		retryBaseDelay: 1 * time.Second,
	}
}

// FindChapter resolves a chapter API key into the chapter it belongs to.
// A false status in the response (invalid or revoked key) is returned as a
// plain error, not ErrUnavailable.
func (c *Client) FindChapter(ctx context.Context, apiKey string) (*mgp.ChapterResponse, error) {
	var resp mgp.ChapterResponse
	if err := c.post(ctx, "chapter/findChapterFromApiKey", apiKey, &resp); err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, fmt.Errorf("findChapterFromApiKey rejected: %s", errorMessage(resp.BaseResponse))
	}
	return &resp, nil
}

// ListRaces returns the chapter's current race listings. Only the identity
// fields survive; full detail requires GetRace per race.
func (c *Client) ListRaces(ctx context.Context, chapterID, apiKey string) ([]models.RaceListing, error) {
	var resp mgp.RaceListResponse
	endpoint := "race/listForChapter?chapterId=" + chapterID
	if err := c.post(ctx, endpoint, apiKey, &resp); err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, fmt.Errorf("listForChapter rejected: %s", errorMessage(resp.BaseResponse))
	}
	listings := make([]models.RaceListing, 0, len(resp.Data))
	for _, entry := range resp.Data {
		listings = append(listings, models.RaceListing{
			RaceID: entry.ID,
			Name:   entry.Name,
		})
	}
	return listings, nil
}

// GetRace fetches full detail for one race and converts the string-typed
// wire fields into their native representations.
func (c *Client) GetRace(ctx context.Context, raceID, apiKey string) (*models.RaceDetail, error) {
	var resp mgp.RaceViewResponse
	endpoint := "race/view?id=" + raceID
	if err := c.post(ctx, endpoint, apiKey, &resp); err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, fmt.Errorf("race/view rejected: %s", errorMessage(resp.BaseResponse))
	}
	return convertRaceDetail(&resp.Data)
}

// convertRaceDetail parses the coordinate strings. Missing or malformed
// coordinates are a data error distinct from transport failure.
func convertRaceDetail(data *mgp.RaceViewData) (*models.RaceDetail, error) {
	lat, err := strconv.ParseFloat(data.Latitude, 64)
	if err != nil {
		return nil, fmt.Errorf("race %s: invalid latitude %q: %w", data.ID, data.Latitude, err)
	}
	lng, err := strconv.ParseFloat(data.Longitude, 64)
	if err != nil {
		return nil, fmt.Errorf("race %s: invalid longitude %q: %w", data.ID, data.Longitude, err)
	}
	return &models.RaceDetail{
		RaceID:      data.ID,
		Name:        data.Name,
		Latitude:    lat,
		Longitude:   lng,
		StartLocal:  data.StartDate,
		EndLocal:    data.EndDate,
		Description: data.Description,
		VenueName:   data.CourseName,
		ChapterName: data.ChapterName,
	}, nil
}

// post performs one RaceSync call: rate limit, POST the API key body,
// retry on 429, decode the JSON wrapper into result.
func (c *Client) post(ctx context.Context, endpoint, apiKey string, result interface{}) error {
	name := endpointName(endpoint)

	body, err := json.Marshal(map[string]string{"apiKey": apiKey})
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", name, err)
	}

	resp, err := c.doRequestWithRateLimit(ctx, c.baseURL+"/"+endpoint, body)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(name, "failure").Inc()
		return fmt.Errorf("%s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ProviderRequests.WithLabelValues(name, "failure").Inc()
		errBody := readBodyForError(resp.Body)
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%s returned status %d: %s: %w", name, resp.StatusCode, string(errBody), ErrUnavailable)
		}
		return fmt.Errorf("%s returned status %d: %s", name, resp.StatusCode, string(errBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		metrics.ProviderRequests.WithLabelValues(name, "failure").Inc()
		return fmt.Errorf("failed to decode %s response: %w", name, err)
	}

	metrics.ProviderRequests.WithLabelValues(name, "success").Inc()
	return nil
}

// doRequestWithRateLimit waits for a limiter token, then performs the POST
// with exponential backoff on HTTP 429 (1s, 2s, 4s, 8s, 16s), honoring a
// Retry-After header when present.
func (c *Client) doRequestWithRateLimit(ctx context.Context, reqURL string, body []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w: %w", err, ErrUnavailable)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		_ = resp.Body.Close()

		if attempt == c.maxRetries {
			lastErr = fmt.Errorf("rate limit exceeded after %d retries (HTTP 429): %w", c.maxRetries, ErrUnavailable)
			break
		}

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
				delay = seconds
			}
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// readBodyForError reads at most 64KB of a failed response body.
func readBodyForError(r io.Reader) []byte {
	limited := io.LimitReader(r, maxErrorBodySize)
	body, err := io.ReadAll(limited)
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// endpointName strips query parameters for metric labels.
func endpointName(endpoint string) string {
	for i := 0; i < len(endpoint); i++ {
		if endpoint[i] == '?' {
			return endpoint[:i]
		}
	}
	return endpoint
}

func errorMessage(base mgp.BaseResponse) string {
	if base.ErrorMessage != "" {
		return base.ErrorMessage
	}
	return "unknown error"
}
