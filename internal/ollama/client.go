// Billy - MultiGP Race Sync for Discord
// Copyright 2026 North Dakota Drone Racing
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/North-Dakota-Drone-Racing/billy

// Package ollama is a minimal client for a local Ollama server, used to
// generate announcement copy for newly published race events. When the
// server is not configured the client is inactive and Generate returns
// ErrInactive; announcements then simply go out without generated text.
package ollama

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/North-Dakota-Drone-Racing/billy/internal/config"
)

// ErrInactive is returned by Generate when no Ollama server is configured.
var ErrInactive = errors.New("ollama: not configured")

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Client talks to the Ollama /api/generate endpoint. Safe for concurrent use.
type Client struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewClient builds an Ollama client. Both URL and model must be set for the
// client to be active; otherwise every Generate call returns ErrInactive.
func NewClient(cfg *config.OllamaConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		// Generation on modest hardware is slow; allow well over the
		// usual API timeout.
		timeout = 2 * time.Minute
	}
	return &Client{
		baseURL: cfg.URL,
		model:   cfg.Model,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Active reports whether a server and model are configured.
func (c *Client) Active() bool {
	return c.baseURL != "" && c.model != ""
}

// Generate sends a single prompt and returns the generated text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if !c.Active() {
		return "", ErrInactive
	}

	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generate returned status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode generate response: %w", err)
	}

	return out.Response, nil
}
