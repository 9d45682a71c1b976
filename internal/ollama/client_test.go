// Billy - MultiGP Race Sync for Discord
// Copyright 2026 North Dakota Drone Racing
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/North-Dakota-Drone-Racing/billy

package ollama

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/North-Dakota-Drone-Racing/billy/internal/config"
)

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"model":"llama3"`) {
			t.Errorf("body missing model: %s", body)
		}
		if !strings.Contains(string(body), `"stream":false`) {
			t.Errorf("streaming must be disabled: %s", body)
		}
		io.WriteString(w, `{"model":"llama3","response":"Racers, start your props!","done":true}`)
	}))
	defer srv.Close()

	c := NewClient(&config.OllamaConfig{URL: srv.URL, Model: "llama3"})
	got, err := c.Generate(context.Background(), "announce the race")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "Racers, start your props!" {
		t.Errorf("response = %q", got)
	}
}

func TestGenerateInactive(t *testing.T) {
	c := NewClient(&config.OllamaConfig{})
	if c.Active() {
		t.Error("client with no URL/model should be inactive")
	}
	_, err := c.Generate(context.Background(), "anything")
	if !errors.Is(err, ErrInactive) {
		t.Errorf("err = %v, want ErrInactive", err)
	}
}

func TestGenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(&config.OllamaConfig{URL: srv.URL, Model: "llama3"})
	if _, err := c.Generate(context.Background(), "x"); err == nil {
		t.Fatal("expected error on 500")
	}
}
