// Billy - MultiGP Race Sync for Discord
// Copyright 2026 North Dakota Drone Racing
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/North-Dakota-Drone-Racing/billy

package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestInit(t *testing.T) {
	t.Run("json format produces structured output", func(t *testing.T) {
		var buf bytes.Buffer
		Init(Config{Level: "debug", Format: "json", Output: &buf})
		defer Init(DefaultConfig())

		Info().Str("chapter", "X").Msg("sync complete")

		out := buf.String()
		if !strings.Contains(out, `"chapter":"X"`) {
			t.Errorf("expected structured field in output, got %q", out)
		}
		if !strings.Contains(out, `"message":"sync complete"`) {
			t.Errorf("expected message in output, got %q", out)
		}
	})

	t.Run("level filters lower-severity events", func(t *testing.T) {
		var buf bytes.Buffer
		Init(Config{Level: "warn", Format: "json", Output: &buf})
		defer Init(DefaultConfig())

		Info().Msg("should be dropped")
		Warn().Msg("should appear")

		out := buf.String()
		if strings.Contains(out, "should be dropped") {
			t.Errorf("info event leaked through warn level: %q", out)
		}
		if !strings.Contains(out, "should appear") {
			t.Errorf("warn event missing: %q", out)
		}
	})

	t.Run("empty config falls back to defaults", func(t *testing.T) {
		var buf bytes.Buffer
		Init(Config{Output: &buf})
		defer Init(DefaultConfig())

		if got := zerolog.GlobalLevel(); got != zerolog.InfoLevel {
			t.Errorf("expected info default level, got %v", got)
		}
	})
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"garbage", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tc := range cases {
		if got := parseLevel(tc.in); got != tc.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSlogHandler(t *testing.T) {
	t.Run("writes through zerolog", func(t *testing.T) {
		var buf bytes.Buffer
		SetLogger(NewTestLogger(&buf))
		defer Init(DefaultConfig())

		slogger := NewSlogLogger()
		slogger.Info("supervisor event", "service", "catalog-sync", "restarts", int64(2))

		out := buf.String()
		if !strings.Contains(out, `"service":"catalog-sync"`) {
			t.Errorf("expected string attr, got %q", out)
		}
		if !strings.Contains(out, `"restarts":2`) {
			t.Errorf("expected int attr, got %q", out)
		}
	})

	t.Run("groups prefix attribute keys", func(t *testing.T) {
		var buf bytes.Buffer
		SetLogger(NewTestLogger(&buf))
		defer Init(DefaultConfig())

		slogger := NewSlogLogger().WithGroup("suture")
		slogger.Warn("backoff", slog.String("reason", "failures"))

		if out := buf.String(); !strings.Contains(out, `"suture.reason":"failures"`) {
			t.Errorf("expected group-prefixed key, got %q", out)
		}
	})
}
