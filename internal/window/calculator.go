// Billy - MultiGP Race Sync for Discord
// Copyright 2026 North Dakota Drone Racing
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/North-Dakota-Drone-Racing/billy

/*
calculator.go - Race Window Calculation

Turns a race's venue coordinates and wall-clock date strings into concrete
instants. MultiGP publishes race times as naive local wall-clock strings;
the venue's IANA timezone is resolved from latitude/longitude so the same
"10:00 AM" means the right instant in Fargo and in Perth.

Rules:
  - End at or before start, or missing entirely, falls back to start + 3h.
  - A race whose start already passed is tracked without an event.
  - Publication only happens while the venue's current local time is within
    08:00-20:00 inclusive, so pings never land in the middle of the night.
    Races rejected for quiet hours are not tracked; the next catalog cycle
    re-evaluates them.
*/
package window

import (
	"errors"
	"fmt"
	"time"

	"github.com/ringsaturn/tzf"

	"github.com/North-Dakota-Drone-Racing/billy/internal/models"
)

// dateLayout matches MultiGP's wall-clock format, e.g. "2026-06-06 9:00 AM".
const dateLayout = "2006-01-02 3:04 PM"

// defaultDuration is assumed when a race has no usable end time.
const defaultDuration = 3 * time.Hour

// Publication hours at the venue, inclusive on both bounds.
const (
	publishOpen  = 8 * time.Hour
	publishClose = 20 * time.Hour
)

var (
	// ErrGeoResolution means the venue coordinates did not resolve to a
	// timezone (open ocean, malformed data).
	ErrGeoResolution = errors.New("window: venue timezone not resolvable")

	// ErrQuietHours means the venue's current local time is outside
	// publication hours. Retryable: the race stays untracked.
	ErrQuietHours = errors.New("window: outside publication hours")
)

// Decision says what to do with a race that passed evaluation.
type Decision int

const (
	// DecisionPublish means a scheduled event should be created.
	DecisionPublish Decision = iota
	// DecisionAlreadyStarted means the race is tracked without an event
	// because its start has already passed.
	DecisionAlreadyStarted
)

// Finder resolves coordinates to an IANA timezone name. Satisfied by
// tzf.DefaultFinder; the longitude-first order matches tzf.
type Finder interface {
	GetTimezoneName(lng, lat float64) string
}

// Calculator evaluates race windows. Safe for concurrent use; the embedded
// polygon index is read-only after construction.
type Calculator struct {
	finder Finder
	now    func() time.Time
}

// NewCalculator builds a Calculator backed by tzf's embedded timezone
// polygon data.
func NewCalculator() (*Calculator, error) {
	finder, err := tzf.NewDefaultFinder()
	if err != nil {
		return nil, fmt.Errorf("window: failed to load timezone data: %w", err)
	}
	return &Calculator{finder: finder, now: time.Now}, nil
}

// NewCalculatorWithFinder builds a Calculator with a caller-supplied finder.
func NewCalculatorWithFinder(finder Finder) *Calculator {
	return &Calculator{finder: finder, now: time.Now}
}

// Evaluate computes the race window and decides whether the race should be
// published now. The window is valid whenever the error is nil, for both
// decisions.
func (c *Calculator) Evaluate(race *models.RaceDetail) (models.RaceWindow, Decision, error) {
	window, loc, err := c.window(race)
	if err != nil {
		return models.RaceWindow{}, 0, err
	}

	now := c.now()
	if now.After(window.Start) {
		return window, DecisionAlreadyStarted, nil
	}

	if !withinPublishHours(now.In(loc)) {
		return models.RaceWindow{}, 0, ErrQuietHours
	}

	return window, DecisionPublish, nil
}

// Window resolves the race window without the publication gates. The
// calendar feed reports every race regardless of start or local hour.
func (c *Calculator) Window(race *models.RaceDetail) (models.RaceWindow, error) {
	win, _, err := c.window(race)
	return win, err
}

// window resolves the venue timezone and parses the wall-clock strings.
func (c *Calculator) window(race *models.RaceDetail) (models.RaceWindow, *time.Location, error) {
	tzName := c.finder.GetTimezoneName(race.Longitude, race.Latitude)
	if tzName == "" {
		return models.RaceWindow{}, nil, fmt.Errorf("%w: race %s at (%f, %f)",
			ErrGeoResolution, race.RaceID, race.Latitude, race.Longitude)
	}

	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return models.RaceWindow{}, nil, fmt.Errorf("%w: race %s zone %q: %w",
			ErrGeoResolution, race.RaceID, tzName, err)
	}

	start, err := time.ParseInLocation(dateLayout, race.StartLocal, loc)
	if err != nil {
		return models.RaceWindow{}, nil, fmt.Errorf("window: race %s invalid start %q: %w",
			race.RaceID, race.StartLocal, err)
	}

	end := start.Add(defaultDuration)
	if race.EndLocal != "" {
		parsed, err := time.ParseInLocation(dateLayout, race.EndLocal, loc)
		if err != nil {
			return models.RaceWindow{}, nil, fmt.Errorf("window: race %s invalid end %q: %w",
				race.RaceID, race.EndLocal, err)
		}
		if parsed.After(start) {
			end = parsed
		}
	}

	return models.RaceWindow{
		Timezone: tzName,
		Start:    start,
		End:      end,
	}, loc, nil
}

// withinPublishHours reports whether the local wall-clock time is inside
// publication hours. Both bounds are inside: 08:00:00 and 20:00:00 publish,
// 07:59:59 and 20:00:01 do not.
func withinPublishHours(local time.Time) bool {
	tod := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second +
		time.Duration(local.Nanosecond())
	return tod >= publishOpen && tod <= publishClose
}
