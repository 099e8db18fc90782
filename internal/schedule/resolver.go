// Package schedule maps per-user local delivery hours onto UTC ticks.
package schedule

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "time/tzdata" // resolution must not depend on the host zoneinfo
)

var (
	ErrUnknownTimezone = errors.New("unknown timezone")
	ErrNoMatchingHour  = errors.New("no UTC hour maps to the local hour today")
	ErrHourOutOfRange  = errors.New("local hour out of range")
)

// ConversionError reports a degraded resolution. The hour returned alongside
// it is the caller's local hour, unchanged.
type ConversionError struct {
	Timezone  string
	LocalHour int
	Err       error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("resolve %02d:00 in %q: %v", e.LocalHour, e.Timezone, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Resolver converts local hours to UTC hours relative to today's offsets.
type Resolver struct {
	// Now supplies "today"; defaults to time.Now.
	Now func() time.Time

	mu        sync.Mutex
	locations map[string]*time.Location
}

// NewResolver returns a resolver using the wall clock.
func NewResolver() *Resolver {
	return &Resolver{Now: time.Now}
}

// LocalToUTCHour returns the first UTC hour of today whose wall-clock hour in
// tz equals localHour. On failure it returns localHour and a *ConversionError.
func (r *Resolver) LocalToUTCHour(localHour int, tz string) (int, error) {
	if localHour < 0 || localHour > 23 {
		return localHour, &ConversionError{Timezone: tz, LocalHour: localHour, Err: ErrHourOutOfRange}
	}

	loc, err := r.location(tz)
	if err != nil {
		return localHour, &ConversionError{Timezone: tz, LocalHour: localHour, Err: err}
	}

	y, m, d := r.now().UTC().Date()
	for h := 0; h < 24; h++ {
		candidate := time.Date(y, m, d, h, 0, 0, 0, time.UTC)
		if candidate.In(loc).Hour() == localHour {
			return h, nil
		}
	}

	return localHour, &ConversionError{Timezone: tz, LocalHour: localHour, Err: ErrNoMatchingHour}
}

// AnalysisHour is the UTC hour one hour before utcHour, wrapping at midnight.
func AnalysisHour(utcHour int) int {
	return (utcHour - 1 + 24) % 24
}

func (r *Resolver) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r *Resolver) location(tz string) (*time.Location, error) {
	name := strings.TrimSpace(tz)
	if name == "" {
		name = "UTC"
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if loc, ok := r.locations[name]; ok {
		return loc, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownTimezone, err)
	}
	if r.locations == nil {
		r.locations = make(map[string]*time.Location)
	}
	r.locations[name] = loc
	return loc, nil
}
