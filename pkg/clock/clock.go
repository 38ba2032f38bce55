package clock

import (
	"fmt"
	"sync"
	"time"
)

// DefaultTimezone is the business time zone used when none is configured.
const DefaultTimezone = "Africa/Dar_es_Salaam"

// Clock supplies the current time. Window boundaries and timestamps are
// always taken from a Clock so tests can pin them.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock and reports it in a fixed location.
type System struct {
	loc *time.Location
}

// NewSystem loads the named IANA zone. An empty name means DefaultTimezone.
func NewSystem(timezone string) (*System, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return &System{loc: loc}, nil
}

func (s *System) Now() time.Time {
	return time.Now().In(s.loc)
}

// Location returns the zone the clock reports in.
func (s *System) Location() *time.Location {
	return s.loc
}

// Fixed is a manually driven clock for tests.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

func NewFixed(now time.Time) *Fixed {
	return &Fixed{now: now}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// Set pins the clock to t.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}
