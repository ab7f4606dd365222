package display

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// ErrUnknownTrack is returned when a track name is not in the configured sequence
var ErrUnknownTrack = errors.New("unknown track")

// DefaultCycleInterval matches the venue default of rotating every 30 seconds.
const DefaultCycleInterval = 30 * time.Second

// Status is a snapshot of the display state for the operator console.
type Status struct {
	CurrentTrack     string   `json:"current_track"`
	AutoCycleEnabled bool     `json:"auto_cycle_enabled"`
	ManualOverride   string   `json:"manual_override,omitempty"`
	CycleIntervalSec int      `json:"cycle_interval_sec"`
	TrackSequence    []string `json:"track_sequence"`
}

// Selector decides which track's leaderboard is currently shown, reconciling
// the automatic rotation against manual operator pins.
//
// The cycle advances check-on-read: the display page polls frequently, so no
// background rotation clock is needed. A pinned track suppresses rotation
// without turning the auto-cycle flag off; enabling auto-cycle clears the pin
// and grants the rotation a full interval before the next advance.
type Selector struct {
	mu          sync.Mutex
	clock       clockwork.Clock
	tracks      []string
	interval    time.Duration
	cursor      int
	autoCycle   bool
	override    string // empty means no pin
	lastCycleAt time.Time
}

// NewSelector creates a display selector over a fixed track sequence.
func NewSelector(tracks []string, interval time.Duration, clock clockwork.Clock) (*Selector, error) {
	if len(tracks) == 0 {
		return nil, errors.New("track sequence must not be empty")
	}
	if interval <= 0 {
		interval = DefaultCycleInterval
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Selector{
		clock:       clock,
		tracks:      append([]string(nil), tracks...),
		interval:    interval,
		autoCycle:   true,
		lastCycleAt: clock.Now(),
	}, nil
}

// CurrentTrack returns the track the display should show right now,
// performing the auto-advance check first.
func (s *Selector) CurrentTrack() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.advanceIfDue()
	if s.override != "" {
		return s.override
	}
	return s.tracks[s.cursor]
}

// SelectTrack pins a track. The cursor moves to the pinned track so a later
// resume continues the rotation from there instead of jumping back.
func (s *Selector) SelectTrack(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, t := range s.tracks {
		if t == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownTrack, name)
	}

	s.cursor = idx
	s.override = name
	log.Info().Str("track", name).Msg("display pinned to track")
	return nil
}

// ToggleAutoCycle flips the auto-cycle flag and returns the new state.
// Enabling clears any manual pin and resets the interval reference so the
// resumed rotation waits a full interval before advancing.
func (s *Selector) ToggleAutoCycle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.autoCycle = !s.autoCycle
	if s.autoCycle {
		s.override = ""
		s.lastCycleAt = s.clock.Now()
	}
	log.Info().Bool("enabled", s.autoCycle).Msg("auto-cycle toggled")
	return s.autoCycle
}

// Status returns a snapshot of the display state, advancing first so that
// the reported current track is never stale.
func (s *Selector) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.advanceIfDue()
	current := s.tracks[s.cursor]
	if s.override != "" {
		current = s.override
	}
	return Status{
		CurrentTrack:     current,
		AutoCycleEnabled: s.autoCycle,
		ManualOverride:   s.override,
		CycleIntervalSec: int(s.interval / time.Second),
		TrackSequence:    append([]string(nil), s.tracks...),
	}
}

// Tracks returns the configured track sequence.
func (s *Selector) Tracks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tracks...)
}

// advanceIfDue moves the cursor one step when the interval has elapsed.
// Caller must hold s.mu. A pin suppresses advancing entirely so the rotation
// resumes from the pinned position, not from accumulated elapsed time.
func (s *Selector) advanceIfDue() {
	if !s.autoCycle || s.override != "" {
		return
	}
	now := s.clock.Now()
	if now.Sub(s.lastCycleAt) < s.interval {
		return
	}
	s.cursor = (s.cursor + 1) % len(s.tracks)
	s.lastCycleAt = now
	log.Debug().Str("track", s.tracks[s.cursor]).Msg("auto-cycle advanced")
}
