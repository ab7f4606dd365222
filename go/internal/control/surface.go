package control

import (
	"context"
	"fmt"
	"time"

	"github.com/landg/paddock/go/clients/rigagent"
	"github.com/landg/paddock/go/internal/display"
	"github.com/landg/paddock/go/internal/leaderboard"
	"github.com/landg/paddock/go/internal/models"
	"github.com/landg/paddock/go/internal/timercontrol"
)

// LapTimesApp defines what the surface needs from the leaderboard app
type LapTimesApp interface {
	SubmitLapTime(ctx context.Context, req leaderboard.InsertLapTimeRequest) error
	TopLapTimes(ctx context.Context, trackName string, limit int32) ([]*models.LapTime, error)
	ListTracks(ctx context.Context) ([]*models.Track, error)
}

// RigsApp defines what the surface needs from the rigs app
type RigsApp interface {
	AssignPlayer(ctx context.Context, rigID, playerName, contactInfo string) error
	CurrentPlayer(ctx context.Context, rigID string) (string, error)
	ListAssignments(ctx context.Context) ([]*models.RigAssignment, error)
}

// DisplaySelector defines what the surface needs from the display selector
type DisplaySelector interface {
	CurrentTrack() string
	SelectTrack(name string) error
	ToggleAutoCycle() bool
	Status() display.Status
	Tracks() []string
}

// TimerRegistry defines what the surface needs from the timer registry
type TimerRegistry interface {
	Start(ctx context.Context, rigID string, duration time.Duration) error
	Stop(ctx context.Context, rigID string) error
	Reset(ctx context.Context, rigID string) error
	Status(rigID string) timercontrol.Status
	StatusAll(rigIDs []string) []timercontrol.Status
}

// OverlayClient defines the overlay and input-injection commands the surface
// sends directly to a rig's agent.
type OverlayClient interface {
	ShowOverlay(ctx context.Context, rigID string) error
	DismissOverlay(ctx context.Context, rigID string) error
	PressEscape(ctx context.Context, rigID string) error
}

// CurrentLeaderboard is the payload the display page renders.
type CurrentLeaderboard struct {
	TrackName        string            `json:"track_name"`
	AutoCycleEnabled bool              `json:"auto_cycle_enabled"`
	ManualOverride   string            `json:"manual_override,omitempty"`
	Entries          []*models.LapTime `json:"entries"`
}

// Surface is the operation set exposed to the operator console. It validates
// rig and track identifiers against the configured sets, then delegates to
// the timer registry, display selector and storage apps.
type Surface struct {
	laps     LapTimesApp
	rigs     RigsApp
	selector DisplaySelector
	timers   TimerRegistry
	overlay  OverlayClient
	rigIDs   []string
	rigSet   map[string]bool
}

// NewSurface creates the control surface over the given collaborators.
func NewSurface(laps LapTimesApp, rigs RigsApp, selector DisplaySelector, timers TimerRegistry, overlay OverlayClient, rigIDs []string) *Surface {
	rigSet := make(map[string]bool, len(rigIDs))
	for _, id := range rigIDs {
		rigSet[id] = true
	}
	return &Surface{
		laps:     laps,
		rigs:     rigs,
		selector: selector,
		timers:   timers,
		overlay:  overlay,
		rigIDs:   append([]string(nil), rigIDs...),
		rigSet:   rigSet,
	}
}

// SubmitLapTime records a lap for whoever is currently assigned to the rig.
// Returns the resolved player name for the confirmation message.
func (s *Surface) SubmitLapTime(ctx context.Context, rigID, trackName string, lapTimeMS int64) (string, error) {
	if err := s.checkRig(rigID); err != nil {
		return "", err
	}
	if lapTimeMS <= 0 {
		return "", fmt.Errorf("%w: lap time %dms", ErrInvalidArgument, lapTimeMS)
	}

	playerName, err := s.rigs.CurrentPlayer(ctx, rigID)
	if err != nil {
		playerName = models.UnknownRacer
	}

	err = s.laps.SubmitLapTime(ctx, leaderboard.InsertLapTimeRequest{
		RigID:      rigID,
		TrackName:  trackName,
		PlayerName: playerName,
		LapTimeMS:  lapTimeMS,
	})
	if err != nil {
		return "", err
	}
	return playerName, nil
}

// Leaderboard returns the top lap times for a track.
func (s *Surface) Leaderboard(ctx context.Context, trackName string, limit int32) ([]*models.LapTime, error) {
	return s.laps.TopLapTimes(ctx, trackName, limit)
}

// CurrentDisplay resolves the display selector and fetches the leaderboard
// for whichever track is current right now.
func (s *Surface) CurrentDisplay(ctx context.Context, limit int32) (*CurrentLeaderboard, error) {
	st := s.selector.Status()
	entries, err := s.laps.TopLapTimes(ctx, st.CurrentTrack, limit)
	if err != nil {
		return nil, err
	}
	return &CurrentLeaderboard{
		TrackName:        st.CurrentTrack,
		AutoCycleEnabled: st.AutoCycleEnabled,
		ManualOverride:   st.ManualOverride,
		Entries:          entries,
	}, nil
}

// ListTracks returns all known tracks.
func (s *Surface) ListTracks(ctx context.Context) ([]*models.Track, error) {
	return s.laps.ListTracks(ctx)
}

// ListRigAssignments returns every rig with its current player.
func (s *Surface) ListRigAssignments(ctx context.Context) ([]*models.RigAssignment, error) {
	return s.rigs.ListAssignments(ctx)
}

// AssignPlayer puts a player on a rig. Pure storage mutation: no timer or
// display state is touched.
func (s *Surface) AssignPlayer(ctx context.Context, rigID, playerName, contactInfo string) error {
	if err := s.checkRig(rigID); err != nil {
		return err
	}
	return s.rigs.AssignPlayer(ctx, rigID, playerName, contactInfo)
}

// SelectTrack pins the display to a track.
func (s *Surface) SelectTrack(name string) error {
	return s.selector.SelectTrack(name)
}

// ToggleAutoCycle flips automatic rotation and returns the new state.
func (s *Surface) ToggleAutoCycle() bool {
	return s.selector.ToggleAutoCycle()
}

// DisplayStatus reports the display selector state.
func (s *Surface) DisplayStatus() display.Status {
	return s.selector.Status()
}

// StartTimer begins a session countdown on a rig.
func (s *Surface) StartTimer(ctx context.Context, rigID string, minutes int) error {
	if err := s.checkRig(rigID); err != nil {
		return err
	}
	return s.timers.Start(ctx, rigID, time.Duration(minutes)*time.Minute)
}

// StopTimer cancels a rig's countdown.
func (s *Surface) StopTimer(ctx context.Context, rigID string) error {
	if err := s.checkRig(rigID); err != nil {
		return err
	}
	return s.timers.Stop(ctx, rigID)
}

// ResetTimer stops a rig's countdown and clears its display row.
func (s *Surface) ResetTimer(ctx context.Context, rigID string) error {
	if err := s.checkRig(rigID); err != nil {
		return err
	}
	return s.timers.Reset(ctx, rigID)
}

// TimerStatus reports one rig's countdown.
func (s *Surface) TimerStatus(rigID string) (timercontrol.Status, error) {
	if err := s.checkRig(rigID); err != nil {
		return timercontrol.Status{}, err
	}
	return s.timers.Status(rigID), nil
}

// AllTimerStatus reports the countdown of every configured rig.
func (s *Surface) AllTimerStatus() []timercontrol.Status {
	return s.timers.StatusAll(s.rigIDs)
}

// ShowOverlay displays the session-paused overlay on a rig.
func (s *Surface) ShowOverlay(ctx context.Context, rigID string) error {
	if err := s.checkRig(rigID); err != nil {
		return err
	}
	return s.overlay.ShowOverlay(ctx, rigID)
}

// DismissOverlay removes the overlay from a rig.
func (s *Surface) DismissOverlay(ctx context.Context, rigID string) error {
	if err := s.checkRig(rigID); err != nil {
		return err
	}
	return s.overlay.DismissOverlay(ctx, rigID)
}

// PressEscape injects an ESC key press on a rig.
func (s *Surface) PressEscape(ctx context.Context, rigID string) error {
	if err := s.checkRig(rigID); err != nil {
		return err
	}
	return s.overlay.PressEscape(ctx, rigID)
}

func (s *Surface) checkRig(rigID string) error {
	if !s.rigSet[rigID] {
		return fmt.Errorf("%w: %s", rigagent.ErrUnknownRig, rigID)
	}
	return nil
}
