package display_test

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/landg/paddock/go/internal/display"
)

var testTracks = []string{"Monza", "Monaco", "Silverstone", "Spa-Francorchamps"}

func newSelector(t *testing.T, clock clockwork.Clock) *display.Selector {
	t.Helper()
	sel, err := display.NewSelector(testTracks, 30*time.Second, clock)
	if err != nil {
		t.Fatalf("NewSelector failed: %v", err)
	}
	return sel
}

func TestNewSelectorRequiresTracks(t *testing.T) {
	if _, err := display.NewSelector(nil, 30*time.Second, clockwork.NewFakeClock()); err == nil {
		t.Fatal("expected error for empty track sequence")
	}
}

func TestAutoCycleAdvances(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sel := newSelector(t, clock)

	if got := sel.CurrentTrack(); got != "Monza" {
		t.Fatalf("initial track = %q, want Monza", got)
	}

	clock.Advance(29 * time.Second)
	if got := sel.CurrentTrack(); got != "Monza" {
		t.Errorf("track before interval = %q, want Monza", got)
	}

	clock.Advance(time.Second)
	if got := sel.CurrentTrack(); got != "Monaco" {
		t.Errorf("track after interval = %q, want Monaco", got)
	}
}

func TestAutoCycleWrapsAround(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sel := newSelector(t, clock)

	for i := 0; i < len(testTracks); i++ {
		clock.Advance(30 * time.Second)
		sel.CurrentTrack()
	}
	if got := sel.CurrentTrack(); got != "Monza" {
		t.Errorf("track after full rotation = %q, want Monza", got)
	}
}

func TestSelectTrackPinsDisplay(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sel := newSelector(t, clock)

	if err := sel.SelectTrack("Silverstone"); err != nil {
		t.Fatalf("SelectTrack failed: %v", err)
	}
	if got := sel.CurrentTrack(); got != "Silverstone" {
		t.Fatalf("pinned track = %q, want Silverstone", got)
	}

	// A pin holds through any number of cycle intervals.
	clock.Advance(5 * time.Minute)
	if got := sel.CurrentTrack(); got != "Silverstone" {
		t.Errorf("pinned track after 5m = %q, want Silverstone", got)
	}

	// The auto-cycle flag itself is untouched by pinning.
	if status := sel.Status(); !status.AutoCycleEnabled {
		t.Error("pinning must not disable auto-cycle")
	}
}

func TestSelectTrackUnknown(t *testing.T) {
	sel := newSelector(t, clockwork.NewFakeClock())
	if err := sel.SelectTrack("Nordschleife"); !errors.Is(err, display.ErrUnknownTrack) {
		t.Fatalf("SelectTrack = %v, want ErrUnknownTrack", err)
	}
}

func TestEnableAutoCycleClearsPin(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sel := newSelector(t, clock)

	if err := sel.SelectTrack("Monaco"); err != nil {
		t.Fatalf("SelectTrack failed: %v", err)
	}

	if enabled := sel.ToggleAutoCycle(); enabled {
		t.Fatal("first toggle should disable auto-cycle")
	}
	if enabled := sel.ToggleAutoCycle(); !enabled {
		t.Fatal("second toggle should re-enable auto-cycle")
	}

	// Re-enabling cleared the pin and rotation resumes from the pinned
	// position after a full interval.
	if got := sel.CurrentTrack(); got != "Monaco" {
		t.Errorf("track right after resume = %q, want Monaco", got)
	}
	clock.Advance(30 * time.Second)
	if got := sel.CurrentTrack(); got != "Silverstone" {
		t.Errorf("track one interval after resume = %q, want Silverstone", got)
	}
}

func TestDisabledAutoCycleHoldsTrack(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sel := newSelector(t, clock)

	if enabled := sel.ToggleAutoCycle(); enabled {
		t.Fatal("toggle should disable auto-cycle")
	}
	clock.Advance(10 * time.Minute)
	if got := sel.CurrentTrack(); got != "Monza" {
		t.Errorf("track with auto-cycle off = %q, want Monza", got)
	}
}

func TestResumeWaitsFullInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sel := newSelector(t, clock)

	sel.ToggleAutoCycle()
	// Sit disabled well past several intervals.
	clock.Advance(3 * time.Minute)
	sel.ToggleAutoCycle()

	// The accumulated elapsed time must not count against the resumed
	// rotation.
	clock.Advance(29 * time.Second)
	if got := sel.CurrentTrack(); got != "Monza" {
		t.Errorf("track before full resumed interval = %q, want Monza", got)
	}
	clock.Advance(time.Second)
	if got := sel.CurrentTrack(); got != "Monaco" {
		t.Errorf("track after full resumed interval = %q, want Monaco", got)
	}
}

func TestStatusSnapshot(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sel := newSelector(t, clock)

	if err := sel.SelectTrack("Spa-Francorchamps"); err != nil {
		t.Fatalf("SelectTrack failed: %v", err)
	}

	status := sel.Status()
	if status.CurrentTrack != "Spa-Francorchamps" {
		t.Errorf("CurrentTrack = %q, want Spa-Francorchamps", status.CurrentTrack)
	}
	if status.ManualOverride != "Spa-Francorchamps" {
		t.Errorf("ManualOverride = %q, want Spa-Francorchamps", status.ManualOverride)
	}
	if !status.AutoCycleEnabled {
		t.Error("AutoCycleEnabled = false, want true")
	}
	if status.CycleIntervalSec != 30 {
		t.Errorf("CycleIntervalSec = %d, want 30", status.CycleIntervalSec)
	}
	if len(status.TrackSequence) != len(testTracks) {
		t.Errorf("TrackSequence has %d tracks, want %d", len(status.TrackSequence), len(testTracks))
	}
}

func TestRotationResumesFromPinnedTrack(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sel := newSelector(t, clock)

	if err := sel.SelectTrack("Silverstone"); err != nil {
		t.Fatalf("SelectTrack failed: %v", err)
	}
	sel.ToggleAutoCycle()
	sel.ToggleAutoCycle()

	clock.Advance(30 * time.Second)
	if got := sel.CurrentTrack(); got != "Spa-Francorchamps" {
		t.Errorf("track = %q, want Spa-Francorchamps (rotation continues from pin)", got)
	}
}
