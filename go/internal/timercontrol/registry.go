package timercontrol

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

var (
	// ErrInvalidDuration is returned for non-positive countdown durations
	ErrInvalidDuration = errors.New("duration must be positive")
	// ErrAlreadyActive is returned when a start arrives for a rig that
	// already has a running countdown. The caller decides whether to
	// stop-then-start; the registry never silently supersedes, so a rig
	// agent can never hold a countdown the registry forgot about.
	ErrAlreadyActive = errors.New("timer already active for rig")
)

// AgentClient defines what the registry needs from the rig agent client
type AgentClient interface {
	StartTimer(ctx context.Context, rigID string, seconds int) error
	StopTimer(ctx context.Context, rigID string) error
}

// Status is a snapshot of one rig's countdown.
type Status struct {
	RigID            string     `json:"rig_identifier"`
	Active           bool       `json:"active"`
	RemainingSeconds int        `json:"remaining_seconds"`
	DurationSeconds  int        `json:"duration_seconds"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
}

// rigTimer is the per-rig countdown record. Wall-clock elapsed time from
// startedAt is the authoritative source of remaining time; the advisory
// clockwork timer only flips state early for polling efficiency.
type rigTimer struct {
	active     bool
	starting   bool // reservation while the remote start dispatch is in flight
	duration   time.Duration
	startedAt  time.Time
	generation uint64
	timer      clockwork.Timer
	cancelCh   chan struct{}
}

// Registry is the authoritative in-memory record of each rig's countdown,
// independent of whether the remote rig agent is reachable.
//
// Timer and display state are intentionally ephemeral session state: the
// registry starts empty on process start and is never persisted.
type Registry struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	agent    AgentClient
	timers   map[string]*rigTimer
	onExpire func(rigID string)
}

// NewRegistry creates a timer registry dispatching through the given agent client.
func NewRegistry(agent AgentClient, clock clockwork.Clock) *Registry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Registry{
		clock:  clock,
		agent:  agent,
		timers: make(map[string]*rigTimer),
	}
}

// OnExpire registers a callback invoked (outside the registry lock) when an
// advisory timer fires. Used to push refresh hints to display clients.
func (r *Registry) OnExpire(fn func(rigID string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onExpire = fn
}

// Start begins a countdown for a rig. The remote start command is dispatched
// without holding the lock; local state commits to active only after the
// agent acknowledges. On remote failure the rig stays inactive and the error
// is surfaced.
func (r *Registry) Start(ctx context.Context, rigID string, duration time.Duration) error {
	if duration <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDuration, duration)
	}

	r.mu.Lock()
	st := r.timerLocked(rigID)
	r.expireLocked(rigID, st)
	if st.active || st.starting {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyActive, rigID)
	}
	st.starting = true
	r.mu.Unlock()

	err := r.agent.StartTimer(ctx, rigID, int(duration/time.Second))

	r.mu.Lock()
	defer r.mu.Unlock()
	st.starting = false
	if err != nil {
		log.Error().Err(err).Str("rig_id", rigID).Msg("remote start failed, timer not committed")
		return err
	}

	st.active = true
	st.duration = duration
	st.startedAt = r.clock.Now()
	st.generation++
	r.armAdvisoryTimerLocked(rigID, st, duration)

	log.Info().
		Str("rig_id", rigID).
		Dur("duration", duration).
		Time("started_at", st.startedAt).
		Msg("timer started")
	return nil
}

// Stop cancels a rig's countdown. Idempotent: with nothing running it
// succeeds without touching the network. When a countdown is running, local
// state is forced inactive regardless of the remote outcome, but a remote
// failure is still returned so the operator knows the physical rig may not
// have received the command.
//
// A stop racing an in-flight start linearizes before it: the stop sees no
// active timer and succeeds trivially, then the start commits.
func (r *Registry) Stop(ctx context.Context, rigID string) error {
	r.mu.Lock()
	st := r.timers[rigID]
	if st == nil || !st.active {
		r.mu.Unlock()
		return nil
	}
	r.deactivateLocked(st)
	r.mu.Unlock()

	if err := r.agent.StopTimer(ctx, rigID); err != nil {
		log.Error().Err(err).Str("rig_id", rigID).Msg("remote stop failed, local timer stopped anyway")
		return err
	}

	log.Info().Str("rig_id", rigID).Msg("timer stopped")
	return nil
}

// Reset is stop plus clearing the requested duration, fully blanking the
// rig's display row after a session.
func (r *Registry) Reset(ctx context.Context, rigID string) error {
	r.mu.Lock()
	st := r.timers[rigID]
	if st == nil {
		r.mu.Unlock()
		return nil
	}
	wasActive := st.active
	r.deactivateLocked(st)
	st.duration = 0
	r.mu.Unlock()

	if !wasActive {
		return nil
	}
	if err := r.agent.StopTimer(ctx, rigID); err != nil {
		log.Error().Err(err).Str("rig_id", rigID).Msg("remote stop failed during reset, local timer cleared anyway")
		return err
	}

	log.Info().Str("rig_id", rigID).Msg("timer reset")
	return nil
}

// Status reports a rig's countdown, recomputing remaining time from the wall
// clock. A countdown that ran out transitions to inactive lazily here, so a
// missed advisory tick can never leave a stale active report.
func (r *Registry) Status(rigID string) Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statusLocked(rigID)
}

// StatusAll reports every rig the caller considers configured, including
// rigs that never had a timer.
func (r *Registry) StatusAll(rigIDs []string) []Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	statuses := make([]Status, 0, len(rigIDs))
	for _, id := range rigIDs {
		statuses = append(statuses, r.statusLocked(id))
	}
	return statuses
}

// Close cancels every advisory timer goroutine. Local countdown state is
// ephemeral and simply discarded.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for rigID, st := range r.timers {
		if st.timer != nil {
			stopAndDrainTimer(st.timer)
			close(st.cancelCh)
			st.timer = nil
			log.Debug().Str("rig_id", rigID).Msg("cancelled advisory timer on shutdown")
		}
	}
}

func (r *Registry) timerLocked(rigID string) *rigTimer {
	st := r.timers[rigID]
	if st == nil {
		st = &rigTimer{}
		r.timers[rigID] = st
	}
	return st
}

func (r *Registry) statusLocked(rigID string) Status {
	st := r.timers[rigID]
	if st == nil {
		return Status{RigID: rigID}
	}
	r.expireLocked(rigID, st)

	status := Status{
		RigID:           rigID,
		Active:          st.active,
		DurationSeconds: int(st.duration / time.Second),
	}
	if st.active {
		startedAt := st.startedAt
		status.StartedAt = &startedAt
		elapsed := r.clock.Now().Sub(st.startedAt)
		status.RemainingSeconds = int(math.Ceil((st.duration - elapsed).Seconds()))
	}
	return status
}

// expireLocked performs the pull-based expiry check. Caller must hold r.mu.
func (r *Registry) expireLocked(rigID string, st *rigTimer) {
	if !st.active {
		return
	}
	if r.clock.Now().Sub(st.startedAt) >= st.duration {
		r.deactivateLocked(st)
		log.Info().Str("rig_id", rigID).Msg("timer expired")
	}
}

// deactivateLocked stops the countdown locally and tears down the advisory
// timer. Requested duration is retained for display; Reset clears it.
func (r *Registry) deactivateLocked(st *rigTimer) {
	st.active = false
	st.generation++
	if st.timer != nil {
		stopAndDrainTimer(st.timer)
		close(st.cancelCh)
		st.timer = nil
		st.cancelCh = nil
	}
}

// armAdvisoryTimerLocked replaces the advisory timer for a rig. The goroutine
// checks the generation before flipping state so a stale task can never
// expire a newer countdown. Caller must hold r.mu.
func (r *Registry) armAdvisoryTimerLocked(rigID string, st *rigTimer, duration time.Duration) {
	if st.timer != nil {
		stopAndDrainTimer(st.timer)
		close(st.cancelCh)
	}
	timer := r.clock.NewTimer(duration)
	cancelCh := make(chan struct{})
	st.timer = timer
	st.cancelCh = cancelCh
	gen := st.generation

	go func() {
		select {
		case <-timer.Chan():
			r.handleAdvisoryExpiry(rigID, gen)
		case <-cancelCh:
		}
	}()
}

// handleAdvisoryExpiry flips a finished countdown to inactive ahead of the
// next status poll. It is never the source of truth: statusLocked recomputes
// from startedAt regardless.
func (r *Registry) handleAdvisoryExpiry(rigID string, gen uint64) {
	r.mu.Lock()
	st := r.timers[rigID]
	if st == nil || !st.active || st.generation != gen {
		r.mu.Unlock()
		return
	}
	st.active = false
	st.generation++
	st.timer = nil
	st.cancelCh = nil
	onExpire := r.onExpire
	r.mu.Unlock()

	log.Info().Str("rig_id", rigID).Msg("timer expired")
	if onExpire != nil {
		onExpire(rigID)
	}
}

// stopAndDrainTimer safely stops a timer and drains its channel so the
// goroutine waiting on it cannot leak a fired tick.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
