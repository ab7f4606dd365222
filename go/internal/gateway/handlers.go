package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/landg/paddock/go/clients/rigagent"
	"github.com/landg/paddock/go/internal/control"
	"github.com/landg/paddock/go/internal/display"
	"github.com/landg/paddock/go/internal/leaderboard"
	"github.com/landg/paddock/go/internal/timercontrol"
)

// Handler serves the venue REST API and the display WebSocket endpoint.
type Handler struct {
	surface *control.Surface
	conns   *ConnectionManager
}

// NewHandler creates a gateway handler over the control surface.
func NewHandler(surface *control.Surface, conns *ConnectionManager) *Handler {
	return &Handler{
		surface: surface,
		conns:   conns,
	}
}

// RegisterRoutes installs all API routes on the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", h.handleRoot)
	mux.HandleFunc("POST /api/laptime", h.handleSubmitLapTime)
	mux.HandleFunc("GET /api/leaderboard/{track}", h.handleLeaderboard)
	mux.HandleFunc("GET /api/tracks", h.handleListTracks)
	mux.HandleFunc("GET /api/rigs", h.handleListRigs)
	mux.HandleFunc("POST /api/rigs/assign", h.handleAssignPlayer)
	mux.HandleFunc("POST /api/admin/track/select", h.handleSelectTrack)
	mux.HandleFunc("POST /api/admin/track/toggle_autocycle", h.handleToggleAutoCycle)
	mux.HandleFunc("GET /api/admin/track/status", h.handleDisplayStatus)
	mux.HandleFunc("GET /api/display/current_leaderboard_data", h.handleCurrentDisplay)
	mux.HandleFunc("POST /api/admin/timer/start", h.handleStartTimer)
	mux.HandleFunc("POST /api/admin/timer/stop", h.handleStopTimer)
	mux.HandleFunc("POST /api/admin/timer/reset", h.handleResetTimer)
	mux.HandleFunc("GET /api/admin/timer/status", h.handleTimerStatus)
	mux.HandleFunc("POST /api/admin/rig/show_overlay", h.handleShowOverlay)
	mux.HandleFunc("POST /api/admin/rig/dismiss_overlay", h.handleDismissOverlay)
	mux.HandleFunc("POST /api/admin/rig/press_escape", h.handlePressEscape)
	mux.HandleFunc("GET /ws/display", h.handleDisplayWebSocket)
}

type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response body")
	}
}

func writeSuccess(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: message, Data: data})
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	var (
		status = http.StatusInternalServerError
		code   = "internal_error"
	)
	switch {
	case errors.Is(err, control.ErrInvalidArgument), errors.Is(err, timercontrol.ErrInvalidDuration):
		status, code = http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, display.ErrUnknownTrack):
		status, code = http.StatusBadRequest, "invalid_track"
	case errors.Is(err, rigagent.ErrUnknownRig):
		status, code = http.StatusNotFound, "unknown_rig"
	case errors.Is(err, leaderboard.ErrTrackNotFound), errors.Is(err, leaderboard.ErrRigNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, timercontrol.ErrAlreadyActive):
		status, code = http.StatusConflict, "already_active"
	case errors.Is(err, rigagent.ErrCommunication):
		status, code = http.StatusBadGateway, "communication_error"
	}
	writeJSON(w, status, apiResponse{Success: false, Error: code, Message: err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{
			Success: false,
			Error:   "invalid_body",
			Message: "request body must be valid JSON",
		})
		return false
	}
	return true
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeSuccess(w, "paddock venue API", map[string]any{
		"display_connections": h.conns.ConnectionCount(),
	})
}

type submitLapTimeRequest struct {
	RigID     string `json:"rig_id"`
	TrackName string `json:"track_name"`
	LapTimeMS int64  `json:"lap_time_ms"`
}

func (h *Handler) handleSubmitLapTime(w http.ResponseWriter, r *http.Request) {
	var req submitLapTimeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	player, err := h.surface.SubmitLapTime(r.Context(), req.RigID, req.TrackName, req.LapTimeMS)
	if err != nil {
		writeError(w, err)
		return
	}

	h.conns.Broadcast(NewDisplayEvent(EventTypeLapRecorded, LapRecordedPayload{
		RigID:      req.RigID,
		TrackName:  req.TrackName,
		PlayerName: player,
		LapTimeMS:  req.LapTimeMS,
	}))
	writeSuccess(w, "lap time recorded", map[string]string{"player_name": player})
}

func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	trackName := r.PathValue("track")
	limit := parseLimit(r, 10)

	entries, err := h.surface.Leaderboard(r.Context(), trackName, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, "", map[string]any{
		"track_name": trackName,
		"entries":    entries,
	})
}

func (h *Handler) handleListTracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.surface.ListTracks(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, "", map[string]any{"tracks": tracks})
}

func (h *Handler) handleListRigs(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.surface.ListRigAssignments(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, "", map[string]any{"rigs": assignments})
}

type assignPlayerRequest struct {
	RigID       string `json:"rig_id"`
	PlayerName  string `json:"player_name"`
	ContactInfo string `json:"contact_info"`
}

func (h *Handler) handleAssignPlayer(w http.ResponseWriter, r *http.Request) {
	var req assignPlayerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.surface.AssignPlayer(r.Context(), req.RigID, req.PlayerName, req.ContactInfo); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, "player assigned", nil)
}

type selectTrackRequest struct {
	TrackName string `json:"track_name"`
}

func (h *Handler) handleSelectTrack(w http.ResponseWriter, r *http.Request) {
	var req selectTrackRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.surface.SelectTrack(req.TrackName); err != nil {
		writeError(w, err)
		return
	}

	h.broadcastDisplayChanged()
	writeSuccess(w, "track selected", nil)
}

func (h *Handler) handleToggleAutoCycle(w http.ResponseWriter, r *http.Request) {
	enabled := h.surface.ToggleAutoCycle()

	h.broadcastDisplayChanged()
	writeSuccess(w, "auto-cycle toggled", map[string]bool{"auto_cycle_enabled": enabled})
}

func (h *Handler) handleDisplayStatus(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, "", h.surface.DisplayStatus())
}

func (h *Handler) handleCurrentDisplay(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 10)

	current, err := h.surface.CurrentDisplay(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, "", current)
}

type timerStartRequest struct {
	RigID   string `json:"rig_id"`
	Minutes int    `json:"minutes"`
}

func (h *Handler) handleStartTimer(w http.ResponseWriter, r *http.Request) {
	var req timerStartRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.surface.StartTimer(r.Context(), req.RigID, req.Minutes); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, "timer started", nil)
}

type rigRequest struct {
	RigID string `json:"rig_id"`
}

func (h *Handler) handleStopTimer(w http.ResponseWriter, r *http.Request) {
	var req rigRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.surface.StopTimer(r.Context(), req.RigID); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, "timer stopped", nil)
}

func (h *Handler) handleResetTimer(w http.ResponseWriter, r *http.Request) {
	var req rigRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.surface.ResetTimer(r.Context(), req.RigID); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, "timer reset", nil)
}

func (h *Handler) handleTimerStatus(w http.ResponseWriter, r *http.Request) {
	if rigID := r.URL.Query().Get("rig_id"); rigID != "" {
		status, err := h.surface.TimerStatus(rigID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeSuccess(w, "", status)
		return
	}
	writeSuccess(w, "", map[string]any{"timers": h.surface.AllTimerStatus()})
}

func (h *Handler) handleShowOverlay(w http.ResponseWriter, r *http.Request) {
	h.handleRigAction(w, r, h.surface.ShowOverlay, "overlay shown")
}

func (h *Handler) handleDismissOverlay(w http.ResponseWriter, r *http.Request) {
	h.handleRigAction(w, r, h.surface.DismissOverlay, "overlay dismissed")
}

func (h *Handler) handlePressEscape(w http.ResponseWriter, r *http.Request) {
	h.handleRigAction(w, r, h.surface.PressEscape, "escape pressed")
}

func (h *Handler) handleRigAction(w http.ResponseWriter, r *http.Request, action func(context.Context, string) error, message string) {
	var req rigRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := action(r.Context(), req.RigID); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, message, nil)
}

func (h *Handler) handleDisplayWebSocket(w http.ResponseWriter, r *http.Request) {
	if err := h.conns.UpgradeConnection(w, r); err != nil {
		log.Error().Err(err).Msg("display WebSocket upgrade failed")
	}
}

// BroadcastTimerExpired notifies displays that a rig timer ran out. Wired as
// the timer registry's expiry callback.
func (h *Handler) BroadcastTimerExpired(rigID string) {
	h.conns.Broadcast(NewDisplayEvent(EventTypeTimerExpired, TimerExpiredPayload{RigID: rigID}))
}

func (h *Handler) broadcastDisplayChanged() {
	status := h.surface.DisplayStatus()
	h.conns.Broadcast(NewDisplayEvent(EventTypeDisplayChanged, DisplayChangedPayload{
		TrackName:        status.CurrentTrack,
		AutoCycleEnabled: status.AutoCycleEnabled,
	}))
}

func parseLimit(r *http.Request, fallback int32) int32 {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return int32(parsed)
}
