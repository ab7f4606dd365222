package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/landg/paddock/go/internal/control"
	"github.com/landg/paddock/go/internal/display"
	"github.com/landg/paddock/go/internal/gateway"
	"github.com/landg/paddock/go/internal/leaderboard"
	"github.com/landg/paddock/go/internal/models"
	"github.com/landg/paddock/go/internal/timercontrol"
)

var testRigs = []string{"RIG1", "RIG2", "RIG3", "RIG4"}

type memLaps struct {
	laps []*models.LapTime
}

func (m *memLaps) SubmitLapTime(ctx context.Context, req leaderboard.InsertLapTimeRequest) error {
	m.laps = append(m.laps, &models.LapTime{
		PlayerName: req.PlayerName,
		TrackName:  req.TrackName,
		RigID:      req.RigID,
		LapTimeMS:  req.LapTimeMS,
	})
	return nil
}

func (m *memLaps) TopLapTimes(ctx context.Context, trackName string, limit int32) ([]*models.LapTime, error) {
	var out []*models.LapTime
	for _, lap := range m.laps {
		if lap.TrackName == trackName {
			out = append(out, lap)
		}
	}
	return out, nil
}

func (m *memLaps) ListTracks(ctx context.Context) ([]*models.Track, error) {
	return []*models.Track{{ID: 1, Name: "Monza"}, {ID: 2, Name: "Monaco"}}, nil
}

type memRigs struct{}

func (m *memRigs) AssignPlayer(ctx context.Context, rigID, playerName, contactInfo string) error {
	return nil
}

func (m *memRigs) CurrentPlayer(ctx context.Context, rigID string) (string, error) {
	return "Lewis", nil
}

func (m *memRigs) ListAssignments(ctx context.Context) ([]*models.RigAssignment, error) {
	return []*models.RigAssignment{{RigID: "RIG1", PlayerName: "Lewis"}}, nil
}

type okAgent struct{}

func (okAgent) StartTimer(ctx context.Context, rigID string, seconds int) error { return nil }
func (okAgent) StopTimer(ctx context.Context, rigID string) error               { return nil }
func (okAgent) ShowOverlay(ctx context.Context, rigID string) error             { return nil }
func (okAgent) DismissOverlay(ctx context.Context, rigID string) error          { return nil }
func (okAgent) PressEscape(ctx context.Context, rigID string) error             { return nil }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	clock := clockwork.NewFakeClock()
	selector, err := display.NewSelector([]string{"Monza", "Monaco"}, 30*time.Second, clock)
	if err != nil {
		t.Fatalf("NewSelector failed: %v", err)
	}
	registry := timercontrol.NewRegistry(okAgent{}, clock)
	t.Cleanup(registry.Close)

	surface := control.NewSurface(&memLaps{}, &memRigs{}, selector, registry, okAgent{}, testRigs)
	conns := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go conns.Start(ctx)
	handler := gateway.NewHandler(surface, conns)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeEnvelope(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

func TestSubmitLapTimeEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/laptime",
		`{"rig_id":"RIG1","track_name":"Monza","lap_time_ms":83456}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body := decodeEnvelope(t, resp)
	if body["success"] != true {
		t.Errorf("success = %v, want true", body["success"])
	}
	data := body["data"].(map[string]any)
	if data["player_name"] != "Lewis" {
		t.Errorf("player_name = %v, want Lewis", data["player_name"])
	}
}

func TestSubmitLapTimeUnknownRig(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/laptime",
		`{"rig_id":"RIG9","track_name":"Monza","lap_time_ms":83456}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	body := decodeEnvelope(t, resp)
	if body["error"] != "unknown_rig" {
		t.Errorf("error = %v, want unknown_rig", body["error"])
	}
}

func TestSubmitLapTimeInvalidTime(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/laptime",
		`{"rig_id":"RIG1","track_name":"Monza","lap_time_ms":0}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestLeaderboardEndpoint(t *testing.T) {
	srv := newTestServer(t)

	postJSON(t, srv.URL+"/api/laptime",
		`{"rig_id":"RIG1","track_name":"Monza","lap_time_ms":83456}`)

	resp, err := http.Get(srv.URL + "/api/leaderboard/Monza")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body := decodeEnvelope(t, resp)
	data := body["data"].(map[string]any)
	entries := data["entries"].([]any)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
}

func TestTimerStartStopFlow(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/admin/timer/start", `{"rig_id":"RIG1","minutes":5}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start status = %d, want 200", resp.StatusCode)
	}

	// Starting again while the countdown runs conflicts.
	resp = postJSON(t, srv.URL+"/api/admin/timer/start", `{"rig_id":"RIG1","minutes":1}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("double start status = %d, want 409", resp.StatusCode)
	}
	body := decodeEnvelope(t, resp)
	if body["error"] != "already_active" {
		t.Errorf("error = %v, want already_active", body["error"])
	}

	resp = postJSON(t, srv.URL+"/api/admin/timer/stop", `{"rig_id":"RIG1"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stop status = %d, want 200", resp.StatusCode)
	}
}

func TestTimerStartInvalidDuration(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/admin/timer/start", `{"rig_id":"RIG1","minutes":0}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestTimerStatusEndpoint(t *testing.T) {
	srv := newTestServer(t)

	postJSON(t, srv.URL+"/api/admin/timer/start", `{"rig_id":"RIG2","minutes":5}`)

	resp, err := http.Get(srv.URL + "/api/admin/timer/status")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	body := decodeEnvelope(t, resp)
	timers := body["data"].(map[string]any)["timers"].([]any)
	if len(timers) != len(testRigs) {
		t.Fatalf("got %d timers, want %d", len(timers), len(testRigs))
	}

	resp, err = http.Get(srv.URL + "/api/admin/timer/status?rig_id=RIG2")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	body = decodeEnvelope(t, resp)
	status := body["data"].(map[string]any)
	if status["active"] != true {
		t.Errorf("active = %v, want true", status["active"])
	}
}

func TestSelectTrackEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/admin/track/select", `{"track_name":"Monaco"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("select status = %d, want 200", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/api/admin/track/select", `{"track_name":"Nordschleife"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown track status = %d, want 400", resp.StatusCode)
	}
	body := decodeEnvelope(t, resp)
	if body["error"] != "invalid_track" {
		t.Errorf("error = %v, want invalid_track", body["error"])
	}
}

func TestCurrentDisplayEndpoint(t *testing.T) {
	srv := newTestServer(t)

	postJSON(t, srv.URL+"/api/admin/track/select", `{"track_name":"Monaco"}`)
	postJSON(t, srv.URL+"/api/laptime",
		`{"rig_id":"RIG1","track_name":"Monaco","lap_time_ms":71234}`)

	resp, err := http.Get(srv.URL + "/api/display/current_leaderboard_data")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	body := decodeEnvelope(t, resp)
	data := body["data"].(map[string]any)
	if data["track_name"] != "Monaco" {
		t.Errorf("track_name = %v, want Monaco", data["track_name"])
	}
	entries := data["entries"].([]any)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
}

func TestDisplayWebSocketReceivesBroadcast(t *testing.T) {
	srv := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/display"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	defer conn.Close()

	postJSON(t, srv.URL+"/api/admin/track/select", `{"track_name":"Monaco"}`)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read broadcast: %v", err)
	}

	var event gateway.DisplayEvent
	if err := json.Unmarshal(message, &event); err != nil {
		t.Fatalf("failed to decode event: %v", err)
	}
	if event.Type != gateway.EventTypeDisplayChanged {
		t.Errorf("event type = %q, want %q", event.Type, gateway.EventTypeDisplayChanged)
	}

	var payload gateway.DisplayChangedPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if payload.TrackName != "Monaco" {
		t.Errorf("track_name = %q, want Monaco", payload.TrackName)
	}
}

func TestLapRecordedBroadcast(t *testing.T) {
	srv := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/display"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	defer conn.Close()

	postJSON(t, srv.URL+"/api/laptime",
		`{"rig_id":"RIG1","track_name":"Monza","lap_time_ms":83456}`)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read broadcast: %v", err)
	}

	var event gateway.DisplayEvent
	if err := json.Unmarshal(message, &event); err != nil {
		t.Fatalf("failed to decode event: %v", err)
	}
	if event.Type != gateway.EventTypeLapRecorded {
		t.Errorf("event type = %q, want %q", event.Type, gateway.EventTypeLapRecorded)
	}
}

func TestMalformedBody(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/laptime", `not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	body := decodeEnvelope(t, resp)
	if body["error"] != "invalid_body" {
		t.Errorf("error = %v, want invalid_body", body["error"])
	}
}
