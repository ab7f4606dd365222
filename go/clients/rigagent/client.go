package rigagent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrUnknownRig is returned when a rig identifier has no configured agent address.
// No network call is attempted in that case.
var ErrUnknownRig = errors.New("no configured agent address for rig")

// ErrCommunication covers unreachable host, timeout, malformed reply and
// negative acknowledgement. The caller decides what a failure means; the
// client itself never retries.
var ErrCommunication = errors.New("rig agent communication error")

// Agent actions understood by the rig-side timer process.
const (
	actionStartTimer     = "start_timer"
	actionStopTimer      = "stop_timer"
	actionShowOverlay    = "show_overlay"
	actionDismissOverlay = "dismiss_overlay"
	actionPressEscape    = "press_escape"
)

// DefaultTimeout bounds a single command round trip.
const DefaultTimeout = 5 * time.Second

type request struct {
	Action  string `json:"action"`
	Seconds int    `json:"seconds,omitempty"`
}

type response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Client sends commands to the local agent process on each rig PC over a
// single TCP request/response exchange carrying JSON.
type Client struct {
	addrs   map[string]string
	timeout time.Duration
}

// NewClient creates a rig agent client from a rig id → "host:port" map.
func NewClient(addrs map[string]string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	copied := make(map[string]string, len(addrs))
	for id, addr := range addrs {
		copied[id] = addr
	}
	return &Client{addrs: copied, timeout: timeout}
}

// StartTimer tells the rig's agent to begin a countdown overlay.
func (c *Client) StartTimer(ctx context.Context, rigID string, seconds int) error {
	return c.send(ctx, rigID, request{Action: actionStartTimer, Seconds: seconds})
}

// StopTimer tells the rig's agent to cancel any running countdown.
func (c *Client) StopTimer(ctx context.Context, rigID string) error {
	return c.send(ctx, rigID, request{Action: actionStopTimer})
}

// ShowOverlay displays the session-paused overlay on the rig screen.
func (c *Client) ShowOverlay(ctx context.Context, rigID string) error {
	return c.send(ctx, rigID, request{Action: actionShowOverlay})
}

// DismissOverlay removes the overlay from the rig screen.
func (c *Client) DismissOverlay(ctx context.Context, rigID string) error {
	return c.send(ctx, rigID, request{Action: actionDismissOverlay})
}

// PressEscape injects an ESC key press on the rig, pausing the game.
func (c *Client) PressEscape(ctx context.Context, rigID string) error {
	return c.send(ctx, rigID, request{Action: actionPressEscape})
}

// send performs one command exchange: dial, write request, read reply.
// Single attempt with a bounded deadline; retries belong to the caller.
func (c *Client) send(ctx context.Context, rigID string, req request) error {
	addr, ok := c.addrs[rigID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRig, rigID)
	}

	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		log.Warn().Err(err).Str("rig_id", rigID).Str("addr", addr).Str("action", req.Action).
			Msg("rig agent unreachable")
		return fmt.Errorf("%w: dial %s: %v", ErrCommunication, addr, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return fmt.Errorf("%w: set deadline: %v", ErrCommunication, err)
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("%w: send %s to %s: %v", ErrCommunication, req.Action, rigID, err)
	}

	var resp response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return fmt.Errorf("%w: read reply from %s: %v", ErrCommunication, rigID, err)
	}

	if resp.Status != "success" {
		log.Warn().Str("rig_id", rigID).Str("action", req.Action).Str("message", resp.Message).
			Msg("rig agent rejected command")
		return fmt.Errorf("%w: %s rejected %s: %s", ErrCommunication, rigID, req.Action, resp.Message)
	}

	log.Debug().Str("rig_id", rigID).Str("action", req.Action).Msg("rig agent acknowledged command")
	return nil
}
