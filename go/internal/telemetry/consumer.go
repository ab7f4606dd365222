package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

const (
	streamName   = "TELEMETRY_LAPS"
	consumerName = "paddock-lap-ingest"

	natsMaxReconnects = 10
	natsReconnectWait = 2 * time.Second

	consumerMaxDeliver    = 3
	consumerAckWait       = 30 * time.Second
	consumerMaxAckPending = 100
)

// LapEvent is the decoded lap published by a rig's telemetry listener. The
// wire-format decoding happens on the rig; the consumer only sees completed
// laps.
type LapEvent struct {
	RigID     string    `json:"rig_identifier"`
	TrackID   int       `json:"track_id"`
	LapTimeMS int64     `json:"lap_time_ms"`
	Invalid   bool      `json:"invalid"`
	Recorded  time.Time `json:"recorded_at"`
}

// LapSubmitter defines what the consumer needs from the control surface
type LapSubmitter interface {
	SubmitLapTime(ctx context.Context, rigID, trackName string, lapTimeMS int64) (string, error)
}

// Consumer ingests decoded lap events from JetStream and feeds valid laps
// into the leaderboard.
type Consumer struct {
	nc        *nats.Conn
	js        jetstream.JetStream
	consumer  jetstream.Consumer
	submitter LapSubmitter
}

// NewConsumer connects to NATS and binds the lap-event consumer.
func NewConsumer(ctx context.Context, natsURL string, submitter LapSubmitter) (*Consumer, error) {
	nc, js, err := setupNATSConnection(natsURL)
	if err != nil {
		return nil, err
	}

	c := &Consumer{nc: nc, js: js, submitter: submitter}
	if err := c.ensureConsumer(ctx); err != nil {
		nc.Close()
		return nil, err
	}
	return c, nil
}

// setupNATSConnection creates a NATS connection with JetStream
func setupNATSConnection(natsURL string) (*nats.Conn, jetstream.JetStream, error) {
	opts := []nats.Option{
		nats.MaxReconnects(natsMaxReconnects),
		nats.ReconnectWait(natsReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create JetStream context: %w", err)
	}

	return nc, js, nil
}

// ensureConsumer creates or gets the JetStream stream and consumer.
func (c *Consumer) ensureConsumer(ctx context.Context) error {
	stream, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"telemetry.laps.>"},
		MaxAge:   24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("ensure stream: %w", err)
	}

	consumerConfig := jetstream.ConsumerConfig{
		Name:          consumerName,
		Durable:       consumerName,
		Description:   "Leaderboard lap-event consumer",
		FilterSubject: "telemetry.laps.>",
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    consumerMaxDeliver,
		AckWait:       consumerAckWait,
		MaxAckPending: consumerMaxAckPending,
	}

	consumer, err := stream.Consumer(ctx, consumerName)
	if err != nil {
		consumer, err = stream.CreateConsumer(ctx, consumerConfig)
		if err != nil {
			return fmt.Errorf("create consumer: %w", err)
		}
		log.Info().Msg("created JetStream consumer for lap ingest")
	} else {
		log.Info().Msg("using existing JetStream consumer for lap ingest")
	}

	c.consumer = consumer
	return nil
}

// Run consumes lap events until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	consumeCtx, err := c.consumer.Consume(func(msg jetstream.Msg) {
		if err := c.processEvent(ctx, msg); err != nil {
			log.Error().Err(err).Str("subject", msg.Subject()).Msg("failed to process lap event")
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("start JetStream consumer: %w", err)
	}
	defer consumeCtx.Stop()

	log.Info().Str("stream", streamName).Msg("lap-event consumer started")
	<-ctx.Done()
	log.Info().Msg("lap-event consumer shutting down")
	return nil
}

// processEvent decodes one lap event and submits it when valid.
func (c *Consumer) processEvent(ctx context.Context, msg jetstream.Msg) error {
	var event LapEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		return fmt.Errorf("unmarshal lap event: %w", err)
	}
	return c.HandleLapEvent(ctx, event)
}

// HandleLapEvent feeds one decoded lap into the leaderboard. Invalidated
// laps and unknown tracks are dropped, not errors: the rig keeps racing.
func (c *Consumer) HandleLapEvent(ctx context.Context, event LapEvent) error {
	if event.Invalid {
		log.Debug().
			Str("rig_id", event.RigID).
			Int64("lap_time_ms", event.LapTimeMS).
			Msg("dropping invalidated lap")
		return nil
	}

	trackName, ok := ResolveTrack(event.TrackID)
	if !ok {
		log.Warn().
			Str("rig_id", event.RigID).
			Int("track_id", event.TrackID).
			Msg("dropping lap on unknown track")
		return nil
	}

	player, err := c.submitter.SubmitLapTime(ctx, event.RigID, trackName, event.LapTimeMS)
	if err != nil {
		return fmt.Errorf("submit lap for %s on %s: %w", event.RigID, trackName, err)
	}

	log.Info().
		Str("rig_id", event.RigID).
		Str("track", trackName).
		Str("player", player).
		Int64("lap_time_ms", event.LapTimeMS).
		Msg("telemetry lap ingested")
	return nil
}

// Close releases the NATS connection.
func (c *Consumer) Close() error {
	if c.nc != nil {
		c.nc.Close()
	}
	return nil
}
