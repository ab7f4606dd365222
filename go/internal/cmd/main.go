package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/landg/paddock/go/internal/gateway"
	"github.com/landg/paddock/go/internal/telemetry"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	configPath := getEnv("CONFIG_PATH", "venue.yaml")
	config, err := loadConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("failed to load venue config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := setupDatabase(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up database")
	}
	defer pool.Close()

	services, err := setupServices(pool, config)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up services")
	}
	defer services.Timers.Close()

	// Make sure every configured track and rig exists before serving traffic.
	if err := services.Laps.SeedTracks(ctx, config.Venue.Tracks); err != nil {
		log.Fatal().Err(err).Msg("failed to seed tracks")
	}
	if err := services.Rigs.SeedRigs(ctx, config.RigIDs()); err != nil {
		log.Fatal().Err(err).Msg("failed to seed rigs")
	}

	conns := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	go conns.Start(ctx)

	handler := gateway.NewHandler(services.Surface, conns)
	services.Timers.OnExpire(handler.BroadcastTimerExpired)

	consumer, err := telemetry.NewConsumer(ctx, config.NATSURL(), services.Surface)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up telemetry consumer")
	}
	defer consumer.Close()

	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("telemetry consumer stopped")
		}
	}()

	server := setupServer(handler)

	go func() {
		log.Info().Str("addr", server.Addr).Msg("venue server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	cancel()
}
