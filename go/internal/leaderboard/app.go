package leaderboard

import (
	"context"
	"fmt"

	"github.com/landg/paddock/go/internal/models"
	"github.com/rs/zerolog/log"
)

// LapTimesRepository defines what the app layer needs from the repository
type LapTimesRepository interface {
	InsertLapTime(ctx context.Context, req InsertLapTimeRequest) (bool, error)
	TopLapTimes(ctx context.Context, trackName string, limit int32) ([]*models.LapTime, error)
	ListTracks(ctx context.Context) ([]*models.Track, error)
	SeedTracks(ctx context.Context, names []string) error
}

const defaultLeaderboardLimit = 10

// App handles leaderboard business logic
type App struct {
	repo LapTimesRepository
}

// NewApp creates a new leaderboard App
func NewApp(repo LapTimesRepository) *App {
	return &App{repo: repo}
}

// SubmitLapTime records a lap for the given player. Duplicate submissions of
// the identical (player, track, time) tuple succeed without adding a row.
func (a *App) SubmitLapTime(ctx context.Context, req InsertLapTimeRequest) error {
	if req.LapTimeMS <= 0 {
		return fmt.Errorf("lap time must be positive, got %dms", req.LapTimeMS)
	}

	inserted, err := a.repo.InsertLapTime(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to submit lap time: %w", err)
	}

	if inserted {
		log.Info().
			Str("rig_id", req.RigID).
			Str("track", req.TrackName).
			Str("player", req.PlayerName).
			Int64("lap_time_ms", req.LapTimeMS).
			Str("formatted", models.FormatLapTime(req.LapTimeMS)).
			Msg("lap time recorded")
	} else {
		log.Info().
			Str("track", req.TrackName).
			Str("player", req.PlayerName).
			Int64("lap_time_ms", req.LapTimeMS).
			Msg("duplicate lap time skipped")
	}
	return nil
}

// TopLapTimes returns the best lap per player on a track, fastest first.
func (a *App) TopLapTimes(ctx context.Context, trackName string, limit int32) ([]*models.LapTime, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	laps, err := a.repo.TopLapTimes(ctx, trackName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top lap times: %w", err)
	}
	return laps, nil
}

// ListTracks returns all known tracks.
func (a *App) ListTracks(ctx context.Context) ([]*models.Track, error) {
	tracks, err := a.repo.ListTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracks: %w", err)
	}
	return tracks, nil
}

// SeedTracks makes sure every configured track has a row.
func (a *App) SeedTracks(ctx context.Context, names []string) error {
	return a.repo.SeedTracks(ctx, names)
}
