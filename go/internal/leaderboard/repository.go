package leaderboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/landg/paddock/go/internal/models"
)

// ErrTrackNotFound is returned when a track name has no row in the tracks table
var ErrTrackNotFound = errors.New("track not found")

// ErrRigNotFound is returned when a rig identifier has no row in the rigs table
var ErrRigNotFound = errors.New("rig not found")

// DBTX defines what the repository needs from the database layer
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository implements lap time and track data access on Postgres
type Repository struct {
	db DBTX
}

// NewRepository creates a new leaderboard repository
func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

// InsertLapTimeRequest carries one lap to persist.
type InsertLapTimeRequest struct {
	RigID      string `json:"rig_identifier"`
	TrackName  string `json:"track_name"`
	PlayerName string `json:"player_name"`
	LapTimeMS  int64  `json:"lap_time_ms"`
}

// InsertLapTime stores a lap time, skipping exact duplicates.
// A duplicate (player, track, lap_time_ms) tuple is an idempotent success:
// the lap is already on the board, so the caller sees inserted=false, err=nil.
func (r *Repository) InsertLapTime(ctx context.Context, req InsertLapTimeRequest) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin lap time tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var trackID int32
	err = tx.QueryRow(ctx, `SELECT id FROM tracks WHERE name = $1`, req.TrackName).Scan(&trackID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("%w: %s", ErrTrackNotFound, req.TrackName)
		}
		return false, fmt.Errorf("failed to resolve track: %w", err)
	}

	var rigExists bool
	err = tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM rigs WHERE rig_identifier = $1)`, req.RigID).Scan(&rigExists)
	if err != nil {
		return false, fmt.Errorf("failed to check rig: %w", err)
	}
	if !rigExists {
		return false, fmt.Errorf("%w: %s", ErrRigNotFound, req.RigID)
	}

	var duplicates int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM lap_times
		WHERE track_id = $1 AND player_name_on_lap = $2 AND lap_time_ms = $3`,
		trackID, req.PlayerName, req.LapTimeMS,
	).Scan(&duplicates)
	if err != nil {
		return false, fmt.Errorf("failed to check for duplicate lap: %w", err)
	}
	if duplicates > 0 {
		return false, tx.Commit(ctx)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO lap_times (rig_identifier, track_id, player_name_on_lap, lap_time_ms, recorded_at)
		VALUES ($1, $2, $3, $4, NOW())`,
		req.RigID, trackID, req.PlayerName, req.LapTimeMS,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert lap time: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit lap time: %w", err)
	}
	return true, nil
}

// TopLapTimes returns the best lap per player on a track, fastest first.
func (r *Repository) TopLapTimes(ctx context.Context, trackName string, limit int32) ([]*models.LapTime, error) {
	var trackID int32
	err := r.db.QueryRow(ctx, `SELECT id FROM tracks WHERE name = $1`, trackName).Scan(&trackID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrTrackNotFound, trackName)
		}
		return nil, fmt.Errorf("failed to resolve track: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		WITH best_laps AS (
			SELECT player_name_on_lap, MIN(lap_time_ms) AS best_time
			FROM lap_times
			WHERE track_id = $1
			GROUP BY player_name_on_lap
		)
		SELECT lt.id, lt.player_name_on_lap, lt.lap_time_ms, lt.recorded_at, lt.rig_identifier
		FROM lap_times lt
		JOIN best_laps bl
		  ON lt.player_name_on_lap = bl.player_name_on_lap
		 AND lt.lap_time_ms = bl.best_time
		WHERE lt.track_id = $1
		ORDER BY lt.lap_time_ms ASC
		LIMIT $2`,
		trackID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query top lap times: %w", err)
	}
	defer rows.Close()

	var laps []*models.LapTime
	for rows.Next() {
		lap := &models.LapTime{TrackName: trackName}
		if err := rows.Scan(&lap.ID, &lap.PlayerName, &lap.LapTimeMS, &lap.RecordedAt, &lap.RigID); err != nil {
			return nil, fmt.Errorf("failed to scan lap time: %w", err)
		}
		laps = append(laps, lap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lap times: %w", err)
	}
	return laps, nil
}

// ListTracks returns all tracks ordered by name.
func (r *Repository) ListTracks(ctx context.Context) ([]*models.Track, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM tracks ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*models.Track
	for rows.Next() {
		track := &models.Track{}
		if err := rows.Scan(&track.ID, &track.Name); err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tracks: %w", err)
	}
	return tracks, nil
}

// SeedTracks inserts any missing tracks from the configured sequence.
func (r *Repository) SeedTracks(ctx context.Context, names []string) error {
	for _, name := range names {
		_, err := r.db.Exec(ctx, `INSERT INTO tracks (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
		if err != nil {
			return fmt.Errorf("failed to seed track %q: %w", name, err)
		}
	}
	return nil
}
