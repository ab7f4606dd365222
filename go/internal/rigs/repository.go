package rigs

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/landg/paddock/go/internal/models"
)

// ErrRigNotFound is returned when a rig identifier has no row in the rigs table
var ErrRigNotFound = errors.New("rig not found")

// DBTX defines what the repository needs from the database layer
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements rig assignment data access on Postgres
type Repository struct {
	db DBTX
}

// NewRepository creates a new rigs repository
func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

// AssignPlayer sets the current player on a rig.
func (r *Repository) AssignPlayer(ctx context.Context, rigID, playerName, contactInfo string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE rigs
		SET current_player_name = $2, contact_info = $3, updated_at = NOW()
		WHERE rig_identifier = $1`,
		rigID, playerName, contactInfo,
	)
	if err != nil {
		return fmt.Errorf("failed to assign player: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrRigNotFound, rigID)
	}
	return nil
}

// CurrentPlayer returns the player assigned to a rig, or UnknownRacer when
// the rig exists but has nobody assigned.
func (r *Repository) CurrentPlayer(ctx context.Context, rigID string) (string, error) {
	var name *string
	err := r.db.QueryRow(ctx,
		`SELECT current_player_name FROM rigs WHERE rig_identifier = $1`, rigID,
	).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%w: %s", ErrRigNotFound, rigID)
		}
		return "", fmt.Errorf("failed to get current player: %w", err)
	}
	if name == nil || *name == "" {
		return models.UnknownRacer, nil
	}
	return *name, nil
}

// ListAssignments returns every rig with its current player.
func (r *Repository) ListAssignments(ctx context.Context) ([]*models.RigAssignment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT rig_identifier, COALESCE(current_player_name, ''), COALESCE(contact_info, ''), updated_at
		FROM rigs
		ORDER BY rig_identifier`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rig assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*models.RigAssignment
	for rows.Next() {
		a := &models.RigAssignment{}
		if err := rows.Scan(&a.RigID, &a.PlayerName, &a.ContactInfo, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rig assignment: %w", err)
		}
		if a.PlayerName == "" {
			a.PlayerName = models.UnknownRacer
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rig assignments: %w", err)
	}
	return assignments, nil
}

// SeedRigs inserts any missing rigs from the configured set.
func (r *Repository) SeedRigs(ctx context.Context, rigIDs []string) error {
	for _, id := range rigIDs {
		_, err := r.db.Exec(ctx, `
			INSERT INTO rigs (rig_identifier, updated_at) VALUES ($1, NOW())
			ON CONFLICT (rig_identifier) DO NOTHING`, id)
		if err != nil {
			return fmt.Errorf("failed to seed rig %q: %w", id, err)
		}
	}
	return nil
}
