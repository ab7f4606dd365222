package rigs

import (
	"context"
	"fmt"
	"strings"

	"github.com/landg/paddock/go/internal/models"
	"github.com/rs/zerolog/log"
)

// AssignmentsRepository defines what the app layer needs from the repository
type AssignmentsRepository interface {
	AssignPlayer(ctx context.Context, rigID, playerName, contactInfo string) error
	CurrentPlayer(ctx context.Context, rigID string) (string, error)
	ListAssignments(ctx context.Context) ([]*models.RigAssignment, error)
	SeedRigs(ctx context.Context, rigIDs []string) error
}

// App handles rig assignment business logic
type App struct {
	repo AssignmentsRepository
}

// NewApp creates a new rigs App
func NewApp(repo AssignmentsRepository) *App {
	return &App{repo: repo}
}

// AssignPlayer puts a player on a rig. Assignment is pure storage mutation:
// it never touches timer or display state.
func (a *App) AssignPlayer(ctx context.Context, rigID, playerName, contactInfo string) error {
	playerName = strings.TrimSpace(playerName)
	if playerName == "" {
		return fmt.Errorf("player name must not be empty")
	}

	if err := a.repo.AssignPlayer(ctx, rigID, playerName, contactInfo); err != nil {
		return fmt.Errorf("failed to assign player: %w", err)
	}

	log.Info().
		Str("rig_id", rigID).
		Str("player", playerName).
		Msg("player assigned to rig")
	return nil
}

// CurrentPlayer returns the player currently assigned to a rig.
func (a *App) CurrentPlayer(ctx context.Context, rigID string) (string, error) {
	return a.repo.CurrentPlayer(ctx, rigID)
}

// ListAssignments returns every rig with its current player.
func (a *App) ListAssignments(ctx context.Context) ([]*models.RigAssignment, error) {
	assignments, err := a.repo.ListAssignments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rig assignments: %w", err)
	}
	return assignments, nil
}

// SeedRigs makes sure every configured rig has a row.
func (a *App) SeedRigs(ctx context.Context, rigIDs []string) error {
	return a.repo.SeedRigs(ctx, rigIDs)
}
