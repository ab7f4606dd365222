package main

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/landg/paddock/go/clients/rigagent"
	"github.com/landg/paddock/go/internal/control"
	"github.com/landg/paddock/go/internal/display"
	"github.com/landg/paddock/go/internal/leaderboard"
	"github.com/landg/paddock/go/internal/rigs"
	"github.com/landg/paddock/go/internal/timercontrol"
)

type Services struct {
	Laps     *leaderboard.App
	Rigs     *rigs.App
	Selector *display.Selector
	Timers   *timercontrol.Registry
	Agent    *rigagent.Client
	Surface  *control.Surface
}

func setupServices(pool *pgxpool.Pool, config *Config) (*Services, error) {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer → Surface layer
	clock := clockwork.NewRealClock()

	lapsRepo := leaderboard.NewRepository(pool)
	lapsApp := leaderboard.NewApp(lapsRepo)

	rigsRepo := rigs.NewRepository(pool)
	rigsApp := rigs.NewApp(rigsRepo)

	selector, err := display.NewSelector(config.Venue.Tracks, config.CycleInterval(), clock)
	if err != nil {
		return nil, fmt.Errorf("failed to create display selector: %w", err)
	}

	agent := rigagent.NewClient(config.AgentAddresses(), config.AgentTimeout())
	registry := timercontrol.NewRegistry(agent, clock)

	surface := control.NewSurface(lapsApp, rigsApp, selector, registry, agent, config.RigIDs())

	return &Services{
		Laps:     lapsApp,
		Rigs:     rigsApp,
		Selector: selector,
		Timers:   registry,
		Agent:    agent,
		Surface:  surface,
	}, nil
}
