package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/landg/paddock/go/internal/display"
)

// Config is the venue configuration loaded from YAML.
type Config struct {
	Venue struct {
		Tracks           []string `yaml:"tracks"`
		CycleIntervalSec int      `yaml:"cycle_interval_sec"`
	} `yaml:"venue"`
	Rigs []RigConfig `yaml:"rigs"`
	NATS struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`
	Agent struct {
		TimeoutSec int `yaml:"timeout_sec"`
	} `yaml:"agent"`
}

// RigConfig describes one simulator rig and its agent endpoint.
type RigConfig struct {
	ID           string `yaml:"id"`
	AgentAddress string `yaml:"agent_address"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if len(config.Venue.Tracks) == 0 {
		return nil, fmt.Errorf("config must list at least one track")
	}
	if len(config.Rigs) == 0 {
		return nil, fmt.Errorf("config must list at least one rig")
	}
	return &config, nil
}

// CycleInterval returns the leaderboard rotation interval.
func (c *Config) CycleInterval() time.Duration {
	if c.Venue.CycleIntervalSec <= 0 {
		return display.DefaultCycleInterval
	}
	return time.Duration(c.Venue.CycleIntervalSec) * time.Second
}

// AgentTimeout returns the per-command rig agent timeout.
func (c *Config) AgentTimeout() time.Duration {
	if c.Agent.TimeoutSec <= 0 {
		return 0
	}
	return time.Duration(c.Agent.TimeoutSec) * time.Second
}

// RigIDs returns the configured rig identifiers in order.
func (c *Config) RigIDs() []string {
	ids := make([]string, 0, len(c.Rigs))
	for _, rig := range c.Rigs {
		ids = append(ids, rig.ID)
	}
	return ids
}

// AgentAddresses returns the rig ID to agent address mapping.
func (c *Config) AgentAddresses() map[string]string {
	addrs := make(map[string]string, len(c.Rigs))
	for _, rig := range c.Rigs {
		addrs[rig.ID] = rig.AgentAddress
	}
	return addrs
}

// NATSURL returns the configured NATS server URL, falling back to the
// NATS_URL environment variable.
func (c *Config) NATSURL() string {
	if c.NATS.URL != "" {
		return c.NATS.URL
	}
	return getEnv("NATS_URL", "nats://localhost:4222")
}
