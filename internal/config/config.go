// Package config loads the swarm configuration: embedded defaults, overlaid
// by an optional YAML file, overlaid by environment variables.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/belief-swarm/internal/engine"
	"github.com/talgya/belief-swarm/internal/evolution"
	"github.com/talgya/belief-swarm/internal/world"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds every tunable of a run.
type Config struct {
	Seed       int64         `yaml:"seed"`
	World      world.Config  `yaml:"world"`
	Simulation engine.Config `yaml:"simulation"`
	Engine     EngineConfig  `yaml:"engine"`
	Storage    StorageConfig `yaml:"storage"`
	API        APIConfig     `yaml:"api"`
	Log        LogConfig     `yaml:"log"`
}

// EngineConfig paces the tick loop.
type EngineConfig struct {
	TicksPerSecond float64 `yaml:"ticks_per_second"`
	Speed          float64 `yaml:"speed"`
	ReportEvery    uint64  `yaml:"report_every"`
	SaveEvery      uint64  `yaml:"save_every"`
}

// Interval is the base duration of one tick.
func (e EngineConfig) Interval() time.Duration {
	if e.TicksPerSecond <= 0 {
		return time.Second
	}
	return time.Duration(float64(time.Second) / e.TicksPerSecond)
}

// StorageConfig locates the sqlite run store.
type StorageConfig struct {
	Path   string `yaml:"path"`   // Empty disables persistence
	Resume bool   `yaml:"resume"` // Continue a saved run instead of starting fresh
}

// APIConfig configures the HTTP observation API. Keys come from the
// environment only and are never read from YAML.
type APIConfig struct {
	Port           int      `yaml:"port"` // 0 disables the API
	AllowedOrigins []string `yaml:"allowed_origins"`

	AdminKey string `yaml:"-"`
	RelayKey string `yaml:"-"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SlogLevel parses Level, defaulting to info.
func (l LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Default returns the embedded defaults. It panics only if the embedded file
// is malformed, which is a build defect.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Load reads the embedded defaults, overlays path if given, then applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays SWARM_* variables.
func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("SWARM_MODE"); ok {
		c.Simulation.Mode = evolution.Kind(strings.ToLower(v))
	}
	if v, ok := os.LookupEnv("SWARM_SEED"); ok {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("SWARM_SEED: %w", err)
		}
		c.Seed = seed
	}
	if v, ok := os.LookupEnv("SWARM_DB"); ok {
		c.Storage.Path = v
	}
	if v, ok := os.LookupEnv("SWARM_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SWARM_PORT: %w", err)
		}
		c.API.Port = port
	}
	if v, ok := os.LookupEnv("SWARM_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	c.API.AdminKey = os.Getenv("SWARM_ADMIN_KEY")
	c.API.RelayKey = os.Getenv("SWARM_RELAY_KEY")
	return nil
}

// Validate rejects configurations the simulation cannot run.
func (c *Config) Validate() error {
	if _, err := evolution.ParseKind(string(c.Simulation.Mode)); err != nil {
		return fmt.Errorf("simulation.mode: %w", err)
	}
	if c.World.Width <= 0 || c.World.Height <= 0 {
		return fmt.Errorf("world: dimensions must be positive, got %vx%v", c.World.Width, c.World.Height)
	}

	sp := c.Simulation.Spawn
	if sp.Population < 0 {
		return fmt.Errorf("simulation.spawn.population: must not be negative")
	}
	if sp.LiarsPercent < 0 || sp.StubbornPercent < 0 || sp.LiarsPercent+sp.StubbornPercent > 100 {
		return fmt.Errorf("simulation.spawn: liar and stubborn percentages must be non-negative and sum to at most 100")
	}
	if sp.ProximityRadius <= 0 {
		return fmt.Errorf("simulation.spawn.proximity_radius: must be positive")
	}

	g := c.Simulation.Evolution.Genetic
	if g.GenerationLength <= 0 {
		return fmt.Errorf("simulation.evolution.genetic.generation_length: must be positive")
	}
	if g.SurvivalRate <= 0 || g.SurvivalRate > 1 {
		return fmt.Errorf("simulation.evolution.genetic.survival_rate: must be in (0,1]")
	}
	if g.MutationRate < 0 || g.MutationRate > 1 {
		return fmt.Errorf("simulation.evolution.genetic.mutation_rate: must be in [0,1]")
	}
	if c.Engine.Speed < 0 {
		return fmt.Errorf("engine.speed: must not be negative")
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
