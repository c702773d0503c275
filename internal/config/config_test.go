package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/belief-swarm/internal/engine"
	"github.com/talgya/belief-swarm/internal/evolution"
	"github.com/talgya/belief-swarm/internal/world"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "swarm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultsMatchPackageDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, world.DefaultConfig(), cfg.World)
	assert.Equal(t, engine.DefaultConfig(), cfg.Simulation)
	assert.Equal(t, int64(0), cfg.Seed)
	assert.Equal(t, 8080, cfg.API.Port)
}

func TestFileOverlaysOnlyNamedKeys(t *testing.T) {
	path := writeFile(t, `
simulation:
  mode: hybrid
  spawn:
    population: 40
  evolution:
    genetic:
      generation_length: 120
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, evolution.KindHybrid, cfg.Simulation.Mode)
	assert.Equal(t, 40, cfg.Simulation.Spawn.Population)
	assert.Equal(t, 15.0, cfg.Simulation.Spawn.LiarsPercent, "untouched keys keep defaults")
	assert.Equal(t, 120, cfg.Simulation.Evolution.Genetic.GenerationLength)
	assert.Equal(t, 0.1, cfg.Simulation.Evolution.Genetic.MutationRate)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("SWARM_MODE", "Cultural")
	t.Setenv("SWARM_SEED", "1234")
	t.Setenv("SWARM_PORT", "9000")
	t.Setenv("SWARM_ADMIN_KEY", "secret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, evolution.KindCultural, cfg.Simulation.Mode)
	assert.Equal(t, int64(1234), cfg.Seed)
	assert.Equal(t, 9000, cfg.API.Port)
	assert.Equal(t, "secret", cfg.API.AdminKey)

	t.Setenv("SWARM_SEED", "twelve")
	_, err = Load("")
	assert.ErrorContains(t, err, "SWARM_SEED")
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"mode":        "simulation: {mode: annealing}",
		"percentages": "simulation: {spawn: {liars_percent: 70, stubborn_percent: 40}}",
		"radius":      "simulation: {spawn: {proximity_radius: 0}}",
		"survival":    "simulation: {evolution: {genetic: {survival_rate: 0}}}",
		"generation":  "simulation: {evolution: {genetic: {generation_length: 0}}}",
		"world":       "world: {width: -5}",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "reading config file")
}

func TestWriteYAMLRoundTripOmitsSecrets(t *testing.T) {
	cfg := Default()
	cfg.Simulation.Mode = evolution.KindGameTheory
	cfg.API.AdminKey = "secret"

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.WriteYAML(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, evolution.KindGameTheory, back.Simulation.Mode)
	assert.Equal(t, cfg.Simulation, back.Simulation)
}

func TestLogLevelAndInterval(t *testing.T) {
	assert.Equal(t, "DEBUG", LogConfig{Level: "debug"}.SlogLevel().String())
	assert.Equal(t, "INFO", LogConfig{Level: "loud"}.SlogLevel().String())
	assert.Equal(t, int64(50_000_000), EngineConfig{TicksPerSecond: 20}.Interval().Nanoseconds())
}

func TestLogHandlerFormat(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(LogConfig{Level: "debug", Format: "json"}.Handler(&buf))
	logger.Debug("hello", "k", 1)
	assert.True(t, strings.HasPrefix(buf.String(), "{"), buf.String())

	buf.Reset()
	logger = slog.New(LogConfig{Level: "warn", Format: "text"}.Handler(&buf))
	logger.Info("dropped")
	logger.Warn("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "msg=kept")

	// A buffer is not a terminal, so auto picks JSON.
	buf.Reset()
	slog.New(LogConfig{Format: "auto"}.Handler(&buf)).Info("auto")
	assert.True(t, strings.HasPrefix(buf.String(), "{"), buf.String())
}
