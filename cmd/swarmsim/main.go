// Command swarmsim runs the belief swarm: agents flock across a continuous
// plane and exchange beliefs under the configured evolution strategy.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"

	"github.com/talgya/belief-swarm/internal/api"
	"github.com/talgya/belief-swarm/internal/config"
	"github.com/talgya/belief-swarm/internal/engine"
	"github.com/talgya/belief-swarm/internal/entropy"
	"github.com/talgya/belief-swarm/internal/persistence"
	"github.com/talgya/belief-swarm/internal/world"
)

func main() {
	configPath := flag.String("config", "", "YAML file overlaid on the embedded defaults")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "loading .env: %v\n", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	cfg.Log.Install()

	if err := run(cfg); err != nil {
		slog.Error("swarmsim failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Database ──────────────────────────────────────────────────────
	var db *persistence.DB
	if cfg.Storage.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		var err error
		if db, err = persistence.Open(cfg.Storage.Path); err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		slog.Info("database opened", "path", cfg.Storage.Path)
	}

	// ── Load or spawn the swarm ──────────────────────────────────────
	var saved *persistence.WorldState
	if db != nil && cfg.Storage.Resume && db.HasWorldState() {
		slog.Info("found saved world state, loading...")
		ws, err := db.LoadWorldState()
		if err != nil {
			return fmt.Errorf("load world state: %w", err)
		}
		saved = ws
		if ws.Mode != "" {
			cfg.Simulation.Mode = ws.Mode
		}
		if ws.Seed != 0 {
			cfg.Seed = ws.Seed
		}
	}

	seed := entropy.ResolveSeed(cfg.Seed)
	w := world.New(cfg.World, seed)
	sim, err := engine.NewSimulation(cfg.Simulation, w, entropy.New(seed))
	if err != nil {
		return fmt.Errorf("build simulation: %w", err)
	}

	if db != nil {
		// Continue event numbering so saves never skip or repeat stored events.
		sim.SetEventSeq(db.EventSeq())
	}

	var runID string
	switch {
	case saved != nil:
		sim.Restore(saved.Agents, saved.Tick, saved.Checkpoint)
		runID = saved.RunID
		slog.Info("world state restored",
			"run", runID,
			"agents", len(saved.Agents),
			"tick", humanize.Comma(int64(saved.Tick)),
			"generation", saved.Checkpoint.Generation,
		)
	case db != nil:
		if runID, err = db.StartRun(cfg.Simulation.Mode, seed); err != nil {
			return fmt.Errorf("start run: %w", err)
		}
	}

	slog.Info("swarm ready",
		"mode", cfg.Simulation.Mode,
		"seed", seed,
		"agents", sim.CurrentStats().Population,
		"world", w.String(),
	)

	// ── Engine ───────────────────────────────────────────────────────
	eng := engine.NewEngine()
	eng.Interval = cfg.Engine.Interval()
	eng.ReportEvery = cfg.Engine.ReportEvery
	eng.SaveEvery = cfg.Engine.SaveEvery
	eng.SetSpeed(cfg.Engine.Speed)
	eng.SetTick(sim.CurrentTick())

	apiServer := &api.Server{
		Sim:            sim,
		Eng:            eng,
		DB:             db,
		Port:           cfg.API.Port,
		Seed:           seed,
		AdminKey:       cfg.API.AdminKey,
		RelayKey:       cfg.API.RelayKey,
		AllowedOrigins: cfg.API.AllowedOrigins,
	}
	apiServer.SetRunID(runID)

	save := func(reason string) {
		if db == nil {
			return
		}
		start := time.Now()
		if err := db.SaveWorldState(sim, apiServer.RunID()); err != nil {
			slog.Error("save failed", "reason", reason, "error", err)
			return
		}
		slog.Debug("saved", "reason", reason, "took", time.Since(start))
	}

	eng.OnTick = sim.Step
	eng.OnReport = sim.Report
	eng.OnSave = func(uint64) { save("periodic") }

	// ── HTTP API ─────────────────────────────────────────────────────
	if cfg.API.Port > 0 {
		if cfg.API.AdminKey == "" {
			slog.Warn("SWARM_ADMIN_KEY not set, admin POST endpoints will be disabled")
		}
		apiServer.Start(ctx)
		fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.API.Port)
	}

	started := time.Now()
	fmt.Printf("\nThe swarm is alive: %d agents in %s mode.\n", sim.CurrentStats().Population, cfg.Simulation.Mode)
	if saved != nil {
		fmt.Printf("Resuming run %s from tick %s\n", runID, humanize.Comma(int64(saved.Tick)))
	}
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run(ctx)

	slog.Info("final save...")
	save("shutdown")

	fmt.Printf("Simulation stopped after %s at tick %s.\n",
		time.Since(started).Round(time.Second), humanize.Comma(int64(eng.Tick())))
	return nil
}
