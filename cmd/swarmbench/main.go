// Command swarmbench runs every evolution strategy headless from the same
// starting conditions and prints how the belief balance ended up.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sourcegraph/conc/pool"

	"github.com/talgya/belief-swarm/internal/config"
	"github.com/talgya/belief-swarm/internal/engine"
	"github.com/talgya/belief-swarm/internal/entropy"
	"github.com/talgya/belief-swarm/internal/evolution"
	"github.com/talgya/belief-swarm/internal/world"
)

// job is one headless run.
type job struct {
	Mode  evolution.Kind
	Seed  int64
	Ticks uint64
}

// result is the final state of a job.
type result struct {
	job
	Stats   evolution.Stats
	Events  int
	Elapsed time.Duration
}

func main() {
	configPath := flag.String("config", "", "YAML file overlaid on the embedded defaults")
	ticks := flag.Uint64("ticks", 3000, "ticks per run")
	modes := flag.String("modes", "", "comma-separated strategies (default: all)")
	replicas := flag.Int("replicas", 1, "runs per strategy, each with its own seed")
	workers := flag.Int("workers", runtime.NumCPU(), "concurrent runs")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	cfg.Log.Install()

	kinds, err := parseModes(*modes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "modes: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobs := plan(kinds, entropy.ResolveSeed(cfg.Seed), *replicas, *ticks)
	slog.Info("benchmark starting", "runs", len(jobs), "ticks", humanize.Comma(int64(*ticks)), "workers", *workers)

	results, err := runAll(ctx, cfg, jobs, *workers)
	if err != nil {
		slog.Error("benchmark failed", "error", err)
		os.Exit(1)
	}
	printTable(os.Stdout, results)
}

func parseModes(s string) ([]evolution.Kind, error) {
	if strings.TrimSpace(s) == "" {
		return evolution.Kinds, nil
	}
	var out []evolution.Kind
	for _, name := range strings.Split(s, ",") {
		k, err := evolution.ParseKind(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}

// plan gives replica i of every mode the same seed, so strategies are
// compared from identical spawns.
func plan(kinds []evolution.Kind, seed int64, replicas int, ticks uint64) []job {
	var jobs []job
	for i := 0; i < max(replicas, 1); i++ {
		for _, k := range kinds {
			jobs = append(jobs, job{Mode: k, Seed: seed + int64(i), Ticks: ticks})
		}
	}
	return jobs
}

// runAll executes jobs on a bounded pool. Each simulation is single-threaded
// and owns its state, so runs share nothing.
func runAll(ctx context.Context, cfg *config.Config, jobs []job, workers int) ([]result, error) {
	p := pool.NewWithResults[result]().
		WithContext(ctx).
		WithCancelOnError().
		WithMaxGoroutines(max(workers, 1))

	for _, j := range jobs {
		p.Go(func(ctx context.Context) (result, error) {
			return runOne(ctx, cfg, j)
		})
	}

	results, err := p.Wait()
	sort.Slice(results, func(i, k int) bool {
		if results[i].Seed != results[k].Seed {
			return results[i].Seed < results[k].Seed
		}
		return indexOf(results[i].Mode) < indexOf(results[k].Mode)
	})
	return results, err
}

func indexOf(k evolution.Kind) int {
	for i, kk := range evolution.Kinds {
		if kk == k {
			return i
		}
	}
	return len(evolution.Kinds)
}

func runOne(ctx context.Context, cfg *config.Config, j job) (result, error) {
	simCfg := cfg.Simulation
	simCfg.Mode = j.Mode

	start := time.Now()
	sim, err := engine.NewSimulation(simCfg, world.New(cfg.World, j.Seed), entropy.New(j.Seed))
	if err != nil {
		return result{}, fmt.Errorf("%s seed %d: %w", j.Mode, j.Seed, err)
	}

	for tick := uint64(1); tick <= j.Ticks; tick++ {
		if tick%100 == 0 {
			if err := ctx.Err(); err != nil {
				return result{}, fmt.Errorf("%s seed %d: %w", j.Mode, j.Seed, err)
			}
		}
		sim.Step(tick)
	}

	r := result{
		job:     j,
		Stats:   sim.CurrentStats(),
		Events:  len(sim.RecentEvents(math.MaxInt)),
		Elapsed: time.Since(start),
	}
	slog.Debug("run finished", "mode", j.Mode, "seed", j.Seed, "took", r.Elapsed)
	return r, nil
}

func printTable(w io.Writer, results []result) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "mode\tseed\thonest\tliars\tstubborn\tgeneration\tavg fitness\tavg belief\tconsensus\tdiversity\tconversions\tevents\ttime\t")
	for _, r := range results {
		st := r.Stats
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%.3f\t%.3f\t%.3f\t%.1f\t%d\t%d\t%s\t\n",
			r.Mode, r.Seed, st.Honest, st.Liars, st.Stubborn, st.Generation,
			st.AvgFitness, st.AvgBeliefStrength, st.Consensus, st.Diversity,
			st.Conversions, r.Events, r.Elapsed.Round(time.Millisecond))
	}
	tw.Flush()
}
