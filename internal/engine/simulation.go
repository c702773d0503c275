// Simulation is the Population Manager: it owns the swarm and runs the
// active evolution strategy over it each tick.
package engine

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/talgya/belief-swarm/internal/agents"
	"github.com/talgya/belief-swarm/internal/evolution"
	"github.com/talgya/belief-swarm/internal/world"
)

// Config is read when a population is built; edits only apply on Reset.
type Config struct {
	Mode      evolution.Kind     `yaml:"mode"`
	Spawn     agents.SpawnConfig `yaml:"spawn"`
	Flock     agents.FlockConfig `yaml:"flock"`
	Evolution evolution.Config   `yaml:"evolution"`

	BaseBlend    float64 `yaml:"base_blend"`    // Belief blend when no strategy is active
	HistoryEvery uint64  `yaml:"history_every"` // Ticks between history samples
	HistoryCap   int     `yaml:"history_cap"`
	EventCap     int     `yaml:"event_cap"`
	FrameCap     int     `yaml:"frame_cap"` // Recorded frames buffered between saves
}

// DefaultConfig returns the base-mode swarm.
func DefaultConfig() Config {
	return Config{
		Mode:         evolution.KindNone,
		Spawn:        agents.DefaultSpawnConfig(),
		Flock:        agents.DefaultFlockConfig(),
		Evolution:    evolution.DefaultConfig(),
		BaseBlend:    0.08,
		HistoryEvery: 5,
		HistoryCap:   200,
		EventCap:     1000,
		FrameCap:     5000,
	}
}

// Event is a notable occurrence in the swarm.
type Event struct {
	Seq         uint64 `json:"seq" db:"seq"` // Monotonic across resets; continued on resume
	Tick        uint64 `json:"tick" db:"tick"`
	Description string `json:"description" db:"description"`
	Category    string `json:"category" db:"category"` // "generation", "majority", "conversion", "control"
}

// HistorySample is one point of the type-balance time series.
type HistorySample struct {
	Tick       uint64  `json:"tick"`
	Honest     int     `json:"honest"`
	Liars      int     `json:"liars"`
	Stubborn   int     `json:"stubborn"`
	AvgFitness float64 `json:"avg_fitness"`
	Consensus  float64 `json:"consensus"`
}

// Simulation holds the complete swarm state. Step holds the write lock for
// the whole per-tick pass, so readers never see a half-updated population.
type Simulation struct {
	mu sync.RWMutex

	Config     Config
	World      *world.World
	Spawner    *agents.Spawner
	Strategy   evolution.Strategy // nil in base mode
	Agents     []*agents.Agent
	AgentIndex map[agents.AgentID]*agents.Agent
	LastTick   uint64

	// Partners each agent was in range of during the last tick.
	Active map[agents.AgentID][]agents.AgentID

	Events  []Event
	History []HistorySample
	Stats   evolution.Stats

	Recording bool
	frames    []Frame

	eventSeq   uint64
	rng        *rand.Rand
	generation int
	leader     agents.Type

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// NewSimulation spawns a fresh population for cfg.
func NewSimulation(cfg Config, w *world.World, rng *rand.Rand) (*Simulation, error) {
	s := &Simulation{
		Config:  cfg,
		World:   w,
		Spawner: agents.NewSpawner(rng, w),
		rng:     rng,
		subs:    make(map[int]chan Event),
	}
	if err := s.rebuild(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// rebuild replaces strategy and population from cfg. Caller holds the lock
// or owns s exclusively.
func (s *Simulation) rebuild(cfg Config) error {
	strategy, err := evolution.New(cfg.Mode, evolution.Deps{
		Rng:            s.rng,
		Spawner:        s.Spawner,
		PopulationSize: cfg.Spawn.Population,
		Config:         cfg.Evolution,
	})
	if err != nil {
		return fmt.Errorf("build strategy: %w", err)
	}

	s.Config = cfg
	s.Strategy = strategy
	s.Spawner.Rewind()
	pop := s.Spawner.SpawnPopulation(cfg.Spawn)
	if s.Strategy != nil {
		for _, a := range pop {
			s.Strategy.Initialize(a)
		}
	}
	s.setAgents(pop)
	s.Active = make(map[agents.AgentID][]agents.AgentID, len(pop))
	s.History = nil
	s.frames = nil
	s.generation = 0
	s.refreshStats()
	s.leader = s.majority()
	return nil
}

// Reset rebuilds the population from cfg. The tick counter keeps running.
func (s *Simulation) Reset(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.rebuild(cfg); err != nil {
		return err
	}
	s.emit(Event{
		Tick:        s.LastTick,
		Description: fmt.Sprintf("population reset: %d agents, mode %s", len(s.Agents), cfg.Mode),
		Category:    "control",
	})
	return nil
}

// Restore installs a saved population and strategy position.
func (s *Simulation) Restore(pop []*agents.Agent, tick uint64, cp evolution.Checkpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var maxID agents.AgentID
	for _, a := range pop {
		if a.ID > maxID {
			maxID = a.ID
		}
		if a.InteractionTimer == nil {
			a.InteractionTimer = make(map[agents.AgentID]int)
		}
	}
	s.Spawner.SetNextID(maxID + 1)

	if s.Strategy != nil {
		s.Strategy.Resume(cp)
		for _, a := range pop {
			s.Strategy.Initialize(a)
		}
	}
	s.generation = cp.Generation
	s.LastTick = tick
	s.setAgents(pop)
	s.refreshStats()
	s.leader = s.majority()
}

func (s *Simulation) setAgents(pop []*agents.Agent) {
	s.Agents = pop
	s.AgentIndex = make(map[agents.AgentID]*agents.Agent, len(pop))
	for _, a := range pop {
		s.AgentIndex[a.ID] = a
	}
}

// Step runs one tick: every agent flocks, exchanges beliefs with partners
// whose proximity timer fired, moves and updates; then the population evolves.
func (s *Simulation) Step(tick uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.LastTick = tick
	clear(s.Active)

	for _, a := range s.Agents {
		a.Flock(s.Agents, s.Config.Flock)
		if ids := s.interact(a); len(ids) > 0 {
			s.Active[a.ID] = ids
		}
		a.Move(s.World, s.Config.Flock)
		a.DeriveTypeFromBelief()
		if s.Strategy != nil {
			s.Strategy.Tick(a, s.Agents)
		}
	}

	if s.Strategy != nil {
		next := s.Strategy.EvolvePopulation(s.Agents)
		if replaced(s.Agents, next) {
			s.setAgents(next)
			s.pruneTimers()
		}
	}

	s.refreshStats()
	s.detectEvents(tick)

	if s.Config.HistoryEvery > 0 && tick%s.Config.HistoryEvery == 0 {
		s.sampleHistory(tick)
	}
	if s.Recording {
		s.recordFrame(tick)
	}
}

// interact advances proximity timers for a and runs an exchange with each
// partner whose timer passed the interaction time. Stubborn agents listen
// but never initiate. Returns the partners in range.
func (s *Simulation) interact(a *agents.Agent) []agents.AgentID {
	if a.Type == agents.TypeStubborn {
		return nil
	}
	var ids []agents.AgentID
	for _, o := range s.Agents {
		if o == a {
			continue
		}
		if agents.Distance(a, o) >= s.Config.Spawn.ProximityRadius {
			continue
		}
		ids = append(ids, o.ID)
		if a.TickTimer(o.ID) > s.Config.Spawn.InteractionTime {
			s.exchange(a, o)
			a.ResetTimer(o.ID)
		}
	}
	return ids
}

func (s *Simulation) exchange(a, o *agents.Agent) {
	if s.Strategy == nil {
		a.BlendToward(o, s.Config.BaseBlend)
		return
	}
	s.Strategy.Interact(a, o)
}

// replaced reports whether next is a different population slice.
func replaced(cur, next []*agents.Agent) bool {
	if len(cur) != len(next) {
		return true
	}
	return len(next) > 0 && &cur[0] != &next[0]
}

// pruneTimers drops proximity counters for agents no longer present.
func (s *Simulation) pruneTimers() {
	for _, a := range s.Agents {
		for id := range a.InteractionTimer {
			if _, ok := s.AgentIndex[id]; !ok {
				delete(a.InteractionTimer, id)
			}
		}
	}
}

func (s *Simulation) refreshStats() {
	if s.Strategy != nil {
		s.Stats = s.Strategy.Stats(s.Agents)
		return
	}
	s.Stats = evolution.Summarize(s.Agents)
}

// majority returns the belief category with the most agents. Ties keep the
// previous leader.
func (s *Simulation) majority() agents.Type {
	switch {
	case s.Stats.Honest > s.Stats.Liars:
		return agents.TypeHonest
	case s.Stats.Liars > s.Stats.Honest:
		return agents.TypeLiar
	}
	return s.leader
}

func (s *Simulation) detectEvents(tick uint64) {
	if s.Stats.Generation != s.generation {
		s.generation = s.Stats.Generation
		s.emit(Event{
			Tick: tick,
			Description: fmt.Sprintf("generation %d: %d agents, avg fitness %.2f",
				s.generation, s.Stats.Population, s.Stats.AvgFitness),
			Category: "generation",
		})
		slog.Info("generation complete",
			"tick", humanize.Comma(int64(tick)),
			"generation", s.generation,
			"population", s.Stats.Population,
			"avg_fitness", fmt.Sprintf("%.2f", s.Stats.AvgFitness),
		)
	}

	if leader := s.majority(); leader != s.leader {
		s.emit(Event{
			Tick: tick,
			Description: fmt.Sprintf("majority shifted to %s (%d honest, %d liars)",
				leader, s.Stats.Honest, s.Stats.Liars),
			Category: "majority",
		})
		s.leader = leader
	}
}

func (s *Simulation) sampleHistory(tick uint64) {
	s.History = append(s.History, HistorySample{
		Tick:       tick,
		Honest:     s.Stats.Honest,
		Liars:      s.Stats.Liars,
		Stubborn:   s.Stats.Stubborn,
		AvgFitness: s.Stats.AvgFitness,
		Consensus:  s.Stats.Consensus,
	})
	if s.Config.HistoryCap > 0 && len(s.History) > s.Config.HistoryCap {
		s.History = s.History[len(s.History)-s.Config.HistoryCap:]
	}
}

// emit records an event and fans it out to subscribers. Caller holds s.mu.
func (s *Simulation) emit(e Event) {
	s.eventSeq++
	e.Seq = s.eventSeq
	s.Events = append(s.Events, e)
	if s.Config.EventCap > 0 && len(s.Events) > s.Config.EventCap {
		s.Events = s.Events[len(s.Events)-s.Config.EventCap:]
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- e:
		default: // Slow subscriber; drop rather than stall the tick.
		}
	}
}

// Emit records an externally originated event, such as an operator action.
func (s *Simulation) Emit(category, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emit(Event{Tick: s.LastTick, Description: description, Category: category})
}

// Subscribe registers a live event stream.
func (s *Simulation) Subscribe() (int, <-chan Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan Event, 64)
	s.subs[id] = ch
	return id, ch
}

// Unsubscribe closes and removes a stream.
func (s *Simulation) Unsubscribe(id int) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if ch, ok := s.subs[id]; ok {
		close(ch)
		delete(s.subs, id)
	}
}

// View runs fn with the read lock held. fn must not retain agent pointers.
func (s *Simulation) View(fn func(s *Simulation)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s)
}

// CurrentTick returns the most recently processed tick.
func (s *Simulation) CurrentTick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastTick
}

// CurrentStats returns the latest aggregate.
func (s *Simulation) CurrentStats() evolution.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Stats
}

// CurrentConfig returns the configuration of the running population.
func (s *Simulation) CurrentConfig() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Config
}

// Checkpoint returns the strategy position for saving.
func (s *Simulation) Checkpoint() evolution.Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkpoint()
}

func (s *Simulation) checkpoint() evolution.Checkpoint {
	if s.Strategy == nil {
		return evolution.Checkpoint{}
	}
	return s.Strategy.Checkpoint()
}

// RecentEvents returns up to n of the latest events, oldest first.
func (s *Simulation) RecentEvents(n int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := max(len(s.Events)-n, 0)
	return append([]Event(nil), s.Events[start:]...)
}

// HistorySamples returns a copy of the type-balance series.
func (s *Simulation) HistorySamples() []HistorySample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]HistorySample(nil), s.History...)
}

// Report logs a periodic summary.
func (s *Simulation) Report(tick uint64) {
	st := s.CurrentStats()
	slog.Info("swarm report",
		"tick", humanize.Comma(int64(tick)),
		"mode", st.Strategy,
		"population", st.Population,
		"honest", st.Honest,
		"liars", st.Liars,
		"stubborn", st.Stubborn,
		"generation", st.Generation,
		"avg_fitness", fmt.Sprintf("%.3f", st.AvgFitness),
		"avg_belief", fmt.Sprintf("%.3f", st.AvgBeliefStrength),
		"consensus", fmt.Sprintf("%.3f", st.Consensus),
		"diversity", fmt.Sprintf("%.1f", st.Diversity),
	)
}
