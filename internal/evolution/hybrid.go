package evolution

import "github.com/talgya/belief-swarm/internal/agents"

// Hybrid composes the genetic, game theory and cultural strategies. Payoffs
// and cultural success both feed the fitness that genetic selection ranks by.
type Hybrid struct {
	cfg HybridConfig

	genetic  *Genetic
	game     *GameTheory
	cultural *Cultural
}

// NewHybrid creates a hybrid strategy. Strategic adaptation is disabled in
// the embedded game theory: categories here change through genomes and peers.
func NewHybrid(cfg Config, deps Deps) *Hybrid {
	gt := cfg.GameTheory
	gt.Adaptation = false
	return &Hybrid{
		cfg:      cfg.Hybrid,
		genetic:  NewGenetic(cfg.Genetic, deps),
		game:     NewGameTheory(gt),
		cultural: NewCultural(cfg.Cultural, deps.Rng),
	}
}

func (h *Hybrid) Name() string { return string(KindHybrid) }

// Initialize sets up the genome, then payoff bookkeeping, then culture.
func (h *Hybrid) Initialize(a *agents.Agent) {
	h.genetic.Initialize(a)
	h.game.Initialize(a)
	h.cultural.Initialize(a)
}

// Tick runs the genetic step then the cultural step.
func (h *Hybrid) Tick(a *agents.Agent, pop []*agents.Agent) {
	h.genetic.Tick(a, pop)
	h.cultural.Tick(a, pop)
}

// Interact scores the game, transmits a's belief to b, then rewards a
// successful persuader at the receiver's expense.
func (h *Hybrid) Interact(a, b *agents.Agent) Outcome {
	out := h.game.Interact(a, b)
	out.Transfer = h.cultural.Transmit(a, b)

	if out.Transfer > h.cfg.SuccessThreshold {
		a.AddFitness(h.cfg.SenderBonus)
		b.AddFitness(-h.cfg.ReceiverPenalty)
	}
	return out
}

// EvolvePopulation decays game fitness, runs genetic selection, and gives
// any new offspring their game and cultural state.
func (h *Hybrid) EvolvePopulation(pop []*agents.Agent) []*agents.Agent {
	pop = h.game.EvolvePopulation(pop)
	pop = h.genetic.EvolvePopulation(pop)
	for _, a := range pop {
		h.game.Initialize(a)
		h.cultural.Initialize(a)
	}
	h.cultural.EvolvePopulation(pop)
	return pop
}

// Stats summarizes the population with the genetic generation.
func (h *Hybrid) Stats(pop []*agents.Agent) Stats {
	s := Summarize(pop)
	s.Strategy = h.Name()
	s.Generation = h.genetic.Generation()
	return s
}

func (h *Hybrid) Reset() {
	h.genetic.Reset()
	h.game.Reset()
	h.cultural.Reset()
}

func (h *Hybrid) Checkpoint() Checkpoint {
	return h.genetic.Checkpoint()
}

func (h *Hybrid) Resume(c Checkpoint) {
	h.genetic.Resume(c)
	h.game.Resume(c)
	h.cultural.Resume(c)
}
