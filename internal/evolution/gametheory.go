package evolution

import "github.com/talgya/belief-swarm/internal/agents"

// Move is a Prisoner's Dilemma action.
type Move uint8

const (
	Cooperate Move = iota
	Defect
)

func (m Move) String() string {
	if m == Defect {
		return "D"
	}
	return "C"
}

// pairKey identifies an unordered pair of agents.
type pairKey struct {
	lo, hi agents.AgentID
}

func keyFor(a, b agents.AgentID) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// GameTheory scores interactions with the classic Prisoner's Dilemma. A pair
// is scored at most once per tick; repeat attempts only exchange beliefs.
type GameTheory struct {
	cfg GameTheoryConfig

	clock     clock
	processed map[pairKey]struct{}
}

// NewGameTheory creates a game theory strategy.
func NewGameTheory(cfg GameTheoryConfig) *GameTheory {
	return &GameTheory{
		cfg:       cfg,
		processed: make(map[pairKey]struct{}),
	}
}

func (g *GameTheory) Name() string { return string(KindGameTheory) }

// Initialize attaches payoff bookkeeping. Existing fitness is kept.
func (g *GameTheory) Initialize(a *agents.Agent) {
	if a.Game != nil {
		return
	}
	a.EnsureGame()
}

// Tick is a no-op: fitness decay runs population-wide in EvolvePopulation.
func (g *GameTheory) Tick(a *agents.Agent, _ []*agents.Agent) {
	g.Initialize(a)
}

// MoveFor returns the action a plays against opponent. Honest agents always
// cooperate, liars always defect, stubborn agents defect only against liars.
func MoveFor(a, opponent *agents.Agent) Move {
	switch a.Type {
	case agents.TypeLiar:
		return Defect
	case agents.TypeStubborn:
		if opponent.Type == agents.TypeLiar {
			return Defect
		}
	}
	return Cooperate
}

// Payoff returns the payoffs for a pair of moves, first player first.
func (g *GameTheory) Payoff(mine, theirs Move) (float64, float64) {
	c := g.cfg
	switch {
	case mine == Cooperate && theirs == Cooperate:
		return c.Reward, c.Reward
	case mine == Cooperate && theirs == Defect:
		return c.Sucker, c.Temptation
	case mine == Defect && theirs == Cooperate:
		return c.Temptation, c.Sucker
	default:
		return c.Punishment, c.Punishment
	}
}

// Interact plays one round between a and b and exchanges beliefs both ways.
// If the pair was already scored this tick only a hears b.
func (g *GameTheory) Interact(a, b *agents.Agent) Outcome {
	key := keyFor(a.ID, b.ID)
	if _, seen := g.processed[key]; seen {
		rate := g.communicate(a, b)
		return Outcome{Transfer: rate, Deduplicated: true}
	}
	g.processed[key] = struct{}{}

	g.Initialize(a)
	g.Initialize(b)

	pa, pb := g.Payoff(MoveFor(a, b), MoveFor(b, a))
	a.AddFitness(pa)
	b.AddFitness(pb)
	a.PushPayoff(pa)
	b.PushPayoff(pb)

	rate := g.communicate(a, b)
	g.communicate(b, a)
	return Outcome{Transfer: rate, PayoffA: pa, PayoffB: pb, Scored: true}
}

// communicate blends the receiver toward the transmitter's broadcast belief.
func (g *GameTheory) communicate(receiver, transmitter *agents.Agent) float64 {
	rate := g.cfg.BlendRate
	if receiver.Type == agents.TypeStubborn {
		rate = g.cfg.StubbornRate
	}
	receiver.BlendToward(transmitter, rate)
	return rate
}

// EvolvePopulation closes the tick: pair tracking is cleared, fitness decays
// on its cadence, and agents may adopt a better-paid neighbour category.
func (g *GameTheory) EvolvePopulation(pop []*agents.Agent) []*agents.Agent {
	defer g.clock.advance()

	clear(g.processed)
	if g.clock.due(g.cfg.DecayInterval) {
		for _, a := range pop {
			a.Fitness *= g.cfg.DecayRate
		}
	}
	if g.cfg.Adaptation && g.clock.due(g.cfg.AdaptInterval) {
		g.adapt(pop)
	}
	return pop
}

// adapt compares each experienced agent's average payoff with the average
// earned by each neighbouring category and switches to the best one if it
// pays more than AdaptMargin better. Decisions use the state before any switch.
func (g *GameTheory) adapt(pop []*agents.Agent) {
	type switchTo struct {
		agent *agents.Agent
		to    agents.Type
	}
	var switches []switchTo

	for _, a := range pop {
		if a.PayoffCount() < g.cfg.AdaptMinHistory {
			continue
		}
		var sum [agents.NumTypes]float64
		var n [agents.NumTypes]int
		for _, o := range neighbours(a, pop, g.cfg.AdaptRadius) {
			if o.PayoffCount() == 0 {
				continue
			}
			sum[o.Type] += o.AveragePayoff()
			n[o.Type]++
		}

		own := a.AveragePayoff()
		best, bestAvg := a.Type, own+g.cfg.AdaptMargin
		for t := range agents.NumTypes {
			if n[t] == 0 || agents.Type(t) == a.Type {
				continue
			}
			if avg := sum[t] / float64(n[t]); avg > bestAvg {
				best, bestAvg = agents.Type(t), avg
			}
		}
		if best != a.Type {
			switches = append(switches, switchTo{agent: a, to: best})
		}
	}

	for _, s := range switches {
		adopt(s.agent, s.to, g.cfg.AdoptionBlend)
		s.agent.Game = &agents.GameState{}
	}
}

// Stats summarizes the population.
func (g *GameTheory) Stats(pop []*agents.Agent) Stats {
	s := Summarize(pop)
	s.Strategy = g.Name()
	return s
}

func (g *GameTheory) Reset() {
	g.clock = clock{}
	clear(g.processed)
}

func (g *GameTheory) Checkpoint() Checkpoint {
	return Checkpoint{Ticks: g.clock.ticks}
}

func (g *GameTheory) Resume(c Checkpoint) {
	g.clock.ticks = c.Ticks
}
