// Package evolution implements the pluggable strategies that govern how an
// agent's genome, type and belief change through interaction, and how the
// population is selected and reproduced.
package evolution

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/talgya/belief-swarm/internal/agents"
)

// Strategy is the contract every evolution mode implements. The Population
// Manager holds exactly one and drives it once per tick:
//
//	for each agent: Interact (when a proximity timer fires), Tick
//	after the pass: EvolvePopulation
//
// Strategies never error; degenerate inputs produce neutral results.
type Strategy interface {
	Name() string

	// Initialize populates strategy fields on a fresh agent. Agents that
	// already carry them are left untouched.
	Initialize(a *agents.Agent)

	// Tick advances one agent by a step. pop is for read-only neighbour scans.
	Tick(a *agents.Agent, pop []*agents.Agent)

	// Interact runs one exchange initiated by a with b.
	Interact(a, b *agents.Agent) Outcome

	// EvolvePopulation runs once per tick after the agent pass. It returns
	// either pop (possibly mutated in place) or a wholly new slice.
	EvolvePopulation(pop []*agents.Agent) []*agents.Agent

	// Stats is a pure aggregate read.
	Stats(pop []*agents.Agent) Stats

	// Reset rewinds counters for a fresh population.
	Reset()

	Checkpoint() Checkpoint
	Resume(Checkpoint)
}

// Outcome reports what an interaction did, for observability only.
type Outcome struct {
	Transfer     float64 `json:"transfer"` // Belief blend strength applied to the receiver
	PayoffA      float64 `json:"payoff_a,omitempty"`
	PayoffB      float64 `json:"payoff_b,omitempty"`
	Scored       bool    `json:"scored,omitempty"`       // A payoff was awarded
	Deduplicated bool    `json:"deduplicated,omitempty"` // Pair already scored this tick
}

// Checkpoint is the strategy-internal state needed to resume a run.
type Checkpoint struct {
	Ticks      uint64 `json:"ticks"`
	Frame      int    `json:"frame"`
	Generation int    `json:"generation"`
}

// Kind names an evolution mode.
type Kind string

const (
	KindNone       Kind = "none"
	KindGenetic    Kind = "genetic"
	KindGameTheory Kind = "gametheory"
	KindCultural   Kind = "cultural"
	KindHybrid     Kind = "hybrid"
)

// Kinds lists every mode in display order.
var Kinds = []Kind{KindNone, KindGenetic, KindGameTheory, KindCultural, KindHybrid}

// ParseKind parses a mode name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown evolution mode %q", s)
}

// Deps are the collaborators a strategy draws on.
type Deps struct {
	Rng            *rand.Rand
	Spawner        *agents.Spawner // Source of blank offspring
	PopulationSize int             // Generation turnover refills to this size; 0 keeps the current size
	Config         Config
}

// New builds the strategy for kind. KindNone yields a nil Strategy: the
// Population Manager then applies the base belief blend.
func New(kind Kind, deps Deps) (Strategy, error) {
	if deps.Rng == nil {
		return nil, fmt.Errorf("evolution %s: nil random source", kind)
	}
	switch kind {
	case KindNone:
		return nil, nil
	case KindGenetic:
		if deps.Spawner == nil {
			return nil, fmt.Errorf("evolution %s: nil spawner", kind)
		}
		return NewGenetic(deps.Config.Genetic, deps), nil
	case KindGameTheory:
		return NewGameTheory(deps.Config.GameTheory), nil
	case KindCultural:
		return NewCultural(deps.Config.Cultural, deps.Rng), nil
	case KindHybrid:
		if deps.Spawner == nil {
			return nil, fmt.Errorf("evolution %s: nil spawner", kind)
		}
		return NewHybrid(deps.Config, deps), nil
	}
	return nil, fmt.Errorf("evolution: unknown mode %q", kind)
}

// clock counts completed ticks. During a tick the current tick number is
// ticks+1, matching a frame counter that starts at one.
type clock struct {
	ticks uint64
}

func (c *clock) current() uint64 { return c.ticks + 1 }

func (c *clock) advance() { c.ticks++ }

func (c *clock) due(every int) bool {
	return every > 0 && c.current()%uint64(every) == 0
}

// neighbours returns the agents strictly within radius of a, excluding a.
func neighbours(a *agents.Agent, pop []*agents.Agent, radius float64) []*agents.Agent {
	var out []*agents.Agent
	for _, o := range pop {
		if o == a || o == nil {
			continue
		}
		if agents.Distance(a, o) < radius {
			out = append(out, o)
		}
	}
	return out
}

// adopt moves an agent to a new category after a population-level decision.
// Honest and liar agents also pull their belief toward the category's
// reference colour by blend, so the belief-derived type does not undo the switch.
func adopt(a *agents.Agent, t agents.Type, blend float64) {
	a.SetType(t)
	switch t {
	case agents.TypeHonest:
		a.Color = a.Color.Lerp(agents.TruthColor, blend)
	case agents.TypeLiar:
		a.Color = a.Color.Lerp(agents.LieColor, blend)
	}
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
