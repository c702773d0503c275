// Package agents provides the agent data model, belief colours, genomes,
// the spawner and the flocking substrate agents move with.
package agents

import (
	"fmt"
	"strings"

	"github.com/talgya/belief-swarm/internal/world"
)

// AgentID is a unique identifier for an agent. IDs are never reused within a
// run except after a full reset rewinds the spawner.
type AgentID uint64

// Type is an agent's behavioural category.
type Type uint8

const (
	TypeHonest   Type = 0
	TypeLiar     Type = 1
	TypeStubborn Type = 2
)

// NumTypes is the number of agent categories.
const NumTypes = 3

var typeNames = [NumTypes]string{"honest", "liar", "stubborn"}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// ParseType parses a type name as produced by String.
func ParseType(s string) (Type, error) {
	for i, name := range typeNames {
		if strings.EqualFold(s, name) {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("unknown agent type %q", s)
}

// MarshalText encodes the type by name.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a type name.
func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Belief strength bounds. Conviction never drops to zero.
const (
	MinBeliefStrength = 0.1
	MaxBeliefStrength = 1.0
)

// Agent is a single member of the swarm.
type Agent struct {
	ID AgentID `json:"id"`

	// Substrate
	Position        world.Vec2 `json:"position"`
	Velocity        world.Vec2 `json:"velocity"`
	ProximityRadius float64    `json:"proximity_radius"`
	acceleration    world.Vec2

	// Belief
	Type       Type   `json:"type"`
	Color      Color  `json:"color"`
	FixedColor *Color `json:"fixed_color,omitempty"` // Locked broadcast value for stubborn agents

	// Evolution state. Optional fields stay nil until a strategy initializes them.
	Genome         *Genome       `json:"genome,omitempty"`
	Fitness        float64       `json:"fitness"`
	BeliefStrength float64       `json:"belief_strength"` // 0.1–1.0
	LearningRate   float64       `json:"learning_rate"`
	Age            uint64        `json:"age"`
	Generation     int           `json:"generation"`
	Game           *GameState    `json:"game,omitempty"`
	Culture        *CultureState `json:"culture,omitempty"`

	// Ticks spent in proximity per partner since the last exchange.
	InteractionTimer map[AgentID]int `json:"-"`
}

// GameState is the bookkeeping added by payoff-matrix strategies.
type GameState struct {
	PayoffHistory    []float64 `json:"payoff_history"`
	InteractionCount int       `json:"interaction_count"`
}

// CultureState is the bookkeeping added by cultural transmission.
type CultureState struct {
	Memory          []CulturalRecord `json:"memory"`
	ConversionCount int              `json:"conversion_count"`
	OriginalColor   Color            `json:"original_color"`
}

// CulturalRecord logs one successful persuasion by the sender.
type CulturalRecord struct {
	Target   AgentID `json:"target"`
	Success  bool    `json:"success"`
	Strength float64 `json:"strength"`
}

// TransmittedColor returns what the agent broadcasts: the locked value for
// stubborn agents, otherwise the belief it currently holds.
func (a *Agent) TransmittedColor() Color {
	if a.FixedColor != nil {
		return *a.FixedColor
	}
	return a.Color
}

// IsLocked reports whether the agent broadcasts a fixed belief.
func (a *Agent) IsLocked() bool {
	return a.FixedColor != nil
}

// Lock makes the agent stubborn and snapshots its current belief as the value
// it will broadcast from now on.
func (a *Agent) Lock() {
	a.Type = TypeStubborn
	fixed := a.Color
	a.FixedColor = &fixed
}

// Unlock releases a stubborn lock. Only population-level type conversions
// call this.
func (a *Agent) Unlock() {
	a.FixedColor = nil
}

// SetType changes category through a population-level conversion, relocking
// or releasing the broadcast belief as needed.
func (a *Agent) SetType(t Type) {
	if t == TypeStubborn {
		a.Lock()
		return
	}
	a.Unlock()
	a.Type = t
}

// DeriveTypeFromBelief re-classifies non-stubborn agents from their colour.
// A margin of 5 on the channel difference keeps noise from flipping the type.
func (a *Agent) DeriveTypeFromBelief() {
	if a.Type == TypeStubborn {
		return
	}
	const epsilon = 5.0
	switch {
	case a.Color.G > a.Color.R+epsilon:
		a.Type = TypeHonest
	case a.Color.R > a.Color.G+epsilon:
		a.Type = TypeLiar
	}
}

// BlendToward moves the agent's belief toward what another agent transmits.
func (a *Agent) BlendToward(sender *Agent, rate float64) {
	a.Color = a.Color.Lerp(sender.TransmittedColor(), rate)
}

// AddFitness adjusts accumulated fitness.
func (a *Agent) AddFitness(delta float64) {
	a.Fitness += delta
}

// SetBeliefStrength stores conviction clamped to its valid range.
func (a *Agent) SetBeliefStrength(v float64) {
	a.BeliefStrength = ClampBeliefStrength(v)
}

// TickTimer advances the proximity counter for a partner and returns the new count.
func (a *Agent) TickTimer(partner AgentID) int {
	if a.InteractionTimer == nil {
		a.InteractionTimer = make(map[AgentID]int)
	}
	a.InteractionTimer[partner]++
	return a.InteractionTimer[partner]
}

// ResetTimer zeroes the proximity counter for a partner.
func (a *Agent) ResetTimer(partner AgentID) {
	if a.InteractionTimer != nil {
		a.InteractionTimer[partner] = 0
	}
}

// Distance returns the Euclidean distance between two agents.
func Distance(a, b *Agent) float64 {
	return world.Distance(a.Position, b.Position)
}
