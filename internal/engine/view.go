package engine

import (
	"github.com/talgya/belief-swarm/internal/agents"
	"github.com/talgya/belief-swarm/internal/world"
)

// AgentView is a detached copy of an agent, safe to use after the lock is released.
type AgentView struct {
	ID             agents.AgentID   `json:"id"`
	Position       world.Vec2       `json:"position"`
	Velocity       world.Vec2       `json:"velocity"`
	Type           agents.Type      `json:"type"`
	Color          agents.Color     `json:"color"`
	Transmitted    agents.Color     `json:"transmitted"`
	Locked         bool             `json:"locked"`
	Genome         *agents.Genome   `json:"genome,omitempty"`
	Fitness        float64          `json:"fitness"`
	BeliefStrength float64          `json:"belief_strength"`
	LearningRate   float64          `json:"learning_rate"`
	Age            uint64           `json:"age"`
	Generation     int              `json:"generation"`
	AvgPayoff      float64          `json:"avg_payoff"`
	Interactions   int              `json:"interactions"`
	Conversions    int              `json:"conversions"`
	MemorySize     int              `json:"memory_size"`
	InRange        []agents.AgentID `json:"in_range"`
}

func (s *Simulation) viewOf(a *agents.Agent) AgentView {
	v := AgentView{
		ID:             a.ID,
		Position:       a.Position,
		Velocity:       a.Velocity,
		Type:           a.Type,
		Color:          a.Color,
		Transmitted:    a.TransmittedColor(),
		Locked:         a.IsLocked(),
		Genome:         a.Genome.Clone(),
		Fitness:        a.Fitness,
		BeliefStrength: a.BeliefStrength,
		LearningRate:   a.LearningRate,
		Age:            a.Age,
		Generation:     a.Generation,
		AvgPayoff:      a.AveragePayoff(),
		Conversions:    a.Conversions(),
		InRange:        append([]agents.AgentID(nil), s.Active[a.ID]...),
	}
	if a.Game != nil {
		v.Interactions = a.Game.InteractionCount
	}
	if a.Culture != nil {
		v.MemorySize = len(a.Culture.Memory)
	}
	return v
}

// AgentViews copies every agent accepted by keep, in population order.
// A nil keep accepts all.
func (s *Simulation) AgentViews(keep func(*agents.Agent) bool) []AgentView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AgentView, 0, len(s.Agents))
	for _, a := range s.Agents {
		if keep == nil || keep(a) {
			out = append(out, s.viewOf(a))
		}
	}
	return out
}

// AgentByID copies one agent.
func (s *Simulation) AgentByID(id agents.AgentID) (AgentView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.AgentIndex[id]
	if !ok {
		return AgentView{}, false
	}
	return s.viewOf(a), true
}
