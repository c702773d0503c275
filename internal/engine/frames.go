package engine

import (
	"math"

	"github.com/talgya/belief-swarm/internal/agents"
)

// Frame is one recorded tick of the swarm.
type Frame struct {
	Tick      uint64       `json:"tick"`
	Agents    []FrameAgent `json:"agents"`
	Consensus float64      `json:"global_consensus"` // Mean lie score
	Spread    float64      `json:"variance"`         // Standard deviation of the lie score
}

// FrameAgent is one agent's public state in a frame.
type FrameAgent struct {
	ID           agents.AgentID   `json:"id"`
	X            float64          `json:"x"`
	Y            float64          `json:"y"`
	RGB          [3]float64       `json:"rgb"`
	Type         agents.Type      `json:"type"`
	Interactions []agents.AgentID `json:"interactions"`
}

// SetRecording turns the frame log on or off. Turning it off keeps frames
// that have not been drained yet.
func (s *Simulation) SetRecording(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Recording = on
}

// IsRecording reports whether frames are being captured.
func (s *Simulation) IsRecording() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Recording
}

// DrainFrames hands over all buffered frames and empties the buffer.
func (s *Simulation) DrainFrames() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.frames
	s.frames = nil
	return out
}

func (s *Simulation) recordFrame(tick uint64) {
	f := Frame{Tick: tick, Agents: make([]FrameAgent, 0, len(s.Agents))}
	for _, a := range s.Agents {
		f.Agents = append(f.Agents, FrameAgent{
			ID:           a.ID,
			X:            round2(a.Position.X),
			Y:            round2(a.Position.Y),
			RGB:          [3]float64{a.Color.R, a.Color.G, a.Color.B},
			Type:         a.Type,
			Interactions: append([]agents.AgentID(nil), s.Active[a.ID]...),
		})
	}
	f.Consensus = s.Stats.Consensus
	f.Spread = math.Sqrt(s.Stats.BeliefVariance)

	s.frames = append(s.frames, f)
	if s.Config.FrameCap > 0 && len(s.frames) > s.Config.FrameCap {
		s.frames = s.frames[len(s.frames)-s.Config.FrameCap:]
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
