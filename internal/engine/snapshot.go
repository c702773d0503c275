package engine

import (
	"github.com/talgya/belief-swarm/internal/agents"
	"github.com/talgya/belief-swarm/internal/evolution"
)

// SaveState is everything a save writes, read in one critical section.
type SaveState struct {
	Tick       uint64
	Mode       evolution.Kind
	Stats      evolution.Stats
	Checkpoint evolution.Checkpoint
	Agents     []*agents.Agent // Live; valid only inside the Snapshot callback
	Events     []Event         // Buffered events with Seq above the requested one
	EventSeq   uint64          // Seq of the latest event emitted
	Frames     []Frame
}

// Snapshot runs fn with the write lock held, so agents, tick and strategy
// position all come from the same tick. Buffered frames are dropped only
// when fn succeeds.
func (s *Simulation) Snapshot(afterSeq uint64, fn func(SaveState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := SaveState{
		Tick:       s.LastTick,
		Mode:       s.Config.Mode,
		Stats:      s.Stats,
		Checkpoint: s.checkpoint(),
		Agents:     s.Agents,
		EventSeq:   s.eventSeq,
		Frames:     s.frames,
	}
	for _, e := range s.Events {
		if e.Seq > afterSeq {
			st.Events = append(st.Events, e)
		}
	}

	if err := fn(st); err != nil {
		return err
	}
	s.frames = nil
	return nil
}

// EventSeq returns the sequence number of the latest event.
func (s *Simulation) EventSeq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eventSeq
}

// SetEventSeq continues event numbering from seq, used when a store already
// holds events from an earlier process.
func (s *Simulation) SetEventSeq(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq > s.eventSeq {
		s.eventSeq = seq
	}
}
