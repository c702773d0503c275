// Bounded interaction logs. They only feed rolling averages, so the oldest
// entry is dropped once a log is full.
package agents

const (
	MaxPayoffHistory  = 50
	MaxCulturalMemory = 20
)

// EnsureGame lazily attaches payoff bookkeeping.
func (a *Agent) EnsureGame() *GameState {
	if a.Game == nil {
		a.Game = &GameState{}
	}
	return a.Game
}

// PushPayoff records a payoff, keeping at most MaxPayoffHistory entries.
func (a *Agent) PushPayoff(p float64) {
	g := a.EnsureGame()
	g.PayoffHistory = append(g.PayoffHistory, p)
	if len(g.PayoffHistory) > MaxPayoffHistory {
		g.PayoffHistory = g.PayoffHistory[len(g.PayoffHistory)-MaxPayoffHistory:]
	}
	g.InteractionCount++
}

// AveragePayoff is the rolling mean payoff, or 0 with no history.
func (a *Agent) AveragePayoff() float64 {
	if a.Game == nil || len(a.Game.PayoffHistory) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range a.Game.PayoffHistory {
		sum += p
	}
	return sum / float64(len(a.Game.PayoffHistory))
}

// PayoffCount returns how many payoffs are currently remembered.
func (a *Agent) PayoffCount() int {
	if a.Game == nil {
		return 0
	}
	return len(a.Game.PayoffHistory)
}

// PushCultural records a persuasion, keeping at most MaxCulturalMemory entries.
func (a *Agent) PushCultural(r CulturalRecord) {
	if a.Culture == nil {
		a.Culture = &CultureState{OriginalColor: a.Color}
	}
	a.Culture.Memory = append(a.Culture.Memory, r)
	if len(a.Culture.Memory) > MaxCulturalMemory {
		a.Culture.Memory = a.Culture.Memory[len(a.Culture.Memory)-MaxCulturalMemory:]
	}
}

// RecordConversion counts a registered change of mind.
func (a *Agent) RecordConversion() {
	if a.Culture == nil {
		a.Culture = &CultureState{OriginalColor: a.Color}
	}
	a.Culture.ConversionCount++
}

// Conversions returns the registered changes of mind.
func (a *Agent) Conversions() int {
	if a.Culture == nil {
		return 0
	}
	return a.Culture.ConversionCount
}
