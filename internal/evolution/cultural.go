package evolution

import (
	"math/rand"

	"github.com/talgya/belief-swarm/internal/agents"
)

// Cultural spreads belief through a persuasion/resistance contest, lets
// conviction decay, and converts weakly held agents to the category that
// dominates their surroundings.
type Cultural struct {
	cfg CulturalConfig
	rng *rand.Rand

	clock clock
}

// NewCultural creates a cultural strategy.
func NewCultural(cfg CulturalConfig, rng *rand.Rand) *Cultural {
	return &Cultural{cfg: cfg, rng: rng}
}

func (c *Cultural) Name() string { return string(KindCultural) }

// Initialize draws a conviction and remembers the agent's starting belief.
func (c *Cultural) Initialize(a *agents.Agent) {
	if a.Culture != nil {
		return
	}
	a.SetBeliefStrength(uniform(c.rng, 0.3, 1.0))
	a.Culture = &agents.CultureState{OriginalColor: a.Color}
}

// Tick decays conviction, learns from the most convinced neighbour and, on
// the conversion cadence, checks for peer conversion.
func (c *Cultural) Tick(a *agents.Agent, pop []*agents.Agent) {
	c.Initialize(a)

	a.SetBeliefStrength(a.BeliefStrength * (1 - c.cfg.BeliefDecayRate))
	c.socialLearning(a, pop)

	if c.clock.due(c.cfg.ConversionInterval) {
		c.convert(a, pop)
	}
}

// socialLearning nudges the genome toward the neighbour with the strictly
// highest conviction inside twice the proximity radius.
func (c *Cultural) socialLearning(a *agents.Agent, pop []*agents.Agent) {
	if a.Genome == nil {
		return
	}
	var best *agents.Agent
	bestStrength := a.BeliefStrength
	for _, n := range neighbours(a, pop, a.ProximityRadius*2) {
		if n.BeliefStrength > bestStrength {
			best, bestStrength = n, n.BeliefStrength
		}
	}
	if best == nil || best.Genome == nil {
		return
	}
	a.Genome.Blend(best.Genome, c.cfg.SocialLearningRate*0.01)
}

// convert switches a weakly convinced agent to the type held by a clear
// majority of its neighbours.
func (c *Cultural) convert(a *agents.Agent, pop []*agents.Agent) {
	if a.Type == agents.TypeStubborn && a.BeliefStrength > c.cfg.StubbornExemptAbove {
		return
	}

	var counts [agents.NumTypes]int
	near := neighbours(a, pop, c.cfg.ConversionRadius)
	for _, o := range near {
		counts[o.Type]++
	}
	total := len(near)
	if total < c.cfg.ConversionMinPeers || total == 0 {
		return
	}

	dominant, dominantCount := agents.TypeHonest, 0
	for t, n := range counts {
		if n > dominantCount {
			dominant, dominantCount = agents.Type(t), n
		}
	}

	if float64(dominantCount)/float64(total) > c.cfg.ConversionMajority &&
		a.BeliefStrength < c.cfg.ConversionWeakBelow &&
		a.Type != dominant {
		adopt(a, dominant, c.cfg.AdoptionBlend)
		a.RecordConversion()
		a.SetBeliefStrength(uniform(c.rng, 0.3, 0.6))
	}
}

// Interact transmits a's belief to b.
func (c *Cultural) Interact(a, b *agents.Agent) Outcome {
	return Outcome{Transfer: c.Transmit(a, b)}
}

// Transmit runs one persuasion contest and returns the transfer strength,
// persuasion / (persuasion + resistance).
func (c *Cultural) Transmit(sender, receiver *agents.Agent) float64 {
	c.Initialize(sender)
	c.Initialize(receiver)

	transfer := c.TransferStrength(sender, receiver)

	old := receiver.Color
	receiver.BlendToward(sender, transfer*c.cfg.TransferScale)

	if transfer > 0.5 {
		sender.SetBeliefStrength(sender.BeliefStrength + c.cfg.SenderGain)
		receiver.SetBeliefStrength(receiver.BeliefStrength * c.cfg.ReceiverLoss)
		sender.PushCultural(agents.CulturalRecord{Target: receiver.ID, Success: true, Strength: transfer})
	} else {
		receiver.SetBeliefStrength(receiver.BeliefStrength + c.cfg.ResistGain)
	}

	if old.Distance(receiver.Color) > c.cfg.ConversionDistance {
		receiver.RecordConversion()
	}
	return transfer
}

// TransferStrength computes the persuasion contest without applying it.
// Stubborn receivers resist tenfold, and a receiver distrusts a sender whose
// honesty is below its trust threshold.
func (c *Cultural) TransferStrength(sender, receiver *agents.Agent) float64 {
	persuasion := sender.BeliefStrength
	resistance := receiver.BeliefStrength
	if receiver.Type == agents.TypeStubborn {
		resistance *= c.cfg.StubbornResistance
	}
	if sender.Genome != nil {
		persuasion *= sender.Genome.InfluenceStrength
	}
	if receiver.Genome != nil {
		resistance *= receiver.Genome.Stubbornness
		if sender.Genome != nil && sender.Genome.Honesty < receiver.Genome.TrustThreshold {
			resistance *= c.cfg.DistrustFactor
		}
	}
	if persuasion+resistance <= 0 {
		return 0
	}
	return persuasion / (persuasion + resistance)
}

// EvolvePopulation only advances the cadence clock; cultural change happens
// per agent.
func (c *Cultural) EvolvePopulation(pop []*agents.Agent) []*agents.Agent {
	c.clock.advance()
	return pop
}

// Stats summarizes the population.
func (c *Cultural) Stats(pop []*agents.Agent) Stats {
	s := Summarize(pop)
	s.Strategy = c.Name()
	return s
}

func (c *Cultural) Reset() {
	c.clock = clock{}
}

func (c *Cultural) Checkpoint() Checkpoint {
	return Checkpoint{Ticks: c.clock.ticks}
}

func (c *Cultural) Resume(cp Checkpoint) {
	c.clock.ticks = cp.Ticks
}
