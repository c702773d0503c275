package evolution

import (
	"math"
	"math/rand"
	"sort"

	"github.com/talgya/belief-swarm/internal/agents"
)

// Genetic evolves the population through fitness-ranked selection, uniform
// crossover and mutation. Survivors keep their accumulated fitness across a
// turnover; offspring start with InheritFraction of their parents' average.
type Genetic struct {
	cfg     GeneticConfig
	rng     *rand.Rand
	spawner *agents.Spawner
	target  int

	clock      clock
	frame      int // Ticks into the current generation
	generation int
}

// NewGenetic creates a genetic strategy.
func NewGenetic(cfg GeneticConfig, deps Deps) *Genetic {
	return &Genetic{
		cfg:     cfg,
		rng:     deps.Rng,
		spawner: deps.Spawner,
		target:  deps.PopulationSize,
	}
}

func (g *Genetic) Name() string { return string(KindGenetic) }

// Generation returns the current epoch number.
func (g *Genetic) Generation() int { return g.generation }

// Initialize draws a type-conditioned genome and derives colour and behaviour from it.
func (g *Genetic) Initialize(a *agents.Agent) {
	if a.Genome != nil {
		return
	}

	var honesty, stubbornness float64
	switch a.Type {
	case agents.TypeHonest:
		honesty = uniform(g.rng, 0.6, 1.0)
		stubbornness = uniform(g.rng, 0, 0.3)
	case agents.TypeLiar:
		honesty = uniform(g.rng, 0, 0.4)
		stubbornness = uniform(g.rng, 0, 0.5)
	default:
		honesty = uniform(g.rng, 0, 1)
		stubbornness = uniform(g.rng, 0.8, 1.0)
	}

	a.Genome = &agents.Genome{
		Honesty:           honesty,
		Stubbornness:      stubbornness,
		InfluenceStrength: g.rng.Float64(),
		TrustThreshold:    g.rng.Float64(),
	}
	a.Fitness = 0
	a.Age = 0
	applyGenome(a)
}

// applyGenome derives belief colour, stubborn lock and behaviour from the genome.
func applyGenome(a *agents.Agent) {
	a.Color = agents.LieColor.Lerp(agents.TruthColor, a.Genome.Honesty)
	if a.Genome.Stubbornness > 0.8 {
		a.Lock()
	}
	applyBehavior(a)
}

// applyBehavior derives learning rate and conviction from stubbornness.
func applyBehavior(a *agents.Agent) {
	a.LearningRate = 0.3 * (1 - a.Genome.Stubbornness)
	a.SetBeliefStrength(a.Genome.Stubbornness)
}

// Tick ages the agent, pays the stubborn bonus, applies generational fitness
// decay, and re-derives behaviour so genome drift shows immediately.
func (g *Genetic) Tick(a *agents.Agent, _ []*agents.Agent) {
	g.Initialize(a)

	a.Age++
	if a.Type == agents.TypeStubborn {
		a.AddFitness(g.cfg.StubbornBonus)
	}
	if g.clock.due(g.cfg.DecayInterval) && a.Fitness > 0 {
		a.Fitness *= g.decayFactor(a)
	}
	applyBehavior(a)
}

// decayFactor is 1 - base*growth^gap, where gap counts generations since the
// agent was born. Agents from much older epochs lose everything.
func (g *Genetic) decayFactor(a *agents.Agent) float64 {
	gap := float64(g.generation - a.Generation)
	return math.Max(0, 1-g.cfg.DecayBase*math.Pow(g.cfg.DecayGrowth, gap))
}

// Interact makes a receive b's belief at its genome learning rate, or at the
// stubborn rate when a is stubborn. Both earn the interaction reward.
func (g *Genetic) Interact(a, b *agents.Agent) Outcome {
	g.Initialize(a)
	g.Initialize(b)

	rate := a.LearningRate
	if a.Type == agents.TypeStubborn {
		rate = g.cfg.StubbornRate
	}
	a.BlendToward(b, rate)

	a.AddFitness(g.cfg.InteractionReward)
	b.AddFitness(g.cfg.InteractionReward)
	return Outcome{Transfer: rate}
}

// EvolvePopulation runs neighbour learning on its cadence and replaces the
// population at the end of each generation.
func (g *Genetic) EvolvePopulation(pop []*agents.Agent) []*agents.Agent {
	defer g.clock.advance()

	g.frame++
	if g.cfg.LearnInterval > 0 && g.frame%g.cfg.LearnInterval == 0 {
		g.learnFromNeighbours(pop)
	}

	if g.frame >= g.cfg.GenerationLength {
		g.frame = 0
		g.generation++
		return g.NewGeneration(pop)
	}
	return pop
}

// learnFromNeighbours lets struggling agents move their honesty and
// stubbornness toward the fittest nearby agent.
func (g *Genetic) learnFromNeighbours(pop []*agents.Agent) {
	for _, a := range pop {
		if a.Genome == nil || a.Fitness >= g.cfg.LearnThreshold {
			continue
		}
		near := neighbours(a, pop, g.cfg.LearnRadius)
		if len(near) == 0 {
			continue
		}
		best := near[0]
		for _, n := range near[1:] {
			if n.Fitness > best.Fitness {
				best = n
			}
		}
		if best.Genome == nil || best.Fitness <= a.Fitness+g.cfg.LearnMargin {
			continue
		}
		a.Genome.Blend(best.Genome, g.cfg.LearnBlend, agents.TraitHonesty, agents.TraitStubbornness)
		applyBehavior(a)
	}
}

// NewGeneration ranks pop by fitness, keeps the top SurvivalRate fraction and
// refills to the target size with offspring of random survivor pairs.
// The input slice is not reordered.
func (g *Genetic) NewGeneration(pop []*agents.Agent) []*agents.Agent {
	if len(pop) == 0 {
		return pop
	}
	target := g.target
	if target <= 0 {
		target = len(pop)
	}

	ranked := make([]*agents.Agent, len(pop))
	copy(ranked, pop)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Fitness > ranked[j].Fitness
	})

	keep := int(math.Floor(float64(len(ranked)) * g.cfg.SurvivalRate))
	keep = min(max(keep, 1), target)
	survivors := ranked[:keep]

	next := make([]*agents.Agent, 0, target)
	next = append(next, survivors...)
	for len(next) < target {
		p1 := survivors[g.rng.Intn(len(survivors))]
		p2 := survivors[g.rng.Intn(len(survivors))]
		next = append(next, g.Reproduce(p1, p2))
	}
	for _, a := range next {
		a.Age = 0
	}
	return next
}

// Reproduce creates a child at a fresh random position. Each trait comes whole
// from one parent; stubborn parents boost the child's stubbornness before mutation.
func (g *Genetic) Reproduce(p1, p2 *agents.Agent) *agents.Agent {
	g.Initialize(p1)
	g.Initialize(p2)

	child := g.spawner.Spawn(agents.TypeHonest)
	genome := &agents.Genome{}
	for _, t := range agents.Traits {
		if g.rng.Float64() < 0.5 {
			genome.Set(t, p1.Genome.Get(t))
		} else {
			genome.Set(t, p2.Genome.Get(t))
		}
	}

	s1 := p1.Type == agents.TypeStubborn
	s2 := p2.Type == agents.TypeStubborn
	switch {
	case s1 && s2:
		genome.Set(agents.TraitStubbornness, genome.Stubbornness+0.35)
	case s1 || s2:
		genome.Set(agents.TraitStubbornness, genome.Stubbornness+0.2)
	}

	g.mutate(genome)
	child.Genome = genome
	applyGenome(child)

	child.Generation = g.generation
	child.Fitness = g.cfg.InheritFraction * (p1.Fitness + p2.Fitness) / 2
	child.Age = 0
	return child
}

func (g *Genetic) mutate(genome *agents.Genome) {
	for _, t := range agents.Traits {
		if g.rng.Float64() < g.cfg.MutationRate {
			genome.Set(t, genome.Get(t)+uniform(g.rng, -g.cfg.MutationAmount, g.cfg.MutationAmount))
		}
	}
}

// Stats summarizes the population with the current generation.
func (g *Genetic) Stats(pop []*agents.Agent) Stats {
	s := Summarize(pop)
	s.Strategy = g.Name()
	s.Generation = g.generation
	return s
}

func (g *Genetic) Reset() {
	g.clock = clock{}
	g.frame = 0
	g.generation = 0
}

func (g *Genetic) Checkpoint() Checkpoint {
	return Checkpoint{Ticks: g.clock.ticks, Frame: g.frame, Generation: g.generation}
}

func (g *Genetic) Resume(c Checkpoint) {
	g.clock.ticks = c.Ticks
	g.frame = c.Frame
	g.generation = c.Generation
}
