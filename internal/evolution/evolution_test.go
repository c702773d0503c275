package evolution

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/belief-swarm/internal/agents"
	"github.com/talgya/belief-swarm/internal/world"
)

func testDeps(seed int64, size int) Deps {
	rng := rand.New(rand.NewSource(seed))
	w := world.New(world.Config{Width: 300, Height: 300}, seed)
	return Deps{
		Rng:            rng,
		Spawner:        agents.NewSpawner(rng, w),
		PopulationSize: size,
		Config:         DefaultConfig(),
	}
}

func testPopulation(deps Deps, n int) []*agents.Agent {
	return deps.Spawner.SpawnPopulation(agents.SpawnConfig{
		Population: n, LiarsPercent: 30, StubbornPercent: 20, ProximityRadius: 45,
	})
}

// drive runs a reduced Population Manager pass: every agent interacts with
// its nearest peers, ticks, then the population evolves.
func drive(s Strategy, pop []*agents.Agent, ticks int) []*agents.Agent {
	for _, a := range pop {
		s.Initialize(a)
	}
	for range ticks {
		for _, a := range pop {
			for _, o := range neighbours(a, pop, 60) {
				s.Interact(a, o)
			}
			s.Tick(a, pop)
		}
		pop = s.EvolvePopulation(pop)
	}
	return pop
}

func assertClamped(t *testing.T, pop []*agents.Agent) {
	t.Helper()
	for _, a := range pop {
		assert.GreaterOrEqual(t, a.BeliefStrength, agents.MinBeliefStrength, "agent %d", a.ID)
		assert.LessOrEqual(t, a.BeliefStrength, agents.MaxBeliefStrength, "agent %d", a.ID)
		if a.Genome == nil {
			continue
		}
		for _, tr := range agents.Traits {
			v := a.Genome.Get(tr)
			assert.True(t, v >= 0 && v <= 1, "agent %d trait %d = %v", a.ID, tr, v)
		}
	}
}

func TestClampsHoldUnderAdversarialMutation(t *testing.T) {
	for _, kind := range []Kind{KindGenetic, KindGameTheory, KindCultural, KindHybrid} {
		t.Run(string(kind), func(t *testing.T) {
			deps := testDeps(11, 30)
			deps.Config.Genetic.MutationRate = 1
			deps.Config.Genetic.MutationAmount = 5
			deps.Config.Genetic.GenerationLength = 7
			deps.Config.Genetic.LearnInterval = 3
			deps.Config.Cultural.ConversionInterval = 5
			deps.Config.Cultural.SenderGain = 3
			deps.Config.Cultural.ResistGain = 3
			deps.Config.GameTheory.AdaptInterval = 4
			deps.Config.GameTheory.AdaptMinHistory = 1

			s, err := New(kind, deps)
			require.NoError(t, err)
			pop := drive(s, testPopulation(deps, 30), 40)

			assert.Len(t, pop, 30)
			assertClamped(t, pop)
		})
	}
}

func TestStubbornLockSurvivesInteraction(t *testing.T) {
	for _, kind := range []Kind{KindGenetic, KindGameTheory, KindCultural, KindHybrid} {
		t.Run(string(kind), func(t *testing.T) {
			deps := testDeps(5, 2)
			s, err := New(kind, deps)
			require.NoError(t, err)

			stubborn := deps.Spawner.Spawn(agents.TypeStubborn)
			liar := deps.Spawner.Spawn(agents.TypeLiar)
			s.Initialize(stubborn)
			s.Initialize(liar)
			stubborn.Lock()
			locked := stubborn.TransmittedColor()

			for range 50 {
				s.Interact(stubborn, liar)
				s.Interact(liar, stubborn)
				s.EvolvePopulation([]*agents.Agent{stubborn, liar})
			}
			assert.Equal(t, locked, *stubborn.FixedColor)
			assert.Equal(t, agents.TypeStubborn, stubborn.Type)
		})
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	for _, kind := range []Kind{KindGenetic, KindGameTheory, KindCultural, KindHybrid} {
		t.Run(string(kind), func(t *testing.T) {
			deps := testDeps(3, 1)
			s, err := New(kind, deps)
			require.NoError(t, err)

			a := deps.Spawner.Spawn(agents.TypeHonest)
			s.Initialize(a)
			a.Fitness = 7
			a.PushPayoff(3)
			a.PushCultural(agents.CulturalRecord{Target: 9, Success: true})
			genome := a.Genome.Clone()
			strength := a.BeliefStrength

			s.Initialize(a)
			assert.Equal(t, 7.0, a.Fitness)
			assert.Equal(t, 1, a.PayoffCount())
			assert.Len(t, a.Culture.Memory, 1)
			assert.Equal(t, genome, a.Genome)
			assert.Equal(t, strength, a.BeliefStrength)
		})
	}
}

func TestPrisonersDilemmaPayoffs(t *testing.T) {
	g := NewGameTheory(DefaultGameTheoryConfig())
	cases := []struct {
		a, b   Move
		pa, pb float64
	}{
		{Cooperate, Cooperate, 3, 3},
		{Cooperate, Defect, 0, 5},
		{Defect, Cooperate, 5, 0},
		{Defect, Defect, 1, 1},
	}
	for _, tc := range cases {
		pa, pb := g.Payoff(tc.a, tc.b)
		assert.Equal(t, tc.pa, pa, "%v vs %v", tc.a, tc.b)
		assert.Equal(t, tc.pb, pb, "%v vs %v", tc.a, tc.b)
	}
}

func TestMoveForTypes(t *testing.T) {
	honest := &agents.Agent{Type: agents.TypeHonest}
	liar := &agents.Agent{Type: agents.TypeLiar}
	stubborn := &agents.Agent{Type: agents.TypeStubborn}

	assert.Equal(t, Cooperate, MoveFor(honest, liar))
	assert.Equal(t, Defect, MoveFor(liar, honest))
	assert.Equal(t, Defect, MoveFor(stubborn, liar))
	assert.Equal(t, Cooperate, MoveFor(stubborn, honest))
	assert.Equal(t, Cooperate, MoveFor(stubborn, stubborn))
}

func TestGameTheoryScoresPairOncePerTick(t *testing.T) {
	g := NewGameTheory(DefaultGameTheoryConfig())
	a := &agents.Agent{ID: 1, Type: agents.TypeHonest, Color: agents.TruthColor}
	b := &agents.Agent{ID: 2, Type: agents.TypeLiar, Color: agents.LieColor}

	out := g.Interact(a, b)
	assert.True(t, out.Scored)
	assert.Equal(t, 0.0, out.PayoffA)
	assert.Equal(t, 5.0, out.PayoffB)

	out = g.Interact(b, a)
	assert.True(t, out.Deduplicated)
	assert.False(t, out.Scored)
	assert.Equal(t, 5.0, b.Fitness, "second attempt in the same tick is not scored")
	assert.Equal(t, 1, b.Game.InteractionCount)

	g.EvolvePopulation([]*agents.Agent{a, b})
	out = g.Interact(b, a)
	assert.True(t, out.Scored)
	assert.Equal(t, 10.0, b.Fitness)
}

func TestGameTheoryFitnessDecay(t *testing.T) {
	cfg := DefaultGameTheoryConfig()
	cfg.DecayInterval = 1
	g := NewGameTheory(cfg)
	a := &agents.Agent{Fitness: 100}

	g.EvolvePopulation([]*agents.Agent{a})
	assert.InDelta(t, 95.0, a.Fitness, 1e-9)
}

func TestGameTheoryAdaptationAdoptsBetterPaidType(t *testing.T) {
	g := NewGameTheory(DefaultGameTheoryConfig())
	g.Resume(Checkpoint{Ticks: 199})

	honest := &agents.Agent{ID: 1, Type: agents.TypeHonest, Color: agents.TruthColor}
	liar := &agents.Agent{ID: 2, Type: agents.TypeLiar, Color: agents.LieColor, Position: world.Vec2{X: 10}}
	for range 10 {
		honest.PushPayoff(0)
		liar.PushPayoff(5)
	}

	g.EvolvePopulation([]*agents.Agent{honest, liar})
	assert.Equal(t, agents.TypeLiar, honest.Type)
	assert.Zero(t, honest.PayoffCount(), "score history restarts after a switch")
	assert.Equal(t, agents.TypeLiar, liar.Type)

	honest.DeriveTypeFromBelief()
	assert.Equal(t, agents.TypeLiar, honest.Type, "adopted belief keeps the new type")
}

func TestReproduceIsCrossoverWithoutMutation(t *testing.T) {
	deps := testDeps(21, 2)
	deps.Config.Genetic.MutationRate = 0
	g := NewGenetic(deps.Config.Genetic, deps)

	p1 := &agents.Agent{Type: agents.TypeHonest, Fitness: 4,
		Genome: &agents.Genome{Honesty: 0.9, Stubbornness: 0.1, InfluenceStrength: 0.3, TrustThreshold: 0.7}}
	p2 := &agents.Agent{Type: agents.TypeLiar, Fitness: 8,
		Genome: &agents.Genome{Honesty: 0.2, Stubbornness: 0.4, InfluenceStrength: 0.6, TrustThreshold: 0.05}}

	for range 20 {
		child := g.Reproduce(p1, p2)
		for _, tr := range agents.Traits {
			v := child.Genome.Get(tr)
			assert.True(t, v == p1.Genome.Get(tr) || v == p2.Genome.Get(tr), "trait %d = %v", tr, v)
		}
		assert.NotSame(t, p1.Genome, child.Genome)
		assert.NotSame(t, p2.Genome, child.Genome)
		assert.Equal(t, 3.0, child.Fitness)
		assert.Equal(t, 0, child.Generation)
		assert.InDelta(t, 0.3*(1-child.Genome.Stubbornness), child.LearningRate, 1e-9)
	}
}

func TestReproduceStubbornParentsBoostStubbornness(t *testing.T) {
	deps := testDeps(2, 2)
	deps.Config.Genetic.MutationRate = 0
	g := NewGenetic(deps.Config.Genetic, deps)

	genome := agents.Genome{Honesty: 0.5, Stubbornness: 0.7, InfluenceStrength: 0.5, TrustThreshold: 0.5}
	p1 := &agents.Agent{Type: agents.TypeStubborn, Genome: &genome}
	g2 := genome
	p2 := &agents.Agent{Type: agents.TypeStubborn, Genome: &g2}

	child := g.Reproduce(p1, p2)
	assert.Equal(t, 1.0, child.Genome.Stubbornness, "bonus is capped")
	assert.Equal(t, agents.TypeStubborn, child.Type)
	assert.True(t, child.IsLocked())

	g3 := genome
	g3.Stubbornness = 0.5
	p3 := &agents.Agent{Type: agents.TypeHonest, Genome: &g3}
	p4 := &agents.Agent{Type: agents.TypeStubborn, Genome: g3.Clone()}
	child = g.Reproduce(p3, p4)
	assert.InDelta(t, 0.7, child.Genome.Stubbornness, 1e-9)
}

func TestNewGenerationRestoresSizeWithEqualFitness(t *testing.T) {
	for _, size := range []int{10, 12} {
		deps := testDeps(8, size)
		deps.Config.Genetic.GenerationLength = 1
		g := NewGenetic(deps.Config.Genetic, deps)

		pop := testPopulation(deps, 10)
		for _, a := range pop {
			g.Initialize(a)
			a.Fitness = 2
		}
		next := g.EvolvePopulation(pop)
		assert.Len(t, next, size)
		assert.Equal(t, 1, g.Generation())
		for _, a := range next {
			assert.Zero(t, a.Age)
		}
	}
}

func TestNewGenerationSurvivorsOutscoreInitialAverage(t *testing.T) {
	deps := testDeps(4, 10)
	deps.Config.Genetic.GenerationLength = 1
	g := NewGenetic(deps.Config.Genetic, deps)

	pop := make([]*agents.Agent, 10)
	initial := 0.0
	for i := range pop {
		a := deps.Spawner.Spawn(agents.TypeHonest)
		a.Genome = &agents.Genome{Honesty: 1, Stubbornness: 0.2, InfluenceStrength: 0.5, TrustThreshold: 0.5}
		a.Fitness = float64(i * 3 % 7)
		initial += a.Fitness
		pop[i] = a
	}
	initial /= float64(len(pop))
	ids := make([]agents.AgentID, len(pop))
	for i, a := range pop {
		ids[i] = a.ID
	}

	next := g.EvolvePopulation(pop)
	require.Len(t, next, 10)
	survivors := next[:5]
	sum := 0.0
	for _, a := range survivors {
		sum += a.Fitness
	}
	assert.GreaterOrEqual(t, sum/5, initial)
	for i, a := range pop {
		assert.Equal(t, ids[i], a.ID, "input order is left alone")
	}
}

func TestGeneticDecayGrowsWithGenerationGap(t *testing.T) {
	deps := testDeps(6, 1)
	g := NewGenetic(deps.Config.Genetic, deps)
	g.Resume(Checkpoint{Ticks: 59, Generation: 1})

	fresh := &agents.Agent{Type: agents.TypeHonest, Fitness: 10, Generation: 1, Genome: &agents.Genome{Stubbornness: 0.2}}
	old := &agents.Agent{Type: agents.TypeHonest, Fitness: 10, Generation: 0, Genome: &agents.Genome{Stubbornness: 0.2}}
	g.Tick(fresh, nil)
	g.Tick(old, nil)

	assert.InDelta(t, 10*(1-0.005), fresh.Fitness, 1e-9)
	assert.InDelta(t, 10*(1-0.005*2.5), old.Fitness, 1e-9)

	g.Resume(Checkpoint{Ticks: 59, Generation: 9})
	g.Tick(old, nil)
	assert.Zero(t, old.Fitness, "decay never flips the sign")
}

func TestGeneticInitializeIsTypeConditioned(t *testing.T) {
	deps := testDeps(9, 1)
	g := NewGenetic(deps.Config.Genetic, deps)
	for range 100 {
		h := &agents.Agent{Type: agents.TypeHonest}
		g.Initialize(h)
		assert.GreaterOrEqual(t, h.Genome.Honesty, 0.6)
		assert.LessOrEqual(t, h.Genome.Stubbornness, 0.3)
		assert.Equal(t, agents.TypeHonest, h.Type)

		l := &agents.Agent{Type: agents.TypeLiar}
		g.Initialize(l)
		assert.LessOrEqual(t, l.Genome.Honesty, 0.4)

		s := &agents.Agent{Type: agents.TypeStubborn}
		g.Initialize(s)
		assert.GreaterOrEqual(t, s.Genome.Stubbornness, 0.8)
		assert.InDelta(t, s.Genome.Stubbornness, s.BeliefStrength, 1e-9)
	}
}

func TestStubbornReceiverResistsPersuasion(t *testing.T) {
	c := NewCultural(DefaultCulturalConfig(), rand.New(rand.NewSource(1)))
	sender := &agents.Agent{Type: agents.TypeHonest, BeliefStrength: 0.9}
	receiver := &agents.Agent{Type: agents.TypeStubborn, BeliefStrength: 0.1}

	assert.Less(t, c.TransferStrength(sender, receiver), 0.5)

	receiver.Type = agents.TypeHonest
	assert.Greater(t, c.TransferStrength(sender, receiver), 0.5)
}

func TestTransmitOutcomes(t *testing.T) {
	c := NewCultural(DefaultCulturalConfig(), rand.New(rand.NewSource(1)))
	sender := &agents.Agent{ID: 1, BeliefStrength: 0.9, Color: agents.TruthColor, Culture: &agents.CultureState{}}
	receiver := &agents.Agent{ID: 2, BeliefStrength: 0.1, Color: agents.LieColor, Culture: &agents.CultureState{}}

	transfer := c.Transmit(sender, receiver)
	assert.InDelta(t, 0.9, transfer, 1e-9)
	assert.InDelta(t, 0.95, sender.BeliefStrength, 1e-9)
	assert.InDelta(t, agents.MinBeliefStrength, receiver.BeliefStrength, 1e-9, "weakened conviction stays at the floor")
	require.Len(t, sender.Culture.Memory, 1)
	assert.Equal(t, agents.AgentID(2), sender.Culture.Memory[0].Target)
	assert.Equal(t, 1, receiver.Conversions(), "a shift of more than 50 counts as a conversion")

	weak := &agents.Agent{BeliefStrength: 0.1, Culture: &agents.CultureState{}}
	strong := &agents.Agent{BeliefStrength: 0.9, Culture: &agents.CultureState{}}
	c.Transmit(weak, strong)
	assert.InDelta(t, 0.92, strong.BeliefStrength, 1e-9)
	assert.Empty(t, weak.Culture.Memory)
}

func TestCulturalConversionFollowsMajority(t *testing.T) {
	c := NewCultural(DefaultCulturalConfig(), rand.New(rand.NewSource(1)))
	c.Resume(Checkpoint{Ticks: 119})

	a := &agents.Agent{ID: 0, Type: agents.TypeHonest, Color: agents.TruthColor, BeliefStrength: 0.2, Culture: &agents.CultureState{}}
	pop := []*agents.Agent{a}
	for i := 1; i <= 4; i++ {
		pop = append(pop, &agents.Agent{
			ID: agents.AgentID(i), Type: agents.TypeLiar, BeliefStrength: 0.9,
			Position: world.Vec2{X: float64(i * 10)}, Culture: &agents.CultureState{},
		})
	}

	c.Tick(a, pop)
	assert.Equal(t, agents.TypeLiar, a.Type)
	assert.Equal(t, 1, a.Conversions())
	assert.True(t, a.BeliefStrength >= 0.3 && a.BeliefStrength <= 0.6)

	stubborn := &agents.Agent{ID: 9, Type: agents.TypeStubborn, BeliefStrength: 0.9, Culture: &agents.CultureState{}}
	stubborn.Lock()
	pop[0] = stubborn
	c.Tick(stubborn, pop)
	assert.Equal(t, agents.TypeStubborn, stubborn.Type, "convinced stubborn agents are exempt")
}

func TestCulturalConversionNeedsQuorum(t *testing.T) {
	c := NewCultural(DefaultCulturalConfig(), rand.New(rand.NewSource(1)))
	c.Resume(Checkpoint{Ticks: 119})

	a := &agents.Agent{Type: agents.TypeHonest, BeliefStrength: 0.2, Culture: &agents.CultureState{}}
	l1 := &agents.Agent{ID: 1, Type: agents.TypeLiar, Position: world.Vec2{X: 5}}
	l2 := &agents.Agent{ID: 2, Type: agents.TypeLiar, Position: world.Vec2{X: 6}}

	c.Tick(a, []*agents.Agent{a, l1, l2})
	assert.Equal(t, agents.TypeHonest, a.Type)
	assert.Zero(t, a.Conversions())
}

func TestHybridCouplesCulturalSuccessIntoFitness(t *testing.T) {
	deps := testDeps(1, 2)
	h := NewHybrid(deps.Config, deps)

	a := &agents.Agent{ID: 1, Type: agents.TypeHonest, BeliefStrength: 1, Culture: &agents.CultureState{},
		Genome: &agents.Genome{Honesty: 1, Stubbornness: 0.5, InfluenceStrength: 1}}
	b := &agents.Agent{ID: 2, Type: agents.TypeHonest, BeliefStrength: 0.1, Culture: &agents.CultureState{},
		Genome: &agents.Genome{Honesty: 1, Stubbornness: 0.1, InfluenceStrength: 1}}
	h.Initialize(a)
	h.Initialize(b)

	out := h.Interact(a, b)
	assert.True(t, out.Scored)
	assert.Greater(t, out.Transfer, 0.5)
	assert.InDelta(t, 3+1, a.Fitness, 1e-9)
	assert.InDelta(t, 3-0.5, b.Fitness, 1e-9)
}

func TestHybridOffspringGetCulture(t *testing.T) {
	deps := testDeps(12, 20)
	deps.Config.Genetic.GenerationLength = 1
	h := NewHybrid(deps.Config, deps)

	pop := testPopulation(deps, 20)
	for _, a := range pop {
		h.Initialize(a)
	}
	next := h.EvolvePopulation(pop)
	require.Len(t, next, 20)
	for _, a := range next {
		assert.NotNil(t, a.Culture)
		assert.NotNil(t, a.Game)
		assert.NotNil(t, a.Genome)
	}
	assert.Equal(t, 1, h.Stats(next).Generation)
}

func TestSummarizeEmptyAndSingle(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.Population)
	assert.Zero(t, s.AvgFitness)
	assert.Zero(t, s.BeliefVariance)

	one := Summarize([]*agents.Agent{{Type: agents.TypeLiar, Color: agents.LieColor, BeliefStrength: 0.8, Genome: &agents.Genome{}}})
	assert.Equal(t, 1, one.Liars)
	assert.Zero(t, one.BeliefVariance)
	assert.Zero(t, one.HonestyVariance)
	assert.Zero(t, one.Diversity)
	assert.Equal(t, 1, one.StrongBeliefs)
}

func TestSummarizeAggregates(t *testing.T) {
	pop := []*agents.Agent{
		{Type: agents.TypeHonest, Color: agents.Color{R: 0}, Fitness: 2, BeliefStrength: 0.2},
		{Type: agents.TypeLiar, Color: agents.Color{R: 255}, Fitness: 4, BeliefStrength: 0.8},
	}
	pop[0].PushPayoff(3)
	pop[1].PushPayoff(5)
	pop[1].RecordConversion()

	s := Summarize(pop)
	assert.Equal(t, 1, s.Honest)
	assert.Equal(t, 1, s.Liars)
	assert.InDelta(t, 3.0, s.AvgFitness, 1e-9)
	assert.InDelta(t, 0.5, s.AvgBeliefStrength, 1e-9)
	assert.InDelta(t, 0.5, s.Consensus, 1e-9)
	assert.InDelta(t, 0.25, s.BeliefVariance, 1e-9)
	assert.InDelta(t, 127.5, s.Diversity, 1e-9)
	assert.Equal(t, 3.0, s.AvgPayoffHonest)
	assert.Equal(t, 5.0, s.AvgPayoffLiar)
	assert.Equal(t, 2, s.Interactions)
	assert.Equal(t, 1, s.Conversions)
}

func TestNewAndParseKind(t *testing.T) {
	deps := testDeps(1, 1)
	s, err := New(KindNone, deps)
	require.NoError(t, err)
	assert.Nil(t, s)

	for _, k := range Kinds[1:] {
		s, err := New(k, deps)
		require.NoError(t, err)
		assert.Equal(t, string(k), s.Name())
	}

	_, err = New("annealing", deps)
	assert.Error(t, err)

	k, err := ParseKind("Hybrid")
	require.NoError(t, err)
	assert.Equal(t, KindHybrid, k)
	_, err = ParseKind("")
	assert.Error(t, err)
}

func TestCheckpointRoundTrip(t *testing.T) {
	deps := testDeps(1, 4)
	deps.Config.Genetic.GenerationLength = 2
	g := NewGenetic(deps.Config.Genetic, deps)
	pop := testPopulation(deps, 4)
	for range 3 {
		pop = g.EvolvePopulation(pop)
	}
	cp := g.Checkpoint()
	assert.Equal(t, Checkpoint{Ticks: 3, Frame: 1, Generation: 1}, cp)

	fresh := NewGenetic(deps.Config.Genetic, deps)
	fresh.Resume(cp)
	assert.Equal(t, cp, fresh.Checkpoint())

	g.Reset()
	assert.Equal(t, Checkpoint{}, g.Checkpoint())
}

// learningPair places a struggling agent 50 units from a fitter role model.
func learningPair(modelFitness float64) (weak, model *agents.Agent) {
	weak = &agents.Agent{
		ID:             1,
		Type:           agents.TypeHonest,
		Fitness:        1,
		BeliefStrength: 0.5,
		Genome:         &agents.Genome{Honesty: 0, Stubbornness: 0, InfluenceStrength: 0, TrustThreshold: 0.5},
	}
	weak.Position = world.Vec2{X: 100, Y: 100}
	model = &agents.Agent{
		ID:             2,
		Type:           agents.TypeHonest,
		Fitness:        modelFitness,
		BeliefStrength: 0.5,
		Genome:         &agents.Genome{Honesty: 1, Stubbornness: 1, InfluenceStrength: 1, TrustThreshold: 1},
	}
	model.Position = world.Vec2{X: 150, Y: 100}
	return weak, model
}

func TestGeneticNeighbourLearningMovesTowardFitterModel(t *testing.T) {
	deps := testDeps(5, 2)
	g := NewGenetic(deps.Config.Genetic, deps)
	weak, model := learningPair(4.5) // 3.5 ahead, above the margin of 3
	pop := []*agents.Agent{weak, model}

	for range 99 {
		g.EvolvePopulation(pop)
	}
	assert.Equal(t, 0.0, weak.Genome.Honesty, "no learning before the 100th tick")

	g.EvolvePopulation(pop)
	assert.InDelta(t, 0.3, weak.Genome.Honesty, 1e-12)
	assert.InDelta(t, 0.3, weak.Genome.Stubbornness, 1e-12)
	assert.Equal(t, 0.0, weak.Genome.InfluenceStrength, "only honesty and stubbornness are learned")
	assert.Equal(t, 0.5, weak.Genome.TrustThreshold)
	assert.InDelta(t, 0.3*(1-0.3), weak.LearningRate, 1e-12, "behaviour re-derived from the new genome")

	assert.Equal(t, 1.0, model.Genome.Honesty, "the model is not pulled toward the weaker agent")
}

func TestGeneticNeighbourLearningNeedsMargin(t *testing.T) {
	deps := testDeps(5, 2)
	g := NewGenetic(deps.Config.Genetic, deps)
	weak, model := learningPair(4) // exactly 3 ahead: not more than the margin
	pop := []*agents.Agent{weak, model}

	for range 100 {
		g.EvolvePopulation(pop)
	}
	assert.Equal(t, agents.Genome{Honesty: 0, Stubbornness: 0, InfluenceStrength: 0, TrustThreshold: 0.5}, *weak.Genome)

	// Out of radius: a far fitter model is ignored.
	weak, model = learningPair(100)
	model.Position = world.Vec2{X: 250, Y: 100}
	g.learnFromNeighbours([]*agents.Agent{weak, model})
	assert.Equal(t, 0.0, weak.Genome.Honesty)

	// Agents at or above the fitness threshold do not look for models.
	weak, model = learningPair(100)
	weak.Fitness = 5
	g.learnFromNeighbours([]*agents.Agent{weak, model})
	assert.Equal(t, 0.0, weak.Genome.Honesty)
}

func TestCulturalTickDecaysConvictionAndLearnsSocially(t *testing.T) {
	c := NewCultural(DefaultCulturalConfig(), rand.New(rand.NewSource(1)))

	a := &agents.Agent{
		ID:              1,
		ProximityRadius: 45,
		BeliefStrength:  0.3,
		Genome:          &agents.Genome{},
		Culture:         &agents.CultureState{},
	}
	a.Position = world.Vec2{X: 100, Y: 100}
	b := &agents.Agent{
		ID:              2,
		ProximityRadius: 45,
		BeliefStrength:  0.9,
		Genome:          &agents.Genome{Honesty: 1, Stubbornness: 1, InfluenceStrength: 1, TrustThreshold: 1},
		Culture:         &agents.CultureState{},
	}
	b.Position = world.Vec2{X: 160, Y: 100} // Inside twice the proximity radius
	pop := []*agents.Agent{a, b}

	c.Tick(a, pop)

	assert.InDelta(t, 0.3*(1-0.002), a.BeliefStrength, 1e-12)
	for _, tr := range agents.Traits {
		assert.InDelta(t, 0.001, a.Genome.Get(tr), 1e-12, "trait %d", tr)
	}
}

func TestCulturalSocialLearningNeedsStrictlyStrongerNeighbour(t *testing.T) {
	c := NewCultural(DefaultCulturalConfig(), rand.New(rand.NewSource(1)))

	mk := func(id agents.AgentID, x, strength, trait float64) *agents.Agent {
		a := &agents.Agent{
			ID:              id,
			ProximityRadius: 45,
			BeliefStrength:  strength,
			Genome:          &agents.Genome{Honesty: trait, Stubbornness: trait, InfluenceStrength: trait, TrustThreshold: trait},
			Culture:         &agents.CultureState{},
		}
		a.Position = world.Vec2{X: x, Y: 100}
		return a
	}

	a := mk(1, 100, 0.5, 0)
	equal := mk(2, 130, 0.5, 1)   // Same conviction
	distant := mk(3, 200, 0.9, 1) // 100 away, outside twice the radius
	c.socialLearning(a, []*agents.Agent{a, equal, distant})
	assert.Equal(t, agents.Genome{}, *a.Genome)
}
