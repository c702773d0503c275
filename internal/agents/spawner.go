// Agent spawning: initial populations from category percentages and blank offspring for reproduction.
package agents

import (
	"math"
	"math/rand"

	"github.com/talgya/belief-swarm/internal/world"
)

// SpawnConfig controls initial population generation. It is read when a
// population is (re)built; later edits only apply on the next reset.
type SpawnConfig struct {
	Population      int     `yaml:"population"`
	LiarsPercent    float64 `yaml:"liars_percent"`
	StubbornPercent float64 `yaml:"stubborn_percent"`
	ProximityRadius float64 `yaml:"proximity_radius"`
	InteractionTime int     `yaml:"interaction_time"` // Ticks of sustained proximity before an exchange
}

// DefaultSpawnConfig returns the baseline swarm composition.
func DefaultSpawnConfig() SpawnConfig {
	return SpawnConfig{
		Population:      150,
		LiarsPercent:    15,
		StubbornPercent: 10,
		ProximityRadius: 45,
		InteractionTime: 20,
	}
}

// Counts splits the population into honest, liar and stubborn counts.
// Liars and stubborn are floored; honest agents take the remainder.
func (c SpawnConfig) Counts() (honest, liars, stubborn int) {
	liars = int(math.Floor(float64(c.Population) * c.LiarsPercent / 100))
	stubborn = int(math.Floor(float64(c.Population) * c.StubbornPercent / 100))
	honest = c.Population - liars - stubborn
	if honest < 0 {
		honest = 0
	}
	return honest, liars, stubborn
}

// Spawner creates agents for the simulation.
type Spawner struct {
	rng    *rand.Rand
	world  *world.World
	nextID AgentID

	// ProximityRadius is stamped on every agent spawned.
	ProximityRadius float64
}

// NewSpawner creates an agent spawner drawing from rng and placing agents on w.
func NewSpawner(rng *rand.Rand, w *world.World) *Spawner {
	return &Spawner{
		rng:             rng,
		world:           w,
		ProximityRadius: DefaultSpawnConfig().ProximityRadius,
	}
}

// Rand exposes the spawner's random source so strategies draw from the same stream.
func (s *Spawner) Rand() *rand.Rand {
	return s.rng
}

// World returns the plane agents are placed on.
func (s *Spawner) World() *world.World {
	return s.world
}

// SetNextID sets the next agent ID to be issued (used when restoring from DB).
func (s *Spawner) SetNextID(id AgentID) {
	s.nextID = id
}

// NextID returns the ID the next spawned agent will get.
func (s *Spawner) NextID() AgentID {
	return s.nextID
}

// Rewind restarts ID allocation at zero. Only valid on a full population reset.
func (s *Spawner) Rewind() {
	s.nextID = 0
}

// SpawnPopulation creates the initial swarm: honest agents first, then liars,
// then stubborn agents, with IDs in that order.
func (s *Spawner) SpawnPopulation(cfg SpawnConfig) []*Agent {
	if cfg.ProximityRadius > 0 {
		s.ProximityRadius = cfg.ProximityRadius
	}
	honest, liars, stubborn := cfg.Counts()
	pop := make([]*Agent, 0, honest+liars+stubborn)

	for i := 0; i < honest; i++ {
		pop = append(pop, s.Spawn(TypeHonest))
	}
	for i := 0; i < liars; i++ {
		pop = append(pop, s.Spawn(TypeLiar))
	}
	for i := 0; i < stubborn; i++ {
		pop = append(pop, s.Spawn(TypeStubborn))
	}
	return pop
}

// Spawn creates one agent of the given type at a random position.
func (s *Spawner) Spawn(t Type) *Agent {
	id := s.nextID
	s.nextID++

	a := &Agent{
		ID:               id,
		Position:         s.world.RandomPosition(s.rng),
		Velocity:         world.FromAngle(s.rng.Float64() * 2 * math.Pi).Scale(s.uniform(1, 2)),
		ProximityRadius:  s.ProximityRadius,
		Type:             t,
		Color:            s.initialColor(t),
		BeliefStrength:   s.uniform(0.5, 1.0),
		InteractionTimer: make(map[AgentID]int),
	}
	if t == TypeStubborn {
		a.Lock()
	}
	return a
}

// initialColor picks a starting belief: honest agents lean green, liars lean
// red, stubborn agents sit at one extreme or the other.
func (s *Spawner) initialColor(t Type) Color {
	switch t {
	case TypeHonest:
		return Color{R: s.uniform(50, 100), G: s.uniform(150, 255), B: s.uniform(50, 100)}
	case TypeLiar:
		return Color{R: s.uniform(150, 255), G: s.uniform(50, 100), B: s.uniform(50, 100)}
	default:
		if s.rng.Float64() > 0.5 {
			return Color{R: 30, G: 255, B: 30}
		}
		return Color{R: 255, G: 30, B: 30}
	}
}

func (s *Spawner) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}
