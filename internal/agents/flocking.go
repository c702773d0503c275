package agents

import "github.com/talgya/belief-swarm/internal/world"

// FlockConfig weights the three steering behaviours.
type FlockConfig struct {
	MaxSpeed         float64 `yaml:"max_speed"`
	MaxForce         float64 `yaml:"max_force"`
	Separation       float64 `yaml:"separation"` // Distance below which agents push apart
	SeparationWeight float64 `yaml:"separation_weight"`
	AlignmentWeight  float64 `yaml:"alignment_weight"`
	CohesionWeight   float64 `yaml:"cohesion_weight"`
}

// DefaultFlockConfig returns the standard swarm motion parameters.
func DefaultFlockConfig() FlockConfig {
	return FlockConfig{
		MaxSpeed:         2.5,
		MaxForce:         0.1,
		Separation:       25,
		SeparationWeight: 1.5,
		AlignmentWeight:  1.0,
		CohesionWeight:   1.0,
	}
}

// Flock accumulates separation, alignment and cohesion forces from the
// population into the agent's acceleration. Call Move to apply them.
func (a *Agent) Flock(pop []*Agent, cfg FlockConfig) {
	sep := a.separate(pop, cfg).Scale(cfg.SeparationWeight)
	ali := a.align(pop, cfg).Scale(cfg.AlignmentWeight)
	coh := a.cohere(pop, cfg).Scale(cfg.CohesionWeight)
	a.acceleration = a.acceleration.Add(sep).Add(ali).Add(coh)
}

// Move integrates velocity and position, then wraps the agent around the edges.
func (a *Agent) Move(w *world.World, cfg FlockConfig) {
	a.Velocity = a.Velocity.Add(a.acceleration).Limit(cfg.MaxSpeed)
	a.Position = w.Wrap(a.Position.Add(a.Velocity))
	a.acceleration = world.Vec2{}
}

func (a *Agent) separate(pop []*Agent, cfg FlockConfig) world.Vec2 {
	var steer world.Vec2
	count := 0
	for _, o := range pop {
		d := Distance(a, o)
		if d > 0 && d < cfg.Separation {
			steer = steer.Add(a.Position.Sub(o.Position).Normalize().Scale(1 / d))
			count++
		}
	}
	if count == 0 {
		return steer
	}
	return steer.Scale(1 / float64(count)).Normalize().Scale(cfg.MaxSpeed).Sub(a.Velocity).Limit(cfg.MaxForce)
}

func (a *Agent) align(pop []*Agent, cfg FlockConfig) world.Vec2 {
	var sum world.Vec2
	count := 0
	for _, o := range pop {
		d := Distance(a, o)
		if d > 0 && d < a.ProximityRadius {
			sum = sum.Add(o.Velocity)
			count++
		}
	}
	if count == 0 {
		return world.Vec2{}
	}
	desired := sum.Scale(1 / float64(count)).SetLen(cfg.MaxSpeed)
	return desired.Sub(a.Velocity).Limit(cfg.MaxForce)
}

func (a *Agent) cohere(pop []*Agent, cfg FlockConfig) world.Vec2 {
	var sum world.Vec2
	count := 0
	for _, o := range pop {
		d := Distance(a, o)
		if d > 0 && d < a.ProximityRadius {
			sum = sum.Add(o.Position)
			count++
		}
	}
	if count == 0 {
		return world.Vec2{}
	}
	centre := sum.Scale(1 / float64(count))
	desired := centre.Sub(a.Position).SetLen(cfg.MaxSpeed)
	return desired.Sub(a.Velocity).Limit(cfg.MaxForce)
}
