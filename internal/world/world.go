package world

import (
	"fmt"
	"math/rand"
)

// Config holds the substrate dimensions and spawn shaping.
type Config struct {
	Width      float64 `yaml:"width"`
	Height     float64 `yaml:"height"`
	Clustering float64 `yaml:"clustering"` // 0 = uniform spawn, 1 = spawn only in dense noise regions
}

// DefaultConfig returns the canvas size the swarm was tuned on.
func DefaultConfig() Config {
	return Config{
		Width:      1280,
		Height:     800,
		Clustering: 0,
	}
}

// World is the bounded plane agents live on.
type World struct {
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Clustering float64 `json:"clustering"`

	density *DensityField
}

// New creates a world. The seed drives the spawn density field.
func New(cfg Config, seed int64) *World {
	if cfg.Width <= 0 {
		cfg.Width = DefaultConfig().Width
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultConfig().Height
	}
	w := &World{
		Width:      cfg.Width,
		Height:     cfg.Height,
		Clustering: clamp01(cfg.Clustering),
	}
	if w.Clustering > 0 {
		w.density = NewDensityField(seed)
	}
	return w
}

// Wrap moves a position that left the plane to the opposite edge.
func (w *World) Wrap(p Vec2) Vec2 {
	if p.X < 0 {
		p.X = w.Width
	}
	if p.X > w.Width {
		p.X = 0
	}
	if p.Y < 0 {
		p.Y = w.Height
	}
	if p.Y > w.Height {
		p.Y = 0
	}
	return p
}

// InBounds reports whether p lies on the plane.
func (w *World) InBounds(p Vec2) bool {
	return p.X >= 0 && p.X <= w.Width && p.Y >= 0 && p.Y <= w.Height
}

// Density returns the spawn density at p in [0,1]. Uniform worlds return 1.
func (w *World) Density(p Vec2) float64 {
	if w.density == nil {
		return 1
	}
	return w.density.At(p)
}

// RandomPosition draws a spawn position. With clustering enabled, candidates
// are rejected in proportion to how sparse the density field is at that point.
func (w *World) RandomPosition(rng *rand.Rand) Vec2 {
	const maxAttempts = 32

	var p Vec2
	for i := 0; i < maxAttempts; i++ {
		p = Vec2{X: rng.Float64() * w.Width, Y: rng.Float64() * w.Height}
		if w.density == nil {
			return p
		}
		accept := 1 - w.Clustering + w.Clustering*w.density.At(p)
		if rng.Float64() < accept {
			return p
		}
	}
	return p
}

// String returns a summary of the world.
func (w *World) String() string {
	return fmt.Sprintf("World(%.0fx%.0f, clustering=%.2f)", w.Width, w.Height, w.Clustering)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
