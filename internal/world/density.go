// Spawn density from layered simplex noise.
// Dense regions seed the loose clusters the flocking rules then pull together.
package world

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// DensityField samples normalized multi-octave OpenSimplex noise.
type DensityField struct {
	noise     opensimplex.Noise
	Octaves   int
	Frequency float64 // Base frequency in cycles per world unit
	Persist   float64 // Amplitude falloff per octave
}

// NewDensityField creates a density field for the given seed.
func NewDensityField(seed int64) *DensityField {
	return &DensityField{
		noise:     opensimplex.NewNormalized(seed),
		Octaves:   3,
		Frequency: 0.004,
		Persist:   0.5,
	}
}

// At returns the field value at p in [0,1].
func (d *DensityField) At(p Vec2) float64 {
	return octaveNoise(d.noise, p.X, p.Y, d.Octaves, d.Frequency, d.Persist)
}

func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	if maxVal == 0 {
		return 0
	}
	return total / maxVal
}
