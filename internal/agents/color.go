package agents

import "math"

// Color is a belief encoded as an RGB triple with channels in [0,255].
// Green is the truth channel and red the lie channel; the gap between them
// reads as conviction.
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// Reference beliefs the genome interpolates between.
var (
	TruthColor = Color{R: 60, G: 220, B: 60}
	LieColor   = Color{R: 220, G: 60, B: 60}
)

// Lerp returns the colour t of the way from c to to. t is clamped to [0,1].
func (c Color) Lerp(to Color, t float64) Color {
	t = Clamp01(t)
	return Color{
		R: clampChannel(c.R + (to.R-c.R)*t),
		G: clampChannel(c.G + (to.G-c.G)*t),
		B: clampChannel(c.B + (to.B-c.B)*t),
	}
}

// Distance is the Euclidean distance over the three channels.
func (c Color) Distance(o Color) float64 {
	dr := c.R - o.R
	dg := c.G - o.G
	db := c.B - o.B
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

// TruthScore is the truth channel normalized to [0,1].
func (c Color) TruthScore() float64 {
	return c.G / 255
}

// LieScore is the lie channel normalized to [0,1].
func (c Color) LieScore() float64 {
	return c.R / 255
}

// Saturation is how far the colour sits from grey, read as extremism.
func (c Color) Saturation() float64 {
	maxC := math.Max(c.R, math.Max(c.G, c.B))
	minC := math.Min(c.R, math.Min(c.G, c.B))
	if maxC <= 0 {
		return 0
	}
	return (maxC - minC) / maxC
}

// BelievesTruth reports whether the truth channel dominates.
func (c Color) BelievesTruth() bool {
	return c.G > c.R
}

func clampChannel(v float64) float64 {
	return Clamp(v, 0, 255)
}
