package world

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceIsEuclideanWithoutWrap(t *testing.T) {
	assert.InDelta(t, 5.0, Distance(Vec2{0, 0}, Vec2{3, 4}), 1e-9)

	w := New(Config{Width: 100, Height: 100}, 1)
	a := Vec2{X: 1, Y: 50}
	b := Vec2{X: 99, Y: 50}
	assert.InDelta(t, 98.0, Distance(a, b), 1e-9, "opposite edges are not neighbours")
	assert.True(t, w.InBounds(a))
}

func TestWrapMovesToOppositeEdge(t *testing.T) {
	w := New(Config{Width: 200, Height: 100}, 1)

	assert.Equal(t, Vec2{X: 200, Y: 10}, w.Wrap(Vec2{X: -1, Y: 10}))
	assert.Equal(t, Vec2{X: 0, Y: 10}, w.Wrap(Vec2{X: 201, Y: 10}))
	assert.Equal(t, Vec2{X: 5, Y: 100}, w.Wrap(Vec2{X: 5, Y: -0.5}))
	assert.Equal(t, Vec2{X: 5, Y: 0}, w.Wrap(Vec2{X: 5, Y: 100.5}))
}

func TestVecLimitAndSetLen(t *testing.T) {
	v := Vec2{X: 30, Y: 40}
	assert.InDelta(t, 5.0, v.Limit(5).Len(), 1e-9)
	assert.Equal(t, v, v.Limit(100))
	assert.InDelta(t, 2.0, v.SetLen(2).Len(), 1e-9)
	assert.Equal(t, Vec2{}, Vec2{}.Normalize())
	assert.InDelta(t, math.Pi/2, Vec2{X: 0, Y: 1}.Heading(), 1e-9)
}

func TestRandomPositionStaysInBounds(t *testing.T) {
	for _, clustering := range []float64{0, 0.5, 1} {
		w := New(Config{Width: 300, Height: 200, Clustering: clustering}, 7)
		rng := rand.New(rand.NewSource(42))
		for i := 0; i < 500; i++ {
			p := w.RandomPosition(rng)
			assert.True(t, w.InBounds(p), "clustering=%v position %+v", clustering, p)
		}
	}
}

func TestDensityFieldIsNormalizedAndDeterministic(t *testing.T) {
	a := NewDensityField(99)
	b := NewDensityField(99)
	for x := 0.0; x < 1000; x += 37 {
		p := Vec2{X: x, Y: x / 2}
		v := a.At(p)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
		assert.Equal(t, v, b.At(p))
	}
}

func TestUniformWorldHasFlatDensity(t *testing.T) {
	w := New(DefaultConfig(), 3)
	assert.Equal(t, 1.0, w.Density(Vec2{X: 10, Y: 10}))
}
