package hysteresis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterIdempotentAtCenter(t *testing.T) {
	c := Point{X: 10, Y: 10}
	got := Filter(c, c, Margin{A: 2, B: 2})
	assert.Equal(t, c, got)
}

func TestFilterWithinMarginReturnsCenter(t *testing.T) {
	c := Point{X: 0, Y: 0}
	p := Point{X: 1, Y: 0}
	got := Filter(p, c, Margin{A: 2, B: 2})
	assert.Equal(t, c, got)
}

func TestFilterOutsideMarginResumesFromEdge(t *testing.T) {
	c := Point{X: 0, Y: 0}
	p := Point{X: 10, Y: 0}
	got := Filter(p, c, Margin{A: 2, B: 2})
	assert.InDelta(t, 2.0, got.X, 1e-9)
	assert.InDelta(t, 0.0, got.Y, 1e-9)
}

func TestFilterEllipticalAsymmetry(t *testing.T) {
	c := Point{X: 0, Y: 0}
	p := Point{X: 0, Y: 10}
	got := Filter(p, c, Margin{A: 2, B: 4})
	assert.InDelta(t, 4.0, got.Y, 1e-9)
	assert.True(t, math.Abs(got.X) < 1e-9)
}
