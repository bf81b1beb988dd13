package accel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearProfileSlowMotionDecelerates(t *testing.T) {
	p := NewLinearProfile(1000)
	factor := p.Factor(0.00001, 0) // very slow, well under 0.07 units/ms
	assert.Less(t, factor, 1.0)
}

func TestLinearProfileCapsAtMaxAccel(t *testing.T) {
	p := NewLinearProfile(1000)
	factor := p.Factor(1.0, 0)
	assert.LessOrEqual(t, factor, p.maxAccel)
}

func TestLinearProfileSetSpeedRejectsOutOfRange(t *testing.T) {
	p := NewLinearProfile(1000)
	require.False(t, p.SetSpeed(1.5))
	require.True(t, p.SetSpeed(0.5))
}

func TestTouchpadProfileAppliesSlowdown(t *testing.T) {
	p := NewTouchpadProfile(1000)
	factor := p.Factor(0.01, 0)
	assert.LessOrEqual(t, factor, p.maxAccel*touchpadMagicSlowdown*1.01)
}

func TestTrackpointProfileSpeedFormulas(t *testing.T) {
	p := NewTrackpointProfile()
	require.True(t, p.SetSpeed(0))
	assert.InDelta(t, 4.6, p.maxAccel, 1e-9)
	assert.InDelta(t, 1.04, p.incline, 1e-9)

	require.True(t, p.SetSpeed(1.0))
	assert.InDelta(t, 4.6*math.Exp(1.2), p.maxAccel, 1e-9)
}

func TestFlatProfileFactor(t *testing.T) {
	p := NewFlatProfile()
	require.True(t, p.SetSpeed(-1))
	assert.InDelta(t, 0.005, p.factor, 1e-9)

	require.True(t, p.SetSpeed(0))
	assert.InDelta(t, 1.0, p.factor, 1e-9)
}

func TestCustomProfileInterpolates(t *testing.T) {
	cp, ok := NewCustomProfile([]CustomPoint{{Speed: 0, Factor: 1}, {Speed: 100, Factor: 3}})
	require.True(t, ok)
	got := cp.Factor(50.0/1e6, 0)
	assert.InDelta(t, 2.0, got, 1e-6)
}

func TestCustomProfileRejectsTooManyPoints(t *testing.T) {
	pts := make([]CustomPoint, 33)
	_, ok := NewCustomProfile(pts)
	assert.False(t, ok)
}

func TestFilterMonotonicityAcrossVelocities(t *testing.T) {
	f := NewFilter(NewLinearProfile(1000), 1000, false)
	var time uint64
	var lastMag float64
	for i := 0; i < 20; i++ {
		time += 1000
		d := f.Filter(Delta{X: float64(i + 1), Y: 0}, time)
		mag := d.X
		if i > 2 {
			assert.GreaterOrEqual(t, mag, lastMag)
		}
		lastMag = mag
	}
	assert.Greater(t, lastMag, 0.0)
}

func TestFilterRestartResetsTracker(t *testing.T) {
	f := NewFilter(NewLinearProfile(1000), 1000, false)
	f.Filter(Delta{X: 10, Y: 10}, 1000)
	f.Restart(2000)
	assert.Equal(t, 0.0, f.lastVelocity)
}

func TestTrackpointFilterClipsToMaxDelta(t *testing.T) {
	f := NewTrackpointFilter()
	var out Delta
	for i := 0; i < 4; i++ {
		out = f.Filter(Delta{X: 10000, Y: 0}, uint64(i)*1000)
	}
	assert.LessOrEqual(t, out.X, f.maxDelta)
}

func TestTrackpointFilterAveragesHistory(t *testing.T) {
	f := NewTrackpointFilter()
	f.Filter(Delta{X: 7, Y: 0}, 0)
	f.Filter(Delta{X: 7, Y: 0}, 1000)
	f.Filter(Delta{X: 9, Y: 0}, 2000)
	out := f.FilterConstant(Delta{X: 8, Y: 0}, 3000)
	assert.InDelta(t, 7.75, out.X, 1e-9)
}
