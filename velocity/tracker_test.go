package velocity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerSteadyMotionReportsPositiveVelocity(t *testing.T) {
	tr := New()
	var time uint64
	for i := 0; i < 5; i++ {
		time += 1000
		tr.Feed(Delta{X: 1, Y: 0}, time)
	}
	v := tr.Velocity(time)
	require.Greater(t, v, 0.0)
}

func TestTrackerDirectionReversalStopsAveraging(t *testing.T) {
	tr := New()
	var time uint64
	time += 1000
	tr.Feed(Delta{X: 5, Y: 0}, time)
	time += 1000
	tr.Feed(Delta{X: -5, Y: 0}, time)

	v := tr.Velocity(time)
	assert.GreaterOrEqual(t, v, 0.0)
}

func TestTrackerIdleBeyondTimeoutUsesTimeoutVelocity(t *testing.T) {
	tr := New()
	tr.Feed(Delta{X: 10, Y: 0}, 0)

	v := tr.Velocity(2_000_000)
	assert.GreaterOrEqual(t, v, 0.0)
}

func TestTrackerResetClearsHistory(t *testing.T) {
	tr := New()
	tr.Feed(Delta{X: 100, Y: 100}, 1000)
	tr.Reset(2000)
	v := tr.Velocity(2001)
	assert.Equal(t, 0.0, v)
}

func TestSmoothenerRaisesTinyIntervals(t *testing.T) {
	tr := New()
	tr.Smoothener = &Smoothener{ThresholdUS: 2000, ValueUS: 4000}
	tr.Feed(Delta{X: 4, Y: 0}, 1000)
	v1 := tr.velocityOf(tr.byOffset(1), 1500)
	assert.InDelta(t, 4.0/4000, v1, 1e-9)
}
