package debounce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const btnLeft = 0x110

func TestFirstPressAndReleaseEmitBeforeLearning(t *testing.T) {
	d := New()
	act, flush := d.Press(btnLeft, 0, nil)
	assert.Equal(t, ActionEmit, act)
	assert.Nil(t, flush)

	assert.Equal(t, ActionEmit, d.Release(btnLeft, 1000, nil))
}

func TestBouncingPressWithinWindowLearnsAndDrops(t *testing.T) {
	d := New()
	d.Press(btnLeft, 0, nil)
	d.Release(btnLeft, 1000, nil)

	act, _ := d.Press(btnLeft, 3000, nil) // 2ms gap < 12ms
	assert.Equal(t, ActionDrop, act)
	assert.True(t, d.Learned())
}

func TestScenarioS2FullSequence(t *testing.T) {
	d := New()
	var armed uint64
	arm := func(d uint64) { armed = d }

	act, _ := d.Press(btnLeft, 0, arm)
	require.Equal(t, ActionEmit, act)

	require.Equal(t, ActionEmit, d.Release(btnLeft, 1000, arm))

	act, _ = d.Press(btnLeft, 3000, arm)
	require.Equal(t, ActionDrop, act)
	require.True(t, d.Learned())

	// NEEDED: next release is held back, -> ON.
	require.Equal(t, ActionHold, d.Release(btnLeft, 3500, arm))

	// ON: a later genuine press passes through.
	act, _ = d.Press(btnLeft, 20000, arm)
	require.Equal(t, ActionEmit, act)

	// ON: release starts the 12ms timer, -> ACTIVE, held back.
	require.Equal(t, ActionHold, d.Release(btnLeft, 20100, arm))
	require.Equal(t, uint64(20100+BounceIntervalUS), armed)

	// ACTIVE: a same-button press while still bouncing is dropped.
	act, _ = d.Press(btnLeft, 20105, arm)
	require.Equal(t, ActionDrop, act)

	// Timer fires: the held release is delivered at its original time.
	held := d.Expire()
	require.NotNil(t, held)
	assert.Equal(t, uint64(20100), held.TimeUS)
}

func TestDifferentButtonWhileActiveFlushesAndSkipsDebounce(t *testing.T) {
	d := New()
	d.Press(btnLeft, 0, nil)
	d.Release(btnLeft, 1000, nil)
	d.Press(btnLeft, 3000, nil)
	d.Release(btnLeft, 3500, nil) // -> ON
	d.Press(btnLeft, 4000, nil)
	d.Release(btnLeft, 4100, func(uint64) {}) // -> ACTIVE, held

	const btnRight = 0x111
	act, flush := d.Press(btnRight, 4150, nil)
	assert.Equal(t, ActionEmit, act)
	require.NotNil(t, flush)
	assert.Equal(t, uint16(btnLeft), flush.Code)

	// The new button isn't subject to the old button's learned state.
	assert.Equal(t, ActionEmit, d.Release(btnRight, 4200, nil))
}
