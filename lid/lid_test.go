package lid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownReliabilityIgnoresInitialClosedState(t *testing.T) {
	d := New(ReliabilityUnknown, nil)
	_, changed := d.SyncInitialState(0, true)
	assert.False(t, changed)
	assert.False(t, d.IsClosed())
}

func TestReliableTrustsInitialState(t *testing.T) {
	d := New(ReliabilityReliable, nil)
	toggle, changed := d.SyncInitialState(0, true)
	require.True(t, changed)
	assert.True(t, toggle.Closed)
}

func TestScenarioS6LidWithPairedKeyboard(t *testing.T) {
	var written []int32
	d := New(ReliabilityWriteOpen, func(v int32) { written = append(written, v) })
	d.PairKeyboard(7)

	toggle, changed := d.ProcessSwitch(0, true)
	require.True(t, changed)
	assert.True(t, toggle.Closed)

	toggle, changed = d.KeyboardActivity(10_000_000)
	require.True(t, changed)
	assert.False(t, toggle.Closed)
	assert.Equal(t, []int32{0}, written)

	// A second keyboard event with the lid already open is a no-op.
	_, changed = d.KeyboardActivity(11_000_000)
	assert.False(t, changed)
}

func TestPairKeyboardCapsAtThree(t *testing.T) {
	d := New(ReliabilityUnknown, nil)
	for i := 0; i < 5; i++ {
		d.PairKeyboard(i)
	}
	assert.Len(t, d.PairedKeyboards(), MaxPairedKeyboards)
}

func TestDuplicateSwitchValueIsNoop(t *testing.T) {
	d := New(ReliabilityReliable, nil)
	d.ProcessSwitch(0, true)
	_, changed := d.ProcessSwitch(100, true)
	assert.False(t, changed)
}
