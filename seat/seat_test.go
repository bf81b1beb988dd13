package seat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocPicksLowestUnsetBit(t *testing.T) {
	var m SlotMap

	a, ok := m.Alloc()
	require.True(t, ok)
	assert.Equal(t, 0, a)

	b, ok := m.Alloc()
	require.True(t, ok)
	assert.Equal(t, 1, b)

	m.Release(0)
	c, ok := m.Alloc()
	require.True(t, ok)
	assert.Equal(t, 0, c, "freed slot 0 must be reused before slot 2")
	assert.Equal(t, 2, m.Count())
}

func TestAllocExhaustion(t *testing.T) {
	var m SlotMap
	for i := 0; i < MaxSlots; i++ {
		_, ok := m.Alloc()
		require.True(t, ok)
	}
	_, ok := m.Alloc()
	assert.False(t, ok)

	m.Release(17)
	s, ok := m.Alloc()
	require.True(t, ok)
	assert.Equal(t, 17, s)
}

func TestReleaseOutOfRangeAndDoubleReleaseAreNoOps(t *testing.T) {
	var m SlotMap
	s, _ := m.Alloc()
	m.Release(-1)
	m.Release(MaxSlots)
	assert.True(t, m.IsSet(s))

	m.Release(s)
	m.Release(s)
	assert.Equal(t, 0, m.Count())
}

func TestSeatButtonCountAcrossDevices(t *testing.T) {
	s := New("seat0")
	const btnLeft = 0x110

	assert.Equal(t, 1, s.ButtonDown(btnLeft))
	assert.Equal(t, 2, s.ButtonDown(btnLeft)) // second device presses the same button
	assert.Equal(t, 1, s.ButtonUp(btnLeft))
	assert.Equal(t, 0, s.ButtonUp(btnLeft))
	assert.Equal(t, 0, s.ButtonUp(btnLeft), "unmatched release must not go negative")
}
