package mtslot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetActiveSlotClampsOutOfRange(t *testing.T) {
	var warned string
	m := New(4, func(f string, a ...any) { warned = f })
	m.SetActiveSlot(99)
	assert.Equal(t, 3, m.ActiveSlot())
	assert.NotEmpty(t, warned)
}

func TestTrackingIDLifecycle(t *testing.T) {
	m := New(2, nil)
	m.SetActiveSlot(0)
	m.SetTrackingID(42)
	m.SetPosition(100, 200)
	s := m.Slot(0)
	require.True(t, s.Active())
	assert.Equal(t, int32(100), s.Point.X)

	m.SetTrackingID(-1)
	assert.False(t, m.Slot(0).Active())
}

func TestFakeFingerCountSingleBits(t *testing.T) {
	m := New(1, nil)
	m.SetFakeFingerBit(BTNTouch, true)
	assert.True(t, m.FakeFingerIsTouching())
	assert.Equal(t, 0, m.FakeFingerCount())

	m.SetFakeFingerBit(BTNToolFinger, true)
	assert.Equal(t, 1, m.FakeFingerCount())

	m.SetFakeFingerBit(BTNToolFinger, false)
	m.SetFakeFingerBit(BTNToolDoubleTap, true)
	assert.Equal(t, 2, m.FakeFingerCount())
}

func TestFakeFingerQuintTapOverflow(t *testing.T) {
	m := New(1, nil)
	m.SetFakeFingerBit(BTNTouch, true)
	m.SetFakeFingerBit(BTNToolQuintTap, true)
	assert.Equal(t, 5, m.FakeFingerCount())

	m.SetFakeFingerBit(BTNToolQuintTap, false)
	assert.Equal(t, FakeFingerOverflow, m.FakeFingerCount())

	m.SetFakeFingerBit(BTNTouch, false)
	assert.Equal(t, 0, m.FakeFingerCount())
}

func TestFakeFingerInvalidStateWarns(t *testing.T) {
	var warned bool
	m := New(1, func(string, ...any) { warned = true })
	m.SetFakeFingerBit(BTNToolFinger, true)
	// Force an invalid combined state directly to exercise the warning path.
	m.fakeTouches |= 1 << 3
	m.FakeFingerCount()
	assert.True(t, warned)
}
