// Package mtslot implements the multi-touch slot model:
// kernel ABS_MT_SLOT/TRACKING_ID/POSITION bookkeeping plus the
// BTN_TOOL_FINGER.../QUINTTAP fake-finger counting used by drivers
// without real slot support. Both the touchpad pipeline and the fallback
// dispatch's simple-MT routing share this model.
package mtslot

import "math/bits"

// Point is a raw device-coordinate position.
type Point struct {
	X, Y int32
}

// Slot is one ABS_MT_SLOT-indexed record.
type Slot struct {
	TrackingID int32 // -1 when inactive
	Point      Point
	Pressure   int32
	Major      int32
	Minor      int32
	ToolType   int32 // ABS_MT_TOOL_TYPE, 0 (MT_TOOL_FINGER) when never reported
	Dirty      bool  // position/pressure/size changed since last frame
}

// Active reports whether this slot currently holds a live contact.
func (s *Slot) Active() bool { return s.TrackingID >= 0 }

// Model is the per-device MT slot array plus fake-finger bitmask.
type Model struct {
	slots       []Slot
	activeSlot  int
	fakeTouches uint32 // bit 0: BTN_TOUCH, bits 1-5: FINGER..QUINTTAP, bit 7: overflow

	onWarn func(format string, args ...any)
}

const fakeFingerOverflow = 1 << 7

// New creates a Model with numSlots ABS_MT_SLOT entries, all inactive.
// onWarn, if non-nil, receives diagnostic messages for kernel-bug
// conditions; the Model itself does not rate-limit them.
func New(numSlots int, onWarn func(string, ...any)) *Model {
	m := &Model{slots: make([]Slot, numSlots), onWarn: onWarn}
	for i := range m.slots {
		m.slots[i].TrackingID = -1
	}
	return m
}

func (m *Model) warn(format string, args ...any) {
	if m.onWarn != nil {
		m.onWarn(format, args...)
	}
}

// NumSlots returns the slot array length.
func (m *Model) NumSlots() int { return len(m.slots) }

// SetActiveSlot selects the slot ABS_MT_SLOT addresses, clamping
// out-of-range values.
func (m *Model) SetActiveSlot(idx int32) {
	i := int(idx)
	if i < 0 || i >= len(m.slots) {
		m.warn("ABS_MT_SLOT %d out of range [0,%d), clamping", idx, len(m.slots))
		if i < 0 {
			i = 0
		} else {
			i = len(m.slots) - 1
		}
	}
	m.activeSlot = i
}

// ActiveSlot returns the slot ABS_MT_SLOT currently addresses.
func (m *Model) ActiveSlot() int { return m.activeSlot }

// Slot returns a pointer to slot i for direct inspection by a dispatch
// layer (e.g. to read Active()/Point after a frame).
func (m *Model) Slot(i int) *Slot {
	if i < 0 || i >= len(m.slots) {
		return nil
	}
	return &m.slots[i]
}

// SetTrackingID starts (id >= 0) or ends (id == -1) a contact on the
// active slot.
func (m *Model) SetTrackingID(id int32) {
	s := &m.slots[m.activeSlot]
	s.TrackingID = id
	s.Dirty = true
}

// SetPosition updates the active slot's position and marks it dirty.
func (m *Model) SetPosition(x, y int32) {
	s := &m.slots[m.activeSlot]
	s.Point = Point{X: x, Y: y}
	s.Dirty = true
}

// SetPressure updates the active slot's pressure value.
func (m *Model) SetPressure(p int32) {
	s := &m.slots[m.activeSlot]
	s.Pressure = p
	s.Dirty = true
}

// SetSize updates the active slot's touch major/minor axes.
func (m *Model) SetSize(major, minor int32) {
	s := &m.slots[m.activeSlot]
	s.Major = major
	s.Minor = minor
	s.Dirty = true
}

// SetToolType updates the active slot's ABS_MT_TOOL_TYPE value.
func (m *Model) SetToolType(toolType int32) {
	s := &m.slots[m.activeSlot]
	s.ToolType = toolType
	s.Dirty = true
}

// ClearDirty resets every slot's dirty flag, called at end of frame once
// the dispatch layer has consumed the updates.
func (m *Model) ClearDirty() {
	for i := range m.slots {
		m.slots[i].Dirty = false
	}
}

// FakeFingerCode identifies a BTN_TOOL_* code relevant to fake-finger
// counting.
type FakeFingerCode int

const (
	BTNTouch FakeFingerCode = iota
	BTNToolFinger
	BTNToolDoubleTap
	BTNToolTripleTap
	BTNToolQuadTap
	BTNToolQuintTap
)

// SetFakeFingerBit updates the fake-finger bitmask for a BTN_TOOL_* press
// or release. Bit 0 tracks BTN_TOUCH; bits 1-5 one-hot-encode the
// FINGER..QUINTTAP count; releasing QUINTTAP while BTN_TOUCH is down and
// no other tool bit is set latches the overflow bit.
func (m *Model) SetFakeFingerBit(code FakeFingerCode, isPress bool) {
	switch code {
	case BTNTouch:
		if !isPress {
			m.fakeTouches &^= fakeFingerOverflow
		}
		m.setFakeShift(0, isPress)
	case BTNToolFinger:
		m.setFakeShift(1, isPress)
	case BTNToolDoubleTap:
		m.setFakeShift(2, isPress)
	case BTNToolTripleTap:
		m.setFakeShift(3, isPress)
	case BTNToolQuadTap:
		m.setFakeShift(4, isPress)
	case BTNToolQuintTap:
		// Released: either moving to 6+ fingers (overflow sticks
		// until BTN_TOUCH releases) or to one of the lower counts
		// (whose bit is already set, or which clears overflow on
		// its own press).
		m.setFakeShift(5, isPress)
		if !isPress && m.fakeTouches&0x1 != 0 && m.fakeTouches&0x1e == 0 {
			m.fakeTouches |= fakeFingerOverflow
		}
	}
}

func (m *Model) setFakeShift(shift uint, isPress bool) {
	if isPress {
		m.fakeTouches &^= fakeFingerOverflow
		m.fakeTouches |= 1 << shift
	} else {
		m.fakeTouches &^= 1 << shift
	}
}

// FakeFingerOverflow is the sentinel FakeFingerCount returns once
// BTN_TOOL_QUINTTAP is released while BTN_TOUCH stays down, i.e. 6 or
// more fingers.
const FakeFingerOverflow = -1

// FakeFingerCount returns the fake-finger-derived contact count (1-5), or
// FakeFingerOverflow once the count has gone beyond five. Warns through
// onWarn if more than one BTN_TOOL_* bit is set at once,
// which the kernel should never produce.
func (m *Model) FakeFingerCount() int {
	toolBits := m.fakeTouches &^ (fakeFingerOverflow | 0x1)
	if bits.OnesCount32(toolBits) > 1 {
		m.warn("invalid fake finger state %#x", m.fakeTouches)
	}

	if m.fakeTouches&fakeFingerOverflow != 0 {
		return FakeFingerOverflow
	}
	shifted := m.fakeTouches >> 1
	if shifted == 0 {
		return 0
	}
	return bits.TrailingZeros32(shifted) + 1
}

// FakeFingerIsTouching reports whether BTN_TOUCH's bit is set.
func (m *Model) FakeFingerIsTouching() bool {
	return m.fakeTouches&0x1 != 0
}
