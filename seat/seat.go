// Package seat implements the per-seat slot table: a bitset of currently
// assigned touch identifiers, shared across every device on the seat,
// with lowest-bit-first allocation.
package seat

import "math/bits"

// MaxSlots bounds the seat slot table. Seat slot indices are reported to
// the application as a plain int and a single bitset word keeps
// allocation O(1); 32 concurrent contacts is far beyond any real seat.
const MaxSlots = 32

// SlotMap is the "seat->slot_map" bitmask. Bit k set means some device's
// touch currently holds seat slot k. The zero value is a valid, empty map.
type SlotMap struct {
	bits uint32
}

// Alloc picks the lowest unset bit, sets it, and returns its index. Returns
// (-1, false) if every slot is taken.
func (m *SlotMap) Alloc() (int, bool) {
	inverted := ^m.bits
	if inverted == 0 {
		return -1, false
	}
	slot := bits.TrailingZeros32(inverted)
	if slot >= MaxSlots {
		return -1, false
	}
	m.bits |= 1 << uint(slot)
	return slot, true
}

// Release clears bit k. Releasing an already-clear bit is a no-op — callers
// only ever release a slot they previously allocated, but double-release
// must not corrupt a slot some other touch has since claimed.
func (m *SlotMap) Release(slot int) {
	if slot < 0 || slot >= MaxSlots {
		return
	}
	m.bits &^= 1 << uint(slot)
}

// IsSet reports whether slot k is currently held.
func (m *SlotMap) IsSet(slot int) bool {
	if slot < 0 || slot >= MaxSlots {
		return false
	}
	return m.bits&(1<<uint(slot)) != 0
}

// Count returns popcount(slot_map), which must always equal the number of
// currently active touches across every device on the seat.
func (m *SlotMap) Count() int {
	return bits.OnesCount32(m.bits)
}

// Seat groups devices that share pointer/keyboard focus and a slot table.
// Devices hold a pointer to their Seat; the Seat itself owns nothing
// device-specific — it is the single cross-device mutable resource shared
// by every dispatch on it, held as an explicit value rather than global
// state.
type Seat struct {
	Name            string
	Slots           SlotMap
	buttonCount     map[uint16]int
}

// New creates an empty seat.
func New(name string) *Seat {
	return &Seat{Name: name, buttonCount: make(map[uint16]int)}
}

// ButtonDown increments the seat-wide press count for code and returns the
// new count, used to populate pointer_button's SeatButtonCount so a
// client can tell "first device to press this button" from "already held
// by another device".
func (s *Seat) ButtonDown(code uint16) int {
	s.buttonCount[code]++
	return s.buttonCount[code]
}

// ButtonUp decrements the seat-wide press count for code and returns the
// new count. It never goes negative; a release with no matching recorded
// press is a no-op — kernel bugs must not desynchronize seat-wide
// bookkeeping.
func (s *Seat) ButtonUp(code uint16) int {
	if s.buttonCount[code] == 0 {
		return 0
	}
	s.buttonCount[code]--
	return s.buttonCount[code]
}
