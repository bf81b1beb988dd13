// Package timer implements a centralized priority-queue timer wheel keyed
// on device-id + slot so cancel-on-destroy is cheap and correct. Timers
// registered here (in this module, the fallback dispatch's debounce
// timer) need no goroutine/ticker of their own, matching the
// single-threaded cooperative event loop the rest of this module
// assumes; the touchpad's DWT, trackpoint-activity and palm-edge windows
// are timestamp comparisons and are not registered here.
package timer

import "container/heap"

// Key identifies a timer's owner, so Cancel can be scoped to "every timer
// owned by this device/slot" without the caller tracking individual
// handles.
type Key struct {
	DeviceID int
	Slot     int // -1 for device-level timers not tied to a touch slot
	Name     string
}

// Callback receives the monotonic time (µs) the timer actually fired at —
// which may be later than ExpiresUS if the event loop was busy. Callbacks
// must be idempotent.
type Callback func(nowUS uint64)

type entry struct {
	key       Key
	expiresUS uint64
	cb        Callback
	index     int
	cancelled bool
}

type entryHeap []*entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].expiresUS < h[j].expiresUS }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Wheel is a min-heap timer queue. It is not safe for concurrent use from
// multiple goroutines — callers drive it from a single-threaded event loop.
type Wheel struct {
	heap    entryHeap
	byKey   map[Key]*entry
}

// New returns an empty Wheel.
func New() *Wheel {
	return &Wheel{byKey: make(map[Key]*entry)}
}

// Arm schedules cb to fire at expiresUS, replacing any existing timer for
// the same key (re-arming, e.g. "auto-extend trackpoint activity on every
// event").
func (w *Wheel) Arm(key Key, expiresUS uint64, cb Callback) {
	if existing, ok := w.byKey[key]; ok {
		existing.cancelled = true
	}
	e := &entry{key: key, expiresUS: expiresUS, cb: cb}
	w.byKey[key] = e
	heap.Push(&w.heap, e)
}

// Cancel removes the timer for key, if any. Safe to call on a key with no
// armed timer.
func (w *Wheel) Cancel(key Key) {
	if e, ok := w.byKey[key]; ok {
		e.cancelled = true
		delete(w.byKey, key)
	}
}

// CancelDevice cancels every timer owned by deviceID — used on device
// removal so no stale callback fires against freed device state.
func (w *Wheel) CancelDevice(deviceID int) {
	for k, e := range w.byKey {
		if k.DeviceID == deviceID {
			e.cancelled = true
			delete(w.byKey, k)
		}
	}
}

// NextExpiry reports the next timer's fire time and whether one exists,
// used by the event loop to size its poll timeout.
func (w *Wheel) NextExpiry() (uint64, bool) {
	for w.heap.Len() > 0 && w.heap[0].cancelled {
		heap.Pop(&w.heap)
	}
	if w.heap.Len() == 0 {
		return 0, false
	}
	return w.heap[0].expiresUS, true
}

// Expire fires every timer whose expiry is <= now, in expiry order. It is
// the event loop's job to call this between poll iterations.
func (w *Wheel) Expire(now uint64) {
	for w.heap.Len() > 0 {
		top := w.heap[0]
		if top.cancelled {
			heap.Pop(&w.heap)
			continue
		}
		if top.expiresUS > now {
			break
		}
		heap.Pop(&w.heap)
		if w.byKey[top.key] == top {
			delete(w.byKey, top.key)
		}
		top.cb(now)
	}
}
