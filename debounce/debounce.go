// Package debounce implements a per-device button debounce state
// machine, filtering mechanical switch chatter with a 12ms bounce
// window. State is per device, one button at a time. Once a bounce has
// been observed, Learned reports true for the rest of the device
// session; a press of a different button hands the machine to that
// button, which starts again from the initial, undebounced state.
package debounce

// BounceIntervalUS is the 12ms bounce window: longer than human
// double-click intent would tolerate, shorter than typical bounce
// chatter.
const BounceIntervalUS = 12_000

type state int

const (
	stateInit state = iota
	stateNeeded
	stateOn
	stateActive
)

// Action tells the caller what to do with the current press/release event.
type Action int

const (
	// ActionEmit means deliver the event as given.
	ActionEmit Action = iota
	// ActionDrop means discard the event entirely.
	ActionDrop
	// ActionHold means hold the release back. A release held on the
	// ON→ACTIVE transition is returned from Expire once the bounce window
	// elapses (or earlier, flushed, see EmitHeld below); a release held
	// in the NEEDED state pairs with a dropped press and is never emitted.
	ActionHold
)

// EmitHeld is a held-back release that must now be delivered, carrying its
// original timestamp.
type EmitHeld struct {
	Code   uint16
	TimeUS uint64
}

// ArmTimer is supplied by the caller so Debouncer doesn't depend on the
// timer package directly; called with the deadline (µs) to arm the
// ACTIVE→ON timer, or 0 to cancel it.
type ArmTimer func(deadlineUS uint64)

// Debouncer tracks state for a single button on a single device — only
// one button is debounced at a time.
type Debouncer struct {
	st              state
	haveButton      bool
	activeButton    uint16
	lastReleaseTime uint64
	heldRelease     *EmitHeld
	learned         bool // set by the first observed bounce, never cleared for this session
}

// New returns a Debouncer in its initial, not-yet-learned state.
func New() *Debouncer {
	return &Debouncer{st: stateInit}
}

func (d *Debouncer) resetTo(code uint16) {
	d.st = stateInit
	d.haveButton = true
	d.activeButton = code
}

// Press processes a button press at time (µs). It returns the action to
// take for this press, plus a non-nil flush if a previously held-back
// release must be emitted immediately beforehand.
func (d *Debouncer) Press(code uint16, time uint64, armTimer ArmTimer) (Action, *EmitHeld) {
	switch d.st {
	case stateInit:
		if !d.haveButton {
			d.haveButton = true
			d.activeButton = code
			return ActionEmit, nil
		}
		if code != d.activeButton {
			return ActionEmit, nil
		}
		if time-d.lastReleaseTime < BounceIntervalUS {
			d.learned = true
			d.st = stateNeeded
			return ActionDrop, nil
		}
		return ActionEmit, nil

	case stateNeeded:
		if code != d.activeButton {
			d.resetTo(code)
			return ActionEmit, nil
		}
		return ActionDrop, nil

	case stateOn:
		if code != d.activeButton {
			d.resetTo(code)
			return ActionEmit, nil
		}
		return ActionEmit, nil

	case stateActive:
		if code != d.activeButton {
			flush := d.heldRelease
			d.heldRelease = nil
			d.resetTo(code)
			if armTimer != nil {
				armTimer(0)
			}
			return ActionEmit, flush
		}
		// Same button pressed while still bouncing: dropped.
		return ActionDrop, nil
	}
	return ActionEmit, nil
}

// Release processes a button release at time (µs). On the ON→ACTIVE
// transition it returns ActionHold after arming a timer for
// time+BounceIntervalUS via armTimer; the caller later calls Expire. An
// ActionHold from the NEEDED state arms nothing.
func (d *Debouncer) Release(code uint16, time uint64, armTimer ArmTimer) Action {
	switch d.st {
	case stateInit:
		d.lastReleaseTime = time
		return ActionEmit

	case stateNeeded:
		d.st = stateOn
		return ActionHold

	case stateOn:
		d.st = stateActive
		d.heldRelease = &EmitHeld{Code: code, TimeUS: time}
		if armTimer != nil {
			armTimer(time + BounceIntervalUS)
		}
		return ActionHold

	case stateActive:
		// A release arriving while still ACTIVE (client dispatch lag) —
		// refresh the held value, keep waiting on the original timer.
		d.heldRelease = &EmitHeld{Code: code, TimeUS: time}
		return ActionHold
	}
	return ActionEmit
}

// Expire is called when the ACTIVE-state timer fires. It returns the held
// release to emit (nil if none pending, e.g. already flushed by a
// different-button press) and transitions back to ON.
func (d *Debouncer) Expire() *EmitHeld {
	held := d.heldRelease
	d.heldRelease = nil
	if d.st == stateActive {
		d.st = stateOn
	}
	return held
}

// Learned reports whether this device session has ever observed a bounce.
func (d *Debouncer) Learned() bool { return d.learned }
