package dispatch

import "github.com/sizeofvoid/libopeninput-sub000/event"

// Device tags used to discover arbitration pairing candidates without a
// concrete device-kind switch: paired keyboards and
// trackpoints are found by tag, not by type assertion.
const (
	TagInternalKeyboard = "internal-keyboard"
	TagTrackpoint       = "trackpoint"
	TagExternalMouse    = "external-mouse"
	TagLidSwitch        = "lid-switch"
	TagTabletMode       = "tablet-mode"
)

// nonModifierKeyBelowF1 reports whether code is a key whose press should
// count toward disable-while-typing — modifier-only presses never arm
// DWT.
func nonModifierKeyBelowF1(code uint16) bool {
	const keyF1 = 59
	if isModifierKey(code) {
		return false
	}
	return code < keyF1
}

func isModifierKey(code uint16) bool {
	switch code {
	case 29, 97: // KEY_LEFTCTRL, KEY_RIGHTCTRL
		return true
	case 125, 126: // KEY_LEFTMETA, KEY_RIGHTMETA
		return true
	case 42, 54: // KEY_LEFTSHIFT, KEY_RIGHTSHIFT
		return true
	case 56, 100: // KEY_LEFTALT, KEY_RIGHTALT
		return true
	default:
		return false
	}
}

// Arbiter wires cross-device notifications between the devices on a
// seat: a trackpoint's relative-motion burst suspends touchpad pointer
// motion for a window, a keyboard's typing activity arms
// disable-while-typing, an external mouse (in disabled-on-external-mouse
// mode) suspends the touchpad outright, and lid/tablet-mode switches
// force suspension while "on". It holds no device state of
// its own beyond what's needed to recognize these triggers — the actual
// suspension bookkeeping lives on each TouchpadDispatch.
type Arbiter struct {
	touchpads   []*TouchpadDispatch
	trackpoints map[int]*trackpointActivity
	lastKeyTime uint64
}

type trackpointActivity struct {
	eventsInWindow int
	windowStart    uint64
}

const trackpointBurstWindowUS = 40_000
const trackpointBurstCount = 3

// NewArbiter returns an empty Arbiter for one seat.
func NewArbiter() *Arbiter {
	return &Arbiter{trackpoints: make(map[int]*trackpointActivity)}
}

// RegisterTouchpad adds a touchpad to receive arbitration notifications.
func (a *Arbiter) RegisterTouchpad(td *TouchpadDispatch) {
	a.touchpads = append(a.touchpads, td)
}

// NotifyTrackpointMotion is called for every REL_X/REL_Y event from a
// device tagged trackpoint. Three events within a 40ms window puts every
// registered touchpad into "trackpoint active" for 300ms, auto-extended
// per event while the burst continues.
func (a *Arbiter) NotifyTrackpointMotion(deviceID int, time uint64) {
	act, ok := a.trackpoints[deviceID]
	if !ok {
		act = &trackpointActivity{}
		a.trackpoints[deviceID] = act
	}
	if act.windowStart == 0 || time-act.windowStart > trackpointBurstWindowUS {
		act.windowStart = time
		act.eventsInWindow = 0
	}
	act.eventsInWindow++
	if act.eventsInWindow >= trackpointBurstCount {
		for _, td := range a.touchpads {
			td.NotifyTrackpointActivity(time)
		}
	}
}

// NotifyKeyboardKey is called for every keyboard key-down from a device
// tagged internal-keyboard (or paired by vid/pid for external combos).
// The first key arms DWT for 200ms; a follow-up key within the sustained
// window counts as continued typing and extends it to 500ms.
func (a *Arbiter) NotifyKeyboardKey(code uint16, time uint64) {
	if !nonModifierKeyBelowF1(code) {
		return
	}
	sustained := a.lastKeyTime != 0 && time-a.lastKeyTime <= dwtSustainedUS
	a.lastKeyTime = time
	for _, td := range a.touchpads {
		td.NotifyKeyboardActivity(time, sustained)
	}
}

// NotifyExternalMouse toggles every registered touchpad's arbitration
// suspension when an external mouse is attached or removed.
func (a *Arbiter) NotifyExternalMouse(present bool) {
	for _, td := range a.touchpads {
		td.ToggleTouch(!present)
	}
}

// NotifySwitch forces suspension (on == true) or resumes (on == false)
// every registered touchpad for a lid or tablet-mode switch in the ON
// state.
func (a *Arbiter) NotifySwitch(kind event.SwitchKind, on bool, time uint64) {
	for _, td := range a.touchpads {
		if on {
			td.Suspend(time)
		} else {
			td.Resume(time)
		}
	}
}
