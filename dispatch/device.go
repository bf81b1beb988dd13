package dispatch

import (
	"github.com/sizeofvoid/libopeninput-sub000/debounce"
	"github.com/sizeofvoid/libopeninput-sub000/event"
	"github.com/sizeofvoid/libopeninput-sub000/seat"
	"github.com/sizeofvoid/libopeninput-sub000/timer"
)

// Interface is the fixed method table every dispatch variant implements —
// the tagged-variant in place of an inheritance hierarchy: fallback and
// touchpad devices carry distinct internal data, but both answer the same
// set of cross-device notifications a device manager delivers to every
// device on a seat (device_added/removed/suspended/resumed, post_added,
// touch arbitration, switch-state queries for pairing).
type Interface interface {
	Process(t, code uint16, value int32, time uint64)
	Suspend(time uint64)
	Resume(time uint64)
	Remove()
	Destroy()

	DeviceAdded(other *Device)
	DeviceRemoved(other *Device)
	DeviceSuspended(other *Device)
	DeviceResumed(other *Device)
	PostAdded(time uint64)
	ToggleTouch(enabled bool)
	GetSwitchState(kind event.SwitchKind) (event.SwitchState, bool)
}

// NoopHooks provides a default implementation of every Interface method a
// dispatch variant doesn't care about; concrete dispatches embed it and
// override only the hooks relevant to them.
type NoopHooks struct{}

func (NoopHooks) DeviceAdded(*Device)                                    {}
func (NoopHooks) DeviceRemoved(*Device)                                  {}
func (NoopHooks) DeviceSuspended(*Device)                                {}
func (NoopHooks) DeviceResumed(*Device)                                  {}
func (NoopHooks) PostAdded(uint64)                                       {}
func (NoopHooks) ToggleTouch(bool)                                       {}
func (NoopHooks) GetSwitchState(event.SwitchKind) (event.SwitchState, bool) { return 0, false }

// Device is the shared per-device state every dispatch variant operates
// on: identity, seat binding, the output sink, and the hardware-key
// bitmask invariant that must hold across suspend/resume.
type Device struct {
	ID   int
	Name string
	Seat *seat.Seat
	Sink event.Sink
	Log  event.Logger

	Capabilities event.Capability
	LeftHanded   bool

	Tags map[string]bool

	pressedKeys map[uint16]bool
	debouncer   *debounce.Debouncer
	timers      *timer.Wheel

	Dispatch Interface
}

// NewDevice creates a Device. timers may be shared across every device on
// a seat — the timer wheel is keyed by device id so one Wheel safely
// serves the whole seat.
func NewDevice(id int, name string, s *seat.Seat, sink event.Sink, log event.Logger, timers *timer.Wheel) *Device {
	if log == nil {
		log = event.NopLogger{}
	}
	return &Device{
		ID:          id,
		Name:        name,
		Seat:        s,
		Sink:        sink,
		Log:         log,
		Tags:        make(map[string]bool),
		pressedKeys: make(map[uint16]bool),
		debouncer:   debounce.New(),
		timers:      timers,
	}
}

func (d *Device) emit(e event.Event) {
	e.DeviceID = d.ID
	if d.Seat != nil {
		e.Seat = d.Seat.Name
	}
	if d.Sink != nil {
		d.Sink.Emit(e)
	}
}

// EmitButtonNow applies the left-handed swap (at the emit boundary, never
// stored in internal state) and the seat-wide press count before emitting
// a pointer_button event. Shared by every dispatch variant that can
// produce a physical button press.
func (d *Device) EmitButtonNow(code uint16, isPress bool, time uint64) {
	emitCode := code
	if d.LeftHanded {
		emitCode = swapLeftRight(code)
	}
	var count int
	if isPress {
		count = d.Seat.ButtonDown(emitCode)
	} else {
		count = d.Seat.ButtonUp(emitCode)
	}
	state := event.KeyReleased
	if isPress {
		state = event.KeyPressed
	}
	d.emit(event.Event{
		Kind: event.KindPointerButton, Time: time,
		Button: emitCode, ButtonState: state, SeatButtonCount: count,
	})
}

// HasTag reports whether a device-manager-assigned tag (e.g.
// "internal-keyboard", "trackpoint") is present, used by arbitration to
// find pairing candidates without a concrete device-kind switch.
func (d *Device) HasTag(tag string) bool { return d.Tags[tag] }

// KeyPressed reports whether code is currently held in the hardware-key
// bitmask.
func (d *Device) KeyPressed(code uint16) bool { return d.pressedKeys[code] }

// ReleaseAllKeys synthesizes a release for every currently pressed key and
// zeroes the bitmask — the neutral-state guarantee applied on suspend or
// removal.
func (d *Device) ReleaseAllKeys(time uint64, emit func(code uint16)) {
	for code := range d.pressedKeys {
		emit(code)
		delete(d.pressedKeys, code)
	}
}
