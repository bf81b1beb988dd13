// Package event defines the typed application-facing event stream emitted
// by the dispatch state machines, plus the small set of device/seat
// descriptors those events reference. Nothing in this package talks to the
// kernel: it is the output-side boundary between dispatch and whatever
// consumes the resulting pointer/touch/key stream.
package event

import "fmt"

// Kind identifies the payload carried by an Event.
type Kind int

const (
	KindDeviceAdded Kind = iota
	KindDeviceRemoved
	KindKeyboardKey
	KindPointerMotion
	KindPointerMotionAbsolute
	KindPointerButton
	KindPointerAxis
	KindTouchDown
	KindTouchMotion
	KindTouchUp
	KindTouchCancel
	KindTouchFrame
	KindSwitchToggle
)

func (k Kind) String() string {
	switch k {
	case KindDeviceAdded:
		return "device-added"
	case KindDeviceRemoved:
		return "device-removed"
	case KindKeyboardKey:
		return "keyboard-key"
	case KindPointerMotion:
		return "pointer-motion"
	case KindPointerMotionAbsolute:
		return "pointer-motion-absolute"
	case KindPointerButton:
		return "pointer-button"
	case KindPointerAxis:
		return "pointer-axis"
	case KindTouchDown:
		return "touch-down"
	case KindTouchMotion:
		return "touch-motion"
	case KindTouchUp:
		return "touch-up"
	case KindTouchCancel:
		return "touch-cancel"
	case KindTouchFrame:
		return "touch-frame"
	case KindSwitchToggle:
		return "switch-toggle"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// KeyState is the pressed/released state of a key or button.
type KeyState int

const (
	KeyReleased KeyState = iota
	KeyPressed
)

// AxisSource identifies where a pointer_axis event's ticks came from.
type AxisSource int

const (
	AxisSourceWheel AxisSource = iota
	AxisSourceWheelTilt
	AxisSourceFinger
	AxisSourceContinuous
)

// Axis is a bitmask of the scroll axes present in a pointer_axis event.
type Axis uint8

const (
	AxisVertical Axis = 1 << iota
	AxisHorizontal
)

// SwitchKind distinguishes the lid switch from tablet-mode.
type SwitchKind int

const (
	SwitchLid SwitchKind = iota
	SwitchTabletMode
)

// SwitchState is the on/off state of a SwitchKind.
type SwitchState int

const (
	SwitchOff SwitchState = iota
	SwitchOn
)

// FloatCoords is a pair of device-space or normalized-space floats,
// depending on context.
type FloatCoords struct {
	X, Y float64
}

// Point is a pair of calibrated (already-transformed) coordinates.
type Point struct {
	X, Y float64
}

// Capability is a bit in a device's capability set, reported on
// device_added.
type Capability uint32

const (
	CapPointer Capability = 1 << iota
	CapKeyboard
	CapTouch
	CapTabletPad
	CapTabletTool
	CapSwitch
	CapGesture
)

// Event is the single typed envelope delivered to the application.
// Exactly one of the payload field groups is meaningful, selected by
// Kind — a tagged union rather than a raw (type, code, value) triple.
type Event struct {
	Kind       Kind
	Time       uint64 // monotonic microseconds
	DeviceID   int
	Seat       string

	// device_added / device_removed
	Capabilities Capability

	// keyboard_key
	KeyCode  uint16
	KeyState KeyState

	// pointer_motion
	Accelerated   FloatCoords
	Unaccelerated FloatCoords

	// pointer_motion_absolute
	AbsolutePoint Point

	// pointer_button
	Button      uint16
	ButtonState KeyState
	SeatButtonCount int

	// pointer_axis
	AxisBitmap Axis
	AxisSource AxisSource
	Degrees    FloatCoords
	Discrete   FloatCoords

	// touch_down / touch_motion / touch_up / touch_cancel
	Slot     int
	SeatSlot int
	Point    Point

	// switch_toggle
	Switch      SwitchKind
	SwitchState SwitchState
}

// Sink receives the semantic event stream. Dispatch implementations call
// Emit; nothing in the core blocks on it, matching the single-threaded
// cooperative event loop model the rest of this module assumes.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Logger is the minimal structured-logging surface the core reports
// through. Concrete backends implement it; library packages depend only
// on this interface, never on a logging framework directly.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// NopLogger discards everything. Useful as a zero-value default so
// library constructors never need a nil check before logging.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Warnf(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}
