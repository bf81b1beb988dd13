// Package dispatch implements the per-device event state machines: the
// fallback pipeline for simple pointer/keyboard/switch devices and the
// touchpad pipeline with its palm/thumb/arbitration subsystems. Each
// dispatch turns decoded kernel tuples into frames of semantic events at
// every SYN_REPORT boundary.
package dispatch

// Wire-level evdev type and code constants. Kept local to this package
// rather than imported from golang-evdev so the core has no dependency on
// a concrete kernel-event library — only cmd/seatinputd, which does the
// actual device I/O, imports golang-evdev directly.
const (
	EvSyn = 0x00
	EvKey = 0x01
	EvRel = 0x02
	EvAbs = 0x03
	EvSw  = 0x05
)

const SynReport = 0x00

const (
	RelX      = 0x00
	RelY      = 0x01
	RelHWheel = 0x06
	RelWheel  = 0x08
)

const (
	AbsX = 0x00
	AbsY = 0x01

	AbsMTSlot        = 0x2f
	AbsMTTouchMajor  = 0x30
	AbsMTTouchMinor  = 0x31
	AbsMTToolType    = 0x37
	AbsMTPositionX   = 0x35
	AbsMTPositionY   = 0x36
	AbsMTTrackingID  = 0x39
	AbsMTPressure    = 0x3a
)

// MTToolPalm is the ABS_MT_TOOL_TYPE value the kernel reports for a
// contact it has already classified as a palm.
const MTToolPalm = 0x02

const (
	KeyEsc     = 1
	KeyMicMute = 248
)

const (
	BtnMisc    = 0x100
	BtnLeft    = 0x110
	BtnRight   = 0x111
	BtnMiddle  = 0x112

	BtnToolPen        = 0x140
	BtnToolFinger     = 0x145
	BtnToolMouse      = 0x146
	BtnToolQuintTap   = 0x148
	BtnTouch          = 0x14a
	BtnStylus         = 0x14b
	BtnStylus2        = 0x14c
	BtnToolDoubleTap  = 0x14d
	BtnToolTripleTap  = 0x14e
	BtnToolQuadTap    = 0x14f
	BtnGearUp         = 0x151
)

const (
	SwLid        = 0x00
	SwTabletMode = 0x01
)

// keyType classifies an EV_KEY code for fallback dispatch.
type keyType int

const (
	keyTypeNone keyType = iota
	keyTypeKey
	keyTypeButton
)

func isToolTypeCode(code uint16) bool {
	return code >= BtnToolPen && code <= BtnToolQuadTap && code != BtnTouch
}

func classifyKey(code uint16) keyType {
	switch {
	case isToolTypeCode(code):
		return keyTypeNone
	case code >= BtnMisc && code <= BtnGearUp:
		return keyTypeButton
	case code >= KeyEsc && code <= KeyMicMute:
		return keyTypeKey
	default:
		return keyTypeNone
	}
}

func swapLeftRight(code uint16) uint16 {
	switch code {
	case BtnLeft:
		return BtnRight
	case BtnRight:
		return BtnLeft
	default:
		return code
	}
}
