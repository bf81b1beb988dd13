package dispatch

import (
	"github.com/sizeofvoid/libopeninput-sub000/accel"
	"github.com/sizeofvoid/libopeninput-sub000/debounce"
	"github.com/sizeofvoid/libopeninput-sub000/devconfig"
	"github.com/sizeofvoid/libopeninput-sub000/event"
	"github.com/sizeofvoid/libopeninput-sub000/lid"
	"github.com/sizeofvoid/libopeninput-sub000/mtslot"
	"github.com/sizeofvoid/libopeninput-sub000/ratelimit"
	"github.com/sizeofvoid/libopeninput-sub000/timer"
)

// pendingKind is the fallback dispatch's frame accumulator: a single-value
// Option<Event> rather than a queue, so a second pending event of a
// different kind must flush the first before replacing it (the kernel
// only ever reports one axis class changing per real frame, but nothing
// stops a buggy driver from interleaving REL and ABS before SYN_REPORT).
type pendingKind int

const (
	pendingNone pendingKind = iota
	pendingRelMotion
	pendingAbsMotion
)

type pendingButton struct {
	code    uint16
	isPress bool
	time    uint64
}

type mtTouchState struct {
	seatSlot  int
	wasActive bool
}

// FallbackOptions configures a FallbackDispatch at construction time.
type FallbackOptions struct {
	IsPointer bool
	NumMTSlots int // 0 disables multi-touch routing

	WheelClickAngleDeg float64
	WheelIsTilt        bool

	Rotation [4]float64 // {a, b, c, d}; zero value is treated as identity

	AccelProfile accel.Profile // nil disables acceleration (unaccelerated passthrough)
	DPI          int

	Calibration devconfig.Matrix

	LidReliability   lid.Reliability
	TrackedSwitches  bool // whether this device owns a lid/tablet-mode switch
	WriteLidSwitch   lid.WriteSwitch
}

// FallbackDispatch implements the non-touchpad event pipeline:
// relative/absolute pointer motion, keyboard/button classification with
// debounce, lid/tablet-mode switches, and the neutral-state guarantee on
// suspend.
type FallbackDispatch struct {
	NoopHooks

	dev *Device

	isPointer bool

	mt      bool
	mtModel *mtslot.Model
	touches []mtTouchState

	wheelClickAngleDeg float64
	wheelIsTilt        bool

	rotation [4]float64

	velocity *accel.Filter
	dpi      int

	calibration devconfig.Matrix

	lidDispatch    *lid.Dispatch
	tracksSwitches bool
	tabletModeOn   bool

	pending  pendingKind
	relDelta event.FloatCoords
	absPoint event.Point

	singleTouchDown bool
	singleSeatSlot  int

	pendingButtons []pendingButton

	debounceDeadline uint64

	relWarn      *ratelimit.Limiter
	debounceWarn *ratelimit.Limiter

	suspended bool
}

// NewFallbackDispatch wires dev to a fallback pipeline per opts.
func NewFallbackDispatch(dev *Device, opts FallbackOptions) *FallbackDispatch {
	rotation := opts.Rotation
	if rotation == ([4]float64{}) {
		rotation = [4]float64{1, 0, 0, 1}
	}
	cal := opts.Calibration
	if cal == (devconfig.Matrix{}) {
		cal = devconfig.Identity()
	}

	f := &FallbackDispatch{
		dev:                dev,
		isPointer:          opts.IsPointer,
		wheelClickAngleDeg: opts.WheelClickAngleDeg,
		wheelIsTilt:        opts.WheelIsTilt,
		rotation:           rotation,
		dpi:                opts.DPI,
		calibration:        cal,
		tracksSwitches:     opts.TrackedSwitches,
		singleSeatSlot:     -1,
		relWarn:            ratelimit.New(5, 1_000_000),
		debounceWarn:       ratelimit.New(1, 60_000_000),
	}
	if opts.AccelProfile != nil {
		f.velocity = accel.NewFilter(opts.AccelProfile, opts.DPI, false)
	}
	if opts.NumMTSlots > 0 {
		f.mt = true
		f.mtModel = mtslot.New(opts.NumMTSlots, func(format string, args ...any) { dev.Log.Warnf(format, args...) })
		f.touches = make([]mtTouchState, opts.NumMTSlots)
		for i := range f.touches {
			f.touches[i].seatSlot = -1
		}
	}
	if opts.TrackedSwitches {
		f.lidDispatch = lid.New(opts.LidReliability, opts.WriteLidSwitch)
	}
	dev.Dispatch = f
	return f
}

func (f *FallbackDispatch) transform(x, y float64) event.Point {
	cx, cy := f.calibration.Apply(x, y)
	return event.Point{X: cx, Y: cy}
}

// Process handles one decoded evdev tuple.
func (f *FallbackDispatch) Process(t, code uint16, value int32, time uint64) {
	if f.suspended {
		return
	}
	switch t {
	case EvRel:
		f.handleRel(code, value, time)
	case EvAbs:
		f.handleAbs(code, value, time)
	case EvKey:
		f.handleKey(code, value, time)
	case EvSw:
		f.handleSwitch(code, value, time)
	case EvSyn:
		if code == SynReport {
			f.flush(time)
		}
	}
}

func (f *FallbackDispatch) handleRel(code uint16, value int32, time uint64) {
	switch code {
	case RelWheel, RelHWheel:
		f.flushMotion(time)
		f.emitWheel(code, value, time)
	case RelX, RelY:
		if !f.isPointer {
			if f.relWarn.Check(time) != ratelimit.Threshold {
				f.dev.Log.Warnf("REL_X/Y from non-pointer device %s ignored", f.dev.Name)
			}
			return
		}
		if f.pending != pendingNone && f.pending != pendingRelMotion {
			f.flushMotion(time)
		}
		if code == RelX {
			f.relDelta.X += float64(value)
		} else {
			f.relDelta.Y += float64(value)
		}
		f.pending = pendingRelMotion
	}
}

func (f *FallbackDispatch) emitWheel(code uint16, value int32, time uint64) {
	source := event.AxisSourceWheel
	if f.wheelIsTilt {
		source = event.AxisSourceWheelTilt
	}
	var axisBit event.Axis
	var degrees, discrete event.FloatCoords
	switch code {
	case RelWheel:
		axisBit = event.AxisVertical
		degrees.Y = -float64(value) * f.wheelClickAngleDeg
		discrete.Y = -float64(value)
	case RelHWheel:
		axisBit = event.AxisHorizontal
		degrees.X = float64(value) * f.wheelClickAngleDeg
		discrete.X = float64(value)
	}
	f.dev.emit(event.Event{
		Kind: event.KindPointerAxis, Time: time,
		AxisBitmap: axisBit, AxisSource: source,
		Degrees: degrees, Discrete: discrete,
	})
}

func (f *FallbackDispatch) handleAbs(code uint16, value int32, time uint64) {
	if f.mt {
		f.handleMTAbs(code, value, time)
		return
	}
	switch code {
	case AbsX:
		f.absPoint.X = float64(value)
	case AbsY:
		f.absPoint.Y = float64(value)
	default:
		return
	}
	if f.pending != pendingNone && f.pending != pendingAbsMotion {
		f.flushMotion(time)
	}
	f.pending = pendingAbsMotion
}

func (f *FallbackDispatch) handleMTAbs(code uint16, value int32, _ uint64) {
	switch code {
	case AbsMTSlot:
		f.mtModel.SetActiveSlot(value)
	case AbsMTTrackingID:
		f.mtModel.SetTrackingID(value)
	case AbsMTPositionX:
		s := f.mtModel.Slot(f.mtModel.ActiveSlot())
		s.Point.X = value
		s.Dirty = true
	case AbsMTPositionY:
		s := f.mtModel.Slot(f.mtModel.ActiveSlot())
		s.Point.Y = value
		s.Dirty = true
	case AbsMTPressure:
		f.mtModel.SetPressure(value)
	case AbsMTTouchMajor, AbsMTTouchMinor:
		// size data isn't used outside the touchpad pipeline; fallback
		// only needs position + tracking-id transitions.
	}
}

func (f *FallbackDispatch) handleKey(code uint16, value int32, time uint64) {
	if value == 2 {
		return // kernel key-repeat, not forwarded
	}
	isPress := value == 1

	if code == BtnTouch {
		// MT devices report the contact through tracking ids; BTN_TOUCH
		// must never reach the button classifier on either path.
		if !f.mt {
			f.handleSingleTouchButton(isPress, time)
		}
		return
	}

	switch classifyKey(code) {
	case keyTypeNone:
		return
	case keyTypeKey:
		already := f.dev.pressedKeys[code]
		if isPress == already {
			return
		}
		if isPress {
			f.dev.pressedKeys[code] = true
		} else {
			delete(f.dev.pressedKeys, code)
		}
		f.emitKey(code, isPress, time)
	case keyTypeButton:
		already := f.dev.pressedKeys[code]
		if isPress == already {
			return
		}
		if isPress {
			f.dev.pressedKeys[code] = true
		} else {
			delete(f.dev.pressedKeys, code)
		}
		f.handleButton(code, isPress, time)
	}
}

func (f *FallbackDispatch) emitKey(code uint16, isPress bool, time uint64) {
	state := event.KeyReleased
	if isPress {
		state = event.KeyPressed
	}
	f.dev.emit(event.Event{Kind: event.KindKeyboardKey, Time: time, KeyCode: code, KeyState: state})
}

func (f *FallbackDispatch) armDebounceTimer(deadlineUS uint64) {
	key := timer.Key{DeviceID: f.dev.ID, Slot: -1, Name: "debounce"}
	f.debounceDeadline = deadlineUS
	if deadlineUS == 0 {
		f.dev.timers.Cancel(key)
		return
	}
	f.dev.timers.Arm(key, deadlineUS, func(now uint64) {
		f.debounceDeadline = 0
		if held := f.dev.debouncer.Expire(); held != nil {
			f.emitButtonNow(held.Code, false, held.TimeUS)
		}
	})
}

func (f *FallbackDispatch) handleButton(code uint16, isPress bool, time uint64) {
	// The held release should have been flushed by the timer already;
	// seeing another event past the deadline means the client isn't
	// dispatching fast enough.
	if f.debounceDeadline != 0 && time > f.debounceDeadline {
		if f.debounceWarn.Check(time) != ratelimit.Threshold {
			f.dev.Log.Warnf("%s: debouncing still active past timeout", f.dev.Name)
		}
	}
	if isPress {
		action, flush := f.dev.debouncer.Press(code, time, f.armDebounceTimer)
		if flush != nil {
			f.emitButtonNow(flush.Code, false, flush.TimeUS)
		}
		if action == debounce.ActionEmit {
			f.queueButton(code, true, time)
		}
		return
	}
	action := f.dev.debouncer.Release(code, time, f.armDebounceTimer)
	if action == debounce.ActionEmit {
		f.queueButton(code, false, time)
	}
}

// queueButton defers a pointer_button emission to the next flush so axis
// events already pending from the same frame precede it.
func (f *FallbackDispatch) queueButton(code uint16, isPress bool, time uint64) {
	f.pendingButtons = append(f.pendingButtons, pendingButton{code: code, isPress: isPress, time: time})
}

func (f *FallbackDispatch) emitButtonNow(code uint16, isPress bool, time uint64) {
	f.dev.EmitButtonNow(code, isPress, time)
}

func (f *FallbackDispatch) handleSingleTouchButton(isPress bool, time uint64) {
	if isPress && !f.singleTouchDown {
		f.singleTouchDown = true
		seatSlot, ok := f.dev.Seat.Slots.Alloc()
		if !ok {
			f.dev.Log.Warnf("seat slot exhausted on %s", f.dev.Name)
			return
		}
		f.singleSeatSlot = seatSlot
		f.dev.emit(event.Event{Kind: event.KindTouchDown, Time: time, Slot: 0, SeatSlot: seatSlot, Point: f.transform(f.absPoint.X, f.absPoint.Y)})
		f.dev.emit(event.Event{Kind: event.KindTouchFrame, Time: time})
	} else if !isPress && f.singleTouchDown {
		f.singleTouchDown = false
		f.dev.Seat.Slots.Release(f.singleSeatSlot)
		f.dev.emit(event.Event{Kind: event.KindTouchUp, Time: time, Slot: 0, SeatSlot: f.singleSeatSlot})
		f.dev.emit(event.Event{Kind: event.KindTouchFrame, Time: time})
		f.singleSeatSlot = -1
	}
}

func (f *FallbackDispatch) handleSwitch(code uint16, value int32, time uint64) {
	if !f.tracksSwitches {
		return
	}
	switch code {
	case SwLid:
		if toggle, changed := f.lidDispatch.ProcessSwitch(time, value != 0); changed {
			f.emitSwitch(event.SwitchLid, toggle.Closed, time)
		}
	case SwTabletMode:
		on := value != 0
		if on == f.tabletModeOn {
			return
		}
		f.tabletModeOn = on
		f.emitSwitch(event.SwitchTabletMode, on, time)
	}
}

func (f *FallbackDispatch) emitSwitch(kind event.SwitchKind, on bool, time uint64) {
	state := event.SwitchOff
	if on {
		state = event.SwitchOn
	}
	f.dev.emit(event.Event{Kind: event.KindSwitchToggle, Time: time, Switch: kind, SwitchState: state})
}

// SyncInitialLidState resolves the lid's starting value, per the
// unknown-reliability-always-open rule.
func (f *FallbackDispatch) SyncInitialLidState(time uint64, kernelReportsClosed bool) {
	if !f.tracksSwitches {
		return
	}
	if toggle, changed := f.lidDispatch.SyncInitialState(time, kernelReportsClosed); changed {
		f.emitSwitch(event.SwitchLid, toggle.Closed, time)
	}
}

// KeyboardActivity notifies a paired lid switch of a keyboard event,
// forcing the lid open if it is currently (possibly erroneously) closed
//.
func (f *FallbackDispatch) KeyboardActivity(time uint64) {
	if !f.tracksSwitches {
		return
	}
	if toggle, changed := f.lidDispatch.KeyboardActivity(time); changed {
		f.emitSwitch(event.SwitchLid, toggle.Closed, time)
	}
}

// PairKeyboard registers a paired internal keyboard device id with this
// lid switch.
func (f *FallbackDispatch) PairKeyboard(deviceID int) {
	if f.tracksSwitches {
		f.lidDispatch.PairKeyboard(deviceID)
	}
}

func (f *FallbackDispatch) applyRotation(d event.FloatCoords) event.FloatCoords {
	a, b, c, dd := f.rotation[0], f.rotation[1], f.rotation[2], f.rotation[3]
	return event.FloatCoords{X: a*d.X + b*d.Y, Y: c*d.X + dd*d.Y}
}

func (f *FallbackDispatch) flushMotion(time uint64) {
	switch f.pending {
	case pendingRelMotion:
		f.emitRelMotion(time)
	case pendingAbsMotion:
		f.emitAbsMotion(time)
	}
	f.pending = pendingNone
	f.relDelta = event.FloatCoords{}
}

func (f *FallbackDispatch) emitRelMotion(time uint64) {
	rotated := f.applyRotation(f.relDelta)
	accelerated := rotated
	if f.velocity != nil {
		out := f.velocity.Filter(accel.Delta{X: rotated.X, Y: rotated.Y}, time)
		accelerated = event.FloatCoords{X: out.X, Y: out.Y}
	}
	f.dev.emit(event.Event{Kind: event.KindPointerMotion, Time: time, Accelerated: accelerated, Unaccelerated: rotated})
}

func (f *FallbackDispatch) emitAbsMotion(time uint64) {
	f.dev.emit(event.Event{Kind: event.KindPointerMotionAbsolute, Time: time, AbsolutePoint: f.transform(f.absPoint.X, f.absPoint.Y)})
}

func (f *FallbackDispatch) flushButtons() {
	for _, b := range f.pendingButtons {
		f.emitButtonNow(b.code, b.isPress, b.time)
	}
	f.pendingButtons = f.pendingButtons[:0]
}

func (f *FallbackDispatch) flushMT(time uint64) bool {
	if !f.mt {
		return false
	}
	touchEmitted := false
	for i := 0; i < f.mtModel.NumSlots(); i++ {
		s := f.mtModel.Slot(i)
		st := &f.touches[i]
		active := s.Active()
		switch {
		case active && !st.wasActive:
			seatSlot, ok := f.dev.Seat.Slots.Alloc()
			if !ok {
				f.dev.Log.Warnf("seat slot exhausted on %s", f.dev.Name)
				break
			}
			st.seatSlot = seatSlot
			f.dev.emit(event.Event{Kind: event.KindTouchDown, Time: time, Slot: i, SeatSlot: seatSlot, Point: f.transform(float64(s.Point.X), float64(s.Point.Y))})
			touchEmitted = true
		case active && st.wasActive && s.Dirty:
			f.dev.emit(event.Event{Kind: event.KindTouchMotion, Time: time, Slot: i, SeatSlot: st.seatSlot, Point: f.transform(float64(s.Point.X), float64(s.Point.Y))})
			touchEmitted = true
		case !active && st.wasActive:
			f.dev.Seat.Slots.Release(st.seatSlot)
			f.dev.emit(event.Event{Kind: event.KindTouchUp, Time: time, Slot: i, SeatSlot: st.seatSlot})
			st.seatSlot = -1
			touchEmitted = true
		}
		st.wasActive = active
	}
	f.mtModel.ClearDirty()
	return touchEmitted
}

// flush is SYN_REPORT: emit at most one event per axis class, in order
// motion, then buttons, then touch (+ frame), so axis motion always
// precedes button/touch events from the same frame.
func (f *FallbackDispatch) flush(time uint64) {
	f.flushMotion(time)
	f.flushButtons()
	if f.flushMT(time) {
		f.dev.emit(event.Event{Kind: event.KindTouchFrame, Time: time})
	}
}

// Suspend releases every pressed key/button and down touch synthetically,
// zeroing the hardware bitmask, guaranteeing no dangling state on
// reattachment.
func (f *FallbackDispatch) Suspend(time uint64) {
	if f.suspended {
		return
	}
	f.suspended = true
	f.dev.ReleaseAllKeys(time, func(code uint16) {
		switch classifyKey(code) {
		case keyTypeKey:
			f.emitKey(code, false, time)
		case keyTypeButton:
			f.emitButtonNow(code, false, time)
		}
	})
	if f.singleTouchDown {
		f.singleTouchDown = false
		f.dev.Seat.Slots.Release(f.singleSeatSlot)
		f.dev.emit(event.Event{Kind: event.KindTouchUp, Time: time, Slot: 0, SeatSlot: f.singleSeatSlot})
		f.dev.emit(event.Event{Kind: event.KindTouchFrame, Time: time})
		f.singleSeatSlot = -1
	}
	if f.mt {
		for i := range f.touches {
			if f.touches[i].wasActive {
				f.dev.Seat.Slots.Release(f.touches[i].seatSlot)
				f.dev.emit(event.Event{Kind: event.KindTouchUp, Time: time, Slot: i, SeatSlot: f.touches[i].seatSlot})
				f.touches[i].wasActive = false
				f.touches[i].seatSlot = -1
			}
		}
		f.dev.emit(event.Event{Kind: event.KindTouchFrame, Time: time})
	}
	if f.dev.timers != nil {
		f.dev.timers.CancelDevice(f.dev.ID)
	}
}

// Resume clears the suspended flag; the next kernel state resync happens
// through ordinary Process calls.
func (f *FallbackDispatch) Resume(uint64) { f.suspended = false }

func (f *FallbackDispatch) Remove() {
	if f.dev.timers != nil {
		f.dev.timers.CancelDevice(f.dev.ID)
	}
}

func (f *FallbackDispatch) Destroy() {}

func (f *FallbackDispatch) GetSwitchState(kind event.SwitchKind) (event.SwitchState, bool) {
	if !f.tracksSwitches {
		return 0, false
	}
	switch kind {
	case event.SwitchLid:
		if f.lidDispatch.IsClosed() {
			return event.SwitchOn, true
		}
		return event.SwitchOff, true
	case event.SwitchTabletMode:
		if f.tabletModeOn {
			return event.SwitchOn, true
		}
		return event.SwitchOff, true
	}
	return 0, false
}
