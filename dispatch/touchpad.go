package dispatch

import (
	"math"

	"github.com/sizeofvoid/libopeninput-sub000/accel"
	"github.com/sizeofvoid/libopeninput-sub000/devconfig"
	"github.com/sizeofvoid/libopeninput-sub000/event"
	"github.com/sizeofvoid/libopeninput-sub000/hysteresis"
	"github.com/sizeofvoid/libopeninput-sub000/mtslot"
	"github.com/sizeofvoid/libopeninput-sub000/velocity"
)

// touchLifecycle is the authoritative per-touch state machine:
// NONE -> HOVERING -> BEGIN -> UPDATE -> MAYBE_END -> END -> NONE
// (or back to HOVERING if the contact is still present).
type touchLifecycle int

const (
	touchNone touchLifecycle = iota
	touchHovering
	touchBegin
	touchUpdate
	touchMaybeEnd
	touchEnd
)

// DetectionMode selects which signal gates the HOVERING -> BEGIN and
// UPDATE -> MAYBE_END transitions. Exactly one is active per
// device.
type DetectionMode int

const (
	DetectFakeFinger DetectionMode = iota
	DetectPressure
	DetectSize
)

// touch is one MT slot's higher-level state layered over mtslot.Slot's
// raw position/pressure/size bookkeeping.
type touch struct {
	state    touchLifecycle
	seatSlot int

	point     event.Point // calibrated, current frame
	prevPoint event.Point // calibrated, previous frame this touch moved

	palm           palmState
	palmEnteredAt  uint64
	palmEdgeSide   edgeSide
	palmEnterPoint mtslot.Point

	thumb thumbState

	pinned       bool
	pinnedCenter event.Point

	beginAt             uint64
	lastMotionTime      uint64
	speedExceededFrames int // consecutive frames over the thumb-while-moving speed threshold
}

func (t *touch) excludedFromMotion() bool {
	return t.palm != palmNone || t.thumb == thumbYes || t.pinned
}

// TouchpadOptions configures a TouchpadDispatch.
type TouchpadOptions struct {
	NumSlots int

	WidthUnits, HeightUnits            float64 // axis max, device units
	ResolutionXPerMM, ResolutionYPerMM float64
	FuzzX, FuzzY                       int32

	IsClickpad bool

	Detection                 DetectionMode
	PressureHigh, PressureLow int32
	SizeHigh, SizeLow         int32

	PalmPressureThreshold int32
	PalmSizeThreshold     int32

	ThumbPressureThreshold    int32
	ThumbEnabled              bool
	ThumbWhileMovingAlgorithm bool // true: also apply the two-finger-descent speed rule; false: pressure/size and lingering rules only

	DWTEnabled bool

	AccelProfile accel.Profile
	DPI          int

	Calibration devconfig.Matrix

	SendEventsMode devconfig.SendEventsMode
}

const (
	jumpRejectThresholdMM = 20.0
	wobbleWindowUS        = 40_000
	edgeWidthFraction     = 0.08
	edgeHeightFraction    = 0.05
	dwtInitialUS          = 200_000
	dwtSustainedUS        = 500_000
	trackpointActiveUS    = 300_000
	pinUnpinDistanceMM    = 1.5
	thumbUpperLineFrac    = 0.85
	thumbLowerLineFrac    = 0.92
	thumbLingerUS         = 300_000
)

// TouchpadDispatch implements the multi-touch touchpad pipeline:
// per-frame touch lifecycle, pressure/size-based touch detection, palm
// and thumb exclusion, jitter hysteresis, pinning during physical
// clicks, and motion output. It reuses the mtslot package shared with
// the fallback pipeline's simpler MT handling, plus the hysteresis
// package for jitter filtering.
type TouchpadDispatch struct {
	NoopHooks

	dev     *Device
	mtModel *mtslot.Model
	touches []touch

	widthUnits, heightUnits float64
	resX, resY              float64
	fuzzX, fuzzY            int32

	isClickpad bool

	detection                DetectionMode
	pressureHigh, pressureLow int32
	sizeHigh, sizeLow         int32

	palmPressureThreshold int32
	palmSizeThreshold     int32

	thumbPressureThreshold    int32
	thumbEnabled              bool
	thumbWhileMovingAlgorithm bool

	dwtEnabled bool

	velocity    *accel.Filter
	calibration devconfig.Matrix

	nfingersDown int

	dwtUntil              uint64
	trackpointActiveUntil uint64

	hysteresisEnabled bool
	xSignHistory      [3]int8
	xSignTimes        [3]uint64
	signCount         int

	sendEventsMode devconfig.SendEventsMode
	suspended      bool

	physicalButtons []pendingButton
}

// NewTouchpadDispatch wires dev to a touchpad pipeline per opts.
func NewTouchpadDispatch(dev *Device, opts TouchpadOptions) *TouchpadDispatch {
	cal := opts.Calibration
	if cal == (devconfig.Matrix{}) {
		cal = devconfig.Identity()
	}
	td := &TouchpadDispatch{
		dev:                       dev,
		widthUnits:                opts.WidthUnits,
		heightUnits:               opts.HeightUnits,
		resX:                      opts.ResolutionXPerMM,
		resY:                      opts.ResolutionYPerMM,
		fuzzX:                     opts.FuzzX,
		fuzzY:                     opts.FuzzY,
		isClickpad:                opts.IsClickpad,
		detection:                 opts.Detection,
		pressureHigh:              opts.PressureHigh,
		pressureLow:               opts.PressureLow,
		sizeHigh:                  opts.SizeHigh,
		sizeLow:                   opts.SizeLow,
		palmPressureThreshold:     opts.PalmPressureThreshold,
		palmSizeThreshold:         opts.PalmSizeThreshold,
		thumbPressureThreshold:    opts.ThumbPressureThreshold,
		thumbEnabled:              opts.ThumbEnabled && opts.HeightUnits/opts.ResolutionYPerMM >= 50,
		thumbWhileMovingAlgorithm: opts.ThumbWhileMovingAlgorithm,
		dwtEnabled:                opts.DWTEnabled,
		calibration:               cal,
		sendEventsMode:            opts.SendEventsMode,
	}
	td.mtModel = mtslot.New(opts.NumSlots, func(format string, args ...any) { dev.Log.Warnf(format, args...) })
	td.touches = make([]touch, opts.NumSlots)
	for i := range td.touches {
		td.touches[i].seatSlot = -1
	}
	if opts.AccelProfile != nil {
		td.velocity = accel.NewFilter(opts.AccelProfile, opts.DPI, false)
		// Touchpads batch several position reports into near-zero
		// inter-event intervals; without a minimum effective duration the
		// velocity estimate spikes on every batched burst.
		td.velocity.SetSmoothener(&velocity.Smoothener{ThresholdUS: 10_000, ValueUS: 10_000})
	}
	dev.Dispatch = td
	return td
}

func (td *TouchpadDispatch) transform(x, y int32) event.Point {
	cx, cy := td.calibration.Apply(float64(x), float64(y))
	return event.Point{X: cx, Y: cy}
}

func (td *TouchpadDispatch) unitsToMM(units float64, res float64) float64 {
	if res <= 0 {
		return units
	}
	return units / res
}

// Process handles one decoded evdev tuple.
func (td *TouchpadDispatch) Process(t, code uint16, value int32, time uint64) {
	if td.suspended {
		return
	}
	switch t {
	case EvAbs:
		td.handleAbs(code, value)
	case EvKey:
		td.handleKey(code, value, time)
	case EvSyn:
		if code == SynReport {
			td.handleFrame(time)
		}
	}
}

func (td *TouchpadDispatch) handleAbs(code uint16, value int32) {
	switch code {
	case AbsMTSlot:
		td.mtModel.SetActiveSlot(value)
	case AbsMTTrackingID:
		td.mtModel.SetTrackingID(value)
	case AbsMTPositionX:
		td.mtModel.SetPosition(value, td.mtModel.Slot(td.mtModel.ActiveSlot()).Point.Y)
	case AbsMTPositionY:
		td.mtModel.SetPosition(td.mtModel.Slot(td.mtModel.ActiveSlot()).Point.X, value)
	case AbsMTPressure:
		td.mtModel.SetPressure(value)
	case AbsMTTouchMajor:
		s := td.mtModel.Slot(td.mtModel.ActiveSlot())
		td.mtModel.SetSize(value, s.Minor)
	case AbsMTTouchMinor:
		s := td.mtModel.Slot(td.mtModel.ActiveSlot())
		td.mtModel.SetSize(s.Major, value)
	case AbsMTToolType:
		td.mtModel.SetToolType(value)
	}
}

func (td *TouchpadDispatch) handleKey(code uint16, value int32, time uint64) {
	isPress := value == 1
	switch code {
	case BtnTouch:
		td.mtModel.SetFakeFingerBit(mtslot.BTNTouch, isPress)
	case BtnToolFinger:
		td.mtModel.SetFakeFingerBit(mtslot.BTNToolFinger, isPress)
	case BtnToolDoubleTap:
		td.mtModel.SetFakeFingerBit(mtslot.BTNToolDoubleTap, isPress)
	case BtnToolTripleTap:
		td.mtModel.SetFakeFingerBit(mtslot.BTNToolTripleTap, isPress)
	case BtnToolQuadTap:
		td.mtModel.SetFakeFingerBit(mtslot.BTNToolQuadTap, isPress)
	case BtnToolQuintTap:
		td.mtModel.SetFakeFingerBit(mtslot.BTNToolQuintTap, isPress)
	case BtnLeft, BtnRight, BtnMiddle:
		if td.isClickpad && code == BtnLeft && isPress {
			td.pinAllTouches()
		}
		td.queuePhysicalButton(code, isPress, time)
	}
}

func (td *TouchpadDispatch) queuePhysicalButton(code uint16, isPress bool, time uint64) {
	td.physicalButtons = append(td.physicalButtons, pendingButton{code: code, isPress: isPress, time: time})
}

func (td *TouchpadDispatch) pinAllTouches() {
	for i := range td.touches {
		t := &td.touches[i]
		if t.state == touchUpdate || t.state == touchBegin {
			t.pinned = true
			t.pinnedCenter = t.point
		}
	}
}

// touchingNow reports the overall "surface touched" signal used to gate
// HOVERING -> BEGIN when no per-touch pressure/size mode is configured.
func (td *TouchpadDispatch) touchingNow() bool {
	return td.mtModel.FakeFingerIsTouching()
}

// fakeFingersExceedSlots reports a fake-finger count larger than the slot
// array — the driver is reporting contacts it has no slot data for, so
// every fake finger is assumed to have crossed the pressure/size
// threshold.
func (td *TouchpadDispatch) fakeFingersExceedSlots() bool {
	n := td.mtModel.FakeFingerCount()
	return n == mtslot.FakeFingerOverflow || n > td.mtModel.NumSlots()
}

func (td *TouchpadDispatch) beginGate(s *mtslot.Slot) bool {
	switch td.detection {
	case DetectPressure:
		return s.Pressure >= td.pressureHigh || td.fakeFingersExceedSlots()
	case DetectSize:
		return (s.Major >= td.sizeHigh && s.Minor >= td.sizeLow) || td.fakeFingersExceedSlots()
	default:
		return td.touchingNow()
	}
}

func (td *TouchpadDispatch) endGate(s *mtslot.Slot) bool {
	switch td.detection {
	case DetectPressure:
		return s.Pressure < td.pressureLow && !td.fakeFingersExceedSlots()
	case DetectSize:
		return (s.Major < td.sizeLow || s.Minor < td.sizeLow) && !td.fakeFingersExceedSlots()
	default:
		return !td.touchingNow()
	}
}

// handleFrame runs the per-SYN_REPORT pipeline: pre_process collects raw
// slot diffs into lifecycle transitions, process classifies palm/thumb
// state, post_events emits the resulting application events, post_process
// moves BEGIN touches to UPDATE (MAYBE_END/END advance in the next
// frame's pre_process).
func (td *TouchpadDispatch) handleFrame(time uint64) {
	began, ended := td.preProcess(time)
	td.classify(time)
	touchEventEmitted := td.postEvents(time, began, ended)
	td.postProcess()
	for _, b := range td.physicalButtons {
		td.dev.EmitButtonNow(b.code, b.isPress, b.time)
	}
	td.physicalButtons = td.physicalButtons[:0]
	if touchEventEmitted {
		td.dev.emit(event.Event{Kind: event.KindTouchFrame, Time: time})
	}
	td.mtModel.ClearDirty()
}

// preProcess advances NONE->HOVERING->BEGIN and UPDATE->MAYBE_END
// transitions from the raw slot data, returning which slots just began or
// ended this frame. HOVERING->BEGIN may happen in the same frame as
// NONE->HOVERING when BTN_TOUCH (or the pressure/size gate) arrives
// together with the tracking id.
func (td *TouchpadDispatch) preProcess(time uint64) (began, ended []int) {
	td.resurrectFakeFingerTouches()

	for i := 0; i < td.mtModel.NumSlots(); i++ {
		s := td.mtModel.Slot(i)
		t := &td.touches[i]
		active := s.Active()

		if t.state == touchNone && active {
			t.state = touchHovering
			t.beginAt = time
		}

		switch t.state {
		case touchHovering:
			if !active {
				t.state = touchNone
				break
			}
			if td.beginGate(s) {
				t.state = touchBegin
				t.beginAt = time
				if td.nfingersDown == 0 && td.velocity != nil {
					td.velocity.Restart(time)
				}
				td.nfingersDown++
				began = append(began, i)
			}
		case touchBegin, touchUpdate:
			if !active || td.endGate(s) {
				t.state = touchMaybeEnd
				td.nfingersDown--
			}
		case touchMaybeEnd:
			if active && td.beginGate(s) {
				// resurrection: the driver ended this slot but the
				// contact is still reporting, restore to update
				// without re-allocating a seat slot.
				t.state = touchUpdate
				td.nfingersDown++
			} else {
				t.state = touchEnd
				ended = append(ended, i)
			}
		case touchEnd:
			if active {
				t.state = touchHovering
				t.beginAt = time
			} else {
				t.state = touchNone
			}
		}
	}
	return began, ended
}

// resurrectFakeFingerTouches restores MAYBE_END touches back to UPDATE
// when the BTN_TOOL_* count still claims more contacts than the slot
// array holds tracking ids for — some drivers end a slot while the
// triple-tap bit is still down, and taking the slot end at face value
// would emit a spurious end/begin pair.
func (td *TouchpadDispatch) resurrectFakeFingerTouches() {
	want := td.mtModel.FakeFingerCount()
	if want == mtslot.FakeFingerOverflow {
		want = td.mtModel.NumSlots()
	}
	activeSlots := 0
	for i := 0; i < td.mtModel.NumSlots(); i++ {
		if td.mtModel.Slot(i).Active() {
			activeSlots++
		}
	}
	if want <= activeSlots {
		return
	}
	for i := range td.touches {
		if want <= activeSlots {
			break
		}
		t := &td.touches[i]
		if t.state != touchMaybeEnd {
			continue
		}
		td.mtModel.Slot(i).TrackingID = 0
		t.state = touchUpdate
		td.nfingersDown++
		activeSlots++
	}
}

func (td *TouchpadDispatch) postProcess() {
	for i := range td.touches {
		if td.touches[i].state == touchBegin {
			td.touches[i].state = touchUpdate
		}
	}
}

// classify applies palm and thumb detection to every live touch, in
// priority order, before motion is computed.
func (td *TouchpadDispatch) classify(time uint64) {
	for i := range td.touches {
		t := &td.touches[i]
		if t.state != touchBegin && t.state != touchUpdate {
			continue
		}
		s := td.mtModel.Slot(i)
		td.classifyPalm(t, s, time)
		if td.thumbEnabled {
			td.classifyThumb(t, s, i, time)
		}
		if t.pinned {
			cur := td.transform(s.Point.X, s.Point.Y)
			dx := td.unitsToMM(cur.X-t.pinnedCenter.X, td.resX)
			dy := td.unitsToMM(cur.Y-t.pinnedCenter.Y, td.resY)
			if math.Hypot(dx, dy) > pinUnpinDistanceMM {
				t.pinned = false
			}
		}
	}
}

// postEvents emits touch_down/motion/up for every slot whose lifecycle
// warrants it this frame, plus the accelerated pointer_motion for
// non-excluded UPDATE touches.
func (td *TouchpadDispatch) postEvents(time uint64, began, ended []int) bool {
	touchEventEmitted := false
	for _, i := range began {
		t := &td.touches[i]
		s := td.mtModel.Slot(i)
		seatSlot, ok := td.dev.Seat.Slots.Alloc()
		if !ok {
			td.dev.Log.Warnf("seat slot exhausted on %s", td.dev.Name)
			continue
		}
		t.seatSlot = seatSlot
		t.point = td.transform(s.Point.X, s.Point.Y)
		t.prevPoint = t.point
		t.lastMotionTime = 0
		t.speedExceededFrames = 0
		td.dev.emit(event.Event{Kind: event.KindTouchDown, Time: time, Slot: i, SeatSlot: seatSlot, Point: t.point})
		touchEventEmitted = true
	}

	for i := range td.touches {
		t := &td.touches[i]
		if t.state != touchUpdate {
			continue
		}
		s := td.mtModel.Slot(i)
		if !s.Dirty {
			continue
		}
		newPoint := td.transform(s.Point.X, s.Point.Y)
		if td.jumpRejected(t.prevPoint, newPoint) {
			t.prevPoint = newPoint
			continue
		}
		filtered := td.applyHysteresis(newPoint, t.prevPoint, time)
		t.point = filtered
		td.dev.emit(event.Event{Kind: event.KindTouchMotion, Time: time, Slot: i, SeatSlot: t.seatSlot, Point: filtered})
		touchEventEmitted = true

		if t.lastMotionTime != 0 && time > t.lastMotionTime {
			elapsedS := float64(time-t.lastMotionTime) / 1_000_000
			distMM := math.Hypot(td.unitsToMM(filtered.X-t.prevPoint.X, td.resX), td.unitsToMM(filtered.Y-t.prevPoint.Y, td.resY))
			td.recordSpeed(t, distMM/elapsedS)
		}
		t.lastMotionTime = time

		if !t.excludedFromMotion() && time >= td.trackpointActiveUntil && time >= td.dwtUntil {
			dx := filtered.X - t.prevPoint.X
			dy := filtered.Y - t.prevPoint.Y
			rawDelta := accel.Delta{X: dx, Y: dy}
			accelerated := rawDelta
			if td.velocity != nil {
				accelerated = td.velocity.Filter(rawDelta, time)
			}
			td.dev.emit(event.Event{
				Kind: event.KindPointerMotion, Time: time,
				Accelerated: event.FloatCoords{X: accelerated.X, Y: accelerated.Y},
				Unaccelerated: event.FloatCoords{X: dx, Y: dy},
			})
		}
		t.prevPoint = filtered
	}

	for _, i := range ended {
		t := &td.touches[i]
		td.dev.Seat.Slots.Release(t.seatSlot)
		td.dev.emit(event.Event{Kind: event.KindTouchUp, Time: time, Slot: i, SeatSlot: t.seatSlot})
		t.seatSlot = -1
		t.palm = palmNone
		t.thumb = thumbMaybe
		t.pinned = false
		t.lastMotionTime = 0
		t.speedExceededFrames = 0
		touchEventEmitted = true
	}
	return touchEventEmitted
}

func (td *TouchpadDispatch) jumpRejected(prev, cur event.Point) bool {
	dx := td.unitsToMM(cur.X-prev.X, td.resX)
	dy := td.unitsToMM(cur.Y-prev.Y, td.resY)
	return math.Hypot(dx, dy) > jumpRejectThresholdMM
}

// recordXSign folds one frame's x-direction sign into the session-wide
// wobble pattern, enabling hysteresis once Right,Left,Right (or its
// mirror) is seen within wobbleWindowUS. Called from applyHysteresis
// with each frame's actual SYN_REPORT time so the window is measured
// against real frame spacing.
func (td *TouchpadDispatch) recordXSign(sign int8, time uint64) {
	if sign == 0 {
		return
	}
	td.xSignHistory[0], td.xSignHistory[1], td.xSignHistory[2] = td.xSignHistory[1], td.xSignHistory[2], sign
	td.xSignTimes[0], td.xSignTimes[1], td.xSignTimes[2] = td.xSignTimes[1], td.xSignTimes[2], time
	td.signCount++
	if td.signCount < 3 {
		return
	}
	if time-td.xSignTimes[0] >= wobbleWindowUS {
		return
	}
	a, b, c := td.xSignHistory[0], td.xSignHistory[1], td.xSignHistory[2]
	if a == c && a != b && a != 0 && b != 0 {
		td.hysteresisEnabled = true
	}
}

func (td *TouchpadDispatch) applyHysteresis(point, center event.Point, time uint64) event.Point {
	dx := point.X - center.X
	sign := int8(0)
	switch {
	case dx > 0:
		sign = 1
	case dx < 0:
		sign = -1
	}
	td.recordXSign(sign, time)
	if !td.hysteresisEnabled {
		return point
	}
	marginA := math.Max(float64(td.fuzzX), td.resX/4)
	marginB := math.Max(float64(td.fuzzY), td.resY/4)
	p := hysteresis.Filter(
		hysteresis.Point{X: point.X, Y: point.Y},
		hysteresis.Point{X: center.X, Y: center.Y},
		hysteresis.Margin{A: marginA, B: marginB},
	)
	return event.Point{X: p.X, Y: p.Y}
}

// Suspend releases every down touch and cancels any queued physical
// button, re-synced on Resume from kernel state.
func (td *TouchpadDispatch) Suspend(time uint64) {
	if td.suspended {
		return
	}
	td.suspended = true
	td.physicalButtons = td.physicalButtons[:0]
	for i := range td.touches {
		t := &td.touches[i]
		if t.state == touchBegin || t.state == touchUpdate || t.state == touchMaybeEnd {
			td.dev.Seat.Slots.Release(t.seatSlot)
			td.dev.emit(event.Event{Kind: event.KindTouchUp, Time: time, Slot: i, SeatSlot: t.seatSlot})
			t.seatSlot = -1
		}
		t.state = touchNone
	}
	td.dev.emit(event.Event{Kind: event.KindTouchFrame, Time: time})
	td.nfingersDown = 0
}

// Resume re-syncs every slot from the current kernel-reported state so no
// position jump is emitted on the next motion event.
func (td *TouchpadDispatch) Resume(time uint64) {
	td.suspended = false
	for i := range td.touches {
		s := td.mtModel.Slot(i)
		if s.Active() {
			td.touches[i].point = td.transform(s.Point.X, s.Point.Y)
			td.touches[i].prevPoint = td.touches[i].point
		}
	}
}

func (td *TouchpadDispatch) Remove()  {}
func (td *TouchpadDispatch) Destroy() {}

// ToggleTouch implements the cross-device touch-arbitration hook: an
// external mouse forces the touchpad's send-events policy in
// disabled-on-external-mouse mode.
func (td *TouchpadDispatch) ToggleTouch(enabled bool) {
	if td.sendEventsMode != devconfig.SendEventsDisabledOnExternalMouse {
		return
	}
	if enabled {
		td.Resume(0)
	} else {
		td.Suspend(0)
	}
}
