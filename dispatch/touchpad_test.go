package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sizeofvoid/libopeninput-sub000/accel"
	"github.com/sizeofvoid/libopeninput-sub000/event"
	"github.com/sizeofvoid/libopeninput-sub000/seat"
	"github.com/sizeofvoid/libopeninput-sub000/timer"
)

func newTestTouchpad(t *testing.T, opts TouchpadOptions) (*TouchpadDispatch, *[]event.Event) {
	t.Helper()
	var got []event.Event
	s := seat.New("seat0")
	wheel := timer.New()
	sink := event.SinkFunc(func(e event.Event) { got = append(got, e) })
	dev := NewDevice(1, "test-touchpad", s, sink, nil, wheel)
	if opts.NumSlots == 0 {
		opts.NumSlots = 4
	}
	if opts.WidthUnits == 0 {
		opts.WidthUnits = 1000
	}
	if opts.HeightUnits == 0 {
		opts.HeightUnits = 1000
	}
	if opts.ResolutionXPerMM == 0 {
		opts.ResolutionXPerMM = 10
	}
	if opts.ResolutionYPerMM == 0 {
		opts.ResolutionYPerMM = 10
	}
	td := NewTouchpadDispatch(dev, opts)
	return td, &got
}

// beginTouch lands a contact in one frame: tracking id and BTN_TOUCH
// arrive together, so NONE -> HOVERING -> BEGIN happens within the frame
// and touch_down is emitted at its SYN_REPORT.
func beginTouch(td *TouchpadDispatch, slot int, trackingID, x, y int32, time uint64) {
	td.Process(EvAbs, AbsMTSlot, int32(slot), time)
	td.Process(EvAbs, AbsMTTrackingID, trackingID, time)
	td.Process(EvAbs, AbsMTPositionX, x, time)
	td.Process(EvAbs, AbsMTPositionY, y, time)
	td.Process(EvKey, BtnTouch, 1, time)
	td.Process(EvSyn, SynReport, 0, time)
}

func moveTouch(td *TouchpadDispatch, slot int, x, y int32, time uint64) {
	td.Process(EvAbs, AbsMTSlot, int32(slot), time)
	td.Process(EvAbs, AbsMTPositionX, x, time)
	td.Process(EvAbs, AbsMTPositionY, y, time)
	td.Process(EvSyn, SynReport, 0, time)
}

// endTouch lifts a contact and runs it through two frames: the first
// moves UPDATE -> MAYBE_END, the second (still inactive) confirms
// MAYBE_END -> END and emits touch_up.
func endTouch(td *TouchpadDispatch, slot int, time uint64) {
	td.Process(EvAbs, AbsMTSlot, int32(slot), time)
	td.Process(EvAbs, AbsMTTrackingID, -1, time)
	td.Process(EvKey, BtnTouch, 0, time)
	td.Process(EvSyn, SynReport, 0, time)

	td.Process(EvAbs, AbsMTSlot, int32(slot), time)
	td.Process(EvSyn, SynReport, 0, time)
}

// TestScenarioS3TouchLifecycleBeginMoveEnd exercises one finger landing,
// moving, and lifting: touch_down, motion (once enough delta clears
// hysteresis/jump thresholds), touch_up, each paired with a touch_frame,
// with seat-slot allocation and release observed at the boundaries.
func TestScenarioS3TouchLifecycleBeginMoveEnd(t *testing.T) {
	td, got := newTestTouchpad(t, TouchpadOptions{})

	beginTouch(td, 0, 7, 500, 500, 0)
	require.GreaterOrEqual(t, len(*got), 2)
	assert.Equal(t, event.KindTouchDown, (*got)[0].Kind)
	assert.Equal(t, 0, (*got)[0].SeatSlot)
	assert.Equal(t, event.KindTouchFrame, (*got)[len(*got)-1].Kind)

	*got = nil
	moveTouch(td, 0, 600, 520, 20_000)
	require.NotEmpty(t, *got)
	var sawMotion bool
	for _, e := range *got {
		if e.Kind == event.KindTouchMotion {
			sawMotion = true
			assert.Equal(t, 0, e.SeatSlot)
		}
	}
	assert.True(t, sawMotion)

	*got = nil
	endTouch(td, 0, 40_000)
	require.NotEmpty(t, *got)
	var sawUp bool
	for _, e := range *got {
		if e.Kind == event.KindTouchUp {
			sawUp = true
		}
	}
	assert.True(t, sawUp)
}

// TestScenarioS4EdgePalmReleasedByMultiFingerUse begins a touch inside the
// edge exclusion band (palm=EDGE) then lands a second, non-edge touch;
// the first should be reclassified as non-palm since multi-finger use
// implies intent.
func TestScenarioS4EdgePalmReleasedByMultiFingerUse(t *testing.T) {
	td, got := newTestTouchpad(t, TouchpadOptions{})

	beginTouch(td, 0, 1, 10, 10, 0) // within the 8%/5% edge band of a 1000x1000 surface
	require.True(t, td.touches[0].palm == palmEdge)

	*got = nil
	beginTouch(td, 1, 2, 500, 500, 10_000)
	assert.Equal(t, palmNone, td.touches[0].palm, "edge palm should release once a second, centered touch is active")
}

// TestScenarioS5TypingSuppressesTouchUntilDWTWindowExpires: a keyboard
// key-down arms disable-while-typing; a touch that begins inside that
// window is excluded from motion, while one beginning after the window
// has elapsed is not.
func TestScenarioS5TypingSuppressesTouchUntilDWTWindowExpires(t *testing.T) {
	td, _ := newTestTouchpad(t, TouchpadOptions{DWTEnabled: true})

	td.NotifyKeyboardActivity(10_000, false) // arms DWT through 10_000+200_000=210_000

	beginTouch(td, 0, 1, 500, 500, 50_000)
	assert.Equal(t, palmTyping, td.touches[0].palm)

	endTouch(td, 0, 60_000)

	beginTouch(td, 1, 2, 500, 500, 300_000) // past the DWT window
	assert.Equal(t, palmNone, td.touches[1].palm)
}

func TestPalmPressureLatchesAndNeverReleases(t *testing.T) {
	td, _ := newTestTouchpad(t, TouchpadOptions{PalmPressureThreshold: 50})

	td.Process(EvAbs, AbsMTSlot, 0, 0)
	td.Process(EvAbs, AbsMTTrackingID, 1, 0)
	td.Process(EvAbs, AbsMTPositionX, 500, 0)
	td.Process(EvAbs, AbsMTPositionY, 500, 0)
	td.Process(EvAbs, AbsMTPressure, 80, 0)
	td.Process(EvKey, BtnTouch, 1, 0)
	td.Process(EvSyn, SynReport, 0, 0)

	td.Process(EvAbs, AbsMTSlot, 0, 0)
	td.Process(EvSyn, SynReport, 0, 0)
	require.Equal(t, palmPressure, td.touches[0].palm)

	moveTouch(td, 0, 501, 501, 20_000)
	assert.Equal(t, palmPressure, td.touches[0].palm, "pressure palm must not release before the touch ends")
}

func TestJumpRejectedSkipsImplausibleMotion(t *testing.T) {
	td, got := newTestTouchpad(t, TouchpadOptions{})
	beginTouch(td, 0, 1, 500, 500, 0)
	*got = nil

	moveTouch(td, 0, 900, 900, 10_000) // > 20mm jump at 10 units/mm
	for _, e := range *got {
		assert.NotEqual(t, event.KindTouchMotion, e.Kind)
	}
}

func TestSuspendReleasesActiveTouchesAndResumeResyncsWithoutJump(t *testing.T) {
	td, got := newTestTouchpad(t, TouchpadOptions{})
	beginTouch(td, 0, 1, 500, 500, 0)
	*got = nil

	td.Suspend(5000)
	var sawUp, sawFrame bool
	for _, e := range *got {
		if e.Kind == event.KindTouchUp {
			sawUp = true
		}
		if e.Kind == event.KindTouchFrame {
			sawFrame = true
		}
	}
	assert.True(t, sawUp)
	assert.True(t, sawFrame)

	td.Resume(6000)
	assert.False(t, td.suspended)
}

func TestAccelProfileAppliesToNonExcludedTouchMotion(t *testing.T) {
	td, got := newTestTouchpad(t, TouchpadOptions{
		AccelProfile: accel.NewLinearProfile(1000),
		DPI:          1000,
	})
	beginTouch(td, 0, 1, 500, 500, 0)
	*got = nil

	moveTouch(td, 0, 505, 505, 20_000)
	var sawPointerMotion bool
	for _, e := range *got {
		if e.Kind == event.KindPointerMotion {
			sawPointerMotion = true
		}
	}
	assert.True(t, sawPointerMotion)
}

// TestPressureDetectionGatesTouchBeginAndEnd drives the pressure
// hysteresis: a contact below pressure.high hovers without a touch_down;
// crossing it begins the touch, and only dropping under pressure.low ends
// it.
func TestPressureDetectionGatesTouchBeginAndEnd(t *testing.T) {
	td, got := newTestTouchpad(t, TouchpadOptions{
		Detection:    DetectPressure,
		PressureHigh: 30,
		PressureLow:  20,
	})

	td.Process(EvAbs, AbsMTSlot, 0, 0)
	td.Process(EvAbs, AbsMTTrackingID, 1, 0)
	td.Process(EvAbs, AbsMTPositionX, 500, 0)
	td.Process(EvAbs, AbsMTPositionY, 500, 0)
	td.Process(EvAbs, AbsMTPressure, 25, 0)
	td.Process(EvKey, BtnTouch, 1, 0)
	td.Process(EvSyn, SynReport, 0, 0)
	assert.Zero(t, countKind(*got, event.KindTouchDown), "below pressure.high the contact only hovers")

	td.Process(EvAbs, AbsMTSlot, 0, 10_000)
	td.Process(EvAbs, AbsMTPressure, 35, 10_000)
	td.Process(EvSyn, SynReport, 0, 10_000)
	assert.Equal(t, 1, countKind(*got, event.KindTouchDown))

	// Dropping into the hysteresis band does not end the touch.
	*got = nil
	td.Process(EvAbs, AbsMTSlot, 0, 20_000)
	td.Process(EvAbs, AbsMTPressure, 25, 20_000)
	td.Process(EvSyn, SynReport, 0, 20_000)
	assert.Zero(t, countKind(*got, event.KindTouchUp))

	td.Process(EvAbs, AbsMTSlot, 0, 30_000)
	td.Process(EvAbs, AbsMTPressure, 10, 30_000)
	td.Process(EvSyn, SynReport, 0, 30_000)
	td.Process(EvSyn, SynReport, 0, 40_000)
	assert.Equal(t, 1, countKind(*got, event.KindTouchUp))
}

// TestClickpadPinningExcludesClickingFingerFromMotion: a physical BTN_LEFT
// press pins every touch; small movement stays pinned (no pointer motion),
// and only after exceeding the unpin distance does motion resume.
func TestClickpadPinningExcludesClickingFingerFromMotion(t *testing.T) {
	td, got := newTestTouchpad(t, TouchpadOptions{
		IsClickpad:   true,
		AccelProfile: accel.NewLinearProfile(1000),
		DPI:          1000,
	})
	beginTouch(td, 0, 1, 500, 500, 0)

	td.Process(EvKey, BtnLeft, 1, 10_000)
	td.Process(EvSyn, SynReport, 0, 10_000)
	require.True(t, td.touches[0].pinned)

	*got = nil
	moveTouch(td, 0, 510, 510, 20_000) // 1.4mm from the pinned center
	assert.Zero(t, countKind(*got, event.KindPointerMotion))
	assert.True(t, td.touches[0].pinned)

	moveTouch(td, 0, 525, 525, 30_000) // well past the 1.5mm unpin distance
	assert.False(t, td.touches[0].pinned)
	moveTouch(td, 0, 530, 530, 40_000)
	assert.NotZero(t, countKind(*got, event.KindPointerMotion))
}

// TestFakeFingerResurrectionKeepsEndedSlotAlive: the driver ends slot 1's
// tracking id while BTN_TOOL_DOUBLETAP still claims two contacts — the
// ended touch must be restored instead of emitting a spurious up/down
// pair.
func TestFakeFingerResurrectionKeepsEndedSlotAlive(t *testing.T) {
	td, got := newTestTouchpad(t, TouchpadOptions{NumSlots: 2})

	td.Process(EvAbs, AbsMTSlot, 0, 0)
	td.Process(EvAbs, AbsMTTrackingID, 1, 0)
	td.Process(EvAbs, AbsMTPositionX, 300, 0)
	td.Process(EvAbs, AbsMTPositionY, 300, 0)
	td.Process(EvAbs, AbsMTSlot, 1, 0)
	td.Process(EvAbs, AbsMTTrackingID, 2, 0)
	td.Process(EvAbs, AbsMTPositionX, 600, 0)
	td.Process(EvAbs, AbsMTPositionY, 600, 0)
	td.Process(EvKey, BtnTouch, 1, 0)
	td.Process(EvKey, BtnToolDoubleTap, 1, 0)
	td.Process(EvSyn, SynReport, 0, 0)
	require.Equal(t, 2, countKind(*got, event.KindTouchDown))

	*got = nil
	td.Process(EvAbs, AbsMTSlot, 1, 10_000)
	td.Process(EvAbs, AbsMTTrackingID, -1, 10_000)
	td.Process(EvSyn, SynReport, 0, 10_000)
	td.Process(EvSyn, SynReport, 0, 20_000)
	td.Process(EvSyn, SynReport, 0, 30_000)

	assert.Zero(t, countKind(*got, event.KindTouchUp), "double-tap bit still claims two contacts")
	assert.Equal(t, 2, td.nfingersDown)
}

func TestRightEdgePalmIsClassified(t *testing.T) {
	td, _ := newTestTouchpad(t, TouchpadOptions{})

	beginTouch(td, 0, 1, 970, 500, 0) // within the right 8% band of a 1000-unit-wide surface
	assert.Equal(t, palmEdge, td.touches[0].palm)
}

// TestEdgePalmReleaseRequiresMovingAwayFromEdge: leaving the band by
// sliding parallel to the edge keeps the palm; a move pointing away from
// the entered edge releases it.
func TestEdgePalmReleaseRequiresMovingAwayFromEdge(t *testing.T) {
	td, _ := newTestTouchpad(t, TouchpadOptions{})

	beginTouch(td, 0, 1, 10, 500, 0)
	require.Equal(t, palmEdge, td.touches[0].palm)

	// Mostly-vertical drift that happens to exit the band: still a palm.
	moveTouch(td, 0, 90, 800, 50_000)
	assert.Equal(t, palmEdge, td.touches[0].palm)

	endTouch(td, 0, 60_000)

	beginTouch(td, 1, 2, 10, 500, 300_000)
	require.Equal(t, palmEdge, td.touches[1].palm)

	// A decisive move inward, away from the left edge, releases.
	moveTouch(td, 1, 200, 520, 350_000)
	assert.Equal(t, palmNone, td.touches[1].palm)
}

// TestBtnTouchOnMTFallbackEmitsNoButton: on a multi-touch fallback device
// BTN_TOUCH is contact bookkeeping, not a button — it must never reach
// the pointer-button path.
func TestBtnTouchOnMTFallbackEmitsNoButton(t *testing.T) {
	fd, got := newTestFallback(t, FallbackOptions{NumMTSlots: 4})

	fd.Process(EvAbs, AbsMTSlot, 0, 0)
	fd.Process(EvAbs, AbsMTTrackingID, 5, 0)
	fd.Process(EvAbs, AbsMTPositionX, 100, 0)
	fd.Process(EvAbs, AbsMTPositionY, 100, 0)
	fd.Process(EvKey, BtnTouch, 1, 0)
	fd.Process(EvSyn, SynReport, 0, 0)

	fd.Process(EvAbs, AbsMTTrackingID, -1, 10_000)
	fd.Process(EvKey, BtnTouch, 0, 10_000)
	fd.Process(EvSyn, SynReport, 0, 10_000)

	assert.Zero(t, countKind(*got, event.KindPointerButton))
	assert.Equal(t, 1, countKind(*got, event.KindTouchDown))
	assert.Equal(t, 1, countKind(*got, event.KindTouchUp))
}
