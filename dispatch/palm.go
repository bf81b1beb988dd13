package dispatch

import (
	"math"

	"github.com/sizeofvoid/libopeninput-sub000/mtslot"
)

// palmState is the per-touch palm classification. While set, the touch
// is excluded from motion; PRESSURE and SIZE are latched, while EDGE,
// TYPING, TRACKPOINT and TOOL_PALM can release.
type palmState int

const (
	palmNone palmState = iota
	palmEdge
	palmTyping
	palmTrackpoint
	palmToolPalm
	palmPressure
	palmTouchSize
)

// NotifyKeyboardActivity records that a non-modifier key was pressed,
// arming disable-while-typing for dwtInitialUS (or refreshing it to
// dwtSustainedUS on sustained typing). No-op when DWT is configured off.
func (td *TouchpadDispatch) NotifyKeyboardActivity(time uint64, sustained bool) {
	if !td.dwtEnabled {
		return
	}
	window := uint64(dwtInitialUS)
	if sustained {
		window = dwtSustainedUS
	}
	td.dwtUntil = time + window
}

// NotifyTrackpointActivity marks the touchpad "trackpoint active" through
// time+trackpointActiveUS, auto-extended on every subsequent call.
func (td *TouchpadDispatch) NotifyTrackpointActivity(time uint64) {
	td.trackpointActiveUntil = time + trackpointActiveUS
}

// classifyPalm applies the priority-ordered palm triggers to one touch.
// Pressure and touch-size are latched (never released before the touch
// ends); typing, trackpoint, tool-palm, and edge can release.
func (td *TouchpadDispatch) classifyPalm(t *touch, s *mtslot.Slot, time uint64) {
	if t.palm == palmPressure || t.palm == palmTouchSize {
		return // latched: never re-evaluated before end
	}

	if td.palmPressureThreshold > 0 && s.Pressure > td.palmPressureThreshold {
		t.palm = palmPressure
		return
	}

	if td.palmSizeThreshold > 0 && (s.Major > td.palmSizeThreshold || s.Minor > td.palmSizeThreshold) {
		t.palm = palmTouchSize
		return
	}

	if t.palm == palmTyping {
		if time < td.dwtUntil {
			return
		}
		t.palm = palmNone
	}
	if t.palm == palmNone && t.state == touchBegin && time < td.dwtUntil {
		t.palm = palmTyping
		return
	}

	if t.palm == palmTrackpoint {
		if time < td.trackpointActiveUntil {
			return
		}
		t.palm = palmNone
	}
	if t.palm == palmNone && time < td.trackpointActiveUntil {
		t.palm = palmTrackpoint
		return
	}

	if s.ToolType == MTToolPalm {
		t.palm = palmToolPalm
		return
	}
	if t.palm == palmToolPalm {
		t.palm = palmNone
	}

	if t.palm == palmNone || t.palm == palmEdge {
		td.classifyEdge(t, s, time)
	}
}

// edgeSide records which exclusion band an edge palm entered through, so
// the release direction can be judged relative to that edge.
type edgeSide int

const (
	edgeNone edgeSide = iota
	edgeLeft
	edgeRight
	edgeTop
)

func (td *TouchpadDispatch) edgeSideAt(x, y int32) edgeSide {
	xFrac := float64(x) / td.widthUnits
	yFrac := float64(y) / td.heightUnits
	switch {
	case xFrac < edgeWidthFraction:
		return edgeLeft
	case xFrac > 1-edgeWidthFraction:
		return edgeRight
	case yFrac < edgeHeightFraction:
		return edgeTop
	}
	return edgeNone
}

// classifyEdge implements trigger 6: a touch that began in a side or top
// edge band is excluded until, within 200ms, it moves out of the band
// along an approved direction (away from the entered edge, not parallel
// to it) — or another non-palm touch is already active (multi-finger use
// implies intent).
func (td *TouchpadDispatch) classifyEdge(t *touch, s *mtslot.Slot, time uint64) {
	if td.widthUnits <= 0 || td.heightUnits <= 0 {
		return
	}
	side := td.edgeSideAt(s.Point.X, s.Point.Y)

	if t.palm == palmEdge {
		if td.otherNonPalmTouchActive(t) {
			t.palm = palmNone
			return
		}
		if time-t.palmEnteredAt > 200_000 {
			return
		}
		if side == edgeNone && td.movedAwayFromEdge(t, s) {
			t.palm = palmNone
		}
		return
	}

	if side != edgeNone && t.state == touchBegin {
		t.palm = palmEdge
		t.palmEnteredAt = time
		t.palmEdgeSide = side
		t.palmEnterPoint = s.Point
	}
}

// movedAwayFromEdge reports whether the displacement since the palm
// entered its band points away from that edge, with the perpendicular
// component dominating — sliding along the edge does not release.
func (td *TouchpadDispatch) movedAwayFromEdge(t *touch, s *mtslot.Slot) bool {
	dx := float64(s.Point.X - t.palmEnterPoint.X)
	dy := float64(s.Point.Y - t.palmEnterPoint.Y)
	switch t.palmEdgeSide {
	case edgeLeft:
		return dx > 0 && dx >= math.Abs(dy)
	case edgeRight:
		return dx < 0 && -dx >= math.Abs(dy)
	case edgeTop:
		return dy > 0 && dy >= math.Abs(dx)
	}
	return false
}

func (td *TouchpadDispatch) otherNonPalmTouchActive(exclude *touch) bool {
	for i := range td.touches {
		o := &td.touches[i]
		if o == exclude {
			continue
		}
		if (o.state == touchBegin || o.state == touchUpdate) && o.palm == palmNone {
			return true
		}
	}
	return false
}
