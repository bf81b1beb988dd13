package dispatch

import (
	"math"

	"github.com/sizeofvoid/libopeninput-sub000/mtslot"
)

// thumbState is the per-touch thumb classification. Thumbs
// do not release once set; they're excluded from motion and
// clickfinger-style counting but still participate in edge-scroll and
// software buttons (neither of which this module implements — see
// Non-goals).
type thumbState int

const (
	thumbMaybe thumbState = iota
	thumbYes
	thumbNo
)

// classifyThumb applies thumb detection to one touch. Two independent
// algorithms coexist rather than being merged: the two-finger-descent
// speed rule and the pressure/size+lingering rules. The device config
// selects whether the speed-based rule runs via
// ThumbWhileMovingAlgorithm; the pressure/size and lingering rules
// always run alongside it.
func (td *TouchpadDispatch) classifyThumb(t *touch, s *mtslot.Slot, slot int, time uint64) {
	if t.thumb == thumbYes {
		return
	}

	lowerLine := td.heightUnits * thumbLowerLineFrac
	upperLine := td.heightUnits * thumbUpperLineFrac

	// Combined pressure+size rule: pressure above threshold OR major
	// above threshold with minor below 60% of it (a long, narrow
	// contact), gated to the lower exclusion band.
	inLowerBand := float64(s.Point.Y) >= lowerLine
	if inLowerBand {
		pressureHit := td.thumbPressureThreshold > 0 && s.Pressure > td.thumbPressureThreshold
		sizeHit := td.sizeHigh > 0 && s.Major >= td.sizeHigh && float64(s.Minor) < 0.6*float64(td.sizeHigh)
		if pressureHit || sizeHit {
			t.thumb = thumbYes
			return
		}
	}

	// Lingering rule: is in the lower band and began at least 300ms ago.
	if inLowerBand && time-t.beginAt >= thumbLingerUS {
		t.thumb = thumbYes
		return
	}

	if !td.thumbWhileMovingAlgorithm {
		return
	}

	// Two-finger-descent speed rule: while an existing touch has been
	// moving fast (>20mm/s for >5 consecutive frames), a newly-landed
	// second touch at or below the upper line is a thumb unless it lands
	// close enough to the first to read as an intentional two-finger
	// scroll.
	if float64(s.Point.Y) < upperLine {
		return
	}
	cur := td.transform(s.Point.X, s.Point.Y)
	for i := range td.touches {
		if i == slot {
			continue
		}
		other := &td.touches[i]
		if other.state != touchUpdate || other.speedExceededFrames <= 5 {
			continue
		}
		dxMM := td.unitsToMM(math.Abs(cur.X-other.point.X), td.resX)
		dyMM := td.unitsToMM(math.Abs(cur.Y-other.point.Y), td.resY)
		if dxMM <= 25 && dyMM <= 15 {
			continue // reads as an intentional two-finger scroll
		}
		t.thumb = thumbYes
		return
	}
}

// recordSpeed tracks the consecutive-frame speed-exceeded counter used by
// classifyThumb's two-finger-descent rule.
func (td *TouchpadDispatch) recordSpeed(t *touch, speedMMPerS float64) {
	if speedMMPerS > 20.0 {
		t.speedExceededFrames++
	} else {
		t.speedExceededFrames = 0
	}
}
