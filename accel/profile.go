package accel

import "math"

// Profile computes a unitless acceleration factor for a velocity expressed
// in device units per microsecond, given the current time in microseconds.
// Implementations hold their own curve parameters.
type Profile interface {
	Factor(velocityUnitsPerUS float64, timeUS uint64) float64
	// SetSpeed adjusts curve parameters from a single knob in [-1, 1] and
	// reports whether the value was accepted.
	SetSpeed(adjustment float64) bool
}

func usToMsSpeed(unitsPerUS float64) float64 { return unitsPerUS * 1000 }

// validAdjustment reports whether the speed adjustment knob lies in the
// documented [-1, 1] domain.
func validAdjustment(s float64) bool { return s >= -1.0 && s <= 1.0 }

const defaultMouseDPI = 1000

// LinearProfile is the linear curve for mice of 1000 DPI and above:
// a deceleration ramp below 0.07 units/ms, factor 1.0 up to the
// threshold, a linear incline above it, capped at the maximum
// acceleration.
type LinearProfile struct {
	DPI       int
	threshold float64 // units/µs
	maxAccel  float64 // unitless
	incline   float64
}

const (
	defaultThresholdUnitsPerMS = 0.4
	minimumThresholdUnitsPerMS = 0.2
	defaultAcceleration        = 1.75
	defaultIncline             = 1.1
)

// NewLinearProfile returns the high-DPI mouse profile with its default
// curve parameters.
func NewLinearProfile(dpi int) *LinearProfile {
	if dpi <= 0 {
		dpi = defaultMouseDPI
	}
	return &LinearProfile{
		DPI:       dpi,
		threshold: defaultThresholdUnitsPerMS / 1000,
		maxAccel:  defaultAcceleration,
		incline:   defaultIncline,
	}
}

func (p *LinearProfile) Factor(speed float64, _ uint64) float64 {
	speed = speed * defaultMouseDPI / float64(p.DPI)

	var factor float64
	switch {
	case usToMsSpeed(speed) < 0.07:
		factor = 10*usToMsSpeed(speed) + 0.3
	case speed < p.threshold:
		factor = 1
	default:
		factor = p.incline*usToMsSpeed(speed-p.threshold) + 1
	}
	return math.Min(p.maxAccel, factor)
}

func (p *LinearProfile) SetSpeed(adjustment float64) bool {
	if !validAdjustment(adjustment) {
		return false
	}
	threshold := defaultThresholdUnitsPerMS/1000 - (0.25/1000)*adjustment
	if threshold < minimumThresholdUnitsPerMS/1000 {
		threshold = minimumThresholdUnitsPerMS / 1000
	}
	p.threshold = threshold
	p.maxAccel = defaultAcceleration + adjustment*1.5
	p.incline = defaultIncline + adjustment*0.75
	return true
}

// LinearLowDPIProfile covers mice under 1000 DPI: the same curve shape
// as LinearProfile with the maximum acceleration divided by the DPI
// ratio and the threshold multiplied by it.
type LinearLowDPIProfile struct {
	inner *LinearProfile
}

// NewLinearLowDPIProfile wraps a LinearProfile for DPI < 1000.
func NewLinearLowDPIProfile(dpi int) *LinearLowDPIProfile {
	return &LinearLowDPIProfile{inner: NewLinearProfile(dpi)}
}

func (p *LinearLowDPIProfile) Factor(speed float64, _ uint64) float64 {
	dpiFactor := float64(p.inner.DPI) / defaultMouseDPI
	maxAccel := p.inner.maxAccel / dpiFactor
	threshold := p.inner.threshold * dpiFactor

	var factor float64
	switch {
	case usToMsSpeed(speed) < 0.07:
		factor = 10*usToMsSpeed(speed) + 0.3
	case speed < threshold:
		factor = 1
	default:
		factor = p.inner.incline*usToMsSpeed(speed-threshold) + 1
	}
	return math.Min(maxAccel, factor)
}

func (p *LinearLowDPIProfile) SetSpeed(adjustment float64) bool {
	return p.inner.SetSpeed(adjustment)
}

// touchpadMagicSlowdown keeps a touchpad's factor-1 band well below
// mouse speed; finger motion covers far less distance than a mouse at
// the same intent.
const touchpadMagicSlowdown = 0.37

// TouchpadProfile is the touchpad acceleration curve: the same shape as
// the linear profile, speed expressed in mm/s, scaled by the slowdown
// factor.
type TouchpadProfile struct {
	DPI            int
	threshold      float64 // mm/s
	maxAccel       float64
	incline        float64
	speedAdjustment float64
}

const (
	touchpadDefaultThreshold = 270.0 // mm/s
	touchpadDefaultAccel     = 1.1
	touchpadDefaultIncline   = 0.0015
)

// NewTouchpadProfile returns the default touchpad profile.
func NewTouchpadProfile(dpi int) *TouchpadProfile {
	if dpi <= 0 {
		dpi = defaultMouseDPI
	}
	return &TouchpadProfile{
		DPI:       dpi,
		threshold: touchpadDefaultThreshold,
		maxAccel:  touchpadDefaultAccel,
		incline:   touchpadDefaultIncline,
	}
}

func (p *TouchpadProfile) Factor(speedUnitsPerUS float64, _ uint64) float64 {
	// convert units/µs (device units) to mm/s
	speed := speedUnitsPerUS * 1e6 * 25.4 / float64(p.DPI)

	var factor float64
	switch {
	case speed < 7.0:
		factor = 0.1*speed + 0.3
	case speed < p.threshold:
		factor = 1
	default:
		factor = p.incline*(speed-p.threshold) + 1
	}
	factor = math.Min(p.maxAccel, factor)
	factor *= 1 + 0.5*p.speedAdjustment
	return factor * touchpadMagicSlowdown
}

func (p *TouchpadProfile) SetSpeed(adjustment float64) bool {
	if !validAdjustment(adjustment) {
		return false
	}
	p.speedAdjustment = adjustment
	return true
}

// TrackpointProfile implements `delta·incline + offset`, capped at the
// maximum acceleration.
type TrackpointProfile struct {
	maxAccel float64
	incline  float64
	offset   float64
}

const trackpointDefaultMaxAccel = 4.6

// NewTrackpointProfile returns the default trackpoint curve.
func NewTrackpointProfile() *TrackpointProfile {
	return &TrackpointProfile{
		maxAccel: trackpointDefaultMaxAccel,
		incline:  1.04,
		offset:   0,
	}
}

func (p *TrackpointProfile) Factor(delta float64, _ uint64) float64 {
	factor := delta*p.incline + p.offset
	return math.Min(factor, p.maxAccel)
}

// SetSpeed applies the documented trackpoint formulas:
// max = 4.6·e^(1.2·s), incline = 0.8·s + 1.04.
func (p *TrackpointProfile) SetSpeed(adjustment float64) bool {
	if !validAdjustment(adjustment) {
		return false
	}
	p.maxAccel = 4.6 * math.Exp(1.2*adjustment)
	p.incline = 0.8*adjustment + 1.04
	return true
}

// FlatProfile applies no acceleration beyond a speed-adjustment-derived
// constant factor.
type FlatProfile struct {
	factor float64
}

// NewFlatProfile returns the flat profile with factor 1.
func NewFlatProfile() *FlatProfile {
	return &FlatProfile{factor: 1}
}

func (p *FlatProfile) Factor(float64, uint64) float64 { return p.factor }

func (p *FlatProfile) SetSpeed(adjustment float64) bool {
	if !validAdjustment(adjustment) {
		return false
	}
	p.factor = math.Max(0.005, 1+adjustment)
	return true
}

// CustomPoint is one (speed, factor) knot of a CustomProfile curve.
type CustomPoint struct {
	Speed  float64 // device units/s, in [0, 50000]
	Factor float64
}

const maxCustomPoints = 32

// CustomProfile is a user-supplied piecewise-linear curve through up to 32
// points.
type CustomProfile struct {
	points []CustomPoint // sorted ascending by Speed
}

// NewCustomProfile validates and stores points, sorted by speed. Points
// outside [0, 50000] or beyond the 32-point cap are rejected.
func NewCustomProfile(points []CustomPoint) (*CustomProfile, bool) {
	if len(points) == 0 || len(points) > maxCustomPoints {
		return nil, false
	}
	cp := make([]CustomPoint, len(points))
	copy(cp, points)
	for _, p := range cp {
		if p.Speed < 0 || p.Speed > 50000 {
			return nil, false
		}
	}
	for i := 1; i < len(cp); i++ {
		for j := i; j > 0 && cp[j-1].Speed > cp[j].Speed; j-- {
			cp[j-1], cp[j] = cp[j], cp[j-1]
		}
	}
	return &CustomProfile{points: cp}, true
}

func (p *CustomProfile) Factor(speedUnitsPerUS float64, _ uint64) float64 {
	speed := speedUnitsPerUS * 1e6 // units/s
	pts := p.points
	if speed <= pts[0].Speed {
		return pts[0].Factor
	}
	last := pts[len(pts)-1]
	if speed >= last.Speed {
		return last.Factor
	}
	for i := 1; i < len(pts); i++ {
		if speed <= pts[i].Speed {
			lo, hi := pts[i-1], pts[i]
			if hi.Speed == lo.Speed {
				return hi.Factor
			}
			t := (speed - lo.Speed) / (hi.Speed - lo.Speed)
			return lo.Factor + t*(hi.Factor-lo.Factor)
		}
	}
	return last.Factor
}

// SetSpeed is a no-op for custom curves — the curve itself is the knob.
func (p *CustomProfile) SetSpeed(adjustment float64) bool {
	return validAdjustment(adjustment)
}
