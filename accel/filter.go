// Package accel implements the pointer-acceleration filter subsystem:
// velocity-tracker-based acceleration curves with profiles for mice,
// touchpads, trackpoints, and user-supplied custom curves.
package accel

import (
	"math"

	"github.com/sizeofvoid/libopeninput-sub000/velocity"
)

// Delta is a raw device-space motion delta.
type Delta struct {
	X, Y float64
}

// Filter turns raw device deltas into normalized pointer motion. It wraps
// a velocity.Tracker and a Profile, averaging the factor between the
// previous and current velocity via Simpson's rule.
type Filter struct {
	profile      Profile
	tracker      *velocity.Tracker
	lastVelocity float64
	normalizeDPI int // device DPI; 0 disables DPI normalization
	postNormalize bool
}

// NewFilter wraps profile with a fresh velocity tracker. dpi is the
// device's reported resolution; postNormalize selects whether DPI
// normalization happens before (false) or after (true) the profile is
// applied.
func NewFilter(profile Profile, dpi int, postNormalize bool) *Filter {
	return &Filter{
		profile:       profile,
		tracker:       velocity.New(),
		normalizeDPI:  dpi,
		postNormalize: postNormalize,
	}
}

// SetSmoothener installs a touchpad-style inter-event smoothener on the
// underlying velocity tracker.
func (f *Filter) SetSmoothener(s *velocity.Smoothener) {
	f.tracker.Smoothener = s
}

func dpiNormalize(d Delta, dpi int) Delta {
	if dpi <= 0 || dpi == defaultMouseDPI {
		return d
	}
	scale := float64(defaultMouseDPI) / float64(dpi)
	return Delta{X: d.X * scale, Y: d.Y * scale}
}

// simpson averages three acceleration-factor evaluations using Simpson's
// rule over (previous velocity, current velocity, midpoint). This smooths
// factor transitions across a frame boundary instead of snapping to the
// new velocity instantly.
func (f *Filter) simpson(v, lastV float64, time uint64) float64 {
	factor := f.profile.Factor(v, time)
	factor += f.profile.Factor(lastV, time)
	factor += 4 * f.profile.Factor((lastV+v)/2, time)
	return factor / 6.0
}

// Filter applies the profile curve to raw_delta at time (µs), returning the
// normalized delta.
func (f *Filter) Filter(raw Delta, time uint64) Delta {
	pre := raw
	if !f.postNormalize {
		pre = dpiNormalize(raw, f.normalizeDPI)
	}

	f.tracker.Feed(velocity.Delta{X: pre.X, Y: pre.Y}, time)
	v := f.tracker.Velocity(time)
	factor := f.simpson(v, f.lastVelocity, time)
	f.lastVelocity = v

	out := Delta{X: pre.X * factor, Y: pre.Y * factor}
	if f.postNormalize {
		out = dpiNormalize(out, f.normalizeDPI)
	}
	return out
}

// FilterConstant bypasses acceleration entirely — used for slow-motion or
// special axes.
func (f *Filter) FilterConstant(raw Delta, _ uint64) Delta {
	return dpiNormalize(raw, f.normalizeDPI)
}

// Restart resets the velocity tracker for a new touch/motion sequence
//.
func (f *Filter) Restart(time uint64) {
	f.tracker.Reset(time)
	f.lastVelocity = 0
}

// SetSpeed adjusts the wrapped profile's curve parameters. Returns false
// if adjustment is outside [-1, 1].
func (f *Filter) SetSpeed(adjustment float64) bool {
	return f.profile.SetSpeed(adjustment)
}

// TrackpointFilter implements the specialized trackpoint pipeline: input
// pre-averaged over 4 samples, clipped to a max delta, with a distinct
// accel curve from the generic Filter. Grounded on filter-trackpoint.c.
type TrackpointFilter struct {
	history     [4]Delta
	historySize int
	scaleFactor float64
	maxDelta    float64
	profile     *TrackpointProfile
}

const trackpointDefaultMaxDelta = 120

// NewTrackpointFilter returns a trackpoint filter with the documented
// defaults (4-sample averaging window, max delta 120, scale factor 1).
func NewTrackpointFilter() *TrackpointFilter {
	return &TrackpointFilter{
		historySize: 4,
		scaleFactor: 1,
		maxDelta:    trackpointDefaultMaxDelta,
		profile:     NewTrackpointProfile(),
	}
}

func (f *TrackpointFilter) averageDelta(d Delta) Delta {
	copy(f.history[1:f.historySize], f.history[0:f.historySize-1])
	f.history[0] = d

	var avg Delta
	for i := 0; i < f.historySize; i++ {
		avg.X += f.history[i].X
		avg.Y += f.history[i].Y
	}
	avg.X /= float64(f.historySize)
	avg.Y /= float64(f.historySize)
	return avg
}

func (f *TrackpointFilter) clipToMaxDelta(d Delta) Delta {
	if math.Abs(d.X) > f.maxDelta {
		d.X = math.Copysign(f.maxDelta, d.X)
	}
	if math.Abs(d.Y) > f.maxDelta {
		d.Y = math.Copysign(f.maxDelta, d.Y)
	}
	return d
}

// Filter applies normalization, 4-sample averaging, the trackpoint curve,
// and max-delta clipping, in that order.
func (f *TrackpointFilter) Filter(raw Delta, _ uint64) Delta {
	scaled := Delta{X: raw.X * f.scaleFactor, Y: raw.Y * f.scaleFactor}
	avg := f.averageDelta(scaled)

	delta := math.Hypot(avg.X, avg.Y)
	factor := f.profile.Factor(delta, 0)

	out := Delta{X: avg.X * factor, Y: avg.Y * factor}
	return f.clipToMaxDelta(out)
}

// FilterConstant applies normalization, averaging, and clipping but
// bypasses the acceleration curve.
func (f *TrackpointFilter) FilterConstant(raw Delta, _ uint64) Delta {
	scaled := Delta{X: raw.X * f.scaleFactor, Y: raw.Y * f.scaleFactor}
	avg := f.averageDelta(scaled)
	return f.clipToMaxDelta(avg)
}

// Restart is a no-op for the trackpoint filter — it has no velocity
// tracker, only the bounded history window, which self-heals within 4
// samples.
func (f *TrackpointFilter) Restart(uint64) {}

// SetSpeed applies the trackpoint speed-adjustment formulas.
func (f *TrackpointFilter) SetSpeed(adjustment float64) bool {
	return f.profile.SetSpeed(adjustment)
}
