// Package devconfig defines the per-device enumerated configuration
// options and the typed config-status result: out-of-range values are
// rejected without mutating in-memory state.
package devconfig

import "fmt"

// Status is the typed config-status return.
type Status int

const (
	StatusSuccess Status = iota
	StatusUnsupported
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusUnsupported:
		return "unsupported"
	case StatusInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// TapMap selects which finger-count maps to which button for tap-to-click.
type TapMap int

const (
	TapMapLRM TapMap = iota // 1/2/3 fingers -> left/right/middle
	TapMapLMR               // 1/2/3 fingers -> left/middle/right
)

// ScrollMethod selects the touchpad scrolling method.
type ScrollMethod int

const (
	ScrollNone ScrollMethod = iota
	ScrollTwoFinger
	ScrollEdge
	ScrollButtonDown
)

// ClickMethod selects how a clickpad resolves which button a physical
// click maps to.
type ClickMethod int

const (
	ClickFinger ClickMethod = iota
	ClickButtonAreas
)

// AccelProfileKind selects the named acceleration curve.
type AccelProfileKind int

const (
	AccelAdaptive AccelProfileKind = iota
	AccelFlat
	AccelDeviceSpeedCurve
)

// SendEventsMode is the touchpad suspension policy.
type SendEventsMode int

const (
	SendEventsEnabled SendEventsMode = iota
	SendEventsDisabled
	SendEventsDisabledOnExternalMouse
)

// Matrix is a 2x3 calibration/rotation matrix applied to absolute
// coordinates, row-major [a b c; d e f] as in a standard affine transform.
type Matrix [6]float64

// Identity returns the identity calibration matrix.
func Identity() Matrix {
	return Matrix{1, 0, 0, 0, 1, 0}
}

// Apply transforms (x, y) through the matrix.
func (m Matrix) Apply(x, y float64) (float64, float64) {
	return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
}

// Options is the full enumerated configuration set for one device.
// Default returns the documented default configuration; the zero value
// differs from it.
type Options struct {
	TapEnabled  bool
	TapMap      TapMap
	TapDrag     bool
	TapDragLock bool

	ScrollMethod ScrollMethod
	ScrollNatural bool
	ScrollButton  uint16

	ClickMethod ClickMethod

	AccelSpeed   float64
	AccelProfile AccelProfileKind

	LeftHanded       bool
	MiddleEmulation  bool
	RotationAngleDeg int // multiples of 90; currently used only for trackballs
	DWT              bool
	SendEventsMode   SendEventsMode
	CalibrationMatrix Matrix
}

// Default returns the documented baseline configuration.
func Default() Options {
	return Options{
		TapMap:            TapMapLRM,
		ScrollMethod:      ScrollTwoFinger,
		ScrollNatural:     true,
		ClickMethod:       ClickFinger,
		AccelProfile:      AccelAdaptive,
		DWT:               true,
		SendEventsMode:    SendEventsEnabled,
		CalibrationMatrix: Identity(),
	}
}

// SetAccelSpeed validates and applies an acceleration speed adjustment,
// returning StatusInvalid without mutating Options if out of [-1, 1]
//.
func (o *Options) SetAccelSpeed(speed float64) Status {
	if speed < -1.0 || speed > 1.0 {
		return StatusInvalid
	}
	o.AccelSpeed = speed
	return StatusSuccess
}

// SetRotationAngle validates and applies a rotation angle; only 90°
// multiples are supported.
func (o *Options) SetRotationAngle(degrees int) Status {
	if degrees%90 != 0 {
		return StatusInvalid
	}
	o.RotationAngleDeg = ((degrees % 360) + 360) % 360
	return StatusSuccess
}

// SetScrollMethod validates a scroll method is supported by the given
// capability flags before applying it (e.g. edge scroll needs a touchpad
// surface). capable is a caller-supplied predicate so devconfig doesn't
// need to know about device capability bits itself.
func (o *Options) SetScrollMethod(method ScrollMethod, capable func(ScrollMethod) bool) Status {
	if capable != nil && !capable(method) {
		return StatusUnsupported
	}
	o.ScrollMethod = method
	return StatusSuccess
}

// ValidationError describes why SetCalibrationMatrix rejected a matrix.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("invalid calibration matrix: %s", e.Reason) }

// SetCalibrationMatrix validates the matrix is non-degenerate (non-zero
// determinant of the linear part) before applying it.
func (o *Options) SetCalibrationMatrix(m Matrix) (Status, error) {
	det := m[0]*m[4] - m[1]*m[3]
	if det == 0 {
		return StatusInvalid, &ValidationError{Reason: "singular matrix"}
	}
	o.CalibrationMatrix = m
	return StatusSuccess, nil
}
