package devconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetAccelSpeedRejectsOutOfRange(t *testing.T) {
	o := Default()
	status := o.SetAccelSpeed(2.0)
	assert.Equal(t, StatusInvalid, status)
	assert.Equal(t, 0.0, o.AccelSpeed)

	status = o.SetAccelSpeed(-0.5)
	assert.Equal(t, StatusSuccess, status)
	assert.Equal(t, -0.5, o.AccelSpeed)
}

func TestSetRotationAngleOnlyAccepts90Multiples(t *testing.T) {
	o := Default()
	assert.Equal(t, StatusInvalid, o.SetRotationAngle(45))
	assert.Equal(t, StatusSuccess, o.SetRotationAngle(450))
	assert.Equal(t, 90, o.RotationAngleDeg)
}

func TestSetScrollMethodRespectsCapability(t *testing.T) {
	o := Default()
	status := o.SetScrollMethod(ScrollEdge, func(ScrollMethod) bool { return false })
	assert.Equal(t, StatusUnsupported, status)
	assert.Equal(t, ScrollTwoFinger, o.ScrollMethod)
}

func TestSetCalibrationMatrixRejectsSingular(t *testing.T) {
	o := Default()
	_, err := o.SetCalibrationMatrix(Matrix{1, 1, 0, 1, 1, 0})
	assert.Error(t, err)
}

func TestIdentityMatrixIsNoop(t *testing.T) {
	x, y := Identity().Apply(3, 4)
	assert.Equal(t, 3.0, x)
	assert.Equal(t, 4.0, y)
}
