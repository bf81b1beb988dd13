package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimiterAllowsBurst(t *testing.T) {
	l := New(3, 1000)
	assert.Equal(t, Exceeded, l.Check(0))
	assert.Equal(t, Exceeded, l.Check(0))
	assert.Equal(t, Underflow, l.Check(0))
	assert.Equal(t, Threshold, l.Check(0))
}

func TestLimiterRefillsOverTime(t *testing.T) {
	l := New(1, 1000)
	assert.Equal(t, Underflow, l.Check(0))
	assert.Equal(t, Threshold, l.Check(500))
	assert.Equal(t, Underflow, l.Check(1000))
}

func TestLimiterTracksSuppressedCount(t *testing.T) {
	l := New(1, 1000)
	l.Check(0)
	l.Check(0)
	l.Check(0)
	assert.Equal(t, 2, l.Suppressed())
}
