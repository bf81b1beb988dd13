// Package hysteresis implements an elliptical dead-zone filter. The
// touchpad pipeline feeds per-touch positions through it before
// emitting motion, suppressing sensor wobble without adding lag once
// real movement starts.
package hysteresis

import "math"

// Point is a 2D point in whatever coordinate space the caller uses
// (device units, typically).
type Point struct {
	X, Y float64
}

// Margin is the elliptical dead-zone radius on each axis.
type Margin struct {
	A, B float64 // semi-axes; A along X, B along Y
}

// Filter returns center unchanged if point falls within the ellipse of
// semi-axes margin centered on center (motion filtered); otherwise it
// returns the point projected onto the margin ellipse along the
// center→point vector, so the next filtered motion resumes from the
// margin's edge rather than snapping back to center.
func Filter(point, center Point, margin Margin) Point {
	dx := point.X - center.X
	dy := point.Y - center.Y

	if margin.A == 0 || margin.B == 0 {
		return point
	}

	d := math.Sqrt((dx*dx)/(margin.A*margin.A) + (dy*dy)/(margin.B*margin.B))
	if d < 1 {
		return center
	}

	return Point{X: center.X + dx/d, Y: center.Y + dy/d}
}
