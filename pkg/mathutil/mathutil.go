// Package mathutil provides common mathematical utility functions.
package mathutil

import "math"

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// Lerp returns the value on the line through (x1, y1) and (x2, y2) at x.
// x1 and x2 must differ.
func Lerp(x, x1, y1, x2, y2 float64) float64 {
	slope := (y2 - y1) / (x2 - x1)
	return y1 + slope*(x-x1)
}

// Midpoint returns the value halfway between a and b without overflowing.
func Midpoint(a, b float64) float64 {
	return a + (b-a)/2
}
