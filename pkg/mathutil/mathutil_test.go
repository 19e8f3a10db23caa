package mathutil

import (
	"math"
	"testing"
)

func TestWithinTolerance(t *testing.T) {
	if !WithinTolerance(10000, 10000.9, 1) {
		t.Error("expected 10000 and 10000.9 to be within 1")
	}
	if WithinTolerance(10000, 10001.5, 1) {
		t.Error("expected 10000 and 10001.5 to be outside 1")
	}
}

func TestLerp(t *testing.T) {
	tests := []struct {
		name     string
		x        float64
		expected float64
	}{
		{"At first point", 4000, 2000},
		{"At second point", 6000, 3000},
		{"Midpoint", 5000, 2500},
		{"Extrapolate below", 2000, 1000},
		{"Extrapolate above", 8000, 4000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Lerp(tt.x, 4000, 2000, 6000, 3000)
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("Lerp(%v) = %v, expected %v", tt.x, result, tt.expected)
			}
		})
	}
}

func TestMidpoint(t *testing.T) {
	if got := Midpoint(1000, 1e6); got != 500500 {
		t.Errorf("Midpoint(1000, 1e6) = %v, expected 500500", got)
	}
}
