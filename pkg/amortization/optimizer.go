package amortization

import (
	"math"

	"github.com/iwvelando/hiring-cost/pkg/constants"
)

// Result is the minimal amortized cost found by a duration scan and the
// duration at which it occurs.
type Result struct {
	Cost     float64 `json:"cost"`
	Duration int     `json:"duration"`
}

// Point is a single sample of the amortized cost curve.
type Point struct {
	Duration int     `json:"duration"`
	Cost     float64 `json:"cost"`
}

// Curve holds the amortized cost at every scanned duration together with the
// minimum.
type Curve struct {
	Points  []Point `json:"points"`
	Optimum Result  `json:"optimum"`
}

// Model scans durations in [1, MaxDuration].
type Model struct {
	MaxDuration int
}

// NewModel returns a Model with the given scan bound, falling back to the
// default bound when maxDuration is not positive.
func NewModel(maxDuration int) Model {
	if maxDuration < 1 {
		maxDuration = constants.DefaultMaxDuration
	}
	return Model{MaxDuration: maxDuration}
}

// DefaultModel returns a Model using DefaultMaxDuration.
func DefaultModel() Model {
	return NewModel(constants.DefaultMaxDuration)
}

func (m Model) maxDuration() int {
	if m.MaxDuration < 1 {
		return constants.DefaultMaxDuration
	}
	return m.MaxDuration
}

// OptimalDuration evaluates every duration in [1, MaxDuration] and returns the
// smallest cost. Ties keep the earliest duration. A minimum beyond MaxDuration
// is clipped to the best duration inside the range.
func (m Model) OptimalDuration(salary float64, level int, acquisitionCost float64) Result {
	best := Result{Cost: math.Inf(1), Duration: 1}
	g := GrowthRate(level)
	for duration := 1; duration <= m.maxDuration(); duration++ {
		cost := (acquisitionCost + SalarySum(salary, duration, g)) / float64(duration)
		if cost < best.Cost {
			best = Result{Cost: cost, Duration: duration}
		}
	}
	return best
}

// Curve returns the amortized cost at every duration in [1, MaxDuration].
func (m Model) Curve(salary float64, level int, acquisitionCost float64) Curve {
	n := m.maxDuration()
	curve := Curve{
		Points:  make([]Point, 0, n),
		Optimum: Result{Cost: math.Inf(1), Duration: 1},
	}
	for duration := 1; duration <= n; duration++ {
		cost := AmortizedCost(salary, duration, level, acquisitionCost)
		curve.Points = append(curve.Points, Point{Duration: duration, Cost: cost})
		if cost < curve.Optimum.Cost {
			curve.Optimum = Result{Cost: cost, Duration: duration}
		}
	}
	return curve
}

// OptimalDuration runs the scan with the default bound.
func OptimalDuration(salary float64, level int, acquisitionCost float64) Result {
	return DefaultModel().OptimalDuration(salary, level, acquisitionCost)
}
