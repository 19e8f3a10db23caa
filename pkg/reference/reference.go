// Package reference holds observed (salary, acquisition cost) samples per
// level and estimates the acquisition cost for an arbitrary salary by linear
// interpolation over them.
package reference

import (
	"errors"
	"sort"

	"github.com/iwvelando/hiring-cost/pkg/constants"
	"github.com/iwvelando/hiring-cost/pkg/mathutil"
)

// ErrNoData is returned when a level has no usable reference points.
var ErrNoData = errors.New("no reference data")

// Point is a single observed sample. A nil Cost marks a salary with no
// observation.
type Point struct {
	Salary float64  `json:"salary" yaml:"salary" mapstructure:"salary"`
	Cost   *float64 `json:"cost,omitempty" yaml:"cost,omitempty" mapstructure:"cost"`
}

// Known reports whether the point carries an observed cost.
func (p Point) Known() bool {
	return p.Cost != nil
}

// Set maps a level to its reference points. A Set is owned by the caller;
// functions in this package never modify one they are given.
type Set map[int][]Point

// Clone returns a deep copy of the set.
func (s Set) Clone() Set {
	clone := make(Set, len(s))
	for level, points := range s {
		copied := make([]Point, len(points))
		for i, point := range points {
			copied[i] = Point{Salary: point.Salary}
			if point.Cost != nil {
				cost := *point.Cost
				copied[i].Cost = &cost
			}
		}
		clone[level] = copied
	}
	return clone
}

// Levels returns the levels present in the set in ascending order.
func (s Set) Levels() []int {
	levels := make([]int, 0, len(s))
	for level := range s {
		levels = append(levels, level)
	}
	sort.Ints(levels)
	return levels
}

// Points returns the usable points for a level: unknown costs dropped, one
// point per salary (the last one listed wins) and sorted by salary.
func (s Set) Points(level int) []Point {
	return Normalize(s[level])
}

// Normalize returns a sorted copy of points without unknown costs and with
// duplicate salaries collapsed to their last occurrence.
func Normalize(points []Point) []Point {
	bySalary := make(map[float64]int, len(points))
	normalized := make([]Point, 0, len(points))
	for _, point := range points {
		if !point.Known() {
			continue
		}
		cost := *point.Cost
		copied := Point{Salary: point.Salary, Cost: &cost}
		if idx, ok := bySalary[point.Salary]; ok {
			normalized[idx] = copied
			continue
		}
		bySalary[point.Salary] = len(normalized)
		normalized = append(normalized, copied)
	}
	sort.Slice(normalized, func(i, j int) bool {
		return normalized[i].Salary < normalized[j].Salary
	})
	return normalized
}

// Estimate returns the acquisition cost expected at salary given the observed
// points. A single point is returned as is; outside the observed range the
// line through the two nearest points is extended. The result is never below
// MinimumAcquisitionCost. ErrNoData is returned when no point carries a cost.
func Estimate(salary float64, points []Point) (float64, error) {
	sorted := Normalize(points)
	if len(sorted) == 0 {
		return 0, ErrNoData
	}
	return floor(estimateSorted(salary, sorted)), nil
}

// EstimateOrFloor behaves like Estimate but returns MinimumAcquisitionCost
// instead of ErrNoData.
func EstimateOrFloor(salary float64, points []Point) float64 {
	estimate, err := Estimate(salary, points)
	if err != nil {
		return constants.MinimumAcquisitionCost
	}
	return estimate
}

// Estimate looks up the points for level and estimates the cost at salary.
func (s Set) Estimate(level int, salary float64) (float64, error) {
	return Estimate(salary, s[level])
}

func estimateSorted(salary float64, points []Point) float64 {
	if len(points) == 1 {
		return *points[0].Cost
	}

	for _, point := range points {
		if point.Salary == salary {
			return *point.Cost
		}
	}

	last := len(points) - 1
	switch {
	case salary < points[0].Salary:
		return line(salary, points[0], points[1])
	case salary > points[last].Salary:
		return line(salary, points[last-1], points[last])
	}

	upper := sort.Search(len(points), func(i int) bool {
		return points[i].Salary > salary
	})
	return line(salary, points[upper-1], points[upper])
}

func line(salary float64, a, b Point) float64 {
	return mathutil.Lerp(salary, a.Salary, *a.Cost, b.Salary, *b.Cost)
}

func floor(cost float64) float64 {
	if cost < constants.MinimumAcquisitionCost {
		return constants.MinimumAcquisitionCost
	}
	return cost
}

// Cost returns a pointer to value, for building points in code.
func Cost(value float64) *float64 {
	return &value
}
