package optimization

import (
	"github.com/iwvelando/hiring-cost/pkg/amortization"
)

// Estimate is the optimal duration and cost for a fee estimated from
// reference data rather than supplied by the caller.
type Estimate struct {
	Level           int     `json:"level"`
	Salary          float64 `json:"salary"`
	AcquisitionCost float64 `json:"acquisitionCost"`
	Cost            float64 `json:"cost"`
	Duration        int     `json:"duration"`
	Error           string  `json:"error,omitempty"`
}

// FeeEstimator returns the acquisition cost expected at salary for level.
type FeeEstimator func(level int, salary float64) (float64, error)

// Explore estimates the fee for each level at salary and runs the duration
// optimizer on it. Levels whose fee cannot be estimated carry the error text
// and no cost.
func Explore(model amortization.Model, estimate FeeEstimator, salary float64, levels []int) []Estimate {
	estimates := make([]Estimate, 0, len(levels))
	for _, level := range levels {
		e := Estimate{Level: level, Salary: salary}
		fee, err := estimate(level, salary)
		if err != nil {
			e.Error = err.Error()
			estimates = append(estimates, e)
			continue
		}
		result := model.OptimalDuration(salary, level, fee)
		e.AcquisitionCost = fee
		e.Cost = result.Cost
		e.Duration = result.Duration
		estimates = append(estimates, e)
	}
	return estimates
}
