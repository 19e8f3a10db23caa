// Package amortization implements the periodic amortized cost model and the
// duration search that minimizes it.
//
// The amortized cost of retaining a hire for T periods is the one-time
// acquisition cost plus the salary accumulated over periods 0..T, where the
// salary compounds by the level's growth rate every period, divided by T.
package amortization

import (
	"math"

	"github.com/iwvelando/hiring-cost/pkg/constants"
)

// GrowthRate returns the periodic salary growth rate for a level:
// 0.01 at level 1 plus 0.0025 per additional level.
func GrowthRate(level int) float64 {
	return constants.BaseGrowthRate + float64(level-1)*constants.GrowthRateStep
}

// SalarySum returns the total salary paid over periods 0..duration inclusive
// when the salary grows by rate g every period.
func SalarySum(salary float64, duration int, g float64) float64 {
	if g == 0 {
		return salary * float64(duration+1)
	}
	return salary * (math.Pow(1+g, float64(duration+1)) - 1) / g
}

// AmortizedCost returns the per-period cost of retaining a hire for duration
// periods. duration must be at least 1.
func AmortizedCost(salary float64, duration int, level int, acquisitionCost float64) float64 {
	return (acquisitionCost + SalarySum(salary, duration, GrowthRate(level))) / float64(duration)
}
