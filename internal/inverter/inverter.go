// Package inverter finds the acquisition cost whose optimal amortized cost
// matches a target, by bisection over a bounded fee bracket.
package inverter

import (
	"errors"
	"fmt"
	"math"

	"github.com/iwvelando/hiring-cost/internal/config"
	"github.com/iwvelando/hiring-cost/pkg/amortization"
	"github.com/iwvelando/hiring-cost/pkg/constants"
	"github.com/iwvelando/hiring-cost/pkg/format"
	"github.com/iwvelando/hiring-cost/pkg/mathutil"
	"github.com/iwvelando/hiring-cost/pkg/optimization"
	"go.uber.org/zap"
)

// ErrNonMonotonic is returned when the optimal cost is observed to decrease as
// the fee increases, which would make bisection meaningless.
var ErrNonMonotonic = errors.New("optimal cost is not monotonic in acquisition cost")

// Status classifies the outcome of an inversion.
type Status string

const (
	// StatusFound means a fee within tolerance of the target was found.
	StatusFound Status = "found"
	// StatusTargetTooLow means even the lowest fee costs more than the target.
	StatusTargetTooLow Status = "target_too_low"
	// StatusTargetTooHigh means even the highest fee costs less than the target.
	StatusTargetTooHigh Status = "target_too_high"
	// StatusNotConverged means the iteration cap was hit away from either bound.
	StatusNotConverged Status = "not_converged"
)

// Result is the fee found for a target together with its optimal duration.
type Result struct {
	AcquisitionCost float64 `json:"acquisitionCost"`
	Duration        int     `json:"duration"`
	AchievedCost    float64 `json:"achievedCost"`
	Iterations      int     `json:"iterations"`
	Converged       bool    `json:"converged"`
	Status          Status  `json:"status"`
	// Valid applies the bracket policy: a converged fee strictly above
	// lowerBound+1 and not above upperBound.
	Valid bool `json:"valid"`
}

// DurationOptimizer returns the minimal amortized cost and its duration for a
// fee. amortization.Model satisfies it.
type DurationOptimizer interface {
	OptimalDuration(salary float64, level int, acquisitionCost float64) amortization.Result
}

// Inverter runs fee inversions against a duration model.
type Inverter struct {
	logger *zap.Logger
	model  DurationOptimizer
	cfg    config.InverterConfig
	lower  float64
	upper  float64
}

// New constructs an Inverter. The configuration is normalized and validated.
func New(logger *zap.Logger, model DurationOptimizer, cfg config.InverterConfig) (*Inverter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if model == nil {
		return nil, fmt.Errorf("duration optimizer cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	lower, upper := cfg.Bounds()
	return &Inverter{logger: logger, model: model, cfg: cfg, lower: lower, upper: upper}, nil
}

// Bounds returns the fee bracket searched.
func (inv *Inverter) Bounds() (float64, float64) {
	return inv.lower, inv.upper
}

// Invert searches for the fee whose optimal amortized cost is within the
// configured tolerance of targetCost. When the monotonicity check is enabled
// it runs first and its failure is returned as an error wrapping
// ErrNonMonotonic; otherwise Invert never fails.
func (inv *Inverter) Invert(targetCost, salary float64, level int) (Result, error) {
	if inv.cfg.ValidateMonotonicity {
		if err := inv.CheckMonotonic(salary, level); err != nil {
			return Result{}, err
		}
	}

	lower, upper := inv.lower, inv.upper
	var (
		mid   float64
		trial amortization.Result
	)

	iterations := 0
	for iterations < inv.cfg.MaxIterations {
		mid = mathutil.Midpoint(lower, upper)
		trial = inv.model.OptimalDuration(salary, level, mid)
		iterations++

		if math.Abs(trial.Cost-targetCost) < inv.cfg.Tolerance {
			result := inv.result(mid, trial, iterations, true)
			inv.log(targetCost, salary, level, result)
			return result, nil
		}
		if trial.Cost > targetCost {
			upper = mid
		} else {
			lower = mid
		}
	}

	result := inv.result(mid, trial, iterations, false)
	inv.log(targetCost, salary, level, result)
	return result, nil
}

func (inv *Inverter) result(fee float64, trial amortization.Result, iterations int, converged bool) Result {
	result := Result{
		AcquisitionCost: fee,
		Duration:        trial.Duration,
		AchievedCost:    trial.Cost,
		Iterations:      iterations,
		Converged:       converged,
	}

	switch {
	case converged:
		result.Status = StatusFound
	case fee <= inv.lower+constants.BoundaryMargin:
		result.Status = StatusTargetTooLow
	case fee >= inv.upper-constants.BoundaryMargin:
		result.Status = StatusTargetTooHigh
	default:
		result.Status = StatusNotConverged
	}

	result.Valid = converged && WithinBracket(fee, inv.lower, inv.upper)
	return result
}

func (inv *Inverter) log(targetCost, salary float64, level int, result Result) {
	logFn, msg := inv.logger.Debug, "fee inversion completed"
	if !result.Converged {
		logFn, msg = inv.logger.Warn, "fee inversion did not converge"
	}
	logFn(msg,
		zap.String("op", "inverter.Invert"),
		zap.Float64("targetCost", targetCost),
		zap.Float64("salary", salary),
		zap.Int("level", level),
		zap.Float64("acquisitionCost", result.AcquisitionCost),
		zap.Int("duration", result.Duration),
		zap.Float64("achievedCost", result.AchievedCost),
		zap.Int("iterations", result.Iterations),
		zap.Bool("converged", result.Converged),
		zap.String("status", string(result.Status)),
	)
}

// WithinBracket reports whether fee counts as a usable answer for the bracket
// [lower, upper]. Fees at or within one unit of the lower bound, or beyond the
// upper bound, indicate the target was unreachable.
func WithinBracket(fee, lower, upper float64) bool {
	return fee > lower+constants.BoundaryMargin && fee <= upper
}

// CheckMonotonic samples the bracket and verifies the optimal cost never
// decreases as the fee increases for the given salary and level.
func (inv *Inverter) CheckMonotonic(salary float64, level int) error {
	samples := inv.cfg.MonotonicitySamples
	step := (inv.upper - inv.lower) / float64(samples-1)

	previousFee := inv.lower
	previous := inv.model.OptimalDuration(salary, level, previousFee).Cost
	for i := 1; i < samples; i++ {
		fee := inv.lower + float64(i)*step
		cost := inv.model.OptimalDuration(salary, level, fee).Cost
		if cost < previous && !mathutil.WithinTolerance(cost, previous, constants.CurrencyTolerance) {
			inv.logger.Warn("optimal cost decreased across fee samples",
				zap.String("op", "inverter.CheckMonotonic"),
				zap.Float64("salary", salary),
				zap.Int("level", level),
				zap.Float64("fee", fee),
				zap.Float64("cost", cost),
				zap.Float64("previousCost", previous),
			)
			return fmt.Errorf("%w: cost %.2f at fee %.2f below %.2f at fee %.2f (salary %.2f, level %d)",
				ErrNonMonotonic, cost, fee, previous, previousFee, salary, level)
		}
		previous, previousFee = cost, fee
	}
	return nil
}

// Summary converts a result into the shared summary representation.
func Summary(targetCost, salary float64, level int, result Result) optimization.Summary {
	summary := optimization.Summary{
		Level:           level,
		Salary:          salary,
		TargetCost:      targetCost,
		AcquisitionCost: result.AcquisitionCost,
		Duration:        result.Duration,
		AchievedCost:    result.AchievedCost,
		Iterations:      result.Iterations,
		Converged:       result.Converged,
		Status:          string(result.Status),
		Valid:           result.Valid,
	}
	if result.Valid {
		summary.FeeDisplay = format.Currency(result.AcquisitionCost)
	}

	switch result.Status {
	case StatusTargetTooLow:
		summary.Notes = append(summary.Notes, fmt.Sprintf(
			"target %s is below the cost reached at the minimum fee (%s)",
			format.Currency(targetCost), format.Currency(result.AchievedCost)))
	case StatusTargetTooHigh:
		summary.Notes = append(summary.Notes, fmt.Sprintf(
			"target %s is above the cost reached at the maximum fee (%s)",
			format.Currency(targetCost), format.Currency(result.AchievedCost)))
	case StatusNotConverged:
		summary.Notes = append(summary.Notes, fmt.Sprintf(
			"no fee within tolerance after %d iterations", result.Iterations))
	case StatusFound:
		if !result.Valid {
			summary.Notes = append(summary.Notes, "fee lies on the search bracket boundary")
		}
	}
	return summary
}
