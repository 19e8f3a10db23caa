package validation

import (
	"errors"
	"fmt"
	"math"

	"github.com/iwvelando/hiring-cost/pkg/constants"
)

// Sentinel errors for request parameters.
var (
	ErrInvalidLevel    = errors.New("invalid level")
	ErrInvalidSalary   = errors.New("invalid salary")
	ErrInvalidDuration = errors.New("invalid duration")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidSpacing  = errors.New("invalid salary spacing")
)

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ValidateLevel checks the level is within the supported range.
func ValidateLevel(level int) error {
	if level < constants.MinLevel || level > constants.MaxLevel {
		return fmt.Errorf("%w: %d must be between %d and %d", ErrInvalidLevel, level, constants.MinLevel, constants.MaxLevel)
	}
	return nil
}

// ValidateSalary checks the salary is a positive finite number.
func ValidateSalary(salary float64) error {
	if !finite(salary) || salary <= 0 {
		return fmt.Errorf("%w: %v must be positive", ErrInvalidSalary, salary)
	}
	return nil
}

// ValidateDuration checks duration lies in [1, maxDuration].
func ValidateDuration(duration, maxDuration int) error {
	if duration < 1 || duration > maxDuration {
		return fmt.Errorf("%w: %d must be between 1 and %d", ErrInvalidDuration, duration, maxDuration)
	}
	return nil
}

// ValidateAcquisitionCost checks the fee is a non-negative finite number.
func ValidateAcquisitionCost(fee float64) error {
	if !finite(fee) || fee < 0 {
		return fmt.Errorf("%w: acquisition cost %v must not be negative", ErrInvalidAmount, fee)
	}
	return nil
}

// ValidateTargetCost checks the target is a positive finite number.
func ValidateTargetCost(target float64) error {
	if !finite(target) || target <= 0 {
		return fmt.Errorf("%w: target cost %v must be positive", ErrInvalidAmount, target)
	}
	return nil
}

// ValidateSpacing checks the salary grid spacing is a positive finite number.
func ValidateSpacing(spacing float64) error {
	if !finite(spacing) || spacing <= 0 {
		return fmt.Errorf("%w: %v must be positive", ErrInvalidSpacing, spacing)
	}
	return nil
}
