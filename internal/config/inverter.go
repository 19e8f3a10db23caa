package config

import (
	"fmt"

	"github.com/iwvelando/hiring-cost/pkg/constants"
)

const defaultMonotonicitySamples = 8

// InverterConfig defines the fee bisection bracket and stopping rules.
type InverterConfig struct {
	LowerBound           *float64 `yaml:"lowerBound,omitempty" mapstructure:"lowerBound"`
	UpperBound           *float64 `yaml:"upperBound,omitempty" mapstructure:"upperBound"`
	Tolerance            float64  `yaml:"tolerance,omitempty" mapstructure:"tolerance"`
	MaxIterations        int      `yaml:"maxIterations,omitempty" mapstructure:"maxIterations"`
	ValidateMonotonicity bool     `yaml:"validateMonotonicity,omitempty" mapstructure:"validateMonotonicity"`
	MonotonicitySamples  int      `yaml:"monotonicitySamples,omitempty" mapstructure:"monotonicitySamples"`
}

// DefaultInverterConfig returns the bracket [1000, 1000000], a tolerance of
// one currency unit and 50 iterations.
func DefaultInverterConfig() InverterConfig {
	cfg := InverterConfig{}
	cfg.Normalize()
	return cfg
}

// Normalize ensures defaults are applied before validation.
func (o *InverterConfig) Normalize() {
	if o == nil {
		return
	}
	if o.LowerBound == nil {
		lower := constants.DefaultFeeLowerBound
		o.LowerBound = &lower
	}
	if o.UpperBound == nil {
		upper := constants.DefaultFeeUpperBound
		o.UpperBound = &upper
	}
	if o.Tolerance <= 0 {
		o.Tolerance = constants.DefaultCostTolerance
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = constants.DefaultMaxIterations
	}
	if o.MonotonicitySamples <= 0 {
		o.MonotonicitySamples = defaultMonotonicitySamples
	}
}

// Validate returns an error when the inverter configuration is unusable.
func (o *InverterConfig) Validate() error {
	if o == nil {
		return fmt.Errorf("inverter configuration cannot be nil")
	}

	o.Normalize()

	if *o.LowerBound < 0 {
		return fmt.Errorf("inverter lowerBound %.2f must not be negative", *o.LowerBound)
	}
	if *o.LowerBound >= *o.UpperBound {
		return fmt.Errorf("inverter lowerBound %.2f must be less than upperBound %.2f", *o.LowerBound, *o.UpperBound)
	}
	if o.MonotonicitySamples < 2 {
		return fmt.Errorf("inverter monotonicitySamples %d must be at least 2", o.MonotonicitySamples)
	}
	return nil
}

// Bounds returns the normalized bracket.
func (o InverterConfig) Bounds() (float64, float64) {
	o.Normalize()
	return *o.LowerBound, *o.UpperBound
}
