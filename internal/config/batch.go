package config

import (
	"fmt"
	"math"
	"runtime"
	"strings"

	"github.com/iwvelando/hiring-cost/pkg/constants"
)

const (
	defaultTargetLow  = 6000.0
	defaultTargetHigh = 20000.0
	defaultTargetStep = 1000.0

	// Level 1 salaries span 4000-10000; each level shifts the range by 1000.
	defaultSalaryBase  = 4000.0
	defaultSalaryShift = 1000.0
	defaultSalaryWidth = 6000.0
)

// BatchConfig controls the fee and duration tables.
type BatchConfig struct {
	Targets      []float64     `yaml:"targets,omitempty" mapstructure:"targets"`
	SalaryRanges []SalaryRange `yaml:"salaryRanges,omitempty" mapstructure:"salaryRanges"`
	OutputDir    string        `yaml:"outputDir,omitempty" mapstructure:"outputDir"`
	Workers      int           `yaml:"workers,omitempty" mapstructure:"workers"`
}

// SalaryRange overrides the salary span used for one level.
type SalaryRange struct {
	Level int     `yaml:"level" mapstructure:"level"`
	Min   float64 `yaml:"min" mapstructure:"min"`
	Max   float64 `yaml:"max" mapstructure:"max"`
}

// DefaultTargets returns the target weekly costs 6000, 7000, ... 20000.
func DefaultTargets() []float64 {
	var targets []float64
	for target := defaultTargetLow; target <= defaultTargetHigh; target += defaultTargetStep {
		targets = append(targets, target)
	}
	return targets
}

// Normalize applies defaults.
func (b *BatchConfig) Normalize() {
	if b == nil {
		return
	}
	if len(b.Targets) == 0 {
		b.Targets = DefaultTargets()
	}
	b.OutputDir = strings.TrimSpace(b.OutputDir)
	if b.OutputDir == "" {
		b.OutputDir = constants.DefaultOutputDir
	}
	if b.Workers <= 0 {
		b.Workers = runtime.NumCPU()
	}
}

// Validate checks targets and salary ranges.
func (b *BatchConfig) Validate() error {
	for i, target := range b.Targets {
		if target <= 0 || math.IsNaN(target) || math.IsInf(target, 0) {
			return fmt.Errorf("batch target %d (%v) must be a positive number", i, target)
		}
	}
	seen := make(map[int]struct{}, len(b.SalaryRanges))
	for _, r := range b.SalaryRanges {
		if r.Level < 1 {
			return fmt.Errorf("batch salary range level %d must be at least 1", r.Level)
		}
		if _, dup := seen[r.Level]; dup {
			return fmt.Errorf("batch salary range for level %d is listed more than once", r.Level)
		}
		seen[r.Level] = struct{}{}
		if r.Min <= 0 {
			return fmt.Errorf("batch salary range level %d: min %.2f must be positive", r.Level, r.Min)
		}
		if r.Min > r.Max {
			return fmt.Errorf("batch salary range level %d: min %.2f must not exceed max %.2f", r.Level, r.Min, r.Max)
		}
	}
	return nil
}

// SalaryRange returns the salary span for level, using a configured override
// when present.
func (b BatchConfig) SalaryRange(level int) (float64, float64) {
	for _, r := range b.SalaryRanges {
		if r.Level == level {
			return r.Min, r.Max
		}
	}
	min := defaultSalaryBase + float64(level-1)*defaultSalaryShift
	return min, min + defaultSalaryWidth
}

func (b BatchConfig) minimumSalary() float64 {
	min, _ := b.SalaryRange(constants.MinLevel)
	for _, r := range b.SalaryRanges {
		if r.Min < min {
			min = r.Min
		}
	}
	return min
}
