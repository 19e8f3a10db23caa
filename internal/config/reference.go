package config

import (
	"fmt"

	"github.com/iwvelando/hiring-cost/pkg/reference"
)

// ReferenceConfig holds the observed fee samples used to estimate the fee at
// an arbitrary salary.
type ReferenceConfig struct {
	// FallbackToFloor estimates the minimum fee for levels without data
	// instead of reporting that no data exists.
	FallbackToFloor bool             `yaml:"fallbackToFloor,omitempty" mapstructure:"fallbackToFloor"`
	Levels          []LevelReference `yaml:"levels,omitempty" mapstructure:"levels"`
}

// LevelReference lists the samples observed for one level.
type LevelReference struct {
	Level  int               `yaml:"level" mapstructure:"level"`
	Points []reference.Point `yaml:"points" mapstructure:"points"`
}

// Normalize fills in the built-in samples when none are configured.
func (r *ReferenceConfig) Normalize() {
	if r == nil || len(r.Levels) > 0 {
		return
	}
	r.Levels = FromSet(reference.DefaultSet())
}

// Validate checks levels and samples.
func (r *ReferenceConfig) Validate() error {
	seen := make(map[int]struct{}, len(r.Levels))
	for _, lr := range r.Levels {
		if lr.Level < 1 {
			return fmt.Errorf("reference level %d must be at least 1", lr.Level)
		}
		if _, dup := seen[lr.Level]; dup {
			return fmt.Errorf("reference level %d is listed more than once", lr.Level)
		}
		seen[lr.Level] = struct{}{}
		for i, point := range lr.Points {
			if point.Salary <= 0 {
				return fmt.Errorf("reference level %d point %d: salary %.2f must be positive", lr.Level, i, point.Salary)
			}
			if point.Cost != nil && *point.Cost < 0 {
				return fmt.Errorf("reference level %d point %d: cost %.2f must not be negative", lr.Level, i, *point.Cost)
			}
		}
	}
	return nil
}

// Set returns a copy of the configured samples keyed by level.
func (r ReferenceConfig) Set() reference.Set {
	set := make(reference.Set, len(r.Levels))
	for _, lr := range r.Levels {
		set[lr.Level] = append(set[lr.Level], lr.Points...)
	}
	return set.Clone()
}

// Estimate returns the fee estimated at salary for level, honouring
// FallbackToFloor.
func (r ReferenceConfig) Estimate(level int, salary float64) (float64, error) {
	set := r.Set()
	if r.FallbackToFloor {
		return reference.EstimateOrFloor(salary, set[level]), nil
	}
	return set.Estimate(level, salary)
}

// FromSet converts a reference.Set into the ordered configuration form.
func FromSet(set reference.Set) []LevelReference {
	clone := set.Clone()
	levels := make([]LevelReference, 0, len(clone))
	for _, level := range clone.Levels() {
		levels = append(levels, LevelReference{Level: level, Points: clone[level]})
	}
	return levels
}
