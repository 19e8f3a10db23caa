// Package config defines the data structures related to configuration and
// includes functions for loading, normalizing and validating it.
package config

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/iwvelando/hiring-cost/pkg/constants"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for hiring-cost.
type Configuration struct {
	Model     ModelConfig     `yaml:"model,omitempty" mapstructure:"model"`
	Inverter  InverterConfig  `yaml:"inverter,omitempty" mapstructure:"inverter"`
	Reference ReferenceConfig `yaml:"reference,omitempty" mapstructure:"reference"`
	Batch     BatchConfig     `yaml:"batch,omitempty" mapstructure:"batch"`
	Logging   LoggingConfig   `yaml:"logging,omitempty" mapstructure:"logging"`
	Output    OutputConfig    `yaml:"output,omitempty" mapstructure:"output"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty" mapstructure:"level"`           // debug, info, warn, error
	Format     string `yaml:"format,omitempty" mapstructure:"format"`         // json, console
	OutputFile string `yaml:"outputFile,omitempty" mapstructure:"outputFile"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty" mapstructure:"format"` // pretty, csv, json
}

// ModelConfig bounds the duration scan.
type ModelConfig struct {
	MaxDuration int `yaml:"maxDuration,omitempty" mapstructure:"maxDuration"`
}

// Default returns a normalized configuration with every default applied.
func Default() *Configuration {
	conf := &Configuration{}
	conf.Normalize()
	return conf
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. Environment variables prefixed with HIRING_COST_
// override scalar keys, e.g. HIRING_COST_MODEL_MAXDURATION.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	return decode(v)
}

// LoadConfigurationFromReader loads a YAML-formatted configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Only keys viper knows about are eligible for env overrides.
	v.SetDefault("model.maxDuration", constants.DefaultMaxDuration)
	v.SetDefault("inverter.tolerance", constants.DefaultCostTolerance)
	v.SetDefault("inverter.maxIterations", constants.DefaultMaxIterations)
	v.SetDefault("inverter.validateMonotonicity", false)
	v.SetDefault("reference.fallbackToFloor", false)
	v.SetDefault("batch.outputDir", constants.DefaultOutputDir)
	v.SetDefault("batch.workers", 0)
	v.SetDefault("logging.level", "")
	v.SetDefault("logging.format", "")
	v.SetDefault("logging.outputFile", "")
	v.SetDefault("output.format", "")
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	configuration.Normalize()
	if err := configuration.Validate(); err != nil {
		return nil, err
	}

	return &configuration, nil
}

// Normalize applies defaults to every section.
func (conf *Configuration) Normalize() {
	if conf.Model.MaxDuration <= 0 {
		conf.Model.MaxDuration = constants.DefaultMaxDuration
	}
	conf.Inverter.Normalize()
	conf.Reference.Normalize()
	conf.Batch.Normalize()
	conf.Output.Format = strings.ToLower(strings.TrimSpace(conf.Output.Format))
}

// Validate returns the first problem found in the configuration.
func (conf *Configuration) Validate() error {
	if conf.Model.MaxDuration < 1 {
		return fmt.Errorf("model maxDuration %d must be at least 1", conf.Model.MaxDuration)
	}
	if err := conf.Inverter.Validate(); err != nil {
		return err
	}
	if err := conf.Reference.Validate(); err != nil {
		return err
	}
	if err := conf.Batch.Validate(); err != nil {
		return err
	}
	return nil
}

// ValidateConfiguration performs general validation of the configuration and
// returns warnings for settings that are legal but likely unintended.
func (conf *Configuration) ValidateConfiguration() []string {
	var warnings []string

	if conf.Inverter.ValidateMonotonicity && conf.Inverter.MonotonicitySamples < 3 {
		warnings = append(warnings, fmt.Sprintf("inverter monotonicity check uses only %d samples", conf.Inverter.MonotonicitySamples))
	}

	for _, level := range conf.Reference.Set().Levels() {
		if level < constants.MinLevel || level > constants.MaxLevel {
			warnings = append(warnings, fmt.Sprintf("reference data for level %d is outside levels %d-%d and will never be used",
				level, constants.MinLevel, constants.MaxLevel))
		}
	}

	if conf.Reference.FallbackToFloor {
		warnings = append(warnings, "reference fallbackToFloor is enabled: levels without data estimate the minimum fee")
	}

	for _, target := range conf.Batch.Targets {
		if target < conf.Batch.minimumSalary() {
			warnings = append(warnings, fmt.Sprintf("batch target %.2f is below every configured salary and can never be reached", target))
		}
	}

	if len(warnings) == 0 {
		return nil
	}
	return warnings
}

// TableFingerprint hashes every setting that changes the contents of a fee
// table: the duration bound, the inverter bracket and stopping rules, the
// batch targets and the salary ranges.
func (conf *Configuration) TableFingerprint() string {
	lower, upper := conf.Inverter.Bounds()

	digest := xxhash.New()
	fmt.Fprintf(digest, "model:%d;inverter:%g:%g:%g:%d;targets:%v;",
		conf.Model.MaxDuration, lower, upper, conf.Inverter.Tolerance, conf.Inverter.MaxIterations, conf.Batch.Targets)

	ranges := append([]SalaryRange(nil), conf.Batch.SalaryRanges...)
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Level < ranges[j].Level })
	for _, r := range ranges {
		fmt.Fprintf(digest, "range:%d:%g:%g;", r.Level, r.Min, r.Max)
	}
	return strconv.FormatUint(digest.Sum64(), 16)
}
