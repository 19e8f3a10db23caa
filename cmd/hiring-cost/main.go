package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/iwvelando/hiring-cost/internal/config"
	"github.com/iwvelando/hiring-cost/pkg/constants"
	"github.com/iwvelando/hiring-cost/pkg/validation"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// Determine log level (CLI override takes precedence)
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}

	var config zap.Config
	switch format {
	case "console":
		config = zap.NewDevelopmentConfig()
	case "json":
		config = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	// Command output goes to stdout; keep logs off it.
	config.OutputPaths = []string{"stderr"}

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		}
		_ = file.Close()

		config.OutputPaths = []string{loggingConfig.OutputFile}
		config.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return config.Build()
}

// cli holds global flags and the state every subcommand shares.
type cli struct {
	configPath   string
	envFile      string
	outputFormat string
	logLevel     string

	conf   *config.Configuration
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	root, _ := newRoot()
	return root
}

func newRoot() (*cobra.Command, *cli) {
	c := &cli{}

	root := &cobra.Command{
		Use:   "hiring-cost",
		Short: "Amortized hiring cost calculator",
		Long: `hiring-cost computes the amortized per-period cost of a hire, the retention
duration that minimizes it, and the largest hiring fee that keeps the cost at a target.

Environment Variables:
  HIRING_COST_<SECTION>_<KEY>  Override configuration keys, e.g. HIRING_COST_MODEL_MAXDURATION
  A .env file in the working directory is loaded first when present.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", constants.DefaultConfigFile, "path to configuration file")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before configuration")
	root.PersistentFlags().StringVar(&c.outputFormat, "output-format", "", "type of output override: pretty, csv, json")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(
		newTableCmd(c),
		newInvertCmd(c),
		newOptimizeCmd(c),
		newCurveCmd(c),
		newExploreCmd(c),
		newReferenceCmd(c),
		newValidateCmd(c),
		newServeCmd(c),
		newVersionCmd(),
	)
	return root, c
}

func (c *cli) setup(cmd *cobra.Command) error {
	if err := loadEnvFile(c.envFile, cmd.Flags().Changed("env-file")); err != nil {
		return err
	}

	conf, err := loadConfiguration(c.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	c.conf = conf

	logger, err := initializeLogger(conf.Logging, c.logLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	c.logger = logger

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning, zap.String("op", "main"))
	}
	return nil
}

// loadEnvFile loads path into the environment. A missing file is only an
// error when the path was given explicitly.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// loadConfiguration reads the configuration file, falling back to defaults
// when the default file is absent.
func loadConfiguration(path string, explicit bool) (*config.Configuration, error) {
	if !explicit {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return config.Default(), nil
		}
	}
	conf, err := config.LoadConfiguration(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration at %s (see %s): %w", path, constants.ExampleConfigFile, err)
	}
	return conf, nil
}

// format resolves the output format: flag, then configuration, then pretty.
func (c *cli) format() (string, error) {
	format := c.conf.Output.Format
	if c.outputFormat != "" {
		format = c.outputFormat
	}
	if format == "" {
		format = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(format); err != nil {
		return "", err
	}
	return format, nil
}

// fatal reports err through the command logger. Errors raised before the
// logger exists are written to stderr as a plain line.
func (c *cli) fatal(stderr io.Writer, err error) {
	if c.logger != nil {
		c.logger.Fatal("command failed", zap.String("op", "main"), zap.Error(err))
		return
	}
	fmt.Fprintf(stderr, "hiring-cost: %v\n", err)
}

func main() {
	root, c := newRoot()
	if err := root.Execute(); err != nil {
		c.fatal(os.Stderr, err)
		os.Exit(1)
	}
}
