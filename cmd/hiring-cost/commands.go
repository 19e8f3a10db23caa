package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/iwvelando/hiring-cost/internal/config"
	"github.com/iwvelando/hiring-cost/internal/feetable"
	"github.com/iwvelando/hiring-cost/internal/inverter"
	"github.com/iwvelando/hiring-cost/internal/server"
	"github.com/iwvelando/hiring-cost/pkg/amortization"
	"github.com/iwvelando/hiring-cost/pkg/constants"
	"github.com/iwvelando/hiring-cost/pkg/optimization"
	"github.com/iwvelando/hiring-cost/pkg/output"
	"github.com/iwvelando/hiring-cost/pkg/reference"
	"github.com/iwvelando/hiring-cost/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func (c *cli) model() amortization.Model {
	return amortization.NewModel(c.conf.Model.MaxDuration)
}

func (c *cli) newInverter() (*inverter.Inverter, error) {
	return inverter.New(c.logger, c.model(), c.conf.Inverter)
}

func newTableCmd(c *cli) *cobra.Command {
	var (
		level     int
		spacing   float64
		outputDir string
		noFiles   bool
	)

	cmd := &cobra.Command{
		Use:   "table",
		Short: "Compute the hiring-fee and optimal-duration tables for a level",
		Long: `Compute, for every salary in the level's range and every target cost, the largest
hiring fee that keeps the amortized cost at the target, and the duration achieving it.
Both tables are printed and written as level<L>-hiring-fees.csv and
level<L>-optimal-duration.csv. Unreachable targets are left empty.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("output-dir") {
				c.conf.Batch.OutputDir = outputDir
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return c.runTable(ctx, cmd.OutOrStdout(), level, spacing, !noFiles)
		},
	}

	cmd.Flags().IntVar(&level, "level", 0, "level to tabulate")
	cmd.Flags().Float64Var(&spacing, "spacing", constants.DefaultSalarySpacing, "salary grid spacing")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "directory for the CSV files (overrides batch.outputDir)")
	cmd.Flags().BoolVar(&noFiles, "no-files", false, "print the tables without writing CSV files")
	_ = cmd.MarkFlagRequired("level")
	return cmd
}

func (c *cli) runTable(ctx context.Context, w io.Writer, level int, spacing float64, writeFiles bool) error {
	if err := validation.ValidateLevel(level); err != nil {
		return err
	}
	if err := validation.ValidateSpacing(spacing); err != nil {
		return err
	}
	format, err := c.format()
	if err != nil {
		return err
	}

	req := feetable.NewRequest(c.conf.Batch, level, spacing)
	if _, err := req.Salaries(); err != nil {
		return err
	}

	inv, err := c.newInverter()
	if err != nil {
		return err
	}
	builder := feetable.NewBuilder(c.logger, inv, c.conf.Batch.Workers)
	table, err := builder.Build(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to compute fee table: %w", err)
	}

	switch format {
	case constants.OutputFormatPretty:
		output.PrettyFormat(w, table)
	case constants.OutputFormatCSV:
		if err := output.CsvFormat(w, table); err != nil {
			return err
		}
	case constants.OutputFormatJSON:
		if err := output.JSON(w, table); err != nil {
			return err
		}
	}

	if !writeFiles {
		return nil
	}
	paths, err := output.WriteFiles(c.conf.Batch.OutputDir, table)
	if err != nil {
		return err
	}
	for _, path := range paths {
		c.logger.Info("wrote table", zap.String("op", "main.table"), zap.String("path", path))
	}
	return nil
}

func newInvertCmd(c *cli) *cobra.Command {
	var (
		salary float64
		level  int
		target float64
	)

	cmd := &cobra.Command{
		Use:   "invert",
		Short: "Find the largest hiring fee that reaches a target amortized cost",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInvert(cmd.OutOrStdout(), salary, level, target)
		},
	}
	cmd.Flags().Float64Var(&salary, "salary", 0, "starting periodic salary")
	cmd.Flags().IntVar(&level, "level", 0, "level")
	cmd.Flags().Float64Var(&target, "target", 0, "target amortized cost")
	for _, name := range []string{"salary", "level", "target"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func (c *cli) runInvert(w io.Writer, salary float64, level int, target float64) error {
	if err := firstError(
		validation.ValidateSalary(salary),
		validation.ValidateLevel(level),
		validation.ValidateTargetCost(target),
	); err != nil {
		return err
	}
	format, err := c.format()
	if err != nil {
		return err
	}

	inv, err := c.newInverter()
	if err != nil {
		return err
	}
	result, err := inv.Invert(target, salary, level)
	if err != nil {
		return err
	}
	summary := inverter.Summary(target, salary, level, result)
	if !summary.Valid {
		lower, upper := inv.Bounds()
		c.logger.Info("no usable fee inside the search bracket",
			zap.String("op", "main.invert"),
			zap.String("status", summary.Status),
			zap.Float64("lowerBound", lower),
			zap.Float64("upperBound", upper),
		)
	}

	switch format {
	case constants.OutputFormatJSON:
		return output.JSON(w, summary)
	case constants.OutputFormatCSV:
		fee := ""
		if summary.Valid {
			fee = fmt.Sprintf("%.2f", summary.AcquisitionCost)
		}
		records := [][]string{
			{"level", "salary", "target", "fee", "duration", "status"},
			{fmt.Sprint(level), fmt.Sprint(salary), fmt.Sprint(target), fee, fmt.Sprint(summary.Duration), summary.Status},
		}
		text, err := output.CsvString(records)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, text)
		return err
	default:
		output.PrettySummary(w, summary)
		return nil
	}
}

type feeFlags struct {
	salary float64
	level  int
	fee    float64
}

func (f *feeFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.salary, "salary", 0, "starting periodic salary")
	cmd.Flags().IntVar(&f.level, "level", 0, "level")
	cmd.Flags().Float64Var(&f.fee, "fee", 0, "one-time acquisition cost")
	_ = cmd.MarkFlagRequired("salary")
	_ = cmd.MarkFlagRequired("level")
}

func (f feeFlags) validate() error {
	return firstError(
		validation.ValidateSalary(f.salary),
		validation.ValidateLevel(f.level),
		validation.ValidateAcquisitionCost(f.fee),
	)
}

func newOptimizeCmd(c *cli) *cobra.Command {
	var flags feeFlags
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Find the retention duration minimizing the amortized cost",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runOptimize(cmd.OutOrStdout(), flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func (c *cli) runOptimize(w io.Writer, flags feeFlags) error {
	if err := flags.validate(); err != nil {
		return err
	}
	format, err := c.format()
	if err != nil {
		return err
	}

	result := c.model().OptimalDuration(flags.salary, flags.level, flags.fee)
	switch format {
	case constants.OutputFormatJSON:
		return output.JSON(w, result)
	case constants.OutputFormatCSV:
		text, err := output.CsvString([][]string{
			{"duration", "cost"},
			{fmt.Sprint(result.Duration), fmt.Sprintf("%.2f", result.Cost)},
		})
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, text)
		return err
	default:
		fmt.Fprintf(w, "Optimal duration %d with amortized cost %.2f\n", result.Duration, result.Cost)
		return nil
	}
}

func newCurveCmd(c *cli) *cobra.Command {
	var flags feeFlags
	cmd := &cobra.Command{
		Use:   "curve",
		Short: "Print the amortized cost at every duration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCurve(cmd.OutOrStdout(), flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func (c *cli) runCurve(w io.Writer, flags feeFlags) error {
	if err := flags.validate(); err != nil {
		return err
	}
	format, err := c.format()
	if err != nil {
		return err
	}

	curve := c.model().Curve(flags.salary, flags.level, flags.fee)
	switch format {
	case constants.OutputFormatJSON:
		return output.JSON(w, curve)
	case constants.OutputFormatCSV:
		return output.CsvCurve(w, curve)
	default:
		output.PrettyCurve(w, curve)
		return nil
	}
}

func newExploreCmd(c *cli) *cobra.Command {
	var (
		salary float64
		levels []int
	)
	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Estimate the hiring fee from reference data and optimize each level",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExplore(cmd.OutOrStdout(), salary, levels)
		},
	}
	cmd.Flags().Float64Var(&salary, "salary", 0, "starting periodic salary")
	cmd.Flags().IntSliceVar(&levels, "levels", nil, "levels to explore (default: every level with reference data)")
	_ = cmd.MarkFlagRequired("salary")
	return cmd
}

func (c *cli) runExplore(w io.Writer, salary float64, levels []int) error {
	if err := validation.ValidateSalary(salary); err != nil {
		return err
	}
	if len(levels) == 0 {
		levels = c.conf.Reference.Set().Levels()
	}
	for _, level := range levels {
		if err := validation.ValidateLevel(level); err != nil {
			return err
		}
	}
	format, err := c.format()
	if err != nil {
		return err
	}

	estimates := optimization.Explore(c.model(), c.conf.Reference.Estimate, salary, levels)
	switch format {
	case constants.OutputFormatJSON:
		return output.JSON(w, estimates)
	case constants.OutputFormatCSV:
		records := [][]string{{"level", "salary", "fee", "duration", "cost", "error"}}
		for _, e := range estimates {
			if e.Error != "" {
				records = append(records, []string{fmt.Sprint(e.Level), fmt.Sprint(e.Salary), "", "", "", e.Error})
				continue
			}
			records = append(records, []string{
				fmt.Sprint(e.Level), fmt.Sprint(e.Salary),
				fmt.Sprintf("%.2f", e.AcquisitionCost), fmt.Sprint(e.Duration), fmt.Sprintf("%.2f", e.Cost), "",
			})
		}
		text, err := output.CsvString(records)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, text)
		return err
	default:
		output.PrettyEstimates(w, estimates)
		return nil
	}
}

func newReferenceCmd(c *cli) *cobra.Command {
	var (
		defaults bool
		asYAML   bool
	)
	cmd := &cobra.Command{
		Use:   "reference",
		Short: "Show the reference observations used for fee estimates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runReference(cmd.OutOrStdout(), defaults, asYAML)
		},
	}
	cmd.Flags().BoolVar(&defaults, "defaults", false, "show the built-in observations instead of the configured ones")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print a reference section that can be pasted into the configuration")
	return cmd
}

func (c *cli) runReference(w io.Writer, defaults, asYAML bool) error {
	set := c.conf.Reference.Set()
	if defaults {
		set = reference.DefaultSet()
	}

	if asYAML {
		data, err := yaml.Marshal(map[string]config.ReferenceConfig{
			"reference": {Levels: config.FromSet(set)},
		})
		if err != nil {
			return fmt.Errorf("failed to encode reference data: %w", err)
		}
		_, err = w.Write(data)
		return err
	}

	format, err := c.format()
	if err != nil {
		return err
	}
	if format == constants.OutputFormatJSON {
		return output.JSON(w, config.FromSet(set))
	}
	output.PrettyReference(w, set)
	return nil
}

func newValidateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and list warnings",
		RunE: func(cmd *cobra.Command, args []string) error {
			warnings := c.conf.ValidateConfiguration()
			w := cmd.OutOrStdout()
			if len(warnings) == 0 {
				fmt.Fprintln(w, "Configuration is valid")
				return nil
			}
			fmt.Fprintf(w, "Configuration is valid with %d warning(s):\n", len(warnings))
			for _, warning := range warnings {
				fmt.Fprintf(w, "  - %s\n", warning)
			}
			return nil
		},
	}
}

func newServeCmd(c *cli) *cobra.Command {
	var (
		serverConfigPath string
		address          string
		maxRequestSize   string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			serverConf, err := server.LoadConfig(serverConfigPath)
			if err != nil {
				return err
			}
			if err := applyServeOverrides(serverConf, address, maxRequestSize); err != nil {
				return err
			}

			logger := c.logger
			if serverConf.Logging != (config.LoggingConfig{}) || c.logLevel != "" {
				logger, err = initializeLogger(mergeLogging(c.conf.Logging, serverConf.Logging), c.logLevel)
				if err != nil {
					return fmt.Errorf("failed to initialize logger: %w", err)
				}
				defer func() { _ = logger.Sync() }()
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return server.Run(ctx, logger, serverConf, c.conf, version)
		},
	}
	cmd.Flags().StringVar(&serverConfigPath, "server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	cmd.Flags().StringVar(&address, "address", "", "listen address override")
	cmd.Flags().StringVar(&maxRequestSize, "max-request-size", "", "request body limit override, e.g. 512K or 1M")
	return cmd
}

// applyServeOverrides applies the serve flags on top of the server config.
func applyServeOverrides(conf *server.Config, address, maxRequestSize string) error {
	if address != "" {
		conf.Address = address
	}
	if maxRequestSize != "" {
		size, err := server.ParseSize(maxRequestSize)
		if err != nil {
			return fmt.Errorf("invalid --max-request-size: %w", err)
		}
		conf.SetRequestSizeBytes(size)
	}
	return nil
}

// mergeLogging overlays the server's logging settings on the application's.
func mergeLogging(base, override config.LoggingConfig) config.LoggingConfig {
	if override.Level != "" {
		base.Level = override.Level
	}
	if override.Format != "" {
		base.Format = override.Format
	}
	if override.OutputFile != "" {
		base.OutputFile = override.OutputFile
	}
	return base
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
