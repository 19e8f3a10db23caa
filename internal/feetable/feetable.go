// Package feetable computes, for one level, the maximum acquisition cost and
// the optimal duration across a grid of salaries and target costs.
package feetable

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/iwvelando/hiring-cost/internal/config"
	"github.com/iwvelando/hiring-cost/internal/inverter"
	"github.com/iwvelando/hiring-cost/pkg/constants"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrGridTooLarge is returned when a salary grid exceeds MaxSalaryGridRows.
var ErrGridTooLarge = errors.New("salary grid too large")

// Cell is one (salary, target) entry. Fee and Duration are nil when the
// target cannot be reached at that salary.
type Cell struct {
	Fee      *float64 `json:"fee,omitempty"`
	Duration *int     `json:"duration,omitempty"`
	Status   string   `json:"status"`
}

// Row holds every target's cell for one salary.
type Row struct {
	Salary float64 `json:"salary"`
	Cells  []Cell  `json:"cells"`
}

// Table is the full salary x target grid for a level.
type Table struct {
	Level   int       `json:"level"`
	Targets []float64 `json:"targets"`
	Rows    []Row     `json:"rows"`
}

// Request describes the table to build.
type Request struct {
	Level   int
	Spacing float64
	Min     float64
	Max     float64
	Targets []float64
}

// NewRequest derives the salary span for level from the batch configuration.
func NewRequest(batch config.BatchConfig, level int, spacing float64) Request {
	min, max := batch.SalaryRange(level)
	return Request{
		Level:   level,
		Spacing: spacing,
		Min:     min,
		Max:     max,
		Targets: append([]float64(nil), batch.Targets...),
	}
}

// Salaries returns the grid min, min+spacing, ... up to and including max.
func (r Request) Salaries() ([]float64, error) {
	if r.Spacing <= 0 || math.IsNaN(r.Spacing) || math.IsInf(r.Spacing, 0) {
		return nil, fmt.Errorf("salary spacing %v must be a positive number", r.Spacing)
	}
	if r.Min <= 0 || r.Min > r.Max {
		return nil, fmt.Errorf("salary range %.2f-%.2f is invalid", r.Min, r.Max)
	}
	count := math.Floor((r.Max-r.Min)/r.Spacing+1e-9) + 1
	if count > constants.MaxSalaryGridRows {
		return nil, fmt.Errorf("%w: spacing %v over %.2f-%.2f gives more than %d salaries",
			ErrGridTooLarge, r.Spacing, r.Min, r.Max, constants.MaxSalaryGridRows)
	}
	salaries := make([]float64, int(count))
	for i := range salaries {
		salaries[i] = r.Min + float64(i)*r.Spacing
	}
	return salaries, nil
}

// Builder computes tables with a bounded number of concurrent rows.
type Builder struct {
	logger   *zap.Logger
	inverter *inverter.Inverter
	workers  int
}

// NewBuilder constructs a Builder. workers below 1 means one row at a time.
func NewBuilder(logger *zap.Logger, inv *inverter.Inverter, workers int) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers < 1 {
		workers = 1
	}
	return &Builder{logger: logger, inverter: inv, workers: workers}
}

// Build inverts every (salary, target) pair of the request. Rows are computed
// concurrently; each inversion works on its own inputs only.
func (b *Builder) Build(ctx context.Context, req Request) (*Table, error) {
	if len(req.Targets) == 0 {
		return nil, fmt.Errorf("at least one target cost is required")
	}
	salaries, err := req.Salaries()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	table := &Table{
		Level:   req.Level,
		Targets: append([]float64(nil), req.Targets...),
		Rows:    make([]Row, len(salaries)),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, salary := range salaries {
		i, salary := i, salary
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			row, err := b.buildRow(salary, req.Level, table.Targets)
			if err != nil {
				return fmt.Errorf("salary %.2f: %w", salary, err)
			}
			table.Rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b.logger.Info("fee table computed",
		zap.String("op", "feetable.Build"),
		zap.Int("level", req.Level),
		zap.Int("salaries", len(salaries)),
		zap.Int("targets", len(req.Targets)),
		zap.Int("unreachable", table.Unreachable()),
		zap.Duration("duration", time.Since(start)),
	)
	return table, nil
}

func (b *Builder) buildRow(salary float64, level int, targets []float64) (Row, error) {
	row := Row{Salary: salary, Cells: make([]Cell, len(targets))}
	for j, target := range targets {
		result, err := b.inverter.Invert(target, salary, level)
		if err != nil {
			return Row{}, err
		}
		cell := Cell{Status: string(result.Status)}
		if result.Valid {
			fee := result.AcquisitionCost
			duration := result.Duration
			cell.Fee = &fee
			cell.Duration = &duration
		}
		row.Cells[j] = cell
	}
	return row, nil
}

// Unreachable counts cells without a usable fee.
func (t *Table) Unreachable() int {
	count := 0
	for _, row := range t.Rows {
		for _, cell := range row.Cells {
			if cell.Fee == nil {
				count++
			}
		}
	}
	return count
}
