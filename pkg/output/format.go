// Package output provides utilities for formatting and displaying fee tables,
// cost curves and inversion results.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/iwvelando/hiring-cost/internal/feetable"
	"github.com/iwvelando/hiring-cost/pkg/amortization"
	"github.com/iwvelando/hiring-cost/pkg/constants"
	"github.com/iwvelando/hiring-cost/pkg/format"
	"github.com/iwvelando/hiring-cost/pkg/optimization"
	"github.com/iwvelando/hiring-cost/pkg/reference"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FeeRecords returns the hiring-fee table as CSV records: a header of target
// costs followed by one row per salary. Unreachable cells are empty.
func FeeRecords(table *feetable.Table) [][]string {
	return records(table, func(cell feetable.Cell) string {
		if cell.Fee == nil {
			return ""
		}
		return format.Plain(*cell.Fee)
	})
}

// DurationRecords returns the optimal-duration table as CSV records, laid out
// like FeeRecords.
func DurationRecords(table *feetable.Table) [][]string {
	return records(table, func(cell feetable.Cell) string {
		if cell.Duration == nil {
			return ""
		}
		return strconv.Itoa(*cell.Duration)
	})
}

func records(table *feetable.Table, value func(feetable.Cell) string) [][]string {
	header := make([]string, 0, len(table.Targets)+1)
	header = append(header, "salary")
	for _, target := range table.Targets {
		header = append(header, format.Whole(target))
	}

	out := [][]string{header}
	for _, row := range table.Rows {
		record := make([]string, 0, len(row.Cells)+1)
		record = append(record, format.Whole(row.Salary))
		for _, cell := range row.Cells {
			record = append(record, value(cell))
		}
		out = append(out, record)
	}
	return out
}

// CsvFormat writes the fee table and then the duration table in
// comma-separated value format, separated by a blank line.
func CsvFormat(w io.Writer, table *feetable.Table) error {
	if err := writeCSV(w, FeeRecords(table)); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	return writeCSV(w, DurationRecords(table))
}

// CsvString renders records as comma-separated value text.
func CsvString(records [][]string) (string, error) {
	var b strings.Builder
	if err := writeCSV(&b, records); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeCSV(w io.Writer, records [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.WriteAll(records); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}

// WriteFiles creates dir if needed and writes level<L>-hiring-fees.csv and
// level<L>-optimal-duration.csv into it. It returns the paths written.
func WriteFiles(dir string, table *feetable.Table) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", dir, err)
	}

	files := []struct {
		name    string
		records [][]string
	}{
		{fmt.Sprintf(constants.HiringFeesFileFormat, table.Level), FeeRecords(table)},
		{fmt.Sprintf(constants.OptimalDurationFileFormat, table.Level), DurationRecords(table)},
	}

	paths := make([]string, 0, len(files))
	for _, file := range files {
		path := filepath.Join(dir, file.name)
		if err := writeFile(path, file.records); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, records [][]string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, closeErr)
		}
	}()
	return writeCSV(f, records)
}

// PrettyFormat outputs a human-readable rather than machine-readable fee table
// and duration table.
func PrettyFormat(w io.Writer, table *feetable.Table) {
	p := message.NewPrinter(language.English)

	fmt.Fprintf(w, "--- Maximum hiring fee, level %d ---\n", table.Level)
	prettyGrid(w, p, table, func(cell feetable.Cell) string {
		if cell.Fee == nil {
			return "-"
		}
		return p.Sprintf("$%.2f", *cell.Fee)
	})

	fmt.Fprintf(w, "\n--- Optimal duration, level %d ---\n", table.Level)
	prettyGrid(w, p, table, func(cell feetable.Cell) string {
		if cell.Duration == nil {
			return "-"
		}
		return strconv.Itoa(*cell.Duration)
	})
}

func prettyGrid(w io.Writer, p *message.Printer, table *feetable.Table, value func(feetable.Cell) string) {
	header := []string{"Salary"}
	for _, target := range table.Targets {
		header = append(header, p.Sprintf("$%.0f", target))
	}

	rows := [][]string{header}
	for _, row := range table.Rows {
		line := []string{p.Sprintf("$%.0f", row.Salary)}
		for _, cell := range row.Cells {
			line = append(line, value(cell))
		}
		rows = append(rows, line)
	}

	widths := make([]int, len(header))
	for _, row := range rows {
		for i, col := range row {
			if len(col) > widths[i] {
				widths[i] = len(col)
			}
		}
	}

	for r, row := range rows {
		cols := make([]string, len(row))
		for i, col := range row {
			cols[i] = fmt.Sprintf("%*s", widths[i], col)
		}
		fmt.Fprintln(w, strings.Join(cols, " | "))
		if r == 0 {
			rules := make([]string, len(widths))
			for i, width := range widths {
				rules[i] = strings.Repeat("_", width)
			}
			fmt.Fprintln(w, strings.Join(rules, " | "))
		}
	}
}

// PrettySummary prints a single inversion result.
func PrettySummary(w io.Writer, summary optimization.Summary) {
	p := message.NewPrinter(language.English)
	_, _ = p.Fprintf(w, "Level %d, salary $%.2f, target $%.2f\n", summary.Level, summary.Salary, summary.TargetCost)
	if summary.Valid {
		_, _ = p.Fprintf(w, "  Maximum hiring fee: %s\n", summary.FeeDisplay)
		_, _ = p.Fprintf(w, "  Optimal duration:   %d\n", summary.Duration)
		_, _ = p.Fprintf(w, "  Achieved cost:      $%.2f\n", summary.AchievedCost)
	} else {
		fmt.Fprintln(w, "  No valid hiring fee")
	}
	fmt.Fprintf(w, "  Status: %s after %d iterations\n", summary.Status, summary.Iterations)
	for _, note := range summary.Notes {
		fmt.Fprintf(w, "  Note: %s\n", note)
	}
}

// PrettyCurve prints every point of a cost curve and marks the optimum.
func PrettyCurve(w io.Writer, curve amortization.Curve) {
	p := message.NewPrinter(language.English)
	fmt.Fprintf(w, "Duration | Amortized cost\n")
	fmt.Fprintf(w, "________ | ______________\n")
	for _, point := range curve.Points {
		marker := ""
		if point.Duration == curve.Optimum.Duration {
			marker = " *"
		}
		_, _ = p.Fprintf(w, "%8d | $%.2f%s\n", point.Duration, point.Cost, marker)
	}
	_, _ = p.Fprintf(w, "\nMinimum $%.2f at duration %d\n", curve.Optimum.Cost, curve.Optimum.Duration)
}

// CsvCurve writes a cost curve as duration,cost records.
func CsvCurve(w io.Writer, curve amortization.Curve) error {
	records := [][]string{{"duration", "cost"}}
	for _, point := range curve.Points {
		records = append(records, []string{strconv.Itoa(point.Duration), format.Plain(point.Cost)})
	}
	return writeCSV(w, records)
}

// PrettyEstimates prints the explore results, one line per level.
func PrettyEstimates(w io.Writer, estimates []optimization.Estimate) {
	p := message.NewPrinter(language.English)
	fmt.Fprintf(w, "Level | Estimated fee | Duration | Amortized cost\n")
	fmt.Fprintf(w, "_____ | _____________ | ________ | ______________\n")
	for _, e := range estimates {
		if e.Error != "" {
			fmt.Fprintf(w, "%5d | %s\n", e.Level, e.Error)
			continue
		}
		_, _ = p.Fprintf(w, "%5d | %13s | %8d | $%.2f\n", e.Level, format.Currency(e.AcquisitionCost), e.Duration, e.Cost)
	}
}

// PrettyReference prints the observations for every level, marking absent
// costs.
func PrettyReference(w io.Writer, set reference.Set) {
	for _, level := range set.Levels() {
		fmt.Fprintf(w, "--- Level %d ---\n", level)
		for _, point := range set[level] {
			cost := "n/a"
			if point.Known() {
				cost = format.Currency(*point.Cost)
			}
			fmt.Fprintf(w, "%12s | %s\n", format.Currency(point.Salary), cost)
		}
	}
}

// JSON writes v as indented JSON.
func JSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}
