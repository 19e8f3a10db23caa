// Package testutil provides common utility functions for testing.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/iwvelando/hiring-cost/internal/feetable"
)

// WriteConfig writes contents to a file named name in a fresh temporary
// directory and returns its path.
func WriteConfig(t testing.TB, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// FindRow finds the row for salary in a fee table.
// Returns a pointer to the row if found, nil otherwise.
func FindRow(table *feetable.Table, salary float64) *feetable.Row {
	if table == nil {
		return nil
	}
	for i := range table.Rows {
		if table.Rows[i].Salary == salary {
			return &table.Rows[i]
		}
	}
	return nil
}

// TargetIndex returns the column of target in a fee table, or -1.
func TargetIndex(table *feetable.Table, target float64) int {
	if table == nil {
		return -1
	}
	for i, t := range table.Targets {
		if t == target {
			return i
		}
	}
	return -1
}
