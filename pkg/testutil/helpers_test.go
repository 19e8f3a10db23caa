package testutil

import (
	"os"
	"testing"

	"github.com/iwvelando/hiring-cost/internal/feetable"
)

func TestFindRow(t *testing.T) {
	table := &feetable.Table{
		Level:   2,
		Targets: []float64{8000, 9000},
		Rows: []feetable.Row{
			{Salary: 5000},
			{Salary: 5500},
			{Salary: 6000},
		},
	}

	tests := []struct {
		name        string
		salary      float64
		expectFound bool
	}{
		{name: "First row", salary: 5000, expectFound: true},
		{name: "Middle row", salary: 5500, expectFound: true},
		{name: "Last row", salary: 6000, expectFound: true},
		{name: "Missing salary", salary: 6500, expectFound: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := FindRow(table, tt.salary)
			if !tt.expectFound {
				if row != nil {
					t.Errorf("FindRow(%v) expected nil, got %+v", tt.salary, row)
				}
				return
			}
			if row == nil {
				t.Fatalf("FindRow(%v) returned nil", tt.salary)
			}
			if row.Salary != tt.salary {
				t.Errorf("FindRow(%v) returned salary %v", tt.salary, row.Salary)
			}
			if row != &table.Rows[0] && row != &table.Rows[1] && row != &table.Rows[2] {
				t.Error("FindRow should return a pointer into the table")
			}
		})
	}

	if FindRow(nil, 5000) != nil {
		t.Error("FindRow(nil) should return nil")
	}
}

func TestTargetIndex(t *testing.T) {
	table := &feetable.Table{Targets: []float64{8000, 9000}}
	if got := TargetIndex(table, 9000); got != 1 {
		t.Errorf("TargetIndex(9000) = %d, expected 1", got)
	}
	if got := TargetIndex(table, 7000); got != -1 {
		t.Errorf("TargetIndex(7000) = %d, expected -1", got)
	}
	if got := TargetIndex(nil, 7000); got != -1 {
		t.Errorf("TargetIndex(nil) = %d, expected -1", got)
	}
}

func TestWriteConfig(t *testing.T) {
	path := WriteConfig(t, "config.yaml", "model:\n  maxDuration: 10\n")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}
	if string(data) != "model:\n  maxDuration: 10\n" {
		t.Fatalf("unexpected contents %q", data)
	}
}
