package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iwvelando/hiring-cost/internal/cache"
	"github.com/iwvelando/hiring-cost/internal/config"
	"github.com/iwvelando/hiring-cost/internal/feetable"
	"github.com/iwvelando/hiring-cost/internal/inverter"
	"github.com/iwvelando/hiring-cost/internal/server"
	"github.com/iwvelando/hiring-cost/pkg/amortization"
	"github.com/iwvelando/hiring-cost/pkg/optimization"
	"github.com/iwvelando/hiring-cost/pkg/output"
	"github.com/iwvelando/hiring-cost/pkg/testutil"
	"go.uber.org/zap"
)

const testConfigPath = "../test_config.yaml"

func loadTestConfig(t testing.TB) *config.Configuration {
	t.Helper()
	conf, err := config.LoadConfiguration(testConfigPath)
	if err != nil {
		t.Fatalf("LoadConfiguration failed: %v", err)
	}
	return conf
}

func newInverter(t testing.TB, conf *config.Configuration) (*inverter.Inverter, amortization.Model) {
	t.Helper()
	model := amortization.NewModel(conf.Model.MaxDuration)
	inv, err := inverter.New(zap.NewNop(), model, conf.Inverter)
	if err != nil {
		t.Fatalf("inverter.New failed: %v", err)
	}
	return inv, model
}

// TestEndToEndInversion finds the fee for a target and checks that the
// optimizer reproduces the target at that fee.
func TestEndToEndInversion(t *testing.T) {
	conf := loadTestConfig(t)
	inv, model := newInverter(t, conf)

	result, err := inv.Invert(10000, 7000, 4)
	if err != nil {
		t.Fatalf("Invert failed: %v", err)
	}
	if !result.Valid || result.Status != inverter.StatusFound {
		t.Fatalf("expected a valid fee, got %+v", result)
	}

	check := model.OptimalDuration(7000, 4, result.AcquisitionCost)
	if math.Abs(check.Cost-10000) >= 1 {
		t.Errorf("fee %.2f gives cost %.4f, expected within 1 of 10000", result.AcquisitionCost, check.Cost)
	}
	if check.Duration != result.Duration {
		t.Errorf("duration %d does not match optimizer duration %d", result.Duration, check.Duration)
	}
}

// TestBoundaryScenario checks the optimizer at the lowest fee of the bracket.
func TestBoundaryScenario(t *testing.T) {
	model := amortization.NewModel(150)
	result := model.OptimalDuration(8000, 3, 1000)

	if result.Duration < 1 || result.Duration > 150 {
		t.Fatalf("duration %d outside [1, 150]", result.Duration)
	}
	if result.Cost <= 8000 {
		t.Errorf("expected cost above the salary, got %.2f", result.Cost)
	}
	for duration := 1; duration <= 150; duration++ {
		if cost := amortization.AmortizedCost(8000, duration, 3, 1000); cost < result.Cost {
			t.Fatalf("duration %d has cost %.4f below the reported minimum %.4f", duration, cost, result.Cost)
		}
	}
}

// TestUnreachableScenario checks that a target below the cheapest possible
// cost is reported as invalid rather than as an error.
func TestUnreachableScenario(t *testing.T) {
	conf := loadTestConfig(t)
	inv, _ := newInverter(t, conf)

	result, err := inv.Invert(5000, 7000, 4)
	if err != nil {
		t.Fatalf("Invert failed: %v", err)
	}
	if result.Valid {
		t.Fatalf("expected an invalid result, got %+v", result)
	}
	if result.Status != inverter.StatusTargetTooLow {
		t.Errorf("expected status %s, got %s", inverter.StatusTargetTooLow, result.Status)
	}
	if result.AcquisitionCost > 1001 {
		t.Errorf("expected the fee to collapse onto the lower bound, got %.2f", result.AcquisitionCost)
	}

	summary := inverter.Summary(5000, 7000, 4, result)
	if summary.Valid || len(summary.Notes) == 0 {
		t.Errorf("summary should be invalid with notes, got %+v", summary)
	}
}

// TestLevelTable builds the configured table for one level and writes it.
func TestLevelTable(t *testing.T) {
	conf := loadTestConfig(t)
	inv, model := newInverter(t, conf)
	builder := feetable.NewBuilder(zap.NewNop(), inv, conf.Batch.Workers)

	table, err := builder.Build(context.Background(), feetable.NewRequest(conf.Batch, 4, 500))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(table.Rows) != 5 || len(table.Targets) != 4 {
		t.Fatalf("expected 5 rows x 4 targets, got %d x %d", len(table.Rows), len(table.Targets))
	}

	for _, row := range table.Rows {
		for j, cell := range row.Cells {
			if cell.Fee == nil {
				continue
			}
			check := model.OptimalDuration(row.Salary, 4, *cell.Fee)
			if math.Abs(check.Cost-table.Targets[j]) >= 1 {
				t.Errorf("salary %.0f target %.0f: fee %.2f gives %.4f", row.Salary, table.Targets[j], *cell.Fee, check.Cost)
			}
		}
	}

	row := testutil.FindRow(table, 8000)
	if row == nil {
		t.Fatal("expected a row for salary 8000")
	}
	if col := testutil.TargetIndex(table, 8000); row.Cells[col].Fee != nil {
		t.Errorf("target 8000 should be unreachable at salary 8000, got %v", *row.Cells[col].Fee)
	}
	if col := testutil.TargetIndex(table, 14000); row.Cells[col].Fee == nil {
		t.Error("target 14000 should be reachable at salary 8000")
	}

	dir := filepath.Join(t.TempDir(), conf.Batch.OutputDir)
	paths, err := output.WriteFiles(dir, table)
	if err != nil {
		t.Fatalf("WriteFiles failed: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 files, got %v", paths)
	}

	data, err := os.ReadFile(filepath.Join(dir, "level4-hiring-fees.csv"))
	if err != nil {
		t.Fatalf("failed to read fee table: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected header plus 5 rows, got %d lines", len(lines))
	}
	if lines[0] != "salary,8000,10000,12000,14000" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.HasPrefix(lines[3], "8000,,") {
		t.Errorf("salary 8000 should have an empty first cell, got %q", lines[3])
	}
}

// TestHTTPRoundTrip serves the API and inverts a fee over HTTP.
func TestHTTPRoundTrip(t *testing.T) {
	conf := loadTestConfig(t)
	store := cache.NewMemory(zap.NewNop())
	defer store.Close()

	handler, err := server.NewHandler(zap.NewNop(), conf, server.Options{Version: "integration", Cache: store})
	if err != nil {
		t.Fatalf("NewHandler failed: %v", err)
	}
	defer handler.Close()

	srv := httptest.NewServer(handler)
	defer srv.Close()

	body, _ := json.Marshal(map[string]interface{}{"salary": 7000, "level": 4, "targetCost": 10000})
	resp, err := http.Post(srv.URL+"/api/invert", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/invert failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected a request ID header")
	}

	var summary optimization.Summary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !summary.Valid {
		t.Fatalf("expected a valid fee, got %+v", summary)
	}

	check := amortization.NewModel(conf.Model.MaxDuration).OptimalDuration(7000, 4, summary.AcquisitionCost)
	if math.Abs(check.Cost-10000) >= 1 {
		t.Errorf("fee %.2f from the API gives cost %.4f", summary.AcquisitionCost, check.Cost)
	}

	tableBody, _ := json.Marshal(map[string]interface{}{"level": 4, "spacing": 1000})
	for i, wantCached := range []bool{false, true} {
		resp, err := http.Post(srv.URL+"/api/table", "application/json", bytes.NewReader(tableBody))
		if err != nil {
			t.Fatalf("POST /api/table failed: %v", err)
		}
		var table struct {
			Cached  bool   `json:"cached"`
			FeesCSV string `json:"feesCsv"`
		}
		err = json.NewDecoder(resp.Body).Decode(&table)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("failed to decode table response: %v", err)
		}
		if table.Cached != wantCached {
			t.Errorf("request %d: cached = %v, expected %v", i, table.Cached, wantCached)
		}
		if !strings.HasPrefix(table.FeesCSV, "salary,8000,10000,12000,14000") {
			t.Errorf("request %d: unexpected CSV %q", i, table.FeesCSV)
		}
	}
}
