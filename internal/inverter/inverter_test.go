package inverter

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/iwvelando/hiring-cost/internal/config"
	"github.com/iwvelando/hiring-cost/pkg/amortization"
	"go.uber.org/zap"
)

func newTestInverter(t *testing.T, cfg config.InverterConfig) *Inverter {
	t.Helper()
	inv, err := New(zap.NewNop(), amortization.NewModel(150), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return inv
}

func floatPtr(value float64) *float64 {
	return &value
}

func TestInvertEndToEnd(t *testing.T) {
	inv := newTestInverter(t, config.DefaultInverterConfig())

	result, err := inv.Invert(10000, 7000, 4)
	if err != nil {
		t.Fatalf("Invert() error = %v", err)
	}

	if result.Status != StatusFound || !result.Converged || !result.Valid {
		t.Fatalf("expected a valid found result, got %+v", result)
	}
	if result.Iterations < 1 || result.Iterations > 50 {
		t.Fatalf("iterations %d outside [1, 50]", result.Iterations)
	}

	check := amortization.NewModel(150).OptimalDuration(7000, 4, result.AcquisitionCost)
	if math.Abs(check.Cost-10000) >= 1 {
		t.Fatalf("re-running the optimizer at fee %.2f gives %.4f, expected within 1 of 10000", result.AcquisitionCost, check.Cost)
	}
	if check.Duration != result.Duration {
		t.Fatalf("duration %d differs from re-run duration %d", result.Duration, check.Duration)
	}
	if result.AchievedCost != check.Cost {
		t.Fatalf("achieved cost %v differs from re-run cost %v", result.AchievedCost, check.Cost)
	}
}

func TestInvertRoundTrip(t *testing.T) {
	model := amortization.NewModel(150)
	inv := newTestInverter(t, config.DefaultInverterConfig())

	tests := []struct {
		name   string
		salary float64
		level  int
		fee    float64
	}{
		{"Level 1 modest fee", 5000, 1, 15000},
		{"Level 4 mid fee", 7000, 4, 50000},
		{"Level 7 large fee", 12000, 7, 400000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := model.OptimalDuration(tt.salary, tt.level, tt.fee)

			result, err := inv.Invert(target.Cost, tt.salary, tt.level)
			if err != nil {
				t.Fatalf("Invert() error = %v", err)
			}
			if !result.Valid {
				t.Fatalf("expected a valid result, got %+v", result)
			}
			if math.Abs(result.AchievedCost-target.Cost) >= 1 {
				t.Fatalf("achieved cost %.4f not within 1 of %.4f", result.AchievedCost, target.Cost)
			}
			// The optimal cost rises by at least 1/maxDuration per unit of fee.
			if math.Abs(result.AcquisitionCost-tt.fee) > 150 {
				t.Fatalf("fee %.2f too far from %.2f", result.AcquisitionCost, tt.fee)
			}
		})
	}
}

func TestInvertRoundTripTightTolerance(t *testing.T) {
	cfg := config.DefaultInverterConfig()
	cfg.Tolerance = 0.001
	inv := newTestInverter(t, cfg)

	target := amortization.NewModel(150).OptimalDuration(7000, 4, 50000)
	result, err := inv.Invert(target.Cost, 7000, 4)
	if err != nil {
		t.Fatalf("Invert() error = %v", err)
	}
	if math.Abs(result.AcquisitionCost-50000) > 1 {
		t.Fatalf("fee %.4f not within 1 of 50000", result.AcquisitionCost)
	}
}

func TestInvertTargetTooLow(t *testing.T) {
	inv := newTestInverter(t, config.DefaultInverterConfig())

	result, err := inv.Invert(5000, 7000, 4)
	if err != nil {
		t.Fatalf("Invert() error = %v", err)
	}

	if result.Converged {
		t.Fatalf("expected no convergence, got %+v", result)
	}
	if result.Status != StatusTargetTooLow {
		t.Fatalf("expected status %s, got %s", StatusTargetTooLow, result.Status)
	}
	if result.AcquisitionCost > 1001 {
		t.Fatalf("expected bisection to approach the lower bound, got %.4f", result.AcquisitionCost)
	}
	if result.Valid {
		t.Fatal("result at the lower bound must not be valid")
	}
	if result.Iterations != 50 {
		t.Fatalf("expected the full 50 iterations, got %d", result.Iterations)
	}
}

func TestInvertTargetTooHigh(t *testing.T) {
	inv := newTestInverter(t, config.DefaultInverterConfig())

	result, err := inv.Invert(1e6, 7000, 4)
	if err != nil {
		t.Fatalf("Invert() error = %v", err)
	}
	if result.Status != StatusTargetTooHigh {
		t.Fatalf("expected status %s, got %s", StatusTargetTooHigh, result.Status)
	}
	if result.Valid {
		t.Fatal("unreached target must not be valid")
	}
	if result.AcquisitionCost < 999999 {
		t.Fatalf("expected bisection to approach the upper bound, got %.2f", result.AcquisitionCost)
	}
}

func TestInvertCustomBracket(t *testing.T) {
	cfg := config.InverterConfig{LowerBound: floatPtr(5000), UpperBound: floatPtr(60000)}
	inv := newTestInverter(t, cfg)

	lower, upper := inv.Bounds()
	if lower != 5000 || upper != 60000 {
		t.Fatalf("unexpected bounds %v, %v", lower, upper)
	}

	target := amortization.NewModel(150).OptimalDuration(7000, 4, 30000)
	result, err := inv.Invert(target.Cost, 7000, 4)
	if err != nil {
		t.Fatalf("Invert() error = %v", err)
	}
	if result.AcquisitionCost < 5000 || result.AcquisitionCost > 60000 {
		t.Fatalf("fee %.2f outside the configured bracket", result.AcquisitionCost)
	}
	if !result.Valid {
		t.Fatalf("expected valid result, got %+v", result)
	}
}

func TestWithinBracket(t *testing.T) {
	tests := []struct {
		name     string
		fee      float64
		expected bool
	}{
		{"At lower bound", 1000, false},
		{"Within one of lower bound", 1000.9, false},
		{"Exactly lower plus one", 1001, false},
		{"Just above margin", 1001.5, true},
		{"Interior", 48000, true},
		{"At upper bound", 1000000, true},
		{"Beyond upper bound", 1000000.5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WithinBracket(tt.fee, 1000, 1000000); got != tt.expected {
				t.Errorf("WithinBracket(%v) = %v, expected %v", tt.fee, got, tt.expected)
			}
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.InverterConfig
	}{
		{"Inverted bracket", config.InverterConfig{LowerBound: floatPtr(5000), UpperBound: floatPtr(1000)}},
		{"Negative lower bound", config.InverterConfig{LowerBound: floatPtr(-1)}},
		{"Too few monotonicity samples", config.InverterConfig{MonotonicitySamples: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(zap.NewNop(), amortization.NewModel(150), tt.cfg); err == nil {
				t.Fatal("expected error but got nil")
			}
		})
	}

	if _, err := New(zap.NewNop(), nil, config.DefaultInverterConfig()); err == nil {
		t.Fatal("expected error for nil optimizer")
	}
}

type decreasingOptimizer struct{}

func (decreasingOptimizer) OptimalDuration(salary float64, level int, fee float64) amortization.Result {
	return amortization.Result{Cost: 1e6 - fee, Duration: 1}
}

func TestCheckMonotonic(t *testing.T) {
	cfg := config.DefaultInverterConfig()
	cfg.ValidateMonotonicity = true

	inv := newTestInverter(t, cfg)
	if err := inv.CheckMonotonic(7000, 4); err != nil {
		t.Fatalf("CheckMonotonic() error = %v", err)
	}
	if _, err := inv.Invert(10000, 7000, 4); err != nil {
		t.Fatalf("Invert() with monotonicity check error = %v", err)
	}

	broken, err := New(zap.NewNop(), decreasingOptimizer{}, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = broken.Invert(10000, 7000, 4)
	if !errors.Is(err, ErrNonMonotonic) {
		t.Fatalf("expected ErrNonMonotonic, got %v", err)
	}
}

func TestSummary(t *testing.T) {
	inv := newTestInverter(t, config.DefaultInverterConfig())

	found, err := inv.Invert(10000, 7000, 4)
	if err != nil {
		t.Fatalf("Invert() error = %v", err)
	}
	summary := Summary(10000, 7000, 4, found)
	if !summary.Valid || summary.Status != string(StatusFound) || summary.FeeDisplay == "" {
		t.Fatalf("unexpected summary for found result: %+v", summary)
	}
	if len(summary.Notes) != 0 {
		t.Fatalf("expected no notes, got %v", summary.Notes)
	}

	low, err := inv.Invert(5000, 7000, 4)
	if err != nil {
		t.Fatalf("Invert() error = %v", err)
	}
	summary = Summary(5000, 7000, 4, low)
	if summary.Valid || summary.FeeDisplay != "" {
		t.Fatalf("unexpected summary for unreachable result: %+v", summary)
	}
	if len(summary.Notes) != 1 || !strings.Contains(summary.Notes[0], "below the cost reached at the minimum fee") {
		t.Fatalf("unexpected notes %v", summary.Notes)
	}
}

func BenchmarkInvert(b *testing.B) {
	inv, err := New(zap.NewNop(), amortization.NewModel(150), config.DefaultInverterConfig())
	if err != nil {
		b.Fatalf("New() error = %v", err)
	}
	for i := 0; i < b.N; i++ {
		if _, err := inv.Invert(10000, 7000, 4); err != nil {
			b.Fatalf("Invert() error = %v", err)
		}
	}
}
