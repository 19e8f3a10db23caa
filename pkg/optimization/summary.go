// Package optimization provides shared data structures for fee inversion results.
package optimization

// Summary captures the outcome of a single fee inversion.
type Summary struct {
	Level           int      `json:"level"`
	Salary          float64  `json:"salary"`
	TargetCost      float64  `json:"targetCost"`
	AcquisitionCost float64  `json:"acquisitionCost"`
	Duration        int      `json:"duration"`
	AchievedCost    float64  `json:"achievedCost"`
	Iterations      int      `json:"iterations"`
	Converged       bool     `json:"converged"`
	Status          string   `json:"status"`
	Valid           bool     `json:"valid"`
	Notes           []string `json:"notes,omitempty"`
	FeeDisplay      string   `json:"feeDisplay,omitempty"`
}
