// Package types defines the result model shared between suite binaries and
// the orchestrator. A GenerationResult is produced inside the suite process
// and crosses the process boundary as JSON, so every field here is part of
// the wire protocol.
package types

import "time"

// TestResult is the outcome of one test method in one generation.
// Immutable once produced by the generation executor.
type TestResult struct {
	Name       string  `json:"name"`
	Passed     bool    `json:"passed"`
	Error      string  `json:"error,omitempty"`
	DurationMS float64 `json:"duration_ms"`
}

// GenerationResult is the outcome of running an entire suite once.
// GenerationNum is 1-based and unique per run; Tests preserves the
// executor's deterministic ordering.
type GenerationResult struct {
	GenerationNum int          `json:"generation_num"`
	Tests         []TestResult `json:"tests"`
	DurationMS    float64      `json:"duration_ms"`
}

// PassedCount returns the number of passing tests in this generation.
func (g *GenerationResult) PassedCount() int {
	n := 0
	for _, t := range g.Tests {
		if t.Passed {
			n++
		}
	}
	return n
}

// FailedCount returns the number of failing tests in this generation.
func (g *GenerationResult) FailedCount() int {
	return g.TotalCount() - g.PassedCount()
}

// TotalCount returns the number of tests executed in this generation.
func (g *GenerationResult) TotalCount() int {
	return len(g.Tests)
}

// DurationMS converts a duration to the fractional milliseconds used
// throughout the result model.
func DurationMS(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
