// Package reporting folds completed generation results into suite-level and
// per-test statistics, and renders them as colorized text or fixed-schema
// JSON. Aggregation is a pure fold: nothing here performs I/O or mutates a
// generation result.
package reporting

import (
	"sort"

	"github.com/flaky-dev/flaky/types"
)

// EvalReport aggregates all generation results for one named eval case.
// Generations may hold fewer entries than NumGenerations when some
// generations failed to execute; a dropped generation contributes zero
// entries, never synthetic failures.
type EvalReport struct {
	CaseName       string
	NumGenerations int
	RunID          string
	Generations    []types.GenerationResult
}

// NewEvalReport creates an empty report for the given case and requested
// generation count.
func NewEvalReport(caseName string, numGenerations int) *EvalReport {
	return &EvalReport{CaseName: caseName, NumGenerations: numGenerations}
}

// TotalTests returns the number of test executions across all generations.
func (r *EvalReport) TotalTests() int {
	n := 0
	for i := range r.Generations {
		n += r.Generations[i].TotalCount()
	}
	return n
}

// TotalPassed returns the number of passing test executions.
func (r *EvalReport) TotalPassed() int {
	n := 0
	for i := range r.Generations {
		n += r.Generations[i].PassedCount()
	}
	return n
}

// TotalFailed returns the number of failing test executions.
func (r *EvalReport) TotalFailed() int {
	return r.TotalTests() - r.TotalPassed()
}

// SuccessRate returns the percentage of passing test executions, 0 when no
// tests ran.
func (r *EvalReport) SuccessRate() float64 {
	total := r.TotalTests()
	if total == 0 {
		return 0.0
	}
	return float64(r.TotalPassed()) / float64(total) * 100
}

// TotalDurationMS returns the summed duration of all generations.
func (r *EvalReport) TotalDurationMS() float64 {
	var total float64
	for i := range r.Generations {
		total += r.Generations[i].DurationMS
	}
	return total
}

// AvgGenerationDurationMS returns the mean generation duration, 0 when no
// generations survived.
func (r *EvalReport) AvgGenerationDurationMS() float64 {
	if len(r.Generations) == 0 {
		return 0.0
	}
	return r.TotalDurationMS() / float64(len(r.Generations))
}

// TestBreakdown is the per-test pass/fail aggregation across generations.
type TestBreakdown struct {
	Passed int
	Total  int
	Rate   float64
}

// TestNames returns the test names in first-seen order across generations.
// Callers iterating breakdown or timing maps use this to keep output stable.
func (r *EvalReport) TestNames() []string {
	seen := make(map[string]bool)
	var names []string
	for i := range r.Generations {
		for _, t := range r.Generations[i].Tests {
			if !seen[t.Name] {
				seen[t.Name] = true
				names = append(names, t.Name)
			}
		}
	}
	return names
}

// PerTestBreakdown folds every generation's results into a per-test-name
// (passed, total, rate) mapping. Only generations that actually executed
// contribute entries.
func (r *EvalReport) PerTestBreakdown() map[string]TestBreakdown {
	stats := make(map[string]TestBreakdown)
	for i := range r.Generations {
		for _, t := range r.Generations[i].Tests {
			entry := stats[t.Name]
			if t.Passed {
				entry.Passed++
			}
			entry.Total++
			stats[t.Name] = entry
		}
	}
	for name, entry := range stats {
		if entry.Total > 0 {
			entry.Rate = float64(entry.Passed) / float64(entry.Total) * 100
		}
		stats[name] = entry
	}
	return stats
}

// TestTiming is the per-test duration distribution across generations.
type TestTiming struct {
	MinMS float64
	MaxMS float64
	AvgMS float64
	P95MS float64
}

// PerTestTiming returns min/max/mean/p95 durations per test name. The p95
// uses the exclusive quantile method and degenerates to the single sample
// when fewer than two observations exist.
func (r *EvalReport) PerTestTiming() map[string]TestTiming {
	timings := make(map[string][]float64)
	for i := range r.Generations {
		for _, t := range r.Generations[i].Tests {
			timings[t.Name] = append(timings[t.Name], t.DurationMS)
		}
	}

	stats := make(map[string]TestTiming)
	for name, samples := range timings {
		if len(samples) == 0 {
			continue
		}
		sorted := make([]float64, len(samples))
		copy(sorted, samples)
		sort.Float64s(sorted)

		var sum float64
		for _, v := range samples {
			sum += v
		}

		stats[name] = TestTiming{
			MinMS: sorted[0],
			MaxMS: sorted[len(sorted)-1],
			AvgMS: sum / float64(len(samples)),
			P95MS: p95Exclusive(sorted, samples[0]),
		}
	}
	return stats
}

// p95Exclusive computes the 19/20 cut point of sorted samples using the
// exclusive interpolation method. With fewer than two samples the first
// observation is returned unchanged.
func p95Exclusive(sorted []float64, single float64) float64 {
	ld := len(sorted)
	if ld < 2 {
		return single
	}
	m := ld + 1
	j := 19 * m / 20
	delta := float64(19*m - j*20)
	if j < 1 {
		j = 1
	}
	if j > ld-1 {
		j = ld - 1
	}
	return (sorted[j-1]*(20-delta) + sorted[j]*delta) / 20
}

// SuiteSummary aggregates multiple eval reports from a multi-case run.
type SuiteSummary struct {
	Reports []*EvalReport
}

// TotalCases returns the number of eval cases in the run.
func (s *SuiteSummary) TotalCases() int { return len(s.Reports) }

// TotalGenerations returns the sum of requested generation counts.
func (s *SuiteSummary) TotalGenerations() int {
	n := 0
	for _, r := range s.Reports {
		n += r.NumGenerations
	}
	return n
}

// TotalTests returns the number of test executions across all cases.
func (s *SuiteSummary) TotalTests() int {
	n := 0
	for _, r := range s.Reports {
		n += r.TotalTests()
	}
	return n
}

// TotalPassed returns the passing test executions across all cases.
func (s *SuiteSummary) TotalPassed() int {
	n := 0
	for _, r := range s.Reports {
		n += r.TotalPassed()
	}
	return n
}

// TotalFailed returns the failing test executions across all cases.
func (s *SuiteSummary) TotalFailed() int {
	return s.TotalTests() - s.TotalPassed()
}

// OverallSuccessRate returns the percentage of passing test executions
// across all cases, 0 when no tests ran.
func (s *SuiteSummary) OverallSuccessRate() float64 {
	total := s.TotalTests()
	if total == 0 {
		return 0.0
	}
	return float64(s.TotalPassed()) / float64(total) * 100
}

// CaseSummary is one case's line in the multi-case summary.
type CaseSummary struct {
	CaseName    string
	SuccessRate float64
	Passed      int
	Total       int
}

// PerCaseSummary returns one summary per case in insertion order.
func (s *SuiteSummary) PerCaseSummary() []CaseSummary {
	out := make([]CaseSummary, 0, len(s.Reports))
	for _, r := range s.Reports {
		out = append(out, CaseSummary{
			CaseName:    r.CaseName,
			SuccessRate: r.SuccessRate(),
			Passed:      r.TotalPassed(),
			Total:       r.TotalTests(),
		})
	}
	return out
}

// RankedCaseSummary returns per-case summaries sorted by success rate
// descending; ties keep their insertion order.
func (s *SuiteSummary) RankedCaseSummary() []CaseSummary {
	ranked := s.PerCaseSummary()
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].SuccessRate > ranked[j].SuccessRate
	})
	return ranked
}
