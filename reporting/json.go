package reporting

import "encoding/json"

// The JSON schema mirrors the data model and is part of the external
// interface; field names and nesting must not change without versioning the
// cloud payload as well.

type reportJSON struct {
	CaseName         string                       `json:"case_name"`
	NumGenerations   int                          `json:"num_generations"`
	TotalTests       int                          `json:"total_tests"`
	TotalPassed      int                          `json:"total_passed"`
	TotalFailed      int                          `json:"total_failed"`
	SuccessRate      float64                      `json:"success_rate"`
	Timing           timingJSON                   `json:"timing"`
	PerTestBreakdown map[string]breakdownJSON     `json:"per_test_breakdown"`
	PerTestTiming    map[string]testTimingJSON    `json:"per_test_timing"`
	Generations      []generationJSON             `json:"generations"`
}

type timingJSON struct {
	TotalDurationMS         float64 `json:"total_duration_ms"`
	AvgGenerationDurationMS float64 `json:"avg_generation_duration_ms"`
}

type breakdownJSON struct {
	Passed int     `json:"passed"`
	Total  int     `json:"total"`
	Rate   float64 `json:"rate"`
}

type testTimingJSON struct {
	MinMS float64 `json:"min_ms"`
	MaxMS float64 `json:"max_ms"`
	AvgMS float64 `json:"avg_ms"`
	P95MS float64 `json:"p95_ms"`
}

type generationJSON struct {
	GenerationNum int        `json:"generation_num"`
	Passed        int        `json:"passed"`
	Failed        int        `json:"failed"`
	DurationMS    float64    `json:"duration_ms"`
	Tests         []testJSON `json:"tests"`
}

type testJSON struct {
	Name       string  `json:"name"`
	Passed     bool    `json:"passed"`
	Error      string  `json:"error"`
	DurationMS float64 `json:"duration_ms"`
}

type suiteJSON struct {
	TotalCases         int               `json:"total_cases"`
	TotalGenerations   int               `json:"total_generations"`
	TotalTests         int               `json:"total_tests"`
	TotalPassed        int               `json:"total_passed"`
	TotalFailed        int               `json:"total_failed"`
	OverallSuccessRate float64           `json:"overall_success_rate"`
	PerCaseResults     []caseSummaryJSON `json:"per_case_results"`
}

type caseSummaryJSON struct {
	CaseName    string  `json:"case_name"`
	SuccessRate float64 `json:"success_rate"`
	Passed      int     `json:"passed"`
	Total       int     `json:"total"`
}

// ReportToJSON renders a single-case report as indented JSON.
func ReportToJSON(r *EvalReport) ([]byte, error) {
	return json.MarshalIndent(buildReportJSON(r), "", "  ")
}

// SuiteToJSON renders a multi-case summary as indented JSON.
func SuiteToJSON(s *SuiteSummary) ([]byte, error) {
	out := suiteJSON{
		TotalCases:         s.TotalCases(),
		TotalGenerations:   s.TotalGenerations(),
		TotalTests:         s.TotalTests(),
		TotalPassed:        s.TotalPassed(),
		TotalFailed:        s.TotalFailed(),
		OverallSuccessRate: s.OverallSuccessRate(),
		PerCaseResults:     []caseSummaryJSON{},
	}
	for _, c := range s.PerCaseSummary() {
		out.PerCaseResults = append(out.PerCaseResults, caseSummaryJSON{
			CaseName:    c.CaseName,
			SuccessRate: c.SuccessRate,
			Passed:      c.Passed,
			Total:       c.Total,
		})
	}
	return json.MarshalIndent(out, "", "  ")
}

func buildReportJSON(r *EvalReport) reportJSON {
	out := reportJSON{
		CaseName:       r.CaseName,
		NumGenerations: r.NumGenerations,
		TotalTests:     r.TotalTests(),
		TotalPassed:    r.TotalPassed(),
		TotalFailed:    r.TotalFailed(),
		SuccessRate:    r.SuccessRate(),
		Timing: timingJSON{
			TotalDurationMS:         r.TotalDurationMS(),
			AvgGenerationDurationMS: r.AvgGenerationDurationMS(),
		},
		PerTestBreakdown: make(map[string]breakdownJSON),
		PerTestTiming:    make(map[string]testTimingJSON),
		Generations:      []generationJSON{},
	}

	for name, b := range r.PerTestBreakdown() {
		out.PerTestBreakdown[name] = breakdownJSON{Passed: b.Passed, Total: b.Total, Rate: b.Rate}
	}
	for name, ti := range r.PerTestTiming() {
		out.PerTestTiming[name] = testTimingJSON{MinMS: ti.MinMS, MaxMS: ti.MaxMS, AvgMS: ti.AvgMS, P95MS: ti.P95MS}
	}

	for i := range r.Generations {
		g := &r.Generations[i]
		gen := generationJSON{
			GenerationNum: g.GenerationNum,
			Passed:        g.PassedCount(),
			Failed:        g.FailedCount(),
			DurationMS:    g.DurationMS,
			Tests:         []testJSON{},
		}
		for _, t := range g.Tests {
			gen.Tests = append(gen.Tests, testJSON{
				Name:       t.Name,
				Passed:     t.Passed,
				Error:      t.Error,
				DurationMS: t.DurationMS,
			})
		}
		out.Generations = append(out.Generations, gen)
	}

	return out
}
