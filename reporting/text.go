package reporting

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/flaky-dev/flaky/types"
)

// errorPreviewLen truncates error messages in progress output.
const errorPreviewLen = 60

// TextFormatter renders reports as human-readable, optionally colorized
// text. It only reads derived properties; statistics are never recomputed
// here.
type TextFormatter struct {
	w        io.Writer
	useColor bool
}

// NewTextFormatter creates a formatter writing to w.
func NewTextFormatter(w io.Writer, useColor bool) *TextFormatter {
	return &TextFormatter{w: w, useColor: useColor}
}

func (f *TextFormatter) paint(c text.Color, s string) string {
	if !f.useColor {
		return s
	}
	return c.Sprint(s)
}

func (f *TextFormatter) rateColor(rate float64) text.Color {
	if rate >= 80 {
		return text.FgGreen
	}
	return text.FgRed
}

// PrintRunBanner prints the one-line header before a case starts running.
func (f *TextFormatter) PrintRunBanner(caseName string, caseNames []string, numRuns int, parallel bool) {
	mode := "sequential"
	if parallel {
		mode = "parallel"
	}
	fmt.Fprintf(f.w, "Running: %s [%s] (%d generations, %s)\n",
		caseName, strings.Join(caseNames, ", "), numRuns, mode)
}

// PrintGenerationProgress prints one completed generation with its tests.
// Called in completion arrival order; the generation index identifies it.
func (f *TextFormatter) PrintGenerationProgress(gen types.GenerationResult) {
	fmt.Fprintf(f.w, "\nGeneration %d %s:\n",
		gen.GenerationNum, f.paint(text.Faint, fmt.Sprintf("(%.2fs)", gen.DurationMS/1000)))

	for _, tr := range gen.Tests {
		status := f.paint(text.FgGreen, "✓")
		if !tr.Passed {
			status = f.paint(text.FgRed, "✗")
		}
		line := fmt.Sprintf("  %s %s %s", status, tr.Name,
			f.paint(text.Faint, fmt.Sprintf("%.0fms", tr.DurationMS)))
		if !tr.Passed && tr.Error != "" {
			preview := tr.Error
			if len(preview) > errorPreviewLen {
				preview = preview[:errorPreviewLen] + "..."
			}
			line += " " + f.paint(text.Faint, "("+preview+")")
		}
		fmt.Fprintln(f.w, line)
	}
}

// PrintGenerationFailure surfaces a dropped generation to the operator.
func (f *TextFormatter) PrintGenerationFailure(genNum int, err error) {
	fmt.Fprintf(f.w, "%s\n", f.paint(text.FgRed, fmt.Sprintf("Generation %d failed: %v", genNum, err)))
}

// PrintSummary prints the final summary for one eval case.
func (f *TextFormatter) PrintSummary(r *EvalReport) {
	fmt.Fprintf(f.w, "\n%s\n", f.paint(text.Bold, "Results:"))
	fmt.Fprintf(f.w, "  Generations: %d\n", r.NumGenerations)

	testsPerGen := 0
	if r.NumGenerations > 0 {
		testsPerGen = r.TotalTests() / r.NumGenerations
	}
	fmt.Fprintf(f.w, "  Tests per generation: %d\n", testsPerGen)

	rate := r.SuccessRate()
	fmt.Fprintf(f.w, "  Success rate: %s (%d/%d tests passed across all runs)\n",
		f.paint(f.rateColor(rate), fmt.Sprintf("%.1f%%", rate)),
		r.TotalPassed(), r.TotalTests())

	fmt.Fprintf(f.w, "\n  %s\n", f.paint(text.Bold, "Timing:"))
	fmt.Fprintf(f.w, "    Total time: %s\n",
		f.paint(text.FgCyan, fmt.Sprintf("%.2fs", r.TotalDurationMS()/1000)))
	fmt.Fprintf(f.w, "    Avg per generation: %s\n",
		f.paint(text.FgCyan, fmt.Sprintf("%.2fs", r.AvgGenerationDurationMS()/1000)))

	fmt.Fprintf(f.w, "\n  %s\n", f.paint(text.Bold, "Per-test breakdown:"))
	breakdown := r.PerTestBreakdown()
	timing := r.PerTestTiming()
	for _, name := range r.TestNames() {
		b := breakdown[name]
		timingInfo := ""
		if ti, ok := timing[name]; ok {
			timingInfo = " " + f.paint(text.Faint, fmt.Sprintf("avg: %.0fms", ti.AvgMS))
		}
		fmt.Fprintf(f.w, "    %s: %s (%d/%d)%s\n",
			name,
			f.paint(f.rateColor(b.Rate), fmt.Sprintf("%.0f%%", b.Rate)),
			b.Passed, b.Total, timingInfo)
	}
}

// PrintSuiteSummary prints the cross-case summary table, ranked by success
// rate descending.
func (f *TextFormatter) PrintSuiteSummary(s *SuiteSummary) {
	rate := s.OverallSuccessRate()

	fmt.Fprintf(f.w, "\n%s\n", f.paint(text.Bold, "EVAL SUITE SUMMARY"))
	fmt.Fprintf(f.w, "  Cases: %d\n", s.TotalCases())
	fmt.Fprintf(f.w, "  Total generations: %d\n", s.TotalGenerations())
	fmt.Fprintf(f.w, "  Total test executions: %d\n", s.TotalTests())
	fmt.Fprintf(f.w, "  Success rate: %s (%d/%d)\n\n",
		f.paint(f.rateColor(rate), fmt.Sprintf("%.1f%%", rate)),
		s.TotalPassed(), s.TotalTests())

	t := table.NewWriter()
	t.SetOutputMirror(f.w)
	t.AppendHeader(table.Row{"Case", "Pass", "Tests"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Pass", Align: text.AlignRight},
		{Name: "Tests", Align: text.AlignRight},
	})

	for _, c := range s.RankedCaseSummary() {
		t.AppendRow(table.Row{
			c.CaseName,
			f.paint(f.rateColor(c.SuccessRate), fmt.Sprintf("%.0f%%", c.SuccessRate)),
			fmt.Sprintf("%d/%d", c.Passed, c.Total),
		})
	}
	t.AppendFooter(table.Row{"Overall", fmt.Sprintf("%.1f%%", rate),
		fmt.Sprintf("%d/%d", s.TotalPassed(), s.TotalTests())})

	if f.useColor {
		t.SetStyle(table.StyleLight)
	} else {
		t.SetStyle(table.StyleDefault)
	}
	t.Render()
}
