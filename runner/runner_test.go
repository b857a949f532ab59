package runner

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewRunnerRequiresCasesDir(t *testing.T) {
	_, err := NewRunner(Config{})
	require.Error(t, err)
}

func TestDiscoverCases(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "zeta", "main.go"), "package main\n")
	writeFile(t, filepath.Join(dir, "alpha", "main.go"), "package main\n")
	// A directory without Go files is not an eval case.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "notes"), 0o755))
	writeFile(t, filepath.Join(dir, "notes", "README.md"), "nothing here\n")
	// Loose files at the top level are ignored.
	writeFile(t, filepath.Join(dir, "stray.go"), "package main\n")

	r, err := NewRunner(Config{CasesDir: dir})
	require.NoError(t, err)

	cases, err := r.DiscoverCases()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, cases)
}

func TestDiscoverCasesMissingDir(t *testing.T) {
	r, err := NewRunner(Config{CasesDir: filepath.Join(t.TempDir(), "does-not-exist")})
	require.NoError(t, err)

	cases, err := r.DiscoverCases()
	require.NoError(t, err)
	assert.Empty(t, cases)
}

func TestProbeCaseMissingCase(t *testing.T) {
	r, err := NewRunner(Config{CasesDir: t.TempDir()})
	require.NoError(t, err)

	_, err = r.ProbeCase(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestProbeCaseNoGoFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "empty", "README.md"), "no code\n")

	r, err := NewRunner(Config{CasesDir: dir})
	require.NoError(t, err)

	_, err = r.ProbeCase(context.Background(), "empty")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no Go files")
}

func TestRunCaseRejectsNegativeRuns(t *testing.T) {
	r, err := NewRunner(Config{CasesDir: t.TempDir()})
	require.NoError(t, err)

	_, err = r.RunCase(context.Background(), "whatever", RunOptions{NumRuns: -1})
	require.Error(t, err)
}

// The tests below execute real suite processes under testdata/evals.

func newEvalsRunner(t *testing.T) *Runner {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping subprocess tests in short mode")
	}
	r, err := NewRunner(Config{CasesDir: filepath.Join("testdata", "evals")})
	require.NoError(t, err)
	return r
}

func TestProbeCaseReportsRegisteredTests(t *testing.T) {
	r := newEvalsRunner(t)

	probe, err := r.ProbeCase(context.Background(), "mixed")
	require.NoError(t, err)
	assert.Equal(t, []string{"MixedEval"}, probe.Cases)
	assert.Equal(t, []string{"test_always_fail", "test_always_pass"}, probe.Tests)
}

func TestRunCaseMixedSequential(t *testing.T) {
	r := newEvalsRunner(t)

	report, err := r.RunCase(context.Background(), "mixed", RunOptions{NumRuns: 3})
	require.NoError(t, err)
	require.Len(t, report.Generations, 3)

	for i, g := range report.Generations {
		assert.Equal(t, i+1, g.GenerationNum)
	}

	assert.Equal(t, 6, report.TotalTests())
	assert.Equal(t, 3, report.TotalPassed())
	assert.Equal(t, 3, report.TotalFailed())
	assert.InDelta(t, 50.0, report.SuccessRate(), 0.001)

	breakdown := report.PerTestBreakdown()
	assert.Equal(t, 3, breakdown["test_always_pass"].Passed)
	assert.Equal(t, 0, breakdown["test_always_fail"].Passed)
}

func TestRunCaseSinglePassParallel(t *testing.T) {
	r := newEvalsRunner(t)

	report, err := r.RunCase(context.Background(), "single_pass", RunOptions{NumRuns: 5, Parallel: true})
	require.NoError(t, err)
	require.Len(t, report.Generations, 5)
	assert.InDelta(t, 100.0, report.SuccessRate(), 0.001)
	assert.NotEmpty(t, report.RunID)
}

func TestRunCaseGenerationsAreIsolated(t *testing.T) {
	r := newEvalsRunner(t)

	// The counter suite fails if package-level state leaks between
	// generations; every generation must see a fresh process.
	report, err := r.RunCase(context.Background(), "counter", RunOptions{NumRuns: 4, Parallel: true})
	require.NoError(t, err)
	require.Len(t, report.Generations, 4)
	assert.InDelta(t, 100.0, report.SuccessRate(), 0.001)
}

func TestRunCaseTimingCapturesSleep(t *testing.T) {
	r := newEvalsRunner(t)

	report, err := r.RunCase(context.Background(), "sleepy", RunOptions{NumRuns: 2})
	require.NoError(t, err)

	timing := report.PerTestTiming()
	sleepTiming, ok := timing["test_sleeps_then_passes"]
	require.True(t, ok)
	assert.GreaterOrEqual(t, sleepTiming.AvgMS, 10.0)
	assert.GreaterOrEqual(t, sleepTiming.MaxMS, sleepTiming.MinMS)
}

func TestRunCaseCrashedGenerationsAreDropped(t *testing.T) {
	r := newEvalsRunner(t)

	var mu sync.Mutex
	var failed []int
	report, err := r.RunCase(context.Background(), "crashy", RunOptions{
		NumRuns: 3,
		OnGenerationError: func(genNum int, err error) {
			mu.Lock()
			defer mu.Unlock()
			failed = append(failed, genNum)
		},
	})
	require.NoError(t, err)
	assert.Empty(t, report.Generations)
	assert.Equal(t, 0, report.TotalTests())

	mu.Lock()
	assert.ElementsMatch(t, []int{1, 2, 3}, failed)
	mu.Unlock()
}
