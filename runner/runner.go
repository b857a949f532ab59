// Package runner is the isolation and scheduling layer. It discovers eval
// cases under a directory, validates them with a probe before any execution,
// and runs N generations of a case in fresh suite processes with bounded
// parallelism. Each generation executes `go run .` in the case directory, so
// no state — including package-level state inside the suite — can survive
// from one generation to the next.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/flaky-dev/flaky/harness"
	"github.com/flaky-dev/flaky/reporting"
	"github.com/flaky-dev/flaky/types"
)

// DefaultMaxWorkers caps the worker pool when no explicit limit is given.
const DefaultMaxWorkers = 10

// probeTimeout bounds the suite validation run, which includes compiling
// the suite package.
const probeTimeout = 2 * time.Minute

// Config holds configuration for creating a Runner.
type Config struct {
	// CasesDir is the directory containing eval case subdirectories.
	CasesDir string
	// GoBinary is the Go toolchain used to build and run suites.
	// Defaults to "go".
	GoBinary string
	// Log receives orchestration events. Defaults to the standard logger.
	Log *logrus.Logger
	// GenTimeout bounds a single generation's execution. Zero means
	// unbounded; a timed-out generation is dropped like any other
	// generation-level failure.
	GenTimeout time.Duration
}

// Runner discovers and executes eval cases.
type Runner struct {
	casesDir   string
	goBinary   string
	log        *logrus.Logger
	genTimeout time.Duration

	// execGeneration is the per-generation execution function; a seam for
	// pool tests.
	execGeneration func(ctx context.Context, caseDir string, genNum int) (*types.GenerationResult, error)
}

// NewRunner creates a runner for the given cases directory.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.CasesDir == "" {
		return nil, fmt.Errorf("cases directory is required")
	}
	if cfg.GoBinary == "" {
		cfg.GoBinary = "go"
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}

	r := &Runner{
		casesDir:   cfg.CasesDir,
		goBinary:   cfg.GoBinary,
		log:        cfg.Log,
		genTimeout: cfg.GenTimeout,
	}
	r.execGeneration = r.runSingleGeneration
	return r, nil
}

// DiscoverCases returns the names of eval cases under the cases directory:
// subdirectories containing at least one .go file, sorted by name. A missing
// directory yields an empty list, not an error.
func (r *Runner) DiscoverCases() ([]string, error) {
	entries, err := os.ReadDir(r.casesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cases directory %s: %w", r.casesDir, err)
	}

	var cases []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		ok, err := hasGoFiles(filepath.Join(r.casesDir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if ok {
			cases = append(cases, entry.Name())
		}
	}
	sort.Strings(cases)
	return cases, nil
}

func hasGoFiles(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, fmt.Errorf("reading case directory %s: %w", dir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".go") {
			return true, nil
		}
	}
	return false, nil
}

// RunOptions configures a single RunCase invocation.
type RunOptions struct {
	// NumRuns is the number of generations to execute.
	NumRuns int
	// Parallel enables the worker pool; when false exactly one generation
	// runs at a time.
	Parallel bool
	// MaxWorkers caps the pool. Zero means min(NumRuns, DefaultMaxWorkers).
	MaxWorkers int
	// OnGeneration, when non-nil, is invoked for each surviving generation
	// in completion arrival order. Arrival order is unreliable; consumers
	// must key on GenerationNum.
	OnGeneration func(types.GenerationResult)
	// OnGenerationError, when non-nil, is invoked for each dropped
	// generation.
	OnGenerationError func(genNum int, err error)
}

// RunCase validates the named case and executes NumRuns generations of it.
// Suite discovery failures are returned before any generation is spawned.
// Generation-level failures are dropped from the report and surfaced through
// OnGenerationError; they never abort the remaining generations.
func (r *Runner) RunCase(ctx context.Context, name string, opts RunOptions) (*reporting.EvalReport, error) {
	if opts.NumRuns < 0 {
		return nil, fmt.Errorf("number of runs cannot be negative")
	}

	probe, err := r.ProbeCase(ctx, name)
	if err != nil {
		return nil, err
	}
	return r.RunProbed(ctx, name, probe, opts)
}

// RunProbed executes NumRuns generations of an already-probed case. Callers
// that probe up front (for a banner, say) use this to avoid compiling the
// suite a second time.
func (r *Runner) RunProbed(ctx context.Context, name string, probe *harness.Probe, opts RunOptions) (*reporting.EvalReport, error) {
	if opts.NumRuns < 0 {
		return nil, fmt.Errorf("number of runs cannot be negative")
	}

	runID := uuid.New().String()
	report := reporting.NewEvalReport(name, opts.NumRuns)
	report.RunID = runID

	workers := effectiveWorkers(opts)
	r.log.WithFields(logrus.Fields{
		"case":    name,
		"runs":    opts.NumRuns,
		"workers": workers,
		"run_id":  runID,
	}).Debug("Running eval case")

	report.Generations = r.executeGenerations(ctx, name, opts, workers)

	r.log.WithFields(logrus.Fields{
		"case":         name,
		"run_id":       runID,
		"generations":  len(report.Generations),
		"success_rate": report.SuccessRate(),
		"cases":        strings.Join(probe.Cases, ","),
	}).Debug("Eval case complete")

	return report, nil
}

// effectiveWorkers computes the pool size: one for sequential mode,
// otherwise the explicit limit or min(runs, DefaultMaxWorkers).
func effectiveWorkers(opts RunOptions) int {
	if !opts.Parallel {
		return 1
	}
	if opts.MaxWorkers > 0 {
		return opts.MaxWorkers
	}
	workers := opts.NumRuns
	if workers > DefaultMaxWorkers {
		workers = DefaultMaxWorkers
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

// ProbeCase locates the named case and asks its suite binary for the
// registered case and test names. This is the synchronous suite-discovery
// step: it fails before any generation executes when the case directory is
// missing, contains no Go files, or registers no eval cases.
func (r *Runner) ProbeCase(ctx context.Context, name string) (*harness.Probe, error) {
	caseDir := filepath.Join(r.casesDir, name)
	info, err := os.Stat(caseDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("eval case %q not found in %s", name, r.casesDir)
	}
	ok, err := hasGoFiles(caseDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no Go files found in eval case %q at %s", name, caseDir)
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cmd := r.suiteCommand(ctx, caseDir, harness.ProbeEnv+"=1")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log.WithFields(logrus.Fields{"case": name, "command": cmd.String()}).Debug("Probing eval case")

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("probing eval case %q timed out after %v", name, probeTimeout)
		}
		return nil, fmt.Errorf("probing eval case %q: %w\nstderr: %s", name, err, stderr.String())
	}

	probe := parseProbeOutput(stdout.Bytes())
	if probe == nil || len(probe.Cases) == 0 {
		return nil, fmt.Errorf("no eval cases registered in %q", name)
	}
	return probe, nil
}

// runSingleGeneration executes one generation in a fresh suite process and
// parses its result from stdout. Any failure here is a generation-level
// failure; the caller decides whether to drop or retry (it drops).
func (r *Runner) runSingleGeneration(ctx context.Context, caseDir string, genNum int) (*types.GenerationResult, error) {
	if r.genTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.genTimeout)
		defer cancel()
	}

	cmd := r.suiteCommand(ctx, caseDir, fmt.Sprintf("%s=%d", harness.GenerationEnv, genNum))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log.WithFields(logrus.Fields{
		"dir":        caseDir,
		"generation": genNum,
	}).Debug("Running generation")

	err := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("generation timed out after %v", r.genTimeout)
	}
	if err != nil {
		return nil, fmt.Errorf("suite process failed: %w\nstderr: %s", err, stderr.String())
	}

	result := parseGenerationOutput(stdout.Bytes())
	if result == nil {
		return nil, fmt.Errorf("no generation result in suite output\nstderr: %s", stderr.String())
	}

	// The submitted index is authoritative regardless of what the suite
	// echoed back.
	result.GenerationNum = genNum
	return result, nil
}

func (r *Runner) suiteCommand(ctx context.Context, caseDir string, extraEnv ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, r.goBinary, "run", ".")
	cmd.Dir = caseDir
	cmd.Env = append(os.Environ(), extraEnv...)
	return cmd
}

// parseGenerationOutput scans stdout line by line and returns the last line
// that decodes as a generation result. Suites may print freely; only the
// harness's JSON line is consumed.
func parseGenerationOutput(output []byte) *types.GenerationResult {
	var last *types.GenerationResult
	for _, line := range bytes.Split(output, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var gen types.GenerationResult
		if err := json.Unmarshal(line, &gen); err != nil {
			continue
		}
		if gen.GenerationNum > 0 {
			g := gen
			last = &g
		}
	}
	return last
}

func parseProbeOutput(output []byte) *harness.Probe {
	var last *harness.Probe
	for _, line := range bytes.Split(output, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var probe harness.Probe
		if err := json.Unmarshal(line, &probe); err != nil {
			continue
		}
		if probe.Cases != nil {
			p := probe
			last = &p
		}
	}
	return last
}
