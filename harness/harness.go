// Package harness is the entry point linked into suite binaries. A suite is
// a package main under the evals directory whose main function hands its
// registered cases to Main. The orchestrator drives the binary through two
// environment variables: FLAKY_PROBE=1 asks for the registered case and test
// names, FLAKY_GENERATION=<n> runs one full generation. Results cross the
// process boundary as a single line of JSON on stdout; there is no shared
// memory between the suite and the orchestrator.
package harness

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/flaky-dev/flaky/evalcase"
	"github.com/flaky-dev/flaky/types"
)

const (
	// GenerationEnv selects the 1-based generation index to run.
	GenerationEnv = "FLAKY_GENERATION"
	// ProbeEnv, when set to "1", lists registered cases instead of running.
	ProbeEnv = "FLAKY_PROBE"
)

// Probe is the response to a probe request: the registered case names and
// the combined, ordered test names they will execute.
type Probe struct {
	Cases []string `json:"cases"`
	Tests []string `json:"tests"`
}

// Main runs the suite protocol and exits the process. Test failures are
// data, not process errors: the exit code is non-zero only when the suite
// itself is unusable (no cases registered, malformed environment).
func Main(cases ...*evalcase.Case) {
	if err := run(os.Stdout, os.Environ, cases); err != nil {
		fmt.Fprintln(os.Stderr, "flaky harness:", err)
		os.Exit(1)
	}
}

func run(w io.Writer, environ func() []string, cases []*evalcase.Case) error {
	if len(cases) == 0 {
		return errors.New("no eval cases registered")
	}

	// Execute cases in name order so every generation walks the same
	// sequence regardless of registration order.
	ordered := make([]*evalcase.Case, len(cases))
	copy(ordered, cases)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Name() < ordered[j].Name() })

	env := parseEnv(environ())

	if env.probe {
		return writeJSON(w, buildProbe(ordered))
	}

	start := time.Now()
	combined := types.GenerationResult{GenerationNum: env.generation}
	for _, c := range ordered {
		result := c.RunAllTests(env.generation)
		combined.Tests = append(combined.Tests, result.Tests...)
	}
	combined.DurationMS = types.DurationMS(time.Since(start))

	return writeJSON(w, &combined)
}

func buildProbe(cases []*evalcase.Case) *Probe {
	probe := &Probe{Cases: []string{}, Tests: []string{}}
	for _, c := range cases {
		probe.Cases = append(probe.Cases, c.Name())
		for _, t := range c.Tests() {
			probe.Tests = append(probe.Tests, t.Name)
		}
	}
	return probe
}

type harnessEnv struct {
	probe      bool
	generation int
}

func parseEnv(environ []string) harnessEnv {
	env := harnessEnv{generation: 1}
	for _, kv := range environ {
		switch {
		case kv == ProbeEnv+"=1":
			env.probe = true
		case len(kv) > len(GenerationEnv)+1 && kv[:len(GenerationEnv)+1] == GenerationEnv+"=":
			if n, err := strconv.Atoi(kv[len(GenerationEnv)+1:]); err == nil && n > 0 {
				env.generation = n
			}
		}
	}
	return env
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	return enc.Encode(v)
}
