package main

import (
	"fmt"
	"os"

	"github.com/flaky-dev/flaky/evalcase"
	"github.com/flaky-dev/flaky/harness"
)

func main() {
	// Simulates a suite whose process dies before producing any result:
	// probes succeed, every generation crashes.
	if os.Getenv(harness.ProbeEnv) != "1" {
		fmt.Fprintln(os.Stderr, "fatal error outside any test method")
		os.Exit(3)
	}
	harness.Main(
		evalcase.New("CrashyEval").
			Test("test_never_reached", func() {}),
	)
}
