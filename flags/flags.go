// Package flags defines the command-line surface of the flaky binary. Every
// flag can also be set through an environment variable with the FLAKY_
// prefix.
package flags

import (
	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "FLAKY"

// prefixEnvVar builds the environment variable list for a flag name.
func prefixEnvVar(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

var (
	CaseName = &cli.StringFlag{
		Name:    "case",
		Value:   "",
		EnvVars: prefixEnvVar("CASE"),
		Usage:   "Name of the eval case to run (a subdirectory of the evals dir)",
	}
	All = &cli.BoolFlag{
		Name:    "all",
		Value:   false,
		EnvVars: prefixEnvVar("ALL"),
		Usage:   "Run every discovered eval case",
	}
	Runs = &cli.IntFlag{
		Name:    "runs",
		Value:   0,
		EnvVars: prefixEnvVar("RUNS"),
		Usage:   "Number of generations to run per case (default from flaky.yaml, else 5)",
	}
	Parallel = &cli.BoolFlag{
		Name:    "parallel",
		Value:   true,
		EnvVars: prefixEnvVar("PARALLEL"),
		Usage:   "Run generations concurrently",
	}
	Sequential = &cli.BoolFlag{
		Name:    "sequential",
		Value:   false,
		EnvVars: prefixEnvVar("SEQUENTIAL"),
		Usage:   "Run generations one at a time; overrides --parallel",
	}
	MaxWorkers = &cli.IntFlag{
		Name:    "max-workers",
		Value:   0,
		EnvVars: prefixEnvVar("MAX_WORKERS"),
		Usage:   "Maximum concurrent generations (default min(runs, 10))",
	}
	Format = &cli.StringFlag{
		Name:    "format",
		Value:   "text",
		EnvVars: prefixEnvVar("FORMAT"),
		Usage:   "Output format: 'text' or 'json'",
	}
	EvalsDir = &cli.StringFlag{
		Name:    "dir",
		Value:   "",
		EnvVars: prefixEnvVar("DIR"),
		Usage:   "Directory containing eval cases (default from flaky.yaml, else ./evals)",
	}
	GoBinary = &cli.StringFlag{
		Name:    "go-binary",
		Value:   "go",
		EnvVars: prefixEnvVar("GO_BINARY"),
		Usage:   "Path to the Go binary used to run eval suites",
	}
	Timeout = &cli.DurationFlag{
		Name:    "timeout",
		Value:   0,
		EnvVars: prefixEnvVar("TIMEOUT"),
		Usage:   "Per-generation timeout (e.g. '30s'). Set to 0 or omit for no timeout.",
	}
	Metrics = &cli.BoolFlag{
		Name:    "metrics",
		Value:   false,
		EnvVars: prefixEnvVar("METRICS"),
		Usage:   "Serve Prometheus metrics and healthz endpoints for the duration of the run",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log-level",
		Value:   "info",
		EnvVars: prefixEnvVar("LOG_LEVEL"),
		Usage:   "Log level: debug, info, warn, error",
	}
)

var Flags = []cli.Flag{
	CaseName,
	All,
	Runs,
	Parallel,
	Sequential,
	MaxWorkers,
	Format,
	EvalsDir,
	GoBinary,
	Timeout,
	Metrics,
	LogLevel,
}
