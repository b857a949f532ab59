package main

import (
	"time"

	"github.com/flaky-dev/flaky/evalcase"
	"github.com/flaky-dev/flaky/harness"
)

func main() {
	harness.Main(
		evalcase.New("SleepyEval").
			Test("test_sleeps_then_passes", func() {
				time.Sleep(10 * time.Millisecond)
			}),
	)
}
