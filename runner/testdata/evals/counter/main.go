package main

import (
	"github.com/flaky-dev/flaky/evalcase"
	"github.com/flaky-dev/flaky/expect"
	"github.com/flaky-dev/flaky/harness"
)

// counter is package-level state a careless suite author might assume is
// reset between runs. It only equals 1 on every generation because each
// generation executes in a freshly initialized process.
var counter int

func main() {
	harness.Main(
		evalcase.New("CounterEval").
			Test("test_counter_starts_fresh", func() {
				counter++
				expect.Value(counter).ToEqual(1)
			}),
	)
}
