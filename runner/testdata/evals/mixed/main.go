package main

import (
	"github.com/flaky-dev/flaky/evalcase"
	"github.com/flaky-dev/flaky/expect"
	"github.com/flaky-dev/flaky/harness"
)

func main() {
	harness.Main(
		evalcase.New("MixedEval").
			Test("test_always_pass", func() {
				expect.Value(true).ToBeTrue()
			}).
			Test("test_always_fail", func() {
				expect.Value(false).ToBeTrue()
			}),
	)
}
