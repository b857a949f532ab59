// Package evalcase defines the test case contract and the single-generation
// executor. A Case is a named collection of binary pass/fail test functions
// with optional per-test setup and teardown. Cases are built by explicit
// registration rather than reflection, so the set of tests is fixed at
// definition time and the engine never inspects suite types.
package evalcase

import (
	"fmt"
	"sort"
	"time"

	"github.com/flaky-dev/flaky/types"
)

// TestFunc is a single test body. It passes by returning normally and fails
// by panicking, typically via the expect package.
type TestFunc func()

// Test is one registered test method.
type Test struct {
	Name string
	Run  TestFunc
}

// Case is a named eval case. Build one with New and register tests with
// Test; the zero value is not usable.
//
//	case := evalcase.New("QuizEval").
//		Test("test_answers_correctly", func() {
//			expect.Value(answer).ToEqual("4")
//		})
type Case struct {
	name     string
	setUp    func()
	tearDown func()
	tests    []Test
}

// New creates an empty eval case with the given name.
func New(name string) *Case {
	if name == "" {
		panic("evalcase: case name cannot be empty")
	}
	return &Case{name: name}
}

// SetUp registers a function called before each test method.
func (c *Case) SetUp(fn func()) *Case {
	c.setUp = fn
	return c
}

// TearDown registers a function called after each test method.
func (c *Case) TearDown(fn func()) *Case {
	c.tearDown = fn
	return c
}

// Test registers a test method. Names must be unique within the case.
func (c *Case) Test(name string, fn TestFunc) *Case {
	for _, t := range c.tests {
		if t.Name == name {
			panic(fmt.Sprintf("evalcase: duplicate test name %q in case %q", name, c.name))
		}
	}
	c.tests = append(c.tests, Test{Name: name, Run: fn})
	return c
}

// Name returns the case name.
func (c *Case) Name() string { return c.name }

// Tests returns the registered tests ordered lexicographically by name, so
// repeated runs produce identically ordered result sequences regardless of
// registration order.
func (c *Case) Tests() []Test {
	out := make([]Test, len(c.tests))
	copy(out, c.tests)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RunTest runs a single test method through the setUp/body/tearDown protocol
// and returns its result. Failures never propagate: a panic in setUp or the
// body is captured, tearDown is still attempted with its own failure
// swallowed so it cannot mask the original cause. A tearDown panic after a
// clean body fails the test with the teardown's message. Duration is
// end-to-end including setup and teardown overhead.
func (c *Case) RunTest(name string, fn TestFunc) types.TestResult {
	start := time.Now()

	msg, failed := capture(func() {
		if c.setUp != nil {
			c.setUp()
		}
		fn()
	})
	if failed {
		capture(c.tearDown)
		return types.TestResult{
			Name:       name,
			Error:      msg,
			DurationMS: types.DurationMS(time.Since(start)),
		}
	}

	if tdMsg, tdFailed := capture(c.tearDown); tdFailed {
		return types.TestResult{
			Name:       name,
			Error:      tdMsg,
			DurationMS: types.DurationMS(time.Since(start)),
		}
	}

	return types.TestResult{
		Name:       name,
		Passed:     true,
		DurationMS: types.DurationMS(time.Since(start)),
	}
}

// RunAllTests runs every registered test in order and returns the combined
// generation result. The generation duration is wall-clock across the whole
// batch, not the sum of individual test durations.
func (c *Case) RunAllTests(generationNum int) types.GenerationResult {
	start := time.Now()
	result := types.GenerationResult{GenerationNum: generationNum}

	for _, t := range c.Tests() {
		result.Tests = append(result.Tests, c.RunTest(t.Name, t.Run))
	}

	result.DurationMS = types.DurationMS(time.Since(start))
	return result
}

// capture invokes fn (which may be nil) and converts a panic into a failure
// message.
func capture(fn func()) (msg string, failed bool) {
	defer func() {
		if r := recover(); r != nil {
			failed = true
			msg = panicMessage(r)
		}
	}()
	if fn != nil {
		fn()
	}
	return "", false
}

func panicMessage(r any) string {
	switch v := r.(type) {
	case error:
		return v.Error()
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
