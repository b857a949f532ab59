package evalcase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flaky-dev/flaky/expect"
)

func TestTestsOrderedLexicographically(t *testing.T) {
	c := New("Ordering").
		Test("test_c", func() {}).
		Test("test_a", func() {}).
		Test("test_b", func() {})

	var names []string
	for _, tst := range c.Tests() {
		names = append(names, tst.Name)
	}
	assert.Equal(t, []string{"test_a", "test_b", "test_c"}, names)
}

func TestDuplicateTestNamePanics(t *testing.T) {
	c := New("Dup").Test("test_a", func() {})
	assert.Panics(t, func() { c.Test("test_a", func() {}) })
}

func TestRunTestPassing(t *testing.T) {
	c := New("Passing")
	result := c.RunTest("test_ok", func() {})

	assert.True(t, result.Passed)
	assert.Empty(t, result.Error)
	assert.GreaterOrEqual(t, result.DurationMS, 0.0)
}

func TestRunTestCapturesExpectFailure(t *testing.T) {
	c := New("Failing")
	result := c.RunTest("test_bad", func() {
		expect.Value(4).ToEqual(5)
	})

	assert.False(t, result.Passed)
	assert.Equal(t, "Expected 4 to equal 5", result.Error)
}

func TestRunTestCapturesArbitraryPanic(t *testing.T) {
	c := New("Panicking")
	result := c.RunTest("test_panics", func() {
		panic("unexpected state")
	})

	assert.False(t, result.Passed)
	assert.Equal(t, "unexpected state", result.Error)
}

func TestSetUpAndTearDownWrapEachTest(t *testing.T) {
	var calls []string
	c := New("Hooks").
		SetUp(func() { calls = append(calls, "setUp") }).
		TearDown(func() { calls = append(calls, "tearDown") }).
		Test("test_a", func() { calls = append(calls, "test_a") }).
		Test("test_b", func() { calls = append(calls, "test_b") })

	result := c.RunAllTests(1)
	require.Equal(t, 2, result.TotalCount())
	assert.Equal(t, []string{
		"setUp", "test_a", "tearDown",
		"setUp", "test_b", "tearDown",
	}, calls)
}

func TestSetUpFailureStillRunsTearDown(t *testing.T) {
	tearDownRan := false
	bodyRan := false
	c := New("SetUpFails").
		SetUp(func() { panic("setup exploded") }).
		TearDown(func() { tearDownRan = true })

	result := c.RunTest("test_x", func() { bodyRan = true })

	assert.False(t, result.Passed)
	assert.Equal(t, "setup exploded", result.Error)
	assert.False(t, bodyRan)
	assert.True(t, tearDownRan)
}

func TestTearDownFailureSwallowedAfterBodyFailure(t *testing.T) {
	c := New("BothFail").
		TearDown(func() { panic("teardown exploded") })

	result := c.RunTest("test_x", func() { panic("body exploded") })

	// The teardown failure must not mask the original cause.
	assert.False(t, result.Passed)
	assert.Equal(t, "body exploded", result.Error)
}

func TestTearDownFailureAfterPassingBodyFailsTest(t *testing.T) {
	c := New("TearDownFails").
		TearDown(func() { panic("teardown exploded") })

	result := c.RunTest("test_x", func() {})

	assert.False(t, result.Passed)
	assert.Equal(t, "teardown exploded", result.Error)
}

func TestRunAllTestsCollectsResultsInOrder(t *testing.T) {
	c := New("Mixed").
		Test("test_always_pass", func() { expect.Value(true).ToBeTrue() }).
		Test("test_always_fail", func() { expect.Value(false).ToBeTrue() })

	result := c.RunAllTests(7)

	require.Equal(t, 2, result.TotalCount())
	assert.Equal(t, 7, result.GenerationNum)
	assert.Equal(t, "test_always_fail", result.Tests[0].Name)
	assert.Equal(t, "test_always_pass", result.Tests[1].Name)
	assert.Equal(t, 1, result.PassedCount())
	assert.Equal(t, 1, result.FailedCount())
}

func TestRunAllTestsDurationIsWallClock(t *testing.T) {
	c := New("Timing").
		Test("test_sleep_a", func() { time.Sleep(5 * time.Millisecond) }).
		Test("test_sleep_b", func() { time.Sleep(5 * time.Millisecond) })

	result := c.RunAllTests(1)

	var sum float64
	for _, tr := range result.Tests {
		sum += tr.DurationMS
	}
	assert.GreaterOrEqual(t, result.DurationMS, sum*0.9)
	assert.GreaterOrEqual(t, result.DurationMS, 10.0)
}
