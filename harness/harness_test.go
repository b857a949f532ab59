package harness

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flaky-dev/flaky/evalcase"
	"github.com/flaky-dev/flaky/expect"
	"github.com/flaky-dev/flaky/types"
)

func envOf(vars ...string) func() []string {
	return func() []string { return vars }
}

func TestRunRequiresCases(t *testing.T) {
	var buf bytes.Buffer
	err := run(&buf, envOf(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no eval cases registered")
}

func TestProbeListsCasesAndTestsInOrder(t *testing.T) {
	zebra := evalcase.New("ZebraEval").Test("test_z", func() {})
	alpha := evalcase.New("AlphaEval").
		Test("test_b", func() {}).
		Test("test_a", func() {})

	var buf bytes.Buffer
	require.NoError(t, run(&buf, envOf(ProbeEnv+"=1"), []*evalcase.Case{zebra, alpha}))

	var probe Probe
	require.NoError(t, json.Unmarshal(buf.Bytes(), &probe))
	assert.Equal(t, []string{"AlphaEval", "ZebraEval"}, probe.Cases)
	assert.Equal(t, []string{"test_a", "test_b", "test_z"}, probe.Tests)
}

func TestRunCombinesCasesIntoOneGeneration(t *testing.T) {
	first := evalcase.New("FirstEval").
		Test("test_pass", func() { expect.Value(true).ToBeTrue() })
	second := evalcase.New("SecondEval").
		Test("test_fail", func() { expect.Value(true).ToBeFalse() })

	var buf bytes.Buffer
	require.NoError(t, run(&buf, envOf(GenerationEnv+"=4"), []*evalcase.Case{second, first}))

	var result types.GenerationResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, 4, result.GenerationNum)
	require.Equal(t, 2, result.TotalCount())
	assert.Equal(t, "test_pass", result.Tests[0].Name)
	assert.Equal(t, "test_fail", result.Tests[1].Name)
	assert.Equal(t, 1, result.PassedCount())
	assert.Equal(t, 1, result.FailedCount())
}

func TestGenerationDefaultsToOne(t *testing.T) {
	c := evalcase.New("DefaultGen").Test("test_a", func() {})

	var buf bytes.Buffer
	require.NoError(t, run(&buf, envOf("FLAKY_GENERATION=bogus"), []*evalcase.Case{c}))

	var result types.GenerationResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, 1, result.GenerationNum)
}

func TestOutputIsSingleJSONLine(t *testing.T) {
	c := evalcase.New("OneLine").Test("test_a", func() {})

	var buf bytes.Buffer
	require.NoError(t, run(&buf, envOf(GenerationEnv+"=1"), []*evalcase.Case{c}))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	assert.Len(t, lines, 1)
}
