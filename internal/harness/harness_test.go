package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func scenariosDir() string {
	return filepath.Join("..", "..", "testdata", "scenarios")
}

func TestScenarios_Golden(t *testing.T) {
	scenarios, err := LoadScenarios(scenariosDir())
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, sc := range scenarios {
		t.Run(sc.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, sc)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Len(t, result.Trace, len(sc.Flow))
		})
	}
}

func TestRun_SpecFromCUEMatchesBuiltIn(t *testing.T) {
	builtIn, err := ParseScenario([]byte(`
name: builtin
description: d
flow:
  - name: s
    inputs: {distance: 17.3, relative_speed: 33.1, permission: 0.8, road: 0.9, visibility: 0.7}
`))
	require.NoError(t, err)
	fromCUE := *builtIn
	fromCUE.Spec = filepath.Join("..", "..", "testdata", "specs", "overtake")

	a, err := Run(builtIn)
	require.NoError(t, err)
	b, err := Run(&fromCUE)
	require.NoError(t, err)

	require.Len(t, b.Trace, 1)
	assert.InDelta(t, a.Trace[0].Outputs["overtake_decision"], b.Trace[0].Outputs["overtake_decision"], 1e-9)
}

func TestRun_ReportsFailedExpectations(t *testing.T) {
	sc, err := ParseScenario([]byte(`
name: wrong
description: expectations that do not hold
policy: {output: overtake_decision, threshold: 0.5}
flow:
  - name: go
    inputs: {distance: 5, relative_speed: 50, permission: 1, road: 1, visibility: 1}
    expect:
      outputs:
        overtake_decision: {lt: 0.5, approx: 0.1}
      decision: {act: false}
  - name: missing
    inputs: {distance: 5}
    expect:
      outputs:
        overtake_decision: {gt: 0}
assertions:
  - type: rule_fired
    step: go
    rule: far_fast
`))
	require.NoError(t, err)

	result, err := Run(sc)
	require.NoError(t, err)
	assert.False(t, result.Pass)

	joined := strings.Join(result.Errors, "\n")
	assert.Contains(t, joined, "step go: output overtake_decision = 0.836667: want < 0.5, want 0.1 +/- 1e-06")
	assert.Contains(t, joined, "step go: expected act=false, got true")
	assert.Contains(t, joined, "step missing: unexpected error missing_input")
	assert.Contains(t, joined, "rule far_fast fired in step go")
}

func TestRun_DecisionErrorLeavesNoDecision(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	sc, err := ParseScenario([]byte(`
name: strict
description: no fallback
policy: {output: overtake_decision, threshold: 0.5}
flow:
  - name: uncovered
    inputs: {distance: 25, relative_speed: 25, permission: 0.5, road: 0.5, visibility: 0.5}
    expect:
      decision: {act: false}
`))
	require.NoError(t, err)

	result, err := Run(sc, WithLogger(zap.New(core)))
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors, "step uncovered: expected a decision, got none")
	assert.Equal(t, 1, logs.FilterMessage("no decision").Len())
	assert.Equal(t, 1, logs.FilterMessage("no activation").Len())
}

func TestRun_InvalidSpec(t *testing.T) {
	sc := &Scenario{
		Name:        "bad",
		Description: "d",
		Spec:        filepath.Join(t.TempDir(), "missing"),
		Flow:        []Step{{Name: "s", Inputs: map[string]float64{}}},
	}
	_, err := Run(sc)
	assert.ErrorContains(t, err, "load spec")
}

func TestRun_UnknownOperator(t *testing.T) {
	sc, err := ParseScenario([]byte(`
name: ops
description: d
operators: {and: lukasiewicz}
flow:
  - name: s
    inputs: {}
`))
	require.NoError(t, err)
	_, err = Run(sc)
	assert.ErrorContains(t, err, "build rule base")
}

func TestBoundCheck(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	assert.Empty(t, Bound{}.check(3))
	assert.Empty(t, Bound{GT: f(0), LT: f(1)}.check(0.5))
	assert.Equal(t, "want > 0.5", Bound{GT: f(0.5)}.check(0.5))
	assert.Empty(t, Bound{Approx: f(0.5), Tolerance: 0.1}.check(0.55))
	assert.NotEmpty(t, Bound{Approx: f(0.5)}.check(0.5001))
}
