package cli

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// overtakeInputs builds the -i flags of the built-in rule base.
func overtakeInputs(distance, speed, permission, road, visibility float64) []string {
	return []string{
		"-i", fmt.Sprintf("distance=%v", distance),
		"-i", fmt.Sprintf("relative_speed=%v", speed),
		"-i", fmt.Sprintf("permission=%v", permission),
		"-i", fmt.Sprintf("road=%v", road),
		"-i", fmt.Sprintf("visibility=%v", visibility),
	}
}

type evalResponse struct {
	Status string     `json:"status"`
	Data   EvalResult `json:"data"`
	Error  *CLIError  `json:"error"`
}

func TestEval_CloseAndFastActs(t *testing.T) {
	args := append([]string{"eval", "--explain"}, overtakeInputs(5, 50, 1, 1, 1)...)
	stdout, _, err := execute(t, args...)
	require.NoError(t, err)

	assert.Contains(t, stdout, "overtake_decision = 0.8367")
	assert.Contains(t, stdout, "decision: act (0.8367 vs threshold 0.50)")
	assert.Contains(t, stdout, "fired:")
	assert.Contains(t, stdout, "close_fast")
	assert.Contains(t, stdout, "overtake_decision=sim  1.0000")
	assert.NotContains(t, stdout, "far_fast")
}

func TestEval_FarAndFastHoldsJSON(t *testing.T) {
	args := append([]string{"--format", "json", "eval"}, overtakeInputs(45, 50, 1, 1, 1)...)
	stdout, _, err := execute(t, args...)
	require.NoError(t, err)

	var resp evalResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "overtake", resp.Data.RuleBase)
	assert.InDelta(t, 0.163333, resp.Data.Outputs["overtake_decision"], 1e-5)
	require.NotNil(t, resp.Data.Decision)
	assert.False(t, resp.Data.Decision.Act)
	assert.False(t, resp.Data.Decision.Fallback)
	assert.Empty(t, resp.Data.Fired, "fired rules are listed only with --explain")
}

func TestEval_MissingInputRejected(t *testing.T) {
	stdout, _, err := execute(t, "eval", "-i", "distance=5")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E130]: missing_input")
}

func TestEval_NoActivation(t *testing.T) {
	args := append([]string{"--format", "json", "eval"}, overtakeInputs(25, 25, 0.5, 0.5, 0.5)...)
	stdout, _, err := execute(t, args...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp evalResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNoDecision, resp.Error.Code)
	assert.Equal(t, "no_activation", resp.Data.Failures["overtake_decision"])
	assert.Nil(t, resp.Data.Decision)
}

func TestEval_NoActivationFallsBackToDefault(t *testing.T) {
	cfg := writeFile(t, "mamdani.toml", `
[decision]
output = "overtake_decision"
threshold = 0.5
on_no_activation = "default"
default_value = 0.0
`)
	args := append([]string{"--config", cfg, "eval"}, overtakeInputs(25, 25, 0.5, 0.5, 0.5)...)
	stdout, _, err := execute(t, args...)
	require.NoError(t, err)

	assert.Contains(t, stdout, "overtake_decision: no_activation")
	assert.Contains(t, stdout, "decision: hold (0.0000 vs threshold 0.50, fallback value)")
}

func TestEval_CustomRuleBase(t *testing.T) {
	spec := writeFile(t, "lights.cue", lightsCUE)

	stdout, _, err := execute(t, "eval", "--spec", spec, "-i", "level=0")
	require.NoError(t, err)
	assert.Contains(t, stdout, "lamp = 0.7000")
	assert.NotContains(t, stdout, "decision:", "lights has no overtake_decision output")
}

func TestEval_UnknownRuleBase(t *testing.T) {
	spec := writeFile(t, "lights.cue", lightsCUE)

	_, _, err := execute(t, "eval", "--spec", spec, "--rulebase", "heating", "-i", "level=0")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestEval_BadInputFlag(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no_equals", "distance"},
		{"empty_name", "=3"},
		{"not_a_number", "distance=far"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, "eval", "-i", tt.input)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, stdout, "Error [E008]: invalid --input")
		})
	}
}

func TestEval_ProductOperatorsFromConfig(t *testing.T) {
	cfg := writeFile(t, "mamdani.toml", `
[engine]
and = "product"
or = "probsum"
`)
	args := append([]string{"--format", "json", "--config", cfg, "eval"}, overtakeInputs(5, 50, 1, 1, 1)...)
	stdout, _, err := execute(t, args...)
	require.NoError(t, err)

	var resp evalResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.NotNil(t, resp.Data.Decision)
	assert.True(t, resp.Data.Decision.Act)
}

func TestParseInputs(t *testing.T) {
	got, err := ParseInputs([]string{"distance=5", " road = 1 ", "distance=7"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"distance": 7, "road": 1}, got)

	_, err = ParseInputs([]string{"distance"})
	assert.EqualError(t, err, `"distance": want name=value`)
}

func TestSortedNames(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, sortedNames(map[string]int{"c": 1, "a": 2, "b": 3}))
	assert.Empty(t, sortedNames(map[string]string(nil)))
}
