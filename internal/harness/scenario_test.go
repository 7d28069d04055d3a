package harness

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mamdani/internal/engine"
)

func TestLoadScenario_ResolvesSpec(t *testing.T) {
	sc, err := LoadScenario(filepath.Join(scenariosDir(), "far_and_fast.yaml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(scenariosDir(), "..", "specs", "overtake"), sc.Spec)
	require.NotNil(t, sc.Policy)
	assert.Equal(t, engine.Policy{Output: "overtake_decision", Threshold: 0.5, OnNoActivation: engine.OnNoActivationError}, sc.Policy.Policy())
}

func TestLoadScenario_MissingSpec(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: s
description: d
spec: nowhere
flow:
  - name: a
    inputs: {}
`), 0o644))

	_, err := LoadScenario(path)
	assert.ErrorContains(t, err, "spec not found")
}

func TestParseScenario_NaN(t *testing.T) {
	sc, err := LoadScenario(filepath.Join(scenariosDir(), "missing_input.yaml"))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(sc.Flow[1].Inputs["visibility"]))
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := map[string]struct {
		src  string
		want string
	}{
		"unknown field": {
			src:  "name: a\ndescription: d\nflows: []\n",
			want: "failed to parse YAML",
		},
		"no name": {
			src:  "description: d\nflow:\n  - name: a\n    inputs: {}\n",
			want: "name is required",
		},
		"no description": {
			src:  "name: a\nflow:\n  - name: a\n    inputs: {}\n",
			want: "description is required",
		},
		"empty flow": {
			src:  "name: a\ndescription: d\nflow: []\n",
			want: "flow list is required",
		},
		"step without name": {
			src:  "name: a\ndescription: d\nflow:\n  - inputs: {}\n",
			want: "flow[0]: name is required",
		},
		"duplicate step": {
			src:  "name: a\ndescription: d\nflow:\n  - name: s\n    inputs: {}\n  - name: s\n    inputs: {}\n",
			want: `duplicate step name "s"`,
		},
		"no inputs": {
			src:  "name: a\ndescription: d\nflow:\n  - name: s\n",
			want: "inputs is required",
		},
		"decision without policy": {
			src:  "name: a\ndescription: d\nflow:\n  - name: s\n    inputs: {}\n    expect:\n      decision: {act: true}\n",
			want: "decision needs a policy",
		},
		"fallback with spec": {
			src:  "name: a\ndescription: d\nspec: x\nfallback_rule: true\nflow:\n  - name: s\n    inputs: {}\n",
			want: "built-in rule base only",
		},
		"unknown assertion": {
			src:  "name: a\ndescription: d\nflow:\n  - name: s\n    inputs: {}\nassertions:\n  - type: magic\n",
			want: `unknown assertion type "magic"`,
		},
		"assertion on unknown step": {
			src:  "name: a\ndescription: d\nflow:\n  - name: s\n    inputs: {}\nassertions:\n  - type: rule_fired\n    step: t\n    rule: r\n",
			want: `unknown step "t"`,
		},
		"order needs two steps": {
			src:  "name: a\ndescription: d\nflow:\n  - name: s\n    inputs: {}\nassertions:\n  - type: output_increasing\n    output: o\n    steps: [s]\n",
			want: "needs at least two steps",
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenarios_Sorted(t *testing.T) {
	scenarios, err := LoadScenarios(scenariosDir())
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(scenarios), 2)
	for i := 1; i < len(scenarios); i++ {
		assert.Less(t, scenarios[i-1].Name, scenarios[i].Name)
	}
}
