package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mamdani/internal/overtake"
)

func TestCurves_TextTable(t *testing.T) {
	stdout, _, err := execute(t, "curves", "road")
	require.NoError(t, err)

	assert.Contains(t, stdout, "overtake.road over [0, 1] step 0.1")
	assert.Contains(t, stdout, "obstruida")
	assert.Contains(t, stdout, "livre")
	assert.Contains(t, stdout, " 0.3 ")
	assert.Contains(t, stdout, "0.400")
	assert.NotContains(t, stdout, "0.30000000000000004")
	assert.NotContains(t, stdout, "at road")
}

func TestCurves_Marker(t *testing.T) {
	stdout, _, err := execute(t, "curves", "road", "--marker", "0.25")
	require.NoError(t, err)

	assert.Contains(t, stdout, "at road = 0.25:")
	assert.Contains(t, stdout, "  obstruida        0.5000")
	assert.Contains(t, stdout, "  livre            0.0000")
}

func TestCurves_JSON(t *testing.T) {
	stdout, _, err := execute(t, "--format", "json", "curves", overtake.Distance, "--marker", "12")
	require.NoError(t, err)

	var resp struct {
		Status string   `json:"status"`
		Data   CurveSet `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)

	set := resp.Data
	assert.Equal(t, "overtake", set.RuleBase)
	assert.Equal(t, overtake.Distance, set.Variable)
	assert.Equal(t, []string{"pequena", "media", "grande"}, set.Terms)
	require.Len(t, set.Degrees, len(set.Terms))
	for _, d := range set.Degrees {
		assert.Len(t, d, len(set.X))
	}
	assert.InDelta(t, set.Universe.Min, set.X[0], 1e-9)
	assert.InDelta(t, set.Universe.Max, set.X[len(set.X)-1], 1e-9)

	require.NotNil(t, set.Marker)
	assert.InDelta(t, 12.0, *set.Marker, 1e-9)
	assert.InDelta(t, 0.8, set.AtMarker["pequena"], 1e-9)
	assert.InDelta(t, 0.0, set.AtMarker["media"], 1e-9)
	assert.InDelta(t, 0.0, set.AtMarker["grande"], 1e-9)
}

func TestCurves_CustomOutputVariable(t *testing.T) {
	spec := writeFile(t, "lights.cue", lightsCUE)

	stdout, _, err := execute(t, "curves", "--spec", spec, "lamp")
	require.NoError(t, err)
	assert.Contains(t, stdout, "lights.lamp over [0, 1] step 0.1")
	assert.Contains(t, stdout, "off")
	assert.Contains(t, stdout, "on")
}

func TestCurves_UnknownVariable(t *testing.T) {
	stdout, _, err := execute(t, "curves", "speed")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, `Error [E008]: rule base overtake has no variable "speed"`)
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "0.3", formatNumber(3*0.1))
	assert.Equal(t, "56", formatNumber(56))
	assert.Equal(t, "0.01", formatNumber(0.01))
}
