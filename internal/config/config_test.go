package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mamdani/internal/engine"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	ops, err := cfg.Operators()
	require.NoError(t, err)
	assert.Equal(t, "zadeh", ops.Name)
	assert.False(t, cfg.OverridesOperators())
	assert.Equal(t, engine.Policy{Output: "overtake_decision", Threshold: 0.5, OnNoActivation: "error"}, cfg.Policy())
}

func TestParse_OverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[engine]
and = "product"
or = "probsum"

[decision]
threshold = 0.6
on_no_activation = "default"

[batch]
workers = 8
db_path = "runs.db"
`))
	require.NoError(t, err)

	assert.Equal(t, "product", cfg.Engine.And)
	assert.Equal(t, "overtake_decision", cfg.Decision.Output, "unset keys keep defaults")
	assert.Equal(t, 0.6, cfg.Decision.Threshold)
	assert.Equal(t, "default", cfg.Decision.OnNoActivation)
	assert.Equal(t, 8, cfg.Batch.Workers)
	assert.Equal(t, "runs.db", cfg.Batch.DBPath)

	ops, err := cfg.Operators()
	require.NoError(t, err)
	assert.Equal(t, "product", ops.Name)
	assert.True(t, cfg.OverridesOperators())
}

func TestParse_UnknownKey(t *testing.T) {
	_, err := Parse([]byte("[engine]\nimplication = \"product\"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode config")
}

func TestParse_ValidationFailures(t *testing.T) {
	tests := map[string]string{
		"bad and":       "[engine]\nand = \"lukasiewicz\"\n",
		"bad or":        "[engine]\nor = \"bounded\"\n",
		"threshold > 1": "[decision]\nthreshold = 1.5\n",
		"bad policy":    "[decision]\non_no_activation = \"ignore\"\n",
		"no workers":    "[batch]\nworkers = 0\n",
		"empty output":  "[decision]\noutput = \"\"\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src))
			require.Error(t, err)
			var verrs validator.ValidationErrors
			assert.True(t, errors.As(err, &verrs), "want validator errors, got %v", err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mamdani.toml")
	require.NoError(t, os.WriteFile(path, []byte("[batch]\nworkers = 2\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Batch.Workers)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Batch.DBPath = "x.db"
	raw, err := cfg.Encode()
	require.NoError(t, err)

	back, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}
