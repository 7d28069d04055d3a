package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lightsCUE is a two-rule base small enough to reason about by hand.
const lightsCUE = `
rulebase: lights: {
	input: level: {
		universe: {min: 0, max: 1, step: 0.1}
		terms: {
			dark: {triangle: [0, 0, 1]}
			bright: {triangle: [0, 1, 1]}
		}
	}
	output: lamp: {
		universe: {min: 0, max: 1, step: 0.1}
		terms: {
			off: {triangle: [0, 0, 1]}
			on: {triangle: [0, 1, 1]}
		}
	}
	rule: {
		dark_on: {"if": {is: level: "dark"}, then: lamp: "on"}
		bright_off: {"if": {is: level: "bright"}, then: lamp: "off"}
	}
}
`

func overtakeSpecDir() string {
	return filepath.Join("..", "..", "testdata", "specs", "overtake")
}

func scenariosDir() string {
	return filepath.Join("..", "..", "testdata", "scenarios")
}

// writeFile writes content under a fresh temp dir and returns its path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the root command with args and captures stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "mamdani", cmd.Use)
	assert.Contains(t, cmd.Long, "CUE")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"compile", "validate", "eval", "run", "report", "generate", "curves", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := execute(t, "--format", "xml", "validate", overtakeSpecDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestMissingConfigFile(t *testing.T) {
	_, _, err := execute(t, "--config", filepath.Join(t.TempDir(), "none.toml"), "eval", "-i", "distance=1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestVerboseLogsToStderr(t *testing.T) {
	stdout, stderr, err := execute(t, "--verbose", "eval",
		"-i", "distance=5", "-i", "relative_speed=50", "-i", "permission=1", "-i", "road=1", "-i", "visibility=1")
	require.NoError(t, err)
	assert.Contains(t, stderr, "engine ready")
	assert.NotContains(t, stdout, "engine ready")
}
