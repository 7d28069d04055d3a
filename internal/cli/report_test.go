package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mamdani/internal/ir"
)

func TestReport_LatestRunText(t *testing.T) {
	csvPath := writeFile(t, "rows.csv", labeledCSV)
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	res := runDataset(t, csvPath, dbPath)

	stdout, _, err := execute(t, "report", dbPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Run "+fixedRunID)
	assert.Contains(t, stdout, "  rule base: overtake ("+res.RuleBaseHash+")")
	assert.Contains(t, stdout, "  rows:      4 (fallbacks 0)")
	assert.Contains(t, stdout, "  no_activation: 1")
	assert.Contains(t, stdout, "Accuracy:  1.00")
	assert.NotContains(t, stdout, "#0", "records are listed only with --rows")
}

func TestReport_RowsText(t *testing.T) {
	csvPath := writeFile(t, "rows.csv", labeledCSV)
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	runDataset(t, csvPath, dbPath)

	stdout, _, err := execute(t, "report", dbPath, fixedRunID, "--rows")
	require.NoError(t, err)
	assert.Contains(t, stdout, "  #0     overtake_decision=0.8367 act=true label=1")
	assert.Contains(t, stdout, "  #2     no_activation")
	assert.Contains(t, stdout, "  #3     missing_input")
}

func TestReport_List(t *testing.T) {
	csvPath := writeFile(t, "rows.csv", labeledCSV)
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	first := "0192a000-0000-7000-8000-000000000001"
	second := "0192a000-0000-7000-8000-000000000002"
	res := runDataset(t, csvPath, dbPath, first)
	runDataset(t, csvPath, dbPath, second)

	stdout, _, err := execute(t, "report", dbPath, "--list")
	require.NoError(t, err)
	assert.Contains(t, stdout, first+"  overtake          4 row(s)  "+shortHash(res.RuleBaseHash))
	assert.Contains(t, stdout, second)

	stdout, _, err = execute(t, "--format", "json", "report", dbPath)
	require.NoError(t, err)
	var resp struct {
		Data RunReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, second, resp.Data.Run.ID, "latest run is the default")
}

func TestReport_Errors(t *testing.T) {
	t.Run("missing_database", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "none.db")
		stdout, _, err := execute(t, "report", dbPath)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, stdout, "Error [E005]: database not found")
		assert.NoFileExists(t, dbPath)
	})

	t.Run("directory", func(t *testing.T) {
		_, _, err := execute(t, "report", t.TempDir())
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("unknown_run", func(t *testing.T) {
		csvPath := writeFile(t, "rows.csv", labeledCSV)
		dbPath := filepath.Join(t.TempDir(), "runs.db")
		runDataset(t, csvPath, dbPath)

		stdout, _, err := execute(t, "report", dbPath, "0192a000-0000-7000-8000-00000000ffff")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, stdout, "Error [E005]: run not found")
	})
}

func TestRescore(t *testing.T) {
	act, hold := true, false
	one, zero := 1, 0
	run := ir.Run{ID: "r1", RowCount: 5}
	recs := []ir.EvaluationRecord{
		{Seq: 0, Decision: &act, Label: &one},
		{Seq: 1, Decision: &hold, Label: &one},
		{Seq: 2, Decision: &hold, Label: &zero, Fallback: true, ErrorCode: "no_activation"},
		{Seq: 3, ErrorCode: "missing_input", Label: &zero},
		{Seq: 4, Decision: &act},
	}

	rep := Rescore(run, recs, 0.5)
	assert.Equal(t, run, rep.Run)
	assert.Equal(t, 1, rep.Fallbacks)
	assert.Equal(t, map[string]int{"no_activation": 1, "missing_input": 1}, rep.Errors)
	require.NotNil(t, rep.Report)
	assert.Equal(t, 1, rep.Report.Confusion.TP)
	assert.Equal(t, 1, rep.Report.Confusion.FN)
	assert.Equal(t, 1, rep.Report.Confusion.TN)
	assert.Equal(t, 0, rep.Report.Confusion.FP)
	assert.InDelta(t, 0.5, rep.Report.Threshold, 1e-9)

	unlabeled := Rescore(run, recs[4:], 0.5)
	assert.Nil(t, unlabeled.Report)
}

func TestShortHash(t *testing.T) {
	assert.Equal(t, "0123456789ab", shortHash("0123456789abcdef"))
	assert.Equal(t, "abc", shortHash("abc"))
}

func TestReport_Where(t *testing.T) {
	csvPath := writeFile(t, "rows.csv", labeledCSV)
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	runDataset(t, csvPath, dbPath)

	stdout, _, err := execute(t, "--format", "json", "report", dbPath, "--where", "error_code=no_activation")
	require.NoError(t, err)

	var resp struct {
		Data RunReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data.Records, 1)
	assert.Equal(t, int64(2), resp.Data.Records[0].Seq)
	require.NotNil(t, resp.Data.Report, "scores still cover the whole run")
	assert.Equal(t, 2, resp.Data.Report.Confusion.Total())

	stdout, _, err = execute(t, "report", dbPath, "--where", "decision=true", "--where", "label=1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "  #0     overtake_decision=0.8367 act=true label=1")
	assert.NotContains(t, stdout, "#1 ")

	stdout, _, err = execute(t, "report", dbPath, "--where", "seq=1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E008]: invalid --where")
}
