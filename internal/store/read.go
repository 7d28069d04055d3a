package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/mamdani/internal/ir"
)

// ErrRunNotFound is returned when a run id is not in the store.
var ErrRunNotFound = errors.New("run not found")

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ReadRun retrieves a run by ID.
func (s *Store) ReadRun(ctx context.Context, id string) (ir.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, rulebase_name, rulebase_hash, engine_version, ir_version, row_count
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// ListRuns returns every run ordered by id. UUIDv7 ids sort by creation time.
// Returns an empty slice (not nil) when the store has no runs.
func (s *Store) ListRuns(ctx context.Context) ([]ir.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rulebase_name, rulebase_hash, engine_version, ir_version, row_count
		FROM runs
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []ir.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LatestRun returns the most recently created run.
func (s *Store) LatestRun(ctx context.Context) (ir.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, rulebase_name, rulebase_hash, engine_version, ir_version, row_count
		FROM runs
		ORDER BY id COLLATE BINARY DESC
		LIMIT 1
	`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Run{}, ErrRunNotFound
	}
	return run, err
}

// ReadEvaluations returns the evaluations of a run ordered by seq.
// Returns an empty slice (not nil) if the run has no evaluations.
func (s *Store) ReadEvaluations(ctx context.Context, runID string) ([]ir.EvaluationRecord, error) {
	return s.QueryEvaluations(ctx, runID)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (ir.Run, error) {
	var run ir.Run
	err := row.Scan(
		&run.ID,
		&run.RuleBaseName,
		&run.RuleBaseHash,
		&run.EngineVersion,
		&run.IRVersion,
		&run.RowCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ir.Run{}, err
		}
		return ir.Run{}, fmt.Errorf("scan run: %w", err)
	}
	return run, nil
}

func scanEvaluation(row scanner) (ir.EvaluationRecord, error) {
	var (
		rec             ir.EvaluationRecord
		inputs, outputs string
		label           sql.NullInt64
		decision        sql.NullBool
	)
	err := row.Scan(
		&rec.ID,
		&rec.RunID,
		&rec.Seq,
		&inputs,
		&outputs,
		&rec.ErrorCode,
		&label,
		&decision,
		&rec.Fallback,
	)
	if err != nil {
		return ir.EvaluationRecord{}, fmt.Errorf("scan evaluation: %w", err)
	}

	if rec.Inputs, err = unmarshalValues(inputs); err != nil {
		return ir.EvaluationRecord{}, err
	}
	if rec.Outputs, err = unmarshalValues(outputs); err != nil {
		return ir.EvaluationRecord{}, err
	}
	if len(rec.Outputs) == 0 {
		rec.Outputs = nil
	}
	rec.Label = intPtr(label)
	rec.Decision = boolPtr(decision)
	return rec, nil
}
