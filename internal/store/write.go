package store

import (
	"context"
	"fmt"

	"github.com/roach88/mamdani/internal/ir"
)

// WriteRun inserts a run record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteRun(ctx context.Context, run ir.Run) error {
	return writeRun(ctx, s.db, run)
}

// WriteRunRecords inserts a run and its evaluations in one transaction, so a
// failed write leaves neither behind. run.RowCount is stored as given.
func (s *Store) WriteRunRecords(ctx context.Context, run ir.Run, recs []ir.EvaluationRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run %s: begin tx: %w", run.ID, err)
	}
	defer tx.Rollback() // No-op if committed

	if err := writeRun(ctx, tx, run); err != nil {
		return err
	}
	for _, rec := range recs {
		if err := writeEvaluation(ctx, tx, rec); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run %s: commit: %w", run.ID, err)
	}
	return nil
}

func writeRun(ctx context.Context, db execer, run ir.Run) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO runs
		(id, rulebase_name, rulebase_hash, engine_version, ir_version, row_count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.RuleBaseName,
		run.RuleBaseHash,
		run.EngineVersion,
		run.IRVersion,
		run.RowCount,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// SetRowCount updates the number of rows recorded for a run.
func (s *Store) SetRowCount(ctx context.Context, runID string, n int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET row_count = ? WHERE id = ?`, n, runID)
	if err != nil {
		return fmt.Errorf("set row count: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("set row count: %w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// WriteEvaluation inserts one evaluation record.
// Uses ON CONFLICT DO NOTHING, so writing the same (run_id, seq) twice keeps
// the first record.
//
// Note: The run referenced by RunID must exist (foreign key constraint).
func (s *Store) WriteEvaluation(ctx context.Context, rec ir.EvaluationRecord) error {
	return writeEvaluation(ctx, s.db, rec)
}

// WriteEvaluations inserts records in one transaction.
func (s *Store) WriteEvaluations(ctx context.Context, recs []ir.EvaluationRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write evaluations: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, rec := range recs {
		if err := writeEvaluation(ctx, tx, rec); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write evaluations: commit: %w", err)
	}
	return nil
}

func writeEvaluation(ctx context.Context, db execer, rec ir.EvaluationRecord) error {
	inputs, err := marshalValues(rec.Inputs)
	if err != nil {
		return fmt.Errorf("write evaluation %d: %w", rec.Seq, err)
	}
	outputs, err := marshalValues(rec.Outputs)
	if err != nil {
		return fmt.Errorf("write evaluation %d: %w", rec.Seq, err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO evaluations
		(id, run_id, seq, inputs, outputs, error_code, label, decision, fallback)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		rec.ID,
		rec.RunID,
		rec.Seq,
		inputs,
		outputs,
		rec.ErrorCode,
		nullInt(rec.Label),
		nullBool(rec.Decision),
		rec.Fallback,
	)
	if err != nil {
		return fmt.Errorf("write evaluation %d: %w", rec.Seq, err)
	}
	return nil
}
