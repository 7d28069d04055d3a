// Package batch evaluates many rows against one shared engine.
//
// Rows are fanned out to a bounded pool of goroutines. Per-row failures
// (missing inputs, NaN or infinite inputs, no activated rule) are recorded on
// the row and never abort the batch; only context cancellation and store
// errors do. Results
// always come back in row order, whatever the worker count.
package batch

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/mamdani/internal/dataset"
	"github.com/roach88/mamdani/internal/engine"
	"github.com/roach88/mamdani/internal/evaluation"
	"github.com/roach88/mamdani/internal/fuzzy"
	"github.com/roach88/mamdani/internal/ir"
)

// DefaultWorkers is the pool size when none is configured.
const DefaultWorkers = 4

// Latency histogram range in nanoseconds: 1ns to 10s, 3 significant figures.
const (
	latencyMin    = 1
	latencyMax    = int64(10 * time.Second)
	latencyDigits = 3
)

// Sink persists runs. *store.Store implements it. WriteRunRecords must store
// the run and its records atomically.
type Sink interface {
	WriteRunRecords(ctx context.Context, run ir.Run, recs []ir.EvaluationRecord) error
}

// Runner evaluates datasets. A Runner is safe for concurrent use when its
// Sink is.
type Runner struct {
	engine  *engine.Engine
	policy  engine.Policy
	workers int
	sink    Sink
	ids     IDGenerator
	hash    string
	logger  *zap.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithWorkers bounds the number of concurrent evaluations.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithSink persists every run to s.
func WithSink(s Sink) Option {
	return func(r *Runner) { r.sink = s }
}

// WithIDGenerator overrides the UUIDv7 run id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Runner) { r.ids = g }
}

// WithRuleBaseHash records the content hash of the rule base on each run.
func WithRuleBaseHash(hash string) Option {
	return func(r *Runner) { r.hash = hash }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a Runner around a shared engine.
func NewRunner(eng *engine.Engine, policy engine.Policy, opts ...Option) *Runner {
	r := &Runner{
		engine:  eng,
		policy:  policy,
		workers: DefaultWorkers,
		ids:     UUIDv7Generator{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RowResult is the outcome of one row.
type RowResult struct {
	Seq      int
	Inputs   map[string]float64
	Outputs  map[string]float64
	Err      error
	Decision *engine.Decision
	Label    *int
	Latency  time.Duration
}

// ErrorCode is the stable code of the row failure, "" on success.
func (r RowResult) ErrorCode() string {
	return fuzzy.ErrorCode(r.Err)
}

// Summary is the outcome of a Run.
type Summary struct {
	RunID     string
	Rows      []RowResult
	Failed    int
	Fallbacks int
	Latency   *hdrhistogram.Histogram
	// Report is nil when no row has both a label and a decision.
	Report *evaluation.Report
}

// Decided is the number of rows that produced a decision.
func (s *Summary) Decided() int {
	return len(s.Rows) - s.Failed
}

// Predictions returns labels and decision values of rows that have both.
func (s *Summary) Predictions() (labels []int, preds []float64) {
	for _, row := range s.Rows {
		if row.Label == nil || row.Decision == nil {
			continue
		}
		labels = append(labels, *row.Label)
		preds = append(preds, row.Decision.Value)
	}
	return labels, preds
}

// Run evaluates rows concurrently and, when a Sink is configured, persists
// the run and every evaluation under a fresh run id.
func (r *Runner) Run(ctx context.Context, rows []dataset.Row) (*Summary, error) {
	runID := r.ids.Generate()
	results := make([]RowResult, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := range rows {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.evaluate(i, rows[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	sum := &Summary{
		RunID:   runID,
		Rows:    results,
		Latency: hdrhistogram.New(latencyMin, latencyMax, latencyDigits),
	}
	for _, row := range results {
		if row.Err != nil && row.Decision == nil {
			sum.Failed++
		}
		if row.Decision != nil && row.Decision.Fallback {
			sum.Fallbacks++
		}
		_ = sum.Latency.RecordValue(min(max(row.Latency.Nanoseconds(), latencyMin), latencyMax))
	}

	if labels, preds := sum.Predictions(); len(labels) > 0 {
		report, err := evaluation.Evaluate(labels, preds, r.policy.Threshold)
		if err != nil {
			return nil, err
		}
		sum.Report = &report
	}

	r.logger.Info("batch complete",
		zap.String("run_id", runID),
		zap.Int("rows", len(results)),
		zap.Int("failed", sum.Failed),
		zap.Int("fallbacks", sum.Fallbacks),
		zap.Duration("p50", time.Duration(sum.Latency.ValueAtQuantile(50))),
		zap.Duration("p99", time.Duration(sum.Latency.ValueAtQuantile(99))),
	)

	if r.sink != nil {
		if err := r.persist(ctx, sum); err != nil {
			return nil, err
		}
	}
	return sum, nil
}

func (r *Runner) evaluate(seq int, row dataset.Row) RowResult {
	out := RowResult{Seq: seq, Inputs: row.Values, Label: row.Label}

	start := time.Now()
	res, err := r.engine.Evaluate(row.Values)
	out.Latency = time.Since(start)
	if err != nil {
		out.Err = err
		r.logger.Debug("row rejected", zap.Int("seq", seq), zap.Error(err))
		return out
	}

	out.Outputs = res.Outputs
	d, err := r.policy.Decide(res)
	if d.Fallback {
		// Keep the no-activation cause visible next to the substituted value.
		out.Err = res.Failures[r.policy.Output]
	}
	if err != nil {
		out.Err = err
		return out
	}
	out.Decision = &d
	return out
}

// persist builds every record before touching the sink, so a record that
// cannot be encoded leaves no partial run behind.
func (r *Runner) persist(ctx context.Context, sum *Summary) error {
	recs := make([]ir.EvaluationRecord, 0, len(sum.Rows))
	for _, row := range sum.Rows {
		rec, err := Record(sum.RunID, row)
		if err != nil {
			return err
		}
		recs = append(recs, rec)
	}

	rb := r.engine.RuleBase()
	run := ir.Run{
		ID:            sum.RunID,
		RuleBaseName:  rb.Name(),
		RuleBaseHash:  r.hash,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
		RowCount:      int64(len(recs)),
	}
	return r.sink.WriteRunRecords(ctx, run, recs)
}

// Record converts a row result into its persisted form. NaN and infinite
// inputs are dropped since the log stores canonical JSON; the row's error
// code still says why it failed.
func Record(runID string, row RowResult) (ir.EvaluationRecord, error) {
	inputs := make(map[string]float64, len(row.Inputs))
	for k, v := range row.Inputs {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			inputs[k] = v
		}
	}
	id, err := ir.EvaluationID(runID, int64(row.Seq), inputs)
	if err != nil {
		return ir.EvaluationRecord{}, fmt.Errorf("record %d: %w", row.Seq, err)
	}
	rec := ir.EvaluationRecord{
		ID:        id,
		RunID:     runID,
		Seq:       int64(row.Seq),
		Inputs:    inputs,
		ErrorCode: row.ErrorCode(),
		Label:     row.Label,
	}
	if len(row.Outputs) > 0 {
		rec.Outputs = row.Outputs
	}
	if row.Decision != nil {
		act := row.Decision.Act
		rec.Decision = &act
		rec.Fallback = row.Decision.Fallback
	}
	return rec, nil
}
