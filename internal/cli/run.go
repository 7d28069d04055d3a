package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/mamdani/internal/batch"
	"github.com/roach88/mamdani/internal/dataset"
	"github.com/roach88/mamdani/internal/evaluation"
	"github.com/roach88/mamdani/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	SpecFlags
	Database  string
	Workers   int
	Threshold float64

	// IDGenerator overrides the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator batch.IDGenerator
}

// LatencySummary is the per-row evaluation latency in nanoseconds.
type LatencySummary struct {
	P50 int64 `json:"p50_ns"`
	P99 int64 `json:"p99_ns"`
	Max int64 `json:"max_ns"`
}

// RunResult summarizes a batch run.
type RunResult struct {
	RunID        string             `json:"run_id"`
	RuleBase     string             `json:"rulebase"`
	RuleBaseHash string             `json:"rulebase_hash"`
	Layout       dataset.Layout     `json:"layout"`
	Rows         int                `json:"rows"`
	Decided      int                `json:"decided"`
	Failed       int                `json:"failed"`
	Fallbacks    int                `json:"fallbacks"`
	Errors       map[string]int     `json:"errors,omitempty"`
	Latency      LatencySummary     `json:"latency"`
	Report       *evaluation.Report `json:"report,omitempty"`
	Database     string             `json:"database,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <dataset.csv>",
		Short: "Evaluate a CSV dataset",
		Long: `Evaluate every row of a CSV dataset concurrently.

The CSV may carry the rule-base inputs directly, timestamped distance
readings, or distance and speed only; derived inputs are computed on load.
When a target column is present the run is scored (confusion matrix,
accuracy, precision, recall, F1). With --db every evaluation is recorded
in the SQLite evaluation log under a fresh run id.

Example:
  mamdani run data.csv
  mamdani run --db ./runs.db --workers 8 data.csv`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Spec, "spec", "", "CUE rule base dir or file (default: built-in overtake)")
	cmd.Flags().StringVar(&opts.RuleBase, "rulebase", "", "rule base name when the spec declares several")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite evaluation log (default: config batch.db_path)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "concurrent evaluations (default: config batch.workers)")
	cmd.Flags().Float64Var(&opts.Threshold, "threshold", 0, "decision threshold (default: config decision.threshold)")

	return cmd
}

func runBatch(opts *RunOptions, csvPath string, cmd *cobra.Command) error {
	formatter := NewFormatter(opts.RootOptions, cmd)
	logger := opts.Logger()

	cfg, err := opts.LoadConfig()
	if err != nil {
		return err
	}
	if opts.Database != "" {
		cfg.Batch.DBPath = opts.Database
	}
	if opts.Workers > 0 {
		cfg.Batch.Workers = opts.Workers
	}
	if cmd.Flags().Changed("threshold") {
		cfg.Decision.Threshold = opts.Threshold
	}
	if err := cfg.Validate(); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadInput, "invalid settings", err)
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "failed to open dataset", err)
	}
	rows, layout, err := dataset.ReadCSV(f)
	_ = f.Close()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadInput, "failed to read dataset", err)
	}
	logger.Info("dataset loaded", zap.String("path", csvPath), zap.Int("rows", len(rows)), zap.String("layout", string(layout)))

	loaded, err := buildEngine(opts.SpecFlags, cfg, logger)
	if err != nil {
		return err
	}

	runnerOpts := []batch.Option{
		batch.WithWorkers(cfg.Batch.Workers),
		batch.WithRuleBaseHash(loaded.hash),
		batch.WithLogger(logger),
	}
	if opts.IDGenerator != nil {
		runnerOpts = append(runnerOpts, batch.WithIDGenerator(opts.IDGenerator))
	}
	if cfg.Batch.DBPath != "" {
		st, err := store.Open(cfg.Batch.DBPath)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", zap.Error(closeErr))
			}
		}()
		runnerOpts = append(runnerOpts, batch.WithSink(st))
	}
	runner := batch.NewRunner(loaded.engine, cfg.Policy(), runnerOpts...)

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping", zap.Stringer("signal", sig))
			cancel()
		case <-ctx.Done():
		}
	}()

	sum, err := runner.Run(ctx, rows)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, "run failed", err)
	}

	result := summarize(sum, loaded, layout, cfg.Batch.DBPath)
	if formatter.JSON() {
		return formatter.Success(result)
	}
	writeRunText(formatter, result)
	return nil
}

func summarize(sum *batch.Summary, loaded *loadedEngine, layout dataset.Layout, db string) RunResult {
	res := RunResult{
		RunID:        sum.RunID,
		RuleBase:     loaded.spec.Name,
		RuleBaseHash: loaded.hash,
		Layout:       layout,
		Rows:         len(sum.Rows),
		Decided:      sum.Decided(),
		Failed:       sum.Failed,
		Fallbacks:    sum.Fallbacks,
		Report:       sum.Report,
		Database:     db,
		Latency: LatencySummary{
			P50: sum.Latency.ValueAtQuantile(50),
			P99: sum.Latency.ValueAtQuantile(99),
			Max: sum.Latency.Max(),
		},
	}
	for _, row := range sum.Rows {
		if code := row.ErrorCode(); code != "" {
			if res.Errors == nil {
				res.Errors = map[string]int{}
			}
			res.Errors[code]++
		}
	}
	return res
}

func writeRunText(formatter *OutputFormatter, r RunResult) {
	w := formatter.Writer
	fmt.Fprintf(w, "Run %s\n", r.RunID)
	fmt.Fprintf(w, "  rule base: %s (%s)\n", r.RuleBase, r.RuleBaseHash)
	fmt.Fprintf(w, "  layout:    %s\n", r.Layout)
	fmt.Fprintf(w, "  rows:      %d (decided %d, failed %d, fallbacks %d)\n", r.Rows, r.Decided, r.Failed, r.Fallbacks)
	for _, code := range sortedNames(r.Errors) {
		fmt.Fprintf(w, "  %-10s %d\n", code+":", r.Errors[code])
	}
	fmt.Fprintf(w, "  latency:   p50 %s, p99 %s, max %s\n",
		time.Duration(r.Latency.P50), time.Duration(r.Latency.P99), time.Duration(r.Latency.Max))
	if r.Database != "" {
		fmt.Fprintf(w, "  recorded:  %s\n", r.Database)
	}
	if r.Report != nil {
		fmt.Fprintln(w)
		fmt.Fprint(w, r.Report.String())
	}
}
