package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/mamdani/internal/evaluation"
	"github.com/roach88/mamdani/internal/ir"
	"github.com/roach88/mamdani/internal/store"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	List  bool
	Rows  bool
	Where []string // field=value filters on the listed records
}

// RunReport is a recorded run rescored from the evaluation log.
type RunReport struct {
	Run       ir.Run                `json:"run"`
	Errors    map[string]int        `json:"errors,omitempty"`
	Fallbacks int                   `json:"fallbacks"`
	Report    *evaluation.Report    `json:"report,omitempty"`
	Records   []ir.EvaluationRecord `json:"records,omitempty"`
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report <db> [run-id]",
		Short: "Summarize a recorded run",
		Long: `Summarize a run recorded by "mamdani run --db".

Without a run id the most recent run is reported. The confusion matrix is
rebuilt from the recorded decisions of labeled rows. --where lists only
the records matching every field=value filter (error_code, decision,
label, fallback) and implies --rows.

Example:
  mamdani report ./runs.db
  mamdani report ./runs.db 01928f7e-... --rows
  mamdani report ./runs.db --where error_code=no_activation
  mamdani report ./runs.db --list`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 2 {
				runID = args[1]
			}
			return runReport(opts, args[0], runID, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.List, "list", false, "list recorded runs")
	cmd.Flags().BoolVar(&opts.Rows, "rows", false, "include every evaluation record")
	cmd.Flags().StringArrayVar(&opts.Where, "where", nil, "filter listed records by field=value (repeatable)")

	return cmd
}

func runReport(opts *ReportOptions, dbPath, runID string, cmd *cobra.Command) error {
	formatter := NewFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	cfg, err := opts.LoadConfig()
	if err != nil {
		return err
	}
	preds := make([]store.Predicate, 0, len(opts.Where))
	for _, w := range opts.Where {
		p, err := store.ParsePredicate(w)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeBadInput, "invalid --where", err)
		}
		preds = append(preds, p)
	}

	if err := requireFile(dbPath); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "database not found", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer st.Close()

	if opts.List {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to list runs", err)
		}
		if formatter.JSON() {
			return formatter.Success(runs)
		}
		if len(runs) == 0 {
			fmt.Fprintln(formatter.Writer, "No runs recorded.")
			return nil
		}
		for _, r := range runs {
			fmt.Fprintf(formatter.Writer, "%s  %-12s %6d row(s)  %s\n", r.ID, r.RuleBaseName, r.RowCount, shortHash(r.RuleBaseHash))
		}
		return nil
	}

	var run ir.Run
	if runID == "" {
		run, err = st.LatestRun(ctx)
	} else {
		run, err = st.ReadRun(ctx, runID)
	}
	if errors.Is(err, store.ErrRunNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "run not found", err)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read run", err)
	}

	recs, err := st.ReadEvaluations(ctx, run.ID)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read evaluations", err)
	}

	rep := Rescore(run, recs, cfg.Decision.Threshold)
	switch {
	case len(preds) > 0:
		rep.Records, err = st.QueryEvaluations(ctx, run.ID, preds...)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to query evaluations", err)
		}
	case opts.Rows:
		rep.Records = recs
	}
	if formatter.JSON() {
		return formatter.Success(rep)
	}
	writeReportText(formatter, rep)
	return nil
}

// Rescore rebuilds the run summary from its records. Only labeled rows with
// a recorded decision enter the confusion matrix; threshold is informational
// since decisions were binarized when the run was recorded.
func Rescore(run ir.Run, recs []ir.EvaluationRecord, threshold float64) RunReport {
	rep := RunReport{Run: run}
	var c evaluation.Confusion
	for _, rec := range recs {
		if rec.ErrorCode != "" {
			if rep.Errors == nil {
				rep.Errors = map[string]int{}
			}
			rep.Errors[rec.ErrorCode]++
		}
		if rec.Fallback {
			rep.Fallbacks++
		}
		if rec.Label == nil || rec.Decision == nil {
			continue
		}
		predicted := 0
		if *rec.Decision {
			predicted = 1
		}
		c.Add(*rec.Label, predicted)
	}
	if c.Total() > 0 {
		r := evaluation.FromConfusion(c, threshold)
		rep.Report = &r
	}
	return rep
}

func writeReportText(formatter *OutputFormatter, rep RunReport) {
	w := formatter.Writer
	fmt.Fprintf(w, "Run %s\n", rep.Run.ID)
	fmt.Fprintf(w, "  rule base: %s (%s)\n", rep.Run.RuleBaseName, rep.Run.RuleBaseHash)
	fmt.Fprintf(w, "  engine:    %s, IR %s\n", rep.Run.EngineVersion, rep.Run.IRVersion)
	fmt.Fprintf(w, "  rows:      %d (fallbacks %d)\n", rep.Run.RowCount, rep.Fallbacks)
	for _, code := range sortedNames(rep.Errors) {
		fmt.Fprintf(w, "  %-10s %d\n", code+":", rep.Errors[code])
	}
	if rep.Report != nil {
		fmt.Fprintln(w)
		fmt.Fprint(w, rep.Report.String())
	}
	if len(rep.Records) > 0 {
		fmt.Fprintln(w)
		for _, rec := range rep.Records {
			fmt.Fprintf(w, "  #%-5d %s\n", rec.Seq, describeRecord(rec))
		}
	}
}

func describeRecord(rec ir.EvaluationRecord) string {
	if rec.ErrorCode != "" && rec.Decision == nil {
		return rec.ErrorCode
	}
	s := ""
	for _, name := range sortedNames(rec.Outputs) {
		s += fmt.Sprintf("%s=%.4f ", name, rec.Outputs[name])
	}
	if rec.Decision != nil {
		s += fmt.Sprintf("act=%v", *rec.Decision)
		if rec.Fallback {
			s += " (fallback)"
		}
	}
	if rec.Label != nil {
		s += fmt.Sprintf(" label=%d", *rec.Label)
	}
	return s
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// requireFile fails unless path is an existing regular file. store.Open
// would create a missing database.
func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
