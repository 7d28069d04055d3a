package cli

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mamdani/internal/engine"
	"github.com/roach88/mamdani/internal/fuzzy"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	SpecFlags
	Inputs  []string // name=value pairs
	Explain bool     // list fired rules
}

// EvalResult is the outcome of one evaluation.
type EvalResult struct {
	RuleBase string             `json:"rulebase"`
	Inputs   map[string]float64 `json:"inputs"`
	Outputs  map[string]float64 `json:"outputs,omitempty"`
	Failures map[string]string  `json:"failures,omitempty"`
	Decision *engine.Decision   `json:"decision,omitempty"`
	Fired    []engine.Firing    `json:"fired,omitempty"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate one set of crisp inputs",
		Long: `Evaluate one set of crisp inputs and apply the decision policy.

Without --spec the built-in overtake rule base is used.

Exit codes:
  0 - Evaluated, decision made
  1 - Inputs rejected, or the decision output had no activated rule
  2 - Command error (bad flags, unloadable rule base)

Example:
  mamdani eval -i distance=5 -i relative_speed=50 -i permission=1 -i road=1 -i visibility=1
  mamdani eval --spec ./specs --rulebase overtake -i distance=30 ... --explain`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Spec, "spec", "", "CUE rule base dir or file (default: built-in overtake)")
	cmd.Flags().StringVar(&opts.RuleBase, "rulebase", "", "rule base name when the spec declares several")
	cmd.Flags().StringArrayVarP(&opts.Inputs, "input", "i", nil, "input as name=value (repeatable)")
	cmd.Flags().BoolVar(&opts.Explain, "explain", false, "list rules with non-zero strength")

	return cmd
}

func runEval(opts *EvalOptions, cmd *cobra.Command) error {
	formatter := NewFormatter(opts.RootOptions, cmd)

	inputs, err := ParseInputs(opts.Inputs)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadInput, "invalid --input", err)
	}
	cfg, err := opts.LoadConfig()
	if err != nil {
		return err
	}
	loaded, err := buildEngine(opts.SpecFlags, cfg, opts.Logger())
	if err != nil {
		return err
	}

	res, err := loaded.engine.Evaluate(inputs)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeEvalRejected, fuzzy.ErrorCode(err), err)
	}

	out := EvalResult{RuleBase: loaded.spec.Name, Inputs: inputs}
	if len(res.Outputs) > 0 {
		out.Outputs = res.Outputs
	}
	if len(res.Failures) > 0 {
		out.Failures = make(map[string]string, len(res.Failures))
		for name, ferr := range res.Failures {
			out.Failures[name] = fuzzy.ErrorCode(ferr)
		}
	}
	if opts.Explain {
		for _, f := range res.Firing {
			if f.Strength > 0 {
				out.Fired = append(out.Fired, f)
			}
		}
	}

	// The policy only applies when the rule base has the configured output.
	policy := cfg.Policy()
	var decideErr error
	if _, ok := loaded.engine.RuleBase().Output(policy.Output); ok {
		d, err := policy.Decide(res)
		if err != nil {
			decideErr = err
		} else {
			out.Decision = &d
		}
	}

	if formatter.JSON() {
		status := "ok"
		var cliErr *CLIError
		if decideErr != nil {
			status = "error"
			cliErr = &CLIError{Code: ErrCodeNoDecision, Message: decideErr.Error()}
		}
		if err := formatter.Encode(CLIResponse{Status: status, Data: out, Error: cliErr}); err != nil {
			return err
		}
	} else {
		writeEvalText(formatter, out, policy)
	}

	if decideErr != nil {
		if formatter.Format != "json" {
			_ = formatter.Error(ErrCodeNoDecision, decideErr.Error(), nil)
		}
		return WrapExitError(ExitFailure, "no decision", decideErr)
	}
	return nil
}

func writeEvalText(formatter *OutputFormatter, out EvalResult, policy engine.Policy) {
	w := formatter.Writer
	for _, name := range sortedNames(out.Outputs) {
		fmt.Fprintf(w, "%s = %.4f\n", name, out.Outputs[name])
	}
	for _, name := range sortedNames(out.Failures) {
		fmt.Fprintf(w, "%s: %s\n", name, out.Failures[name])
	}
	if d := out.Decision; d != nil {
		verdict := "hold"
		if d.Act {
			verdict = "act"
		}
		suffix := ""
		if d.Fallback {
			suffix = ", fallback value"
		}
		fmt.Fprintf(w, "decision: %s (%.4f vs threshold %.2f%s)\n", verdict, d.Value, policy.Threshold, suffix)
	}
	if len(out.Fired) > 0 {
		fmt.Fprintln(w, "fired:")
		for _, f := range out.Fired {
			fmt.Fprintf(w, "  %-16s %s=%s  %.4f\n", f.RuleID, f.Output, f.Term, f.Strength)
		}
	}
}

// ParseInputs parses name=value pairs. Later pairs override earlier ones.
func ParseInputs(pairs []string) (map[string]float64, error) {
	inputs := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		name, raw, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%q: want name=value", p)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		inputs[name] = v
	}
	return inputs, nil
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}
