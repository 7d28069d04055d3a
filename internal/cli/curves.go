package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/roach88/mamdani/internal/fuzzy"
	"github.com/roach88/mamdani/internal/ir"
)

// CurvesOptions holds flags for the curves command.
type CurvesOptions struct {
	*RootOptions
	SpecFlags
	Marker float64
}

// CurveSet is a variable's sampled membership curves.
type CurveSet struct {
	RuleBase string             `json:"rulebase"`
	Variable string             `json:"variable"`
	Universe ir.UniverseSpec    `json:"universe"`
	Terms    []string           `json:"terms"`
	X        []float64          `json:"x"`
	Degrees  [][]float64        `json:"degrees"` // Degrees[i] follows Terms[i]
	Marker   *float64           `json:"marker,omitempty"`
	AtMarker map[string]float64 `json:"at_marker,omitempty"`
}

// NewCurvesCommand creates the curves command.
func NewCurvesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CurvesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "curves <variable>",
		Short: "Print a variable's membership curves",
		Long: `Sample every term of a variable over its universe and print the
degrees as a table. --marker also prints the degrees at one crisp value.

Example:
  mamdani curves distance
  mamdani curves relative_speed --marker 33.5 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCurves(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Spec, "spec", "", "CUE rule base dir or file (default: built-in overtake)")
	cmd.Flags().StringVar(&opts.RuleBase, "rulebase", "", "rule base name when the spec declares several")
	cmd.Flags().Float64Var(&opts.Marker, "marker", 0, "crisp value to evaluate every term at")

	return cmd
}

func runCurves(opts *CurvesOptions, name string, cmd *cobra.Command) error {
	formatter := NewFormatter(opts.RootOptions, cmd)

	cfg, err := opts.LoadConfig()
	if err != nil {
		return err
	}
	loaded, err := buildEngine(opts.SpecFlags, cfg, opts.Logger())
	if err != nil {
		return err
	}
	rb := loaded.engine.RuleBase()
	v, ok := rb.Variable(name)
	if !ok {
		return formatter.Fail(ExitCommandError, ErrCodeBadInput,
			fmt.Sprintf("rule base %s has no variable %q (have %v %v)", rb.Name(), name, rb.InputNames(), rb.OutputNames()), nil)
	}

	set := SampleCurves(rb.Name(), v)
	if cmd.Flags().Changed("marker") {
		m := opts.Marker
		set.Marker = &m
		set.AtMarker = v.Memberships(m)
	}

	if formatter.JSON() {
		return formatter.Success(set)
	}
	writeCurvesText(formatter.Writer, set)
	return nil
}

// SampleCurves samples every term of v in declaration order.
func SampleCurves(ruleBase string, v *fuzzy.LinguisticVariable) CurveSet {
	u := v.Universe()
	set := CurveSet{
		RuleBase: ruleBase,
		Variable: v.Name(),
		Universe: ir.UniverseSpec{Min: u.Min, Max: u.Max, Step: u.Step},
		X:        v.SampleUniverse(),
	}
	for _, c := range v.Curves() {
		set.Terms = append(set.Terms, c.Term)
		set.Degrees = append(set.Degrees, c.Degrees)
	}
	return set
}

func writeCurvesText(w io.Writer, set CurveSet) {
	re := lipgloss.NewRenderer(w)
	cell := re.NewStyle().Padding(0, 1)
	header := cell.Bold(true)

	headers := append([]string{set.Variable}, set.Terms...)
	rows := make([][]string, len(set.X))
	for i, x := range set.X {
		row := []string{formatNumber(x)}
		for j := range set.Terms {
			row = append(row, strconv.FormatFloat(set.Degrees[j][i], 'f', 3, 64))
		}
		rows[i] = row
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(re.NewStyle()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		Headers(headers...).
		Rows(rows...)

	fmt.Fprintf(w, "%s.%s over [%s, %s] step %s\n", set.RuleBase, set.Variable,
		formatNumber(set.Universe.Min), formatNumber(set.Universe.Max), formatNumber(set.Universe.Step))
	fmt.Fprintln(w, t.Render())

	if set.Marker != nil {
		fmt.Fprintf(w, "at %s = %s:\n", set.Variable, formatNumber(*set.Marker))
		for _, term := range set.Terms {
			fmt.Fprintf(w, "  %-16s %.4f\n", term, set.AtMarker[term])
		}
	}
}

// formatNumber hides the float noise of grid points such as 3*0.1.
func formatNumber(x float64) string {
	return strconv.FormatFloat(x, 'g', 10, 64)
}
