package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/mamdani/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                       `json:"valid"`
	RuleBases []string                   `json:"rulebases,omitempty"`
	Errors    []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <spec-path>",
		Short: "Validate rule bases without writing IR",
		Long: `Validate CUE rule bases without writing any output.

Reports every problem found: unknown variables or terms, bad shapes or
universes, outputs no rule targets, unsupported operators.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, specPath string, cmd *cobra.Command) error {
	formatter := NewFormatter(opts, cmd)

	result, err := ValidatePath(specPath)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return formatter.Fail(ExitCommandError, loadErr.Code, loadErr.Message, nil)
		}
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "validation could not run", err)
	}
	for _, name := range result.RuleBases {
		formatter.VerboseLog("Validated rule base: %s", name)
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ All rule bases valid (%d)\n", len(result.RuleBases))
	return nil
}

// ValidatePath validates every rule base under specPath. The error is
// non-nil only when nothing could be loaded; compile and validation problems
// land in the result.
func ValidatePath(specPath string) (*ValidationResult, error) {
	loadResult, loadErrors := LoadSpecs(specPath, LoadModeCollectAll)
	if loadResult == nil {
		return nil, loadErrors[0]
	}

	result := &ValidationResult{}
	for _, err := range loadErrors {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			result.Errors = append(result.Errors, compiler.ValidationError{
				Field:   "load",
				Message: loadErr.Message,
				Code:    loadErr.Code,
				Line:    lineOf(loadErr),
			})
		}
	}
	for _, spec := range loadResult.RuleBases {
		result.RuleBases = append(result.RuleBases, spec.Name)
		for _, ve := range compiler.Validate(spec) {
			ve.Field = spec.Name + "." + ve.Field
			result.Errors = append(result.Errors, ve)
		}
	}
	result.Valid = len(result.Errors) == 0
	return result, nil
}

func lineOf(e *LoadError) int {
	if e.Pos.IsValid() {
		return e.Pos.Line()
	}
	return 0
}

// outputValidationErrors outputs validation failures (exit code 1).
func outputValidationErrors(formatter *OutputFormatter, result *ValidationResult) error {
	errs := result.Errors
	if formatter.JSON() {
		if err := formatter.Encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: errs[0].Code, Message: errs[0].Message},
		}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
