package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/mamdani/internal/compiler"
	"github.com/roach88/mamdani/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompiledRuleBase is one compiled rule base with its content hash.
type CompiledRuleBase struct {
	Name string           `json:"name"`
	Hash string           `json:"hash"`
	IR   *ir.RuleBaseSpec `json:"ir"`
}

// CompilationResult holds every compiled rule base.
type CompilationResult struct {
	IRVersion string             `json:"ir_version"`
	RuleBases []CompiledRuleBase `json:"rulebases"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <spec-path>",
		Short: "Compile CUE rule bases to canonical IR",
		Long: `Compile CUE rule bases to the IR consumed by the engine.

The compiler parses every rulebase.<name> entry, validates it and prints
its content hash. With --output the IR is written as JSON.

Example:
  mamdani compile ./testdata/specs/overtake
  mamdani compile ./specs --output overtake.json --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, specPath string, cmd *cobra.Command) error {
	formatter := NewFormatter(opts.RootOptions, cmd)

	loadResult, loadErrors := LoadSpecs(specPath, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, specPath)

	// Shape errors the CUE pass lets through surface here, with codes.
	var errs []error
	errs = append(errs, loadErrors...)
	for _, spec := range loadResult.RuleBases {
		formatter.VerboseLog("Compiling rule base: %s", spec.Name)
		for _, ve := range compiler.Validate(spec) {
			errs = append(errs, fmt.Errorf("rulebase %s: %w", spec.Name, ve))
		}
	}
	if len(errs) > 0 {
		return outputCompileErrors(formatter, errs)
	}

	result := &CompilationResult{IRVersion: ir.IRVersion}
	for _, spec := range loadResult.RuleBases {
		hash, err := ir.RuleBaseHash(spec)
		if err != nil {
			return outputCompileErrors(formatter, []error{err})
		}
		result.RuleBases = append(result.RuleBases, CompiledRuleBase{Name: spec.Name, Hash: hash, IR: spec})
	}

	if opts.Output != "" {
		if err := writeIRToFile(result, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, "writing output file", err)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d rule base(s)\n\n", len(result.RuleBases))
	for _, rb := range result.RuleBases {
		fmt.Fprintf(w, "  %s: %d input(s), %d output(s), %d rule(s)\n",
			rb.Name, len(rb.IR.Inputs), len(rb.IR.Outputs), len(rb.IR.Rules))
		fmt.Fprintf(w, "    hash %s\n", rb.Hash)
	}
	if outputFile != "" {
		fmt.Fprintf(w, "\nWrote IR to %s\n", outputFile)
	}
	return nil
}

// outputCompileErrors outputs compilation errors. They are command-level
// errors (exit code 2).
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.JSON() {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseCompileError(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}
		if err := formatter.Encode(CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors,
		}); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		code, message := parseCompileError(err)
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	var ve compiler.ValidationError
	if errors.As(err, &ve) {
		return ve.Code, err.Error()
	}
	return ErrCodeGeneric, err.Error()
}

// writeIRToFile writes the compilation result as indented JSON.
// Canonical JSON is used only for hashing.
func writeIRToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling IR: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
