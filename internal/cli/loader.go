package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue/token"
	"go.uber.org/zap"

	"github.com/roach88/mamdani/internal/compiler"
	"github.com/roach88/mamdani/internal/config"
	"github.com/roach88/mamdani/internal/engine"
	"github.com/roach88/mamdani/internal/ir"
	"github.com/roach88/mamdani/internal/overtake"
)

// LoadMode controls how errors are handled during spec loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the rule bases compiled from a CUE path.
type LoadResult struct {
	RuleBases []*ir.RuleBaseSpec
	FileCount int // Number of CUE files found
}

// LoadError represents an error that occurred during spec loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSpecs compiles every rule base under path, a CUE directory or file.
// A nil result means nothing could be loaded at all.
func LoadSpecs(path string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("spec path not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing spec path: %v", err)}}
	}

	fileCount := 1
	if info.IsDir() {
		cueFiles, err := compiler.FindCUEFiles(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
		}
		if len(cueFiles) == 0 {
			return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}}
		}
		fileCount = len(cueFiles)
	}

	value, err := compiler.LoadDir(path)
	if err != nil {
		return nil, []error{convertCompileError(err, ErrCodeLoadFailed)}
	}

	result := &LoadResult{FileCount: fileCount}
	specs, compileErrs := compiler.CompileAll(value)
	result.RuleBases = specs

	var errs []error
	for _, err := range compileErrs {
		errs = append(errs, convertCompileError(err, ErrCodeGeneric))
		if mode == LoadModeFailFast {
			return result, errs
		}
	}
	return result, errs
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, fallback string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: err.Error(),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: fallback, Message: err.Error()}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build or rule base construction failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeBadInput    = "E008" // Malformed flag or dataset
	ErrCodeStore       = "E009" // Evaluation log error

	// Compile errors, by the section of the rule base they point at
	ErrCodeNoRuleBases  = "E120" // No rulebase field
	ErrCodeInvalidVar   = "E121" // Malformed input or output declaration
	ErrCodeInvalidRule  = "E122" // Malformed rule
	ErrCodeInvalidOps   = "E123" // Malformed operators block
	ErrCodeEvalRejected = "E130" // Inputs rejected by the engine
	ErrCodeNoDecision   = "E131" // Decision output had no activated rule
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	head, _, _ := strings.Cut(field, ".")
	switch head {
	case compiler.RuleBasePath:
		return ErrCodeNoRuleBases
	case "input", "output":
		return ErrCodeInvalidVar
	case "rule":
		return ErrCodeInvalidRule
	case "operators":
		return ErrCodeInvalidOps
	case "cue":
		return ErrCodeBuildFailed
	default:
		return ErrCodeGeneric
	}
}

// SpecFlags selects the rule base a command evaluates.
type SpecFlags struct {
	Spec     string // CUE dir or file; empty selects the built-in overtake rule base
	RuleBase string // rule base name when Spec declares several
}

// ResolveSpec returns the selected rule base spec.
func (f SpecFlags) ResolveSpec() (*ir.RuleBaseSpec, error) {
	if f.Spec == "" {
		return overtake.Spec(), nil
	}
	return compiler.LoadRuleBase(f.Spec, f.RuleBase)
}

// loadedEngine bundles what evaluating commands need.
type loadedEngine struct {
	spec   *ir.RuleBaseSpec
	hash   string
	engine *engine.Engine
}

// buildEngine resolves, validates and builds the selected rule base. The
// config operators replace the rule base's only when the config names one,
// and the hash covers the operators actually used.
func buildEngine(flags SpecFlags, cfg config.Config, logger *zap.Logger, opts ...engine.Option) (*loadedEngine, error) {
	spec, err := flags.ResolveSpec()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load rule base", err)
	}
	if verrs := compiler.Validate(spec); len(verrs) > 0 {
		msgs := make([]string, len(verrs))
		for i, ve := range verrs {
			msgs[i] = ve.Error()
		}
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("rule base %s is invalid:\n  %s", spec.Name, strings.Join(msgs, "\n  ")))
	}

	if cfg.OverridesOperators() {
		spec.Operators = ir.OperatorSpec{And: cfg.Engine.And, Or: cfg.Engine.Or}
	}
	rb, err := compiler.Build(spec)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to build rule base", err)
	}
	hash, err := ir.RuleBaseHash(spec)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to hash rule base", err)
	}

	opts = append([]engine.Option{engine.WithLogger(logger)}, opts...)
	return &loadedEngine{spec: spec, hash: hash, engine: engine.New(rb, opts...)}, nil
}
