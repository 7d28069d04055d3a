package fuzzy

import (
	"errors"
	"fmt"
	"strings"
)

// Configuration errors are detected once, when a RuleBase is built.
var (
	ErrInvalidShape       = errors.New("invalid membership shape")
	ErrInvalidUniverse    = errors.New("invalid universe of discourse")
	ErrUnknownVariable    = errors.New("unknown variable")
	ErrUnknownTerm        = errors.New("unknown term")
	ErrUnreferencedOutput = errors.New("output variable is not the consequent of any rule")
	ErrDuplicateName      = errors.New("duplicate name")
	ErrNoRules            = errors.New("rule base has no rules")
	ErrMalformedExpr      = errors.New("malformed antecedent expression")
)

// Evaluation errors are scoped to a single call (or a single output of a call)
// and never affect the RuleBase.
var (
	ErrMissingInput = errors.New("missing input")
	ErrInvalidInput = errors.New("invalid input")
	ErrNoActivation = errors.New("no rule activated the output")
)

// ConfigError collects every problem found while building a RuleBase.
// Each issue wraps one of the configuration sentinels, so errors.Is works
// against the ConfigError as a whole.
type ConfigError struct {
	RuleBase string
	Issues   []error
}

func (e *ConfigError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		msgs[i] = issue.Error()
	}
	if e.RuleBase != "" {
		return fmt.Sprintf("rule base %q: %s", e.RuleBase, strings.Join(msgs, "; "))
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes the individual issues to errors.Is and errors.As.
func (e *ConfigError) Unwrap() []error {
	return e.Issues
}

// EvalError describes a per-call failure.
//
// Variable is set for input failures (ErrMissingInput, ErrInvalidInput);
// Output is set for ErrNoActivation.
type EvalError struct {
	Kind     error
	Variable string
	Output   string
}

func (e *EvalError) Error() string {
	switch {
	case e.Output != "":
		return fmt.Sprintf("%v: %s", e.Kind, e.Output)
	case e.Variable != "":
		return fmt.Sprintf("%v: %s", e.Kind, e.Variable)
	default:
		return e.Kind.Error()
	}
}

func (e *EvalError) Unwrap() error {
	return e.Kind
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsNoActivation reports whether err signals an output with zero aggregated mass.
func IsNoActivation(err error) bool {
	return errors.Is(err, ErrNoActivation)
}

// ErrorCode maps an error to a stable snake_case code used in logs, the
// evaluation store and scenario files. Unknown errors map to "error".
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingInput):
		return "missing_input"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNoActivation):
		return "no_activation"
	case errors.Is(err, ErrInvalidShape):
		return "invalid_shape"
	case errors.Is(err, ErrInvalidUniverse):
		return "invalid_universe"
	case errors.Is(err, ErrUnknownVariable):
		return "unknown_variable"
	case errors.Is(err, ErrUnknownTerm):
		return "unknown_term"
	case errors.Is(err, ErrUnreferencedOutput):
		return "unreferenced_output"
	case errors.Is(err, ErrDuplicateName):
		return "duplicate_name"
	case errors.Is(err, ErrNoRules):
		return "no_rules"
	case errors.Is(err, ErrMalformedExpr):
		return "malformed_expression"
	default:
		return "error"
	}
}
