package compiler

import (
	"fmt"
	"math"
	"strings"

	"github.com/roach88/mamdani/internal/fuzzy"
	"github.com/roach88/mamdani/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrUnsupportedIRType = "E100" // unsupported IR type for validation

	ErrInvalidShape       = "E101" // shape kind, point count or ordering
	ErrInvalidUniverse    = "E102" // step <= 0, max < min, non-finite
	ErrDuplicateName      = "E103" // duplicate variable, term or rule name
	ErrUnknownVariable    = "E104" // rule references an undeclared variable
	ErrUnknownTerm        = "E105" // rule references an undeclared term
	ErrUnreferencedOutput = "E106" // output targeted by no rule
	ErrNoRules            = "E107" // at least one rule required
	ErrInvalidOperator    = "E108" // unknown t-norm or s-norm
	ErrMalformedExpr      = "E109" // expression shape is wrong for its op
	ErrNoVariables        = "E110" // at least one input and one output required
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates compiled IR against schema rules.
// Returns all errors found (does not fail-fast).
func Validate(v any) []ValidationError {
	switch spec := v.(type) {
	case *ir.RuleBaseSpec:
		return validateRuleBase(spec)
	case ir.RuleBaseSpec:
		return validateRuleBase(&spec)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

func validateRuleBase(spec *ir.RuleBaseSpec) []ValidationError {
	var errs []ValidationError

	// E110: at least one input and one output
	if len(spec.Inputs) == 0 {
		errs = append(errs, ValidationError{
			Field:   "inputs",
			Message: "at least one input is required",
			Code:    ErrNoVariables,
		})
	}
	if len(spec.Outputs) == 0 {
		errs = append(errs, ValidationError{
			Field:   "outputs",
			Message: "at least one output is required",
			Code:    ErrNoVariables,
		})
	}

	// terms[variable][term]; inputs and outputs share one namespace
	inputs := make(map[string]map[string]bool)
	outputs := make(map[string]map[string]bool)
	seen := make(map[string]bool)

	for _, group := range []struct {
		field string
		vars  []ir.VariableSpec
		into  map[string]map[string]bool
	}{
		{"inputs", spec.Inputs, inputs},
		{"outputs", spec.Outputs, outputs},
	} {
		for i, v := range group.vars {
			path := fmt.Sprintf("%s[%d]", group.field, i)

			// E103: duplicate variable name
			if seen[v.Name] {
				errs = append(errs, ValidationError{
					Field:   path + ".name",
					Message: fmt.Sprintf("duplicate variable name: %q", v.Name),
					Code:    ErrDuplicateName,
				})
			}
			seen[v.Name] = true
			if strings.TrimSpace(v.Name) == "" {
				errs = append(errs, ValidationError{
					Field:   path + ".name",
					Message: "variable name is required",
					Code:    ErrUnknownVariable,
				})
			}

			errs = append(errs, validateUniverse(v.Universe, path+".universe")...)

			terms := make(map[string]bool, len(v.Terms))
			for j, term := range v.Terms {
				termPath := fmt.Sprintf("%s.terms[%d]", path, j)
				if terms[term.Name] {
					errs = append(errs, ValidationError{
						Field:   termPath + ".name",
						Message: fmt.Sprintf("duplicate term %q in variable %q", term.Name, v.Name),
						Code:    ErrDuplicateName,
					})
				}
				terms[term.Name] = true
				errs = append(errs, validateShape(term.Shape, termPath+".shape")...)
			}
			if len(v.Terms) == 0 {
				errs = append(errs, ValidationError{
					Field:   path + ".terms",
					Message: fmt.Sprintf("variable %q has no terms", v.Name),
					Code:    ErrInvalidShape,
				})
			}
			group.into[v.Name] = terms
		}
	}

	// E107: at least one rule
	if len(spec.Rules) == 0 {
		errs = append(errs, ValidationError{
			Field:   "rules",
			Message: "at least one rule is required",
			Code:    ErrNoRules,
		})
	}

	ruleIDs := make(map[string]bool, len(spec.Rules))
	targeted := make(map[string]bool, len(spec.Outputs))
	for i, rule := range spec.Rules {
		path := fmt.Sprintf("rules[%d]", i)

		if rule.ID != "" {
			if ruleIDs[rule.ID] {
				errs = append(errs, ValidationError{
					Field:   path + ".id",
					Message: fmt.Sprintf("duplicate rule id: %q", rule.ID),
					Code:    ErrDuplicateName,
				})
			}
			ruleIDs[rule.ID] = true
		}

		errs = append(errs, validateExpr(rule.If, path+".if", inputs)...)

		terms, ok := outputs[rule.Then.Var]
		switch {
		case !ok:
			errs = append(errs, ValidationError{
				Field:   path + ".then",
				Message: fmt.Sprintf("unknown output variable %q", rule.Then.Var),
				Code:    ErrUnknownVariable,
			})
		case !terms[rule.Then.Term]:
			errs = append(errs, ValidationError{
				Field:   path + ".then",
				Message: fmt.Sprintf("unknown term %q for output %q", rule.Then.Term, rule.Then.Var),
				Code:    ErrUnknownTerm,
			})
		default:
			targeted[rule.Then.Var] = true
		}
	}

	// E106: every output needs a rule
	for i, out := range spec.Outputs {
		if !targeted[out.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("outputs[%d]", i),
				Message: fmt.Sprintf("output %q is not the consequent of any rule", out.Name),
				Code:    ErrUnreferencedOutput,
			})
		}
	}

	// E108: operator names
	if _, err := fuzzy.OperatorsByName(spec.Operators.And, spec.Operators.Or); err != nil {
		errs = append(errs, ValidationError{
			Field:   "operators",
			Message: err.Error(),
			Code:    ErrInvalidOperator,
		})
	}

	return errs
}

func validateUniverse(u ir.UniverseSpec, path string) []ValidationError {
	for _, f := range []float64{u.Min, u.Max, u.Step} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return []ValidationError{{
				Field:   path,
				Message: "universe bounds must be finite",
				Code:    ErrInvalidUniverse,
			}}
		}
	}
	var errs []ValidationError
	if u.Step <= 0 {
		errs = append(errs, ValidationError{
			Field:   path + ".step",
			Message: fmt.Sprintf("step must be positive, got %v", u.Step),
			Code:    ErrInvalidUniverse,
		})
	}
	if u.Max < u.Min {
		errs = append(errs, ValidationError{
			Field:   path,
			Message: fmt.Sprintf("max %v is below min %v", u.Max, u.Min),
			Code:    ErrInvalidUniverse,
		})
	}
	if len(errs) > 0 {
		return errs
	}
	// Grid size is checked by the universe itself so build and validate agree.
	if err := (fuzzy.Universe{Min: u.Min, Max: u.Max, Step: u.Step}).Validate(); err != nil {
		errs = append(errs, ValidationError{
			Field:   path + ".step",
			Message: err.Error(),
			Code:    ErrInvalidUniverse,
		})
	}
	return errs
}

func validateShape(s ir.ShapeSpec, path string) []ValidationError {
	want := map[string]int{ir.ShapeTriangle: 3, ir.ShapeTrapezoid: 4}
	n, ok := want[s.Kind]
	if !ok {
		return []ValidationError{{
			Field:   path + ".kind",
			Message: fmt.Sprintf("unknown shape %q (want triangle or trapezoid)", s.Kind),
			Code:    ErrInvalidShape,
		}}
	}
	if len(s.Points) != n {
		return []ValidationError{{
			Field:   path + ".points",
			Message: fmt.Sprintf("%s needs %d points, got %d", s.Kind, n, len(s.Points)),
			Code:    ErrInvalidShape,
		}}
	}
	for i, p := range s.Points {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return []ValidationError{{
				Field:   fmt.Sprintf("%s.points[%d]", path, i),
				Message: "points must be finite",
				Code:    ErrInvalidShape,
			}}
		}
		if i > 0 && p < s.Points[i-1] {
			return []ValidationError{{
				Field:   fmt.Sprintf("%s.points[%d]", path, i),
				Message: fmt.Sprintf("points must be non-decreasing: %v", s.Points),
				Code:    ErrInvalidShape,
			}}
		}
	}
	return nil
}

// validateExpr checks the node shape and every leaf reference against inputs.
func validateExpr(e ir.ExprSpec, path string, inputs map[string]map[string]bool) []ValidationError {
	var errs []ValidationError

	switch e.Op {
	case ir.OpIs:
		if len(e.Args) > 0 {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: "is takes no arguments",
				Code:    ErrMalformedExpr,
			})
		}
		terms, ok := inputs[e.Var]
		if !ok {
			return append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("unknown input variable %q", e.Var),
				Code:    ErrUnknownVariable,
			})
		}
		if !terms[e.Term] {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("unknown term %q for input %q", e.Term, e.Var),
				Code:    ErrUnknownTerm,
			})
		}
		return errs

	case ir.OpAll, ir.OpAny:
		if len(e.Args) == 0 {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("%s needs at least one argument", e.Op),
				Code:    ErrMalformedExpr,
			})
		}

	case ir.OpNot:
		if len(e.Args) != 1 {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("not takes exactly one argument, got %d", len(e.Args)),
				Code:    ErrMalformedExpr,
			})
		}

	default:
		return append(errs, ValidationError{
			Field:   path + ".op",
			Message: fmt.Sprintf("unknown operator %q", e.Op),
			Code:    ErrMalformedExpr,
		})
	}

	if e.Var != "" || e.Term != "" {
		errs = append(errs, ValidationError{
			Field:   path,
			Message: fmt.Sprintf("%s does not take var/term", e.Op),
			Code:    ErrMalformedExpr,
		})
	}
	for i, arg := range e.Args {
		errs = append(errs, validateExpr(arg, fmt.Sprintf("%s.args[%d]", path, i), inputs)...)
	}
	return errs
}
