package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/mamdani/internal/ir"
)

// CompileRuleBase parses a CUE value into a RuleBaseSpec.
// Uses the CUE SDK's Go API directly (not a CLI subprocess).
//
// The CUE value should be the rule-base struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`rulebase: overtake: { ... }`)
//	spec, err := CompileRuleBase(v.LookupPath(cue.ParsePath("rulebase.overtake")))
//
// Inputs, terms and rules keep their CUE declaration order.
func CompileRuleBase(v cue.Value) (*ir.RuleBaseSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.RuleBaseSpec{}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}

	var err error
	spec.Inputs, err = parseVariables(v, "input")
	if err != nil {
		return nil, err
	}
	if len(spec.Inputs) == 0 {
		return nil, &CompileError{
			Field:   "input",
			Message: "at least one input is required",
			Pos:     v.Pos(),
		}
	}

	spec.Outputs, err = parseVariables(v, "output")
	if err != nil {
		return nil, err
	}
	if len(spec.Outputs) == 0 {
		return nil, &CompileError{
			Field:   "output",
			Message: "at least one output is required",
			Pos:     v.Pos(),
		}
	}

	spec.Rules, err = parseRules(v)
	if err != nil {
		return nil, err
	}

	opsVal := v.LookupPath(cue.ParsePath("operators"))
	if opsVal.Exists() {
		if spec.Operators.And, err = optionalString(opsVal, "and"); err != nil {
			return nil, err
		}
		if spec.Operators.Or, err = optionalString(opsVal, "or"); err != nil {
			return nil, err
		}
	}

	return spec, nil
}

// parseVariables extracts the variables declared under field (input/output).
func parseVariables(v cue.Value, field string) ([]ir.VariableSpec, error) {
	var vars []ir.VariableSpec

	val := v.LookupPath(cue.ParsePath(field))
	if !val.Exists() {
		return vars, nil
	}

	iter, err := val.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		name := iter.Label()
		varVal := iter.Value()
		path := fmt.Sprintf("%s.%s", field, name)

		spec := ir.VariableSpec{Name: name}

		uniVal := varVal.LookupPath(cue.ParsePath("universe"))
		if !uniVal.Exists() {
			return nil, &CompileError{
				Field:   path + ".universe",
				Message: "universe is required",
				Pos:     varVal.Pos(),
			}
		}
		for _, f := range []struct {
			name string
			dst  *float64
		}{
			{"min", &spec.Universe.Min},
			{"max", &spec.Universe.Max},
			{"step", &spec.Universe.Step},
		} {
			n, err := requiredNumber(uniVal, f.name, path+".universe")
			if err != nil {
				return nil, err
			}
			*f.dst = n
		}

		termsVal := varVal.LookupPath(cue.ParsePath("terms"))
		if !termsVal.Exists() {
			return nil, &CompileError{
				Field:   path + ".terms",
				Message: "terms are required",
				Pos:     varVal.Pos(),
			}
		}
		termIter, err := termsVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for termIter.Next() {
			term, err := parseTerm(termIter.Label(), termIter.Value(), path)
			if err != nil {
				return nil, err
			}
			spec.Terms = append(spec.Terms, term)
		}

		vars = append(vars, spec)
	}

	return vars, nil
}

// parseTerm parses `name: {triangle: [a, b, c]}` or `name: {trapezoid: [a, b, c, d]}`.
func parseTerm(name string, v cue.Value, varPath string) (ir.TermSpec, error) {
	path := fmt.Sprintf("%s.terms.%s", varPath, name)

	iter, err := v.Fields()
	if err != nil {
		return ir.TermSpec{}, formatCUEError(err)
	}

	term := ir.TermSpec{Name: name}
	found := 0
	for iter.Next() {
		found++
		term.Shape.Kind = iter.Label()
		term.Shape.Points, err = numberList(iter.Value(), path)
		if err != nil {
			return ir.TermSpec{}, err
		}
	}
	if found != 1 {
		return ir.TermSpec{}, &CompileError{
			Field:   path,
			Message: "term must declare exactly one shape (triangle or trapezoid)",
			Pos:     v.Pos(),
		}
	}
	return term, nil
}

// parseRules extracts the rules in declaration order.
func parseRules(v cue.Value) ([]ir.RuleSpec, error) {
	var rules []ir.RuleSpec

	ruleVal := v.LookupPath(cue.ParsePath("rule"))
	if !ruleVal.Exists() {
		return rules, nil
	}

	iter, err := ruleVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		id := iter.Label()
		rv := iter.Value()
		path := "rule." + id

		ifVal := rv.LookupPath(cue.MakePath(cue.Str("if")))
		if !ifVal.Exists() {
			return nil, &CompileError{
				Field:   path + ".if",
				Message: "rule antecedent is required",
				Pos:     rv.Pos(),
			}
		}
		antecedent, err := parseExpr(ifVal, path+".if")
		if err != nil {
			return nil, err
		}

		thenVal := rv.LookupPath(cue.ParsePath("then"))
		if !thenVal.Exists() {
			return nil, &CompileError{
				Field:   path + ".then",
				Message: "rule consequent is required",
				Pos:     rv.Pos(),
			}
		}
		variable, term, err := singlePair(thenVal, path+".then")
		if err != nil {
			return nil, err
		}

		rules = append(rules, ir.RuleSpec{
			ID:   id,
			If:   antecedent,
			Then: ir.ConsequentRef{Var: variable, Term: term},
		})
	}

	return rules, nil
}

// parseExpr parses an antecedent. Exactly one of the following forms:
//
//	{is: {distance: "pequena"}}
//	{all: [expr, ...]}
//	{any: [expr, ...]}
//	{not: expr}
func parseExpr(v cue.Value, path string) (ir.ExprSpec, error) {
	iter, err := v.Fields()
	if err != nil {
		return ir.ExprSpec{}, formatCUEError(err)
	}

	var expr ir.ExprSpec
	found := 0
	for iter.Next() {
		found++
		op := iter.Label()
		arg := iter.Value()
		argPath := path + "." + op

		switch op {
		case ir.OpIs:
			variable, term, err := singlePair(arg, argPath)
			if err != nil {
				return ir.ExprSpec{}, err
			}
			expr = ir.Is(variable, term)

		case ir.OpAll, ir.OpAny:
			list, err := arg.List()
			if err != nil {
				return ir.ExprSpec{}, formatCUEError(err)
			}
			expr = ir.ExprSpec{Op: op}
			for i := 0; list.Next(); i++ {
				child, err := parseExpr(list.Value(), fmt.Sprintf("%s[%d]", argPath, i))
				if err != nil {
					return ir.ExprSpec{}, err
				}
				expr.Args = append(expr.Args, child)
			}

		case ir.OpNot:
			child, err := parseExpr(arg, argPath)
			if err != nil {
				return ir.ExprSpec{}, err
			}
			expr = ir.Not(child)

		default:
			return ir.ExprSpec{}, &CompileError{
				Field:   argPath,
				Message: fmt.Sprintf("unknown operator %q (want is, all, any or not)", op),
				Pos:     arg.Pos(),
			}
		}
	}

	if found != 1 {
		return ir.ExprSpec{}, &CompileError{
			Field:   path,
			Message: "expression must have exactly one of is, all, any, not",
			Pos:     v.Pos(),
		}
	}
	return expr, nil
}

// singlePair parses a one-field struct `{variable: "term"}`.
func singlePair(v cue.Value, path string) (string, string, error) {
	iter, err := v.Fields()
	if err != nil {
		return "", "", formatCUEError(err)
	}

	var variable, term string
	found := 0
	for iter.Next() {
		found++
		variable = iter.Label()
		term, err = iter.Value().String()
		if err != nil {
			return "", "", formatCUEError(err)
		}
	}
	if found != 1 {
		return "", "", &CompileError{
			Field:   path,
			Message: `must be a single {variable: "term"} pair`,
			Pos:     v.Pos(),
		}
	}
	return variable, term, nil
}

func requiredNumber(v cue.Value, field, path string) (float64, error) {
	val := v.LookupPath(cue.ParsePath(field))
	if !val.Exists() {
		return 0, &CompileError{
			Field:   path + "." + field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	return number(val, path+"."+field)
}

func number(v cue.Value, path string) (float64, error) {
	switch v.IncompleteKind() {
	case cue.IntKind, cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return 0, formatCUEError(err)
		}
		return f, nil
	default:
		return 0, &CompileError{
			Field:   path,
			Message: fmt.Sprintf("expected a number, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func numberList(v cue.Value, path string) ([]float64, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []float64
	for i := 0; iter.Next(); i++ {
		f, err := number(iter.Value(), fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	val := v.LookupPath(cue.ParsePath(field))
	if !val.Exists() {
		return "", nil
	}
	s, err := val.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
