package compiler

import (
	"errors"
	"fmt"

	"github.com/roach88/mamdani/internal/fuzzy"
	"github.com/roach88/mamdani/internal/ir"
)

// Build turns a RuleBaseSpec into an immutable fuzzy.RuleBase.
//
// Build does not call Validate; shape, universe and reference problems are
// reported by the fuzzy constructors instead, joined into one error. Run
// Validate first when field paths and codes are wanted.
//
// The spec's operators are applied before opts, so opts win.
func Build(spec *ir.RuleBaseSpec, opts ...fuzzy.Option) (*fuzzy.RuleBase, error) {
	if spec == nil {
		return nil, errors.New("build: nil spec")
	}

	ops, err := fuzzy.OperatorsByName(spec.Operators.And, spec.Operators.Or)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", spec.Name, err)
	}

	var errs []error
	inputs := buildVariables(spec.Inputs, &errs)
	outputs := buildVariables(spec.Outputs, &errs)

	rules := make([]fuzzy.Rule, 0, len(spec.Rules))
	for _, r := range spec.Rules {
		antecedent, err := ToExpr(r.If)
		if err != nil {
			errs = append(errs, fmt.Errorf("rule %q: %w", r.ID, err))
			continue
		}
		rules = append(rules, fuzzy.NewRule(r.ID, antecedent, r.Then.Var, r.Then.Term))
	}

	if len(errs) > 0 {
		return nil, &fuzzy.ConfigError{RuleBase: spec.Name, Issues: errs}
	}

	all := append([]fuzzy.Option{fuzzy.WithOperators(ops)}, opts...)
	return fuzzy.NewRuleBase(spec.Name, inputs, outputs, rules, all...)
}

func buildVariables(specs []ir.VariableSpec, errs *[]error) []*fuzzy.LinguisticVariable {
	vars := make([]*fuzzy.LinguisticVariable, 0, len(specs))
	for _, vs := range specs {
		terms := make([]fuzzy.Term, 0, len(vs.Terms))
		bad := false
		for _, ts := range vs.Terms {
			mf, err := fuzzy.NewShape(fuzzy.ShapeKind(ts.Shape.Kind), ts.Shape.Points)
			if err != nil {
				*errs = append(*errs, fmt.Errorf("%s.%s: %w", vs.Name, ts.Name, err))
				bad = true
				continue
			}
			terms = append(terms, fuzzy.Term{Name: ts.Name, MF: mf})
		}
		if bad {
			continue
		}

		u := fuzzy.Universe{Min: vs.Universe.Min, Max: vs.Universe.Max, Step: vs.Universe.Step}
		v, err := fuzzy.NewVariable(vs.Name, u, terms...)
		if err != nil {
			*errs = append(*errs, err)
			continue
		}
		vars = append(vars, v)
	}
	return vars
}

// ToExpr converts an ExprSpec into a fuzzy expression tree.
// all/any with several arguments fold left into binary And/Or nodes.
func ToExpr(e ir.ExprSpec) (fuzzy.Expr, error) {
	switch e.Op {
	case ir.OpIs:
		return fuzzy.Is(e.Var, e.Term), nil

	case ir.OpNot:
		if len(e.Args) != 1 {
			return nil, fmt.Errorf("%w: not takes one argument, got %d", fuzzy.ErrMalformedExpr, len(e.Args))
		}
		inner, err := ToExpr(e.Args[0])
		if err != nil {
			return nil, err
		}
		return fuzzy.Not(inner), nil

	case ir.OpAll, ir.OpAny:
		if len(e.Args) == 0 {
			return nil, fmt.Errorf("%w: empty %s", fuzzy.ErrMalformedExpr, e.Op)
		}
		args := make([]fuzzy.Expr, len(e.Args))
		for i, a := range e.Args {
			x, err := ToExpr(a)
			if err != nil {
				return nil, err
			}
			args[i] = x
		}
		if e.Op == ir.OpAll {
			return fuzzy.AllOf(args...), nil
		}
		return fuzzy.AnyOf(args...), nil

	default:
		return nil, fmt.Errorf("%w: unknown operator %q", fuzzy.ErrMalformedExpr, e.Op)
	}
}

// FromExpr converts a fuzzy expression tree into an ExprSpec. Nested binary
// nodes of the same kind are flattened back into one all/any list.
func FromExpr(e fuzzy.Expr) (ir.ExprSpec, error) {
	switch n := e.(type) {
	case fuzzy.Leaf:
		return ir.Is(n.Variable, n.Term), nil
	case fuzzy.NotExpr:
		inner, err := FromExpr(n.Inner)
		if err != nil {
			return ir.ExprSpec{}, err
		}
		return ir.Not(inner), nil
	case fuzzy.AndExpr:
		return flatten(ir.OpAll, n.Left, n.Right)
	case fuzzy.OrExpr:
		return flatten(ir.OpAny, n.Left, n.Right)
	default:
		return ir.ExprSpec{}, fmt.Errorf("%w: %T", fuzzy.ErrMalformedExpr, e)
	}
}

func flatten(op string, left, right fuzzy.Expr) (ir.ExprSpec, error) {
	l, err := FromExpr(left)
	if err != nil {
		return ir.ExprSpec{}, err
	}
	r, err := FromExpr(right)
	if err != nil {
		return ir.ExprSpec{}, err
	}
	out := ir.ExprSpec{Op: op}
	if l.Op == op {
		out.Args = append(out.Args, l.Args...)
	} else {
		out.Args = append(out.Args, l)
	}
	out.Args = append(out.Args, r)
	return out, nil
}

// MustBuild is like Build but panics on error.
// Use only in tests or when the spec is known to be valid.
func MustBuild(spec *ir.RuleBaseSpec, opts ...fuzzy.Option) *fuzzy.RuleBase {
	rb, err := Build(spec, opts...)
	if err != nil {
		panic(err)
	}
	return rb
}
