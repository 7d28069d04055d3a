package fuzzy

import (
	"fmt"
	"math"
)

// Expr is an antecedent expression tree. The concrete types are Leaf,
// AndExpr, OrExpr and NotExpr; the set is closed.
type Expr interface {
	fmt.Stringer
	expr()
}

// Leaf is the atomic proposition "Variable is Term".
type Leaf struct {
	Variable string
	Term     string
}

// AndExpr is fuzzy conjunction.
type AndExpr struct {
	Left, Right Expr
}

// OrExpr is fuzzy disjunction.
type OrExpr struct {
	Left, Right Expr
}

// NotExpr is fuzzy complement.
type NotExpr struct {
	Inner Expr
}

func (Leaf) expr()    {}
func (AndExpr) expr() {}
func (OrExpr) expr()  {}
func (NotExpr) expr() {}

func (l Leaf) String() string    { return l.Variable + " is " + l.Term }
func (a AndExpr) String() string { return "(" + str(a.Left) + " and " + str(a.Right) + ")" }
func (o OrExpr) String() string  { return "(" + str(o.Left) + " or " + str(o.Right) + ")" }
func (n NotExpr) String() string { return "not " + str(n.Inner) }

func str(e Expr) string {
	if e == nil {
		return "<nil>"
	}
	return e.String()
}

// Is builds a leaf.
func Is(variable, term string) Expr { return Leaf{Variable: variable, Term: term} }

// And builds a conjunction.
func And(left, right Expr) Expr { return AndExpr{Left: left, Right: right} }

// Or builds a disjunction.
func Or(left, right Expr) Expr { return OrExpr{Left: left, Right: right} }

// Not builds a complement.
func Not(inner Expr) Expr { return NotExpr{Inner: inner} }

// AllOf folds exprs left to right into nested conjunctions.
// It returns nil for an empty list.
func AllOf(exprs ...Expr) Expr {
	return fold(exprs, And)
}

// AnyOf folds exprs left to right into nested disjunctions.
// It returns nil for an empty list.
func AnyOf(exprs ...Expr) Expr {
	return fold(exprs, Or)
}

func fold(exprs []Expr, join func(l, r Expr) Expr) Expr {
	if len(exprs) == 0 {
		return nil
	}
	acc := exprs[0]
	for _, e := range exprs[1:] {
		acc = join(acc, e)
	}
	return acc
}

// Operators selects the t-norm and s-norm used for And and Or. Not is always
// the standard complement 1-x.
type Operators struct {
	Name string
	And  func(a, b float64) float64
	Or   func(a, b float64) float64
}

// Zadeh is the canonical Mamdani operator set: min and max.
var Zadeh = Operators{Name: "zadeh", And: math.Min, Or: math.Max}

// Product uses the algebraic product and the probabilistic sum.
var Product = Operators{
	Name: "product",
	And:  func(a, b float64) float64 { return a * b },
	Or:   func(a, b float64) float64 { return a + b - a*b },
}

// Operator names accepted by OperatorsByName.
const (
	AndMin     = "min"
	AndProduct = "product"
	OrMax      = "max"
	OrProbSum  = "probsum"
)

// OperatorsByName combines a t-norm and an s-norm by name. Empty names select
// the Zadeh defaults.
func OperatorsByName(and, or string) (Operators, error) {
	ops := Operators{And: Zadeh.And, Or: Zadeh.Or}
	switch and {
	case "", AndMin:
		and = AndMin
	case AndProduct:
		ops.And = Product.And
	default:
		return Operators{}, fmt.Errorf("unsupported and operator %q", and)
	}
	switch or {
	case "", OrMax:
		or = OrMax
	case OrProbSum:
		ops.Or = Product.Or
	default:
		return Operators{}, fmt.Errorf("unsupported or operator %q", or)
	}
	switch {
	case and == AndMin && or == OrMax:
		ops.Name = Zadeh.Name
	case and == AndProduct && or == OrProbSum:
		ops.Name = Product.Name
	default:
		ops.Name = and + "/" + or
	}
	return ops, nil
}

// Eval computes the firing degree of e for the given crisp inputs.
func Eval(e Expr, vars map[string]*LinguisticVariable, inputs map[string]float64, ops Operators) (float64, error) {
	switch n := e.(type) {
	case Leaf:
		v, ok := vars[n.Variable]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnknownVariable, n.Variable)
		}
		x, ok := inputs[n.Variable]
		if !ok {
			return 0, &EvalError{Kind: ErrMissingInput, Variable: n.Variable}
		}
		return v.Fuzzify(n.Term, x)
	case AndExpr:
		l, r, err := evalPair(n.Left, n.Right, vars, inputs, ops)
		if err != nil {
			return 0, err
		}
		return ops.And(l, r), nil
	case OrExpr:
		l, r, err := evalPair(n.Left, n.Right, vars, inputs, ops)
		if err != nil {
			return 0, err
		}
		return ops.Or(l, r), nil
	case NotExpr:
		x, err := Eval(n.Inner, vars, inputs, ops)
		if err != nil {
			return 0, err
		}
		return 1 - x, nil
	default:
		return 0, fmt.Errorf("%w: unexpected node %T", ErrMalformedExpr, e)
	}
}

func evalPair(l, r Expr, vars map[string]*LinguisticVariable, inputs map[string]float64, ops Operators) (float64, float64, error) {
	lv, err := Eval(l, vars, inputs, ops)
	if err != nil {
		return 0, 0, err
	}
	rv, err := Eval(r, vars, inputs, ops)
	if err != nil {
		return 0, 0, err
	}
	return lv, rv, nil
}

// Walk calls fn for every leaf of e, left to right. It returns an error for
// nil children or foreign node types.
func Walk(e Expr, fn func(Leaf)) error {
	switch n := e.(type) {
	case Leaf:
		fn(n)
		return nil
	case AndExpr:
		if err := Walk(n.Left, fn); err != nil {
			return err
		}
		return Walk(n.Right, fn)
	case OrExpr:
		if err := Walk(n.Left, fn); err != nil {
			return err
		}
		return Walk(n.Right, fn)
	case NotExpr:
		return Walk(n.Inner, fn)
	default:
		return fmt.Errorf("%w: unexpected node %T", ErrMalformedExpr, e)
	}
}

// Leaves returns every leaf of e in left-to-right order.
func Leaves(e Expr) ([]Leaf, error) {
	var leaves []Leaf
	err := Walk(e, func(l Leaf) { leaves = append(leaves, l) })
	return leaves, err
}
