// Package overtake is the vehicle-overtake rule base: five crisp inputs
// describing the car ahead and the road, one output in [0,1] where values
// near 1 mean "start overtaking".
package overtake

import (
	"github.com/roach88/mamdani/internal/compiler"
	"github.com/roach88/mamdani/internal/fuzzy"
	"github.com/roach88/mamdani/internal/ir"
)

// Name is the rule-base name.
const Name = "overtake"

// Variable names.
const (
	Distance      = "distance"       // metres to the car ahead, [0,50]
	RelativeSpeed = "relative_speed" // m/s, [0,56]
	Permission    = "permission"     // 0 forbidden .. 1 allowed
	Road          = "road"           // 0 obstructed .. 1 free
	Visibility    = "visibility"     // 0 poor .. 1 good
	Decision      = "overtake_decision"
)

// Inputs lists the input variables in declaration order.
var Inputs = []string{Distance, RelativeSpeed, Permission, Road, Visibility}

func tri(a, b, c float64) ir.ShapeSpec {
	return ir.ShapeSpec{Kind: ir.ShapeTriangle, Points: []float64{a, b, c}}
}

func trap(a, b, c, d float64) ir.ShapeSpec {
	return ir.ShapeSpec{Kind: ir.ShapeTrapezoid, Points: []float64{a, b, c, d}}
}

// binary is a [0,1] variable with a falling "low" and rising "high" term.
func binary(name, low, high string, step float64) ir.VariableSpec {
	return ir.VariableSpec{
		Name:     name,
		Universe: ir.UniverseSpec{Min: 0, Max: 1, Step: step},
		Terms: []ir.TermSpec{
			{Name: low, Shape: tri(0, 0, 0.5)},
			{Name: high, Shape: tri(0.5, 1, 1)},
		},
	}
}

func rule(id string, antecedent ir.ExprSpec, term string) ir.RuleSpec {
	return ir.RuleSpec{ID: id, If: antecedent, Then: ir.ConsequentRef{Var: Decision, Term: term}}
}

// favourable is "permitted, free road, good visibility".
func favourable() []ir.ExprSpec {
	return []ir.ExprSpec{
		ir.Is(Permission, "permitido"),
		ir.Is(Road, "livre"),
		ir.Is(Visibility, "boa"),
	}
}

// Spec returns a fresh copy of the overtake rule base. The same rule base
// ships as CUE in testdata/specs/overtake.
func Spec() *ir.RuleBaseSpec {
	return &ir.RuleBaseSpec{
		Name: Name,
		Inputs: []ir.VariableSpec{
			{
				Name:     Distance,
				Universe: ir.UniverseSpec{Min: 0, Max: 50, Step: 1},
				Terms: []ir.TermSpec{
					{Name: "pequena", Shape: trap(0, 0, 10, 20)},
					{Name: "media", Shape: tri(15, 25, 35)},
					{Name: "grande", Shape: trap(30, 40, 50, 50)},
				},
			},
			{
				Name:     RelativeSpeed,
				Universe: ir.UniverseSpec{Min: 0, Max: 56, Step: 1},
				Terms: []ir.TermSpec{
					{Name: "baixa", Shape: trap(0, 0, 10, 20)},
					{Name: "media", Shape: tri(15, 27.5, 40)},
					{Name: "alta", Shape: trap(30, 40, 56, 56)},
				},
			},
			binary(Permission, "nao_permitido", "permitido", 0.1),
			binary(Road, "obstruida", "livre", 0.1),
			binary(Visibility, "ruim", "boa", 0.1),
		},
		Outputs: []ir.VariableSpec{
			binary(Decision, "nao", "sim", 0.01),
		},
		Rules: []ir.RuleSpec{
			rule("close_fast", ir.All(append([]ir.ExprSpec{
				ir.Is(Distance, "pequena"), ir.Is(RelativeSpeed, "alta")}, favourable()...)...), "sim"),
			rule("close_moderate", ir.All(append([]ir.ExprSpec{
				ir.Is(Distance, "pequena"), ir.Is(RelativeSpeed, "media")}, favourable()...)...), "sim"),
			rule("far_slow_or_blocked", ir.Any(
				ir.Is(Distance, "grande"), ir.Is(RelativeSpeed, "baixa"), ir.Is(Road, "obstruida")), "nao"),
			rule("mid_fast", ir.All(append([]ir.ExprSpec{
				ir.Is(Distance, "media"), ir.Is(RelativeSpeed, "alta")}, favourable()...)...), "sim"),
			rule("poor_visibility", ir.Is(Visibility, "ruim"), "nao"),
			rule("road_obstructed", ir.Is(Road, "obstruida"), "nao"),
			rule("not_permitted", ir.Is(Permission, "nao_permitido"), "nao"),
			rule("far_fast", ir.All(ir.Is(Distance, "grande"), ir.Is(RelativeSpeed, "alta")), "nao"),
			rule("close_slow_permitted", ir.All(
				ir.Is(Distance, "pequena"), ir.Is(RelativeSpeed, "baixa"), ir.Is(Permission, "permitido")), "sim"),
			rule("mid_moderate", ir.All(
				ir.Is(Distance, "media"), ir.Is(RelativeSpeed, "media"), ir.Is(Visibility, "boa")), "sim"),
			rule("slow_poor_visibility", ir.All(ir.Is(RelativeSpeed, "baixa"), ir.Is(Visibility, "ruim")), "nao"),
			rule("slow_clear_visible", ir.All(
				ir.Is(RelativeSpeed, "baixa"), ir.Is(Visibility, "boa"), ir.Is(Road, "livre")), "sim"),
			rule("visible_but_blocked", ir.All(
				ir.Is(Visibility, "boa"),
				ir.Any(ir.Is(Road, "obstruida"), ir.Is(Permission, "nao_permitido"))), "nao"),
		},
	}
}

// FallbackRule concludes "nao" to the degree that the inputs are NOT covered
// by any combination of terms. It is not part of Spec; append it when
// uncovered regions should yield a baseline "do not overtake" instead of
// ErrNoActivation.
func FallbackRule() ir.RuleSpec {
	covered := ir.All(
		ir.Any(ir.Is(Distance, "pequena"), ir.Is(Distance, "media"), ir.Is(Distance, "grande")),
		ir.Any(ir.Is(RelativeSpeed, "baixa"), ir.Is(RelativeSpeed, "media"), ir.Is(RelativeSpeed, "alta")),
		ir.Any(ir.Is(Permission, "permitido"), ir.Is(Permission, "nao_permitido")),
		ir.Any(ir.Is(Road, "livre"), ir.Is(Road, "obstruida")),
		ir.Any(ir.Is(Visibility, "boa"), ir.Is(Visibility, "ruim")),
	)
	return rule("fallback", ir.Not(covered), "nao")
}

// SpecWithFallback returns Spec with FallbackRule appended.
func SpecWithFallback() *ir.RuleBaseSpec {
	s := Spec()
	s.Rules = append(s.Rules, FallbackRule())
	return s
}

// RuleBase builds Spec.
func RuleBase(opts ...fuzzy.Option) (*fuzzy.RuleBase, error) {
	return compiler.Build(Spec(), opts...)
}

// MustRuleBase is like RuleBase but panics on error.
func MustRuleBase(opts ...fuzzy.Option) *fuzzy.RuleBase {
	rb, err := RuleBase(opts...)
	if err != nil {
		panic(err)
	}
	return rb
}
