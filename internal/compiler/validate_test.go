package compiler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mamdani/internal/fuzzy"
	"github.com/roach88/mamdani/internal/ir"
)

func level(name string) ir.VariableSpec {
	return ir.VariableSpec{
		Name:     name,
		Universe: ir.UniverseSpec{Min: 0, Max: 1, Step: 0.1},
		Terms: []ir.TermSpec{
			{Name: "low", Shape: ir.ShapeSpec{Kind: ir.ShapeTriangle, Points: []float64{0, 0, 0.5}}},
			{Name: "high", Shape: ir.ShapeSpec{Kind: ir.ShapeTriangle, Points: []float64{0.5, 1, 1}}},
		},
	}
}

func validSpec() *ir.RuleBaseSpec {
	return &ir.RuleBaseSpec{
		Name:    "valid",
		Inputs:  []ir.VariableSpec{level("road"), level("visibility")},
		Outputs: []ir.VariableSpec{level("go")},
		Rules: []ir.RuleSpec{
			{ID: "r1", If: ir.All(ir.Is("road", "high"), ir.Is("visibility", "high")), Then: ir.ConsequentRef{Var: "go", Term: "high"}},
			{ID: "r2", If: ir.Any(ir.Is("road", "low"), ir.Not(ir.Is("visibility", "high"))), Then: ir.ConsequentRef{Var: "go", Term: "low"}},
		},
	}
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateValid(t *testing.T) {
	assert.Empty(t, Validate(validSpec()))
	assert.Empty(t, Validate(*validSpec()), "value and pointer are both accepted")
}

func TestValidateUnsupportedType(t *testing.T) {
	errs := Validate("not a spec")
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnsupportedIRType, errs[0].Code)
}

func TestValidateShape(t *testing.T) {
	tests := []struct {
		name  string
		shape ir.ShapeSpec
	}{
		{"unknown kind", ir.ShapeSpec{Kind: "gauss", Points: []float64{0, 1}}},
		{"triangle with four points", ir.ShapeSpec{Kind: ir.ShapeTriangle, Points: []float64{0, 0.2, 0.4, 0.6}}},
		{"trapezoid with three points", ir.ShapeSpec{Kind: ir.ShapeTrapezoid, Points: []float64{0, 0.5, 1}}},
		{"decreasing", ir.ShapeSpec{Kind: ir.ShapeTriangle, Points: []float64{0.5, 0.2, 1}}},
		{"nan", ir.ShapeSpec{Kind: ir.ShapeTriangle, Points: []float64{0, math.NaN(), 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			spec.Inputs[0].Terms[0].Shape = tt.shape
			errs := Validate(spec)
			require.Len(t, errs, 1)
			assert.Equal(t, ErrInvalidShape, errs[0].Code)
			assert.Contains(t, errs[0].Field, "inputs[0].terms[0].shape")
		})
	}
}

func TestValidateUniverse(t *testing.T) {
	spec := validSpec()
	spec.Inputs[1].Universe = ir.UniverseSpec{Min: 1, Max: 0, Step: 0}
	errs := Validate(spec)
	assert.Equal(t, []string{ErrInvalidUniverse, ErrInvalidUniverse}, codes(errs))

	spec = validSpec()
	spec.Outputs[0].Universe.Max = math.Inf(1)
	errs = Validate(spec)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrInvalidUniverse, errs[0].Code)
	assert.Equal(t, "outputs[0].universe", errs[0].Field)
}

func TestValidateUniverseTooFine(t *testing.T) {
	spec := validSpec()
	spec.Outputs[0].Universe.Step = 1e-9
	errs := Validate(spec)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrInvalidUniverse, errs[0].Code)
	assert.Equal(t, "outputs[0].universe.step", errs[0].Field)
	assert.Contains(t, errs[0].Message, "limit is 1000000")

	_, err := Build(spec)
	assert.ErrorIs(t, err, fuzzy.ErrInvalidUniverse)

	spec = validSpec()
	spec.Inputs[0].Universe = ir.UniverseSpec{Min: 0, Max: 999_999, Step: 1}
	assert.Empty(t, Validate(spec), "exactly the limit is allowed")
}

func TestValidateDuplicates(t *testing.T) {
	spec := validSpec()
	spec.Outputs = append(spec.Outputs, level("road"))
	spec.Inputs[0].Terms = append(spec.Inputs[0].Terms, spec.Inputs[0].Terms[0])
	spec.Rules = append(spec.Rules, spec.Rules[0])

	errs := Validate(spec)
	// duplicate variable, duplicate term, duplicate rule id, and "road" as an
	// output is never targeted
	assert.ElementsMatch(t, []string{ErrDuplicateName, ErrDuplicateName, ErrDuplicateName, ErrUnreferencedOutput}, codes(errs))
}

func TestValidateReferences(t *testing.T) {
	spec := validSpec()
	spec.Rules = append(spec.Rules,
		ir.RuleSpec{ID: "r3", If: ir.Is("speed", "high"), Then: ir.ConsequentRef{Var: "go", Term: "high"}},
		ir.RuleSpec{ID: "r4", If: ir.Is("road", "medium"), Then: ir.ConsequentRef{Var: "go", Term: "high"}},
		ir.RuleSpec{ID: "r5", If: ir.Is("road", "low"), Then: ir.ConsequentRef{Var: "stop", Term: "high"}},
		ir.RuleSpec{ID: "r6", If: ir.Is("road", "low"), Then: ir.ConsequentRef{Var: "go", Term: "maybe"}},
		ir.RuleSpec{ID: "r7", If: ir.Is("go", "low"), Then: ir.ConsequentRef{Var: "go", Term: "low"}},
	)

	errs := Validate(spec)
	assert.Equal(t, []string{ErrUnknownVariable, ErrUnknownTerm, ErrUnknownVariable, ErrUnknownTerm, ErrUnknownVariable}, codes(errs))
	assert.Equal(t, "rules[2].if", errs[0].Field)
	assert.Contains(t, errs[4].Message, `unknown input variable "go"`)
}

func TestValidateNoRulesAndUnreferencedOutput(t *testing.T) {
	spec := validSpec()
	spec.Rules = nil
	assert.Equal(t, []string{ErrNoRules, ErrUnreferencedOutput}, codes(Validate(spec)))
}

func TestValidateNoVariables(t *testing.T) {
	errs := Validate(&ir.RuleBaseSpec{Name: "empty"})
	assert.Equal(t, []string{ErrNoVariables, ErrNoVariables, ErrNoRules}, codes(errs))
}

func TestValidateOperators(t *testing.T) {
	spec := validSpec()
	spec.Operators = ir.OperatorSpec{And: "lukasiewicz"}
	errs := Validate(spec)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrInvalidOperator, errs[0].Code)
}

func TestValidateMalformedExpressions(t *testing.T) {
	tests := []struct {
		name string
		expr ir.ExprSpec
	}{
		{"empty all", ir.ExprSpec{Op: ir.OpAll}},
		{"empty any", ir.ExprSpec{Op: ir.OpAny}},
		{"not with two args", ir.ExprSpec{Op: ir.OpNot, Args: []ir.ExprSpec{ir.Is("road", "low"), ir.Is("road", "high")}}},
		{"unknown op", ir.ExprSpec{Op: "xor"}},
		{"all with var", ir.ExprSpec{Op: ir.OpAll, Var: "road", Args: []ir.ExprSpec{ir.Is("road", "low")}}},
		{"is with args", ir.ExprSpec{Op: ir.OpIs, Var: "road", Term: "low", Args: []ir.ExprSpec{ir.Is("road", "low")}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			spec.Rules[1].If = tt.expr
			errs := Validate(spec)
			require.Len(t, errs, 1)
			assert.Equal(t, ErrMalformedExpr, errs[0].Code)
		})
	}
}

func TestValidationErrorFormat(t *testing.T) {
	e := ValidationError{Field: "rules[0].if", Message: "bad", Code: ErrMalformedExpr}
	assert.Equal(t, "[E109] rules[0].if: bad", e.Error())
	e.Line = 12
	assert.Equal(t, "[E109] line 12: rules[0].if: bad", e.Error())
}
