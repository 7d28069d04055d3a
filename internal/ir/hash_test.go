package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSpec() *RuleBaseSpec {
	level := func(name string) VariableSpec {
		return VariableSpec{
			Name:     name,
			Universe: UniverseSpec{Min: 0, Max: 1, Step: 0.1},
			Terms: []TermSpec{
				{Name: "low", Shape: ShapeSpec{Kind: ShapeTriangle, Points: []float64{0, 0, 0.5}}},
				{Name: "high", Shape: ShapeSpec{Kind: ShapeTriangle, Points: []float64{0.5, 1, 1}}},
			},
		}
	}
	return &RuleBaseSpec{
		Name:    "sample",
		Inputs:  []VariableSpec{level("road")},
		Outputs: []VariableSpec{level("go")},
		Rules: []RuleSpec{
			{ID: "r1", If: Is("road", "high"), Then: ConsequentRef{Var: "go", Term: "high"}},
			{ID: "r2", If: Not(Is("road", "high")), Then: ConsequentRef{Var: "go", Term: "low"}},
		},
	}
}

func TestRuleBaseHashDeterminism(t *testing.T) {
	h1, err := RuleBaseHash(sampleSpec())
	require.NoError(t, err)
	h2, err := RuleBaseHash(sampleSpec())
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "RuleBaseHash must be deterministic")
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestRuleBaseHashChangesWithContent(t *testing.T) {
	base := MustRuleBaseHash(sampleSpec())

	shape := sampleSpec()
	shape.Inputs[0].Terms[1].Shape.Points[0] = 0.4
	assert.NotEqual(t, base, MustRuleBaseHash(shape), "membership points are part of identity")

	ops := sampleSpec()
	ops.Operators = OperatorSpec{And: "product", Or: "probsum"}
	assert.NotEqual(t, base, MustRuleBaseHash(ops), "operators are part of identity")

	order := sampleSpec()
	order.Rules[0], order.Rules[1] = order.Rules[1], order.Rules[0]
	assert.NotEqual(t, base, MustRuleBaseHash(order), "declaration order is part of identity")
}

func TestRuleBaseHashNil(t *testing.T) {
	_, err := RuleBaseHash(nil)
	assert.Error(t, err)
	assert.Panics(t, func() { MustRuleBaseHash(nil) })
}

func TestEvaluationID(t *testing.T) {
	inputs := map[string]float64{"distance": 5, "road": 1}

	id1, err := EvaluationID("run-1", 0, inputs)
	require.NoError(t, err)
	id2, err := EvaluationID("run-1", 0, map[string]float64{"road": 1, "distance": 5})
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	id3, err := EvaluationID("run-1", 1, inputs)
	require.NoError(t, err)
	id4, err := EvaluationID("run-2", 0, inputs)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3, "seq is part of identity")
	assert.NotEqual(t, id1, id4, "run is part of identity")
}

func TestDomainSeparation(t *testing.T) {
	data := []byte(`{}`)
	assert.NotEqual(t, hashWithDomain(DomainRuleBase, data), hashWithDomain(DomainEvaluation, data))
}
