package overtake

import (
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mamdani/internal/compiler"
	"github.com/roach88/mamdani/internal/ir"
)

func TestSpecIsValid(t *testing.T) {
	assert.Empty(t, compiler.Validate(Spec()))
	assert.Empty(t, compiler.Validate(SpecWithFallback()))
}

func TestSpecMatchesCUE(t *testing.T) {
	src, err := os.ReadFile(filepath.Join("..", "..", "testdata", "specs", "overtake", "overtake.cue"))
	require.NoError(t, err)

	v := cuecontext.New().CompileBytes(src)
	require.NoError(t, v.Err())

	spec, err := compiler.CompileRuleBase(v.LookupPath(cue.ParsePath("rulebase.overtake")))
	require.NoError(t, err)
	assert.Equal(t, Spec(), spec)
	assert.Equal(t, ir.MustRuleBaseHash(Spec()), ir.MustRuleBaseHash(spec))
}

func TestSpecReturnsFreshCopies(t *testing.T) {
	a := Spec()
	a.Rules[0].ID = "mutated"
	a.Inputs[0].Terms[0].Shape.Points[0] = 99
	assert.Equal(t, "close_fast", Spec().Rules[0].ID)
	assert.Equal(t, 0.0, Spec().Inputs[0].Terms[0].Shape.Points[0])
}

func TestRuleBase(t *testing.T) {
	rb, err := RuleBase()
	require.NoError(t, err)

	assert.Equal(t, Name, rb.Name())
	assert.Equal(t, Inputs, rb.InputNames())
	assert.Equal(t, []string{Decision}, rb.OutputNames())
	assert.Equal(t, 13, rb.Len())
	assert.Equal(t, []string{Distance, Permission, RelativeSpeed, Road, Visibility}, rb.ReferencedInputs())
	assert.Len(t, rb.OutputSamples(Decision), 101)

	d, _ := rb.Input(Distance)
	assert.Len(t, d.SampleUniverse(), 51)
	s, _ := rb.Input(RelativeSpeed)
	assert.Len(t, s.SampleUniverse(), 57)
}

func TestFallbackRule(t *testing.T) {
	r := FallbackRule()
	assert.Equal(t, "fallback", r.ID)
	assert.Equal(t, ir.OpNot, r.If.Op)
	assert.Equal(t, ir.ConsequentRef{Var: Decision, Term: "nao"}, r.Then)

	spec := SpecWithFallback()
	assert.Len(t, spec.Rules, len(Spec().Rules)+1)
	_, err := compiler.Build(spec)
	require.NoError(t, err)
}

func TestMustRuleBase(t *testing.T) {
	assert.NotPanics(t, func() { MustRuleBase() })
}
