package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLevel(t *testing.T, name string) *LinguisticVariable {
	t.Helper()
	v, err := NewVariable(name, Universe{Min: 0, Max: 1, Step: 0.1},
		Term{Name: "low", MF: MustShape(Triangular, 0, 0, 0.5)},
		Term{Name: "high", MF: MustShape(Triangular, 0.5, 1, 1)},
	)
	require.NoError(t, err)
	return v
}

func TestUniverse_Samples(t *testing.T) {
	u := Universe{Min: 0, Max: 1, Step: 0.1}
	xs := u.Samples()

	require.Len(t, xs, 11)
	assert.Equal(t, 0.0, xs[0])
	assert.InDelta(t, 1.0, xs[10], 1e-12)
	assert.Equal(t, u.Samples(), xs, "sampling must be bit-identical across calls")
}

func TestUniverse_MaxOffGrid(t *testing.T) {
	u := Universe{Min: 0, Max: 10, Step: 3}
	assert.Equal(t, []float64{0, 3, 6, 9}, u.Samples())
}

func TestUniverse_SinglePoint(t *testing.T) {
	u := Universe{Min: 4, Max: 4, Step: 1}
	assert.Equal(t, []float64{4}, u.Samples())
}

func TestUniverse_Validate(t *testing.T) {
	assert.ErrorIs(t, Universe{Min: 0, Max: 1, Step: 0}.Validate(), ErrInvalidUniverse)
	assert.ErrorIs(t, Universe{Min: 0, Max: 1, Step: -1}.Validate(), ErrInvalidUniverse)
	assert.ErrorIs(t, Universe{Min: 2, Max: 1, Step: 1}.Validate(), ErrInvalidUniverse)
	assert.NoError(t, Universe{Min: 0, Max: 500, Step: 1}.Validate())
}

func TestUniverse_ValidateSampleLimit(t *testing.T) {
	assert.NoError(t, Universe{Min: 0, Max: MaxUniverseSamples - 1, Step: 1}.Validate())
	assert.ErrorIs(t, Universe{Min: 0, Max: MaxUniverseSamples, Step: 1}.Validate(), ErrInvalidUniverse)
	assert.ErrorIs(t, Universe{Min: 0, Max: 1, Step: 1e-7}.Validate(), ErrInvalidUniverse)
	assert.ErrorIs(t, Universe{Min: -1e300, Max: 1e300, Step: 1e-300}.Validate(), ErrInvalidUniverse,
		"sample count overflows to +Inf")
}

func TestNewVariable_DuplicateTerm(t *testing.T) {
	_, err := NewVariable("road", Universe{Min: 0, Max: 1, Step: 0.1},
		Term{Name: "livre", MF: MustShape(Triangular, 0.5, 1, 1)},
		Term{Name: "livre", MF: MustShape(Triangular, 0, 0, 0.5)},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestNewVariable_UnsetShape(t *testing.T) {
	_, err := NewVariable("road", Universe{Min: 0, Max: 1, Step: 0.1}, Term{Name: "livre"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidShape)
}

func TestNewVariable_InvalidUniverse(t *testing.T) {
	_, err := NewVariable("road", Universe{Min: 0, Max: 1, Step: 0})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidUniverse)
	assert.Contains(t, err.Error(), `"road"`)
}

func TestFuzzify(t *testing.T) {
	v := newLevel(t, "visibility")

	d, err := v.Fuzzify("high", 0.75)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, d, 1e-12)

	d, err = v.Fuzzify("low", 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, d)

	_, err = v.Fuzzify("medium", 0.5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownTerm)
}

func TestFuzzify_OutsideUniverseIsNotRejected(t *testing.T) {
	v := newLevel(t, "visibility")

	d, err := v.Fuzzify("high", 7)
	require.NoError(t, err)
	assert.Equal(t, 0.0, d)
}

func TestTermsKeepDeclarationOrder(t *testing.T) {
	v := newLevel(t, "road")
	terms := v.Terms()
	require.Len(t, terms, 2)
	assert.Equal(t, "low", terms[0].Name)
	assert.Equal(t, "high", terms[1].Name)

	// Returned slices are copies.
	terms[0].Name = "mutated"
	assert.Equal(t, "low", v.Terms()[0].Name)
	grid := v.SampleUniverse()
	grid[0] = 42
	assert.Equal(t, 0.0, v.SampleUniverse()[0])
}

func TestCurves(t *testing.T) {
	v := newLevel(t, "permission")
	curves := v.Curves()

	require.Len(t, curves, 2)
	assert.Equal(t, "low", curves[0].Term)
	require.Len(t, curves[0].Degrees, 11)
	assert.Equal(t, 1.0, curves[0].Degrees[0])
	assert.Equal(t, 0.0, curves[0].Degrees[10])
	assert.InDelta(t, 1.0, curves[1].Degrees[10], 1e-12)
}

func TestMemberships(t *testing.T) {
	v := newLevel(t, "permission")
	m := v.Memberships(0.2)
	assert.InDelta(t, 0.6, m["low"], 1e-12)
	assert.Equal(t, 0.0, m["high"])
}
