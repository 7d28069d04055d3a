package fuzzy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShape_RejectsBadPoints(t *testing.T) {
	cases := []struct {
		name   string
		kind   ShapeKind
		points []float64
	}{
		{"decreasing triangle", Triangular, []float64{0, 2, 1}},
		{"decreasing trapezoid", Trapezoidal, []float64{0, 1, 3, 2}},
		{"triangle with four points", Triangular, []float64{0, 1, 2, 3}},
		{"trapezoid with three points", Trapezoidal, []float64{0, 1, 2}},
		{"nan point", Triangular, []float64{0, math.NaN(), 1}},
		{"infinite point", Trapezoidal, []float64{math.Inf(-1), 0, 1, 2}},
		{"unknown kind", ShapeKind("gaussian"), []float64{0, 1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewShape(tc.kind, tc.points)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidShape)
		})
	}
}

func TestDegree_ZeroOutsideSupport(t *testing.T) {
	tri, err := NewTriangular(150, 250, 350)
	require.NoError(t, err)
	trap, err := NewTrapezoidal(0, 0, 100, 200)
	require.NoError(t, err)

	for _, x := range []float64{-1e9, 149.999, 350.001, 1e9, math.Inf(1), math.Inf(-1)} {
		assert.Equal(t, 0.0, tri.Degree(x), "triangle at %v", x)
	}
	for _, x := range []float64{-0.001, 200.001, math.Inf(1)} {
		assert.Equal(t, 0.0, trap.Degree(x), "trapezoid at %v", x)
	}
	assert.Equal(t, 0.0, tri.Degree(math.NaN()))
}

func TestDegree_OneOnPlateau(t *testing.T) {
	tri, err := NewTriangular(0, 5, 10)
	require.NoError(t, err)
	assert.Equal(t, 1.0, tri.Degree(5))

	trap, err := NewTrapezoidal(0, 10, 20, 30)
	require.NoError(t, err)
	for _, x := range []float64{10, 12.5, 15, 20} {
		assert.Equal(t, 1.0, trap.Degree(x))
	}
}

func TestDegree_Shoulders(t *testing.T) {
	// Left shoulder: a == b
	left, err := NewTriangular(0, 0, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 1.0, left.Degree(0))
	assert.InDelta(t, 0.5, left.Degree(0.25), 1e-12)
	assert.Equal(t, 0.0, left.Degree(0.5))
	assert.Equal(t, 0.0, left.Degree(-0.1))

	// Right shoulder: c == d
	right, err := NewTrapezoidal(40, 50, 56, 56)
	require.NoError(t, err)
	assert.Equal(t, 1.0, right.Degree(56))
	assert.InDelta(t, 0.5, right.Degree(45), 1e-12)
	assert.Equal(t, 0.0, right.Degree(56.5))
}

func TestDegree_SlopesAreMonotonic(t *testing.T) {
	trap, err := NewTrapezoidal(2, 6, 8, 14)
	require.NoError(t, err)

	prev := trap.Degree(2)
	for x := 2.0; x <= 6; x += 0.05 {
		d := trap.Degree(x)
		assert.GreaterOrEqual(t, d, prev, "left slope must not decrease at %v", x)
		prev = d
	}

	prev = trap.Degree(8)
	for x := 8.0; x <= 14; x += 0.05 {
		d := trap.Degree(x)
		assert.LessOrEqual(t, d, prev, "right slope must not increase at %v", x)
		prev = d
	}
}

func TestDegree_ContinuousAtCorners(t *testing.T) {
	trap, err := NewTrapezoidal(1, 3, 5, 9)
	require.NoError(t, err)

	const h = 1e-9
	for _, corner := range []float64{1, 3, 5, 9} {
		assert.InDelta(t, trap.Degree(corner-h), trap.Degree(corner+h), 1e-6, "corner %v", corner)
	}
}

func TestDegree_DegenerateSinglePoint(t *testing.T) {
	spike, err := NewTriangular(3, 3, 3)
	require.NoError(t, err)
	assert.Equal(t, 1.0, spike.Degree(3))
	assert.Equal(t, 0.0, spike.Degree(3.0001))
	assert.Equal(t, 0.0, spike.Degree(2.9999))
}

func TestShapeAccessors(t *testing.T) {
	tri := MustShape(Triangular, 1, 2, 4)
	assert.Equal(t, Triangular, tri.Kind())
	assert.Equal(t, []float64{1, 2, 4}, tri.Points())
	lo, hi := tri.Support()
	assert.Equal(t, 1.0, lo)
	assert.Equal(t, 4.0, hi)
	assert.Equal(t, "triangle[1 2 4]", tri.String())

	trap := MustShape(Trapezoidal, 0, 1, 2, 3)
	plo, phi := trap.Plateau()
	assert.Equal(t, 1.0, plo)
	assert.Equal(t, 2.0, phi)
	assert.Equal(t, []float64{0, 1, 2, 3}, trap.Points())
}

func TestMustShape_Panics(t *testing.T) {
	assert.Panics(t, func() { MustShape(Triangular, 3, 2, 1) })
}
