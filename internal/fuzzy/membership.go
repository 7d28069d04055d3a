package fuzzy

import (
	"fmt"
	"math"
)

// ShapeKind tags a membership function shape.
type ShapeKind string

const (
	Triangular  ShapeKind = "triangle"
	Trapezoidal ShapeKind = "trapezoid"
)

// MembershipFunction is a piecewise-linear shape with non-decreasing control
// points. A triangle is stored as a trapezoid whose plateau is the single
// point b, so Degree has one code path for both kinds.
//
// The zero value is not usable; construct with NewTriangular, NewTrapezoidal
// or NewShape.
type MembershipFunction struct {
	kind       ShapeKind
	a, b, c, d float64
}

// NewTriangular returns the triangle (a, b, c) with peak at b.
func NewTriangular(a, b, c float64) (MembershipFunction, error) {
	return NewShape(Triangular, []float64{a, b, c})
}

// NewTrapezoidal returns the trapezoid (a, b, c, d) with plateau [b, c].
func NewTrapezoidal(a, b, c, d float64) (MembershipFunction, error) {
	return NewShape(Trapezoidal, []float64{a, b, c, d})
}

// NewShape builds a membership function from a kind tag and its control points.
func NewShape(kind ShapeKind, points []float64) (MembershipFunction, error) {
	want := 0
	switch kind {
	case Triangular:
		want = 3
	case Trapezoidal:
		want = 4
	default:
		return MembershipFunction{}, fmt.Errorf("%w: unsupported kind %q", ErrInvalidShape, kind)
	}
	if len(points) != want {
		return MembershipFunction{}, fmt.Errorf("%w: %s needs %d points, got %d", ErrInvalidShape, kind, want, len(points))
	}
	for i, p := range points {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return MembershipFunction{}, fmt.Errorf("%w: point %d is not finite", ErrInvalidShape, i)
		}
		if i > 0 && p < points[i-1] {
			return MembershipFunction{}, fmt.Errorf("%w: points %v are not non-decreasing", ErrInvalidShape, points)
		}
	}

	mf := MembershipFunction{kind: kind, a: points[0], b: points[1]}
	if kind == Triangular {
		mf.c, mf.d = points[1], points[2]
	} else {
		mf.c, mf.d = points[2], points[3]
	}
	return mf, nil
}

// MustShape is NewShape for statically known shapes; it panics on error.
func MustShape(kind ShapeKind, points ...float64) MembershipFunction {
	mf, err := NewShape(kind, points)
	if err != nil {
		panic(err)
	}
	return mf
}

// Degree returns the membership of x in [0, 1]. It is 0 outside the support
// and 1 on the plateau. NaN has no membership anywhere.
func (m MembershipFunction) Degree(x float64) float64 {
	switch {
	case math.IsNaN(x), x < m.a, x > m.d:
		return 0
	case x >= m.b && x <= m.c:
		return 1
	case x < m.b:
		// a <= x < b, so b > a
		return (x - m.a) / (m.b - m.a)
	default:
		// c < x <= d, so d > c
		return (m.d - x) / (m.d - m.c)
	}
}

// Kind returns the shape tag.
func (m MembershipFunction) Kind() ShapeKind {
	return m.kind
}

// Points returns the control points as they were declared.
func (m MembershipFunction) Points() []float64 {
	if m.kind == Triangular {
		return []float64{m.a, m.b, m.d}
	}
	return []float64{m.a, m.b, m.c, m.d}
}

// Support returns the closed interval outside of which Degree is 0.
func (m MembershipFunction) Support() (lo, hi float64) {
	return m.a, m.d
}

// Plateau returns the interval on which Degree is 1.
func (m MembershipFunction) Plateau() (lo, hi float64) {
	return m.b, m.c
}

func (m MembershipFunction) String() string {
	return fmt.Sprintf("%s%v", m.kind, m.Points())
}
