package fuzzy

import (
	"fmt"
	"math"
)

// universeEpsilon absorbs representation error in (max-min)/step so that a
// max lying on the grid is always included.
const universeEpsilon = 1e-9

// MaxUniverseSamples bounds the grid of one universe. Every evaluation
// allocates one aggregation buffer of this length per output.
const MaxUniverseSamples = 1_000_000

// Universe is the discretized range of a variable. It is only sampled for
// defuzzification (and diagnostic curves); crisp inputs are never clamped to it.
type Universe struct {
	Min  float64
	Max  float64
	Step float64
}

// Validate checks that the universe describes a non-empty finite grid.
func (u Universe) Validate() error {
	for _, v := range []float64{u.Min, u.Max, u.Step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: bounds and step must be finite", ErrInvalidUniverse)
		}
	}
	if u.Step <= 0 {
		return fmt.Errorf("%w: step must be positive, got %v", ErrInvalidUniverse, u.Step)
	}
	if u.Max < u.Min {
		return fmt.Errorf("%w: max %v is below min %v", ErrInvalidUniverse, u.Max, u.Min)
	}
	// Counted in float64: a tiny step overflows int before it overflows float.
	if n := math.Floor((u.Max-u.Min)/u.Step+universeEpsilon) + 1; n > MaxUniverseSamples {
		return fmt.Errorf("%w: step %v over [%v, %v] gives %g samples, limit is %d",
			ErrInvalidUniverse, u.Step, u.Min, u.Max, n, MaxUniverseSamples)
	}
	return nil
}

// Len returns the number of grid samples.
func (u Universe) Len() int {
	return int(math.Floor((u.Max-u.Min)/u.Step+universeEpsilon)) + 1
}

// Samples returns the grid min + i*step for i = 0..Len()-1. Every sample is
// computed from its index, so repeated calls are bit-identical.
func (u Universe) Samples() []float64 {
	n := u.Len()
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = u.Min + float64(i)*u.Step
	}
	return xs
}

// Term is a named membership function of a variable.
type Term struct {
	Name string
	MF   MembershipFunction
}

// LinguisticVariable is a named variable with an ordered set of terms.
// It is immutable after NewVariable returns.
type LinguisticVariable struct {
	name     string
	universe Universe
	terms    []Term
	index    map[string]int
	grid     []float64
}

// NewVariable validates the universe and term names and returns the variable.
func NewVariable(name string, universe Universe, terms ...Term) (*LinguisticVariable, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: variable name is empty", ErrUnknownVariable)
	}
	if err := universe.Validate(); err != nil {
		return nil, fmt.Errorf("variable %q: %w", name, err)
	}

	v := &LinguisticVariable{
		name:     name,
		universe: universe,
		terms:    make([]Term, 0, len(terms)),
		index:    make(map[string]int, len(terms)),
	}
	for _, t := range terms {
		if t.Name == "" {
			return nil, fmt.Errorf("variable %q: %w: term name is empty", name, ErrUnknownTerm)
		}
		if t.MF.kind == "" {
			return nil, fmt.Errorf("variable %q term %q: %w: membership function not set", name, t.Name, ErrInvalidShape)
		}
		if _, dup := v.index[t.Name]; dup {
			return nil, fmt.Errorf("variable %q: %w: term %q", name, ErrDuplicateName, t.Name)
		}
		v.index[t.Name] = len(v.terms)
		v.terms = append(v.terms, t)
	}
	v.grid = universe.Samples()
	return v, nil
}

// Name returns the variable name.
func (v *LinguisticVariable) Name() string {
	return v.name
}

// Universe returns the universe of discourse.
func (v *LinguisticVariable) Universe() Universe {
	return v.universe
}

// Terms returns the terms in declaration order.
func (v *LinguisticVariable) Terms() []Term {
	out := make([]Term, len(v.terms))
	copy(out, v.terms)
	return out
}

// HasTerm reports whether the variable declares term.
func (v *LinguisticVariable) HasTerm(term string) bool {
	_, ok := v.index[term]
	return ok
}

// Term returns the membership function of a term.
func (v *LinguisticVariable) Term(term string) (MembershipFunction, error) {
	i, ok := v.index[term]
	if !ok {
		return MembershipFunction{}, fmt.Errorf("%w: %s.%s", ErrUnknownTerm, v.name, term)
	}
	return v.terms[i].MF, nil
}

// Fuzzify returns the degree of x in term.
func (v *LinguisticVariable) Fuzzify(term string, x float64) (float64, error) {
	mf, err := v.Term(term)
	if err != nil {
		return 0, err
	}
	return mf.Degree(x), nil
}

// SampleUniverse returns a copy of the fixed defuzzification grid.
func (v *LinguisticVariable) SampleUniverse() []float64 {
	out := make([]float64, len(v.grid))
	copy(out, v.grid)
	return out
}

// samples returns the shared grid without copying. Callers must not modify it.
func (v *LinguisticVariable) samples() []float64 {
	return v.grid
}

// Curve is one term's membership sampled over the universe.
type Curve struct {
	Term    string
	X       []float64
	Degrees []float64
}

// Curves samples every term over the universe, in term order.
func (v *LinguisticVariable) Curves() []Curve {
	curves := make([]Curve, len(v.terms))
	for i, t := range v.terms {
		ys := make([]float64, len(v.grid))
		for j, x := range v.grid {
			ys[j] = t.MF.Degree(x)
		}
		curves[i] = Curve{Term: t.Name, X: v.SampleUniverse(), Degrees: ys}
	}
	return curves
}

// Memberships returns the degree of x in every term, keyed by term name.
func (v *LinguisticVariable) Memberships(x float64) map[string]float64 {
	out := make(map[string]float64, len(v.terms))
	for _, t := range v.terms {
		out[t.Name] = t.MF.Degree(x)
	}
	return out
}
