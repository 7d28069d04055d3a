package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/mamdani/internal/fuzzy"
)

// NoActivation handling modes for a Policy.
const (
	OnNoActivationError   = "error"
	OnNoActivationDefault = "default"
)

// Policy turns a crisp output into a binary action.
type Policy struct {
	// Output is the output variable the decision reads.
	Output string
	// Threshold: the action is taken when the value is at least Threshold.
	Threshold float64
	// OnNoActivation is "error" (default) or "default".
	OnNoActivation string
	// Default is the value used when OnNoActivation is "default".
	Default float64
}

// Decision is the outcome of applying a Policy to a Result.
type Decision struct {
	Value    float64 `json:"value"`
	Act      bool    `json:"act"`
	Fallback bool    `json:"fallback"`
}

// Decide applies the policy to res. A NoActivation failure is returned as an
// error unless the policy substitutes Default, in which case Fallback is set.
func (p Policy) Decide(res *Result) (Decision, error) {
	if res == nil {
		return Decision{}, errors.New("decide: nil result")
	}
	v, err := res.Output(p.Output)
	if err != nil {
		if fuzzy.IsNoActivation(err) && p.OnNoActivation == OnNoActivationDefault {
			return Decision{Value: p.Default, Act: p.Default >= p.Threshold, Fallback: true}, nil
		}
		return Decision{}, fmt.Errorf("decide %s: %w", p.Output, err)
	}
	return Decision{Value: v, Act: v >= p.Threshold}, nil
}
