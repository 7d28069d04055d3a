package harness

import (
	"math"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/mamdani/internal/ir"
)

// goldenDigits is the rounding applied to numbers in golden files, so that
// last-bit differences across platforms do not churn snapshots.
const goldenDigits = 4

// TraceSnapshot captures the complete trace for a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// Canonical renders the snapshot as canonical JSON.
func (s *TraceSnapshot) Canonical() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalObject())
}

// toCanonicalObject converts a TraceSnapshot to an IRObject for canonical
// JSON serialization. NaN inputs are written as the string "NaN".
func (s *TraceSnapshot) toCanonicalObject() ir.IRObject {
	trace := make(ir.IRArray, len(s.Trace))
	for i, event := range s.Trace {
		obj := ir.IRObject{
			"step":   ir.IRString(event.Step),
			"inputs": roundedObject(event.Inputs),
		}
		if len(event.Outputs) > 0 {
			obj["outputs"] = roundedObject(event.Outputs)
		}
		if len(event.Failures) > 0 {
			failures := ir.IRObject{}
			for k, v := range event.Failures {
				failures[k] = ir.IRString(v)
			}
			obj["failures"] = failures
		}
		if event.Error != "" {
			obj["error"] = ir.IRString(event.Error)
		}
		if d := event.Decision; d != nil {
			obj["decision"] = ir.IRObject{
				"value":    rounded(d.Value),
				"act":      ir.IRBool(d.Act),
				"fallback": ir.IRBool(d.Fallback),
			}
		}
		if len(event.Fired) > 0 {
			fired := make(ir.IRArray, len(event.Fired))
			for j, f := range event.Fired {
				fired[j] = ir.IRObject{
					"rule":     ir.IRString(f.Rule),
					"then":     ir.IRString(f.Output + "=" + f.Term),
					"strength": rounded(f.Strength),
				}
			}
			obj["fired"] = fired
		}
		trace[i] = obj
	}

	return ir.IRObject{
		"scenario_name": ir.IRString(s.ScenarioName),
		"trace":         trace,
	}
}

func rounded(v float64) ir.IRValue {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ir.IRString(formatNonFinite(v))
	}
	p := math.Pow(10, goldenDigits)
	return ir.IRNumber(math.Round(v*p) / p)
}

func roundedObject(m map[string]float64) ir.IRObject {
	obj := make(ir.IRObject, len(m))
	for k, v := range m {
		obj[k] = rounded(v)
	}
	return obj
}

func formatNonFinite(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case v > 0:
		return "+Inf"
	default:
		return "-Inf"
	}
}

// Snapshot renders the golden bytes of a result.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{ScenarioName: scenarioName, Trace: result.Trace}
	return snapshot.Canonical()
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}
