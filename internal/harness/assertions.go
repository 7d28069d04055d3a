package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, event := range e.Trace {
		fired := make([]string, len(event.Fired))
		for j, f := range event.Fired {
			fired[j] = fmt.Sprintf("%s=%.4f", f.Rule, f.Strength)
		}
		fmt.Fprintf(&buf, "  [%d] %s outputs=%v fired=[%s]\n", i+1, event.Step, event.Outputs, strings.Join(fired, " "))
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion) error {
	switch a.Type {
	case AssertRuleFired:
		return assertRuleFired(result, a, true)
	case AssertRuleNotFired:
		return assertRuleFired(result, a, false)
	case AssertOutputIncreasing:
		return assertOutputOrder(result, a, 1)
	case AssertOutputDecreasing:
		return assertOutputOrder(result, a, -1)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertRuleFired(result *Result, a Assertion, want bool) error {
	event, ok := result.Event(a.Step)
	if !ok {
		return fmt.Errorf("unknown step %q", a.Step)
	}
	if event.HasFired(a.Rule) == want {
		return nil
	}
	expected, actual := "fired", "did not fire"
	if !want {
		expected, actual = "not fired", "fired"
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("rule %s %s in step %s", a.Rule, expected, a.Step),
		Actual:   actual,
		Trace:    result.Trace,
	}
}

// assertOutputOrder checks that output moves strictly in direction dir
// (+1 or -1) across the listed steps.
func assertOutputOrder(result *Result, a Assertion, dir float64) error {
	values := make([]float64, len(a.Steps))
	for i, st := range a.Steps {
		event, ok := result.Event(st)
		if !ok {
			return fmt.Errorf("unknown step %q", st)
		}
		v, ok := event.Outputs[a.Output]
		if !ok {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s has a value in step %s", a.Output, st),
				Actual:   "no value",
				Trace:    result.Trace,
			}
		}
		values[i] = v
	}
	for i := 1; i < len(values); i++ {
		if (values[i]-values[i-1])*dir <= 0 {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s strictly %s across %v", a.Output, direction(dir), a.Steps),
				Actual:   fmt.Sprintf("%v", values),
				Trace:    result.Trace,
			}
		}
	}
	return nil
}

func direction(dir float64) string {
	if dir > 0 {
		return "increasing"
	}
	return "decreasing"
}
