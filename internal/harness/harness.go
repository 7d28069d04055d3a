package harness

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/roach88/mamdani/internal/compiler"
	"github.com/roach88/mamdani/internal/engine"
	"github.com/roach88/mamdani/internal/fuzzy"
	"github.com/roach88/mamdani/internal/ir"
	"github.com/roach88/mamdani/internal/overtake"
)

// Harness is the test execution engine for one scenario.
type Harness struct {
	engine *engine.Engine
	policy *engine.Policy
	logger *zap.Logger
}

// Option configures Run.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger routes engine logs to l.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
//  1. Resolve the rule base (CUE spec or built-in) and validate it
//  2. Build a fresh engine with the scenario's operators
//  3. Evaluate each flow step and check its expect clause
//  4. Evaluate assertions over the trace
//
// An error means the scenario could not run; failed expectations are
// reported through Result.Pass and Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	spec, err := resolveSpec(scenario)
	if err != nil {
		return nil, err
	}
	if verrs := compiler.Validate(spec); len(verrs) > 0 {
		msgs := make([]string, len(verrs))
		for i, ve := range verrs {
			msgs[i] = ve.Error()
		}
		return nil, fmt.Errorf("rule base %s is invalid:\n  %s", spec.Name, strings.Join(msgs, "\n  "))
	}
	if scenario.Operators != nil {
		spec.Operators = ir.OperatorSpec{And: scenario.Operators.And, Or: scenario.Operators.Or}
	}

	rb, err := compiler.Build(spec)
	if err != nil {
		return nil, fmt.Errorf("build rule base: %w", err)
	}
	hash, err := ir.RuleBaseHash(spec)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		engine: engine.New(rb, engine.WithLogger(o.logger)),
		logger: o.logger,
	}
	if scenario.Policy != nil {
		p := scenario.Policy.Policy()
		h.policy = &p
	}

	result := NewResult()
	result.RuleBaseHash = hash
	for _, step := range scenario.Flow {
		event := h.executeStep(step)
		result.Trace = append(result.Trace, event)
		if step.Expect != nil {
			for _, msg := range checkExpect(step.Name, *step.Expect, event) {
				result.AddError(msg)
			}
		}
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func resolveSpec(s *Scenario) (*ir.RuleBaseSpec, error) {
	if s.Spec == "" {
		if s.FallbackRule {
			return overtake.SpecWithFallback(), nil
		}
		return overtake.Spec(), nil
	}
	spec, err := compiler.LoadRuleBase(s.Spec, s.RuleBase)
	if err != nil {
		return nil, fmt.Errorf("load spec: %w", err)
	}
	return spec, nil
}

func (h *Harness) executeStep(step Step) TraceEvent {
	event := TraceEvent{Step: step.Name, Inputs: step.Inputs}

	res, err := h.engine.Evaluate(step.Inputs)
	if err != nil {
		event.Error = fuzzy.ErrorCode(err)
		return event
	}

	if len(res.Outputs) > 0 {
		event.Outputs = res.Outputs
	}
	if len(res.Failures) > 0 {
		event.Failures = make(map[string]string, len(res.Failures))
		for name, ferr := range res.Failures {
			event.Failures[name] = fuzzy.ErrorCode(ferr)
		}
	}
	for _, f := range res.Firing {
		if f.Strength > 0 {
			event.Fired = append(event.Fired, FiredRule{Rule: f.RuleID, Output: f.Output, Term: f.Term, Strength: f.Strength})
		}
	}

	if h.policy != nil {
		d, err := h.policy.Decide(res)
		if err != nil {
			h.logger.Debug("no decision", zap.String("step", step.Name), zap.Error(err))
		} else {
			event.Decision = &d
		}
	}
	return event
}

// checkExpect compares one event against its expect clause.
func checkExpect(step string, want ExpectClause, got TraceEvent) []string {
	var errs []string
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf("step %s: ", step)+fmt.Sprintf(format, args...))
	}

	if got.Error != want.Error {
		if want.Error == "" {
			fail("unexpected error %s", got.Error)
		} else {
			fail("expected error %s, got %q", want.Error, got.Error)
		}
		return errs
	}

	for _, name := range sortedKeys(want.Outputs) {
		v, ok := got.Outputs[name]
		if !ok {
			fail("output %s has no value (failure %q)", name, got.Failures[name])
			continue
		}
		if msg := want.Outputs[name].check(v); msg != "" {
			fail("output %s = %.6f: %s", name, v, msg)
		}
	}

	for _, name := range sortedKeys(want.Failures) {
		if code := got.Failures[name]; code != want.Failures[name] {
			fail("output %s: expected failure %s, got %q", name, want.Failures[name], code)
		}
	}

	if d := want.Decision; d != nil {
		if got.Decision == nil {
			fail("expected a decision, got none")
			return errs
		}
		if d.Act != nil && *d.Act != got.Decision.Act {
			fail("expected act=%v, got %v (value %.6f)", *d.Act, got.Decision.Act, got.Decision.Value)
		}
		if d.Fallback != nil && *d.Fallback != got.Decision.Fallback {
			fail("expected fallback=%v, got %v", *d.Fallback, got.Decision.Fallback)
		}
	}
	return errs
}

// check returns "" when v satisfies b.
func (b Bound) check(v float64) string {
	var problems []string
	if b.GT != nil && !(v > *b.GT) {
		problems = append(problems, fmt.Sprintf("want > %v", *b.GT))
	}
	if b.LT != nil && !(v < *b.LT) {
		problems = append(problems, fmt.Sprintf("want < %v", *b.LT))
	}
	if b.Approx != nil {
		tol := b.Tolerance
		if tol == 0 {
			tol = DefaultTolerance
		}
		if math.Abs(v-*b.Approx) > tol {
			problems = append(problems, fmt.Sprintf("want %v +/- %v", *b.Approx, tol))
		}
	}
	return strings.Join(problems, ", ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
