package engine

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/mamdani/internal/fuzzy"
)

// Engine evaluates a RuleBase. It is safe for concurrent use.
type Engine struct {
	rb      *fuzzy.RuleBase
	rules   []fuzzy.Rule
	ops     fuzzy.Operators
	logger  *zap.Logger
	metrics *Metrics

	// tables[output][term] is the term's membership sampled on the output grid.
	tables map[string]map[string][]float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Default: zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics records evaluations in m.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithOperators overrides the rule base's t-norm/s-norm pair.
func WithOperators(ops fuzzy.Operators) Option {
	return func(e *Engine) {
		if ops.And != nil && ops.Or != nil {
			e.ops = ops
		}
	}
}

// New builds an engine for rb, which must be non-nil. Output membership
// tables are sampled once here and shared by every evaluation.
func New(rb *fuzzy.RuleBase, opts ...Option) *Engine {
	e := &Engine{
		rb:     rb,
		rules:  rb.Rules(),
		ops:    rb.Operators(),
		logger: zap.NewNop(),
		tables: make(map[string]map[string][]float64),
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, name := range rb.OutputNames() {
		out, _ := rb.Output(name)
		xs := rb.OutputSamples(name)
		terms := make(map[string][]float64)
		for _, t := range out.Terms() {
			ys := make([]float64, len(xs))
			for j, x := range xs {
				ys[j] = t.MF.Degree(x)
			}
			terms[t.Name] = ys
		}
		e.tables[name] = terms
	}

	e.logger.Info("engine ready",
		zap.String("rulebase", rb.Name()),
		zap.Int("rules", len(e.rules)),
		zap.Strings("outputs", rb.OutputNames()),
		zap.String("operators", e.ops.Name),
	)
	return e
}

// RuleBase returns the rule base being evaluated.
func (e *Engine) RuleBase() *fuzzy.RuleBase {
	return e.rb
}

// Firing is the firing strength of one rule in one evaluation.
type Firing struct {
	RuleID   string  `json:"rule_id"`
	Output   string  `json:"output"`
	Term     string  `json:"term"`
	Strength float64 `json:"strength"`
}

// Result holds the outcome of one evaluation. Every output appears in
// exactly one of Outputs and Failures.
type Result struct {
	Outputs  map[string]float64
	Failures map[string]error
	Firing   []Firing
}

// Output returns the crisp value of an output, or its per-output error.
func (r *Result) Output(name string) (float64, error) {
	if err, ok := r.Failures[name]; ok {
		return 0, err
	}
	v, ok := r.Outputs[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", fuzzy.ErrUnknownVariable, name)
	}
	return v, nil
}

// OK reports whether every output was defuzzified.
func (r *Result) OK() bool {
	return len(r.Failures) == 0
}

// Evaluate runs inference for one set of crisp inputs.
//
// Call-level failures return a nil Result: ErrMissingInput for an absent
// input, ErrInvalidInput for a NaN or infinite one.
// An output with zero aggregated mass is reported in Result.Failures with
// ErrNoActivation; the other outputs are still computed.
func (e *Engine) Evaluate(inputs map[string]float64) (*Result, error) {
	start := time.Now()

	if err := e.checkInputs(inputs); err != nil {
		e.metrics.observe(resultRejected, time.Since(start))
		return nil, err
	}

	strengths, err := e.fire(inputs)
	if err != nil {
		e.metrics.observe(resultRejected, time.Since(start))
		return nil, err
	}

	res := &Result{
		Outputs:  make(map[string]float64),
		Failures: make(map[string]error),
		Firing:   make([]Firing, len(e.rules)),
	}
	for i, r := range e.rules {
		res.Firing[i] = Firing{
			RuleID:   r.ID,
			Output:   r.Consequent.Variable,
			Term:     r.Consequent.Term,
			Strength: strengths[i],
		}
	}

	for _, name := range e.rb.OutputNames() {
		xs := e.rb.OutputSamples(name)
		mu := e.aggregate(name, strengths)
		value, ok := Centroid(xs, mu)
		if !ok {
			res.Failures[name] = &fuzzy.EvalError{Kind: fuzzy.ErrNoActivation, Output: name}
			e.metrics.noActivation(name)
			e.logger.Debug("no activation",
				zap.String("rulebase", e.rb.Name()),
				zap.String("output", name),
			)
			continue
		}
		res.Outputs[name] = value
	}

	status := resultOK
	if !res.OK() {
		status = resultNoActivation
	}
	e.metrics.observe(status, time.Since(start))
	return res, nil
}

// Aggregate returns the output grid and the aggregated membership over it,
// without defuzzifying. Useful for diagnostics and plotting.
func (e *Engine) Aggregate(output string, inputs map[string]float64) (xs, mu []float64, err error) {
	if _, ok := e.rb.Output(output); !ok {
		return nil, nil, fmt.Errorf("%w: output %q", fuzzy.ErrUnknownVariable, output)
	}
	if err := e.checkInputs(inputs); err != nil {
		return nil, nil, err
	}
	strengths, err := e.fire(inputs)
	if err != nil {
		return nil, nil, err
	}
	xs = append([]float64(nil), e.rb.OutputSamples(output)...)
	return xs, e.aggregate(output, strengths), nil
}

// checkInputs verifies every referenced input is present and finite.
// ReferencedInputs is sorted, so the reported variable is deterministic.
func (e *Engine) checkInputs(inputs map[string]float64) error {
	for _, name := range e.rb.ReferencedInputs() {
		x, ok := inputs[name]
		if !ok {
			return &fuzzy.EvalError{Kind: fuzzy.ErrMissingInput, Variable: name}
		}
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return &fuzzy.EvalError{Kind: fuzzy.ErrInvalidInput, Variable: name}
		}
	}
	return nil
}

func (e *Engine) fire(inputs map[string]float64) ([]float64, error) {
	strengths := make([]float64, len(e.rules))
	for i := range e.rules {
		s, err := e.rb.Strength(i, inputs, e.ops)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", e.rules[i].ID, err)
		}
		strengths[i] = s
	}
	return strengths, nil
}

// aggregate applies min-implication per rule and max-aggregation across rules.
func (e *Engine) aggregate(output string, strengths []float64) []float64 {
	tables := e.tables[output]
	mu := make([]float64, len(e.rb.OutputSamples(output)))
	for _, i := range e.rb.RulesFor(output) {
		s := strengths[i]
		if s <= 0 {
			continue
		}
		ys := tables[e.rules[i].Consequent.Term]
		for j, y := range ys {
			if c := math.Min(s, y); c > mu[j] {
				mu[j] = c
			}
		}
	}
	return mu
}

// Centroid returns sum(x*mu)/sum(mu). ok is false when the total mass is zero,
// in which case the centroid is undefined.
func Centroid(xs, mu []float64) (value float64, ok bool) {
	var num, den float64
	for i, x := range xs {
		num += x * mu[i]
		den += mu[i]
	}
	if den == 0 {
		return 0, false
	}
	return num / den, true
}
