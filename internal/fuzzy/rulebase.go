package fuzzy

import (
	"fmt"
	"sort"
)

// RuleBase is a validated, immutable set of input variables, output variables
// and rules. It holds no per-call state and may be shared by any number of
// concurrent evaluations.
type RuleBase struct {
	name        string
	inputs      map[string]*LinguisticVariable
	inputOrder  []string
	outputs     map[string]*LinguisticVariable
	outputOrder []string
	rules       []Rule
	referenced  []string
	byOutput    map[string][]int
	ops         Operators
}

// Option configures a RuleBase at construction.
type Option func(*RuleBase)

// WithOperators replaces the default Zadeh operators.
func WithOperators(ops Operators) Option {
	return func(rb *RuleBase) {
		if ops.And != nil && ops.Or != nil {
			rb.ops = ops
		}
	}
}

// NewRuleBase validates every variable and rule reference and returns the
// rule base. All problems are reported together in a *ConfigError.
//
// The rules slice is copied; later changes by the caller have no effect.
func NewRuleBase(name string, inputs, outputs []*LinguisticVariable, rules []Rule, opts ...Option) (*RuleBase, error) {
	rb := &RuleBase{
		name:     name,
		inputs:   make(map[string]*LinguisticVariable, len(inputs)),
		outputs:  make(map[string]*LinguisticVariable, len(outputs)),
		byOutput: make(map[string][]int, len(outputs)),
		ops:      Zadeh,
	}
	for _, opt := range opts {
		opt(rb)
	}

	var issues []error
	seen := make(map[string]bool, len(inputs)+len(outputs))
	add := func(v *LinguisticVariable, into map[string]*LinguisticVariable, order *[]string, role string) {
		if v == nil {
			issues = append(issues, fmt.Errorf("%w: nil %s variable", ErrUnknownVariable, role))
			return
		}
		if seen[v.Name()] {
			issues = append(issues, fmt.Errorf("%w: variable %q", ErrDuplicateName, v.Name()))
			return
		}
		seen[v.Name()] = true
		into[v.Name()] = v
		*order = append(*order, v.Name())
	}
	for _, v := range inputs {
		add(v, rb.inputs, &rb.inputOrder, "input")
	}
	for _, v := range outputs {
		add(v, rb.outputs, &rb.outputOrder, "output")
	}

	if len(rules) == 0 {
		issues = append(issues, ErrNoRules)
	}

	referenced := make(map[string]bool)
	ruleIDs := make(map[string]bool, len(rules))
	rb.rules = make([]Rule, len(rules))
	copy(rb.rules, rules)

	for i := range rb.rules {
		r := &rb.rules[i]
		if r.ID == "" {
			r.ID = fmt.Sprintf("rule-%d", i+1)
		}
		if ruleIDs[r.ID] {
			issues = append(issues, fmt.Errorf("%w: rule %q", ErrDuplicateName, r.ID))
		}
		ruleIDs[r.ID] = true

		err := Walk(r.Antecedent, func(l Leaf) {
			v, ok := rb.inputs[l.Variable]
			if !ok {
				issues = append(issues, fmt.Errorf("rule %q: %w: input %q", r.ID, ErrUnknownVariable, l.Variable))
				return
			}
			referenced[l.Variable] = true
			if !v.HasTerm(l.Term) {
				issues = append(issues, fmt.Errorf("rule %q: %w: %s.%s", r.ID, ErrUnknownTerm, l.Variable, l.Term))
			}
		})
		if err != nil {
			issues = append(issues, fmt.Errorf("rule %q: %w", r.ID, err))
		}

		out, ok := rb.outputs[r.Consequent.Variable]
		switch {
		case !ok:
			issues = append(issues, fmt.Errorf("rule %q: %w: output %q", r.ID, ErrUnknownVariable, r.Consequent.Variable))
		case !out.HasTerm(r.Consequent.Term):
			issues = append(issues, fmt.Errorf("rule %q: %w: %s", r.ID, ErrUnknownTerm, r.Consequent))
		default:
			rb.byOutput[out.Name()] = append(rb.byOutput[out.Name()], i)
		}
	}

	for _, name := range rb.outputOrder {
		if len(rb.byOutput[name]) == 0 {
			issues = append(issues, fmt.Errorf("%w: %q", ErrUnreferencedOutput, name))
		}
	}

	if len(issues) > 0 {
		return nil, &ConfigError{RuleBase: name, Issues: issues}
	}

	rb.referenced = make([]string, 0, len(referenced))
	for name := range referenced {
		rb.referenced = append(rb.referenced, name)
	}
	sort.Strings(rb.referenced)
	return rb, nil
}

// Name returns the rule base name.
func (rb *RuleBase) Name() string { return rb.name }

// Operators returns the configured t-norm/s-norm pair.
func (rb *RuleBase) Operators() Operators { return rb.ops }

// Rules returns a copy of the rules in declaration order.
func (rb *RuleBase) Rules() []Rule {
	out := make([]Rule, len(rb.rules))
	copy(out, rb.rules)
	return out
}

// Len returns the number of rules.
func (rb *RuleBase) Len() int { return len(rb.rules) }

// InputNames returns input variable names in declaration order.
func (rb *RuleBase) InputNames() []string { return append([]string(nil), rb.inputOrder...) }

// OutputNames returns output variable names in declaration order.
func (rb *RuleBase) OutputNames() []string { return append([]string(nil), rb.outputOrder...) }

// ReferencedInputs returns, sorted, every input named by some rule leaf.
// Evaluate requires a value for each of them.
func (rb *RuleBase) ReferencedInputs() []string { return append([]string(nil), rb.referenced...) }

// Input looks up an input variable.
func (rb *RuleBase) Input(name string) (*LinguisticVariable, bool) {
	v, ok := rb.inputs[name]
	return v, ok
}

// Output looks up an output variable.
func (rb *RuleBase) Output(name string) (*LinguisticVariable, bool) {
	v, ok := rb.outputs[name]
	return v, ok
}

// Variable looks up an input or output variable.
func (rb *RuleBase) Variable(name string) (*LinguisticVariable, bool) {
	if v, ok := rb.inputs[name]; ok {
		return v, true
	}
	return rb.Output(name)
}

// RulesFor returns the indices of rules whose consequent targets output.
func (rb *RuleBase) RulesFor(output string) []int {
	return append([]int(nil), rb.byOutput[output]...)
}

// Strength computes the firing strength of rule i under ops.
func (rb *RuleBase) Strength(i int, inputs map[string]float64, ops Operators) (float64, error) {
	return Eval(rb.rules[i].Antecedent, rb.inputs, inputs, ops)
}

// OutputSamples returns the shared defuzzification grid of an output.
// The slice must not be modified.
func (rb *RuleBase) OutputSamples(output string) []float64 {
	v, ok := rb.outputs[output]
	if !ok {
		return nil
	}
	return v.samples()
}
