package harness

import "github.com/roach88/mamdani/internal/engine"

// FiredRule is a rule with non-zero strength in one step.
type FiredRule struct {
	Rule     string  `json:"rule"`
	Output   string  `json:"output"`
	Term     string  `json:"term"`
	Strength float64 `json:"strength"`
}

// TraceEvent records one evaluated step.
type TraceEvent struct {
	Step     string             `json:"step"`
	Inputs   map[string]float64 `json:"inputs"`
	Outputs  map[string]float64 `json:"outputs,omitempty"`
	Failures map[string]string  `json:"failures,omitempty"`
	Error    string             `json:"error,omitempty"`
	Decision *engine.Decision   `json:"decision,omitempty"`
	Fired    []FiredRule        `json:"fired,omitempty"`
}

// HasFired reports whether rule fired in this step.
func (e TraceEvent) HasFired(rule string) bool {
	for _, f := range e.Fired {
		if f.Rule == rule {
			return true
		}
	}
	return false
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Trace has one event per flow step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// RuleBaseHash identifies the rule base the scenario ran against.
	RuleBaseHash string `json:"rulebase_hash"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Event returns the trace event of the named step.
func (r *Result) Event(step string) (TraceEvent, bool) {
	for _, e := range r.Trace {
		if e.Step == step {
			return e, true
		}
	}
	return TraceEvent{}, false
}
