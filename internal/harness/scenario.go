package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/mamdani/internal/engine"
)

// Scenario defines an inference test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Spec is a CUE directory or file holding the rule base, relative to the
	// scenario file. Empty selects the built-in overtake rule base.
	Spec string `yaml:"spec,omitempty"`

	// RuleBase picks one rule base when Spec declares several.
	RuleBase string `yaml:"rulebase,omitempty"`

	// FallbackRule appends the catch-all rule to the built-in rule base.
	FallbackRule bool `yaml:"fallback_rule,omitempty"`

	// Operators overrides the rule base's t-norm and s-norm.
	Operators *OperatorsClause `yaml:"operators,omitempty"`

	// Policy turns the crisp output into a decision on every step.
	// If nil, no decision is made.
	Policy *PolicyClause `yaml:"policy,omitempty"`

	// Flow contains the input sets to evaluate, in order.
	Flow []Step `yaml:"flow"`

	// Assertions check properties of the whole trace.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// OperatorsClause names fuzzy operators.
type OperatorsClause struct {
	And string `yaml:"and,omitempty"`
	Or  string `yaml:"or,omitempty"`
}

// PolicyClause mirrors engine.Policy.
type PolicyClause struct {
	Output         string  `yaml:"output"`
	Threshold      float64 `yaml:"threshold"`
	OnNoActivation string  `yaml:"on_no_activation,omitempty"`
	Default        float64 `yaml:"default,omitempty"`
}

// Policy converts the clause.
func (p PolicyClause) Policy() engine.Policy {
	mode := p.OnNoActivation
	if mode == "" {
		mode = engine.OnNoActivationError
	}
	return engine.Policy{Output: p.Output, Threshold: p.Threshold, OnNoActivation: mode, Default: p.Default}
}

// Step is one evaluation.
type Step struct {
	// Name identifies the step in assertions and the trace.
	Name string `yaml:"name"`

	// Inputs are the crisp inputs. YAML .nan is accepted.
	Inputs map[string]float64 `yaml:"inputs"`

	// Expect checks the result. If nil, the step only adds to the trace.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected result of a step.
type ExpectClause struct {
	// Outputs bounds crisp output values. Subset match.
	Outputs map[string]Bound `yaml:"outputs,omitempty"`

	// Failures maps an output to its expected per-output error code.
	Failures map[string]string `yaml:"failures,omitempty"`

	// Error is the expected call-level error code, e.g. missing_input.
	Error string `yaml:"error,omitempty"`

	// Decision checks the policy outcome.
	Decision *DecisionClause `yaml:"decision,omitempty"`
}

// Bound constrains one number. Unset fields are not checked.
type Bound struct {
	GT        *float64 `yaml:"gt,omitempty"`
	LT        *float64 `yaml:"lt,omitempty"`
	Approx    *float64 `yaml:"approx,omitempty"`
	Tolerance float64  `yaml:"tolerance,omitempty"`
}

// DefaultTolerance applies to approx when no tolerance is given.
const DefaultTolerance = 1e-6

// DecisionClause checks a decision.
type DecisionClause struct {
	Act      *bool `yaml:"act,omitempty"`
	Fallback *bool `yaml:"fallback,omitempty"`
}

// Assertion validates the trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "rule_fired": Rule has non-zero strength in Step
	// - "rule_not_fired": Rule has zero strength in Step
	// - "output_increasing": Output strictly increases across Steps
	// - "output_decreasing": Output strictly decreases across Steps
	Type string `yaml:"type"`

	Step   string   `yaml:"step,omitempty"`
	Rule   string   `yaml:"rule,omitempty"`
	Output string   `yaml:"output,omitempty"`
	Steps  []string `yaml:"steps,omitempty"`
}

// Assertion type constants.
const (
	AssertRuleFired        = "rule_fired"
	AssertRuleNotFired     = "rule_not_fired"
	AssertOutputIncreasing = "output_increasing"
	AssertOutputDecreasing = "output_decreasing"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative Spec path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Spec != "" && !filepath.IsAbs(scenario.Spec) {
		scenario.Spec = filepath.Join(filepath.Dir(path), scenario.Spec)
		if _, err := os.Stat(scenario.Spec); err != nil {
			return nil, fmt.Errorf("invalid scenario: spec not found: %s", scenario.Spec)
		}
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML without touching the filesystem.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	out := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		out = append(out, s)
	}
	return out, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if s.FallbackRule && s.Spec != "" {
		return fmt.Errorf("fallback_rule applies to the built-in rule base only")
	}
	if s.Policy != nil && s.Policy.Output == "" {
		return fmt.Errorf("policy.output is required")
	}

	steps := make(map[string]bool, len(s.Flow))
	for i, step := range s.Flow {
		if step.Name == "" {
			return fmt.Errorf("flow[%d]: name is required", i)
		}
		if steps[step.Name] {
			return fmt.Errorf("flow[%d]: duplicate step name %q", i, step.Name)
		}
		steps[step.Name] = true
		if step.Inputs == nil {
			return fmt.Errorf("flow[%d]: inputs is required (use empty map if no inputs)", i)
		}
		if step.Expect != nil && step.Expect.Decision != nil && s.Policy == nil {
			return fmt.Errorf("flow[%d].expect: decision needs a policy", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, steps); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion, steps map[string]bool) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertRuleFired, AssertRuleNotFired:
		if a.Rule == "" {
			return fmt.Errorf("assertions[%d]: rule is required for %s", index, a.Type)
		}
		if !steps[a.Step] {
			return fmt.Errorf("assertions[%d]: unknown step %q", index, a.Step)
		}
	case AssertOutputIncreasing, AssertOutputDecreasing:
		if a.Output == "" {
			return fmt.Errorf("assertions[%d]: output is required for %s", index, a.Type)
		}
		if len(a.Steps) < 2 {
			return fmt.Errorf("assertions[%d]: %s needs at least two steps", index, a.Type)
		}
		for _, st := range a.Steps {
			if !steps[st] {
				return fmt.Errorf("assertions[%d]: unknown step %q", index, st)
			}
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
