package ir

// Antecedent operators for ExprSpec.Op.
const (
	OpIs  = "is"
	OpAll = "all"
	OpAny = "any"
	OpNot = "not"
)

// Shape kinds for ShapeSpec.Kind.
const (
	ShapeTriangle  = "triangle"
	ShapeTrapezoid = "trapezoid"
)

// ValidOps defines allowed antecedent operators.
var ValidOps = map[string]bool{
	OpIs:  true,
	OpAll: true,
	OpAny: true,
	OpNot: true,
}

// RuleBaseSpec represents a compiled rule-base definition.
type RuleBaseSpec struct {
	Name      string         `json:"name"`
	Inputs    []VariableSpec `json:"inputs"`
	Outputs   []VariableSpec `json:"outputs"`
	Rules     []RuleSpec     `json:"rules"`
	Operators OperatorSpec   `json:"operators"`
}

// VariableSpec represents a linguistic variable with its ordered terms.
type VariableSpec struct {
	Name     string       `json:"name"`
	Universe UniverseSpec `json:"universe"`
	Terms    []TermSpec   `json:"terms"`
}

// UniverseSpec is the sampled domain of a variable.
type UniverseSpec struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// TermSpec binds a term name to a membership shape.
type TermSpec struct {
	Name  string    `json:"name"`
	Shape ShapeSpec `json:"shape"`
}

// ShapeSpec is a membership function: "triangle" (3 points) or "trapezoid" (4).
type ShapeSpec struct {
	Kind   string    `json:"kind"`
	Points []float64 `json:"points"`
}

// ExprSpec is an antecedent expression node.
//
//	{"op":"is","var":"distance","term":"pequena"}
//	{"op":"all","args":[...]}
//	{"op":"not","args":[x]}
type ExprSpec struct {
	Op   string     `json:"op"`
	Var  string     `json:"var,omitempty"`
	Term string     `json:"term,omitempty"`
	Args []ExprSpec `json:"args,omitempty"`
}

// RuleSpec represents a compiled rule (if/then).
type RuleSpec struct {
	ID   string        `json:"id"`
	If   ExprSpec      `json:"if"`
	Then ConsequentRef `json:"then"`
}

// ConsequentRef names the output term a rule implies.
type ConsequentRef struct {
	Var  string `json:"var"`
	Term string `json:"term"`
}

// OperatorSpec selects the t-norm and s-norm. Empty fields mean min/max.
type OperatorSpec struct {
	And string `json:"and,omitempty"`
	Or  string `json:"or,omitempty"`
}

// Is builds a leaf expression.
func Is(variable, term string) ExprSpec {
	return ExprSpec{Op: OpIs, Var: variable, Term: term}
}

// All builds a conjunction.
func All(args ...ExprSpec) ExprSpec {
	return ExprSpec{Op: OpAll, Args: args}
}

// Any builds a disjunction.
func Any(args ...ExprSpec) ExprSpec {
	return ExprSpec{Op: OpAny, Args: args}
}

// Not builds a complement.
func Not(arg ExprSpec) ExprSpec {
	return ExprSpec{Op: OpNot, Args: []ExprSpec{arg}}
}

// Run is the persisted header of a batch evaluation.
type Run struct {
	ID            string `json:"id"`
	RuleBaseName  string `json:"rulebase_name"`
	RuleBaseHash  string `json:"rulebase_hash"`
	EngineVersion string `json:"engine_version"`
	IRVersion     string `json:"ir_version"`
	RowCount      int64  `json:"row_count"`
}

// EvaluationRecord is one persisted row of a run. Seq is the row index.
type EvaluationRecord struct {
	ID        string             `json:"id"`
	RunID     string             `json:"run_id"`
	Seq       int64              `json:"seq"`
	Inputs    map[string]float64 `json:"inputs"`
	Outputs   map[string]float64 `json:"outputs,omitempty"`
	ErrorCode string             `json:"error_code,omitempty"`
	Label     *int               `json:"label,omitempty"`
	Decision  *bool              `json:"decision,omitempty"`
	Fallback  bool               `json:"fallback,omitempty"`
}
