package fuzzy

import "fmt"

// Consequent names the output term a rule concludes.
type Consequent struct {
	Variable string
	Term     string
}

func (c Consequent) String() string {
	return c.Variable + " is " + c.Term
}

// Rule pairs an antecedent with one consequent. Rules are values and are
// never mutated after being added to a RuleBase.
type Rule struct {
	ID         string
	Antecedent Expr
	Consequent Consequent
}

// NewRule is shorthand for a rule concluding "output is term".
func NewRule(id string, antecedent Expr, output, term string) Rule {
	return Rule{ID: id, Antecedent: antecedent, Consequent: Consequent{Variable: output, Term: term}}
}

func (r Rule) String() string {
	return fmt.Sprintf("%s: if %s then %s", r.ID, str(r.Antecedent), r.Consequent)
}
