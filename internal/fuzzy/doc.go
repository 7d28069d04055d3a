// Package fuzzy provides the building blocks of a Mamdani rule base.
//
// The package is leaf-first:
//   - MembershipFunction: triangular and trapezoidal piecewise-linear shapes
//   - LinguisticVariable: a named universe of discourse with ordered terms
//   - Expr: the antecedent tree (Leaf, AndExpr, OrExpr, NotExpr) and Eval
//   - Rule and RuleBase: rules validated once against their variables
//
// Everything is immutable after construction. Configuration mistakes are
// reported by NewRuleBase as a *ConfigError; evaluation problems are reported
// per call as *EvalError. Inference itself lives in package engine.
package fuzzy
