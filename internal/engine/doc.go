// Package engine implements Mamdani inference over a fuzzy.RuleBase.
//
// EVALUATION FLOW:
//
//  1. Validate the call: every input referenced by a rule leaf must be
//     present and finite (ErrMissingInput, ErrInvalidInput). A failed call
//     returns no partial result.
//  2. Compute each rule's firing strength from its antecedent tree.
//  3. Implication: clip the consequent term at the firing strength (min).
//  4. Aggregation: pointwise max over every rule targeting the same output,
//     sampled on that output's fixed universe grid.
//  5. Defuzzification: centroid sum(x*mu)/sum(mu). Zero mass is reported as
//     ErrNoActivation for that output only.
//
// CONCURRENCY:
//
// An Engine holds only read-only data built in New. Evaluate allocates its
// own buffers, so one Engine may be shared by any number of goroutines.
//
// DETERMINISM:
//
// Sums are accumulated in grid order and aggregation uses max, so the result
// does not depend on rule order and repeated calls are bit-identical.
package engine
