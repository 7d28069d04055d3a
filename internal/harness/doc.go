// Package harness runs YAML inference scenarios against a rule base.
//
// A scenario names a rule base (a CUE directory, or the built-in overtake
// rule base when omitted), feeds it a flow of input sets, and checks each
// result against bounds on the crisp outputs, expected error codes and the
// binary decision. Assertions then check properties across the whole trace,
// such as which rules fired or how an output moves from step to step.
//
// # Scenario Format
//
//	name: close_and_fast
//	description: "Short gap, high relative speed, everything permits"
//	spec: ../specs/overtake        # optional, relative to the scenario file
//	flow:
//	  - name: go
//	    inputs: {distance: 5, relative_speed: 50, permission: 1, road: 1, visibility: 1}
//	    expect:
//	      outputs:
//	        overtake_decision: {gt: 0.7, approx: 0.836667, tolerance: 0.000001}
//	      decision: {act: true}
//	assertions:
//	  - type: rule_fired
//	    step: go
//	    rule: close_fast
//
// # Golden Files
//
// RunWithGolden writes the trace as canonical JSON, numbers rounded to four
// decimals, to testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
