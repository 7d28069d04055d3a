package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for algorithm migration.
const (
	DomainRuleBase   = "mamdani/rulebase/v1"
	DomainEvaluation = "mamdani/evaluation/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RuleBaseHash computes the content hash of a rule base. Two specs that
// differ only in map iteration order or string normalization hash equal.
func RuleBaseHash(spec *RuleBaseSpec) (string, error) {
	if spec == nil {
		return "", fmt.Errorf("RuleBaseHash: nil spec")
	}
	canonical, err := MarshalCanonical(spec)
	if err != nil {
		return "", fmt.Errorf("RuleBaseHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRuleBase, canonical), nil
}

// EvaluationID computes the content-addressed ID of one evaluation row.
// It is stable across replays of the same run.
func EvaluationID(runID string, seq int64, inputs map[string]float64) (string, error) {
	obj := IRObject{
		"run_id": IRString(runID),
		"seq":    IRNumber(seq),
		"inputs": NumberObject(inputs),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("EvaluationID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEvaluation, canonical), nil
}

// MustRuleBaseHash is like RuleBaseHash but panics on error.
// Use only in tests or when the spec is known to be valid.
func MustRuleBaseHash(spec *RuleBaseSpec) string {
	h, err := RuleBaseHash(spec)
	if err != nil {
		panic(err)
	}
	return h
}
