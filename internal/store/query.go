package store

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/mamdani/internal/ir"
)

// Filterable evaluation columns.
const (
	FieldErrorCode = "error_code"
	FieldDecision  = "decision"
	FieldLabel     = "label"
	FieldFallback  = "fallback"
)

// Fields lists the columns a Predicate may name, sorted.
var Fields = []string{FieldDecision, FieldErrorCode, FieldFallback, FieldLabel}

// Predicate is one column = value condition on evaluations.
// Value is a string for error_code, a bool for decision and fallback, and an
// int for label.
type Predicate struct {
	Field string
	Value any
}

// ParsePredicate parses "field=value". Booleans accept true/false/1/0.
func ParsePredicate(s string) (Predicate, error) {
	field, raw, ok := strings.Cut(s, "=")
	field = strings.TrimSpace(field)
	raw = strings.TrimSpace(raw)
	if !ok || field == "" {
		return Predicate{}, fmt.Errorf("%q: want field=value", s)
	}

	switch field {
	case FieldErrorCode:
		return Predicate{Field: field, Value: raw}, nil
	case FieldDecision, FieldFallback:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return Predicate{}, fmt.Errorf("%q: %s must be a boolean", s, field)
		}
		return Predicate{Field: field, Value: b}, nil
	case FieldLabel:
		l, err := strconv.Atoi(raw)
		if err != nil || (l != 0 && l != 1) {
			return Predicate{}, fmt.Errorf("%q: label must be 0 or 1", s)
		}
		return Predicate{Field: field, Value: l}, nil
	default:
		return Predicate{}, fmt.Errorf("%q: unknown field %s (want one of %s)", s, field, strings.Join(Fields, ", "))
	}
}

// CompileEvaluationQuery builds the SELECT of a run's evaluations matching
// every predicate. Values are always bound as parameters and rows always
// come back in seq order.
func CompileEvaluationQuery(runID string, preds ...Predicate) (string, []any, error) {
	where := []string{"run_id = ?"}
	params := []any{runID}

	for _, p := range preds {
		if !slices.Contains(Fields, p.Field) {
			return "", nil, fmt.Errorf("unknown field %q", p.Field)
		}
		param, err := predicateParam(p)
		if err != nil {
			return "", nil, err
		}
		where = append(where, p.Field+" = ?")
		params = append(params, param)
	}

	sql := `SELECT id, run_id, seq, inputs, outputs, error_code, label, decision, fallback
		FROM evaluations
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY seq ASC, id COLLATE BINARY ASC`
	return sql, params, nil
}

// predicateParam converts a predicate value into its column representation.
// decision and fallback are stored as 0/1.
func predicateParam(p Predicate) (any, error) {
	switch p.Field {
	case FieldErrorCode:
		s, ok := p.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%s: want string, got %T", p.Field, p.Value)
		}
		return s, nil
	case FieldDecision, FieldFallback:
		b, ok := p.Value.(bool)
		if !ok {
			return nil, fmt.Errorf("%s: want bool, got %T", p.Field, p.Value)
		}
		if b {
			return 1, nil
		}
		return 0, nil
	default:
		l, ok := p.Value.(int)
		if !ok {
			return nil, fmt.Errorf("%s: want int, got %T", p.Field, p.Value)
		}
		return l, nil
	}
}

// QueryEvaluations returns the evaluations of a run matching every
// predicate, ordered by seq. Without predicates it equals ReadEvaluations.
func (s *Store) QueryEvaluations(ctx context.Context, runID string, preds ...Predicate) ([]ir.EvaluationRecord, error) {
	query, params, err := CompileEvaluationQuery(runID, preds...)
	if err != nil {
		return nil, fmt.Errorf("compile query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close()

	recs := []ir.EvaluationRecord{}
	for rows.Next() {
		rec, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evaluations: %w", err)
	}
	return recs, nil
}
