package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"

	"github.com/roach88/mamdani/internal/ir"
)

// marshalValues converts a name -> value map to canonical JSON TEXT.
// Keys are sorted and numbers use the shortest round-trip form, so equal maps
// always produce equal bytes.
func marshalValues(m map[string]float64) (string, error) {
	if m == nil {
		m = map[string]float64{}
	}
	for k, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "", fmt.Errorf("marshal values: %s is not finite", k)
		}
	}
	data, err := ir.MarshalCanonical(ir.NumberObject(m))
	if err != nil {
		return "", fmt.Errorf("marshal values: %w", err)
	}
	return string(data), nil
}

// unmarshalValues parses canonical JSON TEXT back into a map.
func unmarshalValues(data string) (map[string]float64, error) {
	out := map[string]float64{}
	if data == "" || data == "{}" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("unmarshal values: %w", err)
	}
	return out, nil
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullBool(p *bool) sql.NullBool {
	if p == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *p, Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func boolPtr(n sql.NullBool) *bool {
	if !n.Valid {
		return nil
	}
	v := n.Bool
	return &v
}
