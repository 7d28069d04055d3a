package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"unicode/utf16"
)

// IRValue is a sealed interface representing constrained value types.
// Only IRString, IRNumber, IRBool, IRArray, and IRObject implement this.
// There is no null.
type IRValue interface {
	irValue()
}

// IRString represents a string value in the IR.
type IRString string

func (IRString) irValue() {}

// IRNumber represents a finite float64.
type IRNumber float64

func (IRNumber) irValue() {}

// IRBool represents a boolean value in the IR.
type IRBool bool

func (IRBool) irValue() {}

// IRArray represents an array of IRValue elements.
type IRArray []IRValue

func (IRArray) irValue() {}

// IRObject represents a map of string keys to IRValue elements.
// Use SortedKeys() for deterministic iteration.
type IRObject map[string]IRValue

func (IRObject) irValue() {}

// NumberObject converts a name → value map, as used for crisp inputs and
// outputs, into an IRObject.
func NumberObject(m map[string]float64) IRObject {
	obj := make(IRObject, len(m))
	for k, v := range m {
		obj[k] = IRNumber(v)
	}
	return obj
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings compares UTF-8 bytes, which orders differently.
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	for i := 0; i < len(a16) && i < len(b16); i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// ToIRValue converts v into an IRValue. Go structs go through their JSON
// encoding, so struct tags decide the keys.
func ToIRValue(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is forbidden")
	case IRValue:
		return val, nil
	case string:
		return IRString(val), nil
	case bool:
		return IRBool(val), nil
	case float64:
		return number(val)
	case float32:
		return number(float64(val))
	case int:
		return IRNumber(val), nil
	case int64:
		return IRNumber(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %q: %w", val, err)
		}
		return number(f)
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			e, err := ToIRValue(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = e
		}
		return arr, nil
	case map[string]any:
		obj := make(IRObject, len(val))
		for k, elem := range val {
			e, err := ToIRValue(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = e
		}
		return obj, nil
	case map[string]float64:
		for k, f := range val {
			if _, err := number(f); err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
		}
		return NumberObject(val), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("unsupported type %T: %w", v, err)
		}
		return UnmarshalIRValue(data)
	}
}

// UnmarshalIRValue decodes JSON into an IRValue. Null is rejected.
func UnmarshalIRValue(data []byte) (IRValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return ToIRValue(raw)
}

func number(f float64) (IRValue, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite number %v", f)
	}
	return IRNumber(f), nil
}
