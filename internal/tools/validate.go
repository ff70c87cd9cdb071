package tools

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/jaimegago/toolrouter/internal/llm"
)

// ValidateArgs checks args against schema: required fields must be present and
// primitive values must match their declared type. Unknown keys are ignored.
func ValidateArgs(schema llm.ParameterSchema, args map[string]any) error {
	for _, field := range schema.Required {
		if _, ok := args[field]; !ok {
			return fmt.Errorf("%w: missing required field %q", ErrInvalidArguments, field)
		}
	}

	for key, value := range args {
		prop, ok := schema.Properties[key]
		if !ok || prop.Type == "" {
			continue
		}
		if !matchesType(value, prop.Type) {
			return fmt.Errorf("%w: field %q must be %s, got %T", ErrInvalidArguments, key, prop.Type, value)
		}
	}

	return nil
}

func matchesType(value any, expected string) bool {
	switch expected {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		return isNumber(value)
	case "integer":
		return isInteger(value)
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		switch value.(type) {
		case []any, []string, []int, []float64:
			return true
		}
		return false
	case "object":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}

func isNumber(value any) bool {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
	case float64:
		return !math.IsNaN(v) && !math.IsInf(v, 0)
	case json.Number:
		_, err := v.Float64()
		return err == nil
	default:
		return false
	}
}

func isInteger(value any) bool {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		return isWhole(float64(v))
	case float64:
		return isWhole(v)
	case json.Number:
		_, err := v.Int64()
		return err == nil
	default:
		return false
	}
}

// isWhole accepts JSON numbers such as 3.0 that decode as float64.
// 2^63 is the first float64 above the int64 range.
func isWhole(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f == math.Trunc(f) &&
		f >= math.MinInt64 && f < 1<<63
}
