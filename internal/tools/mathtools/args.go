// Package mathtools provides the arithmetic tools offered to the model.
package mathtools

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/jaimegago/toolrouter/internal/llm"
	"github.com/jaimegago/toolrouter/internal/tools"
)

type intPair struct {
	A int64 `mapstructure:"a"`
	B int64 `mapstructure:"b"`
}

type floatPair struct {
	A float64 `mapstructure:"a"`
	B float64 `mapstructure:"b"`
}

// decodeArgs decodes the model's free-form argument map into out.
// Numbers arrive as float64 from JSON and are converted to the field type.
func decodeArgs(args map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "mapstructure",
		Result:  out,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(args); err != nil {
		return fmt.Errorf("%w: %w", tools.ErrInvalidArguments, err)
	}
	return nil
}

func pairSchema(typ, what string) llm.ParameterSchema {
	return llm.ParameterSchema{
		Type: "object",
		Properties: map[string]llm.Property{
			"a": {Type: typ, Description: "First " + what},
			"b": {Type: typ, Description: "Second " + what},
		},
		Required: []string{"a", "b"},
	}
}
