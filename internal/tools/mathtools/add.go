package mathtools

import (
	"context"
	"fmt"

	"github.com/jaimegago/toolrouter/internal/llm"
	"github.com/jaimegago/toolrouter/internal/remote"
)

// ErrOverflow is returned when an integer result does not fit in an int64
var ErrOverflow = remote.ErrOverflow

// AddTool adds two integers
type AddTool struct{}

// NewAddTool creates the add tool
func NewAddTool() *AddTool {
	return &AddTool{}
}

func (t *AddTool) Name() string {
	return "add"
}

func (t *AddTool) Description() string {
	return "Adds a and b."
}

func (t *AddTool) Parameters() llm.ParameterSchema {
	return pairSchema("integer", "int")
}

func (t *AddTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	var in intPair
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	sum := in.A + in.B
	if (in.A > 0 && in.B > 0 && sum < 0) || (in.A < 0 && in.B < 0 && sum >= 0) {
		return nil, fmt.Errorf("%w: %d + %d", ErrOverflow, in.A, in.B)
	}
	return sum, nil
}
