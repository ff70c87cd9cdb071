package mathtools

import (
	"context"
	"errors"

	"github.com/jaimegago/toolrouter/internal/llm"
)

// ErrDivisionByZero is returned by divide when b is zero
var ErrDivisionByZero = errors.New("division by zero")

// DivideTool divides two numbers
type DivideTool struct{}

// NewDivideTool creates the divide tool
func NewDivideTool() *DivideTool {
	return &DivideTool{}
}

func (t *DivideTool) Name() string {
	return "divide"
}

func (t *DivideTool) Description() string {
	return "Divide a and b."
}

func (t *DivideTool) Parameters() llm.ParameterSchema {
	return pairSchema("number", "number")
}

func (t *DivideTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	var in floatPair
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.B == 0 {
		return nil, ErrDivisionByZero
	}
	return in.A / in.B, nil
}
