package mathtools

import (
	"context"
	"errors"
	"fmt"

	"github.com/jaimegago/toolrouter/internal/llm"
	"github.com/jaimegago/toolrouter/internal/remote"
	"github.com/jaimegago/toolrouter/internal/tools"
)

// MultiplyTool multiplies two integers through a remote.Multiplier, which may
// compute in-process or call a deployed worker.
type MultiplyTool struct {
	multiplier remote.Multiplier
}

// NewMultiplyTool creates the multiply tool. A nil multiplier computes locally.
func NewMultiplyTool(m remote.Multiplier) *MultiplyTool {
	if m == nil {
		m = remote.Local{}
	}
	return &MultiplyTool{multiplier: m}
}

func (t *MultiplyTool) Name() string {
	return "multiply"
}

func (t *MultiplyTool) Description() string {
	return "Multiply a and b."
}

func (t *MultiplyTool) Parameters() llm.ParameterSchema {
	return pairSchema("integer", "int")
}

func (t *MultiplyTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	var in intPair
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}

	product, err := t.multiplier.Multiply(ctx, in.A, in.B)
	if err != nil {
		if errors.Is(err, remote.ErrUnavailable) {
			return nil, fmt.Errorf("%w: %w", tools.ErrRemoteUnavailable, err)
		}
		return nil, err
	}
	return product, nil
}
