// Package remote lets a tool run either in-process or on a separately
// deployed worker, behind the same Multiplier interface.
package remote

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrUnavailable is returned when the worker cannot be reached, times out or
// answers with a non-success status.
var ErrUnavailable = errors.New("multiply worker unavailable")

// ErrOverflow is returned when a product does not fit in an int64.
var ErrOverflow = errors.New("integer overflow")

// Multiplier computes the product of two integers.
type Multiplier interface {
	Multiply(ctx context.Context, a, b int64) (int64, error)
}

// Local multiplies in-process.
type Local struct{}

// Multiply implements Multiplier
func (Local) Multiply(ctx context.Context, a, b int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if mulOverflows(a, b) {
		return 0, fmt.Errorf("%w: %d * %d", ErrOverflow, a, b)
	}
	return a * b, nil
}

func mulOverflows(a, b int64) bool {
	if a == 0 || b == 0 {
		return false
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return true
	}
	return (a*b)/b != a
}

// MultiplyRequest is the worker request body
type MultiplyRequest struct {
	A int64 `json:"a"`
	B int64 `json:"b"`
}

// MultiplyResponse is the worker response body
type MultiplyResponse struct {
	Product int64 `json:"product"`
}

// errorResponse is returned by the worker on failure
type errorResponse struct {
	Error string `json:"error"`
}
