// Package tools holds the built-in tool definitions. Each constructor
// returns a fully declared tool (name, parameter schema, execution policy,
// callable) ready for registration during process start.
package tools

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/dmaia/remora/internal/core/domain"
)

// maxFibonacciInput keeps a single calculation to a few minutes on modern
// hardware.
const maxFibonacciInput = 100000

// NewFibonacciTool calculates the nth Fibonacci number. Large inputs run
// long, so the policy waits a bounded five seconds before falling back to a
// pending job.
func NewFibonacciTool() *domain.Tool {
	return &domain.Tool{
		Name:        "fibonacci",
		Description: "Calculate the nth Fibonacci number.",
		Parameters: []domain.Parameter{
			{
				Name:        "n",
				Type:        "integer",
				Description: "Position in the Fibonacci sequence to calculate, starting at 1.",
				Required:    true,
			},
		},
		Policy: domain.ExecPolicy{
			SyncThreshold: 5 * time.Second,
			Cancelable:    true,
			NotifyTitle:   "Fibonacci Calculation Complete",
			NotifyMessage: "Fibonacci calculation completed for n={n}",
		},
		Run: func(_ context.Context, _ domain.JobID, params map[string]any) (map[string]any, error) {
			n, err := intParam(params, "n")
			if err != nil {
				return nil, err
			}
			if n > maxFibonacciInput {
				return nil, fmt.Errorf("input too large - please use n <= %d", maxFibonacciInput)
			}
			result, err := calculateFibonacci(n)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"n":      n,
				"result": result.String(),
			}, nil
		},
	}
}

// NewFibonacciSequenceTool generates a Fibonacci sequence of a given length.
// Generation is cheap, so the caller always waits for the full result.
func NewFibonacciSequenceTool() *domain.Tool {
	return &domain.Tool{
		Name:        "fibonacci_sequence",
		Description: "Generate a Fibonacci sequence of specified length.",
		Parameters: []domain.Parameter{
			{
				Name:        "length",
				Type:        "integer",
				Description: "Length of the Fibonacci sequence to generate.",
				Required:    true,
			},
		},
		Policy: domain.ExecPolicy{
			SyncThreshold: domain.SyncThresholdBlock,
		},
		Run: func(_ context.Context, _ domain.JobID, params map[string]any) (map[string]any, error) {
			length, err := intParam(params, "length")
			if err != nil {
				return nil, err
			}
			if length < 0 {
				return nil, fmt.Errorf("length must be a non-negative integer")
			}
			if length > 1000 {
				return nil, fmt.Errorf("length too large - please use length <= 1000")
			}
			seq := make([]string, 0, length)
			a, b := big.NewInt(0), big.NewInt(1)
			for i := 0; i < length; i++ {
				seq = append(seq, a.String())
				a, b = b, new(big.Int).Add(a, b)
			}
			return map[string]any{
				"length":   length,
				"sequence": seq,
			}, nil
		},
	}
}

// calculateFibonacci returns the nth Fibonacci number (1-indexed, fib(1) =
// fib(2) = 1).
func calculateFibonacci(n int) (*big.Int, error) {
	if n <= 0 {
		return nil, fmt.Errorf("input must be a positive integer")
	}
	if n <= 2 {
		return big.NewInt(1), nil
	}
	a, b := big.NewInt(1), big.NewInt(1)
	for i := 3; i <= n; i++ {
		a, b = b, new(big.Int).Add(a, b)
	}
	return b, nil
}

// intParam reads an integer parameter that may arrive as a JSON number.
func intParam(params map[string]any, key string) (int, error) {
	switch v := params[key].(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	case nil:
		return 0, fmt.Errorf("missing required parameter: %s", key)
	default:
		return 0, fmt.Errorf("parameter %s must be an integer", key)
	}
}
