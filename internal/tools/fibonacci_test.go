package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmaia/remora/internal/core/domain"
)

func TestFibonacciTool(t *testing.T) {
	tool := NewFibonacciTool()
	assert.Equal(t, "fibonacci", tool.Name)
	assert.True(t, tool.Policy.Cancelable)

	result, err := tool.Run(context.Background(), "ab123", map[string]any{"n": float64(10)})
	require.NoError(t, err)
	assert.Equal(t, 10, result["n"])
	assert.Equal(t, "55", result["result"])
}

func TestFibonacciTool_BaseCases(t *testing.T) {
	tool := NewFibonacciTool()

	for _, n := range []int{1, 2} {
		result, err := tool.Run(context.Background(), "ab123", map[string]any{"n": n})
		require.NoError(t, err)
		assert.Equal(t, "1", result["result"])
	}
}

func TestFibonacciTool_RejectsBadInput(t *testing.T) {
	tool := NewFibonacciTool()

	_, err := tool.Run(context.Background(), "ab123", map[string]any{})
	assert.ErrorContains(t, err, "missing required parameter")

	_, err = tool.Run(context.Background(), "ab123", map[string]any{"n": "ten"})
	assert.ErrorContains(t, err, "must be an integer")

	_, err = tool.Run(context.Background(), "ab123", map[string]any{"n": 0})
	assert.ErrorContains(t, err, "positive integer")

	_, err = tool.Run(context.Background(), "ab123", map[string]any{"n": maxFibonacciInput + 1})
	assert.ErrorContains(t, err, "input too large")
}

func TestFibonacciTool_LargeValueExact(t *testing.T) {
	tool := NewFibonacciTool()

	// fib(100) overflows int64; big.Int keeps it exact.
	result, err := tool.Run(context.Background(), "ab123", map[string]any{"n": 100})
	require.NoError(t, err)
	assert.Equal(t, "354224848179261915075", result["result"])
}

func TestFibonacciSequenceTool(t *testing.T) {
	tool := NewFibonacciSequenceTool()
	assert.Equal(t, domain.SyncThresholdBlock, tool.Policy.SyncThreshold)

	result, err := tool.Run(context.Background(), "ab123", map[string]any{"length": float64(7)})
	require.NoError(t, err)
	assert.Equal(t, 7, result["length"])
	assert.Equal(t, []string{"0", "1", "1", "2", "3", "5", "8"}, result["sequence"])
}

func TestFibonacciSequenceTool_Bounds(t *testing.T) {
	tool := NewFibonacciSequenceTool()

	result, err := tool.Run(context.Background(), "ab123", map[string]any{"length": 0})
	require.NoError(t, err)
	assert.Empty(t, result["sequence"])

	_, err = tool.Run(context.Background(), "ab123", map[string]any{"length": -1})
	assert.ErrorContains(t, err, "non-negative")

	_, err = tool.Run(context.Background(), "ab123", map[string]any{"length": 1001})
	assert.ErrorContains(t, err, "length too large")
}
