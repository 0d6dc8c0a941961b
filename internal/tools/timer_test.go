package tools

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmaia/remora/internal/core/services"
)

func newTimerStore(t *testing.T) *services.JobStore {
	t.Helper()
	return services.NewJobStore(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
}

func TestTimerTool_Completes(t *testing.T) {
	store := newTimerStore(t)
	tool := NewTimerTool(store)
	job := store.Create(services.CreateParams{ToolName: "timer", Cancelable: true})

	result, err := tool.Run(context.Background(), job.ID, map[string]any{"duration_seconds": 0.2})
	require.NoError(t, err)
	assert.Equal(t, 0.2, result["duration_seconds"])
	assert.Equal(t, "Timer completed after 0.2 seconds", result["message"])
}

func TestTimerTool_RejectsBadDuration(t *testing.T) {
	store := newTimerStore(t)
	tool := NewTimerTool(store)

	_, err := tool.Run(context.Background(), "ab123", map[string]any{})
	assert.ErrorContains(t, err, "missing required parameter")

	_, err = tool.Run(context.Background(), "ab123", map[string]any{"duration_seconds": 0})
	assert.ErrorContains(t, err, "positive number")

	_, err = tool.Run(context.Background(), "ab123", map[string]any{"duration_seconds": "soon"})
	assert.ErrorContains(t, err, "must be a number")
}

func TestTimerTool_StopsEarlyWhenCancelled(t *testing.T) {
	store := newTimerStore(t)
	tool := NewTimerTool(store)
	job := store.Create(services.CreateParams{ToolName: "timer", Cancelable: true})

	errCh := make(chan error, 1)
	go func() {
		_, err := tool.Run(context.Background(), job.ID, map[string]any{"duration_seconds": float64(30)})
		errCh <- err
	}()

	time.Sleep(150 * time.Millisecond)
	_, ok := store.Cancel(job.ID)
	require.True(t, ok)

	select {
	case err := <-errCh:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timer kept running after cancellation")
	}
}

func TestTimerTool_StopsOnContextCancel(t *testing.T) {
	store := newTimerStore(t)
	tool := NewTimerTool(store)
	job := store.Create(services.CreateParams{ToolName: "timer"})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := tool.Run(ctx, job.ID, map[string]any{"duration_seconds": float64(30)})
		errCh <- err
	}()

	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("timer ignored context cancellation")
	}
}

func TestTimerTool_Declaration(t *testing.T) {
	tool := NewTimerTool(newTimerStore(t))
	assert.Equal(t, "timer", tool.Name)
	assert.True(t, tool.Policy.Cancelable)
	assert.Equal(t, 5*time.Second, tool.Policy.SyncThreshold)
	require.Len(t, tool.Parameters, 1)
	assert.Equal(t, "duration_seconds", tool.Parameters[0].Name)
}
