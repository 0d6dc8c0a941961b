package services

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmaia/remora/internal/core/domain"
)

func TestNewSweeper_RejectsInvalidSchedule(t *testing.T) {
	fx := newEngineFixture(t, EngineConfig{})
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	_, err := NewSweeper(logger, fx.engine, "not a cron expr", time.Hour)
	assert.Error(t, err)
}

func TestNewSweeper_AcceptsStandardAndSecondsSchedules(t *testing.T) {
	fx := newEngineFixture(t, EngineConfig{})
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	_, err := NewSweeper(logger, fx.engine, "*/5 * * * *", time.Hour)
	assert.NoError(t, err)

	_, err = NewSweeper(logger, fx.engine, "*/1 * * * * *", time.Hour)
	assert.NoError(t, err)
}

func TestSweeper_RemovesStaleJobsOnSchedule(t *testing.T) {
	fx := newEngineFixture(t, EngineConfig{})
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	registerTool(t, fx, "quick", domain.ExecPolicy{SyncThreshold: domain.SyncThresholdBlock},
		func(_ context.Context, _ domain.JobID, _ map[string]any) (map[string]any, error) {
			return nil, nil
		})
	env, err := fx.engine.Invoke(context.Background(), "quick", nil)
	require.NoError(t, err)

	// Every-second schedule with zero max age sweeps everything.
	sweeper, err := NewSweeper(logger, fx.engine, "* * * * * *", 0)
	require.NoError(t, err)
	sweeper.Start()
	defer sweeper.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := fx.store.Get(env.JobID); err != nil {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("scheduled sweep never removed the job")
}
