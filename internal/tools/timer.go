package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/dmaia/remora/internal/core/domain"
	"github.com/dmaia/remora/internal/core/services"
)

// timerTick is how often a running timer checks for cancellation.
const timerTick = 100 * time.Millisecond

// NewTimerTool starts a countdown timer. The timer cooperates with
// cancellation by polling its own job record between ticks and stopping
// early when the job has been cancelled.
func NewTimerTool(store *services.JobStore) *domain.Tool {
	return &domain.Tool{
		Name:        "timer",
		Description: "Starts a countdown timer for a specified duration. The timer runs in the background and notifies when complete.",
		Parameters: []domain.Parameter{
			{
				Name:        "duration_seconds",
				Type:        "number",
				Description: "The duration in seconds. For example, 300 for 5 minutes.",
				Required:    true,
			},
		},
		Policy: domain.ExecPolicy{
			SyncThreshold: 5 * time.Second,
			Cancelable:    true,
			NotifyTitle:   "Timer Complete",
			NotifyMessage: "Timer completed after {duration_seconds} seconds",
		},
		Run: func(ctx context.Context, jobID domain.JobID, params map[string]any) (map[string]any, error) {
			seconds, err := floatParam(params, "duration_seconds")
			if err != nil {
				return nil, err
			}
			if seconds <= 0 {
				return nil, fmt.Errorf("duration must be a positive number")
			}

			deadline := time.Now().Add(time.Duration(seconds * float64(time.Second)))
			ticker := time.NewTicker(timerTick)
			defer ticker.Stop()

			for time.Now().Before(deadline) {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-ticker.C:
					if job, err := store.Get(jobID); err != nil || job.Status == domain.JobStatusCancelled {
						// Outcome is discarded either way; stop sleeping.
						return nil, fmt.Errorf("timer stopped early")
					}
				}
			}

			return map[string]any{
				"duration_seconds": seconds,
				"message":          fmt.Sprintf("Timer completed after %g seconds", seconds),
			}, nil
		},
	}
}

// floatParam reads a numeric parameter that may arrive as a JSON number.
func floatParam(params map[string]any, key string) (float64, error) {
	switch v := params[key].(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case nil:
		return 0, fmt.Errorf("missing required parameter: %s", key)
	default:
		return 0, fmt.Errorf("parameter %s must be a number", key)
	}
}
