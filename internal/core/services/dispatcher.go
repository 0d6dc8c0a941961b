package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmaia/remora/internal/core/domain"
	"github.com/dmaia/remora/internal/core/ports"
)

const notifyTimeout = 5 * time.Second

// NotificationDispatcher formats and emits a user-facing message when a job
// first reaches success or failed. The engine invokes it exactly once per
// job, right after the terminal store update commits; it never fires for
// cancelled or expired jobs.
type NotificationDispatcher struct {
	logger   *slog.Logger
	notifier ports.Notifier
}

func NewNotificationDispatcher(logger *slog.Logger, notifier ports.Notifier) *NotificationDispatcher {
	return &NotificationDispatcher{
		logger:   logger,
		notifier: notifier,
	}
}

// Dispatch builds title and message from the job's templates using the
// merged input+result context and hands them to the notifier. Delivery
// failure is logged and swallowed; job state is already settled.
func (d *NotificationDispatcher) Dispatch(job domain.Job) {
	if d.notifier == nil || !job.NotifyOnCompletion {
		return
	}
	if job.Status != domain.JobStatusSuccess && job.Status != domain.JobStatusFailed {
		return
	}

	tctx := mergedContext(job)
	title := job.NotifyTitle
	if title == "" {
		title = job.ToolName
	}
	message := job.NotifyMessage
	if message == "" || job.Status == domain.JobStatusFailed {
		message = genericNotifyMessage(job)
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := d.notifier.Notify(ctx, Interpolate(title, tctx), Interpolate(message, tctx)); err != nil {
		d.logger.Warn("notification delivery failed", "job_id", job.ID, "error", err)
	}
}

func genericNotifyMessage(job domain.Job) string {
	if job.Status == domain.JobStatusFailed {
		return "Job failed: " + job.Error
	}
	return job.ToolName + " job completed successfully"
}
