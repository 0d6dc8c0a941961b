package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/dmaia/remora/internal/core/domain"
	"github.com/dmaia/remora/internal/core/ports"
)

const defaultPollInterval = 100 * time.Millisecond

// controlKeys are stripped from the request parameters before they reach
// the tool callable; they steer job bookkeeping, not the tool.
var controlKeys = map[string]struct{}{
	"owner":                {},
	"conversation_id":      {},
	"notify_on_completion": {},
}

// EngineConfig tunes the execution engine.
type EngineConfig struct {
	// PollInterval is the bounded-wait polling step. Defaults to 100ms.
	PollInterval time.Duration
	// MaxConcurrentJobs caps how many callables run at once. Zero or
	// negative preserves unbounded fire-and-forget execution.
	MaxConcurrentJobs int64
}

// Engine owns the invocation lifecycle: it creates the job, launches the
// callable in the background and applies the tool's sync-threshold policy
// to decide how long the caller blocks.
type Engine struct {
	logger     *slog.Logger
	store      *JobStore
	registry   *domain.ToolRegistry
	bus        *EventBus
	dispatcher *NotificationDispatcher
	messages   *Messages
	journal    ports.Journal // optional
	sem        *semaphore.Weighted
	poll       time.Duration
}

func NewEngine(
	logger *slog.Logger,
	store *JobStore,
	registry *domain.ToolRegistry,
	bus *EventBus,
	dispatcher *NotificationDispatcher,
	messages *Messages,
	journal ports.Journal,
	cfg EngineConfig,
) *Engine {
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	var sem *semaphore.Weighted
	if cfg.MaxConcurrentJobs > 0 {
		sem = semaphore.NewWeighted(cfg.MaxConcurrentJobs)
	}
	return &Engine{
		logger:     logger,
		store:      store,
		registry:   registry,
		bus:        bus,
		dispatcher: dispatcher,
		messages:   messages,
		journal:    journal,
		sem:        sem,
		poll:       poll,
	}
}

// Invoke runs the named tool with the raw request parameters. It returns
// domain.ErrToolNotFound before any job is created when the name is
// unregistered; every other outcome is reported inside the envelope.
func (e *Engine) Invoke(ctx context.Context, toolName string, params map[string]any) (domain.Envelope, error) {
	tool, ok := e.registry.Lookup(toolName)
	if !ok {
		return domain.Envelope{}, fmt.Errorf("%w: %s", domain.ErrToolNotFound, toolName)
	}

	if params == nil {
		params = map[string]any{}
	}
	notify := tool.Policy.Notify
	if v, ok := params["notify_on_completion"].(bool); ok {
		notify = v
	}

	job := e.store.Create(CreateParams{
		ToolName:       toolName,
		Input:          params,
		Owner:          stringParam(params, "owner"),
		ConversationID: stringParam(params, "conversation_id"),
		Cancelable:     tool.Policy.Cancelable,
		Notify:         notify,
		NotifyTitle:    tool.Policy.NotifyTitle,
		NotifyMessage:  tool.Policy.NotifyMessage,
	})
	e.logger.Info("job launched", "job_id", job.ID, "tool", toolName)

	done := make(chan struct{})
	go e.execute(job.ID, tool, callableParams(params), done)

	switch {
	case tool.Policy.SyncThreshold < 0:
		return e.awaitCompletion(job.ID, done), nil
	case tool.Policy.SyncThreshold == 0:
		return e.envelope(job), nil
	default:
		return e.boundedWait(job.ID, tool.Policy.SyncThreshold), nil
	}
}

// awaitCompletion blocks until the background task settles the job; the
// caller never observes a pending state.
func (e *Engine) awaitCompletion(id domain.JobID, done <-chan struct{}) domain.Envelope {
	<-done
	job, err := e.store.Get(id)
	if err != nil {
		// Store entry vanished mid-flight (sweep or delete-all).
		return domain.Envelope{Status: domain.JobStatusExpired, Terminal: true, JobID: id, Input: map[string]any{}, Result: map[string]any{}}
	}
	return e.envelope(job)
}

// boundedWait marks the job running, then polls the store until the job is
// terminal or the threshold elapses. A fast callable is returned without
// padding; a slow one falls back to the standardized pending envelope while
// it keeps running in the background.
func (e *Engine) boundedWait(id domain.JobID, threshold time.Duration) domain.Envelope {
	if job, applied, _ := e.store.Update(id, domain.JobStatusRunning, nil, ""); applied {
		e.publish(job)
	}

	deadline := time.Now().Add(threshold)
	ticker := time.NewTicker(e.poll)
	defer ticker.Stop()

	for {
		job, err := e.store.Get(id)
		if err == nil && job.Status.Terminal() {
			return e.envelope(job)
		}
		if !time.Now().Before(deadline) {
			return e.pendingFallback(job, err)
		}
		<-ticker.C
	}
}

// pendingFallback is the envelope handed back when the threshold expires:
// the async contract reports pending even though the store already holds
// the job as running.
func (e *Engine) pendingFallback(job domain.Job, err error) domain.Envelope {
	if err != nil {
		return domain.Envelope{Status: domain.JobStatusPending, Input: map[string]any{}, Result: map[string]any{}}
	}
	env := e.envelope(job)
	env.Status = domain.JobStatusPending
	env.Terminal = false
	return env
}

// execute is the background task wrapping one callable run. Any error or
// panic becomes a failed job; the engine process never terminates on a
// single job's behalf.
func (e *Engine) execute(id domain.JobID, tool *domain.Tool, params map[string]any, done chan<- struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			e.finish(id, domain.JobStatusFailed, nil, fmt.Sprintf("panic: %v", r))
		}
	}()

	if e.sem != nil {
		if err := e.sem.Acquire(context.Background(), 1); err != nil {
			e.finish(id, domain.JobStatusFailed, nil, err.Error())
			return
		}
		defer e.sem.Release(1)
	}

	// Cancelled while queued behind the concurrency cap: skip the run.
	if job, err := e.store.Get(id); err != nil || job.Status.Terminal() {
		return
	}
	if job, applied, _ := e.store.Update(id, domain.JobStatusRunning, nil, ""); applied {
		e.publish(job)
	}

	result, err := tool.Run(context.Background(), id, params)
	if err != nil {
		e.finish(id, domain.JobStatusFailed, nil, err.Error())
		return
	}
	e.finish(id, domain.JobStatusSuccess, result, "")
}

// finish commits a terminal transition. When the update does not apply the
// job already settled terminally (usually a concurrent cancel) and the late
// outcome is discarded.
func (e *Engine) finish(id domain.JobID, status domain.JobStatus, result map[string]any, errMsg string) {
	job, applied, err := e.store.Update(id, status, result, errMsg)
	if err != nil {
		e.logger.Debug("job vanished before completion", "job_id", id)
		return
	}
	if !applied {
		e.logger.Debug("late result ignored, job already terminal", "job_id", id, "status", job.Status)
		return
	}
	e.logger.Info("job finished", "job_id", id, "tool", job.ToolName, "status", status)
	e.publish(job)
	e.dispatcher.Dispatch(job)
	e.record(job)
}

// Status returns the standardized envelope for a job.
func (e *Engine) Status(id domain.JobID) (domain.Envelope, error) {
	job, err := e.store.Get(id)
	if err != nil {
		return domain.Envelope{}, err
	}
	return e.envelope(job), nil
}

// Cancel marks a job cancelled if it is cancelable and still in flight.
// The callable is not interrupted; the terminal-state-wins rule guarantees
// its eventual outcome cannot overwrite the cancellation.
func (e *Engine) Cancel(id domain.JobID) (domain.Envelope, bool) {
	job, ok := e.store.Cancel(id)
	if !ok {
		return domain.Envelope{}, false
	}
	e.logger.Info("job cancelled", "job_id", id, "tool", job.ToolName)
	e.publish(job)
	e.record(job)
	return e.envelope(job), true
}

func (e *Engine) envelope(job domain.Job) domain.Envelope {
	return domain.NewEnvelope(job, e.messages.Render(job))
}

func (e *Engine) publish(job domain.Job) {
	e.bus.Publish(Event{
		JobID:     job.ID,
		ToolName:  job.ToolName,
		Status:    job.Status,
		Message:   e.messages.Render(job),
		Timestamp: job.UpdatedAt,
	})
}

// Sweep removes every job older than maxAge from the store and journals the
// ones this sweep expired; jobs that finished earlier were already recorded.
// Returns the number of jobs removed.
func (e *Engine) Sweep(maxAge time.Duration) int {
	removed := e.store.Sweep(maxAge)
	for _, job := range removed {
		if job.Status == domain.JobStatusExpired {
			e.publish(job)
			e.record(job)
		}
	}
	return len(removed)
}

// record appends a terminal job to the journal when one is configured.
func (e *Engine) record(job domain.Job) {
	if e.journal == nil || !job.Status.Terminal() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.journal.Record(ctx, job); err != nil {
		e.logger.Warn("failed to journal job", "job_id", job.ID, "error", err)
	}
}

// callableParams strips the notification-control keys from the request
// parameters before they are handed to the tool.
func callableParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		if _, control := controlKeys[k]; control {
			continue
		}
		out[k] = v
	}
	return out
}

func stringParam(params map[string]any, key string) string {
	v, _ := params[key].(string)
	return v
}
