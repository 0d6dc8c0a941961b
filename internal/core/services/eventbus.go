package services

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dmaia/remora/internal/core/domain"
)

// Event describes one committed job status transition.
type Event struct {
	JobID     domain.JobID     `json:"job_id"`
	ToolName  string           `json:"tool_name"`
	Status    domain.JobStatus `json:"status"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
}

// EventBus fans job status transitions out to subscribers. The engine
// publishes after a store update commits; observers (SSE streams, tests)
// subscribe per job id.
type EventBus struct {
	logger *slog.Logger
	mu     sync.RWMutex
	subs   map[domain.JobID][]chan Event
}

func NewEventBus(logger *slog.Logger) *EventBus {
	return &EventBus{
		logger: logger,
		subs:   make(map[domain.JobID][]chan Event),
	}
}

// Subscribe returns a channel receiving events for one job and an
// unsubscribe function that closes it.
func (b *EventBus) Subscribe(jobID domain.JobID) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, 16) // buffered so publishers never block
	b.subs[jobID] = append(b.subs[jobID], ch)

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subscribers := b.subs[jobID]
		for i, sub := range subscribers {
			if sub == ch {
				close(ch)
				b.subs[jobID] = append(subscribers[:i], subscribers[i+1:]...)
				break
			}
		}
		if len(b.subs[jobID]) == 0 {
			delete(b.subs, jobID)
		}
	}
	return ch, unsub
}

// Publish delivers an event to all subscribers of the job. A full
// subscriber channel drops the event rather than blocking the engine.
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[e.JobID] {
		select {
		case ch <- e:
		default:
			b.logger.Warn("event bus channel full, dropping event", "job_id", e.JobID)
		}
	}
}
