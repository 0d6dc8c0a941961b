package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dmaia/remora/internal/core/domain"
)

// handleJobEvents streams job status transitions as Server-Sent Events.
// The connection stays open until the client disconnects or the job
// reaches a terminal state.
func (s *Server) handleJobEvents(w http.ResponseWriter, r *http.Request, id domain.JobID) {
	job, err := s.store.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch, unsub := s.bus.Subscribe(id)
	defer unsub()

	// Emit the current state first so the client never misses transitions
	// that happened before it connected.
	s.writeEvent(w, flusher, map[string]any{
		"job_id":    job.ID,
		"tool_name": job.ToolName,
		"status":    job.Status,
		"message":   s.messages.Render(job),
		"timestamp": job.UpdatedAt,
	})
	if job.Status.Terminal() {
		return
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			s.writeEvent(w, flusher, evt)
			if evt.Status.Terminal() {
				return
			}
		}
	}
}

func (s *Server) writeEvent(w http.ResponseWriter, flusher http.Flusher, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to encode event", "error", err)
		return
	}
	fmt.Fprintf(w, "event: status\ndata: %s\n\n", data)
	flusher.Flush()
}
