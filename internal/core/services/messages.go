package services

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dmaia/remora/internal/core/domain"
)

// Interpolate substitutes {key} placeholders in template with values from
// ctx. Placeholders whose key is absent are left literally in the output; a
// malformed template never raises.
func Interpolate(template string, ctx map[string]any) string {
	var b strings.Builder
	for {
		open := strings.IndexByte(template, '{')
		if open < 0 {
			b.WriteString(template)
			return b.String()
		}
		end := strings.IndexByte(template[open:], '}')
		if end < 0 {
			b.WriteString(template)
			return b.String()
		}
		end += open
		b.WriteString(template[:open])
		key := template[open+1 : end]
		if v, ok := ctx[key]; ok {
			b.WriteString(fmt.Sprintf("%v", v))
		} else {
			b.WriteString(template[open : end+1])
		}
		template = template[end+1:]
	}
}

// mergedContext overlays the job result on its input so templates can
// reference either.
func mergedContext(job domain.Job) map[string]any {
	ctx := make(map[string]any, len(job.Input)+len(job.Result))
	for k, v := range job.Input {
		ctx[k] = v
	}
	for k, v := range job.Result {
		ctx[k] = v
	}
	return ctx
}

// Messages renders human-readable job status lines. Generic per-status
// templates apply to every tool; a success template registered for a
// specific tool overrides the generic one and may interpolate fields from
// the merged input+result context.
type Messages struct {
	mu      sync.RWMutex
	success map[string]string
}

func NewMessages() *Messages {
	return &Messages{
		success: make(map[string]string),
	}
}

// RegisterSuccess installs a tool-specific success template.
func (m *Messages) RegisterSuccess(toolName, template string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.success[toolName] = template
}

// Render returns the status message for a job snapshot.
func (m *Messages) Render(job domain.Job) string {
	switch job.Status {
	case domain.JobStatusPending:
		return fmt.Sprintf("Waiting to start %s job", job.ToolName)
	case domain.JobStatusRunning:
		return fmt.Sprintf("Currently running %s job", job.ToolName)
	case domain.JobStatusSuccess:
		m.mu.RLock()
		template, ok := m.success[job.ToolName]
		m.mu.RUnlock()
		if ok {
			return Interpolate(template, mergedContext(job))
		}
		return fmt.Sprintf("%s job completed successfully", job.ToolName)
	case domain.JobStatusFailed:
		return fmt.Sprintf("Job failed: %s", job.Error)
	case domain.JobStatusCancelled:
		return "Job was cancelled"
	case domain.JobStatusExpired:
		return "Job has expired"
	}
	return fmt.Sprintf("Unknown status for %s job", job.ToolName)
}
