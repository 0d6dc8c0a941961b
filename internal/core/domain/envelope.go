package domain

import "time"

// Envelope is the standardized result shape returned by every invocation and
// every status poll. Result is never null: an empty mapping stands in when a
// job produced nothing (yet).
type Envelope struct {
	ToolName      string         `json:"tool_name"`
	Status        JobStatus      `json:"status"`
	Terminal      bool           `json:"terminal"`
	JobID         JobID          `json:"job_id,omitempty"`
	Input         map[string]any `json:"input"`
	Result        map[string]any `json:"result"`
	Error         string         `json:"error,omitempty"`
	StatusMessage string         `json:"status_message,omitempty"`
	CreatedAt     string         `json:"created_at,omitempty"`
	UpdatedAt     string         `json:"updated_at,omitempty"`
}

// NewEnvelope builds the envelope for a job snapshot. statusMessage may be
// empty when the caller has no message catalog at hand.
func NewEnvelope(job Job, statusMessage string) Envelope {
	result := job.Result
	if result == nil {
		result = map[string]any{}
	}
	input := job.Input
	if input == nil {
		input = map[string]any{}
	}
	return Envelope{
		ToolName:      job.ToolName,
		Status:        job.Status,
		Terminal:      job.Status.Terminal(),
		JobID:         job.ID,
		Input:         input,
		Result:        result,
		Error:         job.Error,
		StatusMessage: statusMessage,
		CreatedAt:     job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     job.UpdatedAt.Format(time.RFC3339),
	}
}
