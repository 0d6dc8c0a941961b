package domain

import (
	"errors"
	"time"
)

type JobID string

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusSuccess   JobStatus = "success"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
	JobStatusExpired   JobStatus = "expired"
)

// Terminal reports whether no further transitions are permitted from s.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSuccess, JobStatusFailed, JobStatusCancelled, JobStatusExpired:
		return true
	}
	return false
}

// Job is the record of one tool invocation attempt. The store owns all
// records; other components reference jobs by ID and receive copies.
type Job struct {
	ID             JobID          `json:"job_id"`
	ToolName       string         `json:"tool_name"`
	Input          map[string]any `json:"input"`
	Status         JobStatus      `json:"status"`
	Result         map[string]any `json:"result,omitempty"`
	Error          string         `json:"error,omitempty"`
	Owner          string         `json:"owner,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Cancelable     bool           `json:"cancelable"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	// Notification fields, fixed at creation from the tool's policy
	// and the request's notify_on_completion key.
	NotifyOnCompletion bool   `json:"notify_on_completion,omitempty"`
	NotifyTitle        string `json:"notify_title,omitempty"`
	NotifyMessage      string `json:"notify_message,omitempty"`
}

var (
	ErrJobNotFound  = errors.New("job not found")
	ErrToolNotFound = errors.New("tool not found")
)
