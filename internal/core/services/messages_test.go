package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmaia/remora/internal/core/domain"
)

func TestInterpolate(t *testing.T) {
	ctx := map[string]any{"n": 10, "result": "55"}

	assert.Equal(t, "fib(10) = 55", Interpolate("fib({n}) = {result}", ctx))
	assert.Equal(t, "no placeholders", Interpolate("no placeholders", ctx))
	assert.Equal(t, "", Interpolate("", ctx))
}

func TestInterpolate_MissingKeyStaysLiteral(t *testing.T) {
	out := Interpolate("value is {missing} and {n}", map[string]any{"n": 1})
	assert.Equal(t, "value is {missing} and 1", out)
}

func TestInterpolate_UnclosedBrace(t *testing.T) {
	out := Interpolate("broken {n template", map[string]any{"n": 1})
	assert.Equal(t, "broken {n template", out)
}

func TestMessages_GenericTemplates(t *testing.T) {
	m := NewMessages()

	cases := []struct {
		job  domain.Job
		want string
	}{
		{domain.Job{ToolName: "fibonacci", Status: domain.JobStatusPending}, "Waiting to start fibonacci job"},
		{domain.Job{ToolName: "fibonacci", Status: domain.JobStatusRunning}, "Currently running fibonacci job"},
		{domain.Job{ToolName: "fibonacci", Status: domain.JobStatusSuccess}, "fibonacci job completed successfully"},
		{domain.Job{ToolName: "timer", Status: domain.JobStatusFailed, Error: "boom"}, "Job failed: boom"},
		{domain.Job{ToolName: "timer", Status: domain.JobStatusCancelled}, "Job was cancelled"},
		{domain.Job{ToolName: "timer", Status: domain.JobStatusExpired}, "Job has expired"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, m.Render(tc.job))
	}
}

func TestMessages_SuccessOverride(t *testing.T) {
	m := NewMessages()
	m.RegisterSuccess("fibonacci", "Fibonacci calculation completed. The result is {result}")

	job := domain.Job{
		ToolName: "fibonacci",
		Status:   domain.JobStatusSuccess,
		Input:    map[string]any{"n": 10},
		Result:   map[string]any{"result": "55"},
	}
	assert.Equal(t, "Fibonacci calculation completed. The result is 55", m.Render(job))

	// The override is per tool; other tools keep the generic line.
	other := domain.Job{ToolName: "timer", Status: domain.JobStatusSuccess}
	assert.Equal(t, "timer job completed successfully", m.Render(other))
}

func TestMessages_ResultOverridesInput(t *testing.T) {
	m := NewMessages()
	m.RegisterSuccess("echo", "value: {v}")

	job := domain.Job{
		ToolName: "echo",
		Status:   domain.JobStatusSuccess,
		Input:    map[string]any{"v": "in"},
		Result:   map[string]any{"v": "out"},
	}
	assert.Equal(t, "value: out", m.Render(job))
}
