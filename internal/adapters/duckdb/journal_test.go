package duckdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmaia/remora/internal/core/domain"
)

func TestJournal_RecordAndList(t *testing.T) {
	journal, err := NewJournal(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer journal.Close()

	ctx := context.Background()

	first := domain.Job{
		ID:             "ab123",
		ToolName:       "fibonacci",
		Status:         domain.JobStatusSuccess,
		Input:          map[string]any{"n": float64(10)},
		Result:         map[string]any{"result": "55"},
		Owner:          "alice",
		ConversationID: "conv-1",
		CreatedAt:      time.Now().UTC().Add(-time.Minute),
		UpdatedAt:      time.Now().UTC(),
	}
	require.NoError(t, journal.Record(ctx, first))

	second := domain.Job{
		ID:        "cd456",
		ToolName:  "timer",
		Status:    domain.JobStatusFailed,
		Error:     "boom",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, journal.Record(ctx, second))

	jobs, err := journal.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	// Newest first.
	assert.Equal(t, domain.JobID("cd456"), jobs[0].ID)
	assert.Equal(t, "boom", jobs[0].Error)
	assert.Equal(t, domain.JobID("ab123"), jobs[1].ID)
	assert.Equal(t, "fibonacci", jobs[1].ToolName)
	assert.Equal(t, "alice", jobs[1].Owner)
	assert.Equal(t, "conv-1", jobs[1].ConversationID)
	assert.Equal(t, float64(10), jobs[1].Input["n"])
	assert.Equal(t, "55", jobs[1].Result["result"])
}

func TestJournal_Limit(t *testing.T) {
	journal, err := NewJournal(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer journal.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, journal.Record(ctx, domain.Job{
			ID:        domain.JobID([]byte{'a' + byte(i), 'b', '1', '2', '3'}),
			ToolName:  "timer",
			Status:    domain.JobStatusSuccess,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}))
	}

	jobs, err := journal.List(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, jobs, 3)
}

func TestJournal_SameJobRecordedTwice(t *testing.T) {
	journal, err := NewJournal(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer journal.Close()

	ctx := context.Background()
	job := domain.Job{
		ID:        "ab123",
		ToolName:  "timer",
		Status:    domain.JobStatusExpired,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	// Entries get their own ids, so re-recording a job id appends.
	require.NoError(t, journal.Record(ctx, job))
	require.NoError(t, journal.Record(ctx, job))

	jobs, err := journal.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}
