package duckdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"

	"github.com/dmaia/remora/internal/core/domain"
	"github.com/dmaia/remora/internal/core/ports"
)

// Journal is the DuckDB-backed audit sink for terminal jobs. Each record is
// an append-only row; the in-memory store remains the source of truth for
// live jobs.
type Journal struct {
	db *sql.DB
}

var _ ports.Journal = (*Journal)(nil)

func NewJournal(path string) (*Journal, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb at %s: %w", path, err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS job_journal (
		entry_id        VARCHAR PRIMARY KEY,
		job_id          VARCHAR NOT NULL,
		tool_name       VARCHAR NOT NULL,
		status          VARCHAR NOT NULL,
		input           VARCHAR,
		result          VARCHAR,
		error           VARCHAR,
		owner           VARCHAR,
		conversation_id VARCHAR,
		created_at      TIMESTAMP,
		updated_at      TIMESTAMP,
		recorded_at     TIMESTAMP
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create job_journal table: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Record(ctx context.Context, job domain.Job) error {
	inputJSON, err := json.Marshal(job.Input)
	if err != nil {
		return fmt.Errorf("failed to marshal input: %w", err)
	}
	resultJSON, err := json.Marshal(job.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	query := `
	INSERT INTO job_journal (entry_id, job_id, tool_name, status, input, result, error, owner, conversation_id, created_at, updated_at, recorded_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`
	_, err = j.db.ExecContext(ctx, query,
		uuid.New().String(), string(job.ID), job.ToolName, string(job.Status),
		string(inputJSON), string(resultJSON), job.Error,
		job.Owner, job.ConversationID,
		job.CreatedAt, job.UpdatedAt, time.Now(),
	)
	return err
}

func (j *Journal) List(ctx context.Context, limit int) ([]domain.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
	SELECT job_id, tool_name, status, CAST(input AS TEXT), CAST(result AS TEXT), error, owner, conversation_id, created_at, updated_at
	FROM job_journal ORDER BY recorded_at DESC LIMIT ?;
	`
	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		var job domain.Job
		var idStr, statusStr string
		var inputJSON, resultJSON sql.NullString
		var errStr, owner, convID sql.NullString

		if err := rows.Scan(&idStr, &job.ToolName, &statusStr, &inputJSON, &resultJSON, &errStr, &owner, &convID, &job.CreatedAt, &job.UpdatedAt); err != nil {
			return nil, err
		}
		job.ID = domain.JobID(idStr)
		job.Status = domain.JobStatus(statusStr)
		job.Error = errStr.String
		job.Owner = owner.String
		job.ConversationID = convID.String
		if inputJSON.Valid {
			if err := json.Unmarshal([]byte(inputJSON.String), &job.Input); err != nil {
				return nil, fmt.Errorf("failed to unmarshal input: %w", err)
			}
		}
		if resultJSON.Valid && resultJSON.String != "null" {
			if err := json.Unmarshal([]byte(resultJSON.String), &job.Result); err != nil {
				return nil, fmt.Errorf("failed to unmarshal result: %w", err)
			}
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (j *Journal) Close() error {
	return j.db.Close()
}
