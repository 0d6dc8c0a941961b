package services

import (
	"crypto/rand"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dmaia/remora/internal/core/domain"
)

const jobIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// jobIDLength keeps ids short enough to read back over voice channels.
// Uniqueness is enforced by collision-checked generation, not by length.
const jobIDLength = 5

// JobStore is the in-memory index of job records. It is the only shared
// mutable state in the system: all mutation goes through its operations so
// that updates to a single job are linearized.
type JobStore struct {
	logger *slog.Logger
	mu     sync.RWMutex
	jobs   map[domain.JobID]*domain.Job
}

func NewJobStore(logger *slog.Logger) *JobStore {
	return &JobStore{
		logger: logger,
		jobs:   make(map[domain.JobID]*domain.Job),
	}
}

// CreateParams captures everything fixed at job creation time.
type CreateParams struct {
	ToolName       string
	Input          map[string]any
	Owner          string
	ConversationID string
	Cancelable     bool
	Notify         bool
	NotifyTitle    string
	NotifyMessage  string
}

// Create inserts a new pending job under a freshly generated id and returns
// a copy of the record. Id generation retries until it finds a token not
// already present in the store.
func (s *JobStore) Create(p CreateParams) domain.Job {
	now := time.Now()
	job := &domain.Job{
		ToolName:           p.ToolName,
		Input:              p.Input,
		Status:             domain.JobStatusPending,
		Owner:              p.Owner,
		ConversationID:     p.ConversationID,
		Cancelable:         p.Cancelable,
		CreatedAt:          now,
		UpdatedAt:          now,
		NotifyOnCompletion: p.Notify,
		NotifyTitle:        p.NotifyTitle,
		NotifyMessage:      p.NotifyMessage,
	}
	if job.Input == nil {
		job.Input = map[string]any{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		id := domain.JobID(randomToken(jobIDLength))
		if _, taken := s.jobs[id]; taken {
			continue
		}
		job.ID = id
		break
	}
	s.jobs[job.ID] = job
	s.logger.Debug("job created", "job_id", job.ID, "tool", job.ToolName)
	return *job
}

// Get returns a copy of the job or domain.ErrJobNotFound.
func (s *JobStore) Get(id domain.JobID) (domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return domain.Job{}, domain.ErrJobNotFound
	}
	return *job, nil
}

// Update atomically transitions a job to status, setting result or errMsg
// when non-zero, and refreshes updated_at. A job already in a terminal state
// is never overwritten: the call is a no-op and applied is false, which is
// how a cancelled job survives a late-arriving completion. Returns
// domain.ErrJobNotFound if the id is absent.
func (s *JobStore) Update(id domain.JobID, status domain.JobStatus, result map[string]any, errMsg string) (domain.Job, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return domain.Job{}, false, domain.ErrJobNotFound
	}
	if job.Status.Terminal() {
		return *job, false, nil
	}
	if job.Status == status && result == nil && errMsg == "" {
		return *job, false, nil
	}
	job.Status = status
	job.UpdatedAt = time.Now()
	if result != nil {
		job.Result = result
	}
	if errMsg != "" {
		job.Error = errMsg
	}
	return *job, true, nil
}

// Cancel transitions a job to cancelled. It succeeds only when the job
// exists, is cancelable and is still pending or running; any other case
// returns ok=false without touching the record.
func (s *JobStore) Cancel(id domain.JobID) (domain.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || !job.Cancelable || job.Status.Terminal() {
		if job != nil {
			return *job, false
		}
		return domain.Job{}, false
	}
	job.Status = domain.JobStatusCancelled
	job.UpdatedAt = time.Now()
	return *job, true
}

// ListFilter narrows List results; empty fields match everything and set
// fields combine with AND.
type ListFilter struct {
	Owner          string
	Status         domain.JobStatus
	ToolName       string
	ConversationID string
}

// List returns copies of all jobs matching the filter, oldest first.
func (s *JobStore) List(f ListFilter) []domain.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	jobs := make([]domain.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if f.Owner != "" && job.Owner != f.Owner {
			continue
		}
		if f.Status != "" && job.Status != f.Status {
			continue
		}
		if f.ToolName != "" && job.ToolName != f.ToolName {
			continue
		}
		if f.ConversationID != "" && job.ConversationID != f.ConversationID {
			continue
		}
		jobs = append(jobs, *job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.Before(jobs[j].CreatedAt) })
	return jobs
}

// Delete removes a single job, returning domain.ErrJobNotFound if absent.
func (s *JobStore) Delete(id domain.JobID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return domain.ErrJobNotFound
	}
	delete(s.jobs, id)
	return nil
}

// DeleteAll clears the store and returns how many jobs were removed.
func (s *JobStore) DeleteAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.jobs)
	s.jobs = make(map[domain.JobID]*domain.Job)
	return n
}

// Sweep permanently removes every job created more than maxAge ago,
// regardless of status, and returns the removed records. Jobs that had not
// reached a terminal state are reported as expired in the returned copies so
// callers can journal the loss.
func (s *JobStore) Sweep(maxAge time.Duration) []domain.Job {
	cutoff := time.Now().Add(-maxAge)
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []domain.Job
	for id, job := range s.jobs {
		if job.CreatedAt.After(cutoff) {
			continue
		}
		snapshot := *job
		if !snapshot.Status.Terminal() {
			snapshot.Status = domain.JobStatusExpired
			snapshot.UpdatedAt = time.Now()
		}
		removed = append(removed, snapshot)
		delete(s.jobs, id)
	}
	if len(removed) > 0 {
		s.logger.Info("swept expired jobs", "count", len(removed), "max_age", maxAge)
	}
	return removed
}

// randomToken draws n characters from the job id alphabet.
func randomToken(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand never fails on supported platforms
	}
	for i, b := range buf {
		buf[i] = jobIDAlphabet[int(b)%len(jobIDAlphabet)]
	}
	return string(buf)
}
