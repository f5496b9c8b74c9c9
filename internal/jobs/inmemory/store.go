package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dvloznov/credit-report/internal/jobs"
)

// Store keeps analysis jobs in a map guarded by a RWMutex. It backs the
// in-process queue and the /api/jobs endpoints; nothing survives a restart.
//
// Jobs are copied on the way in and on the way out, including the
// StartedAt/CompletedAt pointers, so callers never share state with the store.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*jobs.AnalyzeStatementJob
	now  func() time.Time
}

// NewStore returns an empty job store.
func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*jobs.AnalyzeStatementJob),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// SaveJob inserts the job or replaces the stored copy with the same JobID.
func (s *Store) SaveJob(ctx context.Context, job *jobs.AnalyzeStatementJob) error {
	if job == nil || job.JobID == "" {
		return fmt.Errorf("SaveJob: job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.JobID] = cloneJob(job)
	return nil
}

// GetJob returns a copy of the job, or an error wrapping jobs.ErrJobNotFound.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.AnalyzeStatementJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("GetJob: %s: %w", jobID, jobs.ErrJobNotFound)
	}
	return cloneJob(job), nil
}

// ListJobs returns the jobs matching filter, newest first. Jobs created at
// the same instant are ordered by JobID so pages are stable.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.AnalyzeStatementJob, error) {
	s.mu.RLock()
	matched := make([]*jobs.AnalyzeStatementJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		if matchesFilter(job, filter) {
			matched = append(matched, cloneJob(job))
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.JobID < b.JobID
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	return page(matched, filter.Offset, filter.Limit), nil
}

// UpdateJobStatus moves a job to status. Entering running stamps StartedAt;
// entering completed or failed stamps CompletedAt. A non-empty errorMsg
// replaces the recorded error, an empty one leaves it alone.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("UpdateJobStatus: %s: %w", jobID, jobs.ErrJobNotFound)
	}

	now := s.now()
	switch status {
	case jobs.JobStatusRunning:
		job.StartedAt = &now
		job.CompletedAt = nil
	case jobs.JobStatusCompleted, jobs.JobStatusFailed:
		job.CompletedAt = &now
	}
	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}
	return nil
}

func matchesFilter(job *jobs.AnalyzeStatementJob, f jobs.JobFilter) bool {
	if f.UserID != "" && job.UserID != f.UserID {
		return false
	}
	return f.Status == "" || job.Status == f.Status
}

func page(list []*jobs.AnalyzeStatementJob, offset, limit int) []*jobs.AnalyzeStatementJob {
	if offset > 0 {
		if offset >= len(list) {
			return []*jobs.AnalyzeStatementJob{}
		}
		list = list[offset:]
	}
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}

func cloneJob(job *jobs.AnalyzeStatementJob) *jobs.AnalyzeStatementJob {
	cp := *job
	if job.StartedAt != nil {
		t := *job.StartedAt
		cp.StartedAt = &t
	}
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

var _ jobs.JobStore = (*Store)(nil)
