package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/dvloznov/credit-report/internal/domain"
	"github.com/dvloznov/credit-report/internal/reportstore"
)

// Store implements reportstore.Store using in-memory storage.
// Reports are copied on the way in and on the way out.
type Store struct {
	mu      sync.RWMutex
	reports map[string]*domain.CreditReport
	now     func() time.Time
}

// NewStore creates a new in-memory report store.
func NewStore() *Store {
	return &Store{
		reports: make(map[string]*domain.CreditReport),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// UpsertLatest replaces the user's report, keeping the original CreatedAt.
func (s *Store) UpsertLatest(ctx context.Context, userID string, report *domain.CreditReport) (*domain.CreditReport, error) {
	if err := reportstore.ValidateUserID(userID); err != nil {
		return nil, err
	}
	if report == nil {
		return nil, reportstore.ErrNilReport
	}

	stored := report.Clone()
	stored.UserID = userID

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	stored.CreatedAt = now
	if existing, ok := s.reports[userID]; ok {
		stored.CreatedAt = existing.CreatedAt
	}
	stored.UpdatedAt = now
	s.reports[userID] = stored

	return stored.Clone(), nil
}

// GetLatest returns a copy of the user's report.
func (s *Store) GetLatest(ctx context.Context, userID string) (*domain.CreditReport, error) {
	if err := reportstore.ValidateUserID(userID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[userID]
	if !ok {
		return nil, reportstore.ErrNotFound
	}
	return r.Clone(), nil
}

// Len returns the number of stored reports.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}
