package bigquery

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/credit-report/internal/domain"
	"github.com/dvloznov/credit-report/internal/logger"
	"github.com/dvloznov/credit-report/internal/reportstore"
)

// ReportStore adapts a ReportRepository to reportstore.Store.
type ReportStore struct {
	repo ReportRepository
	now  func() time.Time
}

// NewReportStore wraps repo.
func NewReportStore(repo ReportRepository) *ReportStore {
	return &ReportStore{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// UpsertLatest merges the report and returns the document this call wrote.
// Only CreatedAt is taken from the read-back, since the MERGE keeps the
// first write's timestamp and a concurrent upsert may have replaced the body.
func (s *ReportStore) UpsertLatest(ctx context.Context, userID string, report *domain.CreditReport) (*domain.CreditReport, error) {
	if err := reportstore.ValidateUserID(userID); err != nil {
		return nil, err
	}
	if report == nil {
		return nil, reportstore.ErrNilReport
	}

	row, err := reportToRow(userID, report, s.now())
	if err != nil {
		return nil, fmt.Errorf("UpsertLatest: %w", err)
	}

	if err := s.repo.UpsertReport(ctx, row); err != nil {
		return nil, fmt.Errorf("UpsertLatest: %w", err)
	}

	written, err := rowToReport(row)
	if err != nil {
		return nil, fmt.Errorf("UpsertLatest: %w", err)
	}

	stored, err := s.repo.GetReport(ctx, userID)
	if err != nil || stored == nil {
		logger.FromContext(ctx).Warn().Err(err).Str("user_id", userID).Msg("Could not read back merged report")
		return written, nil
	}
	if !stored.CreatedTS.IsZero() {
		written.CreatedAt = stored.CreatedTS.UTC()
	}

	return written, nil
}

// GetLatest loads the user's report or returns reportstore.ErrNotFound.
func (s *ReportStore) GetLatest(ctx context.Context, userID string) (*domain.CreditReport, error) {
	if err := reportstore.ValidateUserID(userID); err != nil {
		return nil, err
	}

	row, err := s.repo.GetReport(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("GetLatest: %w", err)
	}
	if row == nil {
		return nil, reportstore.ErrNotFound
	}

	return rowToReport(row)
}

// Close closes the underlying repository.
func (s *ReportStore) Close() error {
	return s.repo.Close()
}
