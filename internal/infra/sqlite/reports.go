// Package sqlite is a single-file report store for local runs and tests.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dvloznov/credit-report/internal/domain"
	"github.com/dvloznov/credit-report/internal/logger"
	"github.com/dvloznov/credit-report/internal/reportstore"
)

const schema = `
CREATE TABLE IF NOT EXISTS credit_reports (
	user_id       TEXT PRIMARY KEY,
	credit_score  INTEGER NOT NULL,
	risk_category TEXT NOT NULL,
	report_json   TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);`

// ReportStore implements reportstore.Store on top of modernc.org/sqlite.
type ReportStore struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and ensures the schema exists.
func Open(ctx context.Context, path string) (*ReportStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("Open: open database at %s: %w", path, err)
	}
	// One connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("Open: create credit_reports table: %w", err)
	}

	logger.FromContext(ctx).Info().Str("path", path).Msg("SQLite report store ready")

	return &ReportStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close closes the underlying database.
func (s *ReportStore) Close() error {
	return s.db.Close()
}

// UpsertLatest writes the report in a single INSERT ... ON CONFLICT statement.
// created_at is only set on the first insert.
func (s *ReportStore) UpsertLatest(ctx context.Context, userID string, report *domain.CreditReport) (*domain.CreditReport, error) {
	if err := reportstore.ValidateUserID(userID); err != nil {
		return nil, err
	}
	if report == nil {
		return nil, reportstore.ErrNilReport
	}

	stored := report.Clone()
	stored.UserID = userID
	stored.CreatedAt = time.Time{}
	stored.UpdatedAt = time.Time{}

	body, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("UpsertLatest: marshal report: %w", err)
	}

	now := s.now().Format(time.RFC3339Nano)

	var createdAt string
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO credit_reports (user_id, credit_score, risk_category, report_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			credit_score = excluded.credit_score,
			risk_category = excluded.risk_category,
			report_json = excluded.report_json,
			updated_at = excluded.updated_at
		RETURNING created_at`,
		userID, stored.CreditScore, stored.RiskCategory, string(body), now, now,
	).Scan(&createdAt)
	if err != nil {
		return nil, fmt.Errorf("UpsertLatest: upsert report for %s: %w", userID, err)
	}

	if stored.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("UpsertLatest: parse created_at: %w", err)
	}
	stored.UpdatedAt, _ = time.Parse(time.RFC3339Nano, now)

	return stored, nil
}

// GetLatest loads the user's report or returns reportstore.ErrNotFound.
func (s *ReportStore) GetLatest(ctx context.Context, userID string) (*domain.CreditReport, error) {
	if err := reportstore.ValidateUserID(userID); err != nil {
		return nil, err
	}

	var body, createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT report_json, created_at, updated_at FROM credit_reports WHERE user_id = ?`,
		userID,
	).Scan(&body, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, reportstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetLatest: query report for %s: %w", userID, err)
	}

	var r domain.CreditReport
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return nil, fmt.Errorf("GetLatest: decode report for %s: %w", userID, err)
	}
	r.UserID = userID
	if r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("GetLatest: parse created_at: %w", err)
	}
	if r.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("GetLatest: parse updated_at: %w", err)
	}

	return &r, nil
}
