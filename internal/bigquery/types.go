package bigquery

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
)

// ReportRepository provides an interface for credit report persistence in BigQuery.
type ReportRepository interface {
	// UpsertReport replaces the user's report row in a single MERGE.
	UpsertReport(ctx context.Context, row *ReportRow) error

	// GetReport returns the user's report row, or nil when none exists.
	GetReport(ctx context.Context, userID string) (*ReportRow, error)

	// Close releases the underlying client.
	Close() error
}

// ReportRow represents a credit report record in BigQuery.
// The full report document lives in report_json; the scalar columns exist so
// the table can be queried without parsing JSON.
type ReportRow struct {
	UserID   string `bigquery:"user_id"`
	ReportID string `bigquery:"report_id"`

	CreditScore      int64  `bigquery:"credit_score"`
	RiskCategory     string `bigquery:"risk_category"`
	TransactionCount int64  `bigquery:"transaction_count"`

	ReportJSON string `bigquery:"report_json"`

	ReportDate civil.Date `bigquery:"report_date"`
	CreatedTS  time.Time  `bigquery:"created_ts"`
	UpdatedTS  time.Time  `bigquery:"updated_ts"`
}
