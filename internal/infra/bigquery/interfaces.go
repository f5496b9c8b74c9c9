package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	bq "github.com/dvloznov/credit-report/internal/bigquery"
)

// Re-export interfaces from shared package for backward compatibility
type ReportRepository = bq.ReportRepository

// BigQueryReportRepository is the concrete implementation of ReportRepository
// that interacts with BigQuery. It holds a shared BigQuery client to avoid
// creating a new connection for each operation.
type BigQueryReportRepository struct {
	client *bigquery.Client
	table  TableRef
}

// NewBigQueryReportRepository creates a new instance of BigQueryReportRepository
// with a shared BigQuery client.
func NewBigQueryReportRepository(ctx context.Context, projectID, datasetID string) (*BigQueryReportRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryReportRepository: creating client: %w", err)
	}
	return &BigQueryReportRepository{
		client: client,
		table: TableRef{
			ProjectID: projectID,
			DatasetID: datasetID,
			Table:     reportsTable,
		},
	}, nil
}

// Close closes the BigQuery client connection. This should be called when
// the repository is no longer needed to release resources.
func (r *BigQueryReportRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// UpsertReport delegates to UpsertReportWithClient with the shared client.
func (r *BigQueryReportRepository) UpsertReport(ctx context.Context, row *ReportRow) error {
	return UpsertReportWithClient(ctx, r.client, r.table, row)
}

// GetReport delegates to GetReportWithClient with the shared client.
func (r *BigQueryReportRepository) GetReport(ctx context.Context, userID string) (*ReportRow, error) {
	return GetReportWithClient(ctx, r.client, r.table, userID)
}
