package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// upsertReportSQL replaces the user's row in one statement. created_ts and
// report_id are only written when the row is first inserted.
func upsertReportSQL(table TableRef) string {
	return `
		MERGE ` + table.String() + ` AS T
		USING (SELECT @user_id AS user_id) AS S
		ON T.user_id = S.user_id
		WHEN MATCHED THEN
			UPDATE SET
				credit_score = @credit_score,
				risk_category = @risk_category,
				transaction_count = @transaction_count,
				report_json = @report_json,
				report_date = @report_date,
				updated_ts = @updated_ts
		WHEN NOT MATCHED THEN
			INSERT (
				user_id, report_id, credit_score, risk_category,
				transaction_count, report_json, report_date, created_ts, updated_ts
			)
			VALUES (
				@user_id, @report_id, @credit_score, @risk_category,
				@transaction_count, @report_json, @report_date, @created_ts, @updated_ts
			)
	`
}

// UpsertReportWithClient writes row as the user's only report using the provided BigQuery client.
func UpsertReportWithClient(ctx context.Context, client *bigquery.Client, table TableRef, row *ReportRow) error {
	q := client.Query(upsertReportSQL(table))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: row.UserID},
		{Name: "report_id", Value: row.ReportID},
		{Name: "credit_score", Value: row.CreditScore},
		{Name: "risk_category", Value: row.RiskCategory},
		{Name: "transaction_count", Value: row.TransactionCount},
		{Name: "report_json", Value: row.ReportJSON},
		{Name: "report_date", Value: row.ReportDate},
		{Name: "created_ts", Value: row.CreatedTS},
		{Name: "updated_ts", Value: row.UpdatedTS},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("UpsertReportWithClient: running merge query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("UpsertReportWithClient: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("UpsertReportWithClient: job error: %w", err)
	}

	return nil
}

// GetReportWithClient returns the user's report row, or nil if there is none.
func GetReportWithClient(ctx context.Context, client *bigquery.Client, table TableRef, userID string) (*ReportRow, error) {
	q := client.Query(`
		SELECT
			user_id,
			report_id,
			credit_score,
			risk_category,
			transaction_count,
			report_json,
			report_date,
			created_ts,
			updated_ts
		FROM ` + table.String() + `
		WHERE user_id = @user_id
		LIMIT 1
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetReportWithClient: reading query: %w", err)
	}

	var row ReportRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetReportWithClient: iterating: %w", err)
	}

	return &row, nil
}
