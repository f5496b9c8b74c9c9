package bigquery

import (
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	bq "github.com/dvloznov/credit-report/internal/bigquery"
	"github.com/dvloznov/credit-report/internal/domain"
)

// ReportRow is re-exported from the shared package.
type ReportRow = bq.ReportRow

const reportsTable = "credit_reports"

// TableRef names a table inside a project and dataset.
type TableRef struct {
	ProjectID string
	DatasetID string
	Table     string
}

// String renders the reference as a quoted standard-SQL identifier.
func (t TableRef) String() string {
	return "`" + t.ProjectID + "." + t.DatasetID + "." + t.Table + "`"
}

// reportToRow converts a report into a row. Timestamps come from the MERGE, not the report.
func reportToRow(userID string, report *domain.CreditReport, now time.Time) (*ReportRow, error) {
	body := report.Clone()
	body.UserID = userID
	body.CreatedAt = time.Time{}
	body.UpdatedAt = time.Time{}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("reportToRow: marshal report: %w", err)
	}

	return &ReportRow{
		UserID:           userID,
		ReportID:         uuid.NewString(),
		CreditScore:      int64(report.CreditScore),
		RiskCategory:     report.RiskCategory,
		TransactionCount: int64(len(report.ParsedTransactions)),
		ReportJSON:       string(raw),
		ReportDate:       civil.DateOf(now),
		CreatedTS:        now,
		UpdatedTS:        now,
	}, nil
}

// rowToReport decodes the stored document and applies the row's timestamps.
func rowToReport(row *ReportRow) (*domain.CreditReport, error) {
	var r domain.CreditReport
	if err := json.Unmarshal([]byte(row.ReportJSON), &r); err != nil {
		return nil, fmt.Errorf("rowToReport: decode report_json for %s: %w", row.UserID, err)
	}
	r.UserID = row.UserID
	r.CreatedAt = row.CreatedTS.UTC()
	r.UpdatedAt = row.UpdatedTS.UTC()
	return &r, nil
}
