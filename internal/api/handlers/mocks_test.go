package handlers_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dvloznov/credit-report/internal/advisor"
	"github.com/dvloznov/credit-report/internal/api/handlers"
	"github.com/dvloznov/credit-report/internal/domain"
	"github.com/dvloznov/credit-report/internal/jobs"
	"github.com/dvloznov/credit-report/internal/pipeline"
)

// MockAnalyzer is a mock implementation of Analyzer for testing.
type MockAnalyzer struct {
	AnalyzePDFFunc          func(ctx context.Context, userID string, pdf []byte) (*pipeline.Result, error)
	AnalyzeTransactionsFunc func(ctx context.Context, txs []domain.ReconciledTransaction) (*pipeline.Result, error)
}

func (m *MockAnalyzer) AnalyzePDF(ctx context.Context, userID string, pdf []byte) (*pipeline.Result, error) {
	return m.AnalyzePDFFunc(ctx, userID, pdf)
}

func (m *MockAnalyzer) AnalyzeTransactions(ctx context.Context, txs []domain.ReconciledTransaction) (*pipeline.Result, error) {
	return m.AnalyzeTransactionsFunc(ctx, txs)
}

// MockReportReader is a mock implementation of ReportReader for testing.
type MockReportReader struct {
	GetLatestFunc func(ctx context.Context, userID string) (*domain.CreditReport, error)
}

func (m *MockReportReader) GetLatest(ctx context.Context, userID string) (*domain.CreditReport, error) {
	return m.GetLatestFunc(ctx, userID)
}

// MockUploader is a mock implementation of StatementUploader for testing.
type MockUploader struct {
	UploadBytesFunc func(ctx context.Context, bucketName, objectName string, data []byte, contentType string) (string, error)
}

func (m *MockUploader) UploadBytes(ctx context.Context, bucketName, objectName string, data []byte, contentType string) (string, error) {
	if m.UploadBytesFunc != nil {
		return m.UploadBytesFunc(ctx, bucketName, objectName, data, contentType)
	}
	return "gs://" + bucketName + "/" + objectName, nil
}

// MockPublisher is a mock implementation of jobs.Publisher for testing.
type MockPublisher struct {
	Published                   []*jobs.AnalyzeStatementJob
	PublishAnalyzeStatementFunc func(ctx context.Context, job *jobs.AnalyzeStatementJob) error
}

func (m *MockPublisher) PublishAnalyzeStatement(ctx context.Context, job *jobs.AnalyzeStatementJob) error {
	if m.PublishAnalyzeStatementFunc != nil {
		return m.PublishAnalyzeStatementFunc(ctx, job)
	}
	job.JobID = "job-1"
	job.Status = jobs.JobStatusPending
	m.Published = append(m.Published, job)
	return nil
}

func (m *MockPublisher) Close() error { return nil }

// MockChatResponder is a mock implementation of ChatResponder for testing.
type MockChatResponder struct {
	ReplyFunc func(ctx context.Context, messages []advisor.Message) (*advisor.Message, error)
}

func (m *MockChatResponder) Reply(ctx context.Context, messages []advisor.Message) (*advisor.Message, error) {
	return m.ReplyFunc(ctx, messages)
}

var (
	_ handlers.Analyzer          = (*MockAnalyzer)(nil)
	_ handlers.ReportReader      = (*MockReportReader)(nil)
	_ handlers.StatementUploader = (*MockUploader)(nil)
	_ handlers.ChatResponder     = (*MockChatResponder)(nil)
	_ jobs.Publisher             = (*MockPublisher)(nil)
)

// multipartRequest builds a POST with data in the "file" field.
func multipartRequest(t *testing.T, target, field string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, "statement.pdf")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func sampleReport(userID string) *domain.CreditReport {
	return &domain.CreditReport{
		UserID:       userID,
		CreditScore:  712,
		RiskCategory: "Good",
		AISummary:    domain.Narrative{Summary: "Healthy cash flow."},
		ParsedTransactions: []domain.ReconciledTransaction{
			{Description: "Salary", Date: "2024-01-01", Amount: 500},
		},
	}
}
