package handlers

import (
	"context"

	"github.com/dvloznov/credit-report/internal/advisor"
	"github.com/dvloznov/credit-report/internal/domain"
	"github.com/dvloznov/credit-report/internal/pipeline"
)

// Analyzer runs the statement analysis pipeline. *pipeline.Analyzer implements it.
type Analyzer interface {
	AnalyzePDF(ctx context.Context, userID string, pdf []byte) (*pipeline.Result, error)
	AnalyzeTransactions(ctx context.Context, txs []domain.ReconciledTransaction) (*pipeline.Result, error)
}

// ReportReader reads the latest stored report for a user.
type ReportReader interface {
	GetLatest(ctx context.Context, userID string) (*domain.CreditReport, error)
}

// StatementUploader archives statement files.
type StatementUploader interface {
	UploadBytes(ctx context.Context, bucketName, objectName string, data []byte, contentType string) (string, error)
}

// ChatResponder produces the advisor's next chat turn.
type ChatResponder interface {
	Reply(ctx context.Context, messages []advisor.Message) (*advisor.Message, error)
}

var (
	_ Analyzer      = (*pipeline.Analyzer)(nil)
	_ ChatResponder = (*advisor.Advisor)(nil)
)
