package pipeline

import (
	"context"

	"github.com/dvloznov/credit-report/internal/domain"
	"github.com/dvloznov/credit-report/internal/reportstore"
)

// StorageService is an interface for storage operations.
type StorageService interface {
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)
	ExtractFilenameFromGCSURI(uri string) string
}

// TextSource turns a statement document into raw text.
type TextSource interface {
	ExtractText(ctx context.Context, pdf []byte) (string, error)
}

// CandidateExtractor provides an interface for AI-powered transaction extraction.
// This interface enables mocking and testing of the model call.
type CandidateExtractor interface {
	// ExtractCandidates returns the statement's transactions oldest first.
	// maxChars truncates the text sent to the model; zero means no limit.
	ExtractCandidates(ctx context.Context, text string, maxChars int) (*domain.Extraction, error)
}

// ScoringGateway forwards a reconciled ledger to the risk-scoring engine.
type ScoringGateway interface {
	Score(ctx context.Context, txs []domain.ReconciledTransaction) (*domain.ScoreResult, error)
}

// NarrativeGenerator explains a score in plain language.
type NarrativeGenerator interface {
	Narrate(ctx context.Context, score *domain.ScoreResult) (*domain.Narrative, error)
}

// ReportStore persists the latest report per user.
type ReportStore = reportstore.Store

// ReportMirror receives a copy of every saved report. Failures are logged only.
type ReportMirror interface {
	MirrorReport(ctx context.Context, report *domain.CreditReport) error
}
