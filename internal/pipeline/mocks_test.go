package pipeline_test

import (
	"context"

	"google.golang.org/genai"

	"github.com/dvloznov/credit-report/internal/domain"
	"github.com/dvloznov/credit-report/internal/pipeline"
)

// MockStorageService is a mock implementation of StorageService for testing.
type MockStorageService struct {
	FetchFromGCSFunc              func(ctx context.Context, gcsURI string) ([]byte, error)
	ExtractFilenameFromGCSURIFunc func(uri string) string
}

func (m *MockStorageService) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	if m.FetchFromGCSFunc != nil {
		return m.FetchFromGCSFunc(ctx, gcsURI)
	}
	return []byte("mock pdf data"), nil
}

func (m *MockStorageService) ExtractFilenameFromGCSURI(uri string) string {
	if m.ExtractFilenameFromGCSURIFunc != nil {
		return m.ExtractFilenameFromGCSURIFunc(uri)
	}
	return "mock-file.pdf"
}

// MockTextSource is a mock implementation of TextSource for testing.
type MockTextSource struct {
	ExtractTextFunc func(ctx context.Context, pdf []byte) (string, error)
}

func (m *MockTextSource) ExtractText(ctx context.Context, pdf []byte) (string, error) {
	if m.ExtractTextFunc != nil {
		return m.ExtractTextFunc(ctx, pdf)
	}
	return "Statement of account\nOpening Balance 1,000.00", nil
}

// MockCandidateExtractor is a mock implementation of CandidateExtractor for testing.
type MockCandidateExtractor struct {
	ExtractCandidatesFunc func(ctx context.Context, text string, maxChars int) (*domain.Extraction, error)
}

func (m *MockCandidateExtractor) ExtractCandidates(ctx context.Context, text string, maxChars int) (*domain.Extraction, error) {
	if m.ExtractCandidatesFunc != nil {
		return m.ExtractCandidatesFunc(ctx, text, maxChars)
	}
	return &domain.Extraction{}, nil
}

// MockScoringGateway is a mock implementation of ScoringGateway for testing.
type MockScoringGateway struct {
	ScoreFunc func(ctx context.Context, txs []domain.ReconciledTransaction) (*domain.ScoreResult, error)
}

func (m *MockScoringGateway) Score(ctx context.Context, txs []domain.ReconciledTransaction) (*domain.ScoreResult, error) {
	if m.ScoreFunc != nil {
		return m.ScoreFunc(ctx, txs)
	}
	return &domain.ScoreResult{CreditScore: 700}, nil
}

// MockNarrativeGenerator is a mock implementation of NarrativeGenerator for testing.
type MockNarrativeGenerator struct {
	NarrateFunc func(ctx context.Context, score *domain.ScoreResult) (*domain.Narrative, error)
}

func (m *MockNarrativeGenerator) Narrate(ctx context.Context, score *domain.ScoreResult) (*domain.Narrative, error) {
	if m.NarrateFunc != nil {
		return m.NarrateFunc(ctx, score)
	}
	return &domain.Narrative{Summary: "mock summary"}, nil
}

// MockReportStore is a mock implementation of ReportStore for testing.
type MockReportStore struct {
	UpsertLatestFunc func(ctx context.Context, userID string, report *domain.CreditReport) (*domain.CreditReport, error)
	GetLatestFunc    func(ctx context.Context, userID string) (*domain.CreditReport, error)
}

func (m *MockReportStore) UpsertLatest(ctx context.Context, userID string, report *domain.CreditReport) (*domain.CreditReport, error) {
	if m.UpsertLatestFunc != nil {
		return m.UpsertLatestFunc(ctx, userID, report)
	}
	return report, nil
}

func (m *MockReportStore) GetLatest(ctx context.Context, userID string) (*domain.CreditReport, error) {
	if m.GetLatestFunc != nil {
		return m.GetLatestFunc(ctx, userID)
	}
	return nil, nil
}

// MockReportMirror is a mock implementation of ReportMirror for testing.
type MockReportMirror struct {
	MirrorReportFunc func(ctx context.Context, report *domain.CreditReport) error
}

func (m *MockReportMirror) MirrorReport(ctx context.Context, report *domain.CreditReport) error {
	if m.MirrorReportFunc != nil {
		return m.MirrorReportFunc(ctx, report)
	}
	return nil
}

// MockGenerator is a mock implementation of llm.ContentGenerator for testing.
type MockGenerator struct {
	GenerateContentFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

func (m *MockGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return m.GenerateContentFunc(ctx, model, contents, config)
}

func replyWith(text string) *MockGenerator {
	return &MockGenerator{
		GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{
					{Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}}},
				},
			}, nil
		},
	}
}

// Compile-time checks that the mocks satisfy the pipeline interfaces.
var (
	_ pipeline.StorageService     = (*MockStorageService)(nil)
	_ pipeline.TextSource         = (*MockTextSource)(nil)
	_ pipeline.CandidateExtractor = (*MockCandidateExtractor)(nil)
	_ pipeline.ScoringGateway     = (*MockScoringGateway)(nil)
	_ pipeline.NarrativeGenerator = (*MockNarrativeGenerator)(nil)
	_ pipeline.ReportStore        = (*MockReportStore)(nil)
	_ pipeline.ReportMirror       = (*MockReportMirror)(nil)
)

func fp(v float64) *float64 { return &v }
