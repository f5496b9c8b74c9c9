package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/credit-report/internal/domain"
	"github.com/dvloznov/credit-report/internal/pipeline"
	"github.com/dvloznov/credit-report/internal/reportstore/inmemory"
)

type fixture struct {
	storage   *MockStorageService
	source    *MockTextSource
	extractor *MockCandidateExtractor
	scorer    *MockScoringGateway
	narrator  *MockNarrativeGenerator
	store     pipeline.ReportStore
	mirror    *MockReportMirror

	scored []domain.ReconciledTransaction
}

func newFixture() *fixture {
	f := &fixture{
		storage: &MockStorageService{},
		source:  &MockTextSource{},
		extractor: &MockCandidateExtractor{
			ExtractCandidatesFunc: func(ctx context.Context, text string, maxChars int) (*domain.Extraction, error) {
				return &domain.Extraction{Candidates: []domain.CandidateTransaction{
					{Description: "Salary", Date: "2024-01-01", Amount: -500, Balance: fp(1500)},
					{Description: "Rent", Date: "2024-01-02", Amount: 300, Balance: fp(1200)},
				}}, nil
			},
		},
		narrator: &MockNarrativeGenerator{},
		store:    inmemory.NewStore(),
		mirror:   &MockReportMirror{},
	}
	f.scorer = &MockScoringGateway{
		ScoreFunc: func(ctx context.Context, txs []domain.ReconciledTransaction) (*domain.ScoreResult, error) {
			f.scored = txs
			return &domain.ScoreResult{CreditScore: 712, MarketAnalysis: domain.MarketAnalysis{Status: "Good"}}, nil
		},
	}
	return f
}

func (f *fixture) analyzer() *pipeline.Analyzer {
	return pipeline.NewAnalyzer(pipeline.Deps{
		Storage:   f.storage,
		Source:    f.source,
		Extractor: f.extractor,
		Scorer:    f.scorer,
		Narrator:  f.narrator,
		Store:     f.store,
		Mirror:    f.mirror,
	})
}

func TestAnalyzePDF_ReconcilesScoresAndPersists(t *testing.T) {
	f := newFixture()
	var mirrored *domain.CreditReport
	f.mirror.MirrorReportFunc = func(ctx context.Context, r *domain.CreditReport) error {
		mirrored = r
		return nil
	}

	res, err := f.analyzer().AnalyzePDF(context.Background(), "user-1", []byte("%PDF"))
	require.NoError(t, err)

	// Opening balance 1,000.00 is scraped from the statement text.
	require.Len(t, f.scored, 2)
	assert.Equal(t, 500.0, f.scored[0].Amount)
	assert.Equal(t, -300.0, f.scored[1].Amount)

	assert.True(t, res.Saved)
	assert.NoError(t, res.PersistErr)
	assert.Equal(t, 712, res.Report.CreditScore)
	assert.Equal(t, "Good", res.Report.RiskCategory)
	assert.Equal(t, "mock summary", res.Report.AISummary.Summary)
	assert.False(t, res.Report.CreatedAt.IsZero())

	stored, err := f.store.GetLatest(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, f.scored, stored.ParsedTransactions)

	require.NotNil(t, mirrored)
	assert.Equal(t, "user-1", mirrored.UserID)
}

func TestAnalyzePDF_ModelOpeningBalanceWins(t *testing.T) {
	f := newFixture()
	f.extractor.ExtractCandidatesFunc = func(ctx context.Context, text string, maxChars int) (*domain.Extraction, error) {
		return &domain.Extraction{
			OpeningBalance: fp(1400),
			Candidates:     []domain.CandidateTransaction{{Description: "Salary", Amount: 1, Balance: fp(1500)}},
		}, nil
	}

	_, err := f.analyzer().AnalyzePDF(context.Background(), "", []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, 100.0, f.scored[0].Amount)
}

func TestAnalyzePDF_NoUserIDSkipsPersistence(t *testing.T) {
	f := newFixture()
	called := false
	f.store = &MockReportStore{
		UpsertLatestFunc: func(ctx context.Context, userID string, r *domain.CreditReport) (*domain.CreditReport, error) {
			called = true
			return r, nil
		},
	}

	res, err := f.analyzer().AnalyzePDF(context.Background(), "", []byte("%PDF"))
	require.NoError(t, err)
	assert.False(t, called)
	assert.False(t, res.Saved)
	assert.NoError(t, res.PersistErr)
}

func TestAnalyzePDF_PersistenceFailureIsNonFatal(t *testing.T) {
	f := newFixture()
	f.store = &MockReportStore{
		UpsertLatestFunc: func(ctx context.Context, userID string, r *domain.CreditReport) (*domain.CreditReport, error) {
			return nil, errors.New("connection refused")
		},
	}

	res, err := f.analyzer().AnalyzePDF(context.Background(), "user-1", []byte("%PDF"))
	require.NoError(t, err)
	assert.False(t, res.Saved)
	assert.True(t, errors.Is(res.PersistErr, pipeline.ErrPersistence))
	assert.Equal(t, 712, res.Report.CreditScore)
}

func TestAnalyzePDF_MirrorFailureIsNonFatal(t *testing.T) {
	f := newFixture()
	f.mirror.MirrorReportFunc = func(ctx context.Context, r *domain.CreditReport) error {
		return errors.New("notion down")
	}

	res, err := f.analyzer().AnalyzePDF(context.Background(), "user-1", []byte("%PDF"))
	require.NoError(t, err)
	assert.True(t, res.Saved)
}

func TestAnalyzePDF_StageFailures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *fixture)
		wantErr error
	}{
		{
			name: "text extraction",
			setup: func(f *fixture) {
				f.source.ExtractTextFunc = func(ctx context.Context, pdf []byte) (string, error) {
					return "", errors.New("scanned pdf")
				}
			},
			wantErr: pipeline.ErrExtraction,
		},
		{
			name: "model extraction",
			setup: func(f *fixture) {
				f.extractor.ExtractCandidatesFunc = func(ctx context.Context, text string, maxChars int) (*domain.Extraction, error) {
					return nil, errors.New("unparseable output")
				}
			},
			wantErr: pipeline.ErrExtraction,
		},
		{
			name: "no transactions",
			setup: func(f *fixture) {
				f.extractor.ExtractCandidatesFunc = func(ctx context.Context, text string, maxChars int) (*domain.Extraction, error) {
					return &domain.Extraction{}, nil
				}
			},
			wantErr: pipeline.ErrNoTransactions,
		},
		{
			name: "malformed candidate",
			setup: func(f *fixture) {
				f.extractor.ExtractCandidatesFunc = func(ctx context.Context, text string, maxChars int) (*domain.Extraction, error) {
					return &domain.Extraction{Candidates: []domain.CandidateTransaction{{Description: "", Amount: 1}}}, nil
				}
			},
			wantErr: pipeline.ErrReconciliation,
		},
		{
			name: "scoring",
			setup: func(f *fixture) {
				f.scorer.ScoreFunc = func(ctx context.Context, txs []domain.ReconciledTransaction) (*domain.ScoreResult, error) {
					return nil, errors.New("502 from scorer")
				}
			},
			wantErr: pipeline.ErrScoring,
		},
		{
			name: "narrative",
			setup: func(f *fixture) {
				f.narrator.NarrateFunc = func(ctx context.Context, score *domain.ScoreResult) (*domain.Narrative, error) {
					return nil, errors.New("quota")
				}
			},
			wantErr: pipeline.ErrNarrative,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setup(f)

			res, err := f.analyzer().AnalyzePDF(context.Background(), "user-1", []byte("%PDF"))
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)

			// Nothing is persisted when an earlier stage fails.
			_, getErr := f.store.GetLatest(context.Background(), "user-1")
			assert.Error(t, getErr)
		})
	}
}

func TestAnalyzeGCS_FetchesStatement(t *testing.T) {
	f := newFixture()
	var fetched string
	f.storage.FetchFromGCSFunc = func(ctx context.Context, uri string) ([]byte, error) {
		fetched = uri
		return []byte("%PDF"), nil
	}

	_, err := f.analyzer().AnalyzeGCS(context.Background(), "user-1", "gs://bucket/statements/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "gs://bucket/statements/a.pdf", fetched)
}

func TestAnalyzeGCS_FetchFailure(t *testing.T) {
	f := newFixture()
	f.storage.FetchFromGCSFunc = func(ctx context.Context, uri string) ([]byte, error) {
		return nil, errors.New("object not found")
	}

	var named string
	f.storage.ExtractFilenameFromGCSURIFunc = func(uri string) string {
		named = uri
		return "missing.pdf"
	}

	_, err := f.analyzer().AnalyzeGCS(context.Background(), "user-1", "gs://bucket/missing.pdf")
	assert.True(t, errors.Is(err, pipeline.ErrExtraction))
	assert.Equal(t, "gs://bucket/missing.pdf", named)
	assert.Contains(t, err.Error(), "fetch missing.pdf")
	assert.Contains(t, err.Error(), "object not found")
}

func TestAnalyzeTransactions(t *testing.T) {
	f := newFixture()
	txs := []domain.ReconciledTransaction{{Description: "Salary", Date: "2024-01-01", Amount: 500}}

	res, err := f.analyzer().AnalyzeTransactions(context.Background(), txs)
	require.NoError(t, err)
	assert.Equal(t, txs, f.scored)
	assert.False(t, res.Saved)
	assert.Equal(t, 712, res.Report.CreditScore)

	_, err = f.analyzer().AnalyzeTransactions(context.Background(), nil)
	assert.True(t, errors.Is(err, pipeline.ErrReconciliation))
}
