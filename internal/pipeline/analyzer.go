package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/credit-report/internal/domain"
	"github.com/dvloznov/credit-report/internal/logger"
)

// Deps wires the analyzer's collaborators. Storage, Store and Mirror are optional.
type Deps struct {
	Storage   StorageService
	Source    TextSource
	Extractor CandidateExtractor
	Scorer    ScoringGateway
	Narrator  NarrativeGenerator
	Store     ReportStore
	Mirror    ReportMirror

	MaxChars       int
	ScoringTimeout time.Duration
	LLMTimeout     time.Duration
}

// Analyzer runs the statement-to-report chain.
type Analyzer struct {
	deps Deps
}

// NewAnalyzer creates an Analyzer. A zero MaxChars falls back to DefaultMaxChars.
func NewAnalyzer(deps Deps) *Analyzer {
	if deps.MaxChars == 0 {
		deps.MaxChars = DefaultMaxChars
	}
	return &Analyzer{deps: deps}
}

// Result is the outcome of one analysis.
type Result struct {
	Report     *domain.CreditReport
	Score      *domain.ScoreResult
	Saved      bool
	PersistErr error
}

// NewStatementAnalysisPipeline creates the standard pipeline for analysing a statement.
func (a *Analyzer) NewStatementAnalysisPipeline() *Pipeline {
	return NewPipeline(
		&FetchStatementStep{Storage: a.deps.Storage},
		&ExtractTextStep{Source: a.deps.Source},
		&ExtractCandidatesStep{Extractor: a.deps.Extractor, MaxChars: a.deps.MaxChars, Timeout: a.deps.LLMTimeout},
		&ReconcileStep{},
		&ScoreStep{Scorer: a.deps.Scorer, Timeout: a.deps.ScoringTimeout},
		&NarrateStep{Narrator: a.deps.Narrator, Timeout: a.deps.LLMTimeout},
		&AssembleReportStep{},
		&PersistReportStep{Store: a.deps.Store, Mirror: a.deps.Mirror},
	)
}

// NewLedgerScoringPipeline scores an already-signed ledger without persisting it.
func (a *Analyzer) NewLedgerScoringPipeline() *Pipeline {
	return NewPipeline(
		&ScoreStep{Scorer: a.deps.Scorer, Timeout: a.deps.ScoringTimeout},
		&NarrateStep{Narrator: a.deps.Narrator, Timeout: a.deps.LLMTimeout},
		&AssembleReportStep{},
	)
}

// AnalyzePDF analyses an uploaded statement. The report is persisted when userID is set.
func (a *Analyzer) AnalyzePDF(ctx context.Context, userID string, pdf []byte) (*Result, error) {
	return a.run(ctx, a.NewStatementAnalysisPipeline(), &PipelineState{UserID: userID, PDFBytes: pdf})
}

// AnalyzeGCS analyses a statement stored at gcsURI.
func (a *Analyzer) AnalyzeGCS(ctx context.Context, userID, gcsURI string) (*Result, error) {
	return a.run(ctx, a.NewStatementAnalysisPipeline(), &PipelineState{UserID: userID, GCSURI: gcsURI})
}

// AnalyzeTransactions scores a caller-supplied ledger. Nothing is persisted.
func (a *Analyzer) AnalyzeTransactions(ctx context.Context, txs []domain.ReconciledTransaction) (*Result, error) {
	if len(txs) == 0 {
		return nil, NewStageError(KindReconciliation, ErrNoTransactions)
	}
	return a.run(ctx, a.NewLedgerScoringPipeline(), &PipelineState{Transactions: txs})
}

func (a *Analyzer) run(ctx context.Context, p *Pipeline, state *PipelineState) (*Result, error) {
	log := logger.FromContext(ctx)
	if state.UserID != "" {
		log = log.With().Str("user_id", state.UserID).Logger()
		ctx = logger.WithContext(ctx, log)
	}

	start := time.Now()
	if err := p.Execute(ctx, state); err != nil {
		return nil, fmt.Errorf("Analyze: %w", err)
	}

	log.Info().
		Int("credit_score", state.Report.CreditScore).
		Bool("saved", state.Saved).
		Dur("took", time.Since(start)).
		Msg("Statement analysis completed")

	return &Result{
		Report:     state.Report,
		Score:      state.Score,
		Saved:      state.Saved,
		PersistErr: state.PersistErr,
	}, nil
}
