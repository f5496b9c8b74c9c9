package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/credit-report/internal/domain"
	"github.com/dvloznov/credit-report/internal/logger"
	"github.com/dvloznov/credit-report/internal/pdftext"
	"github.com/dvloznov/credit-report/internal/reconcile"
)

// ErrNoTransactions is wrapped in an extraction failure when the model found nothing.
var ErrNoTransactions = errors.New("no transactions found in statement")

// PipelineStep represents a single step in the analysis pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	UserID string
	GCSURI string

	PDFBytes     []byte
	RawText      string
	Extraction   *domain.Extraction
	Transactions []domain.ReconciledTransaction
	Score        *domain.ScoreResult
	Narrative    *domain.Narrative
	Report       *domain.CreditReport

	// Saved is true once the report was persisted. PersistErr holds the
	// non-fatal persistence failure, if any.
	Saved      bool
	PersistErr error
}

// Step 1: FetchStatementStep downloads the PDF when the state only has a GCS URI.
type FetchStatementStep struct {
	Storage StorageService
}

func (s *FetchStatementStep) Execute(ctx context.Context, state *PipelineState) error {
	if len(state.PDFBytes) > 0 {
		return nil
	}
	if state.GCSURI == "" || s.Storage == nil {
		return NewStageError(KindExtraction, fmt.Errorf("FetchStatementStep: no document provided"))
	}
	name := s.Storage.ExtractFilenameFromGCSURI(state.GCSURI)
	pdfBytes, err := s.Storage.FetchFromGCS(ctx, state.GCSURI)
	if err != nil {
		return NewStageError(KindExtraction, fmt.Errorf("FetchStatementStep: fetch %s: %w", name, err))
	}
	logger.FromContext(ctx).Debug().
		Str("file", name).
		Int("bytes", len(pdfBytes)).
		Msg("Fetched statement")
	state.PDFBytes = pdfBytes
	return nil
}

// Step 2: ExtractTextStep pulls raw text out of the PDF.
type ExtractTextStep struct {
	Source TextSource
}

func (s *ExtractTextStep) Execute(ctx context.Context, state *PipelineState) error {
	text, err := s.Source.ExtractText(ctx, state.PDFBytes)
	if err != nil {
		return NewStageError(KindExtraction, err)
	}
	state.RawText = text
	return nil
}

// Step 3: ExtractCandidatesStep calls the extraction model on the raw text.
// When the model did not report an opening balance, one is scraped from the text.
type ExtractCandidatesStep struct {
	Extractor CandidateExtractor
	MaxChars  int
	Timeout   time.Duration
}

func (s *ExtractCandidatesStep) Execute(ctx context.Context, state *PipelineState) error {
	ctx, cancel := withOptionalTimeout(ctx, s.Timeout)
	defer cancel()

	extraction, err := s.Extractor.ExtractCandidates(ctx, state.RawText, s.MaxChars)
	if err != nil {
		return NewStageError(KindExtraction, err)
	}
	if len(extraction.Candidates) == 0 {
		return NewStageError(KindExtraction, ErrNoTransactions)
	}
	if extraction.OpeningBalance == nil {
		extraction.OpeningBalance = pdftext.ScrapeOpeningBalance(state.RawText)
	}
	state.Extraction = extraction
	return nil
}

// Step 4: ReconcileStep validates candidates and derives signed amounts.
// Balance deltas are taken between consecutive rows, so candidates must be
// oldest first; the extraction prompt asks the model for that order.
type ReconcileStep struct{}

func (s *ReconcileStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Extraction == nil {
		return NewStageError(KindReconciliation, fmt.Errorf("ReconcileStep: no candidates"))
	}
	candidates := state.Extraction.Candidates
	if err := reconcile.Validate(candidates); err != nil {
		return NewStageError(KindReconciliation, err)
	}

	state.Transactions = reconcile.Reconcile(candidates, state.Extraction.OpeningBalance)

	totals := reconcile.Totals(state.Transactions)
	logger.FromContext(ctx).Info().
		Int("transactions", totals.Count).
		Bool("balance_derived", reconcile.HasBalanceData(candidates)).
		Str("credits", totals.Credits.StringFixed(2)).
		Str("debits", totals.Debits.StringFixed(2)).
		Msg("Reconciled transactions")
	return nil
}

// Step 5: ScoreStep sends the ledger to the scoring engine.
type ScoreStep struct {
	Scorer  ScoringGateway
	Timeout time.Duration
}

func (s *ScoreStep) Execute(ctx context.Context, state *PipelineState) error {
	ctx, cancel := withOptionalTimeout(ctx, s.Timeout)
	defer cancel()

	score, err := s.Scorer.Score(ctx, state.Transactions)
	if err != nil {
		return NewStageError(KindScoring, err)
	}
	if score == nil {
		return NewStageError(KindScoring, fmt.Errorf("ScoreStep: empty score"))
	}
	score.Normalize()
	state.Score = score
	return nil
}

// Step 6: NarrateStep produces the human-readable summary.
type NarrateStep struct {
	Narrator NarrativeGenerator
	Timeout  time.Duration
}

func (s *NarrateStep) Execute(ctx context.Context, state *PipelineState) error {
	ctx, cancel := withOptionalTimeout(ctx, s.Timeout)
	defer cancel()

	narrative, err := s.Narrator.Narrate(ctx, state.Score)
	if err != nil {
		return NewStageError(KindNarrative, err)
	}
	state.Narrative = narrative
	return nil
}

// Step 7: AssembleReportStep builds the report document.
type AssembleReportStep struct{}

func (s *AssembleReportStep) Execute(ctx context.Context, state *PipelineState) error {
	var narrative domain.Narrative
	if state.Narrative != nil {
		narrative = *state.Narrative
	}
	state.Report = domain.NewCreditReport(state.UserID, state.Score, narrative, state.Transactions)
	return nil
}

// Step 8: PersistReportStep upserts the report for the user. Failures never
// abort the pipeline; they are recorded on the state and logged.
type PersistReportStep struct {
	Store  ReportStore
	Mirror ReportMirror
}

func (s *PersistReportStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)

	if state.UserID == "" || s.Store == nil {
		log.Debug().Msg("No user id on request, report not persisted")
		return nil
	}

	stored, err := s.Store.UpsertLatest(ctx, state.UserID, state.Report)
	if err != nil {
		state.PersistErr = NewStageError(KindPersistence, err)
		log.Error().Err(err).Str("user_id", state.UserID).Msg("Failed to save credit report")
		return nil
	}
	state.Report = stored
	state.Saved = true
	log.Info().Str("user_id", state.UserID).Int("credit_score", stored.CreditScore).Msg("Credit report saved")

	if s.Mirror != nil {
		if err := s.Mirror.MirrorReport(ctx, stored); err != nil {
			log.Warn().Err(err).Str("user_id", state.UserID).Msg("Failed to mirror credit report")
		}
	}
	return nil
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially and stops at the first error.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)
	for i, step := range p.steps {
		start := time.Now()
		if err := step.Execute(ctx, state); err != nil {
			log.Error().Err(err).Int("step", i+1).Str("stage", string(KindOf(err))).Msg("Pipeline step failed")
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
		log.Debug().Int("step", i+1).Str("step_type", fmt.Sprintf("%T", step)).Dur("took", time.Since(start)).Msg("Pipeline step done")
	}
	return nil
}
