package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/credit-report/internal/jobs"
	"github.com/dvloznov/credit-report/internal/logger"
)

// JobHandler returns a queue handler that analyses archived statements.
// Extraction and reconciliation failures are not retried.
func (a *Analyzer) JobHandler() jobs.JobHandler {
	return func(ctx context.Context, job jobs.Job) error {
		analyzeJob, ok := job.(*jobs.AnalyzeStatementJob)
		if !ok {
			return fmt.Errorf("JobHandler: unexpected job type %T: %w", job, jobs.ErrPermanent)
		}

		log := logger.FromContext(ctx)
		log.Info().Str("gcs_uri", analyzeJob.GCSURI).Msg("Processing analysis job")

		res, err := a.AnalyzeGCS(ctx, analyzeJob.UserID, analyzeJob.GCSURI)
		if err != nil {
			switch KindOf(err) {
			case KindExtraction, KindReconciliation:
				return fmt.Errorf("%w: %w", jobs.ErrPermanent, err)
			}
			return err
		}

		analyzeJob.CreditScore = res.Report.CreditScore
		analyzeJob.Saved = res.Saved
		return nil
	}
}
