package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/credit-report/internal/api/middleware"
	"github.com/dvloznov/credit-report/internal/pipeline"
)

// writeAnalysisError maps a pipeline failure onto an HTTP status. Upstream
// details are logged, never returned.
func writeAnalysisError(w http.ResponseWriter, log zerolog.Logger, err error) {
	kind := pipeline.KindOf(err)
	status, message := statusForKind(kind, err)

	log.Error().Err(err).Str("stage", string(kind)).Int("status", status).Msg("Analysis failed")

	code := string(kind)
	if code == "" {
		code = "internal_error"
	}
	middleware.WriteErrorCode(w, status, code, message)
}

func statusForKind(kind pipeline.StageKind, err error) (int, string) {
	switch kind {
	case pipeline.KindExtraction:
		if errors.Is(err, pipeline.ErrNoTransactions) {
			return http.StatusUnprocessableEntity, "No transactions found in the statement."
		}
		return http.StatusUnprocessableEntity, "Could not extract transactions from the statement. It may be a scanned or image-based PDF."
	case pipeline.KindReconciliation:
		return http.StatusUnprocessableEntity, "The extracted transactions could not be reconciled."
	case pipeline.KindScoring:
		return http.StatusBadGateway, "The scoring service is unavailable. Please try again later."
	case pipeline.KindNarrative:
		return http.StatusBadGateway, "The summary service is unavailable. Please try again later."
	default:
		return http.StatusInternalServerError, "Analysis failed."
	}
}
