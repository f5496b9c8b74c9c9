package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/credit-report/internal/api/middleware"
	"github.com/dvloznov/credit-report/internal/reportstore"
)

// ReportsHandler handles report retrieval.
type ReportsHandler struct {
	store ReportReader
	log   zerolog.Logger
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(store ReportReader, log zerolog.Logger) *ReportsHandler {
	return &ReportsHandler{store: store, log: log}
}

// GetReport handles GET /api/reports/{userId}
func (h *ReportsHandler) GetReport(w http.ResponseWriter, r *http.Request, userID string) {
	report, err := h.store.GetLatest(r.Context(), userID)
	switch {
	case err == nil:
		middleware.WriteJSON(w, http.StatusOK, report)
	case errors.Is(err, reportstore.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "No report found for this user")
	case errors.Is(err, reportstore.ErrEmptyUserID):
		middleware.WriteError(w, http.StatusBadRequest, "User ID is required")
	default:
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to load report")
		middleware.WriteErrorCode(w, http.StatusInternalServerError, "store_unavailable", "Failed to load report")
	}
}
