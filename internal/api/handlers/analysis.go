package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/credit-report/internal/api/middleware"
	"github.com/dvloznov/credit-report/internal/domain"
	"github.com/dvloznov/credit-report/internal/logger"
)

// DefaultMaxUploadBytes is used when the handler is built with a zero limit.
const DefaultMaxUploadBytes = 10 << 20

var pdfMagic = []byte("%PDF")

// AnalysisResponse is the report plus persistence status.
type AnalysisResponse struct {
	*domain.CreditReport
	Saved               bool `json:"saved"`
	PersistenceDegraded bool `json:"persistence_degraded,omitempty"`
}

// AnalysisHandler serves the synchronous analysis endpoints.
type AnalysisHandler struct {
	analyzer       Analyzer
	maxUploadBytes int64
	log            zerolog.Logger
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(analyzer Analyzer, maxUploadBytes int64, log zerolog.Logger) *AnalysisHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &AnalysisHandler{analyzer: analyzer, maxUploadBytes: maxUploadBytes, log: log}
}

// AnalyzePDF handles POST /api/analyze-pdf (multipart field "file").
// The report is saved when the caller sent a user id.
func (h *AnalysisHandler) AnalyzePDF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	data, ok := readUploadedPDF(w, r, h.maxUploadBytes)
	if !ok {
		return
	}

	userID := middleware.UserIDFromContext(ctx)
	res, err := h.analyzer.AnalyzePDF(ctx, userID, data)
	if err != nil {
		writeAnalysisError(w, log, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, AnalysisResponse{
		CreditReport:        res.Report,
		Saved:               res.Saved,
		PersistenceDegraded: res.PersistErr != nil,
	})
}

// AnalyzeCredit handles POST /api/analyze-credit with a JSON array of
// already-signed transactions. Nothing is stored.
func (h *AnalysisHandler) AnalyzeCredit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var txs []domain.ReconciledTransaction
	if err := json.NewDecoder(io.LimitReader(r.Body, h.maxUploadBytes)).Decode(&txs); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Request body must be a JSON array of transactions")
		return
	}
	if len(txs) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "At least one transaction is required")
		return
	}

	res, err := h.analyzer.AnalyzeTransactions(ctx, txs)
	if err != nil {
		writeAnalysisError(w, logger.FromContext(ctx), err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, AnalysisResponse{CreditReport: res.Report})
}

// readUploadedPDF reads the "file" form field. On failure it has already
// written the error response.
func readUploadedPDF(w http.ResponseWriter, r *http.Request, maxBytes int64) ([]byte, bool) {
	if r.ContentLength > maxBytes {
		middleware.WriteError(w, http.StatusRequestEntityTooLarge, "File is too large")
		return nil, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "File is too large")
			return nil, false
		}
		middleware.WriteError(w, http.StatusBadRequest, "No PDF file uploaded.")
		return nil, false
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "No PDF file uploaded.")
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Could not read uploaded file")
		return nil, false
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		middleware.WriteError(w, http.StatusBadRequest, "Uploaded file is not a PDF")
		return nil, false
	}
	return data, true
}
