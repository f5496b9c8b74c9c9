package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/credit-report/internal/api/middleware"
	"github.com/dvloznov/credit-report/internal/gcsuploader"
	"github.com/dvloznov/credit-report/internal/jobs"
)

// StatementsHandler archives statements in GCS and queues their analysis.
type StatementsHandler struct {
	storage        StatementUploader
	publisher      jobs.Publisher
	bucket         string
	maxUploadBytes int64
	log            zerolog.Logger
}

// NewStatementsHandler creates a new statements handler.
func NewStatementsHandler(storage StatementUploader, publisher jobs.Publisher, bucket string, maxUploadBytes int64, log zerolog.Logger) *StatementsHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &StatementsHandler{
		storage:        storage,
		publisher:      publisher,
		bucket:         bucket,
		maxUploadBytes: maxUploadBytes,
		log:            log,
	}
}

// UploadStatement handles POST /api/statements/upload (multipart field "file").
// With ?analyze=true the analysis is queued as well.
func (h *StatementsHandler) UploadStatement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.bucket == "" || h.storage == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Statement uploads are not configured")
		return
	}
	userID := middleware.UserIDFromContext(ctx)
	if userID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "X-User-ID header is required")
		return
	}

	data, ok := readUploadedPDF(w, r, h.maxUploadBytes)
	if !ok {
		return
	}

	filename := "statement.pdf"
	if r.MultipartForm != nil && len(r.MultipartForm.File["file"]) > 0 {
		filename = r.MultipartForm.File["file"][0].Filename
	}
	objectName := gcsuploader.StatementObjectName(userID, filename)

	gcsURI, err := h.storage.UploadBytes(ctx, h.bucket, objectName, data, "application/pdf")
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to upload statement")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to upload statement")
		return
	}

	h.log.Info().Str("user_id", userID).Str("gcs_uri", gcsURI).Int("bytes", len(data)).Msg("Statement uploaded")

	resp := map[string]string{
		"gcs_uri":     gcsURI,
		"object_name": objectName,
	}
	if r.URL.Query().Get("analyze") != "true" {
		middleware.WriteJSON(w, http.StatusCreated, resp)
		return
	}

	job, err := h.enqueue(r, userID, gcsURI)
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, "Statement uploaded but analysis could not be queued")
		return
	}
	resp["job_id"] = job.JobID
	resp["status"] = string(job.Status)
	middleware.WriteJSON(w, http.StatusAccepted, resp)
}

// EnqueueAnalysis handles POST /api/statements/analyze with {"gcs_uri": "..."}.
func (h *StatementsHandler) EnqueueAnalysis(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GCSURI string `json:"gcs_uri"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !strings.HasPrefix(req.GCSURI, "gs://") {
		middleware.WriteError(w, http.StatusBadRequest, "gcs_uri must be a gs:// URI")
		return
	}
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "X-User-ID header is required")
		return
	}

	job, err := h.enqueue(r, userID, req.GCSURI)
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue analysis job")
		return
	}

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":  job.JobID,
		"gcs_uri": job.GCSURI,
		"status":  string(job.Status),
	})
}

func (h *StatementsHandler) enqueue(r *http.Request, userID, gcsURI string) (*jobs.AnalyzeStatementJob, error) {
	job := &jobs.AnalyzeStatementJob{UserID: userID, GCSURI: gcsURI}
	if err := h.publisher.PublishAnalyzeStatement(r.Context(), job); err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Str("gcs_uri", gcsURI).Msg("Failed to enqueue analysis job")
		return nil, err
	}
	h.log.Info().Str("job_id", job.JobID).Str("user_id", userID).Str("gcs_uri", gcsURI).Msg("Enqueued analysis job")
	return job, nil
}
