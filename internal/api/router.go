package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/credit-report/internal/api/handlers"
	"github.com/dvloznov/credit-report/internal/api/middleware"
)

// Handlers groups the endpoint handlers. Statements and Jobs are optional;
// their routes are not registered when nil.
type Handlers struct {
	Analysis   *handlers.AnalysisHandler
	Reports    *handlers.ReportsHandler
	Chat       *handlers.ChatHandler
	Statements *handlers.StatementsHandler
	Jobs       *handlers.JobsHandler
}

// NewRouter registers the routes and wraps them in the middleware chain.
// A nil limiter disables rate limiting.
func NewRouter(h Handlers, limiter *middleware.RateLimiter, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/analyze-pdf", only(http.MethodPost, h.Analysis.AnalyzePDF))
	mux.HandleFunc("/api/analyze-credit", only(http.MethodPost, h.Analysis.AnalyzeCredit))
	mux.HandleFunc("/api/chat", only(http.MethodPost, h.Chat.Chat))

	mux.HandleFunc("/api/reports/", only(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		userID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/reports/"), "/")
		if userID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "User ID is required")
			return
		}
		h.Reports.GetReport(w, r, userID)
	}))

	if h.Statements != nil {
		mux.HandleFunc("/api/statements/upload", only(http.MethodPost, h.Statements.UploadStatement))
		mux.HandleFunc("/api/statements/analyze", only(http.MethodPost, h.Statements.EnqueueAnalysis))
	}

	if h.Jobs != nil {
		mux.HandleFunc("/api/jobs", only(http.MethodGet, h.Jobs.ListJobs))
		mux.HandleFunc("/api/jobs/", only(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			h.Jobs.GetJob(w, r, jobID)
		}))
	}

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	var handler http.Handler = mux
	if limiter != nil {
		handler = middleware.RateLimit(limiter)(handler)
	}

	return middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(
					middleware.UserIdentity(handler),
				),
			),
		),
	)
}

func only(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		next(w, r)
	}
}
