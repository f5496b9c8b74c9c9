package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/credit-report/internal/api/handlers"
	"github.com/dvloznov/credit-report/internal/api/middleware"
	"github.com/dvloznov/credit-report/internal/domain"
	"github.com/dvloznov/credit-report/internal/jobs/inmemory"
	"github.com/dvloznov/credit-report/internal/reportstore"
	reportmem "github.com/dvloznov/credit-report/internal/reportstore/inmemory"
)

func newTestRouter(t *testing.T, limiter *middleware.RateLimiter, withJobs bool) (http.Handler, reportstore.Store) {
	t.Helper()
	log := zerolog.Nop()
	store := reportmem.NewStore()

	h := Handlers{
		Analysis: handlers.NewAnalysisHandler(nil, 0, log),
		Reports:  handlers.NewReportsHandler(store, log),
		Chat:     handlers.NewChatHandler(nil, log),
	}
	if withJobs {
		h.Jobs = handlers.NewJobsHandler(inmemory.NewStore(), log)
	}
	return NewRouter(h, limiter, log), store
}

func TestRouter_Health(t *testing.T) {
	router, _ := newTestRouter(t, nil, false)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
	assert.NotEmpty(t, rec.Header().Get(middleware.HeaderRequestID))
}

func TestRouter_Reports(t *testing.T) {
	router, store := newTestRouter(t, nil, false)
	_, err := store.UpsertLatest(context.Background(), "user_7", &domain.CreditReport{CreditScore: 640})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/user_7", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"credit_score":640`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/nobody", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	router, _ := newTestRouter(t, nil, false)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/analyze-pdf"},
		{http.MethodGet, "/api/analyze-credit"},
		{http.MethodPut, "/api/chat"},
		{http.MethodPost, "/api/reports/user_1"},
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestRouter_OptionalRoutes(t *testing.T) {
	router, _ := newTestRouter(t, nil, false)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	router, _ = newTestRouter(t, nil, true)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_RateLimit(t *testing.T) {
	router, _ := newTestRouter(t, middleware.NewRateLimiter(0.001, 2), false)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(middleware.HeaderUserID, "user_1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Another client has its own budget.
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.HeaderUserID, "user_2")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t, nil, false)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/analyze-pdf", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), middleware.HeaderLegacyUserID)
}
