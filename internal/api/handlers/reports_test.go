package handlers_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/credit-report/internal/api/handlers"
	"github.com/dvloznov/credit-report/internal/domain"
	"github.com/dvloznov/credit-report/internal/reportstore"
)

func TestGetReport(t *testing.T) {
	store := &MockReportReader{
		GetLatestFunc: func(ctx context.Context, userID string) (*domain.CreditReport, error) {
			switch userID {
			case "user_1":
				return sampleReport(userID), nil
			case "missing":
				return nil, fmt.Errorf("GetLatest: %w", reportstore.ErrNotFound)
			default:
				return nil, errors.New("bigquery: timeout")
			}
		},
	}
	h := handlers.NewReportsHandler(store, zerolog.Nop())

	t.Run("found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.GetReport(rec, httptest.NewRequest(http.MethodGet, "/api/reports/user_1", nil), "user_1")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "user_1", body["userId"])
		assert.Equal(t, float64(712), body["credit_score"])
	})

	t.Run("not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.GetReport(rec, httptest.NewRequest(http.MethodGet, "/api/reports/missing", nil), "missing")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not_found", decodeBody(t, rec)["error"])
	})

	t.Run("store failure", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.GetReport(rec, httptest.NewRequest(http.MethodGet, "/api/reports/other", nil), "other")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "bigquery")
	})
}
