package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/credit-report/internal/domain"
	"github.com/dvloznov/credit-report/internal/logger"
)

const scoreBody = `{
	"credit_score": 712,
	"risk_category": "Good",
	"behavioral_insights": {
		"financial_health_metrics": {"monthly_income_avg": 52000, "savings_rate": "18.5%"}
	},
	"ml_engine_diagnostics": {"probability_of_default": "4.2%"},
	"market_analysis": {"status": "Good"}
}`

func TestScore_PostsLedger(t *testing.T) {
	var got []map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/get-score", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, scoreBody)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second, nil)
	res, err := c.Score(context.Background(), []domain.ReconciledTransaction{
		{Description: "Salary", Date: "2024-01-01", Amount: 500},
		{Description: "Rent", Date: "2024-01-02", Amount: -300},
	})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, map[string]interface{}{"description": "Salary", "date": "2024-01-01", "amount": 500.0}, got[0])
	assert.Equal(t, -300.0, got[1]["amount"])

	assert.Equal(t, 712, res.CreditScore)
	assert.Equal(t, "Good", res.RiskCategory)
	assert.Equal(t, "18.5%", res.BehavioralInsights.FinancialHealthMetrics.SavingsRate.String())
	require.NotNil(t, res.MLDiagnostics)
	assert.Equal(t, "4.2%", res.MLDiagnostics.ProbabilityOfDefault.String())
}

func TestScore_EmptyLedgerIsArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		assert.Equal(t, "[]", string(b))
		io.WriteString(w, `{"credit_score": 300}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second, nil).Score(context.Background(), nil)
	require.NoError(t, err)
}

func TestScore_UpstreamErrorIsLoggedNotReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "Traceback: KeyError 'date'")
	}))
	defer srv.Close()

	buf := &bytes.Buffer{}
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(buf))

	_, err := NewClient(srv.URL, time.Second, nil).Score(ctx, []domain.ReconciledTransaction{{Description: "x"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstream))
	assert.Contains(t, err.Error(), "500")
	assert.NotContains(t, err.Error(), "Traceback")
	assert.Contains(t, buf.String(), "Traceback")
}

func TestScore_TransportAndDecodeErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>gateway</html>")
	}))
	_, err := NewClient(srv.URL, time.Second, nil).Score(context.Background(), nil)
	assert.Error(t, err)
	srv.Close()

	_, err = NewClient(srv.URL, time.Second, nil).Score(context.Background(), nil)
	assert.Error(t, err)
}

func TestScore_ContextTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewClient(srv.URL, 0, nil).Score(ctx, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "deadline"))
}
