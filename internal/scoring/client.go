// Package scoring is the HTTP client for the external risk-scoring engine.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/credit-report/internal/domain"
	"github.com/dvloznov/credit-report/internal/logger"
)

const (
	scorePath       = "/get-score"
	maxLoggedBody   = 4 << 10
	maxResponseBody = 8 << 20
)

// ErrUpstream is returned when the scoring engine answers with a non-2xx status.
var ErrUpstream = errors.New("scoring engine returned an error")

// Client posts reconciled ledgers to {baseURL}/get-score.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client. A nil httpClient uses one with the given timeout.
func NewClient(baseURL string, timeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// Score sends txs and decodes the engine's report.
func (c *Client) Score(ctx context.Context, txs []domain.ReconciledTransaction) (*domain.ScoreResult, error) {
	log := logger.FromContext(ctx)

	if txs == nil {
		txs = []domain.ReconciledTransaction{}
	}
	body, err := json.Marshal(txs)
	if err != nil {
		return nil, fmt.Errorf("Score: marshal transactions: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+scorePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("Score: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Score: call scoring engine: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))
		log.Error().
			Int("status", resp.StatusCode).
			Str("body", string(b)).
			Msg("Scoring engine rejected request")
		return nil, fmt.Errorf("Score: status %d: %w", resp.StatusCode, ErrUpstream)
	}

	var result domain.ScoreResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&result); err != nil {
		return nil, fmt.Errorf("Score: decode response: %w", err)
	}

	log.Info().
		Int("transactions", len(txs)).
		Int("credit_score", result.CreditScore).
		Dur("took", time.Since(start)).
		Msg("Scoring engine responded")

	return &result, nil
}
