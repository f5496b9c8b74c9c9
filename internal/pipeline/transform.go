package pipeline

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/credit-report/internal/domain"
	"github.com/dvloznov/credit-report/internal/pdftext"
)

// transformModelOutputToExtraction converts raw model output into candidates.
// It accepts either {"opening_balance": ..., "transactions": [...]} or a bare array.
func transformModelOutputToExtraction(rawOutput interface{}) (*domain.Extraction, error) {
	var (
		txAny   interface{}
		opening *float64
	)

	switch v := rawOutput.(type) {
	case []interface{}:
		txAny = v
	case map[string]interface{}:
		var ok bool
		txAny, ok = v["transactions"]
		if !ok {
			return nil, fmt.Errorf("transformModelOutputToExtraction: missing 'transactions' key in model output")
		}
		ob, err := getOptionalFloat64Field(v, "opening_balance")
		if err != nil {
			return nil, fmt.Errorf("transformModelOutputToExtraction: %w", err)
		}
		opening = ob
	default:
		return nil, fmt.Errorf("transformModelOutputToExtraction: model output is %T, want object or array", rawOutput)
	}

	txSlice, ok := txAny.([]interface{})
	if !ok {
		return nil, fmt.Errorf("transformModelOutputToExtraction: 'transactions' is %T, want []interface{}", txAny)
	}

	result := make([]domain.CandidateTransaction, 0, len(txSlice))

	for i, item := range txSlice {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("transformModelOutputToExtraction: element %d is %T, want map[string]interface{}", i, item)
		}

		// Blank descriptions are left for reconcile.Validate to reject.
		desc, err := getStringField(obj, "description", false)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		dateStr, err := getStringField(obj, "date", false)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		amount, err := getFloat64Field(obj, "amount", true)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		balance, err := getOptionalFloat64Field(obj, "balance")
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}

		result = append(result, domain.CandidateTransaction{
			Description: strings.TrimSpace(desc),
			Date:        normalizeDate(dateStr),
			Amount:      amount,
			Balance:     balance,
		})
	}

	return &domain.Extraction{Candidates: result, OpeningBalance: opening}, nil
}

// dateLayouts are the statement date formats seen in practice, day-first.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"02.01.2006",
	"02/01/06",
	"02-01-06",
	"02 Jan 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"02-Jan-06",
	"02 January 2006",
	"Jan 2, 2006",
}

// normalizeDate returns YYYY-MM-DD when s matches a known layout, else s unchanged.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t).String()
		}
	}
	return s
}

func getStringField(m map[string]interface{}, key string, required bool) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("missing required field %q", key)
		}
		return "", nil
	}
	switch val := v.(type) {
	case string:
		if required && strings.TrimSpace(val) == "" {
			return "", fmt.Errorf("required field %q is empty", key)
		}
		return val, nil
	default:
		return "", fmt.Errorf("field %q has type %T, want string", key, v)
	}
}

func getOptionalStringField(m map[string]interface{}, key string) (*string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil, nil
		}
		return &s, nil
	default:
		return nil, fmt.Errorf("field %q has type %T, want string or null", key, v)
	}
}

func getFloat64Field(m map[string]interface{}, key string, required bool) (float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return 0, fmt.Errorf("missing required field %q", key)
		}
		return 0, nil
	}
	switch val := v.(type) {
	case float64:
		return val, nil
	case int: // unlikely from encoding/json, but harmless to support
		return float64(val), nil
	case string:
		// Models sometimes echo the printed figure, e.g. "1,250.00".
		f, err := pdftext.ParseAmount(val)
		if err != nil {
			return 0, fmt.Errorf("field %q: cannot parse %q as a number", key, val)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("field %q has type %T, want number", key, v)
	}
}

func getOptionalFloat64Field(m map[string]interface{}, key string) (*float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
		return nil, nil
	}
	f, err := getFloat64Field(m, key, true)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
