// Package reconcile turns extractor candidates into signed transactions.
//
// Extraction models often misjudge debit versus credit. When a statement
// carries a running balance the true signed amount is the balance delta, so
// the engine recomputes each amount from consecutive balances and only falls
// back to the extractor's sign when no balance is available.
package reconcile

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/credit-report/internal/domain"
)

// ErrMalformedCandidate is returned by Validate for candidates the engine refuses to process.
var ErrMalformedCandidate = errors.New("malformed candidate transaction")

// Reconcile returns one signed transaction per candidate, in input order.
//
// If no candidate carries a balance, amounts pass through unchanged. Otherwise
// a cursor seeded with opening walks the sequence; a candidate with a balance
// gets amount = balance - cursor (rounded to cents) when the cursor is known,
// and moves the cursor to its balance. Candidates without a balance keep their
// extracted amount and leave the cursor on the last known balance.
//
// Reconcile is pure: the cursor lives only for the duration of the call.
func Reconcile(candidates []domain.CandidateTransaction, opening *float64) []domain.ReconciledTransaction {
	out := make([]domain.ReconciledTransaction, 0, len(candidates))
	if len(candidates) == 0 {
		return out
	}

	useBalances := HasBalanceData(candidates)

	var (
		prev    decimal.Decimal
		hasPrev bool
	)
	if opening != nil {
		prev = decimal.NewFromFloat(*opening)
		hasPrev = true
	}

	for _, c := range candidates {
		amount := c.Amount

		if useBalances && c.Balance != nil {
			bal := decimal.NewFromFloat(*c.Balance)
			if hasPrev {
				amount = bal.Sub(prev).Round(2).InexactFloat64()
			}
			prev = bal
			hasPrev = true
		}

		out = append(out, domain.ReconciledTransaction{
			Description: c.Description,
			Date:        c.Date,
			Amount:      amount,
		})
	}

	return out
}

// HasBalanceData reports whether any candidate carries a running balance.
func HasBalanceData(candidates []domain.CandidateTransaction) bool {
	for _, c := range candidates {
		if c.Balance != nil {
			return true
		}
	}
	return false
}

// Validate rejects candidates with an empty description or a non-finite
// amount or balance. The index of the first offender is reported.
func Validate(candidates []domain.CandidateTransaction) error {
	for i, c := range candidates {
		if strings.TrimSpace(c.Description) == "" {
			return fmt.Errorf("Validate: candidate %d: empty description: %w", i, ErrMalformedCandidate)
		}
		if !finite(c.Amount) {
			return fmt.Errorf("Validate: candidate %d: amount is not finite: %w", i, ErrMalformedCandidate)
		}
		if c.Balance != nil && !finite(*c.Balance) {
			return fmt.Errorf("Validate: candidate %d: balance is not finite: %w", i, ErrMalformedCandidate)
		}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Summary holds cent-exact totals over a reconciled ledger.
type Summary struct {
	Count   int
	Credits decimal.Decimal
	Debits  decimal.Decimal
	Net     decimal.Decimal
}

// Totals sums inflows and outflows. Debits are reported as a positive figure.
func Totals(txs []domain.ReconciledTransaction) Summary {
	s := Summary{Count: len(txs)}
	for _, tx := range txs {
		amt := decimal.NewFromFloat(tx.Amount)
		if amt.IsNegative() {
			s.Debits = s.Debits.Add(amt.Neg())
		} else {
			s.Credits = s.Credits.Add(amt)
		}
		s.Net = s.Net.Add(amt)
	}
	s.Credits = s.Credits.Round(2)
	s.Debits = s.Debits.Round(2)
	s.Net = s.Net.Round(2)
	return s
}
