package pdftext

import (
	"regexp"
	"strconv"
	"strings"
)

// openingLabelPattern matches the labels statements use for the balance
// carried into the period.
var openingLabelPattern = regexp.MustCompile(
	`(?i)(?:opening\s+balance|balance\s+brought\s+forward|brought\s+forward|balance\s+b/f|\bb/f\b)`,
)

// amountTokenPattern matches a number with an optional currency prefix and
// Cr/Dr suffix. Group 4 captures separator-joined trailers such as the
// "-04-2024" of a date, which rule the token out as an amount.
var amountTokenPattern = regexp.MustCompile(
	`(?i)(-?\s*(?:₹|rs\.?|inr|£|\$|€)?\s*-?)(\d[\d,]*)(\.\d+)?((?:[-/.]\d+)*)\s*(cr|dr)?\b`,
)

const openingWindow = 80

// ScrapeOpeningBalance looks for an opening-balance line in statement text.
// It returns nil when none is found or the amount does not parse.
//
// Only the rest of the labelled line is searched. Dates are skipped, and an
// amount with decimals, a currency marker or a Cr/Dr suffix wins over a bare
// integer that appears before it.
func ScrapeOpeningBalance(text string) *float64 {
	loc := openingLabelPattern.FindStringIndex(text)
	if loc == nil {
		return nil
	}

	rest := text[loc[1]:]
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[:i]
	}
	if len(rest) > openingWindow {
		rest = rest[:openingWindow]
	}
	if i := strings.Index(strings.ToLower(rest), "balance"); i >= 0 {
		rest = rest[:i]
	}

	var fallback []string
	for _, m := range amountTokenPattern.FindAllStringSubmatch(rest, -1) {
		if m[4] != "" {
			continue
		}
		prefix := strings.TrimSpace(strings.ReplaceAll(m[1], "-", ""))
		if m[3] != "" || prefix != "" || m[5] != "" {
			return openingAmount(m)
		}
		if fallback == nil {
			fallback = m
		}
	}
	if fallback == nil {
		return nil
	}
	return openingAmount(fallback)
}

func openingAmount(m []string) *float64 {
	v, err := ParseAmount(m[1] + m[2] + m[3])
	if err != nil {
		return nil
	}
	if strings.EqualFold(m[5], "dr") && v > 0 {
		v = -v
	}
	return &v
}

// ParseAmount converts strings like "1,234.56", "₹ 1,234.56" or "-£12" to a float64.
func ParseAmount(s string) (float64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, sym := range []string{"₹", "rs.", "rs", "inr", "£", "$", "€", ",", " ", "\u00a0"} {
		s = strings.ReplaceAll(s, sym, "")
	}
	if s == "" || s == "-" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
