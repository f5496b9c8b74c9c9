package pdftext

import (
	"strings"
	"unicode"
)

const (
	minReadableChars = 50
	minReadableRatio = 0.6
)

// statementWords are expected somewhere in any real bank statement.
var statementWords = []string{
	"account", "balance", "bank", "credit", "date", "debit", "deposit",
	"withdrawal", "statement", "transaction", "transfer", "opening",
	"closing", "amount", "narration", "particulars", "upi", "neft", "imps",
	"payment",
}

// IsReadable reports whether extracted pages look like decoded statement text
// rather than glyph soup from an identity-encoded or scanned PDF.
func IsReadable(pages []string) bool {
	var total, good, chars int
	for _, p := range pages {
		chars += len(strings.TrimSpace(p))
		for _, r := range p {
			total++
			if plainRune(r) {
				good++
			}
		}
	}
	if chars <= minReadableChars || total == 0 {
		return false
	}
	if float64(good)/float64(total) <= minReadableRatio {
		return false
	}

	lower := strings.ToLower(strings.Join(pages, " "))
	for _, w := range statementWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// plainRune accepts ASCII letters and digits, whitespace, common punctuation
// and currency signs. unicode.IsLetter is deliberately avoided: garbage from
// broken font maps is mostly accented Latin.
func plainRune(r rune) bool {
	switch {
	case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
		return true
	case unicode.IsSpace(r):
		return true
	}
	return strings.ContainsRune(".,-/:;()'\"%&@#!?+=*₹£$€", r)
}
