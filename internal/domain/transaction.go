package domain

// CandidateTransaction is one statement line as returned by the extraction model.
// The sign of Amount is only trustworthy when the statement had no balance column;
// Balance is the running balance after this line, or nil when the statement had none.
type CandidateTransaction struct {
	Description string   // from "description"
	Date        string   // YYYY-MM-DD when it could be normalized, otherwise as printed
	Amount      float64  // from "amount" (IN = positive, OUT = negative, best effort)
	Balance     *float64 // from "balance" or nil
}

// ReconciledTransaction is a transaction with a reliable signed amount.
// It is what the scoring engine receives and what a stored report carries.
type ReconciledTransaction struct {
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Amount      float64 `json:"amount"`
}

// Extraction is the full output of the candidate extractor for one statement.
type Extraction struct {
	Candidates     []CandidateTransaction
	OpeningBalance *float64
}
