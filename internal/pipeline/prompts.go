package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dvloznov/credit-report/internal/domain"
)

// buildExtractionPrompt asks the model for every transaction line in text.
func buildExtractionPrompt(text string) string {
	basePrompt :=
		"You are a bank statement parser.\n\n" +
			"Task:\n" +
			"- Extract ALL transactions from the statement text below.\n" +
			"- List them in chronological order, oldest first. If the statement prints the newest\n" +
			"  transaction first, reverse it so the earliest transaction comes first.\n" +
			"- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n" +
			"- Output a single JSON object with two keys:\n" +
			"  \"opening_balance\": number or null (the balance before the first transaction, if printed)\n" +
			"  \"transactions\": array of objects\n\n" +
			"Each transaction object must have these fields:\n" +
			"- \"date\": string, ISO format \"YYYY-MM-DD\" when the date is unambiguous\n" +
			"- \"description\": string, the narration exactly as printed\n" +
			"- \"amount\": number (positive for money IN / credit, negative for money OUT / debit)\n" +
			"- \"balance\": number or null (the running balance printed on that line)\n\n"

	rulesPrompt :=
		"Rules:\n" +
			"- If the statement has separate withdrawal / deposit columns, convert to a single signed \"amount\".\n" +
			"- If the statement has no running balance column, set \"balance\" to null on every line.\n" +
			"- Do NOT include opening balance, closing balance, or summary lines as transactions.\n" +
			"- Do NOT invent or merge transactions.\n\n" +
			"Return ONLY valid raw JSON.\n" +
			"Do NOT wrap the response in code fences.\n" +
			"Output must begin with \"{\" and end with \"}\".\n"

	return basePrompt + rulesPrompt + "\nStatement text:\n" + text
}

// narrativeTier fixes how many list items the narrative carries for a score.
type narrativeTier struct {
	Label        string
	Strengths    int
	Weaknesses   int
	Improvements int
}

// tierForScore maps a credit score to its narrative list sizes.
func tierForScore(score int) narrativeTier {
	switch {
	case score >= 750:
		return narrativeTier{Label: "excellent", Strengths: 4, Weaknesses: 1, Improvements: 2}
	case score >= 650:
		return narrativeTier{Label: "good", Strengths: 3, Weaknesses: 2, Improvements: 3}
	case score >= 550:
		return narrativeTier{Label: "fair", Strengths: 2, Weaknesses: 3, Improvements: 3}
	default:
		return narrativeTier{Label: "poor", Strengths: 1, Weaknesses: 4, Improvements: 4}
	}
}

// buildNarrativePrompt asks for a structured summary of score.
func buildNarrativePrompt(score *domain.ScoreResult, tier narrativeTier) string {
	fhm := score.BehavioralInsights.FinancialHealthMetrics
	verdict := score.BehavioralInsights.AIVerdict
	diag := domain.MLDiagnostics{}
	if score.MLDiagnostics != nil {
		diag = *score.MLDiagnostics
	}

	categories := "{}"
	if len(score.BehavioralInsights.CategoryDistribution) > 0 {
		if b, err := json.Marshal(score.BehavioralInsights.CategoryDistribution); err == nil {
			categories = string(b)
		}
	}

	var b strings.Builder
	b.WriteString("You are a financial analyst. Summarize the credit report below for the account holder.\n\n")

	b.WriteString("Credit Report Data:\n")
	fmt.Fprintf(&b, "- Credit Score: %d (%s)\n", score.CreditScore, score.RiskCategory)
	fmt.Fprintf(&b, "- Monthly Income (avg): %s\n", fhm.MonthlyIncomeAvg)
	fmt.Fprintf(&b, "- Savings Rate: %s\n", fhm.SavingsRate)
	fmt.Fprintf(&b, "- Transparency Index: %s\n", fhm.TransparencyIndex)
	fmt.Fprintf(&b, "- Risky Spending: %s\n", score.BehavioralInsights.SpendingBreakdown.TotalRisky)
	fmt.Fprintf(&b, "- Spending Categories: %s\n", categories)
	fmt.Fprintf(&b, "- Risk Status: %s\n", verdict.RiskStatus)
	fmt.Fprintf(&b, "- Primary Impact Factor: %s\n", verdict.PrimaryImpactFactor)
	fmt.Fprintf(&b, "- Stability Bonus: %s\n", verdict.StabilityBonus)
	fmt.Fprintf(&b, "- Probability of Default: %s\n", diag.ProbabilityOfDefault)
	fmt.Fprintf(&b, "- NLP Classification Confidence: %s\n", diag.NLPClassificationConfidence)
	fmt.Fprintf(&b, "- Cash Usage Alert: %s\n\n", score.MarketAnalysis.CashUsageAlert)

	b.WriteString("Output STRICT JSON only, a single object with these keys:\n")
	b.WriteString("- \"summary\": string, at most 150 words, explaining why the score is " + tier.Label + "\n")
	fmt.Fprintf(&b, "- \"strengths\": array of exactly %d short strings\n", tier.Strengths)
	fmt.Fprintf(&b, "- \"weaknesses\": array of exactly %d short strings\n", tier.Weaknesses)
	fmt.Fprintf(&b, "- \"improvements\": array of exactly %d short, actionable strings\n\n", tier.Improvements)
	b.WriteString("Be concise and friendly. Do NOT wrap the response in code fences.\n")

	return b.String()
}
