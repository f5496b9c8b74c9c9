package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// Metric is a loosely-typed value produced by the scoring engine.
// The engine reports some figures as numbers and others as strings such as
// "12.5%"; Metric keeps the raw JSON so stored reports round-trip unchanged.
type Metric struct {
	raw json.RawMessage
}

// NewMetric builds a Metric from any JSON-encodable value.
func NewMetric(v interface{}) Metric {
	b, err := json.Marshal(v)
	if err != nil {
		return Metric{}
	}
	return Metric{raw: b}
}

func (m Metric) MarshalJSON() ([]byte, error) {
	if len(m.raw) == 0 {
		return []byte("null"), nil
	}
	return m.raw, nil
}

func (m *Metric) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		m.raw = nil
		return nil
	}
	m.raw = append(json.RawMessage(nil), b...)
	return nil
}

// IsZero reports whether the metric was absent or null.
func (m Metric) IsZero() bool {
	return len(m.raw) == 0
}

// String renders the metric for display: strings unquoted, numbers as printed.
func (m Metric) String() string {
	if m.IsZero() {
		return ""
	}
	var s string
	if err := json.Unmarshal(m.raw, &s); err == nil {
		return s
	}
	return string(m.raw)
}

type FinancialHealthMetrics struct {
	MonthlyIncomeAvg  Metric `json:"monthly_income_avg"`
	SavingsRate       Metric `json:"savings_rate"`
	TransparencyIndex Metric `json:"transparency_index"`
}

type SpendingBreakdown struct {
	TotalIncome     Metric `json:"total_income"`
	TotalEssential  Metric `json:"total_essential"`
	TotalInvestment Metric `json:"total_investment"`
	TotalLeisure    Metric `json:"total_leisure"`
	TotalRisky      Metric `json:"total_risky"`
}

type AIVerdict struct {
	PrimaryImpactFactor string `json:"primary_impact_factor"`
	RiskStatus          string `json:"risk_status"`
	StabilityBonus      Metric `json:"stability_bonus"`
}

// BehavioralInsights groups the behavioural analysis returned by the scorer.
type BehavioralInsights struct {
	FinancialHealthMetrics FinancialHealthMetrics `json:"financial_health_metrics"`
	SpendingBreakdown      SpendingBreakdown      `json:"spending_breakdown_rupees"`
	AIVerdict              AIVerdict              `json:"ai_verdict"`
	CategoryDistribution   map[string]Metric      `json:"category_distribution,omitempty"`
}

type MLDiagnostics struct {
	ProbabilityOfDefault        Metric `json:"probability_of_default"`
	NLPClassificationConfidence Metric `json:"nlp_classification_confidence"`
	CapacityMultiplierUsed      Metric `json:"capacity_multiplier_used"`
	BehavioralTransparency      Metric `json:"behavioral_transparency,omitzero"`
}

type MarketAnalysis struct {
	Status                 string `json:"status"`
	DisciplineBonusApplied Metric `json:"discipline_bonus_applied,omitzero"`
	CashUsageAlert         Metric `json:"cash_usage_alert"`
}

// Narrative is the human-readable summary of a report.
type Narrative struct {
	Summary      string   `json:"summary"`
	Strengths    []string `json:"strengths"`
	Weaknesses   []string `json:"weaknesses"`
	Improvements []string `json:"improvements"`
}

// ScoreResult is the scoring engine's response. Older engines report the
// diagnostics block as "ml_pipeline"; Normalize folds it into MLDiagnostics.
type ScoreResult struct {
	CreditScore        int                `json:"credit_score"`
	RiskCategory       string             `json:"risk_category,omitempty"`
	BehavioralInsights BehavioralInsights `json:"behavioral_insights"`
	MLDiagnostics      *MLDiagnostics     `json:"ml_engine_diagnostics,omitempty"`
	MLPipeline         *MLDiagnostics     `json:"ml_pipeline,omitempty"`
	MarketAnalysis     MarketAnalysis     `json:"market_analysis"`
}

// Normalize fills derived fields so downstream code reads one shape.
func (s *ScoreResult) Normalize() {
	if s.MLDiagnostics == nil && s.MLPipeline != nil {
		s.MLDiagnostics = s.MLPipeline
	}
	s.MLPipeline = nil
	if s.MLDiagnostics == nil {
		s.MLDiagnostics = &MLDiagnostics{}
	}
	if s.RiskCategory == "" {
		s.RiskCategory = s.MarketAnalysis.Status
	}
	if s.RiskCategory == "" {
		s.RiskCategory = RiskCategoryForScore(s.CreditScore)
	}
}

// RiskCategoryForScore mirrors the scoring engine's own status bands and is
// only used when the engine omitted a category.
func RiskCategoryForScore(score int) string {
	switch {
	case score > 750:
		return "Excellent"
	case score > 650:
		return "Good"
	default:
		return "High Risk"
	}
}

// CreditReport is the persisted per-user report. Exactly one exists per user;
// every successful analysis replaces it.
type CreditReport struct {
	UserID             string                  `json:"userId"`
	CreditScore        int                     `json:"credit_score"`
	RiskCategory       string                  `json:"risk_category"`
	BehavioralInsights BehavioralInsights      `json:"behavioral_insights"`
	MLDiagnostics      MLDiagnostics           `json:"ml_engine_diagnostics"`
	MarketAnalysis     MarketAnalysis          `json:"market_analysis"`
	AISummary          Narrative               `json:"ai_summary"`
	ParsedTransactions []ReconciledTransaction `json:"parsed_transactions"`
	CreatedAt          time.Time               `json:"createdAt"`
	UpdatedAt          time.Time               `json:"updatedAt"`
}

// NewCreditReport assembles a report from the outputs of one analysis.
// Timestamps are left for the store to fill.
func NewCreditReport(userID string, score *ScoreResult, narrative Narrative, txs []ReconciledTransaction) *CreditReport {
	r := &CreditReport{
		UserID:             userID,
		AISummary:          narrative,
		ParsedTransactions: txs,
	}
	if score != nil {
		score.Normalize()
		r.CreditScore = score.CreditScore
		r.RiskCategory = score.RiskCategory
		r.BehavioralInsights = score.BehavioralInsights
		r.MLDiagnostics = *score.MLDiagnostics
		r.MarketAnalysis = score.MarketAnalysis
	}
	if r.ParsedTransactions == nil {
		r.ParsedTransactions = []ReconciledTransaction{}
	}
	return r
}

// Clone returns a deep copy so stores never share slices or maps with callers.
func (r *CreditReport) Clone() *CreditReport {
	if r == nil {
		return nil
	}
	c := *r
	if r.ParsedTransactions != nil {
		c.ParsedTransactions = make([]ReconciledTransaction, len(r.ParsedTransactions))
		copy(c.ParsedTransactions, r.ParsedTransactions)
	}
	c.AISummary.Strengths = cloneStrings(r.AISummary.Strengths)
	c.AISummary.Weaknesses = cloneStrings(r.AISummary.Weaknesses)
	c.AISummary.Improvements = cloneStrings(r.AISummary.Improvements)
	if r.BehavioralInsights.CategoryDistribution != nil {
		c.BehavioralInsights.CategoryDistribution = make(map[string]Metric, len(r.BehavioralInsights.CategoryDistribution))
		for k, v := range r.BehavioralInsights.CategoryDistribution {
			c.BehavioralInsights.CategoryDistribution[k] = v
		}
	}
	return &c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
