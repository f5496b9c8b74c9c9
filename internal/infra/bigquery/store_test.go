package bigquery

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/credit-report/internal/domain"
	"github.com/dvloznov/credit-report/internal/reportstore"
)

// MockReportRepository is a mock implementation of ReportRepository for testing.
// It keeps rows in a map and mimics MERGE semantics.
type MockReportRepository struct {
	rows           map[string]*ReportRow
	UpsertErr      error
	GetReportFunc  func(ctx context.Context, userID string) (*ReportRow, error)
	upsertRowsSeen int
}

func newMockRepo() *MockReportRepository {
	return &MockReportRepository{rows: make(map[string]*ReportRow)}
}

func (m *MockReportRepository) UpsertReport(ctx context.Context, row *ReportRow) error {
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	m.upsertRowsSeen++
	cp := *row
	if existing, ok := m.rows[row.UserID]; ok {
		cp.ReportID = existing.ReportID
		cp.CreatedTS = existing.CreatedTS
	}
	m.rows[row.UserID] = &cp
	return nil
}

func (m *MockReportRepository) GetReport(ctx context.Context, userID string) (*ReportRow, error) {
	if m.GetReportFunc != nil {
		return m.GetReportFunc(ctx, userID)
	}
	row, ok := m.rows[userID]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (m *MockReportRepository) Close() error { return nil }

func TestReportStore_GetLatestNotFound(t *testing.T) {
	s := NewReportStore(newMockRepo())

	_, err := s.GetLatest(context.Background(), "user-404")
	if !errors.Is(err, reportstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReportStore_UpsertKeepsCreatedAt(t *testing.T) {
	repo := newMockRepo()
	s := NewReportStore(repo)
	ctx := context.Background()

	t0 := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return t0 }
	first, err := s.UpsertLatest(ctx, "u1", &domain.CreditReport{CreditScore: 760, RiskCategory: "Excellent"})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if !first.CreatedAt.Equal(t0) {
		t.Errorf("CreatedAt = %v, want %v", first.CreatedAt, t0)
	}

	t1 := t0.Add(48 * time.Hour)
	s.now = func() time.Time { return t1 }
	second, err := s.UpsertLatest(ctx, "u1", &domain.CreditReport{
		CreditScore:        520,
		ParsedTransactions: []domain.ReconciledTransaction{{Description: "Rent", Amount: -300}},
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if !second.CreatedAt.Equal(t0) {
		t.Errorf("CreatedAt = %v, want %v", second.CreatedAt, t0)
	}
	if !second.UpdatedAt.Equal(t1) {
		t.Errorf("UpdatedAt = %v, want %v", second.UpdatedAt, t1)
	}
	if second.CreditScore != 520 || second.RiskCategory != "" {
		t.Errorf("expected whole-document replace, got score=%d category=%q", second.CreditScore, second.RiskCategory)
	}

	row := repo.rows["u1"]
	if row.TransactionCount != 1 {
		t.Errorf("TransactionCount = %d, want 1", row.TransactionCount)
	}
	if row.ReportDate.String() != "2024-02-03" {
		t.Errorf("ReportDate = %s, want 2024-02-03", row.ReportDate)
	}
}

func TestReportStore_UpsertErrorPropagates(t *testing.T) {
	repo := newMockRepo()
	repo.UpsertErr = errors.New("quota exceeded")
	s := NewReportStore(repo)

	_, err := s.UpsertLatest(context.Background(), "u1", &domain.CreditReport{})
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected wrapped repository error, got %v", err)
	}
}

func TestReportStore_ReadBackFailureFallsBackToWrittenRow(t *testing.T) {
	repo := newMockRepo()
	repo.GetReportFunc = func(ctx context.Context, userID string) (*ReportRow, error) {
		return nil, errors.New("read timeout")
	}
	s := NewReportStore(repo)

	got, err := s.UpsertLatest(context.Background(), "u1", &domain.CreditReport{CreditScore: 600})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.CreditScore != 600 || got.UserID != "u1" {
		t.Errorf("unexpected report %+v", got)
	}
}

func TestReportStore_UpsertReturnsOwnDocument(t *testing.T) {
	repo := newMockRepo()
	t0 := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	// Another writer's row lands between this MERGE and the read-back.
	repo.GetReportFunc = func(ctx context.Context, userID string) (*ReportRow, error) {
		return &ReportRow{
			UserID:     userID,
			ReportJSON: `{"credit_score":310,"risk_category":"Poor"}`,
			CreatedTS:  t0,
			UpdatedTS:  t0.Add(time.Hour),
		}, nil
	}
	s := NewReportStore(repo)
	t1 := t0.Add(24 * time.Hour)
	s.now = func() time.Time { return t1 }

	got, err := s.UpsertLatest(context.Background(), "u1", &domain.CreditReport{CreditScore: 780, RiskCategory: "Excellent"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.CreditScore != 780 || got.RiskCategory != "Excellent" {
		t.Errorf("expected the written document, got score=%d category=%q", got.CreditScore, got.RiskCategory)
	}
	if !got.CreatedAt.Equal(t0) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, t0)
	}
	if !got.UpdatedAt.Equal(t1) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, t1)
	}
}

func TestUpsertReportSQL(t *testing.T) {
	sql := upsertReportSQL(TableRef{ProjectID: "p", DatasetID: "d", Table: "credit_reports"})

	for _, want := range []string{
		"MERGE `p.d.credit_reports`",
		"ON T.user_id = S.user_id",
		"WHEN MATCHED THEN",
		"WHEN NOT MATCHED THEN",
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("merge statement missing %q", want)
		}
	}
	matched := sql[strings.Index(sql, "WHEN MATCHED"):strings.Index(sql, "WHEN NOT MATCHED")]
	if strings.Contains(matched, "created_ts") {
		t.Error("created_ts must not be updated on match")
	}
}
