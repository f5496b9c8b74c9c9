package notionsync

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/credit-report/internal/domain"
)

// MockNotionService is a mock implementation of NotionService for testing.
type MockNotionService struct {
	CreatePageFunc    func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
	UpdatePageFunc    func(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error)
	QueryDatabaseFunc func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	ArchivePageFunc   func(ctx context.Context, pageID string) error
}

func (m *MockNotionService) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	return m.CreatePageFunc(ctx, databaseID, properties)
}

func (m *MockNotionService) UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error) {
	return m.UpdatePageFunc(ctx, pageID, properties)
}

func (m *MockNotionService) QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	return m.QueryDatabaseFunc(ctx, databaseID, req)
}

func (m *MockNotionService) ArchivePage(ctx context.Context, pageID string) error {
	return m.ArchivePageFunc(ctx, pageID)
}

func userPage(id, userID string) notionapi.Page {
	return notionapi.Page{
		ID: notionapi.ObjectID(id),
		Properties: notionapi.Properties{
			PropUserID: &notionapi.TitleProperty{Title: []notionapi.RichText{{PlainText: userID}}},
		},
	}
}

func sampleReport() *domain.CreditReport {
	return &domain.CreditReport{
		UserID:         "user-1",
		CreditScore:    712,
		RiskCategory:   "Good",
		MarketAnalysis: domain.MarketAnalysis{Status: "Good"},
		AISummary:      domain.Narrative{Summary: "Healthy cash flow."},
		ParsedTransactions: []domain.ReconciledTransaction{
			{Description: "Salary", Date: "2024-01-01", Amount: 500},
		},
		UpdatedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMirrorReport_CreatesPageWhenMissing(t *testing.T) {
	var createdIn string
	var createdProps notionapi.Properties
	notion := &MockNotionService{
		QueryDatabaseFunc: func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			return &notionapi.DatabaseQueryResponse{Results: []notionapi.Page{userPage("p-other", "user-2")}}, nil
		},
		CreatePageFunc: func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
			createdIn, createdProps = databaseID, properties
			return &notionapi.Page{ID: "p-new"}, nil
		},
	}

	err := NewReportMirror(notion, "db-1").MirrorReport(context.Background(), sampleReport())
	require.NoError(t, err)
	assert.Equal(t, "db-1", createdIn)
	assert.Equal(t, notionapi.NumberProperty{Number: 712}, createdProps[PropCreditScore])
}

func TestMirrorReport_UpdatesAcrossPagesAndArchivesDuplicates(t *testing.T) {
	var cursors []notionapi.Cursor
	var updated string
	var archived []string
	notion := &MockNotionService{
		QueryDatabaseFunc: func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			cursors = append(cursors, req.StartCursor)
			if req.StartCursor == "" {
				return &notionapi.DatabaseQueryResponse{
					Results:    []notionapi.Page{userPage("p-1", "user-2")},
					HasMore:    true,
					NextCursor: "c-2",
				}, nil
			}
			return &notionapi.DatabaseQueryResponse{
				Results: []notionapi.Page{userPage("p-2", "user-1"), userPage("p-3", "user-1")},
			}, nil
		},
		UpdatePageFunc: func(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error) {
			updated = pageID
			return &notionapi.Page{ID: notionapi.ObjectID(pageID)}, nil
		},
		ArchivePageFunc: func(ctx context.Context, pageID string) error {
			archived = append(archived, pageID)
			return nil
		},
	}

	err := NewReportMirror(notion, "db-1").MirrorReport(context.Background(), sampleReport())
	require.NoError(t, err)
	assert.Equal(t, []notionapi.Cursor{"", "c-2"}, cursors)
	assert.Equal(t, "p-2", updated)
	assert.Equal(t, []string{"p-3"}, archived)
}

func TestMirrorReport_Errors(t *testing.T) {
	notion := &MockNotionService{
		QueryDatabaseFunc: func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			return nil, errors.New("unauthorized")
		},
	}
	mirror := NewReportMirror(notion, "db-1")

	assert.ErrorContains(t, mirror.MirrorReport(context.Background(), sampleReport()), "unauthorized")
	assert.Error(t, mirror.MirrorReport(context.Background(), &domain.CreditReport{}))
	assert.Error(t, mirror.MirrorReport(context.Background(), nil))
}

func TestReportToNotionProperties(t *testing.T) {
	r := sampleReport()
	r.AISummary.Summary = strings.Repeat("a", 2500)

	props := ReportToNotionProperties(r)

	title, ok := props[PropUserID].(notionapi.TitleProperty)
	require.True(t, ok)
	assert.Equal(t, "user-1", title.Title[0].Text.Content)

	assert.Equal(t, notionapi.SelectProperty{Select: notionapi.Option{Name: "Good"}}, props[PropRiskCategory])
	assert.Equal(t, notionapi.NumberProperty{Number: 1}, props[PropTransactions])

	summary, ok := props[PropSummary].(notionapi.RichTextProperty)
	require.True(t, ok)
	assert.Equal(t, maxRichTextRunes, len([]rune(summary.RichText[0].Text.Content)))

	date, ok := props[PropUpdated].(notionapi.DateProperty)
	require.True(t, ok)
	assert.Equal(t, r.UpdatedAt, time.Time(*date.Date.Start))

	r.RiskCategory = ""
	r.AISummary.Summary = ""
	props = ReportToNotionProperties(r)
	assert.NotContains(t, props, PropRiskCategory)
	assert.NotContains(t, props, PropSummary)
}
