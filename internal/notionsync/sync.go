// Package notionsync mirrors each user's latest credit report into a Notion
// database, one page per user keyed by the "User ID" title.
package notionsync

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/credit-report/internal/domain"
	"github.com/dvloznov/credit-report/internal/logger"
)

// Notion property names of the reports database.
const (
	PropUserID       = "User ID"
	PropCreditScore  = "Credit Score"
	PropRiskCategory = "Risk Category"
	PropStatus       = "Status"
	PropSummary      = "Summary"
	PropTransactions = "Transactions"
	PropUpdated      = "Updated"
)

// Notion rejects rich text items longer than this.
const maxRichTextRunes = 2000

// ReportMirror upserts report pages. It satisfies pipeline.ReportMirror.
type ReportMirror struct {
	notion     NotionService
	databaseID string
}

// NewReportMirror creates a mirror writing into databaseID.
func NewReportMirror(notion NotionService, databaseID string) *ReportMirror {
	return &ReportMirror{notion: notion, databaseID: databaseID}
}

// MirrorReport creates or updates the user's page. Extra pages with the same
// user ID left by earlier failures are archived.
func (m *ReportMirror) MirrorReport(ctx context.Context, report *domain.CreditReport) error {
	if report == nil || report.UserID == "" {
		return fmt.Errorf("MirrorReport: report has no user id")
	}
	log := logger.FromContext(ctx).With().Str("user_id", report.UserID).Logger()

	pages, err := queryAllNotionPages(ctx, m.notion, m.databaseID)
	if err != nil {
		return fmt.Errorf("MirrorReport: %w", err)
	}

	var matches []notionapi.Page
	for _, page := range pages {
		if extractUserID(page) == report.UserID {
			matches = append(matches, page)
		}
	}

	props := ReportToNotionProperties(report)

	if len(matches) == 0 {
		page, err := m.notion.CreatePage(ctx, m.databaseID, props)
		if err != nil {
			return fmt.Errorf("MirrorReport: %w", err)
		}
		log.Info().Str("page_id", string(page.ID)).Msg("Created Notion report page")
		return nil
	}

	pageID := string(matches[0].ID)
	if _, err := m.notion.UpdatePage(ctx, pageID, props); err != nil {
		return fmt.Errorf("MirrorReport: %w", err)
	}
	log.Info().Str("page_id", pageID).Msg("Updated Notion report page")

	for _, dup := range matches[1:] {
		if err := m.notion.ArchivePage(ctx, string(dup.ID)); err != nil {
			log.Warn().Err(err).Str("page_id", string(dup.ID)).Msg("Failed to archive duplicate Notion page")
		}
	}
	return nil
}

// ReportToNotionProperties maps a report onto the reports database schema.
func ReportToNotionProperties(report *domain.CreditReport) notionapi.Properties {
	props := notionapi.Properties{
		PropUserID: notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: report.UserID},
				},
			},
		},
		PropCreditScore: notionapi.NumberProperty{
			Number: float64(report.CreditScore),
		},
		PropTransactions: notionapi.NumberProperty{
			Number: float64(len(report.ParsedTransactions)),
		},
	}

	if report.RiskCategory != "" {
		props[PropRiskCategory] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: report.RiskCategory},
		}
	}
	if status := report.MarketAnalysis.Status; status != "" {
		props[PropStatus] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: status},
		}
	}
	if summary := report.AISummary.Summary; summary != "" {
		props[PropSummary] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: truncateRunes(summary, maxRichTextRunes)},
				},
			},
		}
	}

	updated := report.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	d := notionapi.Date(updated)
	props[PropUpdated] = notionapi.DateProperty{
		Date: &notionapi.DateObject{Start: &d},
	}

	return props
}

// queryAllNotionPages follows the database cursor until every page is read.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: 100}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}

func extractUserID(page notionapi.Page) string {
	if prop, ok := page.Properties[PropUserID]; ok {
		if title, ok := prop.(*notionapi.TitleProperty); ok && len(title.Title) > 0 {
			return title.Title[0].PlainText
		}
	}
	return ""
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}
