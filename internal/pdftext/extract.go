// Package pdftext pulls plain text out of statement PDFs.
package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/dvloznov/credit-report/internal/logger"
)

var (
	// ErrUnreadable means no strategy produced text that looks like a statement.
	// Scanned or image-only PDFs end up here.
	ErrUnreadable = errors.New("no readable text in PDF")
	// ErrEmptyDocument is returned for zero-byte input or PDFs without pages.
	ErrEmptyDocument = errors.New("empty PDF document")
)

// Extractor implements the statement text source on top of ledongthuc/pdf.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractText returns the document's text with pages separated by a blank line.
func (e *Extractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	log := logger.FromContext(ctx)

	pages, err := ExtractPages(data)
	if err != nil {
		return "", fmt.Errorf("ExtractText: %w", err)
	}

	text := strings.Join(pages, "\n\n")
	log.Debug().Int("pages", len(pages)).Int("chars", len(text)).Msg("Extracted statement text")
	return text, nil
}

// ExtractPages returns the text of each page. Several strategies are tried in
// order of layout fidelity and the first readable result wins.
func ExtractPages(data []byte) (pages []string, err error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}

	// The pdf package panics on some malformed xref tables.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("ExtractPages: malformed PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("ExtractPages: open PDF: %w", err)
	}

	n := r.NumPage()
	if n == 0 {
		return nil, ErrEmptyDocument
	}

	strategies := []func(*pdf.Reader, int) []string{
		pagesByRow,
		pagesByPosition,
		pagesByFontText,
		wholeDocumentText,
	}
	for _, extract := range strategies {
		if candidate := extract(r, n); IsReadable(candidate) {
			return candidate, nil
		}
	}

	return nil, ErrUnreadable
}

func pagesByRow(r *pdf.Reader, n int) []string {
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			continue
		}
		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			words := make([]string, 0, len(row.Content))
			for _, w := range row.Content {
				words = append(words, w.S)
			}
			if line := strings.TrimSpace(strings.Join(words, " ")); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

// columnGap is the horizontal distance, in points, treated as a column break.
const columnGap = 15

// pagesByPosition rebuilds lines from raw text runs grouped by baseline.
func pagesByPosition(r *pdf.Reader, n int) []string {
	type run struct {
		x float64
		s string
	}

	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content := p.Content()

		byLine := make(map[int][]run)
		for _, t := range content.Text {
			if strings.TrimSpace(t.S) == "" {
				continue
			}
			y := int(math.Round(t.Y))
			byLine[y] = append(byLine[y], run{x: t.X, s: t.S})
		}
		if len(byLine) == 0 {
			continue
		}

		ys := make([]int, 0, len(byLine))
		for y := range byLine {
			ys = append(ys, y)
		}
		// PDF y grows upwards.
		sort.Sort(sort.Reverse(sort.IntSlice(ys)))

		lines := make([]string, 0, len(ys))
		for _, y := range ys {
			runs := byLine[y]
			sort.Slice(runs, func(a, b int) bool { return runs[a].x < runs[b].x })

			var b strings.Builder
			for j, rn := range runs {
				if j > 0 && rn.x-runs[j-1].x > columnGap {
					b.WriteString("  ")
				}
				b.WriteString(rn.s)
			}
			if line := strings.TrimSpace(b.String()); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

func pagesByFontText(r *pdf.Reader, n int) []string {
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		for _, name := range p.Fonts() {
			f := p.Font(name)
			fonts[name] = &f
		}
		text, err := p.GetPlainText(fonts)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	return pages
}

func wholeDocumentText(r *pdf.Reader, _ int) []string {
	rd, err := r.GetPlainText()
	if err != nil {
		return nil
	}
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil
	}
	return []string{text}
}
