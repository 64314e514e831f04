// Package text turns uploaded file bytes into plain text and, for tabular
// formats, an ordered table.
package text

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"trustbooks/pkg/apperrors"

	"go.uber.org/zap"
)

const (
	FormatPDF  = "pdf"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatXLS  = "xls"
)

// Document is the output of text extraction.
type Document struct {
	Format string
	Text   string
	// Table holds the rows of tabular formats, header first.
	Table [][]string
	// Preamble holds the free-form lines found above the table header.
	Preamble []string
	Pages    int
	Method   string
}

func (d Document) HasContent() bool {
	return strings.TrimSpace(d.Text) != ""
}

func (d Document) IsTabular() bool {
	return len(d.Table) > 1
}

// Strategy extracts one file format.
type Strategy interface {
	Extract(ctx context.Context, data []byte) (Document, error)
}

type Extractor struct {
	strategies map[string]Strategy
	logger     *zap.Logger
}

func NewExtractor(logger *zap.Logger) *Extractor {
	sheets := &SpreadsheetStrategy{logger: logger}
	return &Extractor{
		strategies: map[string]Strategy{
			FormatPDF:  &PDFStrategy{logger: logger},
			FormatCSV:  &CSVStrategy{},
			FormatXLSX: sheets,
			FormatXLS:  &XLSStrategy{},
		},
		logger: logger,
	}
}

// FormatOf maps a filename to its format by extension.
func FormatOf(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}

// Extract picks the strategy for filename's extension. Empty or scanned files
// give an empty Document, not an error; files the strategy cannot open give a
// *apperrors.ParseError.
func (e *Extractor) Extract(ctx context.Context, filename string, data []byte) (Document, error) {
	format := FormatOf(filename)
	strategy, ok := e.strategies[format]
	if !ok {
		return Document{}, &apperrors.ParseError{Format: format, Err: fmt.Errorf("unsupported file type %q", filepath.Ext(filename))}
	}
	if len(data) == 0 {
		return Document{Format: format}, nil
	}

	doc, err := strategy.Extract(ctx, data)
	if err != nil {
		return Document{Format: format}, &apperrors.ParseError{Format: format, Err: err}
	}
	doc.Format = format
	doc.Text = strings.TrimSpace(sanitizeUTF8(doc.Text))

	e.logger.Info("Text extraction completed",
		zap.String("file", filename),
		zap.String("method", doc.Method),
		zap.Int("pages", doc.Pages),
		zap.Int("rows", len(doc.Table)),
		zap.Int("text_length", len(doc.Text)),
	)

	return doc, nil
}

// sanitizeUTF8 drops invalid byte sequences and NUL bytes so the text can be
// stored in PostgreSQL.
func sanitizeUTF8(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "")
}

func rowText(row []string) string {
	cells := make([]string, 0, len(row))
	for _, c := range row {
		cells = append(cells, strings.TrimSpace(c))
	}
	return strings.Join(cells, " | ")
}

// renderTable builds the text form of a table: preamble lines, then every
// row pipe-separated, header first.
func renderTable(preamble []string, table [][]string) string {
	var b strings.Builder
	for _, line := range preamble {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	for _, row := range table {
		b.WriteString(rowText(row))
		b.WriteByte('\n')
	}
	return b.String()
}
