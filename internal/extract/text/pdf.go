package text

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// PDFStrategy reads the text layer with MuPDF and falls back to a pure Go
// reader when MuPDF cannot open the file or finds no text.
type PDFStrategy struct {
	logger *zap.Logger
}

func (s *PDFStrategy) Extract(ctx context.Context, data []byte) (Document, error) {
	doc, fitzErr := s.extractFitz(ctx, data)
	if fitzErr == nil && strings.TrimSpace(doc.Text) != "" {
		return doc, nil
	}
	if fitzErr != nil {
		s.logger.Warn("go-fitz failed, trying fallback reader", zap.Error(fitzErr))
	}

	fallback, err := extractPlain(data)
	if err != nil {
		if fitzErr != nil {
			return Document{}, fmt.Errorf("failed to open PDF: %w", fitzErr)
		}
		// MuPDF opened it but found nothing: a scanned document.
		return doc, nil
	}
	if strings.TrimSpace(fallback.Text) == "" && fitzErr == nil {
		return doc, nil
	}
	return fallback, nil
}

func (s *PDFStrategy) extractFitz(ctx context.Context, data []byte) (Document, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return Document{}, err
	}
	defer doc.Close()

	var textBuilder strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return Document{}, err
		}
		pageText, err := doc.Text(i)
		if err != nil {
			s.logger.Warn("Failed to extract text from page", zap.Int("page", i+1), zap.Error(err))
			continue
		}
		if pageText != "" {
			textBuilder.WriteString(pageText)
			textBuilder.WriteString("\n")
		}
	}

	return Document{
		Text:   textBuilder.String(),
		Pages:  doc.NumPage(),
		Method: "go-fitz",
	}, nil
}

func extractPlain(data []byte) (doc Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Document{}, err
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return Document{}, err
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return Document{}, err
	}

	return Document{
		Text:   string(b),
		Pages:  r.NumPage(),
		Method: "ledongthuc/pdf",
	}, nil
}
