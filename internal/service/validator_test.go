package service

import (
	"testing"

	"trustbooks/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileValidator(t *testing.T) {
	v := NewFileValidator(100)

	tests := []struct {
		name        string
		filename    string
		size        int64
		contentType string
		wantField   string
	}{
		{"pdf", "inv.pdf", 10, "application/pdf", ""},
		{"upper case extension", "INV.PDF", 10, "application/pdf", ""},
		{"csv as plain text", "s.csv", 10, "text/plain; charset=utf-8", ""},
		{"generic type", "s.xlsx", 10, "application/octet-stream", ""},
		{"no type", "s.xls", 10, "", ""},
		{"exact limit", "s.csv", 100, "text/csv", ""},
		{"empty name", "  ", 10, "", "file"},
		{"empty file", "s.csv", 0, "text/csv", ""},
		{"too large", "s.csv", 101, "text/csv", "file"},
		{"unsupported extension", "photo.png", 10, "image/png", "file"},
		{"no extension", "statement", 10, "", "file"},
		{"mismatched type", "inv.pdf", 10, "image/png", "content_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.filename, tt.size, tt.contentType)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var verr *apperrors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestFileValidator_Messages(t *testing.T) {
	v := NewFileValidator(100)

	var verr *apperrors.ValidationError
	require.ErrorAs(t, v.Validate("a.doc", 10, ""), &verr)
	assert.Equal(t, "Unsupported file type. Allowed types: .csv, .pdf, .xls, .xlsx", verr.Reason)

	require.ErrorAs(t, v.Validate("a.csv", 500, ""), &verr)
	assert.Equal(t, "File size exceeds maximum allowed size of 100 bytes", verr.Reason)
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"invoice.pdf":            "invoice.pdf",
		"my invoice (1).pdf":     "my_invoice_1.pdf",
		"../../etc/passwd.csv":   "passwd.csv",
		`C:\Users\me\bank.xlsx`:  "bank.xlsx",
		"счёт-фактура.pdf":       "счёт-фактура.pdf",
		"???.csv":                "csv",
		"":                       "file",
		".hidden":                "hidden",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeFilename(in), in)
	}
}
