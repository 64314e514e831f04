package service

import (
	"fmt"
	"mime"
	"path/filepath"
	"sort"
	"strings"

	"trustbooks/pkg/apperrors"
)

var allowedTypes = map[string][]string{
	".pdf": {"application/pdf", "application/x-pdf"},
	".csv": {"text/csv", "text/plain", "application/csv", "text/comma-separated-values", "application/vnd.ms-excel"},
	".xls": {"application/vnd.ms-excel", "application/msexcel", "application/x-msexcel", "application/x-excel"},
	".xlsx": {
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/zip",
	},
}

var genericTypes = map[string]bool{
	"":                         true,
	"application/octet-stream": true,
	"binary/octet-stream":      true,
}

// FileValidator checks an upload before anything is stored.
type FileValidator struct {
	maxSize int64
}

func NewFileValidator(maxSize int64) *FileValidator {
	return &FileValidator{maxSize: maxSize}
}

func (v *FileValidator) Validate(filename string, size int64, contentType string) error {
	if strings.TrimSpace(filename) == "" {
		return apperrors.NewValidationError("file", "", "No file provided")
	}
	if size > v.maxSize {
		return apperrors.NewValidationError("file", filename,
			fmt.Sprintf("File size exceeds maximum allowed size of %d bytes", v.maxSize))
	}

	ext := strings.ToLower(filepath.Ext(filename))
	mimes, ok := allowedTypes[ext]
	if !ok {
		return apperrors.NewValidationError("file", filename,
			"Unsupported file type. Allowed types: "+strings.Join(AllowedExtensions(), ", "))
	}

	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = parsed
	}
	if genericTypes[mediaType] {
		return nil
	}
	for _, m := range mimes {
		if m == mediaType {
			return nil
		}
	}
	return apperrors.NewValidationError("content_type", contentType,
		fmt.Sprintf("Content type does not match %s file", ext))
}

func AllowedExtensions() []string {
	out := make([]string, 0, len(allowedTypes))
	for ext := range allowedTypes {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
