package service

import (
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxFilenameLength = 128

// sanitizeFilename keeps the base name of an uploaded file safe to use as the
// tail of a storage key.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if !utf8.ValidString(name) {
		name = strings.ToValidUTF8(name, "")
	}

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('_')
		}
	}

	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "file"
	}

	if utf8.RuneCountInString(out) > maxFilenameLength {
		ext := filepath.Ext(out)
		runes := []rune(strings.TrimSuffix(out, ext))
		out = string(runes[:maxFilenameLength-utf8.RuneCountInString(ext)]) + ext
	}
	return out
}
