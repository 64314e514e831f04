package text

import "strings"

var (
	dateHeaderWords = []string{"date", "txn date", "value dt", "posting"}
	headerWords     = []string{
		"description", "narration", "particulars", "details", "remarks",
		"debit", "withdrawal", "dr", "credit", "deposit", "cr",
		"balance", "amount", "ref", "chq", "cheque", "account",
		"invoice", "vendor", "total", "gst", "qty", "quantity", "item", "rate",
	}
)

// splitHeader finds the header row of a table that may be preceded by a
// free-form block (bank name, address, account details). Rows above the
// header become the preamble. Without a recognizable header the first
// non-empty row is the header.
func splitHeader(rows [][]string) (preamble []string, table [][]string) {
	rows = dropEmptyRows(rows)
	if len(rows) == 0 {
		return nil, nil
	}

	header := 0
	for i, row := range rows {
		if looksLikeHeader(row) {
			header = i
			break
		}
	}

	for _, row := range rows[:header] {
		preamble = append(preamble, joinNonEmpty(row))
	}
	return preamble, rows[header:]
}

func looksLikeHeader(row []string) bool {
	hasDate := false
	others := 0
	for _, cell := range row {
		c := strings.ToLower(strings.TrimSpace(cell))
		if c == "" || len(c) > 40 {
			continue
		}
		if containsWord(c, dateHeaderWords) {
			hasDate = true
			continue
		}
		if containsWord(c, headerWords) {
			others++
		}
	}
	return (hasDate && others >= 2) || others >= 3
}

func containsWord(cell string, words []string) bool {
	for _, w := range words {
		if cell == w || strings.HasPrefix(cell, w+" ") || strings.HasSuffix(cell, " "+w) ||
			strings.Contains(cell, " "+w+" ") || strings.HasPrefix(cell, w+".") || strings.HasPrefix(cell, w+"(") {
			return true
		}
	}
	return false
}

func dropEmptyRows(rows [][]string) [][]string {
	out := rows[:0:0]
	for _, row := range rows {
		if joinNonEmpty(row) != "" {
			out = append(out, row)
		}
	}
	return out
}

func joinNonEmpty(row []string) string {
	parts := make([]string, 0, len(row))
	for _, c := range row {
		if c = strings.TrimSpace(c); c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, " ")
}
