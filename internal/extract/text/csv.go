package text

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

var candidateDelimiters = []rune{',', '\t', ';', '|'}

// CSVStrategy reads delimited text with a tolerant reader: unknown delimiter,
// ragged rows, stray quotes and a metadata block above the header are all
// accepted.
type CSVStrategy struct{}

func (s *CSVStrategy) Extract(ctx context.Context, data []byte) (Document, error) {
	content := strings.TrimPrefix(sanitizeUTF8(string(data)), "\uFEFF")
	delim := sniffDelimiter(content)

	r := csv.NewReader(strings.NewReader(content))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		if err := ctx.Err(); err != nil {
			return Document{}, err
		}
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return Document{}, err
		}
		rows = append(rows, record)
	}

	preamble, table := splitHeader(rows)
	return Document{
		Text:     renderTable(preamble, table),
		Table:    table,
		Preamble: preamble,
		Method:   "encoding/csv",
	}, nil
}

// sniffDelimiter picks the candidate that splits the most sample lines into
// the same number of fields.
func sniffDelimiter(content string) rune {
	var sample []string
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			sample = append(sample, line)
		}
		if len(sample) == 30 {
			break
		}
	}

	best, bestScore := ',', 0
	for _, d := range candidateDelimiters {
		counts := map[int]int{}
		for _, line := range sample {
			if n := strings.Count(line, string(d)); n > 0 {
				counts[n]++
			}
		}
		score := 0
		for _, c := range counts {
			if c > score {
				score = c
			}
		}
		if score > bestScore {
			best, bestScore = d, score
		}
	}
	return best
}
