package fields

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"trustbooks/internal/models"

	"github.com/shopspring/decimal"
)

var (
	gstinRe      = regexp.MustCompile(`^\d{2}[A-Z]{5}\d{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)
	currencyRe   = regexp.MustCompile(`^[A-Z]{3}$`)
	amountJunkRe = regexp.MustCompile(`(?i)(₹|\$|€|£|rs\.?|inr|usd|eur|gbp|\s|,)`)
	drCrSuffixRe = regexp.MustCompile(`(?i)\s*(dr|cr)\.?$`)
)

// maxAmount is the largest value a NUMERIC(15,2) column holds.
var maxAmount = decimal.RequireFromString("9999999999999.99")

// dateLayouts are tried in order; day-first layouts come before month-first
// ones so 03/04/2024 reads as 3 April.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"2/1/06",
	"2-1-06",
	"1/2/2006",
	"1/2/06",
	"2 Jan 2006",
	"2-Jan-2006",
	"2 Jan 06",
	"2-Jan-06",
	"2 January 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01-02T15:04:05Z07:00",
}

// normalizeDate returns the date formatted YYYY-MM-DD, or nil.
func normalizeDate(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "."))
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Year() < 1900 || t.Year() > 2100 {
			return nil
		}
		out := t.Format("2006-01-02")
		return &out
	}
	return nil
}

// parseAmount accepts numbers and numeric strings with currency symbols,
// thousands separators, a trailing Dr/Cr marker or accounting parentheses.
// The result is rounded to two decimal places.
func parseAmount(v any) *float64 {
	var d decimal.Decimal
	switch x := v.(type) {
	case float64:
		d = decimal.NewFromFloat(x)
	case int:
		d = decimal.NewFromInt(int64(x))
	case json.Number:
		parsed, err := decimal.NewFromString(x.String())
		if err != nil {
			return nil
		}
		d = parsed
	case string:
		s := strings.TrimSpace(x)
		negative := false
		if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
			negative = true
			s = strings.Trim(s, "()")
		}
		s = drCrSuffixRe.ReplaceAllString(s, "")
		s = amountJunkRe.ReplaceAllString(s, "")
		if s == "" || s == "-" {
			return nil
		}
		parsed, err := decimal.NewFromString(s)
		if err != nil {
			return nil
		}
		if negative {
			parsed = parsed.Neg()
		}
		d = parsed
	default:
		return nil
	}
	d = d.Round(2)
	if d.Abs().GreaterThan(maxAmount) {
		return nil
	}
	f, _ := d.Float64()
	return &f
}

// nonNegative drops negative amounts.
func nonNegative(p *float64) *float64 {
	if p == nil || *p < 0 {
		return nil
	}
	return p
}

// absAmount folds the sign of debit and credit columns, which some banks
// print as negative numbers.
func absAmount(p *float64) *float64 {
	if p == nil {
		return nil
	}
	if *p < 0 {
		v := -*p
		return &v
	}
	return p
}

func normalizeString(v any) *string {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case float64:
		s = decimal.NewFromFloat(x).String()
	case json.Number:
		s = x.String()
	default:
		return nil
	}
	s = strings.Join(strings.Fields(cleanText(s)), " ")
	switch strings.ToLower(s) {
	case "", "null", "none", "n/a", "na", "-":
		return nil
	}
	return &s
}

func normalizeGSTIN(v any) *string {
	s := normalizeString(v)
	if s == nil {
		return nil
	}
	g := strings.ToUpper(strings.ReplaceAll(*s, " ", ""))
	if !gstinRe.MatchString(g) {
		return nil
	}
	return &g
}

// normalizeAccount keeps digits only and rejects anything shorter than 8.
func normalizeAccount(v any) *string {
	s := normalizeString(v)
	if s == nil {
		return nil
	}
	var b strings.Builder
	for _, r := range *s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() < 8 {
		return nil
	}
	out := b.String()
	return &out
}

var modeAliases = map[string]string{
	"CHQ":         "CHEQUE",
	"CHECK":       "CHEQUE",
	"POS":         "CARD",
	"DEBIT CARD":  "CARD",
	"CREDIT CARD": "CARD",
	"ATM":         "CASH",
}

func normalizeMode(v any) *string {
	s := normalizeString(v)
	if s == nil {
		return nil
	}
	m := strings.ToUpper(*s)
	for _, allowed := range models.TransactionModes {
		if m == allowed {
			return &m
		}
	}
	if alias, ok := modeAliases[m]; ok {
		return &alias
	}
	return nil
}

var currencySymbols = map[string]string{
	"₹": "INR", "RS": "INR", "RS.": "INR", "RUPEES": "INR",
	"$": "USD", "US$": "USD",
	"€": "EUR",
	"£": "GBP",
}

func normalizeCurrency(v any) *string {
	s := normalizeString(v)
	if s == nil {
		return nil
	}
	c := strings.ToUpper(*s)
	if mapped, ok := currencySymbols[c]; ok {
		c = mapped
	}
	if !currencyRe.MatchString(c) {
		return nil
	}
	return &c
}

func stringPtr(s string) *string { return &s }

func formatAmount(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

// cleanText removes what Postgres refuses in TEXT and JSONB values: NUL bytes
// and invalid UTF-8.
func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return s
}

// cleanMeta applies cleanText to every key and string value of a metadata tree.
func cleanMeta(v any) any {
	switch x := v.(type) {
	case string:
		return cleanText(x)
	case []string:
		out := make([]string, len(x))
		for i, s := range x {
			out[i] = cleanText(s)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cleanMeta(e)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(x))
		for i, m := range x {
			out[i] = cleanMeta(m).(map[string]any)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[cleanText(k)] = cleanMeta(e)
		}
		return out
	}
	return v
}
