package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDate(t *testing.T) {
	cases := map[string]string{
		"2024-01-15":       "2024-01-15",
		"15/01/2024":       "2024-01-15",
		"03/04/2024":       "2024-04-03",
		"12/25/2024":       "2024-12-25",
		"15-01-24":         "2024-01-15",
		"5 Mar 2024":       "2024-03-05",
		"15-Jan-2024":      "2024-01-15",
		"January 2, 2024":  "2024-01-02",
		"15.01.2024":       "2024-01-15",
	}
	for in, want := range cases {
		got := normalizeDate(in)
		if assert.NotNil(t, got, in) {
			assert.Equal(t, want, *got, in)
		}
	}

	for _, bad := range []any{"", "tomorrow", "32/13/2024", 20240115.0, nil} {
		assert.Nil(t, normalizeDate(bad), bad)
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   any
		want float64
	}{
		{"1,234.56", 1234.56},
		{"₹ 10,000", 10000},
		{"Rs. 99.999", 100},
		{"(250.00)", -250},
		{"1,500.00 Dr", 1500},
		{"INR 12", 12},
		{42.125, 42.13},
		{7, 7},
	}
	for _, c := range cases {
		got := parseAmount(c.in)
		require.NotNil(t, got, c.in)
		assert.InDelta(t, c.want, *got, 0.0001, c.in)
	}

	for _, bad := range []any{"", "-", "abc", nil, true} {
		assert.Nil(t, parseAmount(bad), bad)
	}
}

func TestNormalizeGSTIN(t *testing.T) {
	got := normalizeGSTIN(" 27aapfu0939f1zv ")
	require.NotNil(t, got)
	assert.Equal(t, "27AAPFU0939F1ZV", *got)

	assert.Nil(t, normalizeGSTIN("27AAPFU0939F1XV"))
	assert.Nil(t, normalizeGSTIN("12345"))
}

func TestNormalizeAccount(t *testing.T) {
	got := normalizeAccount("XXXX-1234-5678-90")
	require.NotNil(t, got)
	assert.Equal(t, "1234567890", *got)

	got = normalizeAccount(123456789.0)
	require.NotNil(t, got)
	assert.Equal(t, "123456789", *got)

	assert.Nil(t, normalizeAccount("XXXX1234"))
}

func TestNormalizeMode(t *testing.T) {
	assert.Equal(t, "UPI", *normalizeMode("upi"))
	assert.Equal(t, "CHEQUE", *normalizeMode("chq"))
	assert.Equal(t, "CARD", *normalizeMode("POS"))
	assert.Nil(t, normalizeMode("wire"))
}

func TestNonNegativeAndAbs(t *testing.T) {
	neg := -5.0
	assert.Nil(t, nonNegative(&neg))
	assert.Equal(t, 5.0, *absAmount(&neg))
	assert.Nil(t, absAmount(nil))
}

func TestParseAmountRejectsColumnOverflow(t *testing.T) {
	assert.Nil(t, parseAmount("99,999,999,999,999,999.99"))
	assert.Nil(t, nonNegative(parseAmount(1e16)))

	got := parseAmount("9,999,999,999,999.99")
	require.NotNil(t, got)
	assert.Equal(t, 9999999999999.99, *got)
}

func TestNormalizeStringStripsNUL(t *testing.T) {
	got := normalizeString("ACME\x00 Traders")
	require.NotNil(t, got)
	assert.Equal(t, "ACME Traders", *got)

	assert.Nil(t, normalizeString("\x00"))
}

func TestCleanMeta(t *testing.T) {
	in := map[string]any{
		"branch\x00": "MG\x00 Road",
		"columns":    []string{"Date\x00", "Amount"},
		"transactions": []map[string]any{
			{"description": "UPI\x00/Shop", "debit": "10.00"},
		},
		"notes": []any{"a\x00b", 3},
		"count": 2,
	}

	out := cleanMeta(in).(map[string]any)
	assert.Equal(t, "MG Road", out["branch"])
	assert.Equal(t, []string{"Date", "Amount"}, out["columns"])
	assert.Equal(t, "UPI/Shop", out["transactions"].([]map[string]any)[0]["description"])
	assert.Equal(t, []any{"ab", 3}, out["notes"])
	assert.Equal(t, 2, out["count"])
}
