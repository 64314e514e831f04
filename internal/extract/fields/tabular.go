package fields

import (
	"strings"

	"trustbooks/internal/models"
)

type column int

const (
	colDate column = iota
	colDescription
	colDebit
	colCredit
	colBalance
	colAccount
	colRef
	colAmount
)

var columnAliases = map[column][]string{
	colDate:        {"date", "txn date", "transaction date", "tran date", "value date", "value dt", "posting date"},
	colDescription: {"description", "narration", "particulars", "details", "remarks", "transaction details", "transaction remarks"},
	colDebit:       {"debit", "debits", "withdrawal", "withdrawals", "dr", "withdrawal amt", "withdrawal amount", "debit amount", "debit amt"},
	colCredit:      {"credit", "credits", "deposit", "deposits", "cr", "deposit amt", "deposit amount", "credit amount", "credit amt"},
	colBalance:     {"balance", "closing balance", "running balance", "available balance", "balance amt"},
	colAccount:     {"account", "account number", "account no", "acc no", "a/c no", "acct no"},
	colRef:         {"ref", "reference", "ref no", "chq/ref no", "cheque no", "chq no", "ref no/cheque no", "utr"},
	colAmount:      {"amount", "txn amount", "transaction amount"},
}

// fallback substrings for headers like "Withdrawal Amt (INR)"
var columnKeywords = map[column][]string{
	colDate:        {"date"},
	colDescription: {"narration", "description", "particular", "remark"},
	colDebit:       {"withdrawal", "debit"},
	colCredit:      {"deposit", "credit"},
	colBalance:     {"balance"},
	colAccount:     {"account", "a/c"},
	colRef:         {"ref", "cheque", "chq"},
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer(".", "", "_", " ", "(inr)", "", "(rs)", "", "(₹)", "").Replace(h)
	return strings.Join(strings.Fields(h), " ")
}

// mapColumns assigns each known column to the first header cell that names it.
func mapColumns(header []string) map[column]int {
	idx := map[column]int{}
	used := map[int]bool{}
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = normalizeHeader(h)
	}

	for col := colDate; col <= colAmount; col++ {
		for i, h := range normalized {
			if used[i] {
				continue
			}
			if containsString(columnAliases[col], h) {
				idx[col] = i
				used[i] = true
				break
			}
		}
	}
	for col := colDate; col <= colRef; col++ {
		if _, ok := idx[col]; ok {
			continue
		}
		for i, h := range normalized {
			if used[i] {
				continue
			}
			if containsAny(h, columnKeywords[col]) {
				idx[col] = i
				used[i] = true
				break
			}
		}
	}
	return idx
}

// fromTable maps statement rows to transactions. Rows need a parseable date
// and a debit or credit. The record takes the first transaction; all of
// them go to meta_data.
func fromTable(table [][]string, header map[string]any) (*models.BankStatementFields, bool) {
	if len(table) < 2 {
		return nil, false
	}
	cols := mapColumns(table[0])
	if _, ok := cols[colDate]; !ok {
		return nil, false
	}
	_, hasDebit := cols[colDebit]
	_, hasCredit := cols[colCredit]
	_, hasAmount := cols[colAmount]
	if !hasDebit && !hasCredit && !hasAmount {
		return nil, false
	}

	cell := func(row []string, c column) string {
		i, ok := cols[c]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var txns []map[string]any
	var first *models.BankStatementFields
	for _, row := range table[1:] {
		date := normalizeDate(cell(row, colDate))
		if date == nil {
			continue
		}
		debit := absAmount(parseAmount(cell(row, colDebit)))
		credit := absAmount(parseAmount(cell(row, colCredit)))
		if debit == nil && credit == nil && hasAmount {
			if amt := parseAmount(cell(row, colAmount)); amt != nil {
				if *amt < 0 {
					debit = absAmount(amt)
				} else {
					credit = amt
				}
			}
		}
		if debit == nil && credit == nil {
			continue
		}

		description := normalizeString(cell(row, colDescription))
		account := normalizeAccount(cell(row, colAccount))
		if account == nil {
			if acc, ok := header["account_number"].(string); ok {
				account = &acc
			}
		}
		t := &models.BankStatementFields{
			TxnDate:       date,
			Description:   description,
			Debit:         debit,
			Credit:        credit,
			Balance:       nonNegative(parseAmount(cell(row, colBalance))),
			AccountNumber: account,
		}
		if description != nil {
			t.Mode = detectMode(*description)
			t.Category = categorize(*description)
		}
		if t.Mode == nil {
			t.Mode = detectMode(cell(row, colRef))
		}

		txns = append(txns, map[string]any{
			"txn_date":       *t.TxnDate,
			"description":    derefOrNil(t.Description),
			"debit":          formatAmount(t.Debit),
			"credit":         formatAmount(t.Credit),
			"balance":        formatAmount(t.Balance),
			"account_number": derefOrNil(t.AccountNumber),
			"ref":            derefOrNil(normalizeString(cell(row, colRef))),
			"mode":           derefOrNil(t.Mode),
			"category":       derefOrNil(t.Category),
		})
		if first == nil {
			first = t
		}
	}

	if first == nil {
		return nil, false
	}

	first.MetaData = map[string]any{
		"source":            string(SourceTabular),
		"transaction_count": len(txns),
		"transactions":      txns,
		"columns":           table[0],
	}
	mergeMeta(first.MetaData, header)
	return first, true
}

func derefOrNil(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
