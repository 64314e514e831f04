package fields

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"trustbooks/internal/extract/text"
	"trustbooks/internal/llm"
	"trustbooks/internal/models"

	"go.uber.org/zap"
)

type BankStatementExtractor struct {
	ai     *aiClient
	policy Policy
	logger *zap.Logger
}

func NewBankStatementExtractor(completer llm.Completer, policy Policy, logger *zap.Logger) (*BankStatementExtractor, error) {
	s, err := compileSchema("bank_statement", bankStatementSpecs)
	if err != nil {
		return nil, fmt.Errorf("bank statement schema: %w", err)
	}
	return &BankStatementExtractor{
		ai:     &aiClient{completer: completer, schema: s, policy: policy, logger: logger},
		policy: policy,
		logger: logger,
	}, nil
}

func (e *BankStatementExtractor) Kind() models.DocumentKind { return models.DocumentKindBankStatement }

// Extract tries the table first, then the AI completer, then the regex rules.
func (e *BankStatementExtractor) Extract(ctx context.Context, doc text.Document) Result {
	res := e.extract(ctx, doc)
	if f, ok := res.Fields.(*models.BankStatementFields); ok && f != nil && f.MetaData != nil {
		f.MetaData = cleanMeta(f.MetaData).(map[string]any)
	}
	return res
}

func (e *BankStatementExtractor) extract(ctx context.Context, doc text.Document) Result {
	header := headerMetadata(strings.Join(doc.Preamble, "\n"))

	if doc.IsTabular() {
		if fields, ok := fromTable(doc.Table, header); ok {
			e.logger.Info("Bank statement mapped from table",
				zap.Any("transaction_count", fields.MetaData["transaction_count"]),
			)
			return Result{Fields: fields, Source: SourceTabular, Successful: true}
		}
	}

	obj, err := e.ai.request(ctx, e.Kind(), doc.Text)
	if err == nil {
		fields := bankStatementFromMap(obj)
		mergeMeta(fields.MetaData, header)
		return Result{Fields: fields, Source: SourceAI, Successful: true}
	}
	if !errors.Is(err, errAIUnavailable) {
		e.logger.Warn("AI extraction failed, using regex fallback", zap.Error(err))
	}

	fields := fallbackBankStatement(doc.Text)
	mergeMeta(fields.MetaData, header)
	found := countRequired(fields, models.RequiredBankStatementFields)
	res := Result{
		Fields:     fields,
		Source:     SourceFallback,
		Successful: found >= e.policy.MinFallbackFields,
		Err:        err,
	}
	if !res.Successful {
		res.Err = fmt.Errorf("fallback found %d of %d required fields: %w", found, e.policy.MinFallbackFields, err)
	}
	return res
}

func bankStatementFromMap(m map[string]any) *models.BankStatementFields {
	f := &models.BankStatementFields{
		TxnDate:       normalizeDate(m["txn_date"]),
		Description:   normalizeString(m["description"]),
		Debit:         absAmount(parseAmount(m["debit"])),
		Credit:        absAmount(parseAmount(m["credit"])),
		Balance:       nonNegative(parseAmount(m["balance"])),
		AccountNumber: normalizeAccount(m["account_number"]),
		Mode:          normalizeMode(m["mode"]),
		Category:      normalizeString(m["category"]),
		MetaData:      map[string]any{},
	}
	if meta, ok := m["meta_data"].(map[string]any); ok {
		for k, v := range meta {
			f.MetaData[k] = v
		}
	}
	if f.Mode == nil && f.Description != nil {
		f.Mode = detectMode(*f.Description)
	}
	if f.Category != nil {
		lower := strings.ToLower(*f.Category)
		f.Category = &lower
	} else if f.Description != nil {
		f.Category = categorize(*f.Description)
	}
	return f
}

var (
	bankDebitRe   = regexp.MustCompile(`(?i)\b(?:debit|withdrawal|dr)\b\.?\s*(?:amount|amt)?\.?\s*[:\-]?\s*` + amountPattern)
	bankCreditRe  = regexp.MustCompile(`(?i)\b(?:credit|deposit|cr)\b\.?\s*(?:amount|amt)?\.?\s*[:\-]?\s*` + amountPattern)
	bankBalanceRe = regexp.MustCompile(`(?i)\b(?:closing\s*|available\s*|running\s*)?balance\b\s*[:\-]?\s*` + amountPattern)
	accountRes    = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:account|a/c|acc)\s*(?:no\.?|number|num|#)?\s*[:\-]?\s*([X*\d][X*\d\s\-]{5,24}\d)`),
		regexp.MustCompile(`\b(\d{10,16})\b`),
	}
	ifscRe         = regexp.MustCompile(`\b[A-Z]{4}0[A-Z0-9]{6}\b`)
	custIDRe       = regexp.MustCompile(`(?i)\bcust(?:omer)?\.?\s*id\s*[:\-]?\s*([A-Z0-9]+)`)
	emailRe        = regexp.MustCompile(`(?i)[A-Z0-9._%+\-]+@[A-Z0-9.\-]+\.[A-Z]{2,}`)
	periodRe       = regexp.MustCompile(`(?i)(?:statement\s*(?:period|from)|period|from)\s*[:\-]?\s*(\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4}|\d{4}-\d{2}-\d{2}|\d{1,2}[\s\-][A-Za-z]{3,9}[\s\-]\d{2,4})\s*(?:to|-|till)\s*(\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4}|\d{4}-\d{2}-\d{2}|\d{1,2}[\s\-][A-Za-z]{3,9}[\s\-]\d{2,4})`)
	addressRe      = regexp.MustCompile(`(?im)^\s*address\s*[:\-]?\s*(.+)$`)
	jointHoldersRe = regexp.MustCompile(`(?im)^\s*joint\s*holders?\s*[:\-]?\s*(.+)$`)
	holderNameRe   = regexp.MustCompile(`(?im)^\s*(?:account\s*name|name|customer\s*name)\s*[:\-]?\s*([A-Za-z][A-Za-z .]+)$`)
	modeRes        = []struct {
		re   *regexp.Regexp
		mode string
	}{
		{regexp.MustCompile(`(?i)\bUPI\b`), "UPI"},
		{regexp.MustCompile(`(?i)\bNEFT\b`), "NEFT"},
		{regexp.MustCompile(`(?i)\bIMPS\b`), "IMPS"},
		{regexp.MustCompile(`(?i)\bRTGS\b`), "RTGS"},
		{regexp.MustCompile(`(?i)\b(?:CHEQUE|CHQ|CLG)\b`), "CHEQUE"},
		{regexp.MustCompile(`(?i)\b(?:CARD|POS|ECOM)\b`), "CARD"},
		{regexp.MustCompile(`(?i)\b(?:CASH|ATM|ATW)\b`), "CASH"},
	}
)

func fallbackBankStatement(body string) *models.BankStatementFields {
	f := &models.BankStatementFields{MetaData: map[string]any{}}

	f.TxnDate = firstDate(body)
	if f.TxnDate != nil {
		f.Description = descriptionNearDate(body)
	}

	if m := bankDebitRe.FindStringSubmatch(body); m != nil {
		f.Debit = absAmount(parseAmount(m[1]))
	}
	if m := bankCreditRe.FindStringSubmatch(body); m != nil {
		f.Credit = absAmount(parseAmount(m[1]))
	}
	if m := bankBalanceRe.FindStringSubmatch(body); m != nil {
		f.Balance = nonNegative(parseAmount(m[1]))
	}
	f.AccountNumber = findAccount(body)
	f.Mode = detectMode(body)
	if f.Description != nil {
		f.Category = categorize(*f.Description)
	}

	mergeMeta(f.MetaData, headerMetadata(body))
	return f
}

func findAccount(body string) *string {
	for _, re := range accountRes {
		for _, m := range re.FindAllStringSubmatch(body, 5) {
			if acc := normalizeAccount(m[1]); acc != nil {
				return acc
			}
		}
	}
	return nil
}

func detectMode(s string) *string {
	for _, m := range modeRes {
		if m.re.MatchString(s) {
			return stringPtr(m.mode)
		}
	}
	return nil
}

// descriptionNearDate takes the text of the line holding the first date,
// minus dates and amounts.
func descriptionNearDate(body string) *string {
	for _, line := range strings.Split(body, "\n") {
		if firstDate(line) == nil {
			continue
		}
		cleaned := line
		for _, re := range anyDateRes {
			cleaned = re.ReplaceAllString(cleaned, " ")
		}
		cleaned = amountTokenRe.ReplaceAllString(cleaned, " ")
		cleaned = strings.Trim(strings.Join(strings.Fields(strings.ReplaceAll(cleaned, "|", " ")), " "), " -:")
		if len(cleaned) >= 3 {
			return &cleaned
		}
		return nil
	}
	return nil
}

var amountTokenRe = regexp.MustCompile(`(?:₹|rs\.?|inr)?\s*\b\d[\d,]*\.\d{2}\b`)

// headerMetadata collects statement-level details printed above the
// transactions.
func headerMetadata(block string) map[string]any {
	meta := map[string]any{}
	if strings.TrimSpace(block) == "" {
		return meta
	}
	if acc := findAccount(block); acc != nil {
		meta["account_number"] = *acc
	}
	if m := ifscRe.FindString(block); m != "" {
		meta["ifsc"] = m
	}
	if m := custIDRe.FindStringSubmatch(block); m != nil {
		meta["customer_id"] = m[1]
	}
	if m := emailRe.FindString(block); m != "" {
		meta["email"] = m
	}
	if m := periodRe.FindStringSubmatch(block); m != nil {
		if from := normalizeDate(m[1]); from != nil {
			meta["statement_from"] = *from
		}
		if to := normalizeDate(m[2]); to != nil {
			meta["statement_to"] = *to
		}
	}
	if m := addressRe.FindStringSubmatch(block); m != nil {
		if s := normalizeString(m[1]); s != nil {
			meta["address"] = *s
		}
	}
	if m := jointHoldersRe.FindStringSubmatch(block); m != nil {
		if s := normalizeString(m[1]); s != nil {
			meta["joint_holders"] = *s
		}
	}
	if m := holderNameRe.FindStringSubmatch(block); m != nil {
		if s := normalizeString(m[1]); s != nil {
			meta["account_holder"] = *s
		}
	}
	return meta
}

// mergeMeta copies src into dst without overwriting existing keys.
func mergeMeta(dst, src map[string]any) {
	for k, v := range src {
		if _, ok := dst[k]; !ok {
			dst[k] = v
		}
	}
}

var categoryRules = []struct {
	re       *regexp.Regexp
	category string
}{
	{regexp.MustCompile(`(?i)\b(?:salary|sal cr|payroll)\b`), "salary"},
	{regexp.MustCompile(`(?i)\b(?:atm|cash wdl|atw|cash withdrawal)\b`), "cash_withdrawal"},
	{regexp.MustCompile(`(?i)\b(?:emi|loan)\b`), "loan"},
	{regexp.MustCompile(`(?i)\brent\b`), "rent"},
	{regexp.MustCompile(`(?i)\b(?:electricity|water|gas|broadband|recharge|bill ?pay|dth)\b`), "utilities"},
	{regexp.MustCompile(`(?i)\b(?:swiggy|zomato|restaurant|cafe|coffee|food)\b`), "food"},
	{regexp.MustCompile(`(?i)\b(?:amazon|flipkart|myntra|shopping|mart)\b`), "shopping"},
	{regexp.MustCompile(`(?i)\b(?:fuel|petrol|uber|ola|metro|irctc)\b`), "transport"},
	{regexp.MustCompile(`(?i)\binterest\b`), "interest"},
	{regexp.MustCompile(`(?i)\b(?:charges?|fee|gst on)\b`), "fees"},
	{regexp.MustCompile(`(?i)\b(?:neft|imps|rtgs|upi|transfer|trf)\b`), "transfer"},
}

func categorize(description string) *string {
	for _, r := range categoryRules {
		if r.re.MatchString(description) {
			return stringPtr(r.category)
		}
	}
	return nil
}
