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

type InvoiceExtractor struct {
	ai     *aiClient
	policy Policy
	logger *zap.Logger
}

func NewInvoiceExtractor(completer llm.Completer, policy Policy, logger *zap.Logger) (*InvoiceExtractor, error) {
	s, err := compileSchema("invoice", invoiceSpecs)
	if err != nil {
		return nil, fmt.Errorf("invoice schema: %w", err)
	}
	return &InvoiceExtractor{
		ai:     &aiClient{completer: completer, schema: s, policy: policy, logger: logger},
		policy: policy,
		logger: logger,
	}, nil
}

func (e *InvoiceExtractor) Kind() models.DocumentKind { return models.DocumentKindInvoice }

func (e *InvoiceExtractor) Extract(ctx context.Context, doc text.Document) Result {
	obj, err := e.ai.request(ctx, e.Kind(), doc.Text)
	if err == nil {
		return Result{Fields: invoiceFromMap(obj), Source: SourceAI, Successful: true}
	}
	if !errors.Is(err, errAIUnavailable) {
		e.logger.Warn("AI extraction failed, using regex fallback", zap.Error(err))
	}

	fields := fallbackInvoice(doc.Text)
	found := countRequired(fields, models.RequiredInvoiceFields)
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

func invoiceFromMap(m map[string]any) *models.InvoiceFields {
	f := &models.InvoiceFields{
		InvoiceNumber:   normalizeString(m["invoice_number"]),
		InvoiceDate:     normalizeDate(m["invoice_date"]),
		VendorName:      normalizeString(m["vendor_name"]),
		VendorGSTIN:     normalizeGSTIN(m["vendor_gstin"]),
		TaxableValue:    nonNegative(parseAmount(m["taxable_value"])),
		GSTAmount:       nonNegative(parseAmount(m["gst_amount"])),
		InvoiceTotal:    nonNegative(parseAmount(m["invoice_total"])),
		PaymentTerms:    normalizeString(m["payment_terms"]),
		InvoiceCurrency: normalizeCurrency(m["invoice_currency"]),
		Items:           []models.LineItem{},
	}
	if items, ok := m["items"].([]any); ok {
		for _, raw := range items {
			im, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			item := models.LineItem{
				Description: normalizeString(im["description"]),
				HSNCode:     normalizeString(im["hsn_code"]),
				Quantity:    nonNegative(parseAmount(im["quantity"])),
				UnitPrice:   nonNegative(parseAmount(im["unit_price"])),
				Amount:      nonNegative(parseAmount(im["amount"])),
			}
			if item.Description == nil && item.Amount == nil {
				continue
			}
			f.Items = append(f.Items, item)
		}
	}
	return f
}

const amountPattern = `(?:₹|rs\.?|inr|\$|usd|€|eur|£)?\s*([\d,]+(?:\.\d+)?)`

var (
	invoiceNumberRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)invoice\s*(?:no\.?|number|num|#)\s*[:#.\-]?\s*([A-Z0-9][A-Z0-9\-_/]*)`),
		regexp.MustCompile(`(?i)\binv\s*(?:no\.?|#)\s*[:#.\-]?\s*([A-Z0-9][A-Z0-9\-_/]*)`),
		regexp.MustCompile(`(?i)bill\s*(?:no\.?|number|#)\s*[:#.\-]?\s*([A-Z0-9][A-Z0-9\-_/]*)`),
		regexp.MustCompile(`(?i)invoice\s*[:#]\s*([A-Z0-9][A-Z0-9\-_/]*)`),
	}
	invoiceDateRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:invoice\s*date|bill\s*date|date\s*of\s*issue|dated?)\s*[:\-]?\s*(\d{4}-\d{2}-\d{2}|\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4}|\d{1,2}[\s\-][A-Za-z]{3,9}[\s\-,]+\d{2,4})`),
	}
	anyDateRes = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
		regexp.MustCompile(`\b\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4}\b`),
		regexp.MustCompile(`(?i)\b\d{1,2}[\s\-](?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*[\s\-,]+\d{2,4}\b`),
	}
	gstinSearchRe = regexp.MustCompile(`\b\d{2}[A-Z]{5}\d{4}[A-Z][1-9A-Z]Z[0-9A-Z]\b`)
	totalRes      = []*regexp.Regexp{
		regexp.MustCompile(`(?i)grand\s*total\s*[:\-]?\s*` + amountPattern),
		regexp.MustCompile(`(?i)(?:invoice\s*total|total\s*amount|amount\s*payable|net\s*payable|total\s*payable)\s*[:\-]?\s*` + amountPattern),
	}
	plainTotalRe    = regexp.MustCompile(`(?i)(sub\s*-?\s*)?\btotal\b\s*[:\-]?\s*` + amountPattern)
	gstTotalRe      = regexp.MustCompile(`(?i)total\s*(?:gst|tax)\s*(?:amount|amt)?\s*[:\-]?\s*` + amountPattern)
	gstRe           = regexp.MustCompile(`(?i)\b(?:igst|gst)\b\s*(?:amount|amt)?\s*(?:@?\s*\d+(?:\.\d+)?\s*%)?\s*[:\-]?\s*` + amountPattern)
	cgstRe          = regexp.MustCompile(`(?i)\bcgst\b\s*(?:amount|amt)?\s*(?:@?\s*\d+(?:\.\d+)?\s*%)?\s*[:\-]?\s*` + amountPattern)
	sgstRe          = regexp.MustCompile(`(?i)\b(?:sgst|utgst)\b\s*(?:amount|amt)?\s*(?:@?\s*\d+(?:\.\d+)?\s*%)?\s*[:\-]?\s*` + amountPattern)
	taxableRe       = regexp.MustCompile(`(?i)(?:taxable\s*(?:value|amount)|sub\s*-?\s*total|amount\s*before\s*tax)\s*[:\-]?\s*` + amountPattern)
	paymentTermsRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)payment\s*terms?\s*[:\-]\s*([^\n|]{2,60})`),
		regexp.MustCompile(`(?i)\b(net\s*\d{1,3}(?:\s*days)?)\b`),
		regexp.MustCompile(`(?i)\b(due\s+on\s+receipt)\b`),
	}
	vendorRe    = regexp.MustCompile(`(?im)^\s*(?:from|vendor|seller|sold\s*by|supplier|billed\s*by)\s*[:\-]\s*([^\n|]+)$`)
	currencyRes = []struct {
		re   *regexp.Regexp
		code string
	}{
		{regexp.MustCompile(`\bINR\b|₹|(?i:\brs\.?\s*\d)`), "INR"},
		{regexp.MustCompile(`\bUSD\b|\$`), "USD"},
		{regexp.MustCompile(`\bEUR\b|€`), "EUR"},
		{regexp.MustCompile(`\bGBP\b|£`), "GBP"},
	}
	hasDigitRe = regexp.MustCompile(`\d`)
)

// fallbackInvoice applies the fixed regex rules. Every field it cannot find
// stays nil.
func fallbackInvoice(body string) *models.InvoiceFields {
	f := &models.InvoiceFields{Items: []models.LineItem{}}

	for _, re := range invoiceNumberRes {
		if m := re.FindStringSubmatch(body); m != nil && hasDigitRe.MatchString(m[1]) {
			f.InvoiceNumber = normalizeString(m[1])
			break
		}
	}

	for _, re := range invoiceDateRes {
		if m := re.FindStringSubmatch(body); m != nil {
			if d := normalizeDate(m[1]); d != nil {
				f.InvoiceDate = d
				break
			}
		}
	}
	if f.InvoiceDate == nil {
		f.InvoiceDate = firstDate(body)
	}

	if m := gstinSearchRe.FindString(body); m != "" {
		f.VendorGSTIN = normalizeGSTIN(m)
	}

	for _, re := range totalRes {
		if m := re.FindStringSubmatch(body); m != nil {
			f.InvoiceTotal = nonNegative(parseAmount(m[1]))
			break
		}
	}
	if f.InvoiceTotal == nil {
		for _, m := range plainTotalRe.FindAllStringSubmatch(body, -1) {
			if m[1] != "" {
				continue
			}
			f.InvoiceTotal = nonNegative(parseAmount(m[2]))
			break
		}
	}

	f.GSTAmount = findGST(body)

	if m := taxableRe.FindStringSubmatch(body); m != nil {
		f.TaxableValue = nonNegative(parseAmount(m[1]))
	}

	for _, re := range paymentTermsRes {
		if m := re.FindStringSubmatch(body); m != nil {
			f.PaymentTerms = normalizeString(m[1])
			break
		}
	}

	if m := vendorRe.FindStringSubmatch(body); m != nil {
		f.VendorName = normalizeString(m[1])
	}

	for _, c := range currencyRes {
		if c.re.MatchString(body) {
			f.InvoiceCurrency = stringPtr(c.code)
			break
		}
	}

	return f
}

func findGST(body string) *float64 {
	if m := gstTotalRe.FindStringSubmatch(body); m != nil {
		return nonNegative(parseAmount(m[1]))
	}
	if m := gstRe.FindStringSubmatch(body); m != nil {
		return nonNegative(parseAmount(m[1]))
	}
	cm := cgstRe.FindStringSubmatch(body)
	sm := sgstRe.FindStringSubmatch(body)
	if cm == nil || sm == nil {
		return nil
	}
	c, s := parseAmount(cm[1]), parseAmount(sm[1])
	if c == nil || s == nil {
		return nil
	}
	return nonNegative(parseAmount(*c + *s))
}

func firstDate(body string) *string {
	for _, re := range anyDateRes {
		for _, m := range re.FindAllString(body, 5) {
			if d := normalizeDate(strings.TrimSpace(m)); d != nil {
				return d
			}
		}
	}
	return nil
}
