package models

type LineItem struct {
	Description *string  `json:"description"`
	HSNCode     *string  `json:"hsn_code"`
	Quantity    *float64 `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price"`
	Amount      *float64 `json:"amount"`
}

// InvoiceFields are the extractable columns of an invoice. Nil means the
// field could not be determined.
type InvoiceFields struct {
	InvoiceNumber   *string    `json:"invoice_number"`
	InvoiceDate     *string    `json:"invoice_date"`
	VendorName      *string    `json:"vendor_name"`
	VendorGSTIN     *string    `json:"vendor_gstin"`
	TaxableValue    *float64   `json:"taxable_value"`
	GSTAmount       *float64   `json:"gst_amount"`
	InvoiceTotal    *float64   `json:"invoice_total"`
	PaymentTerms    *string    `json:"payment_terms"`
	InvoiceCurrency *string    `json:"invoice_currency"`
	Items           []LineItem `json:"items"`
}

type Invoice struct {
	Record
	InvoiceFields
}

// RequiredInvoiceFields drive the fallback success threshold.
var RequiredInvoiceFields = []string{
	"invoice_number", "invoice_date", "vendor_name", "vendor_gstin", "invoice_total",
}

func (f *InvoiceFields) Kind() DocumentKind { return DocumentKindInvoice }

// Populated lists the names of non-null scalar fields.
func (f *InvoiceFields) Populated() []string {
	var out []string
	add := func(name string, ok bool) {
		if ok {
			out = append(out, name)
		}
	}
	add("invoice_number", f.InvoiceNumber != nil)
	add("invoice_date", f.InvoiceDate != nil)
	add("vendor_name", f.VendorName != nil)
	add("vendor_gstin", f.VendorGSTIN != nil)
	add("taxable_value", f.TaxableValue != nil)
	add("gst_amount", f.GSTAmount != nil)
	add("invoice_total", f.InvoiceTotal != nil)
	add("payment_terms", f.PaymentTerms != nil)
	add("invoice_currency", f.InvoiceCurrency != nil)
	return out
}
