package fields

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

type fieldSpec struct {
	Name        string
	Types       []string
	Description string
	// Items is the element schema of array fields.
	Items map[string]any
}

var invoiceSpecs = []fieldSpec{
	{Name: "invoice_number", Types: []string{"string", "number", "null"}, Description: "invoice or bill number exactly as printed"},
	{Name: "invoice_date", Types: []string{"string", "null"}, Description: "issue date formatted YYYY-MM-DD"},
	{Name: "vendor_name", Types: []string{"string", "null"}, Description: "legal name of the seller"},
	{Name: "vendor_gstin", Types: []string{"string", "null"}, Description: "15 character GSTIN of the seller"},
	{Name: "taxable_value", Types: []string{"number", "string", "null"}, Description: "amount before tax"},
	{Name: "gst_amount", Types: []string{"number", "string", "null"}, Description: "total GST (IGST, or CGST plus SGST)"},
	{Name: "invoice_total", Types: []string{"number", "string", "null"}, Description: "grand total payable"},
	{Name: "payment_terms", Types: []string{"string", "null"}, Description: "payment terms such as Net 30"},
	{Name: "invoice_currency", Types: []string{"string", "null"}, Description: "ISO 4217 currency code, e.g. INR"},
	{Name: "items", Types: []string{"array", "null"}, Description: "line items in document order", Items: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"description": map[string]any{"type": []string{"string", "null"}},
			"hsn_code":    map[string]any{"type": []string{"string", "number", "null"}},
			"quantity":    map[string]any{"type": []string{"number", "string", "null"}},
			"unit_price":  map[string]any{"type": []string{"number", "string", "null"}},
			"amount":      map[string]any{"type": []string{"number", "string", "null"}},
		},
	}},
}

var bankStatementSpecs = []fieldSpec{
	{Name: "txn_date", Types: []string{"string", "null"}, Description: "date of the first transaction formatted YYYY-MM-DD"},
	{Name: "description", Types: []string{"string", "null"}, Description: "narration of the first transaction"},
	{Name: "debit", Types: []string{"number", "string", "null"}, Description: "withdrawn amount of the first transaction, positive"},
	{Name: "credit", Types: []string{"number", "string", "null"}, Description: "deposited amount of the first transaction, positive"},
	{Name: "balance", Types: []string{"number", "string", "null"}, Description: "balance after the first transaction"},
	{Name: "account_number", Types: []string{"string", "number", "null"}, Description: "account number, digits only"},
	{Name: "mode", Types: []string{"string", "null"}, Description: "one of UPI, NEFT, IMPS, RTGS, CASH, CHEQUE, CARD"},
	{Name: "category", Types: []string{"string", "null"}, Description: "spending category such as salary, transfer, utilities, food"},
	{Name: "meta_data", Types: []string{"object", "null"}, Description: "other statement details: bank name, IFSC, holder name, statement period"},
}

// schema is a compiled JSON schema plus the ordered field list it came from.
type schema struct {
	specs    []fieldSpec
	compiled *jsonschema.Schema
}

func buildSchemaMap(specs []fieldSpec) map[string]any {
	props := make(map[string]any, len(specs))
	for _, s := range specs {
		p := map[string]any{"type": s.Types, "description": s.Description}
		if s.Items != nil {
			p["items"] = s.Items
		}
		props[s.Name] = p
	}
	return map[string]any{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"type":                 "object",
		"properties":           props,
		"additionalProperties": true,
	}
}

func compileSchema(name string, specs []fieldSpec) (*schema, error) {
	b, err := json.Marshal(buildSchemaMap(specs))
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	url := name + ".json"
	if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &schema{specs: specs, compiled: compiled}, nil
}

// prune validates obj and removes what fails: a bad scalar field is set to
// null, a bad array element is dropped. It returns the affected field names.
func (s *schema) prune(obj map[string]any) []string {
	err := s.compiled.Validate(obj)
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return nil
	}

	badFields := map[string]bool{}
	badElems := map[string]map[int]bool{}
	for _, leaf := range leaves(verr) {
		parts := pointerParts(leaf.InstanceLocation)
		if len(parts) == 0 {
			continue
		}
		field := parts[0]
		if len(parts) > 1 {
			if idx, err := strconv.Atoi(parts[1]); err == nil {
				if _, isArr := obj[field].([]any); isArr {
					if badElems[field] == nil {
						badElems[field] = map[int]bool{}
					}
					badElems[field][idx] = true
					continue
				}
			}
		}
		badFields[field] = true
	}

	for field := range badFields {
		obj[field] = nil
	}
	for field, idxs := range badElems {
		if badFields[field] {
			continue
		}
		arr := obj[field].([]any)
		kept := make([]any, 0, len(arr))
		for i, el := range arr {
			if !idxs[i] {
				kept = append(kept, el)
			}
		}
		obj[field] = kept
		badFields[field] = true
	}

	names := make([]string, 0, len(badFields))
	for f := range badFields {
		names = append(names, f)
	}
	sort.Strings(names)
	return names
}

func leaves(e *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(e.Causes) == 0 {
		return []*jsonschema.ValidationError{e}
	}
	var out []*jsonschema.ValidationError
	for _, c := range e.Causes {
		out = append(out, leaves(c)...)
	}
	return out
}

func pointerParts(ptr string) []string {
	ptr = strings.TrimPrefix(ptr, "#")
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return nil
	}
	parts := strings.Split(ptr, "/")
	for i, p := range parts {
		p = strings.ReplaceAll(p, "~1", "/")
		parts[i] = strings.ReplaceAll(p, "~0", "~")
	}
	return parts
}
