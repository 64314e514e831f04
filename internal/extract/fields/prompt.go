package fields

import (
	"fmt"
	"strings"

	"trustbooks/internal/models"
)

const systemPrompt = `You extract structured data from financial documents.
Answer with a single JSON object and nothing else: no markdown, no comments.
Use null for anything the document does not state. Never invent values.
Amounts are plain numbers without currency symbols or thousands separators.
Dates are formatted YYYY-MM-DD.`

func buildPrompt(kind models.DocumentKind, s *schema, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Document type: %s\n\n", kind.Label())
	b.WriteString("Return a JSON object with exactly these keys:\n")
	for _, spec := range s.specs {
		fmt.Fprintf(&b, "- %s (%s): %s\n", spec.Name, strings.Join(spec.Types, " or "), spec.Description)
	}
	if kind == models.DocumentKindInvoice {
		b.WriteString("Each item has description, hsn_code, quantity, unit_price and amount.\n")
	}
	b.WriteString("\nDocument text:\n<<<\n")
	b.WriteString(body)
	b.WriteString("\n>>>\n")
	return b.String()
}
