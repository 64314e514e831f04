package models

var TransactionModes = []string{"UPI", "NEFT", "IMPS", "RTGS", "CASH", "CHEQUE", "CARD"}

type BankStatementFields struct {
	TxnDate       *string        `json:"txn_date"`
	Description   *string        `json:"description"`
	Debit         *float64       `json:"debit"`
	Credit        *float64       `json:"credit"`
	Balance       *float64       `json:"balance"`
	AccountNumber *string        `json:"account_number"`
	Mode          *string        `json:"mode"`
	Category      *string        `json:"category"`
	MetaData      map[string]any `json:"meta_data"`
}

type BankStatement struct {
	Record
	BankStatementFields
}

var RequiredBankStatementFields = []string{
	"txn_date", "description", "debit", "credit", "balance", "account_number",
}

func (f *BankStatementFields) Kind() DocumentKind { return DocumentKindBankStatement }

func (f *BankStatementFields) Populated() []string {
	var out []string
	add := func(name string, ok bool) {
		if ok {
			out = append(out, name)
		}
	}
	add("txn_date", f.TxnDate != nil)
	add("description", f.Description != nil)
	add("debit", f.Debit != nil)
	add("credit", f.Credit != nil)
	add("balance", f.Balance != nil)
	add("account_number", f.AccountNumber != nil)
	add("mode", f.Mode != nil)
	add("category", f.Category != nil)
	return out
}

// FieldSet is the extracted payload of either document kind.
type FieldSet interface {
	Kind() DocumentKind
	Populated() []string
}
