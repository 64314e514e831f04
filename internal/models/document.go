package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type DocumentKind string

const (
	DocumentKindInvoice       DocumentKind = "invoice"
	DocumentKindBankStatement DocumentKind = "bank_statement"
)

// StorageDir is the blob prefix every file of this kind is stored under.
func (k DocumentKind) StorageDir() string {
	switch k {
	case DocumentKindInvoice:
		return "invoices"
	case DocumentKindBankStatement:
		return "bank_statements"
	}
	return "other"
}

func (k DocumentKind) Label() string {
	switch k {
	case DocumentKindInvoice:
		return "Invoice"
	case DocumentKindBankStatement:
		return "Bank statement"
	}
	return "Document"
}

func (k DocumentKind) Valid() bool {
	return k == DocumentKindInvoice || k == DocumentKindBankStatement
}

type ParsingStatus string

const (
	StatusProcessing ParsingStatus = "Processing"
	StatusParsed     ParsingStatus = "Parsed"
	StatusError      ParsingStatus = "Error"
)

func (s ParsingStatus) Terminal() bool {
	return s == StatusParsed || s == StatusError
}

func ParseStatus(s string) (ParsingStatus, error) {
	switch ParsingStatus(s) {
	case StatusProcessing, StatusParsed, StatusError:
		return ParsingStatus(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Record holds the columns shared by every document table.
type Record struct {
	ID        uuid.UUID     `db:"id"`
	FilePath  string        `db:"file_path"`
	Status    ParsingStatus `db:"status"`
	RawText   *string       `db:"raw_text"`
	CreatedAt time.Time     `db:"created_at"`
	UpdatedAt time.Time     `db:"updated_at"`
}

// ListFilter narrows list queries. A nil Status means any status.
type ListFilter struct {
	Limit  int
	Offset int
	Status *ParsingStatus
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
