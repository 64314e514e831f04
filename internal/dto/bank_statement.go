package dto

import (
	"time"

	"trustbooks/internal/models"
)

type BankStatementResponse struct {
	ID            string         `json:"id"`
	FilePath      string         `json:"file_path"`
	Status        string         `json:"status"`
	RawText       *string        `json:"raw_text"`
	TxnDate       *string        `json:"txn_date"`
	Description   *string        `json:"description"`
	Debit         *float64       `json:"debit"`
	Credit        *float64       `json:"credit"`
	Balance       *float64       `json:"balance"`
	AccountNumber *string        `json:"account_number"`
	Mode          *string        `json:"mode"`
	Category      *string        `json:"category"`
	MetaData      map[string]any `json:"meta_data"`
	CreatedAt     string         `json:"created_at"`
	UpdatedAt     string         `json:"updated_at"`
}

func NewBankStatementResponse(bs *models.BankStatement) BankStatementResponse {
	meta := bs.MetaData
	if meta == nil {
		meta = map[string]any{}
	}
	return BankStatementResponse{
		ID:            bs.ID.String(),
		FilePath:      bs.FilePath,
		Status:        string(bs.Status),
		RawText:       bs.RawText,
		TxnDate:       bs.TxnDate,
		Description:   bs.Description,
		Debit:         bs.Debit,
		Credit:        bs.Credit,
		Balance:       bs.Balance,
		AccountNumber: bs.AccountNumber,
		Mode:          bs.Mode,
		Category:      bs.Category,
		MetaData:      meta,
		CreatedAt:     bs.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     bs.UpdatedAt.Format(time.RFC3339),
	}
}
