package repository

import (
	"testing"
	"time"

	"trustbooks/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestInsertRecord(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	rec := &models.Record{
		ID:        uuid.New(),
		FilePath:  "invoices/x_a.pdf",
		Status:    models.StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}

	sql, args, err := insertRecord(invoicesTable, rec).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO invoices (id,file_path,status,created_at,updated_at) VALUES ($1,$2,$3,$4,$5)", sql)
	assert.Equal(t, []any{rec.ID, "invoices/x_a.pdf", "Processing", now, now}, args)
}

func TestInvoiceFinalizeOnlyTouchesProcessing(t *testing.T) {
	id := uuid.New()
	f := &models.InvoiceFields{
		InvoiceNumber: ptr("INV-1"),
		InvoiceDate:   ptr("2024-01-15"),
		InvoiceTotal:  ptr(118.0),
	}

	q, err := buildInvoiceFinalize(id, models.StatusParsed, ptr("raw"), f)
	require.NoError(t, err)
	sql, args, err := q.ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "UPDATE invoices SET status = $1, raw_text = $2")
	assert.Contains(t, sql, "updated_at = NOW()")
	assert.Contains(t, sql, "WHERE (id = $13 AND status = $14)")
	require.Len(t, args, 14)
	assert.Equal(t, "Parsed", args[0])
	assert.Equal(t, "raw", args[1])
	assert.Equal(t, "INV-1", args[2])
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), args[3])
	assert.Nil(t, args[4])
	assert.Equal(t, 118.0, args[8])
	assert.Equal(t, "[]", args[11])
	assert.Equal(t, id.String(), args[12])
	assert.Equal(t, "Processing", args[13])
}

func TestBankStatementFinalizeEncodesMeta(t *testing.T) {
	id := uuid.New()
	f := &models.BankStatementFields{
		Debit:    ptr(250.0),
		MetaData: map[string]any{"source": "tabular"},
	}

	q, err := buildBankStatementFinalize(id, models.StatusError, nil, f)
	require.NoError(t, err)
	sql, args, err := q.ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "UPDATE bank_statements SET status = $1")
	assert.Contains(t, sql, "WHERE (id = $12 AND status = $13)")
	require.Len(t, args, 13)
	assert.Equal(t, "Error", args[0])
	assert.Nil(t, args[1])
	assert.Equal(t, 250.0, args[4])
	assert.JSONEq(t, `{"source":"tabular"}`, args[10].(string))
}

func TestListQueries(t *testing.T) {
	status := models.StatusParsed

	sql, args, err := buildInvoiceList(models.ListFilter{Limit: 500, Offset: 10, Status: &status}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "status::text")
	assert.Contains(t, sql, "to_char(invoice_date, 'YYYY-MM-DD')")
	assert.Contains(t, sql, "FROM invoices WHERE status = $1 ORDER BY created_at DESC, id LIMIT 200 OFFSET 10")
	assert.Equal(t, []any{"Parsed"}, args)

	sql, args, err = buildBankStatementList(models.ListFilter{}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "FROM bank_statements ORDER BY created_at DESC, id LIMIT 50 OFFSET 0")
	assert.Empty(t, args)
}

func TestDateParam(t *testing.T) {
	assert.Nil(t, dateParam(nil))
	assert.Nil(t, dateParam(ptr("15/01/2024")))
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), dateParam(ptr("2024-02-29")))
}
