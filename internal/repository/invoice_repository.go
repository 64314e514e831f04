package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"trustbooks/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const invoicesTable = "invoices"

var invoiceColumns = []string{
	"id", "file_path", "status::text", "raw_text",
	"invoice_number", "to_char(invoice_date, 'YYYY-MM-DD')", "vendor_name", "vendor_gstin",
	"taxable_value::float8", "gst_amount::float8", "invoice_total::float8",
	"payment_terms", "invoice_currency", "items", "created_at", "updated_at",
}

type InvoiceRepository struct {
	db     DB
	logger *zap.Logger
}

func NewInvoiceRepository(db DB, logger *zap.Logger) *InvoiceRepository {
	return &InvoiceRepository{
		db:     db,
		logger: logger,
	}
}

func (r *InvoiceRepository) Create(ctx context.Context, rec *models.Record) error {
	sql, args, err := insertRecord(invoicesTable, rec).ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func buildInvoiceFinalize(id uuid.UUID, status models.ParsingStatus, rawText *string, f *models.InvoiceFields) (squirrel.UpdateBuilder, error) {
	items := f.Items
	if items == nil {
		items = []models.LineItem{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return squirrel.UpdateBuilder{}, fmt.Errorf("marshal items: %w", err)
	}

	return psql.Update(invoicesTable).
		Set("status", string(status)).
		Set("raw_text", stringParam(rawText)).
		Set("invoice_number", stringParam(f.InvoiceNumber)).
		Set("invoice_date", dateParam(f.InvoiceDate)).
		Set("vendor_name", stringParam(f.VendorName)).
		Set("vendor_gstin", stringParam(f.VendorGSTIN)).
		Set("taxable_value", floatParam(f.TaxableValue)).
		Set("gst_amount", floatParam(f.GSTAmount)).
		Set("invoice_total", floatParam(f.InvoiceTotal)).
		Set("payment_terms", stringParam(f.PaymentTerms)).
		Set("invoice_currency", stringParam(f.InvoiceCurrency)).
		Set("items", string(itemsJSON)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(finalizeWhere(id)), nil
}

// Finalize writes the extracted fields and the terminal status in one
// statement. It fails with apperrors.ErrAlreadyFinalized when the record has
// left Processing.
func (r *InvoiceRepository) Finalize(ctx context.Context, id uuid.UUID, status models.ParsingStatus, rawText *string, f *models.InvoiceFields) error {
	if f == nil {
		f = &models.InvoiceFields{}
	}
	q, err := buildInvoiceFinalize(id, status, rawText, f)
	if err != nil {
		return err
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return explainNoUpdate(ctx, r.db, invoicesTable, id)
	}
	return nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	sql, args, err := psql.Select(invoiceColumns...).
		From(invoicesTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	inv, err := scanInvoice(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, notFound(err)
	}
	return inv, nil
}

func buildInvoiceList(filter models.ListFilter) squirrel.SelectBuilder {
	return applyFilter(psql.Select(invoiceColumns...).From(invoicesTable), filter)
}

func (r *InvoiceRepository) List(ctx context.Context, filter models.ListFilter) ([]*models.Invoice, error) {
	sql, args, err := buildInvoiceList(filter).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := []*models.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func scanInvoice(row pgx.Row) (*models.Invoice, error) {
	var inv models.Invoice
	var status string
	var items []byte
	err := row.Scan(
		&inv.ID, &inv.FilePath, &status, &inv.RawText,
		&inv.InvoiceNumber, &inv.InvoiceDate, &inv.VendorName, &inv.VendorGSTIN,
		&inv.TaxableValue, &inv.GSTAmount, &inv.InvoiceTotal,
		&inv.PaymentTerms, &inv.InvoiceCurrency, &items, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.Status = models.ParsingStatus(status)
	inv.Items = []models.LineItem{}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &inv.Items); err != nil {
			return nil, fmt.Errorf("decode items: %w", err)
		}
	}
	return &inv, nil
}
