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

const bankStatementsTable = "bank_statements"

var bankStatementColumns = []string{
	"id", "file_path", "status::text", "raw_text",
	"to_char(txn_date, 'YYYY-MM-DD')", "description",
	"debit::float8", "credit::float8", "balance::float8",
	"account_number", "mode", "category", "meta_data", "created_at", "updated_at",
}

type BankStatementRepository struct {
	db     DB
	logger *zap.Logger
}

func NewBankStatementRepository(db DB, logger *zap.Logger) *BankStatementRepository {
	return &BankStatementRepository{
		db:     db,
		logger: logger,
	}
}

func (r *BankStatementRepository) Create(ctx context.Context, rec *models.Record) error {
	sql, args, err := insertRecord(bankStatementsTable, rec).ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func buildBankStatementFinalize(id uuid.UUID, status models.ParsingStatus, rawText *string, f *models.BankStatementFields) (squirrel.UpdateBuilder, error) {
	meta := f.MetaData
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return squirrel.UpdateBuilder{}, fmt.Errorf("marshal meta_data: %w", err)
	}

	return psql.Update(bankStatementsTable).
		Set("status", string(status)).
		Set("raw_text", stringParam(rawText)).
		Set("txn_date", dateParam(f.TxnDate)).
		Set("description", stringParam(f.Description)).
		Set("debit", floatParam(f.Debit)).
		Set("credit", floatParam(f.Credit)).
		Set("balance", floatParam(f.Balance)).
		Set("account_number", stringParam(f.AccountNumber)).
		Set("mode", stringParam(f.Mode)).
		Set("category", stringParam(f.Category)).
		Set("meta_data", string(metaJSON)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(finalizeWhere(id)), nil
}

func (r *BankStatementRepository) Finalize(ctx context.Context, id uuid.UUID, status models.ParsingStatus, rawText *string, f *models.BankStatementFields) error {
	if f == nil {
		f = &models.BankStatementFields{}
	}
	q, err := buildBankStatementFinalize(id, status, rawText, f)
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
		return explainNoUpdate(ctx, r.db, bankStatementsTable, id)
	}
	return nil
}

func (r *BankStatementRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BankStatement, error) {
	sql, args, err := psql.Select(bankStatementColumns...).
		From(bankStatementsTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	bs, err := scanBankStatement(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, notFound(err)
	}
	return bs, nil
}

func buildBankStatementList(filter models.ListFilter) squirrel.SelectBuilder {
	return applyFilter(psql.Select(bankStatementColumns...).From(bankStatementsTable), filter)
}

func (r *BankStatementRepository) List(ctx context.Context, filter models.ListFilter) ([]*models.BankStatement, error) {
	sql, args, err := buildBankStatementList(filter).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	statements := []*models.BankStatement{}
	for rows.Next() {
		bs, err := scanBankStatement(rows)
		if err != nil {
			return nil, err
		}
		statements = append(statements, bs)
	}
	return statements, rows.Err()
}

func scanBankStatement(row pgx.Row) (*models.BankStatement, error) {
	var bs models.BankStatement
	var status string
	var meta []byte
	err := row.Scan(
		&bs.ID, &bs.FilePath, &status, &bs.RawText,
		&bs.TxnDate, &bs.Description,
		&bs.Debit, &bs.Credit, &bs.Balance,
		&bs.AccountNumber, &bs.Mode, &bs.Category, &meta, &bs.CreatedAt, &bs.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	bs.Status = models.ParsingStatus(status)
	bs.MetaData = map[string]any{}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &bs.MetaData); err != nil {
			return nil, fmt.Errorf("decode meta_data: %w", err)
		}
	}
	return &bs, nil
}
