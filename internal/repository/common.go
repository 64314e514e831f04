package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trustbooks/internal/models"
	"trustbooks/pkg/apperrors"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// DB is the subset of *pgxpool.Pool the repositories use.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ DB = (*pgxpool.Pool)(nil)

func insertRecord(table string, rec *models.Record) squirrel.InsertBuilder {
	return psql.Insert(table).
		Columns("id", "file_path", "status", "created_at", "updated_at").
		Values(rec.ID, rec.FilePath, string(rec.Status), rec.CreatedAt, rec.UpdatedAt)
}

func applyFilter(q squirrel.SelectBuilder, f models.ListFilter) squirrel.SelectBuilder {
	f = f.Normalize()
	if f.Status != nil {
		q = q.Where(squirrel.Eq{"status": string(*f.Status)})
	}
	return q.OrderBy("created_at DESC", "id").
		Limit(uint64(f.Limit)).
		Offset(uint64(f.Offset))
}

// finalizeWhere only matches records still in Processing, so a record can
// leave that state once.
func finalizeWhere(id uuid.UUID) squirrel.And {
	return squirrel.And{
		squirrel.Eq{"id": id},
		squirrel.Eq{"status": string(models.StatusProcessing)},
	}
}

// explainNoUpdate tells apart a missing record from one that was already
// finalized after an UPDATE matched nothing.
func explainNoUpdate(ctx context.Context, db DB, table string, id uuid.UUID) error {
	sql, args, err := psql.Select("status::text").From(table).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	var status string
	if err := db.QueryRow(ctx, sql, args...).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		return err
	}
	return fmt.Errorf("%w: status is %s", apperrors.ErrAlreadyFinalized, status)
}

func dateParam(s *string) any {
	if s == nil {
		return nil
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil
	}
	return t
}

func floatParam(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func stringParam(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	return err
}
