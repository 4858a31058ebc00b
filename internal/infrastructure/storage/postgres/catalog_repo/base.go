// Package catalog_repo provides PostgreSQL implementations for reference data.
package catalog_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"paydocs/internal/core/apperror"
	"paydocs/internal/core/id"
	"paydocs/internal/infrastructure/storage/postgres"
)

// BaseCatalogRepo provides get, upsert and list for one catalog table.
type BaseCatalogRepo[T any] struct {
	txm        *postgres.TxManager
	tableName  string
	entityName string
	selectCols []string
	orderBy    string
	newFn      func() T
}

// NewBaseCatalogRepo creates a base repository. T must be a pointer to a
// struct carrying "db" tags.
func NewBaseCatalogRepo[T any](
	txm *postgres.TxManager,
	tableName, entityName, orderBy string,
	selectCols []string,
	newFn func() T,
) *BaseCatalogRepo[T] {
	return &BaseCatalogRepo[T]{
		txm:        txm,
		tableName:  tableName,
		entityName: entityName,
		selectCols: selectCols,
		orderBy:    orderBy,
		newFn:      newFn,
	}
}

// Get retrieves a row by ID.
func (r *BaseCatalogRepo[T]) Get(ctx context.Context, key id.ID) (T, error) {
	entity := r.newFn()
	sql, args, err := postgres.Builder().
		Select(r.selectCols...).
		From(r.tableName).
		Where(squirrel.Eq{"id": key}).
		ToSql()
	if err != nil {
		return entity, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), entity, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return entity, apperror.NewNotFound(r.entityName, key.String())
		}
		return entity, fmt.Errorf("get %s: %w", r.tableName, err)
	}
	return entity, nil
}

// Save inserts the row or overwrites every column of an existing one.
func (r *BaseCatalogRepo[T]) Save(ctx context.Context, entity T) error {
	data := postgres.ColumnMap(entity, r.selectCols)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in entity")
	}

	updates := make([]string, 0, len(r.selectCols))
	for _, col := range r.selectCols {
		if col == "id" {
			continue
		}
		updates = append(updates, col+" = EXCLUDED."+col)
	}

	sql, args, err := postgres.Builder().
		Insert(r.tableName).
		SetMap(data).
		Suffix("ON CONFLICT (id) DO UPDATE SET " + strings.Join(updates, ", ")).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("save %s: %w", r.tableName, err)
	}
	return nil
}

// List retrieves the rows matching where (all rows when nil), in the table's order.
func (r *BaseCatalogRepo[T]) List(ctx context.Context, where squirrel.Sqlizer) ([]T, error) {
	q := postgres.Builder().
		Select(r.selectCols...).
		From(r.tableName).
		OrderBy(r.orderBy, "id")
	if where != nil {
		q = q.Where(where)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []T
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", r.tableName, err)
	}
	return items, nil
}
