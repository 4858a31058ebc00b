// Package document_repo provides PostgreSQL implementations for payment
// documents, payment orders and journal entries.
package document_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"paydocs/internal/core/apperror"
	"paydocs/internal/core/id"
	"paydocs/internal/domain"
	"paydocs/internal/infrastructure/storage/postgres"
)

// BaseDocumentRepo provides common CRUD operations for document headers.
type BaseDocumentRepo[T any] struct {
	txm          *postgres.TxManager
	tableName    string
	entityName   string
	selectCols   []string
	defaultOrder string
	newFn        func() T
}

// NewBaseDocumentRepo creates a new base document repository.
func NewBaseDocumentRepo[T any](
	txm *postgres.TxManager,
	tableName, entityName, defaultOrder string,
	selectCols []string,
	newFn func() T,
) *BaseDocumentRepo[T] {
	return &BaseDocumentRepo[T]{
		txm:          txm,
		tableName:    tableName,
		entityName:   entityName,
		selectCols:   selectCols,
		defaultOrder: defaultOrder,
		newFn:        newFn,
	}
}

// Create inserts a new document.
func (r *BaseDocumentRepo[T]) Create(ctx context.Context, entity T) error {
	data := postgres.ColumnMap(entity, r.selectCols)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in entity")
	}

	sql, args, err := postgres.Builder().
		Insert(r.tableName).
		SetMap(data).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", r.tableName, err)
	}
	return nil
}

// Update stores an entity whose version the caller already bumped: the row
// must still carry the previous version.
func (r *BaseDocumentRepo[T]) Update(ctx context.Context, entity T) error {
	data := postgres.ColumnMap(entity, r.selectCols, "id", "created_at", "created_by")
	entityID, ok := postgres.StructToMap(entity)["id"]
	if !ok {
		return fmt.Errorf("entity has no 'id' field")
	}
	version, ok := data["version"].(int)
	if !ok {
		return fmt.Errorf("entity has no 'version' field or it is not an int")
	}

	sql, args, err := postgres.Builder().
		Update(r.tableName).
		SetMap(data).
		Where(squirrel.Eq{"id": entityID, "version": version - 1}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", r.tableName, err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(r.entityName, entityID)
	}
	return nil
}

// Delete removes a document; child rows go with it through ON DELETE CASCADE.
func (r *BaseDocumentRepo[T]) Delete(ctx context.Context, entityID id.ID) error {
	sql, args, err := postgres.Builder().
		Delete(r.tableName).
		Where(squirrel.Eq{"id": entityID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", r.tableName, err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(r.entityName, entityID.String())
	}
	return nil
}

func (r *BaseDocumentRepo[T]) baseSelect() squirrel.SelectBuilder {
	return postgres.Builder().
		Select(r.selectCols...).
		From(r.tableName)
}

// GetByID retrieves a document by ID.
func (r *BaseDocumentRepo[T]) GetByID(ctx context.Context, entityID id.ID) (T, error) {
	entity := r.newFn()
	sql, args, err := r.baseSelect().
		Where(squirrel.Eq{"id": entityID}).
		ToSql()
	if err != nil {
		return entity, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), entity, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return entity, apperror.NewNotFound(r.entityName, entityID.String())
		}
		return entity, fmt.Errorf("get by id: %w", err)
	}
	return entity, nil
}

// Find retrieves every document matching where, sorted by orderBy.
func (r *BaseDocumentRepo[T]) Find(ctx context.Context, where squirrel.And, orderBy string) ([]T, error) {
	order, err := r.parseOrderBy(orderBy)
	if err != nil {
		return nil, err
	}

	sql, args, err := r.baseSelect().
		Where(where).
		OrderBy(order, "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []T
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("find %s: %w", r.tableName, err)
	}
	return items, nil
}

// List retrieves one page of documents matching where, with the total count.
func (r *BaseDocumentRepo[T]) List(ctx context.Context, where squirrel.And, filter domain.ListFilter) (domain.ListResult[T], error) {
	limit, offset := filter.Page()
	result := domain.ListResult[T]{Limit: limit, Offset: offset}

	q := r.baseSelect().Where(where)
	querier := r.txm.GetQuerier(ctx)

	countSQL, countArgs, err := postgres.Builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	order, err := r.parseOrderBy(filter.OrderBy)
	if err != nil {
		return result, err
	}
	sql, args, err := q.
		OrderBy(order, "id").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list: %w", err)
	}
	return result, nil
}

// parseOrderBy turns "field" or "-field" into an ORDER BY term over a known column.
func (r *BaseDocumentRepo[T]) parseOrderBy(orderBy string) (string, error) {
	orderBy = strings.TrimSpace(orderBy)
	if orderBy == "" {
		orderBy = r.defaultOrder
	}

	direction := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(orderBy, "-")
	} else if strings.HasPrefix(orderBy, "+") {
		field = strings.TrimPrefix(orderBy, "+")
	}

	field = strings.TrimSpace(field)
	known := false
	for _, col := range r.selectCols {
		if col == field {
			known = true
			break
		}
	}
	if !known {
		return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy)
	}
	return field + " " + direction + " NULLS LAST", nil
}

// childTable loads and replaces the rows of a line table owned by a document.
type childTable[T any] struct {
	txm       *postgres.TxManager
	inserter  *postgres.BatchInserter
	tableName string
	parentCol string
	cols      []string
	orderBy   []string
}

func newChildTable[T any](txm *postgres.TxManager, tableName, parentCol string, orderBy ...string) *childTable[T] {
	return &childTable[T]{
		txm:       txm,
		inserter:  postgres.NewBatchInserter(txm),
		tableName: tableName,
		parentCol: parentCol,
		cols:      postgres.ExtractDBColumns[T](),
		orderBy:   orderBy,
	}
}

// Select loads the rows matching where.
func (c *childTable[T]) Select(ctx context.Context, where squirrel.Sqlizer) ([]*T, error) {
	sql, args, err := postgres.Builder().
		Select(c.cols...).
		From(c.tableName).
		Where(where).
		OrderBy(c.orderBy...).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []*T
	if err := pgxscan.Select(ctx, c.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", c.tableName, err)
	}
	return rows, nil
}

// Replace deletes the parent's rows and inserts rows in one transaction.
// setParent stamps each row with the parent ID.
func (c *childTable[T]) Replace(ctx context.Context, parentID id.ID, rows []*T, setParent func(*T)) error {
	return c.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := c.txm.GetQuerier(ctx).Exec(ctx,
			"DELETE FROM "+c.tableName+" WHERE "+c.parentCol+" = $1", parentID); err != nil {
			return fmt.Errorf("clear %s: %w", c.tableName, err)
		}
		return c.Insert(ctx, rows, setParent)
	})
}

// Insert bulk-inserts rows.
func (c *childTable[T]) Insert(ctx context.Context, rows []*T, setParent func(*T)) error {
	if setParent != nil {
		for _, row := range rows {
			setParent(row)
		}
	}
	if _, err := c.inserter.CopyFromSlice(ctx, c.tableName, c.cols, postgres.Rows(rows, c.cols)); err != nil {
		return err
	}
	return nil
}
