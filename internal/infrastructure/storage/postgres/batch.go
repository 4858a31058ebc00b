package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// BatchInserter bulk-inserts rows with the COPY protocol.
type BatchInserter struct {
	txManager *TxManager
}

// NewBatchInserter creates a new batch inserter.
func NewBatchInserter(txManager *TxManager) *BatchInserter {
	return &BatchInserter{txManager: txManager}
}

// CopyFromSlice inserts rows (each matching columns) in the caller's
// transaction, or in a fresh one outside a transaction.
func (b *BatchInserter) CopyFromSlice(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	var n int64
	err := b.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		n, err = b.txManager.Tx(ctx).CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("copy into %s: %w", table, err)
		}
		return nil
	})
	return n, err
}

// Rows extracts the values of columns from each item's "db" tags.
func Rows[T any](items []T, columns []string) [][]any {
	rows := make([][]any, 0, len(items))
	for _, it := range items {
		data := StructToMap(it)
		row := make([]any, len(columns))
		for i, col := range columns {
			row[i] = data[col]
		}
		rows = append(rows, row)
	}
	return rows
}

// BatchExecutor sends several statements in one round-trip.
type BatchExecutor struct {
	txManager *TxManager
}

// NewBatchExecutor creates a new batch executor.
func NewBatchExecutor(txManager *TxManager) *BatchExecutor {
	return &BatchExecutor{txManager: txManager}
}

// BatchQuery represents a query in a batch.
type BatchQuery struct {
	SQL  string
	Args []any

	// ExpectRows fails the batch when the statement touches fewer rows.
	ExpectRows int64
}

// ExecuteBatch executes queries in a single round-trip inside a transaction.
// It returns the index of the first statement that touched fewer rows than expected.
func (e *BatchExecutor) ExecuteBatch(ctx context.Context, queries []BatchQuery) (int, error) {
	if len(queries) == 0 {
		return -1, nil
	}
	short := -1
	err := e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		batch := &pgx.Batch{}
		for _, q := range queries {
			batch.Queue(q.SQL, q.Args...)
		}

		results := e.txManager.Tx(ctx).SendBatch(ctx, batch)
		defer results.Close()

		for i, q := range queries {
			tag, err := results.Exec()
			if err != nil {
				return fmt.Errorf("batch query %d failed: %w", i, err)
			}
			if short < 0 && tag.RowsAffected() < q.ExpectRows {
				short = i
			}
		}
		return nil
	})
	return short, err
}
