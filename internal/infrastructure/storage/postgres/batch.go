package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ErrNoTransaction is returned by bulk writers called outside a transaction.
var ErrNoTransaction = errors.New("postgres: bulk write requires a transaction")

// BatchInserter writes many rows with the COPY protocol. Movement goods lines
// go through here so a verify with many spares stays one round trip.
type BatchInserter struct {
	txManager *TxManager
}

// NewBatchInserter creates a batch inserter.
func NewBatchInserter(txManager *TxManager) *BatchInserter {
	return &BatchInserter{txManager: txManager}
}

// CopyFromSlice copies rows into table. Each row must match columns.
func (b *BatchInserter) CopyFromSlice(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx := b.txManager.GetTx(ctx)
	if tx == nil {
		return 0, ErrNoTransaction
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", table, err)
	}
	return n, nil
}

// BatchExecutor queues statements and sends them in one round trip.
type BatchExecutor struct {
	txManager *TxManager
	batch     *pgx.Batch
}

// NewBatchExecutor creates an empty batch.
func NewBatchExecutor(txManager *TxManager) *BatchExecutor {
	return &BatchExecutor{txManager: txManager, batch: &pgx.Batch{}}
}

// Queue adds a statement.
func (e *BatchExecutor) Queue(sql string, args ...any) {
	e.batch.Queue(sql, args...)
}

// Len returns the number of queued statements.
func (e *BatchExecutor) Len() int {
	return e.batch.Len()
}

// Execute sends the batch inside the current transaction and returns the
// rows affected by each statement, in queue order.
func (e *BatchExecutor) Execute(ctx context.Context) ([]int64, error) {
	if e.batch.Len() == 0 {
		return nil, nil
	}
	tx := e.txManager.GetTx(ctx)
	if tx == nil {
		return nil, ErrNoTransaction
	}

	results := tx.SendBatch(ctx, e.batch)
	defer results.Close()

	affected := make([]int64, 0, e.batch.Len())
	for i := 0; i < e.batch.Len(); i++ {
		tag, err := results.Exec()
		if err != nil {
			return nil, fmt.Errorf("batch statement %d: %w", i, err)
		}
		affected = append(affected, tag.RowsAffected())
	}
	return affected, nil
}
