// Package tx provides transaction management abstractions.
// Lifecycle services depend on Manager only; the postgres and in-memory
// storage layers provide the implementations.
package tx

import (
	"context"
)

// Manager defines the contract for transaction management.
type Manager interface {
	// RunInTransaction executes fn within a transaction.
	// If fn returns an error, every write made through ctx is rolled back.
	// Nested calls reuse the existing transaction from context.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// InTransaction reports whether ctx carries an active transaction.
	InTransaction(ctx context.Context) bool
}
