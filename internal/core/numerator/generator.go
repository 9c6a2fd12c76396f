// Package numerator provides the contract for human-readable request numbers.
// Implementations live in pkg/numerator (postgres) and the in-memory store.
package numerator

import (
	"context"
	"time"
)

// Generator generates sequential request numbers.
type Generator interface {
	// GetNextNumber returns the next number for cfg within period.
	// Pattern: PREFIX-YEAR-XXXXX (e.g., RR-2026-00001)
	GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)
}
