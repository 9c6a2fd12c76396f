package inventory

import (
	"context"

	"spareflow/internal/core/entity"
)

// Repository persists pools. Decrement and Increment are only called by
// Service, which keeps every mutation inside a transfer.
type Repository interface {
	// Get returns the pool or a zero pool when it does not exist.
	Get(ctx context.Context, key Key) (Pool, error)

	// Decrement subtracts qty only if the pool holds at least qty in both
	// conditions. It reports false, without writing, when it does not
	// (including when the pool row is absent).
	Decrement(ctx context.Context, key Key, qty entity.Split) (bool, error)

	// Increment adds qty, creating the pool at zero first if needed.
	Increment(ctx context.Context, key Key, qty entity.Split) error

	// List returns pools matching the filter ordered by spare then location.
	List(ctx context.Context, filter PoolFilter) ([]Pool, error)
}
