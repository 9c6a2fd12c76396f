package movement

import (
	"context"
	"time"

	"spareflow/internal/core/id"
)

// Repository persists movements. There is no delete and no general update.
type Repository interface {
	// Create inserts the header and its goods lines.
	Create(ctx context.Context, m *StockMovement) error

	// GetByID returns the movement with its lines.
	GetByID(ctx context.Context, movementID id.ID) (*StockMovement, error)

	// GetForUpdate returns the movement with its lines and locks the header.
	GetForUpdate(ctx context.Context, movementID id.ID) (*StockMovement, error)

	// ListByReference returns movements created by a request, oldest first.
	ListByReference(ctx context.Context, referenceType string, referenceID id.ID) ([]StockMovement, error)

	// MarkCompleted flips pending to completed and reports whether a row changed.
	MarkCompleted(ctx context.Context, movementID id.ID, at time.Time) (bool, error)
}
