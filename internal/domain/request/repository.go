package request

import (
	"context"
	"errors"
	"time"

	"spareflow/internal/core/id"
)

// ErrStatusChanged is returned by UpdateStatus when the guarded update
// matched no row: the request left the allowed statuses before the write.
var ErrStatusChanged = errors.New("request status changed")

// StatusUpdate is a guarded header transition.
type StatusUpdate struct {
	RequestID id.ID
	// FromStatusIDs are the statuses the row must still be in.
	FromStatusIDs []int
	ToStatusID    int
	// Note is appended to the notes column.
	Note string
	At   time.Time
}

// ListFilter narrows request listings. Zero values mean "any".
type ListFilter struct {
	Direction       Direction
	ServiceCenterID int64
	TechnicianID    int64
	StatusID        *int
	FromDate        *time.Time
	ToDate          *time.Time
	Limit           int
	Offset          int
	IncludeItems    bool
}

// Repository persists requests.
type Repository interface {
	// Create inserts the header and its items.
	Create(ctx context.Context, r *Request) error

	// GetByID returns the request with items. NotFound for unknown ids.
	GetByID(ctx context.Context, requestID id.ID) (*Request, error)

	// GetForUpdate is GetByID with the header row locked until the
	// transaction ends.
	GetForUpdate(ctx context.Context, requestID id.ID) (*Request, error)

	// UpdateStatus applies a guarded transition. It returns ErrStatusChanged
	// when the row is no longer in one of FromStatusIDs.
	UpdateStatus(ctx context.Context, upd StatusUpdate) error

	// UpdateItems writes the decision, receipt and verification columns.
	UpdateItems(ctx context.Context, items []Item) error

	// ReplaceItems swaps the item set of a pending request.
	ReplaceItems(ctx context.Context, requestID id.ID, items []Item) error

	// List returns a page of requests and the total count for the filter.
	List(ctx context.Context, filter ListFilter) ([]Request, int64, error)
}
