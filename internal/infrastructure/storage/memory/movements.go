package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"spareflow/internal/core/apperror"
	"spareflow/internal/core/id"
	"spareflow/internal/domain/movement"
)

// MovementRepo implements movement.Repository.
type MovementRepo struct {
	s *Store
}

var _ movement.Repository = (*MovementRepo)(nil)

func (r *MovementRepo) Create(ctx context.Context, m *movement.StockMovement) error {
	return r.s.do(ctx, func(t *tables) error {
		if _, exists := t.movements[m.ID]; exists {
			return fmt.Errorf("movement %s already exists", m.ID)
		}
		t.movements[m.ID] = cloneMovement(m)
		return nil
	})
}

func (r *MovementRepo) GetByID(ctx context.Context, movementID id.ID) (*movement.StockMovement, error) {
	var out *movement.StockMovement
	err := r.s.do(ctx, func(t *tables) error {
		m, ok := t.movements[movementID]
		if !ok {
			return apperror.NewNotFound("stock_movement", movementID)
		}
		out = cloneMovement(m)
		return nil
	})
	return out, err
}

func (r *MovementRepo) GetForUpdate(ctx context.Context, movementID id.ID) (*movement.StockMovement, error) {
	return r.GetByID(ctx, movementID)
}

func (r *MovementRepo) ListByReference(ctx context.Context, referenceType string, referenceID id.ID) ([]movement.StockMovement, error) {
	var out []movement.StockMovement
	err := r.s.do(ctx, func(t *tables) error {
		for _, m := range t.movements {
			if m.ReferenceType == referenceType && m.ReferenceID == referenceID {
				out = append(out, *cloneMovement(m))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].MovementDate.Equal(out[j].MovementDate) {
			return out[i].MovementDate.Before(out[j].MovementDate)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, err
}

func (r *MovementRepo) MarkCompleted(ctx context.Context, movementID id.ID, at time.Time) (bool, error) {
	changed := false
	err := r.s.do(ctx, func(t *tables) error {
		m, ok := t.movements[movementID]
		if !ok || m.Status != movement.StatusPending {
			return nil
		}
		completedAt := at
		m.Status = movement.StatusCompleted
		m.CompletedAt = &completedAt
		changed = true
		return nil
	})
	return changed, err
}

func cloneMovement(m *movement.StockMovement) *movement.StockMovement {
	out := *m
	if m.CompletedAt != nil {
		at := *m.CompletedAt
		out.CompletedAt = &at
	}
	out.Items = append([]movement.GoodsMovementItem(nil), m.Items...)
	return &out
}
