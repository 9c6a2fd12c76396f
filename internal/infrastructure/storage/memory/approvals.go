package memory

import (
	"context"
	"fmt"

	"spareflow/internal/core/id"
	"spareflow/internal/domain/approval"
)

// ApprovalRepo implements approval.Repository. Rows are never changed.
type ApprovalRepo struct {
	s *Store
}

var _ approval.Repository = (*ApprovalRepo)(nil)

func (r *ApprovalRepo) Insert(ctx context.Context, a *approval.Approval) error {
	return r.s.do(ctx, func(t *tables) error {
		for _, existing := range t.approvals {
			if existing.ID == a.ID {
				return fmt.Errorf("approval %s already exists", a.ID)
			}
		}
		t.approvals = append(t.approvals, *a)
		return nil
	})
}

func (r *ApprovalRepo) ListForEntity(ctx context.Context, entityType string, entityID id.ID) ([]approval.Approval, error) {
	var out []approval.Approval
	err := r.s.do(ctx, func(t *tables) error {
		for _, a := range t.approvals {
			if a.EntityType == entityType && a.EntityID == entityID {
				out = append(out, a)
			}
		}
		return nil
	})
	return out, err
}

// Count returns the number of stored approvals.
func (r *ApprovalRepo) Count(ctx context.Context) int {
	n := 0
	_ = r.s.do(ctx, func(t *tables) error {
		n = len(t.approvals)
		return nil
	})
	return n
}
