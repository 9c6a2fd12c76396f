package memory

import (
	"context"

	"spareflow/internal/core/apperror"
	"spareflow/internal/domain/catalog"
)

// CatalogRepo serves the status table, spares and technicians.
type CatalogRepo struct {
	s *Store
}

var (
	_ catalog.StatusRepository     = (*CatalogRepo)(nil)
	_ catalog.SpareRepository      = (*CatalogRepo)(nil)
	_ catalog.TechnicianRepository = (*CatalogRepo)(nil)
)

func (r *CatalogRepo) ListStatuses(ctx context.Context) ([]catalog.Status, error) {
	var out []catalog.Status
	err := r.s.do(ctx, func(t *tables) error {
		out = append(out, t.statuses...)
		return nil
	})
	return out, err
}

func (r *CatalogRepo) GetSpares(ctx context.Context, ids []int64) ([]catalog.Spare, error) {
	var out []catalog.Spare
	err := r.s.do(ctx, func(t *tables) error {
		seen := make(map[int64]bool, len(ids))
		for _, spareID := range ids {
			if s, ok := t.spares[spareID]; ok && !seen[spareID] {
				seen[spareID] = true
				out = append(out, s)
			}
		}
		return nil
	})
	return out, err
}

func (r *CatalogRepo) GetTechnician(ctx context.Context, technicianID int64) (catalog.Technician, error) {
	var out catalog.Technician
	err := r.s.do(ctx, func(t *tables) error {
		tech, ok := t.technicians[technicianID]
		if !ok {
			return apperror.NewNotFound("technician", technicianID)
		}
		out = tech
		return nil
	})
	return out, err
}

// PutSpare adds or replaces a spare.
func (r *CatalogRepo) PutSpare(ctx context.Context, s catalog.Spare) error {
	return r.s.do(ctx, func(t *tables) error {
		spares := make(map[int64]catalog.Spare, len(t.spares)+1)
		for k, v := range t.spares {
			spares[k] = v
		}
		spares[s.ID] = s
		t.spares = spares
		return nil
	})
}

// PutTechnician adds or replaces a technician.
func (r *CatalogRepo) PutTechnician(ctx context.Context, tech catalog.Technician) error {
	return r.s.do(ctx, func(t *tables) error {
		technicians := make(map[int64]catalog.Technician, len(t.technicians)+1)
		for k, v := range t.technicians {
			technicians[k] = v
		}
		technicians[tech.ID] = tech
		t.technicians = technicians
		return nil
	})
}
