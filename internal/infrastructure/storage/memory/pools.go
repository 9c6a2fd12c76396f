package memory

import (
	"context"
	"sort"
	"time"

	"spareflow/internal/core/entity"
	"spareflow/internal/domain/inventory"
)

// PoolRepo implements inventory.Repository.
type PoolRepo struct {
	s *Store
}

var _ inventory.Repository = (*PoolRepo)(nil)

func (r *PoolRepo) Get(ctx context.Context, key inventory.Key) (inventory.Pool, error) {
	var out inventory.Pool
	err := r.s.do(ctx, func(t *tables) error {
		p, ok := t.pools[key]
		if !ok {
			p = inventory.Pool{SpareID: key.SpareID, Location: key.Location}
		}
		out = p
		return nil
	})
	return out, err
}

func (r *PoolRepo) Decrement(ctx context.Context, key inventory.Key, qty entity.Split) (bool, error) {
	ok := false
	err := r.s.do(ctx, func(t *tables) error {
		p, exists := t.pools[key]
		if !exists || !p.Quantity.Covers(qty) {
			return nil
		}
		p.Quantity = p.Quantity.Sub(qty)
		p.UpdatedAt = time.Now().UTC()
		t.pools[key] = p
		ok = true
		return nil
	})
	return ok, err
}

func (r *PoolRepo) Increment(ctx context.Context, key inventory.Key, qty entity.Split) error {
	return r.s.do(ctx, func(t *tables) error {
		p, exists := t.pools[key]
		if !exists {
			p = inventory.Pool{SpareID: key.SpareID, Location: key.Location}
		}
		p.Quantity = p.Quantity.Add(qty)
		p.UpdatedAt = time.Now().UTC()
		t.pools[key] = p
		return nil
	})
}

func (r *PoolRepo) List(ctx context.Context, f inventory.PoolFilter) ([]inventory.Pool, error) {
	var out []inventory.Pool
	err := r.s.do(ctx, func(t *tables) error {
		for _, p := range t.pools {
			if f.SpareID != 0 && p.SpareID != f.SpareID {
				continue
			}
			if f.LocationType != "" && p.Location.Type != f.LocationType {
				continue
			}
			if f.LocationID != 0 && p.Location.ID != f.LocationID {
				continue
			}
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].SpareID != out[j].SpareID {
			return out[i].SpareID < out[j].SpareID
		}
		return out[i].Location.Less(out[j].Location)
	})

	start := min(f.Offset, len(out))
	end := len(out)
	if f.Limit > 0 {
		end = min(start+f.Limit, len(out))
	}
	return out[start:end], nil
}
