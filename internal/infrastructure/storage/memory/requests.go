package memory

import (
	"context"
	"fmt"
	"sort"

	"spareflow/internal/core/apperror"
	"spareflow/internal/core/id"
	"spareflow/internal/domain/request"
)

// RequestRepo implements request.Repository.
type RequestRepo struct {
	s *Store
}

var _ request.Repository = (*RequestRepo)(nil)

func (r *RequestRepo) Create(ctx context.Context, req *request.Request) error {
	return r.s.do(ctx, func(t *tables) error {
		if _, exists := t.requests[req.ID]; exists {
			return fmt.Errorf("request %s already exists", req.ID)
		}
		for _, other := range t.requests {
			if other.RequestNo == req.RequestNo {
				return fmt.Errorf("request number %s already exists", req.RequestNo)
			}
		}
		t.requests[req.ID] = req.Clone()
		return nil
	})
}

func (r *RequestRepo) GetByID(ctx context.Context, requestID id.ID) (*request.Request, error) {
	var out *request.Request
	err := r.s.do(ctx, func(t *tables) error {
		req, ok := t.requests[requestID]
		if !ok {
			return apperror.NewNotFound("request", requestID)
		}
		out = req.Clone()
		return nil
	})
	return out, err
}

// GetForUpdate needs no extra locking: the transaction already holds the store.
func (r *RequestRepo) GetForUpdate(ctx context.Context, requestID id.ID) (*request.Request, error) {
	return r.GetByID(ctx, requestID)
}

func (r *RequestRepo) UpdateStatus(ctx context.Context, upd request.StatusUpdate) error {
	return r.s.do(ctx, func(t *tables) error {
		req, ok := t.requests[upd.RequestID]
		if !ok {
			return apperror.NewNotFound("request", upd.RequestID)
		}
		allowed := false
		for _, from := range upd.FromStatusIDs {
			if req.StatusID == from {
				allowed = true
				break
			}
		}
		if !allowed {
			return request.ErrStatusChanged
		}
		req.StatusID = upd.ToStatusID
		req.Notes = request.JoinNote(req.Notes, upd.Note)
		req.UpdatedAt = upd.At
		return nil
	})
}

func (r *RequestRepo) UpdateItems(ctx context.Context, items []request.Item) error {
	return r.s.do(ctx, func(t *tables) error {
		for _, it := range items {
			req, ok := t.requests[it.RequestID]
			if !ok {
				return apperror.NewNotFound("request", it.RequestID)
			}
			stored, ok := req.Item(it.ID)
			if !ok {
				return apperror.NewNotFound("request_item", it.ID)
			}
			updated := copyItems([]request.Item{it})[0]
			updated.SpareID = stored.SpareID
			updated.RequestedQty = stored.RequestedQty
			*stored = updated
		}
		return nil
	})
}

func (r *RequestRepo) ReplaceItems(ctx context.Context, requestID id.ID, items []request.Item) error {
	return r.s.do(ctx, func(t *tables) error {
		req, ok := t.requests[requestID]
		if !ok {
			return apperror.NewNotFound("request", requestID)
		}
		req.Items = copyItems(items)
		return nil
	})
}

func (r *RequestRepo) List(ctx context.Context, f request.ListFilter) ([]request.Request, int64, error) {
	var (
		out   []request.Request
		total int64
	)
	err := r.s.do(ctx, func(t *tables) error {
		var matched []*request.Request
		for _, req := range t.requests {
			if matches(req, f) {
				matched = append(matched, req)
			}
		}
		sort.Slice(matched, func(i, j int) bool {
			if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
				return matched[i].CreatedAt.After(matched[j].CreatedAt)
			}
			return matched[i].RequestNo > matched[j].RequestNo
		})

		total = int64(len(matched))
		start := min(f.Offset, len(matched))
		end := len(matched)
		if f.Limit > 0 {
			end = min(start+f.Limit, len(matched))
		}
		for _, req := range matched[start:end] {
			c := req.Clone()
			if !f.IncludeItems {
				c.Items = nil
			}
			out = append(out, *c)
		}
		return nil
	})
	return out, total, err
}

func matches(req *request.Request, f request.ListFilter) bool {
	if f.Direction != "" && req.Direction != f.Direction {
		return false
	}
	if f.ServiceCenterID != 0 && req.Destination.ID != f.ServiceCenterID {
		return false
	}
	if f.TechnicianID != 0 && req.Source.ID != f.TechnicianID {
		return false
	}
	if f.StatusID != nil && req.StatusID != *f.StatusID {
		return false
	}
	if f.FromDate != nil && req.CreatedAt.Before(*f.FromDate) {
		return false
	}
	if f.ToDate != nil && req.CreatedAt.After(*f.ToDate) {
		return false
	}
	return true
}

func copyItems(items []request.Item) []request.Item {
	return (&request.Request{Items: items}).Clone().Items
}
