package catalog

import (
	"context"
	"fmt"
	"sort"

	"spareflow/internal/core/apperror"
)

// Spare is a spare-part identity from the master data.
type Spare struct {
	ID          int64  `db:"id" json:"id"`
	Code        string `db:"code" json:"code"`
	Description string `db:"description" json:"description"`
}

// SpareRepository reads spares by id. Missing ids are simply absent from the result.
type SpareRepository interface {
	GetSpares(ctx context.Context, ids []int64) ([]Spare, error)
}

// SpareCatalog is the read-only spare reference.
type SpareCatalog struct {
	repo SpareRepository
}

// NewSpareCatalog creates a spare catalog.
func NewSpareCatalog(repo SpareRepository) *SpareCatalog {
	return &SpareCatalog{repo: repo}
}

// Get returns a single spare.
func (c *SpareCatalog) Get(ctx context.Context, spareID int64) (Spare, error) {
	spares, err := c.repo.GetSpares(ctx, []int64{spareID})
	if err != nil {
		return Spare{}, apperror.NewPersistence(fmt.Errorf("get spare: %w", err))
	}
	if len(spares) == 0 {
		return Spare{}, apperror.NewNotFound("spare", spareID)
	}
	return spares[0], nil
}

// Require loads every id and fails with a validation error naming the ids
// that do not exist. Request payloads are validated through here before
// any write.
func (c *SpareCatalog) Require(ctx context.Context, ids []int64) (map[int64]Spare, error) {
	spares, err := c.repo.GetSpares(ctx, ids)
	if err != nil {
		return nil, apperror.NewPersistence(fmt.Errorf("get spares: %w", err))
	}

	found := make(map[int64]Spare, len(spares))
	for _, s := range spares {
		found[s.ID] = s
	}

	var unknown []int64
	for _, spareID := range ids {
		if _, ok := found[spareID]; !ok {
			unknown = append(unknown, spareID)
		}
	}
	if len(unknown) > 0 {
		sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })
		return nil, apperror.NewValidation("unknown spare id").
			WithDetail("unknown_spare_ids", unknown)
	}
	return found, nil
}
