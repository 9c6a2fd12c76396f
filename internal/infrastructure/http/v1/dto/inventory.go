package dto

import (
	"spareflow/internal/core/apperror"
	"spareflow/internal/core/entity"
	"spareflow/internal/domain/inventory"
)

// PoolQuery holds the query parameters of the pool listing.
type PoolQuery struct {
	SpareID      int64  `form:"spareId"`
	LocationType string `form:"locationType"`
	LocationID   int64  `form:"locationId"`
	Limit        int    `form:"limit"`
	Offset       int    `form:"offset"`
}

func (q PoolQuery) ToFilter() (inventory.PoolFilter, error) {
	t := entity.PartyType(q.LocationType)
	if t != "" && !t.Valid() {
		return inventory.PoolFilter{}, apperror.NewValidation("unknown locationType").
			WithDetail("value", q.LocationType)
	}
	return inventory.PoolFilter{
		SpareID:      q.SpareID,
		LocationType: t,
		LocationID:   q.LocationID,
		Limit:        q.Limit,
		Offset:       q.Offset,
	}, nil
}

type PoolListResponse struct {
	Items []inventory.Pool `json:"items"`
}

func FromPools(pools []inventory.Pool) PoolListResponse {
	return PoolListResponse{Items: nonNil(pools)}
}
