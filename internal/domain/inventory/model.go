// Package inventory holds the per-location quantity pools and the transfer
// primitive, the only way pool quantities change.
package inventory

import (
	"time"

	"spareflow/internal/core/entity"
)

// Pool is the stock of one spare at one location, split by condition.
type Pool struct {
	SpareID   int64           `json:"spareId"`
	Location  entity.Location `json:"location"`
	Quantity  entity.Split    `json:"quantity"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Key identifies a pool.
type Key struct {
	SpareID  int64
	Location entity.Location
}

// PoolFilter narrows pool listings. Zero values mean "any".
type PoolFilter struct {
	SpareID      int64
	LocationType entity.PartyType
	LocationID   int64
	Limit        int
	Offset       int
}

// TransferInput moves a condition-split quantity of one spare between locations.
type TransferInput struct {
	SpareID  int64
	From     entity.Location
	To       entity.Location
	Quantity entity.Split
}

// AdjustInput seeds or tops up a pool outside the request flows.
type AdjustInput struct {
	SpareID  int64
	Location entity.Location
	Quantity entity.Split
	Reason   string
}
