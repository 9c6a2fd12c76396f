// Package movement is the append-only custody-transfer ledger: one stock
// movement per approved or verified request, with goods lines per spare and
// condition.
package movement

import (
	"time"

	"spareflow/internal/core/entity"
	"spareflow/internal/core/id"
)

// Type is the direction of custody.
type Type string

const (
	TypeIssueOut Type = "issue_out"
	TypeReturnIn Type = "return_in"
)

// Status of a movement. The only permitted update is pending to completed.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// StockMovement is one custody transfer.
type StockMovement struct {
	ID            id.ID               `json:"id"`
	Type          Type                `json:"movementType"`
	ReferenceType string              `json:"referenceType"`
	ReferenceID   id.ID               `json:"referenceId"`
	ReferenceNo   string              `json:"referenceNo"`
	Source        entity.Location     `json:"source"`
	Destination   entity.Location     `json:"destination"`
	TotalQty      int64               `json:"totalQty"`
	MovementDate  time.Time           `json:"movementDate"`
	Status        Status              `json:"status"`
	CompletedAt   *time.Time          `json:"completedAt,omitempty"`
	CreatedBy     string              `json:"createdBy"`
	Items         []GoodsMovementItem `json:"items"`
}

// GoodsMovementItem is one (movement, spare, condition) line.
type GoodsMovementItem struct {
	ID            id.ID            `json:"id"`
	MovementID    id.ID            `json:"movementId"`
	RequestItemID id.ID            `json:"requestItemId"`
	SpareID       int64            `json:"spareId"`
	Qty           int64            `json:"qty"`
	Condition     entity.Condition `json:"condition"`
}

// Totals returns the moved quantity per spare, split by condition.
func (m *StockMovement) Totals() map[int64]entity.Split {
	out := make(map[int64]entity.Split)
	for _, it := range m.Items {
		s := out[it.SpareID]
		if it.Condition == entity.ConditionDefective {
			s.Defective += it.Qty
		} else {
			s.Good += it.Qty
		}
		out[it.SpareID] = s
	}
	return out
}

// Line is one requested item's contribution to a movement draft.
type Line struct {
	RequestItemID id.ID
	SpareID       int64
	Quantity      entity.Split
}

// Draft describes a movement before it is written.
type Draft struct {
	Type          Type
	ReferenceType string
	ReferenceID   id.ID
	ReferenceNo   string
	Source        entity.Location
	Destination   entity.Location
	Status        Status
	CreatedBy     string
	Lines         []Line
}
