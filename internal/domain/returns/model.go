// Package returns runs the inbound flow: a technician offers good and
// defective units back to its service center, which receives, verifies or
// rejects them. Verification is the single point where the return moves
// stock.
package returns

import (
	"strings"

	"spareflow/internal/core/apperror"
	"spareflow/internal/core/entity"
	"spareflow/internal/core/id"
	"spareflow/internal/domain/approval"
	"spareflow/internal/domain/audit"
	"spareflow/internal/domain/movement"
	"spareflow/internal/domain/request"
)

// ItemInput is one offered spare line.
type ItemInput struct {
	SpareID      int64  `json:"spareId"`
	GoodQty      int64  `json:"goodQty"`
	DefectiveQty int64  `json:"defectiveQty"`
	Remarks      string `json:"remarks,omitempty"`
}

// CreateInput opens a return.
type CreateInput struct {
	TechnicianID int64
	Items        []ItemInput
	Reason       string
	CallID       *int64
	// CreatedBy defaults to the technician id.
	CreatedBy string
}

// UpdateInput replaces the offered lines of a pending return.
type UpdateInput struct {
	TechnicianID int64
	Items        []ItemInput
	Reason       string
	UpdatedBy    string
}

// ReceivedItem is the provisional count of one item at receipt.
type ReceivedItem struct {
	ItemID               id.ID `json:"itemId"`
	ReceivedGoodQty      int64 `json:"receivedGoodQty"`
	ReceivedDefectiveQty int64 `json:"receivedDefectiveQty"`
}

// ReceiveInput records physical arrival.
type ReceiveInput struct {
	ServiceCenterID int64
	ReceivedBy      string
	Items           []ReceivedItem
	Notes           string
}

// VerifiedItem is the accepted split of one item.
type VerifiedItem struct {
	ItemID               id.ID  `json:"itemId"`
	VerifiedGoodQty      int64  `json:"verifiedGoodQty"`
	VerifiedDefectiveQty int64  `json:"verifiedDefectiveQty"`
	ConditionNotes       string `json:"conditionNotes,omitempty"`
}

// VerifyInput accepts the return into service center stock.
type VerifyInput struct {
	ServiceCenterID int64
	VerifiedBy      string
	Items           []VerifiedItem
	Remarks         string
}

// RejectInput refuses the return.
type RejectInput struct {
	ServiceCenterID int64
	RejectedBy      string
	Reason          string
	Remarks         string
}

// ReopenInput flags a return for manual follow-up.
type ReopenInput struct {
	ReopenedBy string
	Reason     string
}

// VerifyResult is the outcome of a verification.
type VerifyResult struct {
	Request          *request.Request
	Movement         *movement.StockMovement
	TotalQtyReturned int64
}

// Details is the read view of a return.
type Details struct {
	Request   *request.Request
	Summary   request.Summary
	Movements []movement.StockMovement
	Approvals []approval.Approval
	History   []audit.Entry
}

func validateLines(technicianID int64, items []ItemInput) error {
	if technicianID <= 0 {
		return apperror.NewValidation("technicianId must be positive")
	}
	if len(items) == 0 {
		return apperror.NewValidation("items must not be empty")
	}
	seen := make(map[int64]bool, len(items))
	for i, it := range items {
		if it.SpareID <= 0 {
			return apperror.NewValidation("spareId must be positive").WithDetail("item_index", i)
		}
		if it.GoodQty < 0 || it.DefectiveQty < 0 {
			return apperror.NewValidation("quantities must not be negative").
				WithDetail("item_index", i).
				WithDetail("spare_id", it.SpareID)
		}
		if it.GoodQty+it.DefectiveQty <= 0 {
			return apperror.NewValidation("each item must return at least one unit").
				WithDetail("item_index", i).
				WithDetail("spare_id", it.SpareID)
		}
		if seen[it.SpareID] {
			return apperror.NewValidation("duplicate spare line").WithDetail("spare_id", it.SpareID)
		}
		seen[it.SpareID] = true
	}
	return nil
}

func toItems(in []ItemInput) []request.Item {
	items := make([]request.Item, len(in))
	for i, it := range in {
		items[i] = request.Item{
			SpareID:      it.SpareID,
			RequestedQty: it.GoodQty + it.DefectiveQty,
			Offered:      entity.Split{Good: it.GoodQty, Defective: it.DefectiveQty},
			Remarks:      strings.TrimSpace(it.Remarks),
		}
	}
	return items
}

func spareIDs(in []ItemInput) []int64 {
	out := make([]int64, len(in))
	for i, it := range in {
		out[i] = it.SpareID
	}
	return out
}

func requireActor(actor, field string) error {
	if strings.TrimSpace(actor) == "" {
		return apperror.NewValidation(field + " is required")
	}
	return nil
}

func requireServiceCenter(serviceCenterID int64) error {
	if serviceCenterID <= 0 {
		return apperror.NewValidation("serviceCenterId must be positive")
	}
	return nil
}

// checkCounts validates per-item condition counts against the request.
func checkCounts(r *request.Request, counts map[id.ID]entity.Split, order []id.ID) error {
	for _, itemID := range order {
		it, ok := r.Item(itemID)
		if !ok {
			return apperror.NewValidation("item does not belong to the request").
				WithDetail("item_id", itemID)
		}
		split := counts[itemID]
		if !split.NonNegative() {
			return apperror.NewValidation("quantities must not be negative").
				WithDetail("item_id", itemID)
		}
		if !split.FitsWithin(it.RequestedQty) {
			return apperror.NewValidation("quantity exceeds requested quantity").
				WithDetail("item_id", itemID).
				WithDetail("requested_qty", it.RequestedQty).
				WithDetail("good", split.Good).
				WithDetail("defective", split.Defective)
		}
	}
	return nil
}
