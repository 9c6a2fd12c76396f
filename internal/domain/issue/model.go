// Package issue runs the outbound flow: a technician asks its service center
// for spares, the service center decides per item, and each approved item
// becomes a pending custody transfer that is completed on dispatch.
package issue

import (
	"strings"

	"spareflow/internal/core/apperror"
	"spareflow/internal/core/id"
	"spareflow/internal/domain/movement"
	"spareflow/internal/domain/request"
)

// ItemInput is one requested spare line.
type ItemInput struct {
	SpareID int64 `json:"spareId"`
	Qty     int64 `json:"qty"`
}

// CreateInput opens an outbound request.
type CreateInput struct {
	TechnicianID int64
	Items        []ItemInput
	Reason       string
	CallID       *int64
	// CreatedBy defaults to the technician id.
	CreatedBy string
}

// Validate checks the payload shape. Catalog checks happen in the service.
func (in CreateInput) Validate() error {
	if in.TechnicianID <= 0 {
		return apperror.NewValidation("technicianId must be positive")
	}
	if len(in.Items) == 0 {
		return apperror.NewValidation("items must not be empty")
	}
	seen := make(map[int64]bool, len(in.Items))
	for i, it := range in.Items {
		if it.SpareID <= 0 {
			return apperror.NewValidation("spareId must be positive").WithDetail("item_index", i)
		}
		if it.Qty <= 0 {
			return apperror.NewValidation("qty must be positive").
				WithDetail("item_index", i).
				WithDetail("spare_id", it.SpareID)
		}
		if seen[it.SpareID] {
			return apperror.NewValidation("duplicate spare line").WithDetail("spare_id", it.SpareID)
		}
		seen[it.SpareID] = true
	}
	if in.CallID != nil && *in.CallID <= 0 {
		return apperror.NewValidation("callId must be positive")
	}
	return nil
}

// Decision is the service center's answer for one item.
type Decision struct {
	ItemID          id.ID  `json:"itemId"`
	ApprovedQty     int64  `json:"approvedQty"`
	IsRejected      bool   `json:"isRejected"`
	RejectionReason string `json:"rejectionReason,omitempty"`
}

// ApproveInput decides every item of a pending request.
type ApproveInput struct {
	ApproverID      string
	ServiceCenterID int64
	Decisions       []Decision
	Remarks         string
}

func (in ApproveInput) validate() error {
	if err := requireActor(in.ApproverID, "approverId", in.ServiceCenterID); err != nil {
		return err
	}
	if len(in.Decisions) == 0 {
		return apperror.NewValidation("decisions must not be empty")
	}
	return nil
}

// RejectInput rejects a whole pending request.
type RejectInput struct {
	ApproverID      string
	ServiceCenterID int64
	Reason          string
}

func (in RejectInput) validate() error {
	if err := requireActor(in.ApproverID, "approverId", in.ServiceCenterID); err != nil {
		return err
	}
	if strings.TrimSpace(in.Reason) == "" {
		return apperror.NewValidation("reason is required")
	}
	return nil
}

// CompleteInput dispatches a pending issue movement.
type CompleteInput struct {
	ServiceCenterID int64
	CompletedBy     string
}

// ApproveResult is the decided request and the pending movements it created.
type ApproveResult struct {
	Request   *request.Request
	Movements []movement.StockMovement
}

func requireActor(actor, field string, serviceCenterID int64) error {
	if strings.TrimSpace(actor) == "" {
		return apperror.NewValidation(field + " is required")
	}
	if serviceCenterID <= 0 {
		return apperror.NewValidation("serviceCenterId must be positive")
	}
	return nil
}
