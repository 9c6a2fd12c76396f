package dto

import (
	"spareflow/internal/domain/approval"
	"spareflow/internal/domain/audit"
	"spareflow/internal/domain/movement"
	"spareflow/internal/domain/request"
	"spareflow/internal/domain/returns"
)

// --- Request DTOs ---

type CreateReturnRequest struct {
	TechnicianID int64               `json:"technicianId" binding:"required"`
	Items        []returns.ItemInput `json:"items"`
	Reason       string              `json:"reason"`
	CallID       *int64              `json:"callId,omitempty"`
	CreatedBy    string              `json:"createdBy,omitempty"`
}

func (r *CreateReturnRequest) ToInput() returns.CreateInput {
	return returns.CreateInput{
		TechnicianID: r.TechnicianID,
		Items:        r.Items,
		Reason:       r.Reason,
		CallID:       r.CallID,
		CreatedBy:    r.CreatedBy,
	}
}

type UpdateReturnRequest struct {
	TechnicianID int64               `json:"technicianId" binding:"required"`
	Items        []returns.ItemInput `json:"items"`
	Reason       string              `json:"reason"`
	UpdatedBy    string              `json:"updatedBy,omitempty"`
}

func (r *UpdateReturnRequest) ToInput() returns.UpdateInput {
	return returns.UpdateInput{
		TechnicianID: r.TechnicianID,
		Items:        r.Items,
		Reason:       r.Reason,
		UpdatedBy:    r.UpdatedBy,
	}
}

type ReceiveReturnRequest struct {
	ServiceCenterID int64                  `json:"serviceCenterId" binding:"required"`
	ReceivedBy      string                 `json:"receivedBy" binding:"required"`
	ReceivedItems   []returns.ReceivedItem `json:"receivedItems"`
	Notes           string                 `json:"notes,omitempty"`
}

func (r *ReceiveReturnRequest) ToInput() returns.ReceiveInput {
	return returns.ReceiveInput{
		ServiceCenterID: r.ServiceCenterID,
		ReceivedBy:      r.ReceivedBy,
		Items:           r.ReceivedItems,
		Notes:           r.Notes,
	}
}

type VerifyReturnRequest struct {
	ServiceCenterID int64                  `json:"serviceCenterId" binding:"required"`
	VerifiedBy      string                 `json:"verifiedBy" binding:"required"`
	VerifiedItems   []returns.VerifiedItem `json:"verifiedItems"`
	Remarks         string                 `json:"remarks,omitempty"`
}

func (r *VerifyReturnRequest) ToInput() returns.VerifyInput {
	return returns.VerifyInput{
		ServiceCenterID: r.ServiceCenterID,
		VerifiedBy:      r.VerifiedBy,
		Items:           r.VerifiedItems,
		Remarks:         r.Remarks,
	}
}

type RejectReturnRequest struct {
	ServiceCenterID int64  `json:"serviceCenterId" binding:"required"`
	RejectedBy      string `json:"rejectedBy" binding:"required"`
	Reason          string `json:"reason"`
	Remarks         string `json:"remarks,omitempty"`
}

func (r *RejectReturnRequest) ToInput() returns.RejectInput {
	return returns.RejectInput{
		ServiceCenterID: r.ServiceCenterID,
		RejectedBy:      r.RejectedBy,
		Reason:          r.Reason,
		Remarks:         r.Remarks,
	}
}

type ReopenReturnRequest struct {
	ReopenedBy string `json:"reopenedBy" binding:"required"`
	Reason     string `json:"reason"`
}

func (r *ReopenReturnRequest) ToInput() returns.ReopenInput {
	return returns.ReopenInput{
		ReopenedBy: r.ReopenedBy,
		Reason:     r.Reason,
	}
}

// --- Response DTOs ---

type VerifyReturnResponse struct {
	RequestID        string `json:"requestId"`
	Status           string `json:"status"`
	StockMovementID  string `json:"stockMovementId"`
	TotalQtyReturned int64  `json:"totalQtyReturned"`
}

func FromVerifyResult(res *returns.VerifyResult) VerifyReturnResponse {
	out := VerifyReturnResponse{
		RequestID:        res.Request.ID.String(),
		Status:           res.Request.Status,
		TotalQtyReturned: res.TotalQtyReturned,
	}
	if res.Movement != nil {
		out.StockMovementID = res.Movement.ID.String()
	}
	return out
}

type ReturnDetailsResponse struct {
	*request.Request
	Summary        request.Summary          `json:"summary"`
	StockMovements []movement.StockMovement `json:"stockMovements"`
	Approvals      []approval.Approval      `json:"approvals"`
	History        []audit.Entry            `json:"history"`
}

func FromReturnDetails(d *returns.Details) ReturnDetailsResponse {
	return ReturnDetailsResponse{
		Request:        d.Request,
		Summary:        d.Summary,
		StockMovements: nonNil(d.Movements),
		Approvals:      nonNil(d.Approvals),
		History:        nonNil(d.History),
	}
}
