package dto

import (
	"spareflow/internal/domain/approval"
	"spareflow/internal/domain/issue"
	"spareflow/internal/domain/movement"
	"spareflow/internal/domain/request"
)

// --- Request DTOs ---

type CreateIssueRequest struct {
	TechnicianID int64             `json:"technicianId" binding:"required"`
	Items        []issue.ItemInput `json:"items"`
	Reason       string            `json:"reason"`
	CallID       *int64            `json:"callId,omitempty"`
	CreatedBy    string            `json:"createdBy,omitempty"`
}

func (r *CreateIssueRequest) ToInput() issue.CreateInput {
	return issue.CreateInput{
		TechnicianID: r.TechnicianID,
		Items:        r.Items,
		Reason:       r.Reason,
		CallID:       r.CallID,
		CreatedBy:    r.CreatedBy,
	}
}

type ApproveIssueRequest struct {
	ApproverID      string           `json:"approverId" binding:"required"`
	ServiceCenterID int64            `json:"serviceCenterId" binding:"required"`
	Decisions       []issue.Decision `json:"decisions"`
	Remarks         string           `json:"remarks,omitempty"`
}

func (r *ApproveIssueRequest) ToInput() issue.ApproveInput {
	return issue.ApproveInput{
		ApproverID:      r.ApproverID,
		ServiceCenterID: r.ServiceCenterID,
		Decisions:       r.Decisions,
		Remarks:         r.Remarks,
	}
}

type RejectIssueRequest struct {
	ApproverID      string `json:"approverId" binding:"required"`
	ServiceCenterID int64  `json:"serviceCenterId" binding:"required"`
	Reason          string `json:"reason"`
}

func (r *RejectIssueRequest) ToInput() issue.RejectInput {
	return issue.RejectInput{
		ApproverID:      r.ApproverID,
		ServiceCenterID: r.ServiceCenterID,
		Reason:          r.Reason,
	}
}

type CompleteMovementRequest struct {
	ServiceCenterID int64  `json:"serviceCenterId" binding:"required"`
	CompletedBy     string `json:"completedBy" binding:"required"`
}

func (r *CompleteMovementRequest) ToInput() issue.CompleteInput {
	return issue.CompleteInput{
		ServiceCenterID: r.ServiceCenterID,
		CompletedBy:     r.CompletedBy,
	}
}

// --- Response DTOs ---

type ApproveIssueResponse struct {
	RequestID      string                   `json:"requestId"`
	Status         string                   `json:"status"`
	StockMovements []movement.StockMovement `json:"stockMovements"`
}

func FromApproveResult(res *issue.ApproveResult) ApproveIssueResponse {
	movements := res.Movements
	if movements == nil {
		movements = []movement.StockMovement{}
	}
	return ApproveIssueResponse{
		RequestID:      res.Request.ID.String(),
		Status:         res.Request.Status,
		StockMovements: movements,
	}
}

type IssueDetailsResponse struct {
	*request.Request
	Summary        request.Summary          `json:"summary"`
	StockMovements []movement.StockMovement `json:"stockMovements"`
	Approvals      []approval.Approval      `json:"approvals"`
}

func FromIssueDetails(d *issue.Details) IssueDetailsResponse {
	return IssueDetailsResponse{
		Request:        d.Request,
		Summary:        d.Summary,
		StockMovements: nonNil(d.Movements),
		Approvals:      nonNil(d.Approvals),
	}
}

type MovementResponse struct {
	*movement.StockMovement
}

func FromMovement(m *movement.StockMovement) MovementResponse {
	return MovementResponse{StockMovement: m}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
