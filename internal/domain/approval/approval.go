// Package approval is the write-once decision trail. Records are inserted by
// the lifecycle services at every terminal decision and never changed.
package approval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"spareflow/internal/core/apperror"
	"spareflow/internal/core/id"
)

// Status of a decision.
type Status string

const (
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Entity types that carry approvals.
const (
	EntitySpareRequest  = "spare_request"
	EntityReturnRequest = "return_request"
)

// LevelServiceCenter is the only approval level in use: the destination
// service center decides.
const LevelServiceCenter = 1

// Approval is one decision record.
type Approval struct {
	ID         id.ID     `json:"id"`
	EntityType string    `json:"entityType"`
	EntityID   id.ID     `json:"entityId"`
	ItemID     *id.ID    `json:"itemId,omitempty"`
	Level      int       `json:"approvalLevel"`
	ApproverID string    `json:"approverId"`
	Status     Status    `json:"approvalStatus"`
	Remarks    string    `json:"remarks,omitempty"`
	ApprovedAt time.Time `json:"approvedAt"`
}

// RecordInput describes a decision to record.
type RecordInput struct {
	EntityType string
	EntityID   id.ID
	ItemID     *id.ID
	Level      int
	ApproverID string
	Status     Status
	Remarks    string
}

// Repository is insert-only.
type Repository interface {
	Insert(ctx context.Context, a *Approval) error
	ListForEntity(ctx context.Context, entityType string, entityID id.ID) ([]Approval, error)
}

// Trail records and reads decisions.
type Trail struct {
	repo Repository
	now  func() time.Time
}

// NewTrail creates an approval trail.
func NewTrail(repo Repository) *Trail {
	return &Trail{repo: repo, now: time.Now}
}

// Record inserts one decision.
func (t *Trail) Record(ctx context.Context, in RecordInput) (*Approval, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	level := in.Level
	if level == 0 {
		level = LevelServiceCenter
	}

	a := &Approval{
		ID:         id.New(),
		EntityType: in.EntityType,
		EntityID:   in.EntityID,
		ItemID:     in.ItemID,
		Level:      level,
		ApproverID: in.ApproverID,
		Status:     in.Status,
		Remarks:    strings.TrimSpace(in.Remarks),
		ApprovedAt: t.now().UTC(),
	}
	if err := t.repo.Insert(ctx, a); err != nil {
		return nil, apperror.NewPersistence(fmt.Errorf("insert approval: %w", err))
	}
	return a, nil
}

// ForEntity lists decisions for an entity, oldest first.
func (t *Trail) ForEntity(ctx context.Context, entityType string, entityID id.ID) ([]Approval, error) {
	out, err := t.repo.ListForEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, apperror.NewPersistence(fmt.Errorf("list approvals: %w", err))
	}
	return out, nil
}

func validate(in RecordInput) error {
	if in.EntityType != EntitySpareRequest && in.EntityType != EntityReturnRequest {
		return apperror.NewValidation("unknown approval entity type").WithDetail("entity_type", in.EntityType)
	}
	if id.IsNil(in.EntityID) {
		return apperror.NewValidation("approval needs an entity id")
	}
	if strings.TrimSpace(in.ApproverID) == "" {
		return apperror.NewValidation("approverId is required")
	}
	if in.Status != StatusApproved && in.Status != StatusRejected {
		return apperror.NewValidation("invalid approval status").WithDetail("status", in.Status)
	}
	if in.Level < 0 {
		return apperror.NewValidation("approval level must not be negative")
	}
	return nil
}
