// Package security holds the approval policies applied to outbound decisions.
package security

import (
	"context"

	"spareflow/internal/core/apperror"
)

// DecisionFacts describes one approved outbound line.
type DecisionFacts struct {
	SpareID         int64
	RequestedQty    int64
	ApprovedQty     int64
	ServiceCenterID int64
	TechnicianID    int64
}

// ApprovalPolicy decides whether an outbound decision may be approved as given.
type ApprovalPolicy interface {
	// CheckDecision returns nil when the decision is acceptable and a
	// validation error naming the rule otherwise.
	CheckDecision(ctx context.Context, facts DecisionFacts) error
}

// AllowAll accepts every decision.
type AllowAll struct{}

func (AllowAll) CheckDecision(ctx context.Context, facts DecisionFacts) error {
	return nil
}

func ruleRejected(rule string, facts DecisionFacts) error {
	return apperror.NewValidation("approval rule rejected the decision").
		WithDetail("rule", rule).
		WithDetail("spare_id", facts.SpareID).
		WithDetail("approved_qty", facts.ApprovedQty)
}
