package request

import (
	"spareflow/internal/core/apperror"
)

// Transition names a header state change.
type Transition string

const (
	TransitionCreate  Transition = "create"
	TransitionUpdate  Transition = "update"
	TransitionApprove Transition = "approve"
	TransitionReject  Transition = "reject"
	TransitionReceive Transition = "receive"
	TransitionVerify  Transition = "verify"
	TransitionReopen  Transition = "reopen"

	// TransitionComplete dispatches an issue movement. It does not change
	// the request status.
	TransitionComplete Transition = "complete"
)

// transitions lists, per direction, the statuses each transition may start from.
var transitions = map[Direction]map[Transition][]string{
	DirectionOutboundIssue: {
		TransitionApprove: {StatusPending},
		TransitionReject:  {StatusPending},
	},
	DirectionReturn: {
		TransitionUpdate:  {StatusPending},
		TransitionReceive: {StatusPending},
		TransitionVerify:  {StatusPending, StatusReceived},
		TransitionReject:  {StatusPending, StatusReceived},
		TransitionReopen:  {StatusPending, StatusReceived, StatusVerified},
	},
}

// AllowedFrom returns the statuses t may start from.
func AllowedFrom(d Direction, t Transition) []string {
	return transitions[d][t]
}

// Check decides whether r may undergo t in its current status.
//
// A return that is verified or reopened is read-only: every transition other
// than an allowed reopen fails with REQUEST_READ_ONLY. All other illegal
// transitions fail with STATE_CONFLICT.
func Check(r *Request, t Transition) error {
	for _, s := range AllowedFrom(r.Direction, t) {
		if s == r.Status {
			return nil
		}
	}

	if r.Direction == DirectionReturn && t != TransitionReopen &&
		(r.Status == StatusVerified || r.Status == StatusReopened) {
		return apperror.NewReadOnly(r.Direction.EntityType(), r.ID, r.Status).
			WithDetail("transition", string(t))
	}
	return apperror.NewStateConflict(r.Direction.EntityType(), r.ID, r.Status, string(t))
}
