// Package audit defines the transition journal: a support-diagnostics record
// of every request transition with before/after snapshots. It is separate from
// the approval trail, which holds decisions only.
package audit

import (
	"context"
	"encoding/json"
	"reflect"
	"time"

	"spareflow/internal/core/id"
)

// Action is the journaled operation.
type Action string

const (
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionReceive  Action = "receive"
	ActionVerify   Action = "verify"
	ActionReopen   Action = "reopen"
	ActionComplete Action = "complete"
)

// Entry is one journal record.
type Entry struct {
	ID         id.ID           `json:"id"`
	EntityType string          `json:"entityType"`
	EntityID   id.ID           `json:"entityId"`
	Action     Action          `json:"action"`
	Actor      string          `json:"actor"`
	RequestID  string          `json:"requestId,omitempty"`
	Changes    json.RawMessage `json:"changes"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Journal stores entries inside the caller's transaction.
type Journal interface {
	Record(ctx context.Context, entry Entry) error
	History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]Entry, error)
}

// Diff returns the fields whose values differ between two snapshots,
// each as {"old": ..., "new": ...}.
func Diff(oldState, newState map[string]any) map[string]any {
	changes := make(map[string]any)

	for key, newVal := range newState {
		oldVal, exists := oldState[key]
		if !exists {
			changes[key] = map[string]any{"old": nil, "new": newVal}
		} else if !reflect.DeepEqual(oldVal, newVal) {
			changes[key] = map[string]any{"old": oldVal, "new": newVal}
		}
	}

	for key, oldVal := range oldState {
		if _, exists := newState[key]; !exists {
			changes[key] = map[string]any{"old": oldVal, "new": nil}
		}
	}

	return changes
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(ctx context.Context, entry Entry) error { return nil }

func (Nop) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]Entry, error) {
	return nil, nil
}
