// Package request holds the Request aggregate shared by the outbound issue and
// return lifecycles: header, line items, the status transition table and the
// store that applies guarded transitions.
package request

import (
	"fmt"
	"strings"
	"time"

	"spareflow/internal/core/apperror"
	"spareflow/internal/core/entity"
	"spareflow/internal/core/id"
)

// Direction decides which lifecycle owns a request.
type Direction string

const (
	DirectionOutboundIssue Direction = "outbound_issue"
	DirectionReturn        Direction = "return"
)

// EntityType is the name used for approvals, movements and the journal.
func (d Direction) EntityType() string {
	if d == DirectionReturn {
		return "return_request"
	}
	return "spare_request"
}

// NumberPrefix is the prefix of human-readable request numbers.
func (d Direction) NumberPrefix() string {
	if d == DirectionReturn {
		return "RR"
	}
	return "SR"
}

// Status names as stored in the status catalog.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusReceived = "received"
	StatusVerified = "verified"
	StatusRejected = "rejected"
	StatusReopened = "reopened"
)

// Request is the header of one logistics transaction.
type Request struct {
	ID          id.ID           `json:"requestId"`
	RequestNo   string          `json:"requestNo"`
	Direction   Direction       `json:"direction"`
	Reason      string          `json:"reason"`
	Source      entity.Location `json:"sourceParty"`
	Destination entity.Location `json:"destinationParty"`
	CallID      *int64          `json:"callId,omitempty"`
	StatusID    int             `json:"statusId"`
	Status      string          `json:"status"`
	Notes       string          `json:"notes"`
	CreatedBy   string          `json:"createdBy"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Items       []Item          `json:"items,omitempty"`
}

// Item is one spare line of a request.
type Item struct {
	ID           id.ID `json:"itemId"`
	RequestID    id.ID `json:"requestId"`
	SpareID      int64 `json:"spareId"`
	RequestedQty int64 `json:"requestedQty"`
	// Offered is the condition split declared when a return is created.
	Offered entity.Split `json:"offered"`
	// Received is the provisional split recorded by receive.
	Received *entity.Split `json:"received,omitempty"`
	// ApprovedQty and Approved stay nil until the terminal decision.
	ApprovedQty     *int64        `json:"approvedQty,omitempty"`
	Approved        *entity.Split `json:"approved,omitempty"`
	RejectionReason string        `json:"rejectionReason,omitempty"`
	ConditionNotes  string        `json:"conditionNotes,omitempty"`
	Remarks         string        `json:"remarks,omitempty"`
}

// Decide writes the terminal decision of an item. The approved split can
// never exceed the requested quantity.
func (it *Item) Decide(approved entity.Split, rejectionReason string) error {
	if !approved.NonNegative() {
		return apperror.NewValidation("approved quantities must not be negative").
			WithDetail("item_id", it.ID)
	}
	if !approved.FitsWithin(it.RequestedQty) {
		return apperror.NewValidation("approved quantity exceeds requested quantity").
			WithDetail("item_id", it.ID).
			WithDetail("requested_qty", it.RequestedQty).
			WithDetail("approved_good", approved.Good).
			WithDetail("approved_defective", approved.Defective)
	}
	total := approved.Total()
	it.ApprovedQty = &total
	it.Approved = &approved
	it.RejectionReason = strings.TrimSpace(rejectionReason)
	return nil
}

// Item returns the item with the given id.
func (r *Request) Item(itemID id.ID) (*Item, bool) {
	for i := range r.Items {
		if r.Items[i].ID == itemID {
			return &r.Items[i], true
		}
	}
	return nil, false
}

// IsTerminal reports whether no further item-level mutation is allowed.
func (r *Request) IsTerminal() bool {
	switch r.Status {
	case StatusVerified, StatusRejected, StatusReopened:
		return true
	case StatusApproved:
		return r.Direction == DirectionOutboundIssue
	}
	return false
}

// AppendNote adds one line to the append-only notes. Notes are for humans;
// nothing reads them back.
func (r *Request) AppendNote(at time.Time, action, actor, text string) string {
	line := NoteLine(at, action, actor, text)
	r.Notes = JoinNote(r.Notes, line)
	return line
}

// NoteLine formats one notes line.
func NoteLine(at time.Time, action, actor, text string) string {
	line := fmt.Sprintf("[%s] %s by %s", at.UTC().Format(time.RFC3339), action, actor)
	if text = strings.TrimSpace(text); text != "" {
		line += ": " + text
	}
	return line
}

// JoinNote appends line to notes.
func JoinNote(notes, line string) string {
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}

// Summary is the computed good/defective split over all items.
type Summary struct {
	RequestedQty int64        `json:"requestedQty"`
	Offered      entity.Split `json:"offered"`
	Received     entity.Split `json:"received"`
	Approved     entity.Split `json:"approved"`
}

// Summarize totals the item quantities.
func (r *Request) Summarize() Summary {
	var s Summary
	for _, it := range r.Items {
		s.RequestedQty += it.RequestedQty
		s.Offered = s.Offered.Add(it.Offered)
		if it.Received != nil {
			s.Received = s.Received.Add(*it.Received)
		}
		if it.Approved != nil {
			s.Approved = s.Approved.Add(*it.Approved)
		}
	}
	return s
}

// Snapshot is the journal view of a request.
func (r *Request) Snapshot() map[string]any {
	items := make([]map[string]any, 0, len(r.Items))
	for _, it := range r.Items {
		row := map[string]any{
			"item_id":       it.ID.String(),
			"spare_id":      it.SpareID,
			"requested_qty": it.RequestedQty,
			"offered":       it.Offered,
		}
		if it.Received != nil {
			row["received"] = *it.Received
		}
		if it.Approved != nil {
			row["approved"] = *it.Approved
		}
		if it.RejectionReason != "" {
			row["rejection_reason"] = it.RejectionReason
		}
		items = append(items, row)
	}
	return map[string]any{
		"status": r.Status,
		"items":  items,
	}
}

// Clone returns a deep copy.
func (r *Request) Clone() *Request {
	out := *r
	if r.CallID != nil {
		callID := *r.CallID
		out.CallID = &callID
	}
	out.Items = make([]Item, len(r.Items))
	for i, it := range r.Items {
		out.Items[i] = it.clone()
	}
	return &out
}

func (it Item) clone() Item {
	out := it
	if it.Received != nil {
		v := *it.Received
		out.Received = &v
	}
	if it.ApprovedQty != nil {
		v := *it.ApprovedQty
		out.ApprovedQty = &v
	}
	if it.Approved != nil {
		v := *it.Approved
		out.Approved = &v
	}
	return out
}
