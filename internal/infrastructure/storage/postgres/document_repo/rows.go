package document_repo

import (
	"time"

	"spareflow/internal/core/entity"
	"spareflow/internal/core/id"
	"spareflow/internal/domain/request"
)

type requestRow struct {
	ID              id.ID     `db:"id"`
	RequestNo       string    `db:"request_no"`
	Direction       string    `db:"direction"`
	Reason          string    `db:"reason"`
	SourceType      string    `db:"source_type"`
	SourceID        int64     `db:"source_id"`
	DestinationType string    `db:"destination_type"`
	DestinationID   int64     `db:"destination_id"`
	CallID          *int64    `db:"call_id"`
	StatusID        int       `db:"status_id"`
	Notes           string    `db:"notes"`
	CreatedBy       string    `db:"created_by"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

var requestColumns = []string{
	"id", "request_no", "direction", "reason",
	"source_type", "source_id", "destination_type", "destination_id",
	"call_id", "status_id", "notes", "created_by", "created_at", "updated_at",
}

func (r requestRow) toDomain() *request.Request {
	return &request.Request{
		ID:          r.ID,
		RequestNo:   r.RequestNo,
		Direction:   request.Direction(r.Direction),
		Reason:      r.Reason,
		Source:      entity.Location{Type: entity.PartyType(r.SourceType), ID: r.SourceID},
		Destination: entity.Location{Type: entity.PartyType(r.DestinationType), ID: r.DestinationID},
		CallID:      r.CallID,
		StatusID:    r.StatusID,
		Notes:       r.Notes,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func requestValues(r *request.Request) []any {
	return []any{
		r.ID, r.RequestNo, string(r.Direction), r.Reason,
		string(r.Source.Type), r.Source.ID, string(r.Destination.Type), r.Destination.ID,
		r.CallID, r.StatusID, r.Notes, r.CreatedBy, r.CreatedAt, r.UpdatedAt,
	}
}

type itemRow struct {
	ID                id.ID  `db:"id"`
	RequestID         id.ID  `db:"request_id"`
	LineNo            int    `db:"line_no"`
	SpareID           int64  `db:"spare_id"`
	RequestedQty      int64  `db:"requested_qty"`
	OfferedGood       int64  `db:"offered_good"`
	OfferedDefective  int64  `db:"offered_defective"`
	ReceivedGood      *int64 `db:"received_good"`
	ReceivedDefective *int64 `db:"received_defective"`
	ApprovedQty       *int64 `db:"approved_qty"`
	ApprovedGood      *int64 `db:"approved_good"`
	ApprovedDefective *int64 `db:"approved_defective"`
	RejectionReason   string `db:"rejection_reason"`
	ConditionNotes    string `db:"condition_notes"`
	Remarks           string `db:"remarks"`
}

var itemColumns = []string{
	"id", "request_id", "line_no", "spare_id", "requested_qty",
	"offered_good", "offered_defective",
	"received_good", "received_defective",
	"approved_qty", "approved_good", "approved_defective",
	"rejection_reason", "condition_notes", "remarks",
}

func (r itemRow) toDomain() request.Item {
	it := request.Item{
		ID:              r.ID,
		RequestID:       r.RequestID,
		SpareID:         r.SpareID,
		RequestedQty:    r.RequestedQty,
		Offered:         entity.Split{Good: r.OfferedGood, Defective: r.OfferedDefective},
		ApprovedQty:     r.ApprovedQty,
		RejectionReason: r.RejectionReason,
		ConditionNotes:  r.ConditionNotes,
		Remarks:         r.Remarks,
	}
	if r.ReceivedGood != nil || r.ReceivedDefective != nil {
		it.Received = &entity.Split{Good: deref(r.ReceivedGood), Defective: deref(r.ReceivedDefective)}
	}
	if r.ApprovedGood != nil || r.ApprovedDefective != nil {
		it.Approved = &entity.Split{Good: deref(r.ApprovedGood), Defective: deref(r.ApprovedDefective)}
	}
	return it
}

func itemValues(it request.Item, lineNo int) []any {
	receivedGood, receivedDefective := splitColumns(it.Received)
	approvedGood, approvedDefective := splitColumns(it.Approved)
	return []any{
		it.ID, it.RequestID, lineNo, it.SpareID, it.RequestedQty,
		it.Offered.Good, it.Offered.Defective,
		receivedGood, receivedDefective,
		it.ApprovedQty, approvedGood, approvedDefective,
		it.RejectionReason, it.ConditionNotes, it.Remarks,
	}
}

func splitColumns(s *entity.Split) (good, defective *int64) {
	if s == nil {
		return nil, nil
	}
	g, d := s.Good, s.Defective
	return &g, &d
}

func deref(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
