package document_repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spareflow/internal/core/entity"
	"spareflow/internal/core/id"
	"spareflow/internal/domain/request"
)

func TestRequestRepo_StatusUpdate_SQL(t *testing.T) {
	repo := NewRequestRepo(nil)
	requestID := id.New()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		upd      request.StatusUpdate
		wantSQL  string
		wantArgs []any
	}{
		{
			name: "with note",
			upd: request.StatusUpdate{
				RequestID: requestID, FromStatusIDs: []int{1, 3}, ToStatusID: 4, Note: "verified", At: at,
			},
			wantSQL: "UPDATE spare_requests SET status_id = $1, updated_at = $2, " +
				"notes = CASE WHEN notes = '' THEN $3 ELSE notes || chr(10) || $4 END " +
				"WHERE id = $5 AND status_id IN ($6,$7)",
			wantArgs: []any{4, at, "verified", "verified", requestID.String(), 1, 3},
		},
		{
			name: "without note",
			upd: request.StatusUpdate{
				RequestID: requestID, FromStatusIDs: []int{1}, ToStatusID: 5, At: at,
			},
			wantSQL:  "UPDATE spare_requests SET status_id = $1, updated_at = $2 WHERE id = $3 AND status_id IN ($4)",
			wantArgs: []any{5, at, requestID.String(), 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := repo.statusUpdateQuery(tt.upd).ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestRequestRepo_ItemUpdate_SQL(t *testing.T) {
	repo := NewRequestRepo(nil)
	qty := int64(3)
	it := request.Item{
		ID:          id.New(),
		RequestID:   id.New(),
		ApprovedQty: &qty,
		Approved:    &entity.Split{Good: 2, Defective: 1},
	}

	sql, args, err := repo.itemUpdateQuery(it).ToSql()
	require.NoError(t, err)

	assert.Equal(t, "UPDATE spare_request_items SET received_good = $1, received_defective = $2, "+
		"approved_qty = $3, approved_good = $4, approved_defective = $5, rejection_reason = $6, "+
		"condition_notes = $7, remarks = $8 WHERE id = $9 AND request_id = $10", sql)
	require.Len(t, args, 10)
	assert.Nil(t, args[0])
	assert.Equal(t, int64(2), *args[3].(*int64))
	assert.Equal(t, it.ID.String(), args[8])
	assert.Equal(t, it.RequestID.String(), args[9])
}

func TestRequestRepo_ListQuery_Filters(t *testing.T) {
	repo := NewRequestRepo(nil)
	statusID := 4

	sql, args, err := repo.listQuery(request.ListFilter{
		Direction:       request.DirectionReturn,
		ServiceCenterID: 3,
		StatusID:        &statusID,
	}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "FROM spare_requests WHERE direction = $1 AND destination_id = $2 AND status_id = $3")
	assert.Equal(t, []any{"return", int64(3), 4}, args)
}

func TestItemRow_RoundTrip(t *testing.T) {
	received := entity.Split{Good: 1, Defective: 2}
	it := request.Item{
		ID:           id.New(),
		RequestID:    id.New(),
		SpareID:      10,
		RequestedQty: 3,
		Offered:      entity.Split{Good: 1, Defective: 2},
		Received:     &received,
	}

	values := itemValues(it, 1)
	row := itemRow{
		ID:                values[0].(id.ID),
		RequestID:         values[1].(id.ID),
		LineNo:            values[2].(int),
		SpareID:           values[3].(int64),
		RequestedQty:      values[4].(int64),
		OfferedGood:       values[5].(int64),
		OfferedDefective:  values[6].(int64),
		ReceivedGood:      values[7].(*int64),
		ReceivedDefective: values[8].(*int64),
	}

	back := row.toDomain()
	assert.Equal(t, it.Offered, back.Offered)
	require.NotNil(t, back.Received)
	assert.Equal(t, received, *back.Received)
	assert.Nil(t, back.Approved)
	assert.Nil(t, back.ApprovedQty)
}
