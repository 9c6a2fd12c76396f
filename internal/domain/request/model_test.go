package request

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spareflow/internal/core/apperror"
	"spareflow/internal/core/entity"
)

func TestItemDecide(t *testing.T) {
	it := Item{RequestedQty: 5}

	require.NoError(t, it.Decide(entity.Split{Good: 3, Defective: 2}, ""))
	assert.Equal(t, int64(5), *it.ApprovedQty)
	assert.Equal(t, entity.Split{Good: 3, Defective: 2}, *it.Approved)

	err := it.Decide(entity.Split{Good: 6}, "")
	assert.True(t, apperror.IsValidation(err))

	err = it.Decide(entity.Split{Good: -1}, "")
	assert.True(t, apperror.IsValidation(err))

	err = it.Decide(entity.Split{Good: math.MaxInt64, Defective: math.MaxInt64}, "")
	assert.True(t, apperror.IsValidation(err))
	assert.Equal(t, int64(5), *it.ApprovedQty)
}

func TestAppendNote(t *testing.T) {
	at := time.Date(2026, 4, 15, 10, 0, 0, 0, time.UTC)
	r := &Request{}

	r.AppendNote(at, "create", "tech-7", "  worn out  ")
	r.AppendNote(at, "receive", "sc-3", "")

	assert.Equal(t,
		"[2026-04-15T10:00:00Z] create by tech-7: worn out\n[2026-04-15T10:00:00Z] receive by sc-3",
		r.Notes)
}

func TestSummarize(t *testing.T) {
	r := &Request{Items: []Item{
		{RequestedQty: 5, Offered: entity.Split{Good: 3, Defective: 2}, Received: &entity.Split{Good: 3, Defective: 2}},
		{RequestedQty: 2, Offered: entity.Split{Defective: 2}, Approved: &entity.Split{Defective: 1}},
	}}

	s := r.Summarize()
	assert.Equal(t, int64(7), s.RequestedQty)
	assert.Equal(t, entity.Split{Good: 3, Defective: 4}, s.Offered)
	assert.Equal(t, entity.Split{Good: 3, Defective: 2}, s.Received)
	assert.Equal(t, entity.Split{Defective: 1}, s.Approved)
}

func TestClone_IsDeep(t *testing.T) {
	qty := int64(2)
	r := &Request{Items: []Item{{RequestedQty: 2, ApprovedQty: &qty, Approved: &entity.Split{Good: 2}}}}

	c := r.Clone()
	*c.Items[0].ApprovedQty = 1
	c.Items[0].Approved.Good = 1

	assert.Equal(t, int64(2), *r.Items[0].ApprovedQty)
	assert.Equal(t, int64(2), r.Items[0].Approved.Good)
}
