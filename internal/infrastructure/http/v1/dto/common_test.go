package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spareflow/internal/core/apperror"
)

func TestListQuery_ToQuery(t *testing.T) {
	q, err := ListQuery{
		ServiceCenterID: 3,
		Status:          "pending",
		FromDate:        "2026-03-01",
		ToDate:          "2026-03-31",
		Limit:           20,
		IncludeItems:    true,
	}.ToQuery()
	require.NoError(t, err)

	assert.Equal(t, int64(3), q.ServiceCenterID)
	assert.Equal(t, "pending", q.Status)
	assert.Equal(t, 20, q.Page.Limit)
	assert.True(t, q.IncludeItems)
	require.NotNil(t, q.FromDate)
	require.NotNil(t, q.ToDate)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *q.FromDate)
	assert.Equal(t, time.Date(2026, 3, 31, 23, 59, 59, 999999999, time.UTC), *q.ToDate)
}

func TestListQuery_Timestamps(t *testing.T) {
	q, err := ListQuery{ToDate: "2026-03-31T12:00:00Z"}.ToQuery()
	require.NoError(t, err)
	require.NotNil(t, q.ToDate)
	assert.Equal(t, time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC), *q.ToDate)
	assert.Nil(t, q.FromDate)
}

func TestListQuery_InvalidDate(t *testing.T) {
	_, err := ListQuery{FromDate: "31/03/2026"}.ToQuery()
	assert.True(t, apperror.IsValidation(err))
}

func TestPoolQuery_ToFilter(t *testing.T) {
	f, err := PoolQuery{SpareID: 10, LocationType: "technician", LocationID: 7}.ToFilter()
	require.NoError(t, err)
	assert.Equal(t, int64(7), f.LocationID)

	_, err = PoolQuery{LocationType: "warehouse"}.ToFilter()
	assert.True(t, apperror.IsValidation(err))
}
