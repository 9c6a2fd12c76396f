package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spareflow/internal/core/apperror"
	"spareflow/internal/domain/catalog"
)

type fakeRedis struct {
	data map[string]string
	err  error
	sets int
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) MGet(ctx context.Context, keys ...string) *redis.SliceCmd {
	if f.err != nil {
		return redis.NewSliceResult(nil, f.err)
	}
	out := make([]interface{}, len(keys))
	for i, k := range keys {
		if v, ok := f.data[k]; ok {
			out[i] = v
		}
	}
	return redis.NewSliceResult(out, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.sets++
	f.data[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

type countingCatalog struct {
	spares      map[int64]catalog.Spare
	technicians map[int64]catalog.Technician
	spareCalls  int
	techCalls   int
}

func (c *countingCatalog) GetSpares(ctx context.Context, ids []int64) ([]catalog.Spare, error) {
	c.spareCalls++
	var out []catalog.Spare
	for _, spareID := range ids {
		if s, ok := c.spares[spareID]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (c *countingCatalog) GetTechnician(ctx context.Context, technicianID int64) (catalog.Technician, error) {
	c.techCalls++
	tech, ok := c.technicians[technicianID]
	if !ok {
		return catalog.Technician{}, apperror.NewNotFound("technician", technicianID)
	}
	return tech, nil
}

func newCatalog() *countingCatalog {
	return &countingCatalog{
		spares: map[int64]catalog.Spare{
			10: {ID: 10, Code: "FLT-10", Description: "Filter"},
			11: {ID: 11, Code: "PMP-11", Description: "Pump"},
		},
		technicians: map[int64]catalog.Technician{7: {ID: 7, Name: "T7", ServiceCenterID: 3}},
	}
}

func TestLookupCache_SparesReadThrough(t *testing.T) {
	rdb := newFakeRedis()
	inner := newCatalog()
	c := NewLookupCache(rdb, inner, inner, time.Minute)
	ctx := context.Background()

	first, err := c.GetSpares(ctx, []int64{10, 11, 99})
	require.NoError(t, err)
	assert.Len(t, first, 2)
	assert.Equal(t, 1, inner.spareCalls)
	assert.Equal(t, 2, rdb.sets)

	second, err := c.GetSpares(ctx, []int64{10, 11})
	require.NoError(t, err)
	assert.ElementsMatch(t, first, second)
	assert.Equal(t, 1, inner.spareCalls)
}

func TestLookupCache_TechnicianReadThrough(t *testing.T) {
	rdb := newFakeRedis()
	inner := newCatalog()
	c := NewLookupCache(rdb, inner, inner, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		tech, err := c.GetTechnician(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(3), tech.ServiceCenterID)
	}
	assert.Equal(t, 1, inner.techCalls)

	_, err := c.GetTechnician(ctx, 8)
	assert.True(t, apperror.IsNotFound(err))
	_, err = c.GetTechnician(ctx, 8)
	assert.True(t, apperror.IsNotFound(err))
	assert.Equal(t, 3, inner.techCalls)
}

func TestLookupCache_RedisDownFallsBack(t *testing.T) {
	rdb := newFakeRedis()
	rdb.err = errors.New("connection refused")
	inner := newCatalog()
	c := NewLookupCache(rdb, inner, inner, time.Minute)
	ctx := context.Background()

	spares, err := c.GetSpares(ctx, []int64{10})
	require.NoError(t, err)
	assert.Len(t, spares, 1)

	tech, err := c.GetTechnician(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(3), tech.ServiceCenterID)
}
