package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spareflow/internal/core/apperror"
)

type stubStatuses struct {
	calls    int
	statuses []Status
	err      error
}

func (s *stubStatuses) ListStatuses(ctx context.Context) ([]Status, error) {
	s.calls++
	return s.statuses, s.err
}

type stubSpares map[int64]Spare

func (s stubSpares) GetSpares(ctx context.Context, ids []int64) ([]Spare, error) {
	var out []Spare
	for _, spareID := range ids {
		if sp, ok := s[spareID]; ok {
			out = append(out, sp)
		}
	}
	return out, nil
}

type stubTechnicians map[int64]Technician

func (s stubTechnicians) GetTechnician(ctx context.Context, technicianID int64) (Technician, error) {
	tech, ok := s[technicianID]
	if !ok {
		return Technician{}, apperror.NewNotFound("technician", technicianID)
	}
	return tech, nil
}

// reentrantStatuses resolves a status through the catalog while it is
// itself being loaded, the way a transaction holding the store lock would.
type reentrantStatuses struct {
	catalog  *StatusCatalog
	statuses []Status
	nested   bool
}

func (s *reentrantStatuses) ListStatuses(ctx context.Context) ([]Status, error) {
	if !s.nested {
		s.nested = true
		if _, err := s.catalog.ID(ctx, "pending"); err != nil {
			return nil, err
		}
	}
	return s.statuses, nil
}

func TestStatusCatalog_LoadDoesNotHoldLockAcrossRepository(t *testing.T) {
	repo := &reentrantStatuses{statuses: []Status{{ID: 1, Name: "pending"}}}
	c := NewStatusCatalog(repo)
	repo.catalog = c

	done := make(chan error, 1)
	go func() {
		done <- c.Load(context.Background())
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("status catalog load blocked")
	}

	statusID, err := c.ID(context.Background(), "pending")
	require.NoError(t, err)
	assert.Equal(t, 1, statusID)
}

func TestStatusCatalog_ResolvesAndCaches(t *testing.T) {
	repo := &stubStatuses{statuses: []Status{{ID: 1, Name: "pending"}, {ID: 4, Name: "verified"}}}
	c := NewStatusCatalog(repo)
	ctx := context.Background()

	statusID, err := c.ID(ctx, "verified")
	require.NoError(t, err)
	assert.Equal(t, 4, statusID)

	name, err := c.Name(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "pending", name)

	ids, err := c.IDs(ctx, "pending", "verified")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4}, ids)

	all, err := c.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.Equal(t, 1, repo.calls)
}

func TestStatusCatalog_Unknown(t *testing.T) {
	c := NewStatusCatalog(&stubStatuses{statuses: []Status{{ID: 1, Name: "pending"}}})
	ctx := context.Background()

	_, err := c.ID(ctx, "archived")
	assert.True(t, apperror.IsValidation(err))

	_, err = c.Name(ctx, 99)
	assert.True(t, apperror.IsNotFound(err))
}

func TestStatusCatalog_LoadFailureIsRetried(t *testing.T) {
	repo := &stubStatuses{err: errors.New("connection refused")}
	c := NewStatusCatalog(repo)
	ctx := context.Background()

	_, err := c.ID(ctx, "pending")
	assert.Equal(t, apperror.KindPersistence, apperror.KindOf(err))

	repo.err = nil
	repo.statuses = []Status{{ID: 1, Name: "pending"}}
	statusID, err := c.ID(ctx, "pending")
	require.NoError(t, err)
	assert.Equal(t, 1, statusID)
	assert.Equal(t, 2, repo.calls)
}

func TestSpareCatalog_Require(t *testing.T) {
	c := NewSpareCatalog(stubSpares{10: {ID: 10, Code: "PCB-10"}, 11: {ID: 11, Code: "FAN-11"}})
	ctx := context.Background()

	found, err := c.Require(ctx, []int64{10, 11})
	require.NoError(t, err)
	assert.Equal(t, "FAN-11", found[11].Code)

	_, err = c.Require(ctx, []int64{10, 99, 42})
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	assert.Equal(t, []int64{42, 99}, appErr.Details["unknown_spare_ids"])

	_, err = c.Get(ctx, 99)
	assert.True(t, apperror.IsNotFound(err))
}

func TestDirectory_HomeServiceCenter(t *testing.T) {
	d := NewDirectory(stubTechnicians{7: {ID: 7, ServiceCenterID: 2}, 8: {ID: 8}})
	ctx := context.Background()

	sc, err := d.HomeServiceCenter(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), sc)

	_, err = d.HomeServiceCenter(ctx, 9)
	assert.True(t, apperror.IsNotFound(err))

	_, err = d.HomeServiceCenter(ctx, 8)
	assert.True(t, apperror.IsValidation(err))

	_, err = d.HomeServiceCenter(ctx, 0)
	assert.True(t, apperror.IsValidation(err))
}
