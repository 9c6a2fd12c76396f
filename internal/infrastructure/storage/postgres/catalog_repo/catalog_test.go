package catalog_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepo_SpareQuery_SQL(t *testing.T) {
	repo := NewRepo(nil)

	sql, args, err := repo.spareQuery([]int64{10, 11}).ToSql()
	require.NoError(t, err)

	assert.Equal(t, "SELECT id, code, description FROM spares WHERE id IN ($1,$2) ORDER BY id", sql)
	assert.Equal(t, []any{int64(10), int64(11)}, args)
}
