// Package register_repo provides the PostgreSQL ledgers: inventory pools,
// stock movements and the approval trail.
package register_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"spareflow/internal/core/entity"
	"spareflow/internal/domain/inventory"
	"spareflow/internal/infrastructure/storage/postgres"
)

const poolsTable = "inventory_pools"

type poolRow struct {
	SpareID      int64     `db:"spare_id"`
	LocationType string    `db:"location_type"`
	LocationID   int64     `db:"location_id"`
	QtyGood      int64     `db:"qty_good"`
	QtyDefective int64     `db:"qty_defective"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r poolRow) toDomain() inventory.Pool {
	return inventory.Pool{
		SpareID:   r.SpareID,
		Location:  entity.Location{Type: entity.PartyType(r.LocationType), ID: r.LocationID},
		Quantity:  entity.Split{Good: r.QtyGood, Defective: r.QtyDefective},
		UpdatedAt: r.UpdatedAt,
	}
}

var poolColumns = []string{"spare_id", "location_type", "location_id", "qty_good", "qty_defective", "updated_at"}

// PoolRepo implements inventory.Repository.
type PoolRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
	now       func() time.Time
}

var _ inventory.Repository = (*PoolRepo)(nil)

// NewPoolRepo creates a pool repository.
func NewPoolRepo(txManager *postgres.TxManager) *PoolRepo {
	return &PoolRepo{txManager: txManager, builder: postgres.Builder, now: time.Now}
}

func keyEq(key inventory.Key) squirrel.Eq {
	return squirrel.Eq{
		"spare_id":      key.SpareID,
		"location_type": string(key.Location.Type),
		"location_id":   key.Location.ID,
	}
}

// Get returns a zero pool for an absent row.
func (r *PoolRepo) Get(ctx context.Context, key inventory.Key) (inventory.Pool, error) {
	sql, args, err := r.builder.Select(poolColumns...).From(poolsTable).Where(keyEq(key)).ToSql()
	if err != nil {
		return inventory.Pool{}, fmt.Errorf("build query: %w", err)
	}

	var row poolRow
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return inventory.Pool{SpareID: key.SpareID, Location: key.Location}, nil
		}
		return inventory.Pool{}, fmt.Errorf("get pool: %w", err)
	}
	return row.toDomain(), nil
}

// Decrement is a single guarded UPDATE: it matches no row when the pool is
// absent or short in either condition.
func (r *PoolRepo) Decrement(ctx context.Context, key inventory.Key, qty entity.Split) (bool, error) {
	sql, args, err := r.decrementQuery(key, qty).ToSql()
	if err != nil {
		return false, fmt.Errorf("build decrement: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("decrement pool: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PoolRepo) decrementQuery(key inventory.Key, qty entity.Split) squirrel.UpdateBuilder {
	return r.builder.Update(poolsTable).
		Set("qty_good", squirrel.Expr("qty_good - ?", qty.Good)).
		Set("qty_defective", squirrel.Expr("qty_defective - ?", qty.Defective)).
		Set("updated_at", r.now().UTC()).
		Where(keyEq(key)).
		Where(squirrel.GtOrEq{"qty_good": qty.Good, "qty_defective": qty.Defective})
}

// Increment upserts the pool starting from zero.
func (r *PoolRepo) Increment(ctx context.Context, key inventory.Key, qty entity.Split) error {
	sql, args, err := r.incrementQuery(key, qty).ToSql()
	if err != nil {
		return fmt.Errorf("build increment: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("increment pool: %w", err)
	}
	return nil
}

func (r *PoolRepo) incrementQuery(key inventory.Key, qty entity.Split) squirrel.InsertBuilder {
	return r.builder.Insert(poolsTable).
		Columns(poolColumns...).
		Values(key.SpareID, string(key.Location.Type), key.Location.ID, qty.Good, qty.Defective, r.now().UTC()).
		Suffix("ON CONFLICT (spare_id, location_type, location_id) DO UPDATE SET " +
			"qty_good = inventory_pools.qty_good + EXCLUDED.qty_good, " +
			"qty_defective = inventory_pools.qty_defective + EXCLUDED.qty_defective, " +
			"updated_at = EXCLUDED.updated_at")
}

func (r *PoolRepo) List(ctx context.Context, f inventory.PoolFilter) ([]inventory.Pool, error) {
	q := r.builder.Select(poolColumns...).From(poolsTable)
	if f.SpareID != 0 {
		q = q.Where(squirrel.Eq{"spare_id": f.SpareID})
	}
	if f.LocationType != "" {
		q = q.Where(squirrel.Eq{"location_type": string(f.LocationType)})
	}
	if f.LocationID != 0 {
		q = q.Where(squirrel.Eq{"location_id": f.LocationID})
	}
	q = q.OrderBy("spare_id", "location_type", "location_id")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []poolRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	out := make([]inventory.Pool, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
