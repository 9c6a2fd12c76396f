package register_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"spareflow/internal/core/apperror"
	"spareflow/internal/core/entity"
	"spareflow/internal/core/id"
	"spareflow/internal/domain/movement"
	"spareflow/internal/infrastructure/storage/postgres"
)

const (
	movementsTable     = "stock_movements"
	movementItemsTable = "goods_movement_items"
)

type movementRow struct {
	ID              id.ID      `db:"id"`
	MovementType    string     `db:"movement_type"`
	ReferenceType   string     `db:"reference_type"`
	ReferenceID     id.ID      `db:"reference_id"`
	ReferenceNo     string     `db:"reference_no"`
	SourceType      string     `db:"source_type"`
	SourceID        int64      `db:"source_id"`
	DestinationType string     `db:"destination_type"`
	DestinationID   int64      `db:"destination_id"`
	TotalQty        int64      `db:"total_qty"`
	MovementDate    time.Time  `db:"movement_date"`
	Status          string     `db:"status"`
	CompletedAt     *time.Time `db:"completed_at"`
	CreatedBy       string     `db:"created_by"`
}

var movementColumns = []string{
	"id", "movement_type", "reference_type", "reference_id", "reference_no",
	"source_type", "source_id", "destination_type", "destination_id",
	"total_qty", "movement_date", "status", "completed_at", "created_by",
}

func (r movementRow) toDomain() movement.StockMovement {
	return movement.StockMovement{
		ID:            r.ID,
		Type:          movement.Type(r.MovementType),
		ReferenceType: r.ReferenceType,
		ReferenceID:   r.ReferenceID,
		ReferenceNo:   r.ReferenceNo,
		Source:        entity.Location{Type: entity.PartyType(r.SourceType), ID: r.SourceID},
		Destination:   entity.Location{Type: entity.PartyType(r.DestinationType), ID: r.DestinationID},
		TotalQty:      r.TotalQty,
		MovementDate:  r.MovementDate,
		Status:        movement.Status(r.Status),
		CompletedAt:   r.CompletedAt,
		CreatedBy:     r.CreatedBy,
	}
}

type movementItemRow struct {
	ID            id.ID  `db:"id"`
	MovementID    id.ID  `db:"movement_id"`
	RequestItemID id.ID  `db:"request_item_id"`
	SpareID       int64  `db:"spare_id"`
	Qty           int64  `db:"qty"`
	Condition     string `db:"condition"`
}

var movementItemColumns = []string{"id", "movement_id", "request_item_id", "spare_id", "qty", "condition"}

// MovementRepo implements movement.Repository.
type MovementRepo struct {
	txManager *postgres.TxManager
	inserter  *postgres.BatchInserter
	builder   squirrel.StatementBuilderType
}

var _ movement.Repository = (*MovementRepo)(nil)

// NewMovementRepo creates a movement repository.
func NewMovementRepo(txManager *postgres.TxManager) *MovementRepo {
	return &MovementRepo{
		txManager: txManager,
		inserter:  postgres.NewBatchInserter(txManager),
		builder:   postgres.Builder,
	}
}

// Create inserts the header, then copies the goods lines. It must run in a
// transaction.
func (r *MovementRepo) Create(ctx context.Context, m *movement.StockMovement) error {
	sql, args, err := r.builder.Insert(movementsTable).
		Columns(movementColumns...).
		Values(
			m.ID, string(m.Type), m.ReferenceType, m.ReferenceID, m.ReferenceNo,
			string(m.Source.Type), m.Source.ID, string(m.Destination.Type), m.Destination.ID,
			m.TotalQty, m.MovementDate, string(m.Status), m.CompletedAt, m.CreatedBy,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}

	rows := make([][]any, 0, len(m.Items))
	for _, it := range m.Items {
		rows = append(rows, []any{it.ID, m.ID, it.RequestItemID, it.SpareID, it.Qty, string(it.Condition)})
	}
	if _, err := r.inserter.CopyFromSlice(ctx, movementItemsTable, movementItemColumns, rows); err != nil {
		return fmt.Errorf("copy movement items: %w", err)
	}
	return nil
}

func (r *MovementRepo) GetByID(ctx context.Context, movementID id.ID) (*movement.StockMovement, error) {
	return r.get(ctx, movementID, false)
}

func (r *MovementRepo) GetForUpdate(ctx context.Context, movementID id.ID) (*movement.StockMovement, error) {
	return r.get(ctx, movementID, true)
}

func (r *MovementRepo) get(ctx context.Context, movementID id.ID, forUpdate bool) (*movement.StockMovement, error) {
	q := r.builder.Select(movementColumns...).From(movementsTable).Where(squirrel.Eq{"id": movementID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row movementRow
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock_movement", movementID)
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}

	m := row.toDomain()
	items, err := r.loadItems(ctx, []id.ID{movementID})
	if err != nil {
		return nil, err
	}
	m.Items = items[movementID]
	return &m, nil
}

func (r *MovementRepo) ListByReference(ctx context.Context, referenceType string, referenceID id.ID) ([]movement.StockMovement, error) {
	sql, args, err := r.builder.Select(movementColumns...).
		From(movementsTable).
		Where(squirrel.Eq{"reference_type": referenceType, "reference_id": referenceID}).
		OrderBy("movement_date", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []movementRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}

	ids := make([]id.ID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]movement.StockMovement, 0, len(rows))
	for _, row := range rows {
		m := row.toDomain()
		m.Items = items[m.ID]
		out = append(out, m)
	}
	return out, nil
}

func (r *MovementRepo) loadItems(ctx context.Context, movementIDs []id.ID) (map[id.ID][]movement.GoodsMovementItem, error) {
	out := make(map[id.ID][]movement.GoodsMovementItem, len(movementIDs))
	if len(movementIDs) == 0 {
		return out, nil
	}

	sql, args, err := r.builder.Select(movementItemColumns...).
		From(movementItemsTable).
		Where(squirrel.Eq{"movement_id": movementIDs}).
		OrderBy("movement_id", "spare_id", "condition").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build item query: %w", err)
	}

	var rows []movementItemRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select movement items: %w", err)
	}
	for _, row := range rows {
		out[row.MovementID] = append(out[row.MovementID], movement.GoodsMovementItem{
			ID:            row.ID,
			MovementID:    row.MovementID,
			RequestItemID: row.RequestItemID,
			SpareID:       row.SpareID,
			Qty:           row.Qty,
			Condition:     entity.Condition(row.Condition),
		})
	}
	return out, nil
}

// MarkCompleted is the only update a movement ever gets.
func (r *MovementRepo) MarkCompleted(ctx context.Context, movementID id.ID, at time.Time) (bool, error) {
	sql, args, err := r.completeQuery(movementID, at).ToSql()
	if err != nil {
		return false, fmt.Errorf("build update: %w", err)
	}
	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("complete movement: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *MovementRepo) completeQuery(movementID id.ID, at time.Time) squirrel.UpdateBuilder {
	return r.builder.Update(movementsTable).
		Set("status", string(movement.StatusCompleted)).
		Set("completed_at", at).
		Where(squirrel.Eq{"id": movementID, "status": string(movement.StatusPending)})
}
