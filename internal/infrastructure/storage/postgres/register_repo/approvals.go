package register_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"spareflow/internal/core/id"
	"spareflow/internal/domain/approval"
	"spareflow/internal/infrastructure/storage/postgres"
)

const approvalsTable = "approvals"

type approvalRow struct {
	ID             id.ID     `db:"id"`
	EntityType     string    `db:"entity_type"`
	EntityID       id.ID     `db:"entity_id"`
	ItemID         *id.ID    `db:"item_id"`
	ApprovalLevel  int       `db:"approval_level"`
	ApproverID     string    `db:"approver_id"`
	ApprovalStatus string    `db:"approval_status"`
	Remarks        string    `db:"remarks"`
	ApprovedAt     time.Time `db:"approved_at"`
}

var approvalColumns = []string{
	"id", "entity_type", "entity_id", "item_id", "approval_level",
	"approver_id", "approval_status", "remarks", "approved_at",
}

// ApprovalRepo implements approval.Repository. The table itself rejects
// UPDATE and DELETE with a trigger.
type ApprovalRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ approval.Repository = (*ApprovalRepo)(nil)

// NewApprovalRepo creates an approval repository.
func NewApprovalRepo(txManager *postgres.TxManager) *ApprovalRepo {
	return &ApprovalRepo{txManager: txManager, builder: postgres.Builder}
}

func (r *ApprovalRepo) Insert(ctx context.Context, a *approval.Approval) error {
	sql, args, err := r.builder.Insert(approvalsTable).
		Columns(approvalColumns...).
		Values(a.ID, a.EntityType, a.EntityID, a.ItemID, a.Level, a.ApproverID, string(a.Status), a.Remarks, a.ApprovedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert approval: %w", err)
	}
	return nil
}

func (r *ApprovalRepo) ListForEntity(ctx context.Context, entityType string, entityID id.ID) ([]approval.Approval, error) {
	sql, args, err := r.builder.Select(approvalColumns...).
		From(approvalsTable).
		Where(squirrel.Eq{"entity_type": entityType, "entity_id": entityID}).
		OrderBy("approved_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []approvalRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}

	out := make([]approval.Approval, 0, len(rows))
	for _, row := range rows {
		out = append(out, approval.Approval{
			ID:         row.ID,
			EntityType: row.EntityType,
			EntityID:   row.EntityID,
			ItemID:     row.ItemID,
			Level:      row.ApprovalLevel,
			ApproverID: row.ApproverID,
			Status:     approval.Status(row.ApprovalStatus),
			Remarks:    row.Remarks,
			ApprovedAt: row.ApprovedAt,
		})
	}
	return out, nil
}
