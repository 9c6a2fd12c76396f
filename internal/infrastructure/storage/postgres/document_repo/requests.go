// Package document_repo provides the PostgreSQL request repository: headers
// in spare_requests, lines in spare_request_items.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"spareflow/internal/core/apperror"
	"spareflow/internal/core/id"
	"spareflow/internal/domain/request"
	"spareflow/internal/infrastructure/storage/postgres"
)

const (
	requestsTable = "spare_requests"
	itemsTable    = "spare_request_items"
)

// RequestRepo implements request.Repository.
type RequestRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ request.Repository = (*RequestRepo)(nil)

// NewRequestRepo creates a request repository.
func NewRequestRepo(txManager *postgres.TxManager) *RequestRepo {
	return &RequestRepo{txManager: txManager, builder: postgres.Builder}
}

// Create inserts the header and its items.
func (r *RequestRepo) Create(ctx context.Context, req *request.Request) error {
	sql, args, err := r.builder.Insert(requestsTable).
		Columns(requestColumns...).
		Values(requestValues(req)...).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return r.insertItems(ctx, req.Items)
}

func (r *RequestRepo) insertItems(ctx context.Context, items []request.Item) error {
	if len(items) == 0 {
		return nil
	}
	q := r.builder.Insert(itemsTable).Columns(itemColumns...)
	for i, it := range items {
		q = q.Values(itemValues(it, i+1)...)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build item insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert request items: %w", err)
	}
	return nil
}

func (r *RequestRepo) GetByID(ctx context.Context, requestID id.ID) (*request.Request, error) {
	return r.get(ctx, requestID, false)
}

// GetForUpdate locks the header row until the transaction ends.
func (r *RequestRepo) GetForUpdate(ctx context.Context, requestID id.ID) (*request.Request, error) {
	return r.get(ctx, requestID, true)
}

func (r *RequestRepo) get(ctx context.Context, requestID id.ID, forUpdate bool) (*request.Request, error) {
	q := r.builder.Select(requestColumns...).
		From(requestsTable).
		Where(squirrel.Eq{"id": requestID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row requestRow
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("request", requestID)
		}
		return nil, fmt.Errorf("get request: %w", err)
	}

	req := row.toDomain()
	items, err := r.loadItems(ctx, []id.ID{requestID})
	if err != nil {
		return nil, err
	}
	req.Items = items[requestID]
	return req, nil
}

func (r *RequestRepo) loadItems(ctx context.Context, requestIDs []id.ID) (map[id.ID][]request.Item, error) {
	out := make(map[id.ID][]request.Item, len(requestIDs))
	if len(requestIDs) == 0 {
		return out, nil
	}

	sql, args, err := r.builder.Select(itemColumns...).
		From(itemsTable).
		Where(squirrel.Eq{"request_id": requestIDs}).
		OrderBy("request_id", "line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build item query: %w", err)
	}

	var rows []itemRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select request items: %w", err)
	}
	for _, row := range rows {
		out[row.RequestID] = append(out[row.RequestID], row.toDomain())
	}
	return out, nil
}

// UpdateStatus applies a guarded transition. A row that already left the
// allowed statuses is reported as request.ErrStatusChanged.
func (r *RequestRepo) UpdateStatus(ctx context.Context, upd request.StatusUpdate) error {
	sql, args, err := r.statusUpdateQuery(upd).ToSql()
	if err != nil {
		return fmt.Errorf("build status update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return request.ErrStatusChanged
	}
	return nil
}

func (r *RequestRepo) statusUpdateQuery(upd request.StatusUpdate) squirrel.UpdateBuilder {
	q := r.builder.Update(requestsTable).
		Set("status_id", upd.ToStatusID).
		Set("updated_at", upd.At)
	if upd.Note != "" {
		q = q.Set("notes", squirrel.Expr("CASE WHEN notes = '' THEN ? ELSE notes || chr(10) || ? END", upd.Note, upd.Note))
	}
	return q.
		Where(squirrel.Eq{"id": upd.RequestID}).
		Where(squirrel.Eq{"status_id": upd.FromStatusIDs})
}

// UpdateItems writes the receipt and decision columns of each item in one batch.
func (r *RequestRepo) UpdateItems(ctx context.Context, items []request.Item) error {
	batch := postgres.NewBatchExecutor(r.txManager)
	for _, it := range items {
		sql, args, err := r.itemUpdateQuery(it).ToSql()
		if err != nil {
			return fmt.Errorf("build item update: %w", err)
		}
		batch.Queue(sql, args...)
	}

	affected, err := batch.Execute(ctx)
	if err != nil {
		return fmt.Errorf("update request items: %w", err)
	}
	for i, n := range affected {
		if n == 0 {
			return apperror.NewNotFound("request_item", items[i].ID)
		}
	}
	return nil
}

func (r *RequestRepo) itemUpdateQuery(it request.Item) squirrel.UpdateBuilder {
	receivedGood, receivedDefective := splitColumns(it.Received)
	approvedGood, approvedDefective := splitColumns(it.Approved)
	return r.builder.Update(itemsTable).
		Set("received_good", receivedGood).
		Set("received_defective", receivedDefective).
		Set("approved_qty", it.ApprovedQty).
		Set("approved_good", approvedGood).
		Set("approved_defective", approvedDefective).
		Set("rejection_reason", it.RejectionReason).
		Set("condition_notes", it.ConditionNotes).
		Set("remarks", it.Remarks).
		Where(squirrel.Eq{"id": it.ID, "request_id": it.RequestID})
}

// ReplaceItems swaps the item set of a pending request.
func (r *RequestRepo) ReplaceItems(ctx context.Context, requestID id.ID, items []request.Item) error {
	sql, args, err := r.builder.Delete(itemsTable).
		Where(squirrel.Eq{"request_id": requestID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build item delete: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete request items: %w", err)
	}
	return r.insertItems(ctx, items)
}

// List returns one page, newest first, and the total count for the filter.
func (r *RequestRepo) List(ctx context.Context, f request.ListFilter) ([]request.Request, int64, error) {
	base := r.listQuery(f)
	querier := r.txManager.GetQuerier(ctx)

	countSQL, countArgs, err := r.builder.Select("COUNT(*)").FromSelect(base, "sub").ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}
	var total int64
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count requests: %w", err)
	}

	q := base.OrderBy("created_at DESC", "request_no DESC")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	var rows []requestRow
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}

	out := make([]request.Request, 0, len(rows))
	ids := make([]id.ID, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row.toDomain())
		ids = append(ids, row.ID)
	}

	if f.IncludeItems {
		items, err := r.loadItems(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for i := range out {
			out[i].Items = items[out[i].ID]
		}
	}
	return out, total, nil
}

func (r *RequestRepo) listQuery(f request.ListFilter) squirrel.SelectBuilder {
	q := r.builder.Select(requestColumns...).From(requestsTable)
	if f.Direction != "" {
		q = q.Where(squirrel.Eq{"direction": string(f.Direction)})
	}
	if f.ServiceCenterID != 0 {
		q = q.Where(squirrel.Eq{"destination_id": f.ServiceCenterID})
	}
	if f.TechnicianID != 0 {
		q = q.Where(squirrel.Eq{"source_id": f.TechnicianID})
	}
	if f.StatusID != nil {
		q = q.Where(squirrel.Eq{"status_id": *f.StatusID})
	}
	if f.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *f.FromDate})
	}
	if f.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *f.ToDate})
	}
	return q
}
