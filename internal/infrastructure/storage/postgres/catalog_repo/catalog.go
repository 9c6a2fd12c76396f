// Package catalog_repo provides PostgreSQL implementations of the read-only
// catalogs: statuses, spares and technicians.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"spareflow/internal/core/apperror"
	"spareflow/internal/domain/catalog"
	"spareflow/internal/infrastructure/storage/postgres"
)

const (
	statusTable      = "status_catalog"
	sparesTable      = "spares"
	techniciansTable = "technicians"
)

// Repo implements the catalog repository interfaces.
type Repo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var (
	_ catalog.StatusRepository     = (*Repo)(nil)
	_ catalog.SpareRepository      = (*Repo)(nil)
	_ catalog.TechnicianRepository = (*Repo)(nil)
)

// NewRepo creates a catalog repository.
func NewRepo(txManager *postgres.TxManager) *Repo {
	return &Repo{txManager: txManager, builder: postgres.Builder}
}

func (r *Repo) ListStatuses(ctx context.Context) ([]catalog.Status, error) {
	sql, args, err := r.builder.Select("id", "name").From(statusTable).OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []catalog.Status
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list statuses: %w", err)
	}
	return out, nil
}

func (r *Repo) GetSpares(ctx context.Context, ids []int64) ([]catalog.Spare, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	sql, args, err := r.spareQuery(ids).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []catalog.Spare
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("get spares: %w", err)
	}
	return out, nil
}

func (r *Repo) spareQuery(ids []int64) squirrel.SelectBuilder {
	return r.builder.Select("id", "code", "description").
		From(sparesTable).
		Where(squirrel.Eq{"id": ids}).
		OrderBy("id")
}

func (r *Repo) GetTechnician(ctx context.Context, technicianID int64) (catalog.Technician, error) {
	sql, args, err := r.builder.Select("id", "name", "service_center_id").
		From(techniciansTable).
		Where(squirrel.Eq{"id": technicianID}).
		ToSql()
	if err != nil {
		return catalog.Technician{}, fmt.Errorf("build query: %w", err)
	}

	var tech catalog.Technician
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &tech, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return catalog.Technician{}, apperror.NewNotFound("technician", technicianID)
		}
		return catalog.Technician{}, fmt.Errorf("get technician: %w", err)
	}
	return tech, nil
}

// UpsertSpare writes master data. Only cmd/seed calls it.
func (r *Repo) UpsertSpare(ctx context.Context, s catalog.Spare) error {
	sql, args, err := r.builder.Insert(sparesTable).
		Columns("id", "code", "description").
		Values(s.ID, s.Code, s.Description).
		Suffix("ON CONFLICT (id) DO UPDATE SET code = EXCLUDED.code, description = EXCLUDED.description").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("upsert spare %d: %w", s.ID, err)
	}
	return nil
}

// UpsertTechnician writes master data. Only cmd/seed calls it.
func (r *Repo) UpsertTechnician(ctx context.Context, t catalog.Technician) error {
	sql, args, err := r.builder.Insert(techniciansTable).
		Columns("id", "name", "service_center_id").
		Values(t.ID, t.Name, t.ServiceCenterID).
		Suffix("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, service_center_id = EXCLUDED.service_center_id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("upsert technician %d: %w", t.ID, err)
	}
	return nil
}
