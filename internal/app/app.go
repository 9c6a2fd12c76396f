// Package app wires storage into the lifecycle services. Both binaries and
// the HTTP tests build their services here.
package app

import (
	"context"

	corenumerator "spareflow/internal/core/numerator"
	"spareflow/internal/core/security"
	"spareflow/internal/core/tx"
	"spareflow/internal/domain/approval"
	"spareflow/internal/domain/audit"
	"spareflow/internal/domain/catalog"
	"spareflow/internal/domain/inventory"
	"spareflow/internal/domain/issue"
	"spareflow/internal/domain/movement"
	"spareflow/internal/domain/request"
	"spareflow/internal/domain/returns"
	"spareflow/internal/infrastructure/storage/memory"
	"spareflow/internal/infrastructure/storage/postgres"
	"spareflow/internal/infrastructure/storage/postgres/catalog_repo"
	"spareflow/internal/infrastructure/storage/postgres/document_repo"
	"spareflow/internal/infrastructure/storage/postgres/register_repo"
	"spareflow/pkg/numerator"
)

// Storage is one backend: repositories plus the transaction manager they share.
type Storage struct {
	TxManager   tx.Manager
	Requests    request.Repository
	Movements   movement.Repository
	Pools       inventory.Repository
	Approvals   approval.Repository
	Statuses    catalog.StatusRepository
	Spares      catalog.SpareRepository
	Technicians catalog.TechnicianRepository
	Journal     audit.Journal
	Numbers     corenumerator.Generator
}

// MemoryStorage exposes an in-memory store as Storage.
func MemoryStorage(s *memory.Store) Storage {
	return Storage{
		TxManager:   s,
		Requests:    s.Requests(),
		Movements:   s.Movements(),
		Pools:       s.Pools(),
		Approvals:   s.Approvals(),
		Statuses:    s.Catalogs(),
		Spares:      s.Catalogs(),
		Technicians: s.Catalogs(),
		Journal:     s.Journal(),
		Numbers:     s.Numbers(),
	}
}

// PostgresStorage builds the postgres repositories over txm.
func PostgresStorage(txm *postgres.TxManager, codec *postgres.ChangesCodec) Storage {
	catalogs := catalog_repo.NewRepo(txm)
	return Storage{
		TxManager:   txm,
		Requests:    document_repo.NewRequestRepo(txm),
		Movements:   register_repo.NewMovementRepo(txm),
		Pools:       register_repo.NewPoolRepo(txm),
		Approvals:   register_repo.NewApprovalRepo(txm),
		Statuses:    catalogs,
		Spares:      catalogs,
		Technicians: catalogs,
		Journal:     postgres.NewJournalStore(txm, codec),
		Numbers: numerator.NewWithSource(func(ctx context.Context) numerator.Querier {
			return txm.GetQuerier(ctx)
		}),
	}
}

// Options tune the services.
type Options struct {
	Policy   security.ApprovalPolicy
	Observer request.Observer
}

// Services are the lifecycle managers and the read-only collaborators the
// HTTP layer needs.
type Services struct {
	Issue     *issue.Service
	Returns   *returns.Service
	Inventory *inventory.Service
	Statuses  *catalog.StatusCatalog
}

// NewServices wires every service over st.
func NewServices(st Storage, opts Options) *Services {
	statuses := catalog.NewStatusCatalog(st.Statuses)
	spares := catalog.NewSpareCatalog(st.Spares)
	directory := catalog.NewDirectory(st.Technicians)
	pools := inventory.NewService(st.Pools, st.TxManager)
	ledger := movement.NewLedger(st.Movements, st.TxManager)
	trail := approval.NewTrail(st.Approvals)
	requests := request.NewStore(st.Requests, statuses, st.Journal, st.Numbers, request.WithObserver(opts.Observer))

	return &Services{
		Issue: issue.NewService(issue.Deps{
			TxManager: st.TxManager,
			Requests:  requests,
			Spares:    spares,
			Directory: directory,
			Inventory: pools,
			Ledger:    ledger,
			Approvals: trail,
			Policy:    opts.Policy,
		}),
		Returns: returns.NewService(returns.Deps{
			TxManager: st.TxManager,
			Requests:  requests,
			Spares:    spares,
			Directory: directory,
			Inventory: pools,
			Ledger:    ledger,
			Approvals: trail,
		}),
		Inventory: pools,
		Statuses:  statuses,
	}
}
