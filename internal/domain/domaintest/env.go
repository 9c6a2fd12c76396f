// Package domaintest wires the lifecycle collaborators over the in-memory
// store for service tests.
package domaintest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"spareflow/internal/core/entity"
	"spareflow/internal/domain/approval"
	"spareflow/internal/domain/catalog"
	"spareflow/internal/domain/inventory"
	"spareflow/internal/domain/movement"
	"spareflow/internal/domain/request"
	"spareflow/internal/infrastructure/storage/memory"
)

// Fixture ids shared by the service tests.
const (
	ServiceCenterID      int64 = 3
	OtherServiceCenterID int64 = 4
	TechnicianID         int64 = 7
	OtherTechnicianID    int64 = 8
	SpareFilter          int64 = 10
	SparePump            int64 = 11
	SpareBoard           int64 = 12
)

// Env is one isolated set of collaborators.
type Env struct {
	Store     *memory.Store
	Statuses  *catalog.StatusCatalog
	Spares    *catalog.SpareCatalog
	Directory *catalog.Directory
	Inventory *inventory.Service
	Ledger    *movement.Ledger
	Approvals *approval.Trail
	Requests  *request.Store
}

// New returns an Env with three spares, two technicians at service center 3
// and 4, and empty pools.
func New(t testing.TB, opts ...request.StoreOption) *Env {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	catalogs := store.Catalogs()
	for _, s := range []catalog.Spare{
		{ID: SpareFilter, Code: "FLT-10", Description: "Water filter"},
		{ID: SparePump, Code: "PMP-11", Description: "Drain pump"},
		{ID: SpareBoard, Code: "PCB-12", Description: "Control board"},
	} {
		require.NoError(t, catalogs.PutSpare(ctx, s))
	}
	require.NoError(t, catalogs.PutTechnician(ctx, catalog.Technician{ID: TechnicianID, Name: "Ravi", ServiceCenterID: ServiceCenterID}))
	require.NoError(t, catalogs.PutTechnician(ctx, catalog.Technician{ID: OtherTechnicianID, Name: "Anil", ServiceCenterID: OtherServiceCenterID}))

	statuses := catalog.NewStatusCatalog(catalogs)
	return &Env{
		Store:     store,
		Statuses:  statuses,
		Spares:    catalog.NewSpareCatalog(catalogs),
		Directory: catalog.NewDirectory(catalogs),
		Inventory: inventory.NewService(store.Pools(), store),
		Ledger:    movement.NewLedger(store.Movements(), store),
		Approvals: approval.NewTrail(store.Approvals()),
		Requests:  request.NewStore(store.Requests(), statuses, store.Journal(), store.Numbers(), opts...),
	}
}

// Seed adds opening stock to a pool.
func (e *Env) Seed(t testing.TB, spareID int64, loc entity.Location, qty entity.Split) {
	t.Helper()
	require.NoError(t, e.Inventory.Adjust(context.Background(), inventory.AdjustInput{
		SpareID:  spareID,
		Location: loc,
		Quantity: qty,
		Reason:   "test seed",
	}))
}

// Pool returns the current pool quantity.
func (e *Env) Pool(t testing.TB, spareID int64, loc entity.Location) entity.Split {
	t.Helper()
	p, err := e.Inventory.Pool(context.Background(), spareID, loc)
	require.NoError(t, err)
	return p.Quantity
}

// Snapshot captures the counts a rolled-back transition must leave untouched.
type Snapshot struct {
	Pools     []inventory.Pool
	Approvals int
	Movements int
	Status    string
}

// Capture records pools, approvals and movements of one request.
func (e *Env) Capture(t testing.TB, r *request.Request) Snapshot {
	t.Helper()
	ctx := context.Background()

	pools, err := e.Inventory.ListPools(ctx, inventory.PoolFilter{})
	require.NoError(t, err)
	for i := range pools {
		pools[i].UpdatedAt = time.Time{}
	}
	movements, err := e.Ledger.ForReference(ctx, r.Direction.EntityType(), r.ID)
	require.NoError(t, err)
	current, err := e.Requests.Get(ctx, r.ID, r.Direction)
	require.NoError(t, err)

	return Snapshot{
		Pools:     pools,
		Approvals: e.Store.Approvals().Count(ctx),
		Movements: len(movements),
		Status:    current.Status,
	}
}
