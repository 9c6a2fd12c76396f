// Package memory is an in-process implementation of every repository and of
// tx.Manager. Transactions are serialized by one mutex and roll back by
// restoring a snapshot, which gives the same outcomes as row locks plus
// guarded updates in postgres. Used by tests and APP_ENV=memory.
package memory

import (
	"context"
	"sync"

	"spareflow/internal/core/id"
	"spareflow/internal/core/tx"
	"spareflow/internal/domain/approval"
	"spareflow/internal/domain/audit"
	"spareflow/internal/domain/catalog"
	"spareflow/internal/domain/inventory"
	"spareflow/internal/domain/movement"
	"spareflow/internal/domain/request"
)

// DefaultStatuses mirrors the rows seeded by the initial migration.
var DefaultStatuses = []catalog.Status{
	{ID: 1, Name: request.StatusPending},
	{ID: 2, Name: request.StatusApproved},
	{ID: 3, Name: request.StatusReceived},
	{ID: 4, Name: request.StatusVerified},
	{ID: 5, Name: request.StatusRejected},
	{ID: 6, Name: request.StatusReopened},
}

type tables struct {
	statuses    []catalog.Status
	spares      map[int64]catalog.Spare
	technicians map[int64]catalog.Technician
	requests    map[id.ID]*request.Request
	movements   map[id.ID]*movement.StockMovement
	pools       map[inventory.Key]inventory.Pool
	approvals   []approval.Approval
	journal     []audit.Entry
	sequences   map[string]int64
}

func newTables() *tables {
	statuses := make([]catalog.Status, len(DefaultStatuses))
	copy(statuses, DefaultStatuses)
	return &tables{
		statuses:    statuses,
		spares:      make(map[int64]catalog.Spare),
		technicians: make(map[int64]catalog.Technician),
		requests:    make(map[id.ID]*request.Request),
		movements:   make(map[id.ID]*movement.StockMovement),
		pools:       make(map[inventory.Key]inventory.Pool),
		sequences:   make(map[string]int64),
	}
}

func (t *tables) clone() *tables {
	out := &tables{
		statuses:    t.statuses,
		spares:      t.spares,
		technicians: t.technicians,
		requests:    make(map[id.ID]*request.Request, len(t.requests)),
		movements:   make(map[id.ID]*movement.StockMovement, len(t.movements)),
		pools:       make(map[inventory.Key]inventory.Pool, len(t.pools)),
		approvals:   append([]approval.Approval(nil), t.approvals...),
		journal:     append([]audit.Entry(nil), t.journal...),
		sequences:   make(map[string]int64, len(t.sequences)),
	}
	for k, r := range t.requests {
		out.requests[k] = r.Clone()
	}
	for k, m := range t.movements {
		out.movements[k] = cloneMovement(m)
	}
	for k, p := range t.pools {
		out.pools[k] = p
	}
	for k, v := range t.sequences {
		out.sequences[k] = v
	}
	return out
}

type txKey struct{}

// Store holds all tables.
type Store struct {
	mu   sync.Mutex
	data *tables
}

var _ tx.Manager = (*Store)(nil)

// NewStore creates an empty store with the status catalog seeded.
func NewStore() *Store {
	return &Store{data: newTables()}
}

// RunInTransaction runs fn with the store locked. Any error restores the
// tables to their state before fn. Nested calls join the outer transaction.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.InTransaction(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	defer func() {
		if p := recover(); p != nil {
			s.data = snapshot
			panic(p)
		}
		if err != nil {
			s.data = snapshot
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, s))
}

// InTransaction reports whether ctx carries a transaction of this store.
func (s *Store) InTransaction(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// do runs fn against the tables, taking the lock unless ctx already holds it.
func (s *Store) do(ctx context.Context, fn func(t *tables) error) error {
	if s.InTransaction(ctx) {
		return fn(s.data)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// Requests returns the request repository.
func (s *Store) Requests() *RequestRepo { return &RequestRepo{s: s} }

// Movements returns the movement repository.
func (s *Store) Movements() *MovementRepo { return &MovementRepo{s: s} }

// Pools returns the inventory pool repository.
func (s *Store) Pools() *PoolRepo { return &PoolRepo{s: s} }

// Approvals returns the approval repository.
func (s *Store) Approvals() *ApprovalRepo { return &ApprovalRepo{s: s} }

// Catalogs returns the read-only catalog repository.
func (s *Store) Catalogs() *CatalogRepo { return &CatalogRepo{s: s} }

// Journal returns the transition journal.
func (s *Store) Journal() *JournalStore { return &JournalStore{s: s} }

// Numbers returns the request number generator.
func (s *Store) Numbers() *Sequences { return &Sequences{s: s} }
