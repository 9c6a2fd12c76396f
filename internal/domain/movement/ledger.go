package movement

import (
	"context"
	"fmt"
	"time"

	"spareflow/internal/core/apperror"
	"spareflow/internal/core/entity"
	"spareflow/internal/core/id"
	"spareflow/internal/core/tx"
)

// Ledger writes movements. Every write happens inside the transaction of the
// request transition that produced it.
type Ledger struct {
	repo      Repository
	txManager tx.Manager
	now       func() time.Time
}

// NewLedger creates a movement ledger.
func NewLedger(repo Repository, txManager tx.Manager) *Ledger {
	return &Ledger{repo: repo, txManager: txManager, now: time.Now}
}

// Build turns a draft into a movement with one goods line per non-zero
// condition of every line. The total always equals the sum of the goods lines.
func Build(d Draft, at time.Time) (*StockMovement, error) {
	if !d.Source.Valid() || !d.Destination.Valid() || d.Source == d.Destination {
		return nil, apperror.NewValidation("movement needs two distinct valid locations").
			WithDetail("source", d.Source.String()).
			WithDetail("destination", d.Destination.String())
	}
	if d.Status != StatusPending && d.Status != StatusCompleted {
		return nil, apperror.NewValidation("invalid movement status").WithDetail("status", d.Status)
	}

	m := &StockMovement{
		ID:            id.New(),
		Type:          d.Type,
		ReferenceType: d.ReferenceType,
		ReferenceID:   d.ReferenceID,
		ReferenceNo:   d.ReferenceNo,
		Source:        d.Source,
		Destination:   d.Destination,
		MovementDate:  at,
		Status:        d.Status,
		CreatedBy:     d.CreatedBy,
	}
	if d.Status == StatusCompleted {
		completedAt := at
		m.CompletedAt = &completedAt
	}

	for _, line := range d.Lines {
		if !line.Quantity.NonNegative() {
			return nil, apperror.NewValidation("movement quantity must not be negative").
				WithDetail("spare_id", line.SpareID)
		}
		for _, cond := range []entity.Condition{entity.ConditionGood, entity.ConditionDefective} {
			qty := line.Quantity.Of(cond)
			if qty == 0 {
				continue
			}
			m.Items = append(m.Items, GoodsMovementItem{
				ID:            id.New(),
				MovementID:    m.ID,
				RequestItemID: line.RequestItemID,
				SpareID:       line.SpareID,
				Qty:           qty,
				Condition:     cond,
			})
			m.TotalQty += qty
		}
	}

	if m.TotalQty == 0 {
		return nil, apperror.NewValidation("movement must move at least one unit")
	}
	return m, nil
}

// Record builds and stores a movement.
func (l *Ledger) Record(ctx context.Context, d Draft) (*StockMovement, error) {
	if !l.txManager.InTransaction(ctx) {
		return nil, apperror.NewInternal(fmt.Errorf("movement: record requires an active transaction"))
	}
	m, err := Build(d, l.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := l.repo.Create(ctx, m); err != nil {
		return nil, apperror.NewPersistence(fmt.Errorf("create movement: %w", err))
	}
	return m, nil
}

// Lock returns a movement with its header locked for the rest of the transaction.
func (l *Ledger) Lock(ctx context.Context, movementID id.ID) (*StockMovement, error) {
	m, err := l.repo.GetForUpdate(ctx, movementID)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return m, nil
}

// Complete flips a pending movement to completed.
func (l *Ledger) Complete(ctx context.Context, movementID id.ID) (*StockMovement, error) {
	at := l.now().UTC()
	changed, err := l.repo.MarkCompleted(ctx, movementID, at)
	if err != nil {
		return nil, apperror.NewPersistence(fmt.Errorf("complete movement: %w", err))
	}

	m, err := l.repo.GetByID(ctx, movementID)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	if !changed {
		return nil, apperror.NewStateConflict("stock_movement", movementID, string(m.Status), "complete")
	}
	return m, nil
}

// Get returns a movement.
func (l *Ledger) Get(ctx context.Context, movementID id.ID) (*StockMovement, error) {
	m, err := l.repo.GetByID(ctx, movementID)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return m, nil
}

// ForReference lists the movements of one request.
func (l *Ledger) ForReference(ctx context.Context, referenceType string, referenceID id.ID) ([]StockMovement, error) {
	ms, err := l.repo.ListByReference(ctx, referenceType, referenceID)
	if err != nil {
		return nil, apperror.NewPersistence(fmt.Errorf("list movements: %w", err))
	}
	return ms, nil
}
