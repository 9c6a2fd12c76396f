package request

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"spareflow/internal/core/apperror"
	"spareflow/internal/core/id"
	"spareflow/internal/core/numerator"
	"spareflow/internal/domain"
	"spareflow/internal/domain/audit"
	"spareflow/pkg/logger"
)

var tracer = otel.Tracer("spareflow/request")

// StatusResolver maps status names to catalog ids.
type StatusResolver interface {
	ID(ctx context.Context, name string) (int, error)
	IDs(ctx context.Context, names ...string) ([]int, error)
	Name(ctx context.Context, statusID int) (string, error)
}

// Observer receives one call per finished transition.
type Observer interface {
	ObserveTransition(d Direction, t Transition, err error, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveTransition(Direction, Transition, error, time.Duration) {}

// Store applies transitions to requests. Every method that writes must be
// called inside a transaction; the lifecycle services own that boundary.
type Store struct {
	repo     Repository
	statuses StatusResolver
	journal  audit.Journal
	numbers  numerator.Generator
	observer Observer
	now      func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithObserver installs a transition observer.
func WithObserver(o Observer) StoreOption {
	return func(s *Store) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore creates a request store.
func NewStore(repo Repository, statuses StatusResolver, journal audit.Journal, numbers numerator.Generator, opts ...StoreOption) *Store {
	s := &Store{
		repo:     repo,
		statuses: statuses,
		journal:  journal,
		numbers:  numbers,
		observer: nopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the store clock in UTC.
func (s *Store) Now() time.Time {
	return s.now().UTC()
}

// Track starts a span for a transition and returns the function that closes
// it. Call as: ctx, done := store.Track(...); defer func() { done(err) }().
func (s *Store) Track(ctx context.Context, d Direction, t Transition, requestID string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, string(d)+"."+string(t),
		trace.WithAttributes(
			attribute.String("request.direction", string(d)),
			attribute.String("request.id", requestID),
		))

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(apperror.KindOf(err)))
		}
		span.End()
		s.observer.ObserveTransition(d, t, err, time.Since(start))
	}
}

// Create numbers and inserts a new pending request.
func (s *Store) Create(ctx context.Context, r *Request, actor string) error {
	pendingID, err := s.statuses.ID(ctx, StatusPending)
	if err != nil {
		return err
	}

	at := s.Now()
	number, err := s.numbers.GetNextNumber(ctx, numerator.DefaultConfig(r.Direction.NumberPrefix()), nil, at)
	if err != nil {
		return apperror.NewPersistence(fmt.Errorf("next request number: %w", err))
	}

	r.ID = id.New()
	r.RequestNo = number
	r.StatusID = pendingID
	r.Status = StatusPending
	r.CreatedBy = actor
	r.CreatedAt = at
	r.UpdatedAt = at
	r.AppendNote(at, string(TransitionCreate), actor, r.Reason)
	for i := range r.Items {
		r.Items[i].ID = id.New()
		r.Items[i].RequestID = r.ID
	}

	if err := s.repo.Create(ctx, r); err != nil {
		return apperror.NewPersistence(fmt.Errorf("create request: %w", err))
	}
	return s.Record(ctx, r, audit.ActionCreate, actor, audit.Diff(nil, r.Snapshot()))
}

// Get loads a request of the given direction.
func (s *Store) Get(ctx context.Context, requestID id.ID, d Direction) (*Request, error) {
	r, err := s.repo.GetByID(ctx, requestID)
	return s.resolve(ctx, r, err, requestID, d)
}

// Lock loads a request of the given direction and locks its header row.
func (s *Store) Lock(ctx context.Context, requestID id.ID, d Direction) (*Request, error) {
	r, err := s.repo.GetForUpdate(ctx, requestID)
	return s.resolve(ctx, r, err, requestID, d)
}

func (s *Store) resolve(ctx context.Context, r *Request, err error, requestID id.ID, d Direction) (*Request, error) {
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	if r.Direction != d {
		return nil, apperror.NewNotFound(d.EntityType(), requestID)
	}
	name, err := s.statuses.Name(ctx, r.StatusID)
	if err != nil {
		return nil, err
	}
	r.Status = name
	return r, nil
}

// Transition moves a locked request to status `to`. The write is guarded by
// the statuses t may start from, so a request that changed concurrently is
// reported as a conflict and nothing is written. before is the snapshot
// taken when the request was loaded; the journal stores the difference.
func (s *Store) Transition(ctx context.Context, r *Request, t Transition, to, actor, text string, before map[string]any) error {
	if err := Check(r, t); err != nil {
		return err
	}

	fromIDs, err := s.statuses.IDs(ctx, AllowedFrom(r.Direction, t)...)
	if err != nil {
		return err
	}
	toID, err := s.statuses.ID(ctx, to)
	if err != nil {
		return err
	}

	at := s.Now()
	line := NoteLine(at, string(t), actor, text)
	err = s.repo.UpdateStatus(ctx, StatusUpdate{
		RequestID:     r.ID,
		FromStatusIDs: fromIDs,
		ToStatusID:    toID,
		Note:          line,
		At:            at,
	})
	if errors.Is(err, ErrStatusChanged) {
		return apperror.NewStateConflict(r.Direction.EntityType(), r.ID, r.Status, string(t)).
			WithDetail("reason", "status changed concurrently")
	}
	if err != nil {
		return apperror.Wrap(err)
	}

	from := r.Status
	r.Notes = JoinNote(r.Notes, line)
	r.Status = to
	r.StatusID = toID
	r.UpdatedAt = at

	if err := s.Record(ctx, r, audit.Action(t), actor, audit.Diff(before, r.Snapshot())); err != nil {
		return err
	}

	logger.Info(ctx, "request transition",
		"request_id", r.ID.String(),
		"request_no", r.RequestNo,
		"direction", string(r.Direction),
		"transition", string(t),
		"from", from,
		"to", to,
		"actor", actor,
	)
	return nil
}

// SaveItems writes item decision, receipt and verification columns.
func (s *Store) SaveItems(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	if err := s.repo.UpdateItems(ctx, items); err != nil {
		return apperror.Wrap(err)
	}
	return nil
}

// ReplaceItems swaps the item set of r, assigning ids to new items.
func (s *Store) ReplaceItems(ctx context.Context, r *Request, items []Item) error {
	for i := range items {
		items[i].ID = id.New()
		items[i].RequestID = r.ID
	}
	if err := s.repo.ReplaceItems(ctx, r.ID, items); err != nil {
		return apperror.Wrap(err)
	}
	r.Items = items
	return nil
}

// History returns the journal of a request, newest first.
func (s *Store) History(ctx context.Context, r *Request, limit int) ([]audit.Entry, error) {
	entries, err := s.journal.History(ctx, r.Direction.EntityType(), r.ID, limit)
	if err != nil {
		return nil, apperror.NewPersistence(fmt.Errorf("journal history: %w", err))
	}
	return entries, nil
}

// Query is a list request with the status given by name.
type Query struct {
	Direction       Direction
	ServiceCenterID int64
	TechnicianID    int64
	Status          string
	FromDate        *time.Time
	ToDate          *time.Time
	Page            domain.Page
	IncludeItems    bool
}

// List returns a page of requests with status names resolved.
func (s *Store) List(ctx context.Context, q Query) (domain.ListResult[Request], error) {
	page := q.Page.Normalize()
	if q.FromDate != nil && q.ToDate != nil && q.ToDate.Before(*q.FromDate) {
		return domain.ListResult[Request]{}, apperror.NewValidation("toDate must not be before fromDate")
	}

	filter := ListFilter{
		Direction:       q.Direction,
		ServiceCenterID: q.ServiceCenterID,
		TechnicianID:    q.TechnicianID,
		FromDate:        q.FromDate,
		ToDate:          q.ToDate,
		Limit:           page.Limit,
		Offset:          page.Offset,
		IncludeItems:    q.IncludeItems,
	}
	if q.Status != "" {
		statusID, err := s.statuses.ID(ctx, q.Status)
		if err != nil {
			return domain.ListResult[Request]{}, err
		}
		filter.StatusID = &statusID
	}

	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return domain.ListResult[Request]{}, apperror.NewPersistence(fmt.Errorf("list requests: %w", err))
	}

	result := domain.EmptyResult[Request](page)
	result.TotalCount = total
	for i := range rows {
		name, err := s.statuses.Name(ctx, rows[i].StatusID)
		if err != nil {
			return domain.ListResult[Request]{}, err
		}
		rows[i].Status = name
		result.Items = append(result.Items, rows[i])
	}
	return result, nil
}

// Record writes a journal entry for r inside the caller's transaction.
func (s *Store) Record(ctx context.Context, r *Request, action audit.Action, actor string, changes map[string]any) error {
	payload, err := json.Marshal(changes)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("marshal journal changes: %w", err))
	}
	entry := audit.Entry{
		ID:         id.New(),
		EntityType: r.Direction.EntityType(),
		EntityID:   r.ID,
		Action:     action,
		Actor:      actor,
		RequestID:  r.RequestNo,
		Changes:    payload,
		CreatedAt:  s.Now(),
	}
	if err := s.journal.Record(ctx, entry); err != nil {
		return apperror.NewPersistence(fmt.Errorf("journal %s: %w", action, err))
	}
	return nil
}
