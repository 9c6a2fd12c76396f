package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"spareflow/internal/core/apperror"
	"spareflow/internal/core/entity"
	"spareflow/internal/core/tx"
	"spareflow/pkg/logger"
)

// ErrNoTransaction is returned when a pool mutation is attempted outside a
// transaction. Transfers only ever happen as part of a request transition.
var ErrNoTransaction = errors.New("inventory: pool mutation requires an active transaction")

// Service owns the transfer primitive.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates an inventory service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{repo: repo, txManager: txManager}
}

// Transfer decrements the source pool and increments the destination pool by
// the same good/defective amounts. It must run inside the caller's
// transaction; a shortfall at the source fails with INSUFFICIENT_STOCK and
// the caller's transaction rolls everything back.
func (s *Service) Transfer(ctx context.Context, in TransferInput) error {
	if !s.txManager.InTransaction(ctx) {
		return apperror.NewInternal(ErrNoTransaction)
	}
	if err := validateTransfer(in); err != nil {
		return err
	}

	src := Key{SpareID: in.SpareID, Location: in.From}
	ok, err := s.repo.Decrement(ctx, src, in.Quantity)
	if err != nil {
		return apperror.NewPersistence(fmt.Errorf("decrement pool %s: %w", in.From, err))
	}
	if !ok {
		available, err := s.repo.Get(ctx, src)
		if err != nil {
			return apperror.NewPersistence(fmt.Errorf("read pool %s: %w", in.From, err))
		}
		return apperror.NewInsufficientStock(
			in.SpareID, in.From.String(),
			in.Quantity.Good, in.Quantity.Defective,
			available.Quantity.Good, available.Quantity.Defective,
		)
	}

	dst := Key{SpareID: in.SpareID, Location: in.To}
	if err := s.repo.Increment(ctx, dst, in.Quantity); err != nil {
		return apperror.NewPersistence(fmt.Errorf("increment pool %s: %w", in.To, err))
	}

	logger.Debug(ctx, "pool transfer",
		"spare_id", in.SpareID,
		"from", in.From.String(),
		"to", in.To.String(),
		"good", in.Quantity.Good,
		"defective", in.Quantity.Defective,
	)
	return nil
}

// TransferAll runs several transfers in a deterministic order (spare id, then
// source, then destination) so that concurrent transitions lock pool rows in
// the same sequence.
func (s *Service) TransferAll(ctx context.Context, transfers []TransferInput) error {
	ordered := make([]TransferInput, len(transfers))
	copy(ordered, transfers)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.SpareID != b.SpareID {
			return a.SpareID < b.SpareID
		}
		if a.From != b.From {
			return a.From.Less(b.From)
		}
		return a.To.Less(b.To)
	})

	for _, t := range ordered {
		if err := s.Transfer(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// Adjust adds opening stock to a pool. It is used by seeding and never by
// request transitions.
func (s *Service) Adjust(ctx context.Context, in AdjustInput) error {
	if in.SpareID <= 0 {
		return apperror.NewValidation("spareId must be positive")
	}
	if !in.Location.Valid() {
		return apperror.NewValidation("invalid location").WithDetail("location", in.Location.String())
	}
	if !in.Quantity.NonNegative() || in.Quantity.IsZero() {
		return apperror.NewValidation("adjustment quantity must be positive")
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		key := Key{SpareID: in.SpareID, Location: in.Location}
		if err := s.repo.Increment(ctx, key, in.Quantity); err != nil {
			return apperror.NewPersistence(fmt.Errorf("adjust pool %s: %w", in.Location, err))
		}
		logger.Info(ctx, "pool adjusted",
			"spare_id", in.SpareID,
			"location", in.Location.String(),
			"good", in.Quantity.Good,
			"defective", in.Quantity.Defective,
			"reason", in.Reason,
		)
		return nil
	})
}

// Pool returns the current pool, zero when absent.
func (s *Service) Pool(ctx context.Context, spareID int64, loc entity.Location) (Pool, error) {
	p, err := s.repo.Get(ctx, Key{SpareID: spareID, Location: loc})
	if err != nil {
		return Pool{}, apperror.NewPersistence(fmt.Errorf("get pool: %w", err))
	}
	return p, nil
}

// ListPools lists pools.
func (s *Service) ListPools(ctx context.Context, filter PoolFilter) ([]Pool, error) {
	if filter.LocationType != "" && !filter.LocationType.Valid() {
		return nil, apperror.NewValidation("invalid locationType").WithDetail("locationType", filter.LocationType)
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	pools, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperror.NewPersistence(fmt.Errorf("list pools: %w", err))
	}
	return pools, nil
}

func validateTransfer(in TransferInput) error {
	if in.SpareID <= 0 {
		return apperror.NewValidation("spareId must be positive")
	}
	if !in.From.Valid() || !in.To.Valid() {
		return apperror.NewValidation("transfer locations must be valid").
			WithDetail("from", in.From.String()).
			WithDetail("to", in.To.String())
	}
	if in.From == in.To {
		return apperror.NewValidation("transfer source and destination must differ").
			WithDetail("location", in.From.String())
	}
	if !in.Quantity.NonNegative() || in.Quantity.IsZero() {
		return apperror.NewValidation("transfer quantity must be positive").
			WithDetail("good", in.Quantity.Good).
			WithDetail("defective", in.Quantity.Defective)
	}
	return nil
}
