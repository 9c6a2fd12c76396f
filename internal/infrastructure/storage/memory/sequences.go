package memory

import (
	"context"
	"time"

	corenumerator "spareflow/internal/core/numerator"
	"spareflow/pkg/numerator"
)

// Sequences implements numerator.Generator with gapless counters that roll
// back with the transaction.
type Sequences struct {
	s *Store
}

var _ corenumerator.Generator = (*Sequences)(nil)

func (q *Sequences) GetNextNumber(ctx context.Context, cfg corenumerator.Config, opts *corenumerator.Options, period time.Time) (string, error) {
	key := numerator.BuildKey(cfg, period)
	var next int64
	err := q.s.do(ctx, func(t *tables) error {
		t.sequences[key]++
		next = t.sequences[key]
		return nil
	})
	if err != nil {
		return "", err
	}
	return numerator.Format(cfg, period, next), nil
}
