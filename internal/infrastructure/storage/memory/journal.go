package memory

import (
	"context"

	"spareflow/internal/core/id"
	"spareflow/internal/domain/audit"
)

// JournalStore implements audit.Journal.
type JournalStore struct {
	s *Store
}

var _ audit.Journal = (*JournalStore)(nil)

func (j *JournalStore) Record(ctx context.Context, entry audit.Entry) error {
	return j.s.do(ctx, func(t *tables) error {
		t.journal = append(t.journal, entry)
		return nil
	})
}

// History returns entries newest first.
func (j *JournalStore) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]audit.Entry, error) {
	var out []audit.Entry
	err := j.s.do(ctx, func(t *tables) error {
		for i := len(t.journal) - 1; i >= 0; i-- {
			e := t.journal[i]
			if e.EntityType != entityType || e.EntityID != entityID {
				continue
			}
			out = append(out, e)
			if limit > 0 && len(out) == limit {
				break
			}
		}
		return nil
	})
	return out, err
}
