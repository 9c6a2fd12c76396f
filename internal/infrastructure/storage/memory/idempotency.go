package memory

import (
	"context"
	"sync"
	"time"

	"spareflow/internal/core/apperror"
	"spareflow/internal/infrastructure/storage/postgres"
)

type idempotencyRecord struct {
	actor       string
	operation   string
	requestHash string
	done        bool
	replay      postgres.IdempotencyReplay
	expiresAt   time.Time
}

// IdempotencyStore keeps idempotency keys in memory with the same outcomes
// as postgres.IdempotencyStore, minus stale-key reclaiming.
type IdempotencyStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	keys map[string]*idempotencyRecord
	now  func() time.Time
}

// NewIdempotencyStore creates an empty store.
func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		ttl:  ttl,
		keys: make(map[string]*idempotencyRecord),
		now:  time.Now,
	}
}

func (s *IdempotencyStore) AcquireKey(_ context.Context, key, actor, operation, requestHash string) (*postgres.IdempotencyReplay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec, ok := s.keys[key]
	if !ok || now.After(rec.expiresAt) {
		s.keys[key] = &idempotencyRecord{
			actor:       actor,
			operation:   operation,
			requestHash: requestHash,
			expiresAt:   now.Add(s.ttl),
		}
		return nil, nil
	}

	if rec.actor != actor || rec.operation != operation || rec.requestHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key)
	}
	if !rec.done {
		return nil, apperror.NewIdempotencyConflict(key)
	}
	replay := rec.replay
	return &replay, nil
}

func (s *IdempotencyStore) CompleteKey(_ context.Context, key string, statusCode int, contentType string, body []byte) error {
	return s.finish(key, statusCode, contentType, body)
}

func (s *IdempotencyStore) FailKey(_ context.Context, key string, statusCode int, contentType string, body []byte) error {
	return s.finish(key, statusCode, contentType, body)
}

func (s *IdempotencyStore) ReleaseKey(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.keys[key]; ok && !rec.done {
		delete(s.keys, key)
	}
	return nil
}

func (s *IdempotencyStore) finish(key string, statusCode int, contentType string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.keys[key]
	if !ok {
		return nil
	}
	rec.done = true
	rec.replay = postgres.IdempotencyReplay{
		StatusCode:  statusCode,
		ContentType: contentType,
		Body:        append([]byte(nil), body...),
	}
	return nil
}
