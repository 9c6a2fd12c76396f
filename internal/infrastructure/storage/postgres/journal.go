package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	"spareflow/internal/core/id"
	"spareflow/internal/domain/audit"
)

// CompressionAlgo names how a journal body is stored.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// DefaultCompressThreshold is the body size above which changes are compressed.
const DefaultCompressThreshold = 10 * 1024

type journalRow struct {
	ID                id.ID           `db:"id"`
	EntityType        string          `db:"entity_type"`
	EntityID          id.ID           `db:"entity_id"`
	Action            string          `db:"action"`
	Actor             string          `db:"actor"`
	RequestNo         string          `db:"request_no"`
	Changes           json.RawMessage `db:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// ChangesCodec compresses large journal bodies with zstd.
type ChangesCodec struct {
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	threshold int
}

// NewChangesCodec creates a codec. threshold <= 0 selects the default.
func NewChangesCodec(threshold int) (*ChangesCodec, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	if threshold <= 0 {
		threshold = DefaultCompressThreshold
	}
	return &ChangesCodec{encoder: encoder, decoder: decoder, threshold: threshold}, nil
}

// Encode returns either the plain body or its compressed form.
func (c *ChangesCodec) Encode(changes json.RawMessage) (plain json.RawMessage, compressed []byte, algo CompressionAlgo) {
	if len(changes) <= c.threshold {
		return changes, nil, CompressionNone
	}
	return nil, c.encoder.EncodeAll(changes, nil), CompressionZstd
}

// Decode reverses Encode.
func (c *ChangesCodec) Decode(plain json.RawMessage, compressed []byte, algo CompressionAlgo) (json.RawMessage, error) {
	if algo != CompressionZstd {
		return plain, nil
	}
	out, err := c.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress changes: %w", err)
	}
	return out, nil
}

// JournalStore implements audit.Journal on sys_journal. Entries are written
// through the caller's transaction so they commit with the transition.
type JournalStore struct {
	txManager *TxManager
	codec     *ChangesCodec
}

var _ audit.Journal = (*JournalStore)(nil)

// NewJournalStore creates a journal store.
func NewJournalStore(txManager *TxManager, codec *ChangesCodec) *JournalStore {
	return &JournalStore{txManager: txManager, codec: codec}
}

func (s *JournalStore) Record(ctx context.Context, e audit.Entry) error {
	if id.IsNil(e.ID) {
		e.ID = id.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	plain, compressed, algo := s.codec.Encode(e.Changes)

	query, args, err := psql.Insert("sys_journal").
		Columns("id", "entity_type", "entity_id", "action", "actor", "request_no",
			"changes", "changes_compressed", "compression_algo", "created_at").
		Values(e.ID, e.EntityType, e.EntityID, string(e.Action), e.Actor, e.RequestID,
			nullableJSON(plain), compressed, algo, e.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build journal insert: %w", err)
	}

	if _, err := s.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

// History returns entries newest first.
func (s *JournalStore) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]audit.Entry, error) {
	builder := psql.Select("id", "entity_type", "entity_id", "action", "actor", "request_no",
		"changes", "changes_compressed", "compression_algo", "created_at").
		From("sys_journal").
		Where(sq.Eq{"entity_type": entityType, "entity_id": entityID}).
		OrderBy("created_at DESC", "id DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build journal query: %w", err)
	}

	var rows []journalRow
	if err := pgxscan.Select(ctx, s.txManager.GetQuerier(ctx), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select journal: %w", err)
	}

	out := make([]audit.Entry, 0, len(rows))
	for _, r := range rows {
		changes, err := s.codec.Decode(r.Changes, r.ChangesCompressed, r.CompressionAlgo)
		if err != nil {
			return nil, err
		}
		out = append(out, audit.Entry{
			ID:         r.ID,
			EntityType: r.EntityType,
			EntityID:   r.EntityID,
			Action:     audit.Action(r.Action),
			Actor:      r.Actor,
			RequestID:  r.RequestNo,
			Changes:    changes,
			CreatedAt:  r.CreatedAt,
		})
	}
	return out, nil
}

func nullableJSON(b json.RawMessage) any {
	if len(b) == 0 {
		return nil
	}
	return []byte(b)
}
