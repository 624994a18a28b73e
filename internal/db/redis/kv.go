package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/iuslabs/lexdex/internal/db"
)

// scanBatch is the COUNT hint for SCAN during pattern deletion.
const scanBatch = 256

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := s.b().Get().Key(key).Build()
	data, err := s.do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return data, nil
}

// SetWithTTL stores a value with an expiration.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	cmd := s.b().Set().Key(key).Value(string(value)).Ex(ttl).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

// Del removes a key. Deleting a missing key is not an error.
func (s *Store) Del(ctx context.Context, key string) error {
	cmd := s.b().Del().Key(key).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}

// DelPattern walks the keyspace with SCAN and deletes every key matching
// the glob pattern. Returns the number of keys deleted.
func (s *Store) DelPattern(ctx context.Context, pattern string) (int, error) {
	var cursor uint64
	removed := 0

	for {
		cmd := s.b().Scan().Cursor(cursor).Match(pattern).Count(scanBatch).Build()
		entry, err := s.do(ctx, cmd).AsScanEntry()
		if err != nil {
			return removed, &db.Error{Op: db.OpScan, Err: err}
		}

		if len(entry.Elements) > 0 {
			del := s.b().Del().Key(entry.Elements...).Build()
			n, err := s.do(ctx, del).AsInt64()
			if err != nil {
				return removed, &db.Error{Op: db.OpDel, Err: err}
			}
			removed += int(n)
		}

		cursor = entry.Cursor
		if cursor == 0 {
			return removed, nil
		}
	}
}
