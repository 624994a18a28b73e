package db

import (
	"context"
	"time"
)

// Store is the Redis facade combining all sub-interfaces. Consumers depend
// on the narrow sub-interfaces, not on Store.
type Store interface {
	Pinger
	KVStore
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides key-value operations for the shared cache tiers.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	// DelPattern removes every key matching the glob pattern and returns
	// the number of keys deleted.
	DelPattern(ctx context.Context, pattern string) (int, error)
}

// Searcher provides retrieval over the corpus FT indexes. Index creation is
// owned by the ingestion pipeline; this engine only queries.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchText(ctx context.Context, q *TextQuery) (*SearchResult, error)
}
