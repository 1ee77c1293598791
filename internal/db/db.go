package db

import (
	"context"
	"time"
)

// Store is the database facade shared by the knowledge repository and
// the distributed rate limiter. Consumers depend on the narrow
// sub-interfaces, not on Store itself.
type Store interface {
	Pinger
	CounterStore
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CounterStore provides the atomic counter operations the distributed
// rate limiter needs: increment-and-read plus first-write expiry.
type CounterStore interface {
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	GetInt(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation. Entry scores are
// raw index distances; callers map them to relevance.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key      string
	Distance float64
	Fields   map[string]string
}

// Searcher provides read-only access to pre-built FT indexes.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchCount(ctx context.Context, index string) (int, error)
	IndexExists(ctx context.Context, name string) (bool, error)
}
