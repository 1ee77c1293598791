package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/clinico-health/assist/internal/db"
	"github.com/clinico-health/assist/internal/domain"
)

// store is the consumer interface for knowledge reads (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index string) (int, error)
	IndexExists(ctx context.Context, name string) (bool, error)
	Ping(ctx context.Context) error
}

// Repo reads the pre-built semantic collections. The offline ingestion
// job owns the indexes; this repository never writes to them.
type Repo struct {
	store     store
	keyPrefix string
	relevance domain.RelevanceFunc
	names     []string
}

// New creates a knowledge repository over the configured collections.
// The distance-to-relevance mapping follows the index's declared metric.
func New(s store, keyPrefix, metric string, collections []string) *Repo {
	return &Repo{
		store:     s,
		keyPrefix: keyPrefix,
		relevance: domain.RelevanceForMetric(metric),
		names:     append([]string(nil), collections...),
	}
}

// Collections returns the configured collection names.
func (r *Repo) Collections() []string {
	return append([]string(nil), r.names...)
}

// Has reports whether name is a configured collection.
func (r *Repo) Has(name string) bool {
	for _, n := range r.names {
		if n == name {
			return true
		}
	}
	return false
}

// Count returns the number of chunks in a collection.
func (r *Repo) Count(ctx context.Context, collection string) (int, error) {
	n, err := r.store.SearchCount(ctx, r.indexName(collection))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return n, nil
}

// Exists probes whether the collection's index is actually present in
// the store (the configuration may be ahead of the ingestion job).
func (r *Repo) Exists(ctx context.Context, collection string) (bool, error) {
	ok, err := r.store.IndexExists(ctx, r.indexName(collection))
	if err != nil {
		return false, fmt.Errorf("index exists %s: %w", collection, err)
	}
	return ok, nil
}

// Ping checks store connectivity.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return fmt.Errorf("knowledge store: %w", err)
	}
	return nil
}

// Query runs a top-k nearest-neighbor search on one collection and maps
// raw distances to relevance scores.
func (r *Repo) Query(
	ctx context.Context, collection string, vector []float32, k int,
) ([]domain.RetrievalResult, error) {
	q := &db.KNNQuery{
		IndexName:    r.indexName(collection),
		Vector:       vector,
		K:            k,
		ReturnFields: []string{"__content", "source", "__vector_score"},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", collection, err)
	}
	if sr == nil || sr.Total == 0 {
		return nil, nil
	}

	keyPrefix := fmt.Sprintf("%s%s:", r.keyPrefix, collection)
	results := make([]domain.RetrievalResult, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		source := entry.Fields["source"]
		if source == "" {
			source = strings.TrimPrefix(entry.Key, keyPrefix)
		}
		results = append(results, domain.RetrievalResult{
			Chunk: domain.Chunk{
				Text:       entry.Fields["__content"],
				Source:     source,
				Collection: collection,
			},
			Relevance: r.relevance(entry.Distance),
		})
	}

	return results, nil
}

func (r *Repo) indexName(collection string) string {
	return fmt.Sprintf("%s%s:idx", r.keyPrefix, collection)
}
