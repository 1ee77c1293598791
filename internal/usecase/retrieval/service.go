package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/clinico-health/assist/internal/domain"
)

// Service merges nearest-neighbor results across knowledge collections.
type Service struct {
	repo   KnowledgeRepo
	embed  Embedder
	logger *zap.Logger
}

// Retrieval is the merged outcome of a cross-collection query. An empty
// Context means "no information": callers must answer accordingly rather
// than generate from nothing.
type Retrieval struct {
	Results []domain.RetrievalResult
	Context string
}

// New creates a retrieval service.
func New(repo KnowledgeRepo, embed Embedder, logger *zap.Logger) *Service {
	return &Service{repo: repo, embed: embed, logger: logger}
}

// Retrieve embeds the query once, runs top-k KNN against every named
// collection, and merges the results ranked by relevance. Unknown or
// unreachable collections are skipped with a warning, never fatal.
func (s *Service) Retrieve(ctx context.Context, query string, collections []string, k int) (*Retrieval, error) {
	if len(collections) == 0 {
		return &Retrieval{}, nil
	}

	embResult, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	var merged []domain.RetrievalResult
	for _, name := range collections {
		if !s.repo.Has(name) {
			s.logger.Warn("skipping unknown collection", zap.String("collection", name))
			continue
		}
		results, err := s.repo.Query(ctx, name, embResult.Embedding, k)
		if err != nil {
			s.logger.Warn("collection query failed",
				zap.String("collection", name), zap.Error(err))
			continue
		}
		merged = append(merged, results...)
	}

	sortResults(merged)

	if limit := k * len(collections); len(merged) > limit {
		merged = merged[:limit]
	}

	texts := make([]string, 0, len(merged))
	for _, r := range merged {
		texts = append(texts, r.Chunk.Text)
	}

	return &Retrieval{
		Results: merged,
		Context: strings.Join(texts, "\n"),
	}, nil
}

// sortResults orders by descending relevance. Ties are broken by
// collection, source, then text so the final ranking is independent of
// the order collections were queried in.
func sortResults(results []domain.RetrievalResult) {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Relevance != b.Relevance {
			return a.Relevance > b.Relevance
		}
		if a.Chunk.Collection != b.Chunk.Collection {
			return a.Chunk.Collection < b.Chunk.Collection
		}
		if a.Chunk.Source != b.Chunk.Source {
			return a.Chunk.Source < b.Chunk.Source
		}
		return a.Chunk.Text < b.Chunk.Text
	})
}
