package retrieval

import (
	"context"

	"github.com/clinico-health/assist/internal/domain"
)

// KnowledgeRepo is the read contract over the named knowledge collections.
type KnowledgeRepo interface {
	Query(ctx context.Context, collection string, vector []float32, k int) ([]domain.RetrievalResult, error)
	Has(collection string) bool
	Collections() []string
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
