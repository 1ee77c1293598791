package retrieval

import (
	"context"

	"github.com/clinico-health/assist/internal/domain"
)

// mockRepo implements KnowledgeRepo for tests.
type mockRepo struct {
	collections map[string][]domain.RetrievalResult
	errors      map[string]error
	queried     []string
}

func (m *mockRepo) Query(_ context.Context, collection string, _ []float32, _ int) ([]domain.RetrievalResult, error) {
	m.queried = append(m.queried, collection)
	if err, ok := m.errors[collection]; ok {
		return nil, err
	}
	return m.collections[collection], nil
}

func (m *mockRepo) Has(collection string) bool {
	_, ok := m.collections[collection]
	if !ok {
		_, ok = m.errors[collection]
	}
	return ok
}

func (m *mockRepo) Collections() []string {
	names := make([]string, 0, len(m.collections))
	for name := range m.collections {
		names = append(names, name)
	}
	return names
}

// mockEmbedder implements Embedder with a fixed vector.
type mockEmbedder struct {
	err   error
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}, TotalTokens: 7}, nil
}

func result(collection, source, text string, relevance float64) domain.RetrievalResult {
	return domain.RetrievalResult{
		Chunk:     domain.Chunk{Text: text, Source: source, Collection: collection},
		Relevance: relevance,
	}
}
