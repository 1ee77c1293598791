package agents

import (
	"context"

	"github.com/clinico-health/assist/internal/domain"
	"github.com/clinico-health/assist/internal/usecase/retrieval"
)

// Retriever is the cross-collection retrieval contract.
type Retriever interface {
	Retrieve(ctx context.Context, query string, collections []string, k int) (*retrieval.Retrieval, error)
}

// Generator is the text generation contract.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// VisionGenerator analyzes a base64-encoded image.
type VisionGenerator interface {
	GenerateVision(ctx context.Context, instruction, imageB64 string) (string, error)
}

// sourcesOf maps retrieval results to response sources.
func sourcesOf(results []domain.RetrievalResult) []domain.Source {
	sources := make([]domain.Source, 0, len(results))
	for _, r := range results {
		sources = append(sources, domain.Source{
			Label:      r.Chunk.Source,
			Collection: r.Chunk.Collection,
			Relevance:  r.Relevance,
		})
	}
	return sources
}
