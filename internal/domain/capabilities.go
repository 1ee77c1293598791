package domain

import "context"

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token usage.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Generator is the generation capability. Two backends implement it
// (hosted API, local server); the choice is made once at startup and
// injected, never branched on inside handler logic.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// VisionGenerator additionally accepts a base64-encoded image.
type VisionGenerator interface {
	GenerateVision(ctx context.Context, instruction, imageB64 string) (string, error)
}

// HealthChecker verifies a dependency's availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
