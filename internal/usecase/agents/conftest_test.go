package agents

import (
	"context"
	"testing"

	"github.com/clinico-health/assist/internal/domain"
	"github.com/clinico-health/assist/internal/usecase/retrieval"
)

// mockRetriever returns a fixed retrieval or error.
type mockRetriever struct {
	ret   *retrieval.Retrieval
	err   error
	calls int
}

func (m *mockRetriever) Retrieve(_ context.Context, _ string, _ []string, _ int) (*retrieval.Retrieval, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.ret == nil {
		return &retrieval.Retrieval{}, nil
	}
	return m.ret, nil
}

// mockGenerator returns a fixed response or error.
type mockGenerator struct {
	response string
	err      error
	calls    int
	lastSys  string
	lastMsg  string
}

func (m *mockGenerator) Generate(_ context.Context, system, prompt string) (string, error) {
	m.calls++
	m.lastSys = system
	m.lastMsg = prompt
	return m.response, m.err
}

// loudGenerator fails the test if invoked.
type loudGenerator struct {
	t *testing.T
}

func (g *loudGenerator) Generate(_ context.Context, _, _ string) (string, error) {
	g.t.Fatal("generation model must not be consulted on this path")
	return "", nil
}

// mockVision returns a fixed analysis or error.
type mockVision struct {
	analysis string
	err      error
	lastInst string
}

func (m *mockVision) GenerateVision(_ context.Context, instruction, _ string) (string, error) {
	m.lastInst = instruction
	return m.analysis, m.err
}

func retrievalOf(results ...domain.RetrievalResult) *retrieval.Retrieval {
	texts := ""
	for i, r := range results {
		if i > 0 {
			texts += "\n"
		}
		texts += r.Chunk.Text
	}
	return &retrieval.Retrieval{Results: results, Context: texts}
}

func chunk(collection, source, text string, relevance float64) domain.RetrievalResult {
	return domain.RetrievalResult{
		Chunk:     domain.Chunk{Text: text, Source: source, Collection: collection},
		Relevance: relevance,
	}
}
