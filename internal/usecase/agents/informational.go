package agents

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/clinico-health/assist/internal/domain"
)

const (
	// defaultTopK is the per-collection retrieval depth.
	defaultTopK = 3

	// fallbackAnswer replaces any generation failure. Upstream errors
	// never reach the user as errors: the conversation must not break.
	fallbackAnswer = "I'm sorry, I couldn't prepare an answer right now. Please try again in a moment."

	// noInformationAnswer is returned without a model call when the
	// knowledge collections hold nothing relevant.
	noInformationAnswer = "I don't have information about that in my knowledge base. Please consult a healthcare professional for advice on this topic."
)

const informationalSystem = `You are a careful health information assistant.
Answer the question using ONLY the provided context. If the context does not
contain the answer, say you do not have that information. Never invent
medical facts. Keep answers short and plain.`

// Informational answers grounded knowledge questions.
type Informational struct {
	retriever Retriever
	gen       Generator
	logger    *zap.Logger
}

// NewInformational creates the informational handler.
func NewInformational(retriever Retriever, gen Generator, logger *zap.Logger) *Informational {
	return &Informational{retriever: retriever, gen: gen, logger: logger}
}

// Handle retrieves grounding context and generates an answer from it.
// Empty context short-circuits to a no_information response with no
// model call.
func (h *Informational) Handle(ctx context.Context, query string, decision domain.Decision) domain.AgentResponse {
	resp := domain.AgentResponse{
		Agent: "informational",
		Type:  domain.ResponseAnswer,
	}

	ret, err := h.retriever.Retrieve(ctx, query, decision.Collections, defaultTopK)
	if err != nil {
		h.logger.Warn("retrieval failed", zap.Error(err))
		resp.Type = domain.ResponseNoInformation
		resp.Answer = noInformationAnswer
		return resp
	}

	if ret.Context == "" {
		resp.Type = domain.ResponseNoInformation
		resp.Answer = noInformationAnswer
		return resp
	}

	prompt := "Context:\n" + ret.Context + "\n\nQuestion: " + query
	answer, err := h.gen.Generate(ctx, informationalSystem, prompt)
	if err != nil {
		h.logger.Warn("generation failed", zap.Error(err))
		answer = fallbackAnswer
	}

	resp.Answer = normalizeAnswer(answer)
	resp.Sources = sourcesOf(ret.Results)
	return resp
}

// normalizeAnswer strips common model formatting artifacts.
func normalizeAnswer(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "##", "")
	s = strings.TrimPrefix(strings.TrimSpace(s), "Answer:")
	return strings.TrimSpace(s)
}
