package agents

import (
	"context"

	"go.uber.org/zap"

	"github.com/clinico-health/assist/internal/domain"
)

// crisisAnswer is a static message with fixed hotline content. It must
// never depend on the generation model being reachable.
const crisisAnswer = `You are not alone, and help is available right now.

Please reach out immediately:
- National suicide prevention helpline: 988 (24/7)
- Crisis text line: text HOME to 741741
- Emergency services: 112 / 911

If you are in immediate danger, please call emergency services now.
Talking to someone you trust can also help. Your life matters.`

const wellnessSystem = `You are a warm, empathetic mental-wellness companion.
Use the provided context where it helps, acknowledge the person's feelings,
and suggest gentle, practical steps. You are not a replacement for a
therapist; encourage professional support where appropriate. Never give
medical diagnoses.`

// Wellness handles mental-wellness turns, including the crisis path.
type Wellness struct {
	retriever Retriever
	gen       Generator
	logger    *zap.Logger
}

// NewWellness creates the mental-wellness handler.
func NewWellness(retriever Retriever, gen Generator, logger *zap.Logger) *Wellness {
	return &Wellness{retriever: retriever, gen: gen, logger: logger}
}

// Handle returns the static crisis message when the decision carries the
// crisis flag; otherwise it generates an empathetic grounded response.
func (h *Wellness) Handle(ctx context.Context, query string, decision domain.Decision) domain.AgentResponse {
	if decision.IsCrisis {
		return domain.AgentResponse{
			Agent:          "mental_wellness",
			Type:           domain.ResponseCrisis,
			Answer:         crisisAnswer,
			CrisisDetected: true,
			CrisisType:     "mental_health",
		}
	}

	resp := domain.AgentResponse{
		Agent: "mental_wellness",
		Type:  domain.ResponseAnswer,
	}

	prompt := "Message: " + query
	var results []domain.RetrievalResult
	ret, err := h.retriever.Retrieve(ctx, query, decision.Collections, defaultTopK)
	if err != nil {
		h.logger.Warn("retrieval failed", zap.Error(err))
	} else if ret.Context != "" {
		prompt = "Context:\n" + ret.Context + "\n\nMessage: " + query
		results = ret.Results
	}

	answer, err := h.gen.Generate(ctx, wellnessSystem, prompt)
	if err != nil {
		h.logger.Warn("generation failed", zap.Error(err))
		answer = fallbackAnswer
	}

	resp.Answer = normalizeAnswer(answer)
	resp.Sources = sourcesOf(results)
	return resp
}
