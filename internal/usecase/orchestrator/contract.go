package orchestrator

import (
	"context"

	"github.com/clinico-health/assist/internal/domain"
)

// Classifier produces the per-turn intent decision.
type Classifier interface {
	Classify(ctx context.Context, query string, hasImage bool) domain.Decision
}

// QueryHandler answers a text turn from a decision.
type QueryHandler interface {
	Handle(ctx context.Context, query string, decision domain.Decision) domain.AgentResponse
}

// ImageHandler answers an image-grounded turn.
type ImageHandler interface {
	Handle(ctx context.Context, query, imageB64 string, decision domain.Decision) domain.AgentResponse
}

// CareHandler advances the appointment-booking flow.
type CareHandler interface {
	Handle(ctx context.Context, userID, query string, state *domain.StateSnapshot) domain.AgentResponse
}

// ChatLogger records conversation turns best-effort. Implementations
// must swallow their own failures.
type ChatLogger interface {
	Log(ctx context.Context, userID, query string, intent domain.Intent, resp domain.AgentResponse)
}
