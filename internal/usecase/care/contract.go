package care

import (
	"context"

	"github.com/clinico-health/assist/internal/domain"
)

// Directory is the external professional-directory contract.
type Directory interface {
	Professionals(ctx context.Context, specialization string) ([]domain.Candidate, error)
	Availability(ctx context.Context, professionalID string) ([]domain.Slot, error)
}

// Generator is used for the constrained specialization prediction only.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}
