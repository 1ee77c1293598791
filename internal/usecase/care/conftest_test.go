package care

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/clinico-health/assist/internal/domain"
)

// mockDirectory serves fixture professionals and slots.
type mockDirectory struct {
	professionals []domain.Candidate
	slots         map[string][]domain.Slot
	listErr       error
}

func (m *mockDirectory) Professionals(_ context.Context, _ string) ([]domain.Candidate, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.professionals, nil
}

func (m *mockDirectory) Availability(_ context.Context, professionalID string) ([]domain.Slot, error) {
	slots, ok := m.slots[professionalID]
	if !ok {
		return nil, errors.New("unknown professional")
	}
	return slots, nil
}

// mockGenerator returns a fixed specialization prediction.
type mockGenerator struct {
	response string
	err      error
}

func (m *mockGenerator) Generate(_ context.Context, _, _ string) (string, error) {
	return m.response, m.err
}

func fixtureDirectory() *mockDirectory {
	return &mockDirectory{
		professionals: []domain.Candidate{
			{ID: "7", Name: "Dr. Asha Rao", Specialization: "General Physician"},
			{ID: "9", Name: "Dr. Liu Wen", Specialization: "General Physician"},
		},
		slots: map[string][]domain.Slot{
			"7": {
				{ID: "3", Start: "2026-09-01T09:00:00Z", End: "2026-09-01T09:30:00Z"},
				{ID: "4", Start: "2026-09-01T10:00:00Z", End: "2026-09-01T10:30:00Z"},
			},
			"9": {
				{ID: "12", Start: "2026-09-02T14:00:00Z", End: "2026-09-02T14:30:00Z"},
			},
		},
	}
}

func newTestMachine(dir Directory, gen Generator) *Machine {
	return New(dir, gen, zap.NewNop())
}
