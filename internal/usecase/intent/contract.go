package intent

import "context"

// Generator is the classification backend for the default path. The
// safety overrides never touch it.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}
