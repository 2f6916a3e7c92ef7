package domain

import "context"

// Llm abstracts any text generation provider.
type Llm interface {
	// Generate takes a prompt and returns the model's reply.
	Generate(ctx context.Context, prompt string) (string, error)
}
