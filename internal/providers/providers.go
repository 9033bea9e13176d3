package providers

import (
	"context"
)

// Request is a single text generation call
type Request struct {
	Model       string
	Temperature float64
	Prompt      string
}

// Provider generates text from a prompt with a hosted or local LLM
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
}
