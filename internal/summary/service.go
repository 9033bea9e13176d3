package summary

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/lehigh-university-libraries/solarlabel/internal/gemini"
	"github.com/lehigh-university-libraries/solarlabel/internal/label"
	"github.com/lehigh-university-libraries/solarlabel/internal/ollama"
	"github.com/lehigh-university-libraries/solarlabel/internal/openai"
	"github.com/lehigh-university-libraries/solarlabel/internal/providers"
)

const summaryPrompt = `You are assisting a solar physicist reviewing hand-labeled SDO/AIA observations.
Each line below is one labeled region: the observation time, the AIA channel when known,
the observer's comment and the region's corners in image pixels.

Write a short summary (at most 8 sentences) grouping the labels by observation,
noting recurring phenomena, and pointing out labels whose regions overlap.

Labels:
%s`

type Service struct {
	// lookup resolves a provider name; replaced in tests
	lookup func(name string) (providers.Provider, error)
}

func NewService() *Service {
	return &Service{lookup: NewProvider}
}

// NewProvider returns the provider registered under name
func NewProvider(name string) (providers.Provider, error) {
	switch name {
	case "ollama":
		return ollama.New(), nil
	case "openai":
		return openai.New(), nil
	case "gemini":
		return gemini.New(), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
}

// Summarize asks the provider for a prose overview of the labels
func (s *Service) Summarize(ctx context.Context, labels []label.Label, provider, model string) (string, error) {
	if len(labels) == 0 {
		return "", fmt.Errorf("no labels to summarize")
	}

	if provider == "" {
		provider = os.Getenv("SUMMARY_PROVIDER")
		if provider == "" {
			provider = "ollama"
		}
	}
	if model == "" {
		model = DefaultModel(provider)
	}

	p, err := s.lookup(provider)
	if err != nil {
		return "", err
	}

	slog.Info("Summarizing labels", "provider", provider, "model", model, "labels", len(labels))

	text, err := p.Generate(ctx, providers.Request{
		Model:       model,
		Temperature: 0.2,
		Prompt:      BuildPrompt(labels),
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate summary: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// BuildPrompt renders labels in log format inside the summary instructions
func BuildPrompt(labels []label.Label) string {
	lines := make([]string, 0, len(labels))
	for _, l := range labels {
		lines = append(lines, "- "+label.FormatLine(l))
	}
	return fmt.Sprintf(summaryPrompt, strings.Join(lines, "\n"))
}

// DefaultModel picks the model for a provider from the environment or a built-in default
func DefaultModel(provider string) string {
	switch provider {
	case "openai":
		if model := os.Getenv("OPENAI_MODEL"); model != "" {
			return model
		}
		return openai.DefaultModel
	case "gemini":
		if model := os.Getenv("GEMINI_MODEL"); model != "" {
			return model
		}
		return gemini.DefaultModel
	default:
		if model := os.Getenv("OLLAMA_MODEL"); model != "" {
			return model
		}
		return ollama.DefaultModel
	}
}
