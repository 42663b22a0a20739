// Package ai is the text generation port. Generators are unreliable and non-deterministic; callers validate what
// they get back.
package ai

import (
	"context"
	"iter"
	"log/slog"

	"github.com/polluterofminds/parallax-server/internal/config"
	"github.com/polluterofminds/parallax-server/internal/errors"
)

var ErrEmptyResponse = errors.NewSentinel("empty response from text generator")

// Generator produces free text from a prompt.
type Generator interface {
	// Complete returns the whole response to prompt. system may be empty.
	Complete(ctx context.Context, prompt string, system string) (string, error)
	// CompleteStreaming yields the response to prompt in chunks as they arrive. Iteration stops after the first
	// error.
	CompleteStreaming(ctx context.Context, prompt string, system string) iter.Seq2[string, error]
}

const maxTokens = 4096

// New returns the generator for the configured provider wrapped with tracing.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (Generator, error) {
	var (
		gen Generator
		err error
	)
	switch cfg.TextProvider {
	case config.ProviderOpenAI:
		gen = NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.OpenAIChatModel)
	case config.ProviderGemini:
		if gen, err = NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unknown text provider", slog.String("provider", cfg.TextProvider))
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "text generator ready", slog.String("provider", cfg.TextProvider))
	return Traced(gen, cfg.TextProvider), nil
}
