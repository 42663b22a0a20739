package ai

import (
	"context"
	"iter"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/polluterofminds/parallax-server/internal/ai"

type traced struct {
	next     Generator
	provider string
	tracer   trace.Tracer
}

// Traced records a span for every generation call made through gen.
func Traced(gen Generator, provider string) Generator {
	return &traced{
		next:     gen,
		provider: provider,
		tracer:   otel.Tracer(tracerName),
	}
}

func (t *traced) Complete(ctx context.Context, prompt string, system string) (string, error) {
	ctx, span := t.tracer.Start(ctx, "ai.complete", trace.WithAttributes(
		attribute.String("ai.provider", t.provider),
		attribute.Int("ai.prompt_length", len(prompt)+len(system)),
	))
	defer span.End()

	text, err := t.next.Complete(ctx, prompt, system)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.Int("ai.response_length", len(text)))
	return text, nil
}

func (t *traced) CompleteStreaming(ctx context.Context, prompt string, system string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx, span := t.tracer.Start(ctx, "ai.complete_streaming", trace.WithAttributes(
			attribute.String("ai.provider", t.provider),
			attribute.Int("ai.prompt_length", len(prompt)+len(system)),
		))
		defer span.End()

		var chunks, length int
		for chunk, err := range t.next.CompleteStreaming(ctx, prompt, system) {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				yield("", err)
				return
			}
			chunks++
			length += len(chunk)
			if !yield(chunk, nil) {
				break
			}
		}
		span.SetAttributes(attribute.Int("ai.chunks", chunks), attribute.Int("ai.response_length", length))
	}
}
