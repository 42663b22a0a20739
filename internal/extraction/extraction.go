// Package extraction coerces a crime narrative into a structured solution.
package extraction

import (
	"context"
	"log/slog"
	"strings"

	"github.com/polluterofminds/parallax-server/internal/ai"
	"github.com/polluterofminds/parallax-server/internal/errors"
	"github.com/polluterofminds/parallax-server/internal/models"
	"github.com/polluterofminds/parallax-server/internal/prompts"
	"github.com/polluterofminds/parallax-server/internal/retry"
	"github.com/tidwall/gjson"
)

var (
	// ErrRetryBudgetExhausted is returned when no well-formed solution was produced within the retry policy.
	ErrRetryBudgetExhausted = retry.ErrBudgetExhausted
	// ErrMalformed is a retryable parse failure.
	ErrMalformed = errors.NewSentinel("malformed structured solution")
)

// Validator asks a text generator for a structured solution until one parses.
type Validator struct {
	gen     ai.Generator
	prompts *prompts.Catalog
	policy  retry.Policy
	logger  *slog.Logger
}

func NewValidator(gen ai.Generator, catalog *prompts.Catalog, policy retry.Policy, logger *slog.Logger) *Validator {
	return &Validator{
		gen:     gen,
		prompts: catalog,
		policy:  policy,
		logger:  logger.With("source", "ExtractionValidator"),
	}
}

// ExtractSolution returns a complete structured solution for narrative.
//
// Empty, malformed or incomplete responses are retried with the same prompt. Other generator failures are returned
// right away.
func (v *Validator) ExtractSolution(ctx context.Context, narrative string) (models.StructuredSolution, error) {
	prompt, err := v.prompts.Render(prompts.Extraction, map[string]any{"Narrative": narrative})
	if err != nil {
		return models.StructuredSolution{}, errors.Wrap(err, "render extraction prompt")
	}

	solution, err := retry.Do(ctx, v.logger, v.policy,
		func(ctx context.Context, attempt uint) (models.StructuredSolution, error) {
			text, err := v.gen.Complete(ctx, prompt.User, prompt.System)
			if errors.Is(err, ai.ErrEmptyResponse) {
				return models.StructuredSolution{}, errors.Wrap(err, "generate structured solution",
					slog.Uint64("attempt", uint64(attempt)))
			}
			if err != nil {
				return models.StructuredSolution{}, retry.Permanent(errors.Wrap(err, "generate structured solution"))
			}
			solution, err := Parse(text)
			if err != nil {
				return models.StructuredSolution{}, errors.Wrap(err, "parse structured solution",
					slog.Uint64("attempt", uint64(attempt)), slog.String("response", text))
			}
			return solution, nil
		})
	if err != nil {
		return models.StructuredSolution{}, errors.Wrap(err, "extract solution")
	}
	return solution, nil
}

// Parse reads a record with victims, criminal and motive text fields out of text.
//
// Surrounding prose and markdown code fences are ignored, key case does not matter and array values are joined with
// commas. Anything else, including a record with an empty field, is [ErrMalformed].
func Parse(text string) (models.StructuredSolution, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return models.StructuredSolution{}, errors.Wrap(ErrMalformed, "no JSON object")
	}
	doc := text[start : end+1]
	if !gjson.Valid(doc) {
		return models.StructuredSolution{}, errors.Wrap(ErrMalformed, "invalid JSON")
	}

	fields := map[string]string{}
	gjson.Parse(doc).ForEach(func(key, value gjson.Result) bool {
		fields[strings.ToLower(strings.TrimSpace(key.String()))] = fieldText(value)
		return true
	})
	solution := models.StructuredSolution{
		Victims:  fields["victims"],
		Criminal: fields["criminal"],
		Motive:   fields["motive"],
	}
	if !solution.Complete() {
		return models.StructuredSolution{}, errors.Wrap(ErrMalformed, "missing or empty field")
	}
	return solution, nil
}

func fieldText(value gjson.Result) string {
	switch {
	case value.IsArray():
		var parts []string
		for _, item := range value.Array() {
			if s := strings.TrimSpace(item.String()); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case value.Type == gjson.String, value.Type == gjson.Number:
		return strings.TrimSpace(value.String())
	default:
		return ""
	}
}
