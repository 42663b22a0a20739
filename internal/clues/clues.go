// Package clues hands every character of a case one memory fragment about the crime.
//
// Exactly DefaultCulpritHolders characters remember something that names the culprit. Everyone else independently
// gets either a motive fragment or a vague one.
package clues

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/polluterofminds/parallax-server/internal/ai"
	"github.com/polluterofminds/parallax-server/internal/errors"
	"github.com/polluterofminds/parallax-server/internal/models"
	"github.com/polluterofminds/parallax-server/internal/prompts"
	"github.com/polluterofminds/parallax-server/internal/random"
	"github.com/polluterofminds/parallax-server/internal/retry"
)

const (
	DefaultCulpritHolders = 2
	MaxFragmentLength     = 1500
)

var (
	ErrTooFewCharacters        = errors.NewSentinel("too few characters for clue distribution")
	ErrFragmentBudgetExhausted = retry.ErrBudgetExhausted
	errRejectedFragment        = errors.NewSentinel("fragment rejected")
)

type Distributor struct {
	gen     ai.Generator
	prompts *prompts.Catalog
	rand    random.Source
	policy  retry.Policy
	holders int
	logger  *slog.Logger
}

type Option func(*Distributor)

// WithCulpritHolders overrides how many characters know the culprit.
func WithCulpritHolders(n int) Option {
	return func(d *Distributor) {
		d.holders = n
	}
}

func NewDistributor(
	gen ai.Generator,
	catalog *prompts.Catalog,
	src random.Source,
	policy retry.Policy,
	logger *slog.Logger,
	opts ...Option,
) *Distributor {
	d := &Distributor{
		gen:     gen,
		prompts: catalog,
		rand:    src,
		policy:  policy,
		holders: DefaultCulpritHolders,
		logger:  logger.With("source", "ClueDistributor"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Assign draws a category for each of n characters. The culprit holders are sampled without replacement.
func (d *Distributor) Assign(n int) ([]models.MemoryCategory, error) {
	if n <= d.holders {
		return nil, errors.Wrap(ErrTooFewCharacters, "assign categories",
			slog.Int("characters", n), slog.Int("culprit_holders", d.holders))
	}
	holders, err := random.Sample(d.rand, n, d.holders)
	if err != nil {
		return nil, errors.Wrap(err, "sample culprit holders")
	}
	categories := make([]models.MemoryCategory, n)
	for _, i := range holders {
		categories[i] = models.MemoryCulprit
	}
	for i := range categories {
		if categories[i] != "" {
			continue
		}
		categories[i] = random.Pick(d.rand, []models.MemoryCategory{models.MemoryMotive, models.MemoryVague})
	}
	return categories, nil
}

// Distribute generates one fragment per character, in roster order.
func (d *Distributor) Distribute(
	ctx context.Context,
	characters []models.Character,
	solution models.StructuredSolution,
	teaser string,
) ([]models.MemoryFragment, error) {
	categories, err := d.Assign(len(characters))
	if err != nil {
		return nil, err
	}
	fragments := make([]models.MemoryFragment, len(characters))
	for i, character := range characters {
		text, err := d.fragment(ctx, character, categories[i], solution, teaser)
		if err != nil {
			return nil, errors.Wrap(err, "generate fragment",
				slog.String("character_id", character.ID), slog.String("category", string(categories[i])))
		}
		fragments[i] = models.MemoryFragment{
			CharacterID: character.ID,
			Category:    categories[i],
			Text:        text,
		}
	}
	return fragments, nil
}

func (d *Distributor) fragment(
	ctx context.Context,
	character models.Character,
	category models.MemoryCategory,
	solution models.StructuredSolution,
	teaser string,
) (string, error) {
	data := map[string]any{
		"Character": character,
		"Teaser":    teaser,
		"MaxLength": MaxFragmentLength,
	}
	var name string
	switch category {
	case models.MemoryCulprit:
		name = prompts.MemoryCulprit
		data["Criminal"] = solution.Criminal
	case models.MemoryMotive:
		name = prompts.MemoryMotive
		data["Motive"] = solution.Motive
	case models.MemoryVague:
		name = prompts.MemoryVague
	}
	prompt, err := d.prompts.Render(name, data)
	if err != nil {
		return "", errors.Wrap(err, "render fragment prompt")
	}

	logger := d.logger.With(slog.String("character_id", character.ID), slog.String("category", string(category)))
	return retry.Do(ctx, logger, d.policy, func(ctx context.Context, _ uint) (string, error) {
		text, err := d.gen.Complete(ctx, prompt.User, prompt.System)
		if errors.Is(err, ai.ErrEmptyResponse) {
			return "", errors.Wrap(err, "generate fragment text")
		}
		if err != nil {
			return "", retry.Permanent(errors.Wrap(err, "generate fragment text"))
		}
		text = strings.TrimSpace(text)
		if err = Check(category, text, solution); err != nil {
			return "", err
		}
		return text, nil
	})
}

// Check validates a generated fragment of category against the solution.
func Check(category models.MemoryCategory, text string, solution models.StructuredSolution) error {
	if text == "" {
		return errors.Wrap(errRejectedFragment, "empty")
	}
	if n := len([]rune(text)); n > MaxFragmentLength {
		return errors.Wrap(errRejectedFragment, "too long", slog.Int("length", n))
	}
	switch category {
	case models.MemoryCulprit:
		if !NamesCulprit(text, solution.Criminal) {
			return errors.Wrap(errRejectedFragment, "culprit fragment does not name the culprit")
		}
	case models.MemoryMotive:
		if HintsAtCulprit(text, solution) {
			return errors.Wrap(errRejectedFragment, "motive fragment hints at the culprit")
		}
	case models.MemoryVague:
	default:
		return errors.Wrap(errRejectedFragment, "unknown category", slog.String("category", string(category)))
	}
	return nil
}

// NamesCulprit reports whether text contains the full name of criminal, ignoring case.
func NamesCulprit(text string, criminal string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(strings.TrimSpace(criminal)))
}

// HintsAtCulprit reports whether text contains any part of the culprit's name. Name parts shared with a victim,
// like a family name, don't count since the victims are public knowledge.
func HintsAtCulprit(text string, solution models.StructuredSolution) bool {
	victims := map[string]bool{}
	for _, w := range words(solution.Victims) {
		victims[w] = true
	}
	inText := map[string]bool{}
	for _, w := range words(text) {
		inText[w] = true
	}
	for _, w := range words(solution.Criminal) {
		if !victims[w] && inText[w] {
			return true
		}
	}
	return false
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}
