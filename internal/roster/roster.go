// Package roster generates the cast of non-player characters for a case.
package roster

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-faker/faker/v4"
	"github.com/google/uuid"
	"github.com/polluterofminds/parallax-server/internal/ai"
	"github.com/polluterofminds/parallax-server/internal/errors"
	"github.com/polluterofminds/parallax-server/internal/models"
	"github.com/polluterofminds/parallax-server/internal/prompts"
	"github.com/polluterofminds/parallax-server/internal/random"
)

const (
	MinAge             = 19
	MaxAge             = 65
	MaxBackstoryLength = 500
)

var ErrEmptyBackstory = errors.NewSentinel("generated backstory is empty")

// NameSource returns a full name fitting gender.
type NameSource interface {
	Name(gender models.Gender) string
}

// FakerNames draws names from faker's first and last name lists.
type FakerNames struct{}

func (FakerNames) Name(gender models.Gender) string {
	first := faker.FirstNameMale()
	if gender == models.GenderFemale {
		first = faker.FirstNameFemale()
	}
	return first + " " + faker.LastName()
}

type Generator struct {
	gen      ai.Generator
	prompts  *prompts.Catalog
	names    NameSource
	rand     random.Source
	interval time.Duration
	logger   *slog.Logger
}

// NewGenerator creates a roster generator. interval is the pause between backstory requests to stay under the
// generator's rate limits.
func NewGenerator(
	gen ai.Generator,
	catalog *prompts.Catalog,
	names NameSource,
	src random.Source,
	interval time.Duration,
	logger *slog.Logger,
) *Generator {
	return &Generator{
		gen:      gen,
		prompts:  catalog,
		names:    names,
		rand:     src,
		interval: interval,
		logger:   logger.With("source", "RosterGenerator"),
	}
}

// Generate returns n characters. Any failed backstory fails the whole roster.
func (g *Generator) Generate(ctx context.Context, n int) ([]models.Character, error) {
	characters := make([]models.Character, 0, n)
	for i := range n {
		if i > 0 && g.interval > 0 {
			select {
			case <-ctx.Done():
				return nil, errors.Wrap(ctx.Err(), "roster generation interrupted")
			case <-time.After(g.interval):
			}
		}
		character, err := g.character(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "generate character", slog.Int("index", i))
		}
		characters = append(characters, character)
		g.logger.LogAttrs(ctx, slog.LevelDebug, "generated character",
			slog.Int("index", i+1), slog.Int("total", n), slog.String("name", character.Name))
	}
	return characters, nil
}

func (g *Generator) character(ctx context.Context) (models.Character, error) {
	gender := random.Pick(g.rand, models.Genders)
	age, err := random.IntRange(g.rand, MinAge, MaxAge)
	if err != nil {
		return models.Character{}, err
	}
	name := g.names.Name(gender)

	prompt, err := g.prompts.Render(prompts.Backstory, map[string]any{
		"Name":      name,
		"Gender":    string(gender),
		"Age":       age,
		"World":     g.prompts.World(),
		"MaxLength": MaxBackstoryLength,
	})
	if err != nil {
		return models.Character{}, errors.Wrap(err, "render backstory prompt")
	}
	backstory, err := g.gen.Complete(ctx, prompt.User, prompt.System)
	if err != nil {
		return models.Character{}, errors.Wrap(err, "generate backstory", slog.String("name", name))
	}
	backstory = truncate(strings.TrimSpace(backstory), MaxBackstoryLength)
	if backstory == "" {
		return models.Character{}, errors.Wrap(ErrEmptyBackstory, "generate backstory", slog.String("name", name))
	}

	return models.Character{
		ID:           uuid.NewString(),
		Name:         name,
		Gender:       gender,
		Age:          age,
		Backstory:    backstory,
		HonestyTrait: name + " is always honest",
	}, nil
}

// truncate cuts s to at most limit runes.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit]))
}
