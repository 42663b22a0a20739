package scoring

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/polluterofminds/parallax-server/internal/ai"
	"github.com/polluterofminds/parallax-server/internal/errors"
	"github.com/polluterofminds/parallax-server/internal/prompts"
)

var ErrInvalidRating = errors.NewSentinel("invalid motive rating")

// AIJudge asks a text generator to rate motives by intent rather than wording.
type AIJudge struct {
	gen     ai.Generator
	prompts *prompts.Catalog
}

func NewAIJudge(gen ai.Generator, catalog *prompts.Catalog) *AIJudge {
	return &AIJudge{gen: gen, prompts: catalog}
}

func (j *AIJudge) RateMotive(ctx context.Context, submitted string, actual string) (float64, error) {
	prompt, err := j.prompts.Render(prompts.MotiveJudge, map[string]any{"Submitted": submitted, "Actual": actual})
	if err != nil {
		return 0, errors.Wrap(err, "render judge prompt")
	}
	text, err := j.gen.Complete(ctx, prompt.User, prompt.System)
	if err != nil {
		return 0, errors.Wrap(err, "rate motive")
	}
	return ParseRating(text)
}

// ParseRating reads a rating in [0, 1] from the start of text, ignoring trailing prose.
func ParseRating(text string) (float64, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0, errors.Wrap(ErrInvalidRating, "empty rating")
	}
	token := strings.TrimRight(fields[0], ".,;:!")
	rating, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, errors.Wrap(ErrInvalidRating, "parse rating", slog.String("rating", text))
	}
	if math.IsNaN(rating) || rating < 0 || rating > 1 {
		return 0, errors.Wrap(ErrInvalidRating, "rating out of range", slog.String("rating", text))
	}
	return rating, nil
}
