package casegen

import (
	"context"
	"iter"
	"log/slog"
	"strings"

	"github.com/polluterofminds/parallax-server/internal/ai"
	"github.com/polluterofminds/parallax-server/internal/artifacts"
	"github.com/polluterofminds/parallax-server/internal/errors"
	"github.com/polluterofminds/parallax-server/internal/models"
	"github.com/polluterofminds/parallax-server/internal/prompts"
)

// MaxHistoryMessages caps how much of an earlier conversation is replayed to the character.
const MaxHistoryMessages = 20

// Interrogator lets players question the characters of the current case. Each player holds a separate conversation
// with each character and the character remembers what was said earlier in it.
type Interrogator struct {
	gen           ai.Generator
	prompts       *prompts.Catalog
	reader        *Reader
	conversations Conversations
	logger        *slog.Logger
}

func NewInterrogator(
	gen ai.Generator,
	catalog *prompts.Catalog,
	reader *Reader,
	conversations Conversations,
	logger *slog.Logger,
) *Interrogator {
	return &Interrogator{
		gen:           gen,
		prompts:       catalog,
		reader:        reader,
		conversations: conversations,
		logger:        logger.With("source", "Interrogator"),
	}
}

// Ask streams the in-character answer of characterID to the question of playerID.
//
// The exchange is added to the conversation once the answer has been streamed in full. An answer that failed or
// was abandoned by the caller is not remembered.
func (i *Interrogator) Ask(
	ctx context.Context,
	playerID string,
	characterID string,
	question string,
) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		file, err := i.reader.CurrentCase(ctx)
		if err != nil {
			yield("", err)
			return
		}
		caseNumber := file.Episode.CaseNumber
		prompt, err := i.prompt(ctx, file, playerID, characterID, question)
		if err != nil {
			yield("", err)
			return
		}

		var answer strings.Builder
		for chunk, err := range i.gen.CompleteStreaming(ctx, prompt.User, prompt.System) {
			if !yield(chunk, err) || err != nil {
				return
			}
			answer.WriteString(chunk)
		}

		if err = i.conversations.Append(ctx, caseNumber, playerID, characterID,
			models.ChatMessage{Role: models.ChatRolePlayer, Content: question},
			models.ChatMessage{Role: models.ChatRoleCharacter, Content: answer.String()},
		); err != nil {
			yield("", errors.Wrap(err, "remember conversation", slog.String("character_id", characterID)))
		}
	}
}

func (i *Interrogator) prompt(
	ctx context.Context,
	file CaseFile,
	playerID string,
	characterID string,
	question string,
) (prompts.Rendered, error) {
	caseNumber := file.Episode.CaseNumber
	character, err := i.reader.Character(ctx, caseNumber, characterID)
	if err != nil {
		return prompts.Rendered{}, err
	}
	var memory string
	fragment, err := i.reader.Fragment(ctx, caseNumber, characterID)
	switch {
	case errors.Is(err, artifacts.ErrNotFound):
		i.logger.LogAttrs(ctx, slog.LevelWarn, "character has no memory", slog.String("character_id", characterID))
	case err != nil:
		return prompts.Rendered{}, err
	default:
		memory = fragment.Text
	}
	history, err := i.conversations.History(ctx, caseNumber, playerID, characterID, MaxHistoryMessages)
	if err != nil {
		return prompts.Rendered{}, errors.Wrap(err, "load conversation")
	}

	rendered, err := i.prompts.Render(prompts.Interrogation, map[string]any{
		"Character": character,
		"Teaser":    file.Teaser,
		"World":     i.prompts.World(),
		"Memory":    memory,
		"History":   history,
		"Question":  question,
	})
	if err != nil {
		return prompts.Rendered{}, errors.Wrap(err, "render interrogation prompt")
	}
	return rendered, nil
}
