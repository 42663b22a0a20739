package casegen

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/polluterofminds/parallax-server/internal/artifacts"
	"github.com/polluterofminds/parallax-server/internal/errors"
	"github.com/polluterofminds/parallax-server/internal/models"
)

// CaseFile is what players see of the current case before it is solved.
type CaseFile struct {
	Episode    models.Episode     `json:"episode"`
	Teaser     string             `json:"teaser"`
	Characters []models.Character `json:"characters"`
}

// Reader loads the stored artifacts of a case.
type Reader struct {
	artifacts artifacts.Store
	episodes  EpisodeStore
	logger    *slog.Logger
}

func NewReader(store artifacts.Store, episodes EpisodeStore, logger *slog.Logger) *Reader {
	return &Reader{
		artifacts: store,
		episodes:  episodes,
		logger:    logger.With("source", "CaseReader"),
	}
}

// CurrentEpisode returns the latest episode or [ErrNoActiveCase].
func (r *Reader) CurrentEpisode(ctx context.Context) (models.Episode, error) {
	episode, err := r.episodes.Latest(ctx)
	if errors.Is(err, models.ErrNoEpisode) {
		return models.Episode{}, ErrNoActiveCase
	}
	if err != nil {
		return models.Episode{}, errors.Wrap(err, "latest episode")
	}
	return episode, nil
}

// CurrentCase returns the public case file of the latest episode.
func (r *Reader) CurrentCase(ctx context.Context) (CaseFile, error) {
	episode, err := r.CurrentEpisode(ctx)
	if err != nil {
		return CaseFile{}, err
	}
	teaser, err := r.one(ctx, episode.CaseNumber, artifacts.KindTeaser, artifacts.Public, nil)
	if err != nil {
		return CaseFile{}, err
	}
	characters, err := r.Characters(ctx, episode.CaseNumber)
	if err != nil {
		return CaseFile{}, err
	}
	return CaseFile{Episode: episode, Teaser: string(teaser.Content), Characters: characters}, nil
}

// Characters returns the roster of a case.
func (r *Reader) Characters(ctx context.Context, caseNumber int64) ([]models.Character, error) {
	found, err := r.artifacts.List(ctx, artifacts.Filter{
		Visibility: artifacts.Public,
		Tags:       artifacts.CaseTags(artifacts.KindCharacter, caseNumber),
	})
	if err != nil {
		return nil, errors.Wrap(err, "list characters")
	}
	characters := make([]models.Character, 0, len(found))
	for _, a := range found {
		var c models.Character
		if err = json.Unmarshal(a.Content, &c); err != nil {
			return nil, errors.Wrap(err, "unmarshal character", slog.String("artifact_id", a.ID))
		}
		characters = append(characters, c)
	}
	return characters, nil
}

// Character returns one character of a case or [ErrUnknownCharacter].
func (r *Reader) Character(ctx context.Context, caseNumber int64, characterID string) (models.Character, error) {
	a, err := r.one(ctx, caseNumber, artifacts.KindCharacter, artifacts.Public,
		map[string]string{artifacts.TagCharacterID: characterID})
	if errors.Is(err, artifacts.ErrNotFound) {
		return models.Character{}, errors.Wrap(ErrUnknownCharacter, "find character",
			slog.String("character_id", characterID))
	}
	if err != nil {
		return models.Character{}, err
	}
	var c models.Character
	if err = json.Unmarshal(a.Content, &c); err != nil {
		return models.Character{}, errors.Wrap(err, "unmarshal character")
	}
	return c, nil
}

// Solution returns the concealed solution of a case.
func (r *Reader) Solution(ctx context.Context, caseNumber int64) (models.StructuredSolution, error) {
	a, err := r.one(ctx, caseNumber, artifacts.KindSolution, artifacts.Private, nil)
	if err != nil {
		return models.StructuredSolution{}, err
	}
	var s models.StructuredSolution
	if err = json.Unmarshal(a.Content, &s); err != nil {
		return models.StructuredSolution{}, errors.Wrap(err, "unmarshal solution")
	}
	return s, nil
}

// Fragment returns the memory a character holds about a case. The text is in stored form, see [FragmentContent].
func (r *Reader) Fragment(ctx context.Context, caseNumber int64, characterID string) (models.MemoryFragment, error) {
	a, err := r.one(ctx, caseNumber, artifacts.KindMemory, artifacts.Private,
		map[string]string{artifacts.TagCharacterID: characterID})
	if err != nil {
		return models.MemoryFragment{}, err
	}
	return models.MemoryFragment{
		CharacterID: characterID,
		Category:    models.MemoryCategory(a.Tags[artifacts.TagCategory]),
		Text:        string(a.Content),
	}, nil
}

// Published reports whether the teaser of a case is stored.
func (r *Reader) Published(ctx context.Context, caseNumber int64) (bool, error) {
	_, err := r.one(ctx, caseNumber, artifacts.KindTeaser, artifacts.Public, nil)
	if errors.Is(err, artifacts.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// one returns the newest artifact of kind for a case or [artifacts.ErrNotFound].
func (r *Reader) one(
	ctx context.Context,
	caseNumber int64,
	kind artifacts.Kind,
	visibility artifacts.Visibility,
	extra map[string]string,
) (artifacts.Artifact, error) {
	tags := artifacts.CaseTags(kind, caseNumber)
	for k, v := range extra {
		tags[k] = v
	}
	found, err := r.artifacts.List(ctx, artifacts.Filter{Visibility: visibility, Tags: tags})
	if err != nil {
		return artifacts.Artifact{}, errors.Wrap(err, "list artifacts", slog.String("kind", string(kind)))
	}
	if len(found) == 0 {
		return artifacts.Artifact{}, errors.Wrap(artifacts.ErrNotFound, "find artifact",
			slog.String("kind", string(kind)), slog.String("case_number", strconv.FormatInt(caseNumber, 10)))
	}
	return found[0], nil
}
