package casegen

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/polluterofminds/parallax-server/internal/ai"
	"github.com/polluterofminds/parallax-server/internal/artifacts"
	"github.com/polluterofminds/parallax-server/internal/clues"
	"github.com/polluterofminds/parallax-server/internal/errors"
	"github.com/polluterofminds/parallax-server/internal/logging"
	"github.com/polluterofminds/parallax-server/internal/models"
	"github.com/polluterofminds/parallax-server/internal/notify"
	"github.com/polluterofminds/parallax-server/internal/prompts"
	"github.com/polluterofminds/parallax-server/internal/random"
	"github.com/polluterofminds/parallax-server/internal/repositories"
	"github.com/polluterofminds/parallax-server/internal/roster"
)

const MaxNarrativeLength = 1200

// Settings tune case creation.
type Settings struct {
	CharacterCount int
	CaseDuration   time.Duration
	LockTTL        time.Duration
}

// Orchestrator creates cases.
type Orchestrator struct {
	Gen       ai.Generator
	Prompts   *prompts.Catalog
	Roster    RosterGenerator
	Extractor SolutionExtractor
	Clues     ClueDistributor
	Artifacts artifacts.Store
	Episodes  EpisodeStore
	Ledger    Ledger
	Notifier  notify.Notifier
	Locker    Locker
	Names     roster.NameSource
	Rand      random.Source
	Settings  Settings
	Logger    *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// generated holds everything computed before publication.
type generated struct {
	characters []models.Character
	narrative  string
	teaser     string
	solution   models.StructuredSolution
	fragments  []models.MemoryFragment
}

// CreateCase tears down the current case, generates a new one and publishes it.
//
// Any failure aborts the run. Nothing is reused between runs, so a failed run is retried by calling CreateCase
// again. It returns [ErrCaseInProgress] when another run holds the lease.
func (o *Orchestrator) CreateCase(ctx context.Context) (models.Episode, error) {
	lease, err := o.Locker.Acquire(ctx, LockName, o.Settings.LockTTL)
	if errors.Is(err, repositories.ErrLocked) {
		return models.Episode{}, errors.Wrap(errors.Join(ErrCaseInProgress, err), "acquire case lock")
	}
	if err != nil {
		return models.Episode{}, errors.Wrap(err, "acquire case lock")
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			o.Logger.LogAttrs(ctx, slog.LevelError, "release case lock", errors.SlogError(err))
		}
	}()

	ctx = logging.WithAttrs(ctx, slog.String("run_id", uuid.NewString()))
	start := o.now()
	o.Logger.LogAttrs(ctx, slog.LevelInfo, "creating case")

	var (
		g       generated
		episode models.Episode
	)
	for i, stage := range Stages {
		stageCtx := logging.WithAttrs(ctx, slog.String("stage", string(stage)))
		if i > 0 {
			// Each stage gets a full lease, so LockTTL bounds a single stage rather than the whole run.
			if err = lease.Renew(stageCtx, o.Settings.LockTTL); err != nil {
				return models.Episode{}, errors.Wrap(err, "renew case lock", slog.String("stage", string(stage)))
			}
		}
		switch stage {
		case StageTeardown:
			err = o.Teardown(stageCtx)
		case StageRosterReady:
			g.characters, err = o.Roster.Generate(stageCtx, o.Settings.CharacterCount)
		case StageNarrativeReady:
			g.narrative, err = o.narrative(stageCtx)
		case StageTeaserReady:
			g.teaser, err = o.teaser(stageCtx, g.narrative)
		case StageSolutionReady:
			g.solution, err = o.Extractor.ExtractSolution(stageCtx, g.narrative)
			if err == nil && clues.HintsAtCulprit(g.teaser, g.solution) {
				err = ErrLeakyTeaser
			}
		case StageCluesDistributed:
			g.fragments, err = o.Clues.Distribute(stageCtx, g.characters, g.solution, g.teaser)
		case StagePublished:
			episode, err = o.publish(stageCtx, g)
		}
		if err != nil {
			return models.Episode{}, errors.Wrap(err, "stage "+string(stage), slog.String("stage", string(stage)))
		}
		o.Logger.LogAttrs(stageCtx, slog.LevelInfo, "stage complete")
	}

	o.Logger.LogAttrs(ctx, slog.LevelInfo, "case created",
		slog.Int64("case_number", episode.CaseNumber), slog.Duration("took", o.now().Sub(start)))
	return episode, nil
}

// Teardown deletes every case artifact regardless of its case number. Running it again is harmless.
func (o *Orchestrator) Teardown(ctx context.Context) error {
	for _, kind := range artifacts.Kinds {
		found, err := o.Artifacts.List(ctx, artifacts.Filter{Tags: map[string]string{artifacts.TagKind: string(kind)}})
		if err != nil {
			return errors.Wrap(err, "list artifacts", slog.String("kind", string(kind)))
		}
		if len(found) == 0 {
			continue
		}
		ids := make([]string, len(found))
		for i, a := range found {
			ids[i] = a.ID
		}
		if err = o.Artifacts.Delete(ctx, ids...); err != nil {
			return errors.Wrap(err, "delete artifacts", slog.String("kind", string(kind)))
		}
		o.Logger.LogAttrs(ctx, slog.LevelDebug, "removed artifacts",
			slog.String("kind", string(kind)), slog.Int("count", len(ids)))
	}
	return nil
}

// narrative invents a crime between two people who are not part of the roster.
func (o *Orchestrator) narrative(ctx context.Context) (string, error) {
	first := random.Pick(o.Rand, models.Genders)
	second := random.Pick(o.Rand, models.Genders)
	prompt, err := o.Prompts.Render(prompts.Crime, map[string]any{
		"World":        o.Prompts.World(),
		"FirstName":    o.Names.Name(first),
		"FirstGender":  string(first),
		"SecondName":   o.Names.Name(second),
		"SecondGender": string(second),
		"MaxLength":    MaxNarrativeLength,
	})
	if err != nil {
		return "", errors.Wrap(err, "render crime prompt")
	}
	text, err := o.complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	if n := len([]rune(text)); n > MaxNarrativeLength {
		o.Logger.LogAttrs(ctx, slog.LevelWarn, "narrative exceeds length ceiling", slog.Int("length", n))
	}
	return text, nil
}

func (o *Orchestrator) teaser(ctx context.Context, narrative string) (string, error) {
	prompt, err := o.Prompts.Render(prompts.Teaser, map[string]any{"Narrative": narrative})
	if err != nil {
		return "", errors.Wrap(err, "render teaser prompt")
	}
	return o.complete(ctx, prompt)
}

func (o *Orchestrator) complete(ctx context.Context, prompt prompts.Rendered) (string, error) {
	text, err := o.Gen.Complete(ctx, prompt.User, prompt.System)
	if err != nil {
		return "", errors.Wrap(err, "generate text")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyGeneration
	}
	return text, nil
}

func (o *Orchestrator) nextCaseNumber(ctx context.Context) (int64, error) {
	latest, err := o.Episodes.Latest(ctx)
	if errors.Is(err, models.ErrNoEpisode) {
		return 1, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "latest episode")
	}
	return latest.CaseNumber + 1, nil
}

func (o *Orchestrator) publish(ctx context.Context, g generated) (models.Episode, error) {
	caseNumber, err := o.nextCaseNumber(ctx)
	if err != nil {
		return models.Episode{}, err
	}
	ctx = logging.WithAttrs(ctx, slog.Int64("case_number", caseNumber))

	names := make(map[string]string, len(g.characters))
	for _, c := range g.characters {
		content, err := json.Marshal(c)
		if err != nil {
			return models.Episode{}, errors.Wrap(err, "marshal character")
		}
		if _, err = o.Artifacts.Put(ctx, artifacts.Artifact{
			Name:       c.Name,
			Visibility: artifacts.Public,
			Tags:       artifacts.CaseTags(artifacts.KindCharacter, caseNumber, artifacts.TagCharacterID, c.ID),
			Content:    content,
		}); err != nil {
			return models.Episode{}, errors.Wrap(err, "store character", slog.String("character_id", c.ID))
		}
		names[c.ID] = c.Name
	}

	if _, err = o.Artifacts.Put(ctx, artifacts.Artifact{
		Name:       "narrative",
		Visibility: artifacts.Private,
		Tags:       artifacts.CaseTags(artifacts.KindNarrative, caseNumber),
		Content:    []byte(g.narrative),
	}); err != nil {
		return models.Episode{}, errors.Wrap(err, "store narrative")
	}

	solution, err := json.Marshal(g.solution)
	if err != nil {
		return models.Episode{}, errors.Wrap(err, "marshal solution")
	}
	if _, err = o.Artifacts.Put(ctx, artifacts.Artifact{
		Name:       "solution",
		Visibility: artifacts.Private,
		Tags:       artifacts.CaseTags(artifacts.KindSolution, caseNumber),
		Content:    solution,
	}); err != nil {
		return models.Episode{}, errors.Wrap(err, "store solution")
	}

	for _, f := range g.fragments {
		name := names[f.CharacterID]
		if _, err = o.Artifacts.Put(ctx, artifacts.Artifact{
			Name:       name + "-memory",
			Visibility: artifacts.Private,
			Tags: artifacts.CaseTags(artifacts.KindMemory, caseNumber,
				artifacts.TagCharacterID, f.CharacterID, artifacts.TagCategory, string(f.Category)),
			Content: []byte(FragmentContent(name, f.Text)),
		}); err != nil {
			return models.Episode{}, errors.Wrap(err, "store fragment", slog.String("character_id", f.CharacterID))
		}
	}

	teaser, err := o.Artifacts.Put(ctx, artifacts.Artifact{
		Name:       "teaser",
		Visibility: artifacts.Public,
		Tags:       artifacts.CaseTags(artifacts.KindTeaser, caseNumber),
		Content:    []byte(g.teaser),
	})
	if err != nil {
		return models.Episode{}, errors.Wrap(err, "store teaser")
	}

	ref := artifacts.Ref(teaser)
	if err = o.Ledger.SetCaseInfo(ctx, caseNumber, ref); err != nil {
		return models.Episode{}, errors.Wrap(err, "publish case to ledger", slog.String("ref", ref))
	}

	episode := models.Episode{
		CaseNumber: caseNumber,
		CreatedAt:  o.now().UTC(),
		Duration:   o.Settings.CaseDuration,
		CaseRef:    ref,
	}
	if err = o.Episodes.Append(ctx, episode); err != nil {
		return models.Episode{}, errors.Wrap(err, "append episode")
	}

	if err = o.Notifier.Notify(ctx, notify.Notification{Title: notify.TitleNewCase, Body: notify.BodyNewCase}); err != nil {
		o.Logger.LogAttrs(ctx, slog.LevelWarn, "notify new case", errors.SlogError(err))
	}
	return episode, nil
}

func (o *Orchestrator) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// FragmentContent is the stored form of a character's memory.
func FragmentContent(characterName string, text string) string {
	return characterName + " memory details: " + text
}
