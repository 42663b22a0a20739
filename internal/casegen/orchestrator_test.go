package casegen_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/polluterofminds/parallax-server/internal/ai/aitest"
	"github.com/polluterofminds/parallax-server/internal/artifacts"
	"github.com/polluterofminds/parallax-server/internal/casegen"
	"github.com/polluterofminds/parallax-server/internal/extraction"
	"github.com/polluterofminds/parallax-server/internal/models"
	"github.com/polluterofminds/parallax-server/internal/notify"
	"github.com/polluterofminds/parallax-server/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listKind(t *testing.T, h *harness, kind artifacts.Kind) []artifacts.Artifact {
	t.Helper()
	found, err := h.artifacts.List(context.Background(),
		artifacts.Filter{Tags: map[string]string{artifacts.TagKind: string(kind)}})
	require.NoError(t, err)
	return found
}

func TestOrchestrator_CreateCase(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)

	episode, err := h.orch.CreateCase(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), episode.CaseNumber)
	assert.Equal(t, 168*time.Hour, episode.Duration)

	teasers := listKind(t, h, artifacts.KindTeaser)
	require.Len(t, teasers, 1)
	assert.Equal(t, artifacts.Public, teasers[0].Visibility)
	assert.Equal(t, teaserText, string(teasers[0].Content))
	assert.Equal(t, "ipfs://"+teasers[0].CID, episode.CaseRef)

	characters := listKind(t, h, artifacts.KindCharacter)
	require.Len(t, characters, 10)
	for _, c := range characters {
		assert.Equal(t, artifacts.Public, c.Visibility)
		assert.Equal(t, "1", c.Tags[artifacts.TagCaseNumber])
	}

	for _, kind := range []artifacts.Kind{artifacts.KindNarrative, artifacts.KindSolution} {
		found := listKind(t, h, kind)
		require.Len(t, found, 1, kind)
		assert.Equal(t, artifacts.Private, found[0].Visibility)
	}
	var stored models.StructuredSolution
	require.NoError(t, json.Unmarshal(listKind(t, h, artifacts.KindSolution)[0].Content, &stored))
	assert.Equal(t, karenCase, stored)

	memories := listKind(t, h, artifacts.KindMemory)
	require.Len(t, memories, 10)
	culprits := 0
	for _, m := range memories {
		assert.Equal(t, artifacts.Private, m.Visibility)
		assert.Contains(t, string(m.Content), " memory details: You remember")
		if m.Tags[artifacts.TagCategory] == string(models.MemoryCulprit) {
			culprits++
			assert.Contains(t, string(m.Content), "Karen Smith")
		}
	}
	assert.Equal(t, 2, culprits)

	active, err := h.ledger.ActiveCase(ctx)
	require.NoError(t, err)
	assert.Equal(t, episode.CaseRef, active.CrimeInfoRef)
	assert.Equal(t, episode.CaseNumber, active.CaseNumber)

	latest, err := h.episodes.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, episode.CaseNumber, latest.CaseNumber)

	assert.Equal(t, []string{notify.TitleNewCase}, h.notifier.titles())
}

func TestOrchestrator_CreateCase_replacesPreviousCase(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)

	first, err := h.orch.CreateCase(ctx)
	require.NoError(t, err)
	second, err := h.orch.CreateCase(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.CaseNumber+1, second.CaseNumber)

	all, err := h.artifacts.List(ctx, artifacts.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 23)
	for _, a := range all {
		assert.Equal(t, "2", a.Tags[artifacts.TagCaseNumber], "no artifact of the first case survives")
	}

	count, err := h.episodes.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "episodes are superseded, not deleted")
}

func TestOrchestrator_CreateCase_failedRunIsRetriedFromScratch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.orch.CreateCase(ctx)
	require.NoError(t, err)

	h.script.malformed.Store(true)
	_, err = h.orch.CreateCase(ctx)
	require.ErrorIs(t, err, extraction.ErrRetryBudgetExhausted)
	assert.Contains(t, err.Error(), string(casegen.StageSolutionReady))

	// The failed run tore the first case down and published nothing.
	assert.Empty(t, listKind(t, h, artifacts.KindTeaser))
	count, err := h.episodes.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	h.script.malformed.Store(false)
	episode, err := h.orch.CreateCase(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), episode.CaseNumber)
	assert.Len(t, listKind(t, h, artifacts.KindCharacter), 10)

	active, err := h.ledger.ActiveCase(ctx)
	require.NoError(t, err)
	assert.Equal(t, episode.CaseNumber, active.CaseNumber, "ledger and episodes agree after a failed run")
}

func TestOrchestrator_CreateCase_teaserNamesCulprit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	h.script.leakyTeaser.Store(true)

	_, err := h.orch.CreateCase(ctx)
	require.ErrorIs(t, err, casegen.ErrLeakyTeaser)
	assert.Contains(t, err.Error(), string(casegen.StageSolutionReady))
	assert.Empty(t, listKind(t, h, artifacts.KindTeaser))
	_, err = h.episodes.Latest(ctx)
	require.ErrorIs(t, err, models.ErrNoEpisode)
	assert.Empty(t, h.notifier.titles())

	h.script.leakyTeaser.Store(false)
	episode, err := h.orch.CreateCase(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), episode.CaseNumber)
}

func TestOrchestrator_CreateCase_renewsLeaseBetweenStages(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	h.orch.Settings.LockTTL = 200 * time.Millisecond

	var takeover error
	h.script.hook = func(call aitest.Call) {
		switch {
		case strings.Contains(call.System, "murder mystery game designer"):
			// Outlive the lease taken at the start of this stage.
			time.Sleep(300 * time.Millisecond)
		case strings.Contains(call.System, "police bulletin"):
			_, takeover = h.locks.Acquire(ctx, casegen.LockName, time.Minute)
		}
	}

	_, err := h.orch.CreateCase(ctx)
	require.NoError(t, err)
	require.ErrorIs(t, takeover, repositories.ErrLocked)
}

func TestOrchestrator_CreateCase_lockHeld(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)

	lease, err := h.locks.Acquire(ctx, casegen.LockName, time.Minute)
	require.NoError(t, err)

	_, err = h.orch.CreateCase(ctx)
	require.ErrorIs(t, err, casegen.ErrCaseInProgress)
	assert.Zero(t, h.gen.CallCount())

	require.NoError(t, lease.Release(ctx))
	_, err = h.orch.CreateCase(ctx)
	require.NoError(t, err)

	// The lease is given back after a run.
	lease, err = h.locks.Acquire(ctx, casegen.LockName, time.Minute)
	require.NoError(t, err)
	require.NoError(t, lease.Release(ctx))
}

func TestOrchestrator_CreateCase_tooFewCharacters(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.orch.Settings.CharacterCount = 2

	_, err := h.orch.CreateCase(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(casegen.StageCluesDistributed))
	_, err = h.ledger.ActiveCase(context.Background())
	require.ErrorIs(t, err, repositories.ErrNoActiveCase)
}

func TestOrchestrator_Teardown_idempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)

	require.NoError(t, h.orch.Teardown(ctx))

	_, err := h.artifacts.Put(ctx, artifacts.Artifact{Name: "leftover", Visibility: artifacts.Private,
		Tags: artifacts.CaseTags(artifacts.KindMemory, 99)})
	require.NoError(t, err)
	_, err = h.artifacts.Put(ctx, artifacts.Artifact{Name: "unrelated", Visibility: artifacts.Public,
		Tags: map[string]string{artifacts.TagKind: "avatar"}})
	require.NoError(t, err)

	require.NoError(t, h.orch.Teardown(ctx))
	require.NoError(t, h.orch.Teardown(ctx))

	all, err := h.artifacts.List(ctx, artifacts.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "unrelated", all[0].Name)
}

func TestFragmentContent(t *testing.T) {
	t.Parallel()
	got := casegen.FragmentContent("Ada Quill", "You remember the docks.")
	assert.True(t, strings.HasPrefix(got, "Ada Quill memory details: "))
}
