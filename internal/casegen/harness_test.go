package casegen_test

import (
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/polluterofminds/parallax-server/internal/ai/aitest"
	"github.com/polluterofminds/parallax-server/internal/casegen"
	"github.com/polluterofminds/parallax-server/internal/clues"
	"github.com/polluterofminds/parallax-server/internal/extraction"
	"github.com/polluterofminds/parallax-server/internal/models"
	"github.com/polluterofminds/parallax-server/internal/notify"
	"github.com/polluterofminds/parallax-server/internal/prompts"
	"github.com/polluterofminds/parallax-server/internal/random"
	"github.com/polluterofminds/parallax-server/internal/repositories"
	"github.com/polluterofminds/parallax-server/internal/retry"
	"github.com/polluterofminds/parallax-server/internal/roster"
	"github.com/polluterofminds/parallax-server/internal/sqlite/sqlitetest"
	"github.com/polluterofminds/parallax-server/internal/testhelpers"
)

const (
	narrativeText = "Karen Smith stabbed her husband Mark Smith after discovering he had drained their savings " +
		"to pay off a mistress."
	teaserText   = "Mark Smith was found stabbed in his kitchen in Helix."
	solutionJSON = `{"victims": "Mark Smith", "criminal": "Karen Smith", "motive": "financial betrayal / affair"}`
)

var karenCase = models.StructuredSolution{ //nolint:gochecknoglobals // test fixture
	Victims:  "Mark Smith",
	Criminal: "Karen Smith",
	Motive:   "financial betrayal / affair",
}

type fixedNames struct{}

func (fixedNames) Name(gender models.Gender) string {
	if gender == models.GenderFemale {
		return "Ada Quill"
	}
	return "Ben Quill"
}

// script answers every prompt of the pipeline with well-formed text. Setting malformed makes extraction fail and
// setting leakyTeaser makes the teaser name the culprit. hook, when set before a run, sees every call first.
type script struct {
	malformed   atomic.Bool
	leakyTeaser atomic.Bool
	hook        func(call aitest.Call)
}

func (s *script) respond(_ int, call aitest.Call) (string, error) {
	if s.hook != nil {
		s.hook(call)
	}
	switch {
	case strings.Contains(call.System, "character backstories"):
		return "Born in Helix, works at the docks.", nil
	case strings.Contains(call.System, "murder mystery game designer"):
		return narrativeText, nil
	case strings.Contains(call.System, "police bulletin"):
		if s.leakyTeaser.Load() {
			return "Karen was seen leaving the kitchen where Mark Smith lay stabbed.", nil
		}
		return teaserText, nil
	case strings.Contains(call.System, "Good response"):
		if s.malformed.Load() {
			return "I cannot do that.", nil
		}
		return solutionJSON, nil
	case strings.Contains(call.System, "must name"):
		return "You remember Karen Smith arguing with Mark at the market last spring.", nil
	case strings.Contains(call.System, "explains why"):
		return "You remember Mark bragging about money he did not have.", nil
	case strings.Contains(call.System, "Only provide a score"):
		return "0.9", nil
	case strings.Contains(call.System, "Never break character"):
		return "I saw Karen Smith at the market, that is all I know.", nil
	default:
		return "You remember a crowd near the docks, though you are not sure who was there.", nil
	}
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var titles []string
	for _, n := range r.sent {
		titles = append(titles, n.Title)
	}
	return titles
}

type harness struct {
	script    *script
	gen       *aitest.Scripted
	artifacts *repositories.ArtifactRepository
	episodes  *repositories.EpisodeRepository
	ledger    *repositories.LedgerRepository
	locks     *repositories.LockRepository
	attempts  *repositories.SolveAttemptRepository
	notifier  *recordingNotifier

	conversations *repositories.ConversationRepository
	orch      *casegen.Orchestrator
	reader    *casegen.Reader
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dbs := sqlitetest.New(t)
	logger := testhelpers.NewLogger(io.Discard)
	s := &script{}
	gen := aitest.New(s.respond)
	catalog := prompts.Default()
	policy := retry.Policy{MaxTries: 3, NewBackOff: retry.NoWait}

	h := &harness{
		script:    s,
		gen:       gen,
		artifacts: repositories.NewArtifactRepository(dbs, logger),
		episodes:  repositories.NewEpisodeRepository(dbs, logger),
		ledger:    repositories.NewLedgerRepository(dbs, logger),
		locks:     repositories.NewLockRepository(dbs, logger),
		attempts:  repositories.NewSolveAttemptRepository(dbs, logger),
		notifier:  &recordingNotifier{},

		conversations: repositories.NewConversationRepository(dbs, logger),
	}
	h.orch = &casegen.Orchestrator{
		Gen:       gen,
		Prompts:   catalog,
		Roster:    roster.NewGenerator(gen, catalog, fixedNames{}, random.NewSeeded(1), 0, logger),
		Extractor: extraction.NewValidator(gen, catalog, policy, logger),
		Clues:     clues.NewDistributor(gen, catalog, random.NewSeeded(2), policy, logger),
		Artifacts: h.artifacts,
		Episodes:  h.episodes,
		Ledger:    h.ledger,
		Notifier:  h.notifier,
		Locker:    h.locks,
		Names:     fixedNames{},
		Rand:      random.NewSeeded(3),
		Settings: casegen.Settings{
			CharacterCount: 10,
			CaseDuration:   168 * time.Hour,
			LockTTL:        time.Minute,
		},
		Logger: logger,
	}
	h.reader = casegen.NewReader(h.artifacts, h.episodes, logger)
	return h
}
