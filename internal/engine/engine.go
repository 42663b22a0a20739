// Package engine assembles the case engine from configuration. Both the HTTP server and the CLI build on it.
package engine

import (
	"context"
	"log/slog"

	"github.com/polluterofminds/parallax-server/internal/ai"
	"github.com/polluterofminds/parallax-server/internal/artifacts"
	"github.com/polluterofminds/parallax-server/internal/artifacts/mongostore"
	"github.com/polluterofminds/parallax-server/internal/casegen"
	"github.com/polluterofminds/parallax-server/internal/clues"
	"github.com/polluterofminds/parallax-server/internal/config"
	"github.com/polluterofminds/parallax-server/internal/errors"
	"github.com/polluterofminds/parallax-server/internal/extraction"
	"github.com/polluterofminds/parallax-server/internal/notify"
	"github.com/polluterofminds/parallax-server/internal/prompts"
	"github.com/polluterofminds/parallax-server/internal/random"
	"github.com/polluterofminds/parallax-server/internal/repositories"
	"github.com/polluterofminds/parallax-server/internal/retry"
	"github.com/polluterofminds/parallax-server/internal/roster"
	"github.com/polluterofminds/parallax-server/internal/scoring"
	"github.com/polluterofminds/parallax-server/internal/sqlite"
	"github.com/polluterofminds/parallax-server/internal/supabase"
)

// Engine holds the wired components of one process.
type Engine struct {
	DB            *sqlite.Database
	Orchestrator  *casegen.Orchestrator
	Reader        *casegen.Reader
	Solver        *casegen.Solver
	Interrogator  *casegen.Interrogator
	Scheduler     *casegen.Scheduler
	Notifications *repositories.NotificationRepository
	Ledger        *repositories.LedgerRepository

	closers []func(context.Context) error
}

type options struct {
	gen  ai.Generator
	rand random.Source
}

type Option func(*options)

// WithGenerator replaces the configured text generator.
func WithGenerator(gen ai.Generator) Option {
	return func(o *options) {
		o.gen = gen
	}
}

// WithRandom replaces the randomness used for rosters and clue assignment.
func WithRandom(src random.Source) Option {
	return func(o *options) {
		o.rand = src
	}
}

// New connects the configured backends and wires the case engine. Call [Engine.Close] when done.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*Engine, error) {
	o := options{rand: random.Default}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		err error
		e   = &Engine{}
	)
	if e.DB, err = sqlite.NewDatabase(ctx, cfg.SQLiteURL, logger); err != nil {
		return nil, errors.Wrap(err, "open database", slog.String("url", cfg.SQLiteURL))
	}
	e.closers = append(e.closers, func(context.Context) error { return e.DB.Close() })

	gen := o.gen
	if gen == nil {
		if gen, err = ai.New(ctx, cfg, logger); err != nil {
			return nil, e.closeWith(ctx, errors.Wrap(err, "text generator"))
		}
	}

	var store artifacts.Store
	switch cfg.ArtifactStore {
	case config.BackendMongo:
		var mongo *mongostore.Store
		if mongo, err = mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, logger); err != nil {
			return nil, e.closeWith(ctx, errors.Wrap(err, "connect artifact store"))
		}
		e.closers = append(e.closers, mongo.Close)
		store = mongo
	default:
		store = repositories.NewArtifactRepository(e.DB, logger)
	}

	var episodes casegen.EpisodeStore
	switch cfg.EpisodeStore {
	case config.BackendSupabase:
		if episodes, err = supabase.NewEpisodeStore(cfg.SupabaseURL, cfg.SupabaseKey, logger); err != nil {
			return nil, e.closeWith(ctx, errors.Wrap(err, "connect episode store"))
		}
	default:
		episodes = repositories.NewEpisodeRepository(e.DB, logger)
	}

	e.Ledger = repositories.NewLedgerRepository(e.DB, logger)
	e.Notifications = repositories.NewNotificationRepository(e.DB, logger)
	var notifier notify.Notifier = notify.NewLog(logger)
	if cfg.NotifyURL != "" {
		notifier = notify.NewWebhook(cfg.NotifyURL, cfg.NotifyTargetURL, e.Notifications, logger)
	}

	catalog := prompts.Default()
	extractionPolicy := retry.Policy{
		MaxTries:   cfg.ExtractionMaxTries,
		MaxElapsed: cfg.ExtractionMaxElapsed,
		NewBackOff: nil,
	}
	fragmentPolicy := retry.Policy{
		MaxTries:   cfg.FragmentMaxTries,
		MaxElapsed: 0,
		NewBackOff: nil,
	}

	e.Orchestrator = &casegen.Orchestrator{
		Gen:       gen,
		Prompts:   catalog,
		Roster:    roster.NewGenerator(gen, catalog, roster.FakerNames{}, o.rand, cfg.RosterRequestInterval, logger),
		Extractor: extraction.NewValidator(gen, catalog, extractionPolicy, logger),
		Clues:     clues.NewDistributor(gen, catalog, o.rand, fragmentPolicy, logger),
		Artifacts: store,
		Episodes:  episodes,
		Ledger:    e.Ledger,
		Notifier:  notifier,
		Locker:    repositories.NewLockRepository(e.DB, logger),
		Names:     roster.FakerNames{},
		Rand:      o.rand,
		Settings: casegen.Settings{
			CharacterCount: cfg.CharacterCount,
			CaseDuration:   cfg.CaseDuration,
			LockTTL:        cfg.CaseLockTTL,
		},
		Logger: logger,
		Now:    nil,
	}
	e.Reader = casegen.NewReader(store, episodes, logger)
	e.Solver = casegen.NewSolver(e.Reader, repositories.NewSolveAttemptRepository(e.DB, logger), e.Ledger,
		scoring.NewAIJudge(gen, catalog), notifier, logger)
	e.Interrogator = casegen.NewInterrogator(gen, catalog, e.Reader,
		repositories.NewConversationRepository(e.DB, logger), logger)
	e.Scheduler = casegen.NewScheduler(e.Orchestrator, episodes, e.Reader, cfg.SchedulerInterval, logger)
	return e, nil
}

// Close releases the backends in reverse order of acquisition.
func (e *Engine) Close(ctx context.Context) error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	if err := errors.Join(errs...); err != nil {
		return errors.Wrap(err, "close engine")
	}
	return nil
}

func (e *Engine) closeWith(ctx context.Context, err error) error {
	if closeErr := e.Close(ctx); closeErr != nil {
		return errors.Join(err, closeErr)
	}
	return err
}
