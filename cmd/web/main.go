package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/polluterofminds/parallax-server/internal/config"
	"github.com/polluterofminds/parallax-server/internal/engine"
	"github.com/polluterofminds/parallax-server/internal/errors"
	"github.com/polluterofminds/parallax-server/internal/logging"
	"github.com/polluterofminds/parallax-server/internal/pprofserver"
	"github.com/polluterofminds/parallax-server/internal/sqlite"
	"github.com/polluterofminds/parallax-server/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

const optimizeInterval = time.Hour

type application struct {
	logger *slog.Logger
	cfg    config.Config
	engine *engine.Engine
}

// run starts the case engine and serves the HTTP API until ctx is done.
//
// environ overrides the process environment, which is used together with an optional .env file when nil.
func run(ctx context.Context, logger *slog.Logger, environ map[string]string, opts ...engine.Option) error {
	if environ == nil {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "load .env")
		}
	}
	cfg, err := config.Load(environ)
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	shutdownTracing, err := telemetry.Setup(ctx, "parallax-server", cfg.OTelEndpoint)
	if err != nil {
		return errors.Wrap(err, "setup telemetry")
	}
	defer func() {
		if err = shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			logger.LogAttrs(ctx, slog.LevelError, "shutdown telemetry", errors.SlogError(err))
		}
	}()

	var e *engine.Engine
	if e, err = engine.New(ctx, cfg, logger, opts...); err != nil {
		return errors.Wrap(err, "build engine")
	}
	defer func() {
		if err = e.Close(context.WithoutCancel(ctx)); err != nil {
			logger.LogAttrs(ctx, slog.LevelError, "close engine", errors.SlogError(err))
		}
	}()

	app := application{
		logger: logger,
		cfg:    cfg,
		engine: e,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.configureAndStartServer(ctx, cfg.Addr)
	})
	g.Go(func() error {
		return runOptimizer(ctx, e.DB)
	})
	if cfg.SchedulerInterval > 0 {
		g.Go(func() error {
			return e.Scheduler.Run(ctx)
		})
	}
	if cfg.PprofAddr != "" {
		g.Go(func() error {
			return pprofserver.Run(ctx, cfg.PprofAddr, logger)
		})
	}
	if err = g.Wait(); err != nil {
		return errors.Wrap(err, "run")
	}
	return nil
}

func runOptimizer(ctx context.Context, db *sqlite.Database) error {
	return db.RunOptimizer(ctx, optimizeInterval)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	logger := logging.NewLogger(os.Stdout, slog.LevelDebug, true)
	err := run(ctx, logger, nil)
	stop()
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
