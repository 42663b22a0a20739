package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/polluterofminds/parallax-server/internal/errors"
	"github.com/polluterofminds/parallax-server/internal/models"
	"github.com/polluterofminds/parallax-server/internal/repositories"
	"github.com/polluterofminds/parallax-server/internal/sqlite"
	"github.com/polluterofminds/parallax-server/internal/testhelpers"
)

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	var (
		err       error
		start     = time.Now()
		ctx       context.Context
		sqliteURL string
		ok        bool
		cancel    context.CancelFunc
	)
	ctx = context.Background()
	ctx, cancel = context.WithTimeout(ctx, 5*time.Second) //nolint:mnd // 5 seconds

	if sqliteURL, ok = os.LookupEnv("PARALLAX_SQLITE_URL"); !ok {
		logger.LogAttrs(ctx, slog.LevelError, "PARALLAX_SQLITE_URL not set")
		os.Exit(1)
	}

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, sqliteURL, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating database",
			slog.String("url", sqliteURL), errors.SlogError(err))
		os.Exit(1)
	}

	// The schema migrated and the episode bookkeeping is readable.
	episodes := repositories.NewEpisodeRepository(db, logger)
	var count int
	if count, err = episodes.Count(ctx); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error fetching episode count", errors.SlogError(err))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "episode count", slog.Int("count", count))

	latest, err := episodes.Latest(ctx)
	switch {
	case errors.Is(err, models.ErrNoEpisode):
		logger.LogAttrs(ctx, slog.LevelWarn, "no case published yet")
	case err != nil:
		logger.LogAttrs(ctx, slog.LevelError, "error fetching latest episode", errors.SlogError(err))
		os.Exit(1)
	default:
		logger.LogAttrs(ctx, slog.LevelInfo, "latest case",
			slog.Int64("case_number", latest.CaseNumber),
			slog.Time("ends_at", latest.EndsAt()),
			slog.String("case_ref", latest.CaseRef))
	}

	if err = db.Close(); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error closing database", errors.SlogError(err))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "Database check successful 🙌", slog.Duration("duration", time.Since(start)))
	cancel()
	os.Exit(0)
}
