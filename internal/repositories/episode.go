package repositories

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/polluterofminds/parallax-server/internal/errors"
	"github.com/polluterofminds/parallax-server/internal/models"
	"github.com/polluterofminds/parallax-server/internal/sqlite"
)

type EpisodeRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewEpisodeRepository(dbs *sqlite.Database, logger *slog.Logger) *EpisodeRepository {
	return &EpisodeRepository{
		dbs:    dbs,
		logger: logger.With("source", "EpisodeRepository"),
	}
}

// Latest returns the most recently created episode or [models.ErrNoEpisode].
func (r *EpisodeRepository) Latest(ctx context.Context) (models.Episode, error) {
	var episode models.Episode
	stmt := `SELECT case_number, created_at, duration, case_ref
FROM episodes
ORDER BY created_at DESC, case_number DESC
LIMIT 1`
	if err := r.dbs.ReadOnly.GetContext(ctx, &episode, stmt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Episode{}, models.ErrNoEpisode
		}
		return models.Episode{}, errors.Wrap(err, "select latest episode")
	}
	return episode, nil
}

// Append records a new episode. Case numbers are unique.
func (r *EpisodeRepository) Append(ctx context.Context, episode models.Episode) error {
	stmt := `INSERT INTO episodes (case_number, created_at, duration, case_ref) VALUES (?, ?, ?, ?)`
	if _, err := r.dbs.ReadWrite.ExecContext(ctx, stmt,
		episode.CaseNumber, episode.CreatedAt.UTC(), int64(episode.Duration), episode.CaseRef); err != nil {
		return errors.Wrap(err, "insert episode", slog.Int64("case_number", episode.CaseNumber))
	}
	return nil
}

// Count returns the number of recorded episodes.
func (r *EpisodeRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.dbs.ReadOnly.GetContext(ctx, &count, `SELECT COUNT(*) FROM episodes`); err != nil {
		return 0, errors.Wrap(err, "count episodes")
	}
	return count, nil
}
