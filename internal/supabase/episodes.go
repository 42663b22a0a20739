// Package supabase keeps the episode bookkeeping in a hosted Supabase table.
package supabase

import (
	"context"
	"log/slog"
	"time"

	"github.com/polluterofminds/parallax-server/internal/errors"
	"github.com/polluterofminds/parallax-server/internal/models"
	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"
)

const episodesTable = "episodes"

const day = 24 * time.Hour

// episodeRow mirrors the episodes table. Durations are stored in whole days.
type episodeRow struct {
	CaseNumber int64     `json:"case_number"`
	CreatedAt  time.Time `json:"created_at"`
	Duration   int       `json:"duration"`
	CaseHash   string    `json:"case_hash"`
}

// EpisodeStore reads and appends episodes through PostgREST.
type EpisodeStore struct {
	client *supa.Client
	logger *slog.Logger
}

func NewEpisodeStore(url string, key string, logger *slog.Logger) (*EpisodeStore, error) {
	client, err := supa.NewClient(url, key, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create supabase client")
	}
	return &EpisodeStore{
		client: client,
		logger: logger.With("source", "SupabaseEpisodeStore"),
	}, nil
}

// Latest returns the most recently created episode or [models.ErrNoEpisode].
func (s *EpisodeStore) Latest(_ context.Context) (models.Episode, error) {
	var rows []episodeRow
	_, err := s.client.From(episodesTable).
		Select("*", "exact", false).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}). //nolint:exhaustruct // defaults are fine
		Limit(1, "").
		ExecuteTo(&rows)
	if err != nil {
		return models.Episode{}, errors.Wrap(err, "select latest episode")
	}
	if len(rows) == 0 {
		return models.Episode{}, models.ErrNoEpisode
	}
	row := rows[0]
	return models.Episode{
		CaseNumber: row.CaseNumber,
		CreatedAt:  row.CreatedAt,
		Duration:   time.Duration(row.Duration) * day,
		CaseRef:    row.CaseHash,
	}, nil
}

// Append inserts episode. The duration is rounded to whole days, at least one.
func (s *EpisodeStore) Append(_ context.Context, episode models.Episode) error {
	row := episodeRow{
		CaseNumber: episode.CaseNumber,
		CreatedAt:  episode.CreatedAt.UTC(),
		Duration:   max(int(episode.Duration.Round(day)/day), 1),
		CaseHash:   episode.CaseRef,
	}
	if _, _, err := s.client.From(episodesTable).Insert(row, false, "", "minimal", "").Execute(); err != nil {
		return errors.Wrap(err, "insert episode", slog.Int64("case_number", episode.CaseNumber))
	}
	return nil
}
