package casegen

import (
	"context"
	"log/slog"
	"time"

	"github.com/polluterofminds/parallax-server/internal/errors"
	"github.com/polluterofminds/parallax-server/internal/models"
)

type CaseCreator interface {
	CreateCase(ctx context.Context) (models.Episode, error)
}

// PublicationChecker reports whether a case's public artifacts are in place.
type PublicationChecker interface {
	Published(ctx context.Context, caseNumber int64) (bool, error)
}

// Scheduler starts a new case whenever the current one's time window has elapsed.
type Scheduler struct {
	creator  CaseCreator
	episodes EpisodeStore
	cases    PublicationChecker
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

func NewScheduler(
	creator CaseCreator,
	episodes EpisodeStore,
	cases PublicationChecker,
	interval time.Duration,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		creator:  creator,
		episodes: episodes,
		cases:    cases,
		interval: interval,
		now:      time.Now,
		logger:   logger.With("source", "Scheduler"),
	}
}

// Run checks once right away and then every interval until ctx is done. Failed checks are logged and retried on
// the next tick.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if _, err := s.Tick(ctx); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelError, "scheduled case creation failed", errors.SlogError(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.interval):
		}
	}
}

// Tick creates a case when none exists, the latest has expired or the latest lost its artifacts to a run that was
// cut short after teardown. It reports whether a case was created. A creation already in progress elsewhere is not
// an error.
func (s *Scheduler) Tick(ctx context.Context) (bool, error) {
	latest, err := s.episodes.Latest(ctx)
	switch {
	case errors.Is(err, models.ErrNoEpisode):
	case err != nil:
		return false, errors.Wrap(err, "latest episode")
	case s.now().Before(latest.EndsAt()):
		published, err := s.cases.Published(ctx, latest.CaseNumber)
		if err != nil {
			return false, errors.Wrap(err, "check current case")
		}
		if published {
			return false, nil
		}
		s.logger.LogAttrs(ctx, slog.LevelWarn, "current case has no teaser, replacing it",
			slog.Int64("case_number", latest.CaseNumber))
	}

	episode, err := s.creator.CreateCase(ctx)
	if errors.Is(err, ErrCaseInProgress) {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "case creation already in progress")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "scheduled case created", slog.Int64("case_number", episode.CaseNumber))
	return true, nil
}
