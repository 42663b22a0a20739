package casegen

import (
	"context"
	"log/slog"

	"github.com/polluterofminds/parallax-server/internal/errors"
	"github.com/polluterofminds/parallax-server/internal/models"
	"github.com/polluterofminds/parallax-server/internal/notify"
	"github.com/polluterofminds/parallax-server/internal/repositories"
	"github.com/polluterofminds/parallax-server/internal/scoring"
)

// SolveResult is the outcome of one solve attempt.
type SolveResult struct {
	CaseNumber int64           `json:"caseNumber"`
	Attempts   int             `json:"attempts"`
	Verdict    scoring.Verdict `json:"verdict"`
	// LedgerRef is the ledger transaction that closed the case, set when the guess solved it.
	LedgerRef string `json:"ledgerRef,omitempty"`
}

// Solver judges player guesses against the current case.
type Solver struct {
	reader   *Reader
	attempts SolveAttempts
	ledger   Ledger
	judge    scoring.Judge
	notifier notify.Notifier
	logger   *slog.Logger
}

func NewSolver(
	reader *Reader,
	attempts SolveAttempts,
	ledger Ledger,
	judge scoring.Judge,
	notifier notify.Notifier,
	logger *slog.Logger,
) *Solver {
	return &Solver{
		reader:   reader,
		attempts: attempts,
		ledger:   ledger,
		judge:    judge,
		notifier: notifier,
		logger:   logger.With("source", "Solver"),
	}
}

// Solve records the attempt of player and scores guess. A wrong guess is a verdict, not an error.
func (s *Solver) Solve(ctx context.Context, player string, guess models.StructuredSolution) (SolveResult, error) {
	episode, err := s.reader.CurrentEpisode(ctx)
	if err != nil {
		return SolveResult{}, err
	}
	solution, err := s.reader.Solution(ctx, episode.CaseNumber)
	if err != nil {
		return SolveResult{}, errors.Wrap(err, "load solution")
	}
	if err = s.attempts.Append(ctx, player, episode.CaseNumber); err != nil {
		return SolveResult{}, errors.Wrap(err, "record attempt")
	}
	count, err := s.attempts.Count(ctx, player, episode.CaseNumber)
	if err != nil {
		return SolveResult{}, errors.Wrap(err, "count attempts")
	}

	verdict := scoring.Evaluate(ctx, s.logger, solution, guess, s.judge)
	result := SolveResult{CaseNumber: episode.CaseNumber, Attempts: count, Verdict: verdict}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "solve attempt",
		slog.Int64("case_number", episode.CaseNumber),
		slog.String("player", player),
		slog.String("status", string(verdict.Status)),
		slog.Float64("total", verdict.Scores.Total))
	if !verdict.Solved() {
		return result, nil
	}

	ref, err := s.ledger.GameOver(ctx, player)
	switch {
	case errors.Is(err, repositories.ErrNoActiveCase):
		s.logger.LogAttrs(ctx, slog.LevelWarn, "case was already closed on the ledger")
	case err != nil:
		return SolveResult{}, errors.Wrap(err, "close case on ledger")
	default:
		result.LedgerRef = ref
		if err = s.notifier.Notify(ctx, notify.Notification{
			Title: notify.TitleCaseSolved,
			Body:  notify.BodyCaseSolved,
		}); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "notify solved case", errors.SlogError(err))
		}
	}
	return result, nil
}
