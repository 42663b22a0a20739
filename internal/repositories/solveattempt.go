package repositories

import (
	"context"
	"log/slog"
	"time"

	"github.com/polluterofminds/parallax-server/internal/errors"
	"github.com/polluterofminds/parallax-server/internal/sqlite"
)

// SolveAttemptRepository is the append-only log of solve attempts. Capping attempts is up to the caller.
type SolveAttemptRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewSolveAttemptRepository(dbs *sqlite.Database, logger *slog.Logger) *SolveAttemptRepository {
	return &SolveAttemptRepository{
		dbs:    dbs,
		logger: logger.With("source", "SolveAttemptRepository"),
	}
}

func (r *SolveAttemptRepository) Append(ctx context.Context, playerID string, caseNumber int64) error {
	stmt := `INSERT INTO solve_attempts (player_id, case_number, created_at) VALUES (?, ?, ?)`
	if _, err := r.dbs.ReadWrite.ExecContext(ctx, stmt, playerID, caseNumber, time.Now().UTC()); err != nil {
		return errors.Wrap(err, "insert solve attempt",
			slog.String("player_id", playerID), slog.Int64("case_number", caseNumber))
	}
	return nil
}

func (r *SolveAttemptRepository) Count(ctx context.Context, playerID string, caseNumber int64) (int, error) {
	var count int
	stmt := `SELECT COUNT(*) FROM solve_attempts WHERE player_id = ? AND case_number = ?`
	if err := r.dbs.ReadOnly.GetContext(ctx, &count, stmt, playerID, caseNumber); err != nil {
		return 0, errors.Wrap(err, "count solve attempts")
	}
	return count, nil
}
