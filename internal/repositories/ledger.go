package repositories

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/polluterofminds/parallax-server/internal/errors"
	"github.com/polluterofminds/parallax-server/internal/sqlite"
)

var ErrNoActiveCase = errors.NewSentinel("no active case on the ledger")

// LedgerCase is the ledger's view of a case.
type LedgerCase struct {
	CaseNumber   int64     `db:"case_number"`
	CrimeInfoRef string    `db:"crime_info_ref"`
	Status       string    `db:"status"`
	Winner       string    `db:"winner"`
	UpdatedAt    time.Time `db:"updated_at"`
}

const (
	LedgerStatusActive    = "active"
	LedgerStatusCompleted = "completed"
)

// LedgerRepository is a local stand-in for the prize-pool ledger. At most one case is active at a time.
type LedgerRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewLedgerRepository(dbs *sqlite.Database, logger *slog.Logger) *LedgerRepository {
	return &LedgerRepository{
		dbs:    dbs,
		logger: logger.With("source", "LedgerRepository"),
	}
}

// SetCaseInfo opens caseNumber as the active case referencing crimeInfoRef. A previously active case is closed
// without a winner. Opening a case number again replaces its reference and clears its winner.
func (r *LedgerRepository) SetCaseInfo(ctx context.Context, caseNumber int64, crimeInfoRef string) error {
	tx, err := r.dbs.ReadWrite.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE ledger_cases SET status = ?, updated_at = ? WHERE status = ?`,
		LedgerStatusCompleted, now, LedgerStatusActive); err != nil {
		return errors.Wrap(err, "close active case")
	}
	stmt := `INSERT INTO ledger_cases (case_number, crime_info_ref, status, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (case_number) DO UPDATE SET crime_info_ref = excluded.crime_info_ref,
                                        status         = excluded.status,
                                        winner         = '',
                                        updated_at     = excluded.updated_at`
	if _, err = tx.ExecContext(ctx, stmt, caseNumber, crimeInfoRef, LedgerStatusActive, now); err != nil {
		return errors.Wrap(err, "insert ledger case",
			slog.Int64("case_number", caseNumber), slog.String("ref", crimeInfoRef))
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit ledger case")
	}
	return nil
}

// ActiveCase returns the active case or [ErrNoActiveCase].
func (r *LedgerRepository) ActiveCase(ctx context.Context) (LedgerCase, error) {
	var c LedgerCase
	stmt := `SELECT case_number, crime_info_ref, status, winner, updated_at FROM ledger_cases WHERE status = ?`
	if err := r.dbs.ReadOnly.GetContext(ctx, &c, stmt, LedgerStatusActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LedgerCase{}, ErrNoActiveCase
		}
		return LedgerCase{}, errors.Wrap(err, "select active case")
	}
	return c, nil
}

// GameOver completes the active case with winner and returns a transaction reference.
func (r *LedgerRepository) GameOver(ctx context.Context, winner string) (string, error) {
	stmt := `UPDATE ledger_cases SET status = ?, winner = ?, updated_at = ? WHERE status = ?`
	res, err := r.dbs.ReadWrite.ExecContext(ctx, stmt, LedgerStatusCompleted, winner, time.Now().UTC(),
		LedgerStatusActive)
	if err != nil {
		return "", errors.Wrap(err, "complete active case")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return "", ErrNoActiveCase
	}
	return uuid.NewString(), nil
}

// RecordDeposit marks address as having paid into the case's pool. Repeated deposits are ignored.
func (r *LedgerRepository) RecordDeposit(ctx context.Context, caseNumber int64, address string) error {
	stmt := `INSERT INTO ledger_deposits (case_number, address, created_at) VALUES (?, ?, ?)
ON CONFLICT (case_number, address) DO NOTHING`
	if _, err := r.dbs.ReadWrite.ExecContext(ctx, stmt, caseNumber, address, time.Now().UTC()); err != nil {
		return errors.Wrap(err, "insert deposit", slog.String("address", address))
	}
	return nil
}

func (r *LedgerRepository) HasDeposited(ctx context.Context, caseNumber int64, address string) (bool, error) {
	var exists bool
	stmt := `SELECT EXISTS (SELECT 1 FROM ledger_deposits WHERE case_number = ? AND address = ?)`
	if err := r.dbs.ReadOnly.GetContext(ctx, &exists, stmt, caseNumber, address); err != nil {
		return false, errors.Wrap(err, "select deposit")
	}
	return exists, nil
}
