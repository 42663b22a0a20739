package sqlite

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"log/slog"
	"strconv"

	"github.com/polluterofminds/parallax-server/internal/errors"
)

// migrate applies the idempotent schema definition inside one transaction.
//
// The schema only uses CREATE ... IF NOT EXISTS statements. PRAGMA user_version stores a fingerprint of the applied
// definition so that unchanged schemas are not re-applied on every start.
func (db *Database) migrate(ctx context.Context, schemaDefinition string) error {
	var (
		err     error
		current int64
	)
	sum := sha256.Sum256([]byte(schemaDefinition))
	// user_version is a signed 32-bit integer.
	target := int64(int32(binary.BigEndian.Uint32(sum[:4]))) //nolint:gosec // truncation is the point

	if err = db.ReadWrite.GetContext(ctx, &current, "PRAGMA user_version"); err != nil {
		return errors.Wrap(err, "read schema version")
	}
	if current == target {
		return nil
	}

	tx, err := db.ReadWrite.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "start transaction")
	}
	defer func() {
		// Rollback after commit returns sql.ErrTxDone which is fine to ignore.
		_ = tx.Rollback()
	}()

	if _, err = tx.ExecContext(ctx, schemaDefinition); err != nil {
		return errors.Wrap(err, "apply schema")
	}
	// PRAGMA statements don't support bound parameters.
	if _, err = tx.ExecContext(ctx, "PRAGMA user_version = "+strconv.FormatInt(target, 10)); err != nil {
		return errors.Wrap(err, "write schema version")
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}

	db.logger.LogAttrs(ctx, slog.LevelInfo, "applied schema",
		slog.Int64("from_version", current), slog.Int64("to_version", target))
	return nil
}
