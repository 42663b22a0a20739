package repositories

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/polluterofminds/parallax-server/internal/errors"
	"github.com/polluterofminds/parallax-server/internal/sqlite"
)

var (
	ErrLocked    = errors.NewSentinel("lock is held")
	ErrLeaseLost = errors.NewSentinel("lease was taken over")
)

// LockRepository hands out named leases. An expired lease can be taken over so that a crashed holder does not block
// forever.
type LockRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
	now    func() time.Time
}

func NewLockRepository(dbs *sqlite.Database, logger *slog.Logger) *LockRepository {
	return &LockRepository{
		dbs:    dbs,
		logger: logger.With("source", "LockRepository"),
		now:    time.Now,
	}
}

// Lease is a held lock. It expires unless renewed.
type Lease struct {
	repo   *LockRepository
	name   string
	holder string
}

// Acquire takes the lease name for ttl. It returns [ErrLocked] when another holder has an unexpired lease.
func (r *LockRepository) Acquire(ctx context.Context, name string, ttl time.Duration) (*Lease, error) {
	holder := uuid.NewString()
	now := r.now()
	stmt := `INSERT INTO locks (name, holder, expires_at) VALUES (?, ?, ?)
ON CONFLICT (name) DO UPDATE SET holder = excluded.holder, expires_at = excluded.expires_at
WHERE locks.expires_at <= ?`
	res, err := r.dbs.ReadWrite.ExecContext(ctx, stmt, name, holder, now.Add(ttl).UnixNano(), now.UnixNano())
	if err != nil {
		return nil, errors.Wrap(err, "acquire lock", slog.String("name", name))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return nil, errors.Wrap(ErrLocked, "acquire lock", slog.String("name", name))
	}
	r.logger.DebugContext(ctx, "lock acquired", slog.String("name", name), slog.String("holder", holder))
	return &Lease{repo: r, name: name, holder: holder}, nil
}

// Renew extends the lease to ttl from now. It returns [ErrLeaseLost] when the lease expired and was taken over.
func (l *Lease) Renew(ctx context.Context, ttl time.Duration) error {
	res, err := l.repo.dbs.ReadWrite.ExecContext(ctx, `UPDATE locks SET expires_at = ? WHERE name = ? AND holder = ?`,
		l.repo.now().Add(ttl).UnixNano(), l.name, l.holder)
	if err != nil {
		return errors.Wrap(err, "renew lock", slog.String("name", l.name))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return errors.Wrap(ErrLeaseLost, "renew lock", slog.String("name", l.name))
	}
	return nil
}

// Release gives the lease up. It is a no-op when the lease was taken over in the meantime.
func (l *Lease) Release(ctx context.Context) error {
	if _, err := l.repo.dbs.ReadWrite.ExecContext(ctx, `DELETE FROM locks WHERE name = ? AND holder = ?`,
		l.name, l.holder); err != nil {
		return errors.Wrap(err, "release lock", slog.String("name", l.name))
	}
	return nil
}
