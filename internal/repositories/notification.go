package repositories

import (
	"context"
	"log/slog"
	"time"

	"github.com/polluterofminds/parallax-server/internal/errors"
	"github.com/polluterofminds/parallax-server/internal/sqlite"
)

// NotificationToken is a registered push notification recipient.
type NotificationToken struct {
	Token     string    `db:"token"`
	URL       string    `db:"url"`
	CreatedAt time.Time `db:"created_at"`
}

type NotificationRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewNotificationRepository(dbs *sqlite.Database, logger *slog.Logger) *NotificationRepository {
	return &NotificationRepository{
		dbs:    dbs,
		logger: logger.With("source", "NotificationRepository"),
	}
}

// Register stores token. Registering a known token updates its URL.
func (r *NotificationRepository) Register(ctx context.Context, token string, url string) error {
	stmt := `INSERT INTO notification_tokens (token, url, created_at) VALUES (?, ?, ?)
ON CONFLICT (token) DO UPDATE SET url = excluded.url`
	if _, err := r.dbs.ReadWrite.ExecContext(ctx, stmt, token, url, time.Now().UTC()); err != nil {
		return errors.Wrap(err, "insert notification token")
	}
	return nil
}

func (r *NotificationRepository) Unregister(ctx context.Context, token string) error {
	if _, err := r.dbs.ReadWrite.ExecContext(ctx, `DELETE FROM notification_tokens WHERE token = ?`, token); err != nil {
		return errors.Wrap(err, "delete notification token")
	}
	return nil
}

func (r *NotificationRepository) Tokens(ctx context.Context) ([]string, error) {
	var tokens []string
	if err := r.dbs.ReadOnly.SelectContext(ctx, &tokens,
		`SELECT token FROM notification_tokens ORDER BY created_at, token`); err != nil {
		return nil, errors.Wrap(err, "select notification tokens")
	}
	return tokens, nil
}
