package repositories

import (
	"context"
	"log/slog"
	"time"

	"github.com/polluterofminds/parallax-server/internal/errors"
	"github.com/polluterofminds/parallax-server/internal/models"
	"github.com/polluterofminds/parallax-server/internal/sqlite"
)

// ConversationRepository keeps what each player said to each character of a case, and what they answered.
type ConversationRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewConversationRepository(dbs *sqlite.Database, logger *slog.Logger) *ConversationRepository {
	return &ConversationRepository{
		dbs:    dbs,
		logger: logger.With("source", "ConversationRepository"),
	}
}

// History returns the last limit messages of a conversation, oldest first. A limit of zero returns all of them.
func (r *ConversationRepository) History(
	ctx context.Context,
	caseNumber int64,
	playerID string,
	characterID string,
	limit int,
) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = -1
	}
	stmt := `SELECT role, content
FROM (SELECT id, role, content
      FROM conversation_messages
      WHERE case_number = ? AND player_id = ? AND character_id = ?
      ORDER BY id DESC
      LIMIT ?)
ORDER BY id`
	var messages []models.ChatMessage
	if err := r.dbs.ReadOnly.SelectContext(ctx, &messages, stmt, caseNumber, playerID, characterID, limit); err != nil {
		return nil, errors.Wrap(err, "select conversation",
			slog.Int64("case_number", caseNumber), slog.String("character_id", characterID))
	}
	return messages, nil
}

// Append adds messages to the end of a conversation in one transaction.
func (r *ConversationRepository) Append(
	ctx context.Context,
	caseNumber int64,
	playerID string,
	characterID string,
	messages ...models.ChatMessage,
) error {
	tx, err := r.dbs.ReadWrite.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	stmt := `INSERT INTO conversation_messages (case_number, player_id, character_id, role, content, created_at)
VALUES (?, ?, ?, ?, ?, ?)`
	for _, m := range messages {
		if _, err = tx.ExecContext(ctx, stmt, caseNumber, playerID, characterID, m.Role, m.Content, now); err != nil {
			return errors.Wrap(err, "insert conversation message", slog.String("role", string(m.Role)))
		}
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit conversation")
	}
	return nil
}
