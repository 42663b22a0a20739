package repositories

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/polluterofminds/parallax-server/internal/artifacts"
	"github.com/polluterofminds/parallax-server/internal/errors"
	"github.com/polluterofminds/parallax-server/internal/sqlite"
)

// ArtifactRepository is the SQLite implementation of [artifacts.Store].
type ArtifactRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewArtifactRepository(dbs *sqlite.Database, logger *slog.Logger) *ArtifactRepository {
	return &ArtifactRepository{
		dbs:    dbs,
		logger: logger.With("source", "ArtifactRepository"),
	}
}

type artifactRow struct {
	ID         string    `db:"id"`
	CID        string    `db:"cid"`
	Name       string    `db:"name"`
	Visibility string    `db:"visibility"`
	Content    []byte    `db:"content"`
	CreatedAt  time.Time `db:"created_at"`
}

type tagRow struct {
	ArtifactID string `db:"artifact_id"`
	Key        string `db:"key"`
	Value      string `db:"value"`
}

func (r artifactRow) artifact(tags map[string]string) artifacts.Artifact {
	if tags == nil {
		tags = map[string]string{}
	}
	return artifacts.Artifact{
		ID:         r.ID,
		CID:        r.CID,
		Name:       r.Name,
		Visibility: artifacts.Visibility(r.Visibility),
		Tags:       tags,
		Content:    r.Content,
		CreatedAt:  r.CreatedAt,
	}
}

func (r *ArtifactRepository) Put(ctx context.Context, a artifacts.Artifact) (artifacts.Artifact, error) {
	a.ID = uuid.NewString()
	a.CID = artifacts.ContentID(a.Content)
	a.CreatedAt = time.Now().UTC()
	if a.Tags == nil {
		a.Tags = map[string]string{}
	}
	if a.Content == nil {
		a.Content = []byte{}
	}

	tx, err := r.dbs.ReadWrite.BeginTxx(ctx, nil)
	if err != nil {
		return artifacts.Artifact{}, errors.Wrap(err, "begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt := `INSERT INTO artifacts (id, cid, name, visibility, content, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	if _, err = tx.ExecContext(ctx, stmt, a.ID, a.CID, a.Name, string(a.Visibility), a.Content, a.CreatedAt); err != nil {
		return artifacts.Artifact{}, errors.Wrap(err, "insert artifact", slog.String("name", a.Name))
	}
	for k, v := range a.Tags {
		if _, err = tx.ExecContext(ctx, `INSERT INTO artifact_tags (artifact_id, key, value) VALUES (?, ?, ?)`,
			a.ID, k, v); err != nil {
			return artifacts.Artifact{}, errors.Wrap(err, "insert artifact tag", slog.String("key", k))
		}
	}
	if err = tx.Commit(); err != nil {
		return artifacts.Artifact{}, errors.Wrap(err, "commit artifact")
	}
	return a, nil
}

func (r *ArtifactRepository) Get(ctx context.Context, id string) (artifacts.Artifact, error) {
	var row artifactRow
	stmt := `SELECT id, cid, name, visibility, content, created_at FROM artifacts WHERE id = ?`
	if err := r.dbs.ReadOnly.GetContext(ctx, &row, stmt, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return artifacts.Artifact{}, errors.Wrap(artifacts.ErrNotFound, "get artifact", slog.String("id", id))
		}
		return artifacts.Artifact{}, errors.Wrap(err, "get artifact", slog.String("id", id))
	}
	tags, err := r.tags(ctx, []string{id})
	if err != nil {
		return artifacts.Artifact{}, err
	}
	return row.artifact(tags[id]), nil
}

func (r *ArtifactRepository) List(ctx context.Context, filter artifacts.Filter) ([]artifacts.Artifact, error) {
	var (
		conditions []string
		args       []any
		rows       []artifactRow
	)
	if filter.Visibility != "" {
		conditions = append(conditions, "a.visibility = ?")
		args = append(args, string(filter.Visibility))
	}
	for k, v := range filter.Tags {
		conditions = append(conditions, `EXISTS (SELECT 1 FROM artifact_tags t
			WHERE t.artifact_id = a.id AND t.key = ? AND t.value = ?)`)
		args = append(args, k, v)
	}
	stmt := `SELECT a.id, a.cid, a.name, a.visibility, a.content, a.created_at FROM artifacts a`
	if len(conditions) > 0 {
		stmt += " WHERE " + strings.Join(conditions, " AND ")
	}
	stmt += " ORDER BY a.created_at DESC, a.rowid DESC"

	if err := r.dbs.ReadOnly.SelectContext(ctx, &rows, stmt, args...); err != nil {
		return nil, errors.Wrap(err, "list artifacts")
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	tags, err := r.tags(ctx, ids)
	if err != nil {
		return nil, err
	}
	result := make([]artifacts.Artifact, len(rows))
	for i, row := range rows {
		result[i] = row.artifact(tags[row.ID])
	}
	return result, nil
}

func (r *ArtifactRepository) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	stmt, args, err := sqlx.In(`DELETE FROM artifacts WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "build delete statement")
	}
	if _, err = r.dbs.ReadWrite.ExecContext(ctx, r.dbs.ReadWrite.Rebind(stmt), args...); err != nil {
		return errors.Wrap(err, "delete artifacts", slog.Int("count", len(ids)))
	}
	return nil
}

func (r *ArtifactRepository) tags(ctx context.Context, ids []string) (map[string]map[string]string, error) {
	var rows []tagRow
	stmt, args, err := sqlx.In(`SELECT artifact_id, key, value FROM artifact_tags WHERE artifact_id IN (?)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "build tag query")
	}
	if err = r.dbs.ReadOnly.SelectContext(ctx, &rows, r.dbs.ReadOnly.Rebind(stmt), args...); err != nil {
		return nil, errors.Wrap(err, "select artifact tags")
	}
	result := make(map[string]map[string]string, len(ids))
	for _, row := range rows {
		if result[row.ArtifactID] == nil {
			result[row.ArtifactID] = map[string]string{}
		}
		result[row.ArtifactID][row.Key] = row.Value
	}
	return result, nil
}
