package sqlite

import (
	"context"
	"io"
	"testing"

	"github.com/polluterofminds/parallax-server/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func TestDatabase_migrate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name              string
		schemaDefinitions []string
		testQueries       []string
		wantErr           bool
	}{
		{
			name:              "empty schema",
			schemaDefinitions: []string{""},
			testQueries:       []string{"SELECT * FROM sqlite_schema"},
			wantErr:           false,
		},
		{
			name:              "create table",
			schemaDefinitions: []string{"CREATE TABLE IF NOT EXISTS test (id INTEGER PRIMARY KEY, name TEXT)"},
			testQueries: []string{
				"INSERT INTO test (name) VALUES ('test')",
				"SELECT * FROM test",
			},
			wantErr: false,
		},
		{
			name: "add table keeps existing data",
			schemaDefinitions: []string{
				"CREATE TABLE IF NOT EXISTS test (id INTEGER PRIMARY KEY, name TEXT)",
				`CREATE TABLE IF NOT EXISTS test (id INTEGER PRIMARY KEY, name TEXT);
				 CREATE TABLE IF NOT EXISTS other (id INTEGER PRIMARY KEY)`,
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')", "INSERT INTO other (id) VALUES (1)"},
			wantErr:     false,
		},
		{
			name:              "invalid schema",
			schemaDefinitions: []string{"CREATE TABLE"},
			wantErr:           true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			db, err := NewDatabase(ctx, ":memory:", testhelpers.NewLogger(io.Discard))
			require.NoError(t, err)
			t.Cleanup(func() { require.NoError(t, db.Close()) })

			for _, schema := range tt.schemaDefinitions {
				err = db.migrate(ctx, schema)
				if tt.wantErr {
					require.Error(t, err)
					return
				}
				require.NoError(t, err)
			}
			for _, query := range tt.testQueries {
				_, err = db.ReadWrite.ExecContext(ctx, query)
				require.NoError(t, err, query)
			}
		})
	}
}

func TestNewDatabase_readOnlyConnection(t *testing.T) {
	ctx := context.Background()
	db, err := NewDatabase(ctx, ":memory:", testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })

	var count int
	require.NoError(t, db.ReadOnly.GetContext(ctx, &count, "SELECT COUNT(*) FROM episodes"))
	require.Zero(t, count)

	_, err = db.ReadOnly.ExecContext(ctx, "DELETE FROM episodes")
	require.Error(t, err, "read-only connection must reject writes")
}
