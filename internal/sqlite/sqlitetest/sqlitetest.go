// Package sqlitetest provides an isolated in-memory database for tests.
package sqlitetest

import (
	"context"
	"io"
	"testing"

	"github.com/polluterofminds/parallax-server/internal/sqlite"
	"github.com/polluterofminds/parallax-server/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

// New returns a fresh migrated in-memory database closed on test cleanup.
func New(t *testing.T) *sqlite.Database {
	t.Helper()
	dbs, err := sqlite.NewDatabase(context.Background(), ":memory:", testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, dbs.Close())
	})
	return dbs
}
