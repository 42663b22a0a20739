package mongostore_test

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/polluterofminds/parallax-server/internal/artifacts"
	"github.com/polluterofminds/parallax-server/internal/artifacts/mongostore"
	"github.com/polluterofminds/parallax-server/internal/random"
	"github.com/polluterofminds/parallax-server/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newStore connects to the server in PARALLAX_TEST_MONGODB_URI using a throwaway database.
func newStore(t *testing.T) *mongostore.Store {
	t.Helper()
	uri := os.Getenv("PARALLAX_TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("PARALLAX_TEST_MONGODB_URI not set")
	}
	name, err := random.Letters(12) //nolint:mnd // database name length
	require.NoError(t, err)
	ctx := context.Background()
	store, err := mongostore.Connect(ctx, uri, "parallax_test_"+name, testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close(ctx))
	})
	return store
}

func TestStore(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	teaser, err := store.Put(ctx, artifacts.Artifact{
		Name:       "teaser",
		Visibility: artifacts.Public,
		Tags:       artifacts.CaseTags(artifacts.KindTeaser, 4),
		Content:    []byte("A body was found."),
	})
	require.NoError(t, err)
	_, err = store.Put(ctx, artifacts.Artifact{
		Name:       "solution",
		Visibility: artifacts.Private,
		Tags:       artifacts.CaseTags(artifacts.KindSolution, 4),
		Content:    []byte(`{}`),
	})
	require.NoError(t, err)

	got, err := store.Get(ctx, teaser.ID)
	require.NoError(t, err)
	assert.Equal(t, teaser.CID, got.CID)
	assert.Equal(t, "4", got.Tags[artifacts.TagCaseNumber])

	public, err := store.List(ctx, artifacts.Filter{Visibility: artifacts.Public})
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, teaser.ID, public[0].ID)

	require.NoError(t, store.Delete(ctx, teaser.ID))
	_, err = store.Get(ctx, teaser.ID)
	require.ErrorIs(t, err, artifacts.ErrNotFound)
}
