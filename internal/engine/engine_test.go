package engine_test

import (
	"context"
	"io"
	"testing"

	"github.com/polluterofminds/parallax-server/internal/ai/aitest"
	"github.com/polluterofminds/parallax-server/internal/casegen"
	"github.com/polluterofminds/parallax-server/internal/config"
	"github.com/polluterofminds/parallax-server/internal/engine"
	"github.com/polluterofminds/parallax-server/internal/random"
	"github.com/polluterofminds/parallax-server/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg, err := config.Load(map[string]string{"PARALLAX_SQLITE_URL": ":memory:"})
	require.NoError(t, err)

	e, err := engine.New(ctx, cfg, testhelpers.NewLogger(io.Discard),
		engine.WithGenerator(aitest.Fixed("unused")), engine.WithRandom(random.NewSeeded(7)))
	require.NoError(t, err)

	_, err = e.Reader.CurrentCase(ctx)
	require.ErrorIs(t, err, casegen.ErrNoActiveCase)
	assert.Equal(t, 10, e.Orchestrator.Settings.CharacterCount)

	require.NoError(t, e.Close(ctx))
	require.NoError(t, e.Close(ctx), "closing twice is a no-op")
}

func TestNew_configuredProvider(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg, err := config.Load(map[string]string{
		"PARALLAX_SQLITE_URL": ":memory:",
		"OPENAI_API_KEY":      "sk-test",
	})
	require.NoError(t, err)

	e, err := engine.New(ctx, cfg, testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, e.Close(ctx))
	})
	assert.NotNil(t, e.Orchestrator.Gen)
}
