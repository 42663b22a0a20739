package casecmd_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/polluterofminds/parallax-server/cmd/cli/casecmd"
	"github.com/polluterofminds/parallax-server/internal/ai/aitest"
	"github.com/polluterofminds/parallax-server/internal/artifacts"
	"github.com/polluterofminds/parallax-server/internal/casegen"
	"github.com/polluterofminds/parallax-server/internal/engine"
	"github.com/polluterofminds/parallax-server/internal/random"
	"github.com/polluterofminds/parallax-server/internal/scoring"
	"github.com/polluterofminds/parallax-server/internal/testhelpers"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func respond(_ int, call aitest.Call) (string, error) {
	switch {
	case strings.Contains(call.System, "murder mystery game designer"):
		return "Lena Ortiz pushed Victor Hale off the pier over a gambling debt.", nil
	case strings.Contains(call.System, "police bulletin"):
		return "Victor Hale was found in the harbour.", nil
	case strings.Contains(call.System, "Good response"):
		return `{"victims": ["Victor Hale"], "criminal": "Lena Ortiz", "motive": "gambling debt"}`, nil
	case strings.Contains(call.System, "must name"):
		return "You saw Lena Ortiz on the pier that night.", nil
	case strings.Contains(call.System, "Never break character"):
		return "I only heard a splash.", nil
	default:
		return "You remember fog over the water.", nil
	}
}

type cli struct {
	commands *casecmd.Commands
}

func newCLI(t *testing.T) cli {
	t.Helper()
	environ := map[string]string{
		"PARALLAX_SQLITE_URL":              filepath.Join(t.TempDir(), "cli.sqlite"),
		"PARALLAX_CHARACTER_COUNT":         "3",
		"PARALLAX_ROSTER_REQUEST_INTERVAL": "0s",
	}
	return cli{commands: casecmd.New(testhelpers.NewLogger(io.Discard), environ,
		engine.WithGenerator(aitest.New(respond)), engine.WithRandom(random.NewSeeded(5)))}
}

func (c cli) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := &cobra.Command{Use: "parallax-cli", SilenceUsage: true, SilenceErrors: true}
	c.commands.Register(root)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommands(t *testing.T) {
	t.Parallel()
	c := newCLI(t)

	_, err := c.run(t, "case-file")
	require.ErrorIs(t, err, casegen.ErrNoActiveCase)

	out, err := c.run(t, "new-case")
	require.NoError(t, err)
	assert.Contains(t, out, "Case 1 published, reference ipfs://sha256-")

	out, err = c.run(t, "case-file")
	require.NoError(t, err)
	var file casegen.CaseFile
	require.NoError(t, json.Unmarshal([]byte(out), &file))
	assert.Equal(t, "Victor Hale was found in the harbour.", file.Teaser)
	require.Len(t, file.Characters, 3)

	out, err = c.run(t, "score", "--criminal", "lena ortiz", "--victims", "Victor Hale", "--motive", "Gambling debt")
	require.NoError(t, err)
	var verdict scoring.Verdict
	require.NoError(t, json.Unmarshal([]byte(out), &verdict))
	assert.Equal(t, scoring.StatusSolved, verdict.Status)
	assert.False(t, verdict.UsedJudge)

	_, err = c.run(t, "score", "--criminal", "lena ortiz")
	require.Error(t, err, "victims and motive are required")

	out, err = c.run(t, "interrogate", file.Characters[0].ID, "What", "did", "you", "hear?")
	require.NoError(t, err)
	assert.Equal(t, "I only heard a splash.\n", out)
	out, err = c.run(t, "interrogate", "--player", "0xdetective", file.Characters[0].ID, "Anything", "else?")
	require.NoError(t, err)
	assert.Equal(t, "I only heard a splash.\n", out)

	_, err = c.run(t, "interrogate", "nobody", "Hello?")
	require.ErrorIs(t, err, casegen.ErrUnknownCharacter)

	_, err = c.run(t, "teardown")
	require.NoError(t, err)
	_, err = c.run(t, "case-file")
	require.ErrorIs(t, err, artifacts.ErrNotFound, "episodes outlive teardown but the artifacts are gone")
}
