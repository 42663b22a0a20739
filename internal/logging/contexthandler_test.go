package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/polluterofminds/parallax-server/internal/logging"
	"github.com/stretchr/testify/require"
)

func TestContextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&buf, slog.LevelDebug, false).With("source", "test")

	ctx := logging.WithAttrs(context.Background(), slog.Int64("case_number", 7))
	ctx = logging.WithAttrs(ctx, slog.String("stage", "RosterReady"))
	logger.InfoContext(ctx, "generated roster")

	out := buf.String()
	require.Contains(t, out, "source=test")
	require.Contains(t, out, "case_number=7")
	require.Contains(t, out, "stage=RosterReady")
}

func TestWithAttrs_siblingsDoNotShareAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&buf, slog.LevelDebug, false)

	parent := logging.WithAttrs(context.Background(), slog.String("a", "1"))
	left := logging.WithAttrs(parent, slog.String("b", "left"))
	_ = logging.WithAttrs(parent, slog.String("b", "right"))

	logger.InfoContext(left, "msg")
	require.Contains(t, buf.String(), "b=left")
	require.NotContains(t, buf.String(), "b=right")
}
