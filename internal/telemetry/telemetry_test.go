package telemetry_test

import (
	"context"
	"testing"

	"github.com/polluterofminds/parallax-server/internal/telemetry"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetup_disabled(t *testing.T) {
	before := otel.GetTracerProvider()
	shutdown, err := telemetry.Setup(context.Background(), "parallax-test", "")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
	require.Equal(t, before, otel.GetTracerProvider())
}

func TestSetup_enabled(t *testing.T) {
	shutdown, err := telemetry.Setup(context.Background(), "parallax-test", "http://127.0.0.1:4318")
	require.NoError(t, err)
	_, span := otel.Tracer("test").Start(context.Background(), "noop")
	span.End()

	// Nothing listens on the endpoint, so flushing may fail; shutdown must still return.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}
