package obs_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightfunnel/disposition/internal/obs"
)

func TestSetup_DefaultsServiceNameAndStdoutExporters(t *testing.T) {
	providers, err := obs.Setup(context.Background(), obs.Config{})
	require.NoError(t, err)
	require.NotNil(t, providers)

	t.Cleanup(func() {
		_ = providers.ShutdownTrace(context.Background())
		_ = providers.ShutdownMetric(context.Background())
	})

	assert.NotNil(t, providers.ShutdownTrace)
	assert.NotNil(t, providers.ShutdownMetric)
}

func TestSetup_NamedServiceStillSucceeds(t *testing.T) {
	providers, err := obs.Setup(context.Background(), obs.Config{ServiceName: "disposition-test"})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = providers.ShutdownTrace(context.Background())
		_ = providers.ShutdownMetric(context.Background())
	})
}

func TestTracerAndMeter_AreUsable(t *testing.T) {
	ctx, span := obs.Tracer.Start(context.Background(), "test-span")
	defer span.End()
	assert.NotNil(t, ctx)

	counter, err := obs.Meter.Int64Counter("disposition.obs_test.counter")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)
}
