package tam_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightfunnel/disposition/internal/config"
	"github.com/brightfunnel/disposition/internal/domain"
	"github.com/brightfunnel/disposition/internal/store/memory"
	"github.com/brightfunnel/disposition/internal/tam"
)

func hotConfig() config.HotConfig {
	return config.HotConfig{TAMWarningWeeks: 8, TAMCriticalWeeks: 2}
}

func seed(s *memory.Store, n int, status domain.DispositionStatus) {
	for i := 0; i < n; i++ {
		s.Seed(&domain.Contact{
			Email:             string(rune('a'+i)) + "@co.com",
			ClientID:          "client1",
			CompanyDomain:     "co.com",
			DispositionStatus: status,
			Channels:          map[domain.Channel]*domain.ChannelFields{},
		})
	}
}

func TestGetHealth_NoBurnRateHasNoETA(t *testing.T) {
	s := memory.New()
	seed(s, 5, domain.StatusFresh)

	tr := tam.New(s, hotConfig)
	h, err := tr.GetHealth(context.Background(), "client1")
	require.NoError(t, err)
	assert.Equal(t, 5, h.TotalUniverse)
	assert.Nil(t, h.ExhaustionETAWeeks)
	assert.Equal(t, tam.HealthHealthy, h.HealthStatus)
}

func TestCaptureSnapshot_PersistsRow(t *testing.T) {
	s := memory.New()
	seed(s, 3, domain.StatusFresh)

	tr := tam.New(s, hotConfig)
	_, err := tr.CaptureSnapshot(context.Background(), "client1")
	require.NoError(t, err)

	trends, err := tr.GetTrends(context.Background(), "client1", 10)
	require.NoError(t, err)
	require.Len(t, trends, 1)
	assert.Equal(t, 3, trends[0].TotalUniverse)
}

func TestCaptureAllSnapshots_CoversGlobalAndEachClient(t *testing.T) {
	s := memory.New()
	s.Seed(&domain.Contact{Email: "a@co.com", ClientID: "client1", CompanyDomain: "co.com", DispositionStatus: domain.StatusFresh, Channels: map[domain.Channel]*domain.ChannelFields{}})
	s.Seed(&domain.Contact{Email: "b@co.com", ClientID: "client2", CompanyDomain: "co.com", DispositionStatus: domain.StatusFresh, Channels: map[domain.Channel]*domain.ChannelFields{}})

	tr := tam.New(s, hotConfig)
	results, err := tr.CaptureAllSnapshots(context.Background())
	require.NoError(t, err)

	assert.Contains(t, results, "")
	assert.Contains(t, results, "client1")
	assert.Contains(t, results, "client2")
	assert.Equal(t, 1, results["client1"].TotalUniverse)
}
