package waterfall_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightfunnel/disposition/internal/config"
	"github.com/brightfunnel/disposition/internal/dedupecache"
	"github.com/brightfunnel/disposition/internal/domain"
	"github.com/brightfunnel/disposition/internal/fillengine"
	"github.com/brightfunnel/disposition/internal/providers"
	"github.com/brightfunnel/disposition/internal/statemachine"
	"github.com/brightfunnel/disposition/internal/store/memory"
	"github.com/brightfunnel/disposition/internal/waterfall"
)

func hotConfig() config.HotConfig {
	return config.HotConfig{
		FreshRetouchRatio:       1.0,
		MaxContactsPerCompany:   10,
		OwnershipDurationMonths: 12,
	}
}

func TestFill_SatisfiedInternallySkipsExternal(t *testing.T) {
	s := memory.New()
	s.SeedCompany(&domain.Company{Domain: "acme.com", Status: domain.CompanyFresh})
	s.Seed(&domain.Contact{
		Email:             "a@acme.com",
		ClientID:          "client1",
		CompanyDomain:     "acme.com",
		DispositionStatus: domain.StatusFresh,
		Channels:          map[domain.Channel]*domain.ChannelFields{},
	})

	sm := statemachine.New(s, hotConfig)
	fe := fillengine.New(s, sm, hotConfig)
	e := waterfall.New(s, fe, func() []providers.AdapterConfig { return nil }, func() []string { return nil })

	result, err := e.Fill(context.Background(), waterfall.Request{
		CampaignID:     "camp-1",
		ClientID:       "client1",
		Volume:         1,
		Channel:        domain.ChannelEmail,
		EnableExternal: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalAssigned)
	assert.Equal(t, 0, result.ExternalFilled)
	assert.Empty(t, result.PerProviderCounts["ai_ark"])
}

func TestFill_CascadesToExternalOnShortfallAndWritesBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"email": "new@widgets.com", "first_name": "New", "company_domain": "widgets.com", "title": "CTO"},
			},
			"total": 1,
		})
	}))
	defer srv.Close()

	s := memory.New()
	sm := statemachine.New(s, hotConfig)
	fe := fillengine.New(s, sm, hotConfig)

	adapterCfgs := func() []providers.AdapterConfig {
		return []providers.AdapterConfig{{Name: "ai_ark", Endpoint: srv.URL, APIKey: "secret", Priority: 1}}
	}
	e := waterfall.New(s, fe, adapterCfgs, func() []string { return []string{"ai_ark"} })

	result, err := e.Fill(context.Background(), waterfall.Request{
		CampaignID:         "camp-1",
		ClientID:           "client1",
		Volume:             1,
		Channel:            domain.ChannelEmail,
		EnableExternal:     true,
		MaxExternalCredits: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.InternalFilled)
	assert.Equal(t, 1, result.WriteBackCount)
	assert.Equal(t, 1, result.ExternalFilled)
	assert.Equal(t, 1, result.TotalAssigned)

	got, err := s.GetContact(context.Background(), "new@widgets.com", "client1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInSequence, got.DispositionStatus)
}

func TestFill_ExternalDisabledLeavesShortfall(t *testing.T) {
	s := memory.New()
	sm := statemachine.New(s, hotConfig)
	fe := fillengine.New(s, sm, hotConfig)
	e := waterfall.New(s, fe, func() []providers.AdapterConfig { return nil }, func() []string { return nil })

	result, err := e.Fill(context.Background(), waterfall.Request{
		CampaignID:     "camp-1",
		ClientID:       "client1",
		Volume:         5,
		Channel:        domain.ChannelEmail,
		EnableExternal: false,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalAssigned)
	assert.Equal(t, 0, result.ExternalFilled)
}

func TestFill_DedupeCacheSkipsAlreadyWrittenBackLead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"email": "seen@widgets.com", "company_domain": "widgets.com"},
			},
			"total": 1,
		})
	}))
	defer srv.Close()

	mr := miniredis.RunT(t)
	cache := dedupecache.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour)
	require.NoError(t, cache.Mark(context.Background(), "seen@widgets.com", "client1"))

	s := memory.New()
	sm := statemachine.New(s, hotConfig)
	fe := fillengine.New(s, sm, hotConfig)

	adapterCfgs := func() []providers.AdapterConfig {
		return []providers.AdapterConfig{{Name: "ai_ark", Endpoint: srv.URL, APIKey: "secret", Priority: 1}}
	}
	e := waterfall.New(s, fe, adapterCfgs, func() []string { return []string{"ai_ark"} }).WithDedupeCache(cache)

	result, err := e.Fill(context.Background(), waterfall.Request{
		CampaignID:         "camp-1",
		ClientID:           "client1",
		Volume:             1,
		Channel:            domain.ChannelEmail,
		EnableExternal:     true,
		MaxExternalCredits: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.WriteBackCount)
	assert.Equal(t, 0, result.TotalAssigned)

	_, err = s.GetContact(context.Background(), "seen@widgets.com", "client1")
	assert.Error(t, err)
}
