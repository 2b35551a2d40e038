package bridge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightfunnel/disposition/internal/bridge"
	"github.com/brightfunnel/disposition/internal/domain"
	"github.com/brightfunnel/disposition/internal/store"
)

func TestMapJobRow_MergesTitleSourcesAndDedups(t *testing.T) {
	job := &store.BridgeJob{
		ID:                 "job-1",
		ClientID:           "client1",
		SuggestionID:       "sugg-9",
		Volume:             250,
		Channel:            "EMAIL",
		EnableExternal:     true,
		MaxExternalCredits: 50,
		SearchCriteriaJSON: []byte(`{
			"title_keywords": ["VP Sales", "CRO"],
			"persona_titles": ["VP Sales", "Head of Growth"],
			"search_keywords": "expansion",
			"signals": ["hiring_sdrs", {"name": "funding_round"}],
			"industry": "SaaS"
		}`),
	}

	req, err := bridge.MapJobRow(job)
	require.NoError(t, err)

	assert.Equal(t, "sugg-9", req.CampaignID)
	assert.Equal(t, "client1", req.ClientID)
	assert.Equal(t, domain.ChannelEmail, req.Channel)
	assert.Equal(t, 250, req.Volume)
	assert.Equal(t, []string{"VP Sales", "CRO", "Head of Growth"}, req.TitleKeywords)
	assert.Equal(t, []string{"expansion", "hiring_sdrs", "funding_round"}, req.SearchKeywords)
	assert.Equal(t, "SaaS", req.Industry)
	assert.Equal(t, 50.0, req.MaxExternalCredits)
}

func TestMapJobRow_DefaultsWhenFieldsMissing(t *testing.T) {
	job := &store.BridgeJob{
		ID:       "job-2",
		ClientID: "client1",
	}

	req, err := bridge.MapJobRow(job)
	require.NoError(t, err)

	assert.Equal(t, "job-2", req.CampaignID)
	assert.Equal(t, domain.ChannelEmail, req.Channel)
	assert.Equal(t, 500, req.Volume)
	assert.Equal(t, 100.0, req.MaxExternalCredits)
	assert.Empty(t, req.TitleKeywords)
}

func TestMapJobRow_InvalidChannelFallsBackToEmail(t *testing.T) {
	job := &store.BridgeJob{
		ID:       "job-3",
		ClientID: "client1",
		Channel:  "carrier_pigeon",
	}

	req, err := bridge.MapJobRow(job)
	require.NoError(t, err)
	assert.Equal(t, domain.ChannelEmail, req.Channel)
}
