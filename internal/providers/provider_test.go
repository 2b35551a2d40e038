package providers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightfunnel/disposition/internal/providers"
)

func TestNew_UnknownNameReturnsFalse(t *testing.T) {
	_, ok := providers.New(providers.AdapterConfig{Name: "nonexistent"})
	assert.False(t, ok)
}

func TestAIArk_SearchLeadsParsesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/people/search", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"email": "jane@acme.com", "first_name": "Jane", "company_domain": "acme.com", "title": "VP Sales"},
			},
			"total": 1,
		})
	}))
	defer srv.Close()

	adapter, ok := providers.New(providers.AdapterConfig{Name: "ai_ark", Endpoint: srv.URL, APIKey: "secret"})
	require.True(t, ok)
	assert.Equal(t, "ai_ark", adapter.Name())
	assert.Equal(t, 1, adapter.Priority())

	result, err := adapter.SearchLeads(context.Background(), providers.SearchCriteria{Limit: 10})
	require.NoError(t, err)
	require.Len(t, result.Leads, 1)
	assert.Equal(t, "jane@acme.com", result.Leads[0].Email)
	assert.Equal(t, 1.0, result.CreditsConsumed)
}

func TestAIArk_MissingAPIKeyReturnsError(t *testing.T) {
	adapter, ok := providers.New(providers.AdapterConfig{Name: "ai_ark", Endpoint: "http://unused"})
	require.True(t, ok)

	result, err := adapter.SearchLeads(context.Background(), providers.SearchCriteria{})
	require.NoError(t, err)
	assert.Empty(t, result.Leads)
	require.Len(t, result.Errors, 1)
}

func TestClay_MissingWebhookReturnsError(t *testing.T) {
	adapter, ok := providers.New(providers.AdapterConfig{Name: "clay"})
	require.True(t, ok)

	healthy, err := adapter.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.False(t, healthy)

	result, err := adapter.SearchLeads(context.Background(), providers.SearchCriteria{})
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
}

func TestClay_ParsesImmediateRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"rows": []map[string]any{
				{"email": "bob@widgets.com", "company": "Widgets Inc", "domain": "widgets.com"},
			},
		})
	}))
	defer srv.Close()

	adapter, ok := providers.New(providers.AdapterConfig{Name: "clay", Endpoint: srv.URL})
	require.True(t, ok)

	result, err := adapter.SearchLeads(context.Background(), providers.SearchCriteria{Limit: 5})
	require.NoError(t, err)
	require.Len(t, result.Leads, 1)
	assert.Equal(t, "bob@widgets.com", result.Leads[0].Email)
	assert.Equal(t, 2.0, result.CreditsConsumed)
}

func TestJina_ExtractsEmailsFromScrapedPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# Team\n\njohn.doe@example.com is our VP of Sales.\ninfo@example.com for general inquiries."))
	}))
	defer srv.Close()

	adapter, ok := providers.New(providers.AdapterConfig{Name: "jina", Endpoint: srv.URL})
	require.True(t, ok)
	assert.Equal(t, 3, adapter.Priority())

	result, err := adapter.SearchLeads(context.Background(), providers.SearchCriteria{
		CompanyDomains: []string{"example.com"},
		Limit:          10,
	})
	require.NoError(t, err)
	require.Len(t, result.Leads, 1)
	assert.Equal(t, "john.doe@example.com", result.Leads[0].Email)
	assert.Equal(t, "John", result.Leads[0].FirstName)
	assert.Equal(t, "Doe", result.Leads[0].LastName)
}

func TestSpider_MissingAPIKeyReturnsError(t *testing.T) {
	adapter, ok := providers.New(providers.AdapterConfig{Name: "spider"})
	require.True(t, ok)

	result, err := adapter.SearchLeads(context.Background(), providers.SearchCriteria{CompanyDomains: []string{"acme.com"}})
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
}

func TestSpider_RequiresCompanyDomains(t *testing.T) {
	adapter, ok := providers.New(providers.AdapterConfig{Name: "spider", APIKey: "secret"})
	require.True(t, ok)

	result, err := adapter.SearchLeads(context.Background(), providers.SearchCriteria{})
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
}

func TestSpider_ExtractsEmailsFromRelevantPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"url": "https://acme.com/team", "content": "Alice Smith alice.smith@acme.com leads engineering."},
				{"url": "https://acme.com/pricing", "content": "support@acme.com for billing."},
			},
		})
	}))
	defer srv.Close()

	adapter, ok := providers.New(providers.AdapterConfig{Name: "spider", Endpoint: srv.URL, APIKey: "secret"})
	require.True(t, ok)
	assert.Equal(t, 4, adapter.Priority())

	result, err := adapter.SearchLeads(context.Background(), providers.SearchCriteria{CompanyDomains: []string{"acme.com"}, Limit: 5})
	require.NoError(t, err)
	require.Len(t, result.Leads, 1)
	assert.Equal(t, "alice.smith@acme.com", result.Leads[0].Email)
}
