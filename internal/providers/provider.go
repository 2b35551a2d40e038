// Package providers defines the external lead-source adapter contract
// and a registry of concrete HTTP-based implementations. The search
// requests of ai_ark and spider, and clay's initial request, go through
// a circuit breaker and a retry policy (httpBase.do); jina's requests,
// clay's result polling, and the health checks call the HTTP client
// directly. Grounded on
// original_source/src/lead_disposition/providers/base.py.
package providers

import (
	"context"

	"github.com/brightfunnel/disposition/internal/domain"
)

// SearchCriteria is the bound-parameter set passed to every adapter.
type SearchCriteria struct {
	ClientID       string
	Industry       string
	JobTitles      []string
	CompanySizes   []string
	Locations      []string
	Keywords       []string
	CompanyDomains []string
	Limit          int
}

// Result is what an adapter returns for one SearchLeads call. Errors
// are collected rather than returned as a Go error: a partial result
// (some leads, some errors) is common and the waterfall still wants
// the leads.
type Result struct {
	Leads           []domain.Lead
	TotalFound      int
	CreditsConsumed float64
	Errors          []string
}

// Adapter is the contract every external lead provider satisfies.
type Adapter interface {
	Name() string
	Priority() int
	SearchLeads(ctx context.Context, criteria SearchCriteria) (Result, error)
	HealthCheck(ctx context.Context) (bool, error)
}

// Factory constructs an Adapter from its config block.
type Factory func(cfg AdapterConfig) Adapter

// AdapterConfig mirrors config.ProviderConfig without importing the
// config package, keeping providers free of a dependency on the
// bootstrap config shape.
type AdapterConfig struct {
	Name           string
	Endpoint       string
	APIKey         string
	TimeoutSeconds int
	Priority       int
}

var registry = map[string]Factory{}

// Register adds a named adapter factory, mirroring the registry
// pattern used for store backends (internal/store/factory).
func Register(name string, f Factory) {
	registry[name] = f
}

// New constructs the adapter named by cfg.Name.
func New(cfg AdapterConfig) (Adapter, bool) {
	f, ok := registry[cfg.Name]
	if !ok {
		return nil, false
	}
	return f(cfg), true
}

func init() {
	Register("ai_ark", newAIArk)
	Register("clay", newClay)
	Register("jina", newJina)
	Register("spider", newSpider)
}
