// Package waterfall cascades a campaign fill through the internal
// database first, then through external lead providers in priority
// order until volume is met or the credit budget runs out, writing
// any newly discovered leads back as FRESH contacts and re-running the
// internal fill against them. Grounded on
// original_source/src/lead_disposition/waterfall/engine.py and
// writeback.py.
package waterfall

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/brightfunnel/disposition/internal/dedupecache"
	"github.com/brightfunnel/disposition/internal/domain"
	"github.com/brightfunnel/disposition/internal/fillengine"
	"github.com/brightfunnel/disposition/internal/obs"
	"github.com/brightfunnel/disposition/internal/providers"
	"github.com/brightfunnel/disposition/internal/store"
)

var (
	externalLeadsCounter = mustInt64Counter(
		"disposition.waterfall.external_leads_found",
		"Number of leads returned by external providers during a waterfall cascade.",
	)
	creditsConsumedCounter = mustFloat64Counter(
		"disposition.waterfall.credits_consumed",
		"Provider credits consumed during a waterfall cascade.",
	)
)

func mustInt64Counter(name, desc string) metric.Int64Counter {
	c, err := obs.Meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		panic(err)
	}
	return c
}

func mustFloat64Counter(name, desc string) metric.Float64Counter {
	c, err := obs.Meter.Float64Counter(name, metric.WithDescription(desc))
	if err != nil {
		panic(err)
	}
	return c
}

// Request extends a plain fill request with waterfall-specific options
// (spec §4.7).
type Request struct {
	CampaignID    string
	ClientID      string
	Channel       domain.Channel
	Volume        int
	TitleKeywords []string
	FreshRatio    *float64
	MaxPerCompany int

	EnableExternal     bool
	MaxExternalCredits float64
	ProvidersOverride  []string

	Industry       string
	CompanySizes   []string
	Locations      []string
	SearchKeywords []string
	CompanyDomains []string
}

// Result is the waterfall-extended fill outcome (spec §4.7).
type Result struct {
	CampaignID       string
	ClientID         string
	TotalRequested   int
	TotalAssigned    int
	FreshCount       int
	RetouchCount     int
	CompaniesTouched int
	Contacts         []*domain.Contact
	Warnings         []string

	InternalFilled     int
	ExternalFilled     int
	PerProviderCounts  map[string]int
	CreditsConsumed    map[string]float64
	WriteBackCount     int
	WriteBackDuplicates int
	WriteBackInvalid    int
}

// ProviderOrder resolves which adapters run, and in what order, for a
// waterfall call (spec §4.7 step 3 / the source's provider_order
// setting and providers_override parameter).
type ProviderOrder func() []string

// Engine orchestrates the cascade. It owns no provider instances
// directly; adapters are resolved from the providers registry by name
// each call, so a config hot-reload picks up new credentials without
// restarting the engine.
type Engine struct {
	store         store.Store
	fill          *fillengine.Engine
	adapterCfgs   func() []providers.AdapterConfig
	providerOrder ProviderOrder
	dedupe        *dedupecache.Cache
}

// New builds an Engine. adapterCfgs supplies the live (possibly
// hot-reloaded) per-provider credentials; providerOrder supplies the
// configured cascade order when a request doesn't override it.
func New(s store.Store, fill *fillengine.Engine, adapterCfgs func() []providers.AdapterConfig, order ProviderOrder) *Engine {
	return &Engine{store: s, fill: fill, adapterCfgs: adapterCfgs, providerOrder: order}
}

// WithDedupeCache attaches a dedupe lookaside so write-back skips
// leads already written back for the same client within the cache's
// TTL window, even if an async provider (Clay) resends them across
// separate waterfall calls. Returns e for chaining.
func (e *Engine) WithDedupeCache(c *dedupecache.Cache) *Engine {
	e.dedupe = c
	return e
}

// Fill executes the full waterfall: internal fill, then external
// cascade on shortfall, then write-back and refill.
func (e *Engine) Fill(ctx context.Context, req Request) (*Result, error) {
	ctx, span := obs.Tracer.Start(ctx, "waterfall.Fill",
		trace.WithAttributes(
			attribute.String("campaign_id", req.CampaignID),
			attribute.String("client_id", req.ClientID),
			attribute.Int("volume", req.Volume),
			attribute.Bool("enable_external", req.EnableExternal),
		))
	defer span.End()

	result := &Result{
		CampaignID:        req.CampaignID,
		ClientID:          req.ClientID,
		TotalRequested:    req.Volume,
		PerProviderCounts: map[string]int{},
		CreditsConsumed:   map[string]float64{},
	}

	internal, err := e.fill.Fill(ctx, fillengine.Request{
		CampaignID:    req.CampaignID,
		ClientID:      req.ClientID,
		Volume:        req.Volume,
		Channel:       req.Channel,
		TitleKeywords: req.TitleKeywords,
		FreshRatio:    req.FreshRatio,
		MaxPerCompany: req.MaxPerCompany,
	})
	if err != nil {
		return nil, fmt.Errorf("internal fill: %w", err)
	}

	result.InternalFilled = internal.TotalAssigned
	result.TotalAssigned = internal.TotalAssigned
	result.FreshCount = internal.FreshCount
	result.RetouchCount = internal.RetouchCount
	result.CompaniesTouched = internal.CompaniesTouched
	result.Contacts = append(result.Contacts, internal.Contacts...)
	result.Warnings = append(result.Warnings, internal.Warnings...)
	result.PerProviderCounts["internal"] = internal.TotalAssigned

	deficit := req.Volume - result.TotalAssigned
	if deficit <= 0 || !req.EnableExternal {
		return result, nil
	}

	active := e.activeAdapters(req.ProvidersOverride)
	criteria := providers.SearchCriteria{
		ClientID:       req.ClientID,
		Industry:       req.Industry,
		JobTitles:      req.TitleKeywords,
		CompanySizes:   req.CompanySizes,
		Locations:      req.Locations,
		Keywords:       req.SearchKeywords,
		CompanyDomains: req.CompanyDomains,
	}

	var externalLeads []domain.Lead
	totalCredits := 0.0
	maxCredits := req.MaxExternalCredits
	if maxCredits <= 0 {
		maxCredits = 100.0
	}

	for _, adapter := range active {
		if deficit <= 0 {
			break
		}
		if totalCredits >= maxCredits {
			result.Warnings = append(result.Warnings, fmt.Sprintf("credit limit reached (%.1f/%.1f)", totalCredits, maxCredits))
			break
		}

		criteria.Limit = deficit
		providerResult, err := adapter.SearchLeads(ctx, criteria)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s error: %v", adapter.Name(), err))
			continue
		}
		result.Warnings = append(result.Warnings, providerResult.Errors...)

		result.PerProviderCounts[adapter.Name()] = len(providerResult.Leads)
		result.CreditsConsumed[adapter.Name()] = providerResult.CreditsConsumed
		totalCredits += providerResult.CreditsConsumed

		providerAttr := metric.WithAttributes(attribute.String("provider", adapter.Name()))
		externalLeadsCounter.Add(ctx, int64(len(providerResult.Leads)), providerAttr)
		creditsConsumedCounter.Add(ctx, providerResult.CreditsConsumed, providerAttr)

		externalLeads = append(externalLeads, providerResult.Leads...)
		deficit -= len(providerResult.Leads)
	}

	if len(externalLeads) == 0 {
		return finalizeShortfall(result, req.Volume), nil
	}

	wb, err := e.writeBack(ctx, externalLeads, req.ClientID)
	if err != nil {
		return nil, fmt.Errorf("write back leads: %w", err)
	}
	result.WriteBackCount = wb.newInserted
	result.WriteBackDuplicates = wb.duplicatesSkipped
	result.WriteBackInvalid = wb.invalidSkipped
	result.Warnings = append(result.Warnings, wb.errors...)

	if wb.newInserted > 0 {
		remaining := req.Volume - result.TotalAssigned
		if remaining > 0 {
			allFresh := 1.0
			refill, err := e.fill.Fill(ctx, fillengine.Request{
				CampaignID:    req.CampaignID,
				ClientID:      req.ClientID,
				Volume:        remaining,
				Channel:       req.Channel,
				TitleKeywords: req.TitleKeywords,
				FreshRatio:    &allFresh,
				MaxPerCompany: req.MaxPerCompany,
			})
			if err != nil {
				return nil, fmt.Errorf("refill after write-back: %w", err)
			}
			result.ExternalFilled = refill.TotalAssigned
			result.TotalAssigned += refill.TotalAssigned
			result.FreshCount += refill.FreshCount
			result.CompaniesTouched += refill.CompaniesTouched
			result.Contacts = append(result.Contacts, refill.Contacts...)
			result.Warnings = append(result.Warnings, refill.Warnings...)
		}
	}

	return finalizeShortfall(result, req.Volume), nil
}

func finalizeShortfall(result *Result, requested int) *Result {
	if result.TotalAssigned < requested {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"final shortfall: requested %d, assigned %d (internal=%d, external=%d)",
			requested, result.TotalAssigned, result.InternalFilled, result.ExternalFilled))
	}
	return result
}

// activeAdapters resolves adapter names to live instances, filtered and
// sorted by the override list (if given) or the configured provider
// order, and by each adapter's own Priority() when neither is set.
func (e *Engine) activeAdapters(override []string) []providers.Adapter {
	var rank map[string]int
	if len(override) > 0 {
		rank = make(map[string]int, len(override))
		for i, n := range override {
			rank[n] = i
		}
	} else if e.providerOrder != nil {
		order := e.providerOrder()
		rank = make(map[string]int, len(order))
		for i, n := range order {
			rank[strings.TrimSpace(n)] = i
		}
	}

	var active []providers.Adapter
	for _, cfg := range e.adapterCfgs() {
		if _, listed := rank[cfg.Name]; rank != nil && !listed {
			continue
		}
		adapter, ok := providers.New(cfg)
		if ok {
			active = append(active, adapter)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		if rank != nil {
			return rank[active[i].Name()] < rank[active[j].Name()]
		}
		return active[i].Priority() < active[j].Priority()
	})
	return active
}

type writeBackResult struct {
	newInserted       int
	duplicatesSkipped int
	invalidSkipped    int
	errors            []string
}

// writeBack maps each external Lead into a FRESH Contact and inserts
// it, skipping duplicates by (email, client_id) the way InsertContact
// already does for any write-back caller.
func (e *Engine) writeBack(ctx context.Context, leads []domain.Lead, clientID string) (writeBackResult, error) {
	var result writeBackResult
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return result, err
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now()
	for _, lead := range leads {
		contact := leadToContact(lead, clientID, now)
		if contact == nil {
			result.invalidSkipped++
			continue
		}

		if e.dedupe != nil {
			seen, err := e.dedupe.Seen(ctx, contact.Email, clientID)
			if err != nil {
				result.errors = append(result.errors, fmt.Sprintf("dedupe check %s failed: %v", contact.Email, err))
			} else if seen {
				result.duplicatesSkipped++
				continue
			}
		}

		created, err := tx.InsertContact(ctx, contact)
		if err != nil {
			result.errors = append(result.errors, fmt.Sprintf("insert %s failed: %v", contact.Email, err))
			continue
		}
		if created {
			result.newInserted++
			if e.dedupe != nil {
				if err := e.dedupe.Mark(ctx, contact.Email, clientID); err != nil {
					result.errors = append(result.errors, fmt.Sprintf("dedupe mark %s failed: %v", contact.Email, err))
				}
			}
		} else {
			result.duplicatesSkipped++
		}
	}

	if err := tx.Commit(); err != nil {
		return result, err
	}
	return result, nil
}

func leadToContact(lead domain.Lead, clientID string, now time.Time) *domain.Contact {
	if lead.Email == "" || !strings.Contains(lead.Email, "@") {
		return nil
	}
	companyDomain := lead.CompanyDomain
	if companyDomain == "" {
		parts := strings.SplitN(lead.Email, "@", 2)
		if len(parts) != 2 {
			return nil
		}
		companyDomain = parts[1]
	}

	enrichedAt := now
	return &domain.Contact{
		Email:              strings.ToLower(strings.TrimSpace(lead.Email)),
		ClientID:           clientID,
		CompanyDomain:      strings.ToLower(strings.TrimSpace(companyDomain)),
		FirstName:          lead.FirstName,
		LastName:           lead.LastName,
		Title:              lead.Title,
		CompanyName:        lead.CompanyName,
		DispositionStatus:  domain.StatusFresh,
		DataEnrichedAt:     &enrichedAt,
		SourceSystem:       lead.ProviderName,
		SourceID:           lead.ProviderLeadID,
		Channels:           map[domain.Channel]*domain.ChannelFields{},
	}
}
