// Package fillengine selects eligible contacts for a campaign,
// blending fresh and retouch-eligible pools at a configurable ratio,
// respecting the per-company contact cap, and assigning the result:
// transition to IN_SEQUENCE, channel touch bookkeeping, assignment
// logging, and first-mover ownership claim. Grounded on
// original_source/src/lead_disposition/campaign_fill.py.
package fillengine

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/brightfunnel/disposition/internal/config"
	"github.com/brightfunnel/disposition/internal/domain"
	"github.com/brightfunnel/disposition/internal/obs"
	"github.com/brightfunnel/disposition/internal/statemachine"
	"github.com/brightfunnel/disposition/internal/store"
)

var contactsAssignedCounter = mustInt64Counter(
	"disposition.fillengine.contacts_assigned",
	"Number of contacts assigned to a campaign by a single Fill call.",
)

func mustInt64Counter(name, desc string) metric.Int64Counter {
	c, err := obs.Meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		panic(err)
	}
	return c
}

// Request describes one campaign fill call (spec §4.5).
type Request struct {
	CampaignID    string
	ClientID      string
	Volume        int
	Channel       domain.Channel
	TitleKeywords []string
	FreshRatio    *float64 // nil uses the configured default
	MaxPerCompany int      // 0 uses the configured default
}

// Result is the structured outcome of a fill call.
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
}

// Engine runs campaign fills against a store.Store, delegating the
// actual status transition to a statemachine.Machine so cooldown and
// company-state derivation stay in one place.
type Engine struct {
	store store.Store
	sm    *statemachine.Machine
	cfg   func() config.HotConfig
}

// New builds an Engine. sm should be backed by the same store.Store.
func New(s store.Store, sm *statemachine.Machine, cfg func() config.HotConfig) *Engine {
	return &Engine{store: s, sm: sm, cfg: cfg}
}

// Fill executes the full selection-and-assignment pipeline described
// in spec §4.5 steps 1-9.
func (e *Engine) Fill(ctx context.Context, req Request) (*Result, error) {
	ctx, span := obs.Tracer.Start(ctx, "fillengine.Fill",
		trace.WithAttributes(
			attribute.String("campaign_id", req.CampaignID),
			attribute.String("client_id", req.ClientID),
			attribute.Int("volume", req.Volume),
		))
	defer span.End()

	hot := e.cfg()

	ratio := hot.FreshRetouchRatio
	if req.FreshRatio != nil {
		ratio = *req.FreshRatio
	}
	maxPerCo := hot.MaxContactsPerCompany
	if req.MaxPerCompany > 0 {
		maxPerCo = req.MaxPerCompany
	}
	if req.Channel == "" {
		req.Channel = domain.ChannelEmail
	}

	var warnings []string

	freshMaxAgeDays := hot.FreshDataMaxAgeDays
	if freshMaxAgeDays <= 0 {
		freshMaxAgeDays = 180
	}
	freshnessCutoff := time.Now().AddDate(0, 0, -freshMaxAgeDays)

	freshTarget := int(float64(req.Volume) * ratio)
	freshContacts, err := e.store.QueryEligible(ctx, store.EligibilityFilter{
		ClientID:        req.ClientID,
		Channel:         req.Channel,
		TitleKeywords:   req.TitleKeywords,
		Statuses:        []domain.DispositionStatus{domain.StatusFresh},
		FreshnessCutoff: freshnessCutoff,
		Limit:           freshTarget * 2,
	})
	if err != nil {
		return nil, fmt.Errorf("query fresh contacts: %w", err)
	}

	retouchTarget := req.Volume - freshTarget
	retouchContacts, err := e.store.QueryEligible(ctx, store.EligibilityFilter{
		ClientID:        req.ClientID,
		Channel:         req.Channel,
		TitleKeywords:   req.TitleKeywords,
		Statuses:        []domain.DispositionStatus{domain.StatusRetouchEligible},
		FreshnessCutoff: freshnessCutoff,
		Limit:           retouchTarget * 2,
	})
	if err != nil {
		return nil, fmt.Errorf("query retouch contacts: %w", err)
	}

	if len(freshContacts) < freshTarget {
		warnings = append(warnings, fmt.Sprintf("insufficient fresh leads: requested %d, found %d", freshTarget, len(freshContacts)))
	}

	selectedFresh := applyCompanyCap(freshContacts, maxPerCo, nil)
	companyCounts := countByCompany(selectedFresh)
	selectedRetouch := applyCompanyCap(retouchContacts, maxPerCo, companyCounts)

	var allSelected []*domain.Contact
	allSelected = append(allSelected, truncate(selectedFresh, freshTarget)...)
	remaining := req.Volume - len(allSelected)
	allSelected = append(allSelected, truncate(selectedRetouch, remaining)...)

	if len(allSelected) < req.Volume {
		backfillCount := req.Volume - len(allSelected)
		start := freshTarget
		if start > len(selectedFresh) {
			start = len(selectedFresh)
		}
		end := start + backfillCount
		if end > len(selectedFresh) {
			end = len(selectedFresh)
		}
		allSelected = append(allSelected, selectedFresh[start:end]...)
	}

	if len(allSelected) < req.Volume {
		warnings = append(warnings, fmt.Sprintf("volume shortfall: requested %d, assigned %d", req.Volume, len(allSelected)))
	}

	companiesTouched := map[string]bool{}
	freshCount, retouchCount := 0, 0
	for _, c := range allSelected {
		wasFresh := c.DispositionStatus == domain.StatusFresh
		if err := e.assignContact(ctx, c, req); err != nil {
			return nil, fmt.Errorf("assign contact %s: %w", c.Email, err)
		}
		companiesTouched[c.CompanyDomain] = true
		if wasFresh {
			freshCount++
		} else {
			retouchCount++
		}
	}

	contactsAssignedCounter.Add(ctx, int64(len(allSelected)), metric.WithAttributes(
		attribute.String("client_id", req.ClientID),
	))

	return &Result{
		CampaignID:       req.CampaignID,
		ClientID:         req.ClientID,
		TotalRequested:   req.Volume,
		TotalAssigned:    len(allSelected),
		FreshCount:       freshCount,
		RetouchCount:     retouchCount,
		CompaniesTouched: len(companiesTouched),
		Contacts:         allSelected,
		Warnings:         warnings,
	}, nil
}

// assignContact transitions one contact into sequence, records the
// channel touch, logs the assignment, and claims company ownership if
// it is still unowned (first-mover wins the race implicitly: whichever
// fill call commits its UpdateCompany first keeps the claim), all in a
// single transaction per spec §4.5 step 8: a failure anywhere in the
// unit leaves the contact exactly as it was, never IN_SEQUENCE with no
// assignment row.
func (e *Engine) assignContact(ctx context.Context, c *domain.Contact, req Request) error {
	now := time.Now()

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	transitioned, err := e.sm.TransitionInTx(ctx, tx, c.Email, c.ClientID, domain.StatusInSequence, statemachine.TransitionOptions{
		Reason:      fmt.Sprintf("assigned_to_campaign:%s", req.CampaignID),
		TriggeredBy: domain.TriggeredByCampaignFill,
		CampaignID:  req.CampaignID,
		Channel:     req.Channel,
	})
	if err != nil {
		return err
	}

	if err := tx.UpdateContact(ctx, c.ID, store.ContactUpdate{
		Channel:                req.Channel,
		ChannelLastContactedAt: &now,
		SequenceCountIncrement: true,
	}); err != nil {
		return err
	}

	if err := tx.InsertCampaignAssignment(ctx, &domain.CampaignAssignment{
		ContactID:  c.ID,
		CampaignID: req.CampaignID,
		ClientID:   req.ClientID,
		Channel:    req.Channel,
		AssignedAt: now,
	}); err != nil {
		return err
	}

	company, err := tx.GetOrCreateCompany(ctx, c.CompanyDomain)
	if err != nil {
		return err
	}
	if company.Unowned() {
		hot := e.cfg()
		months := hot.OwnershipDurationMonths
		if months <= 0 {
			months = 12
		}
		expiry := now.Add(time.Duration(months) * 30 * 24 * time.Hour)
		owner := req.ClientID
		if err := tx.UpdateCompany(ctx, c.CompanyDomain, store.CompanyUpdate{
			ClientOwnerID:      &owner,
			ClientOwnedAt:      &now,
			OwnershipExpiresAt: &expiry,
		}); err != nil {
			return err
		}
		if err := tx.InsertOwnershipChange(ctx, &domain.OwnershipChange{
			CompanyDomain: c.CompanyDomain,
			NewOwnerID:    req.ClientID,
			ChangeReason:  domain.OwnershipFirstClaim,
			ChangedAt:     now,
		}); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	if transitioned {
		e.sm.RecordTransition(ctx, domain.StatusInSequence)
	}
	return nil
}

func applyCompanyCap(contacts []*domain.Contact, maxPerCompany int, existing map[string]int) []*domain.Contact {
	counts := map[string]int{}
	for k, v := range existing {
		counts[k] = v
	}
	var out []*domain.Contact
	for _, c := range contacts {
		if counts[c.CompanyDomain] < maxPerCompany {
			out = append(out, c)
			counts[c.CompanyDomain]++
		}
	}
	return out
}

func countByCompany(contacts []*domain.Contact) map[string]int {
	counts := map[string]int{}
	for _, c := range contacts {
		counts[c.CompanyDomain]++
	}
	return counts
}

func truncate(contacts []*domain.Contact, n int) []*domain.Contact {
	if n <= 0 {
		return nil
	}
	if n > len(contacts) {
		n = len(contacts)
	}
	return contacts[:n]
}
