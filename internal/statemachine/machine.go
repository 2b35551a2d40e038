// Package statemachine validates and applies disposition status
// transitions, derives company-level state from them, and runs the
// cooldown/stale-data sweeps that drive contacts back into the fill
// pool. Grounded on original_source/src/lead_disposition/state_machine.py,
// translated into the teacher's transactional Go idiom.
package statemachine

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/brightfunnel/disposition/internal/config"
	"github.com/brightfunnel/disposition/internal/dispoerrors"
	"github.com/brightfunnel/disposition/internal/domain"
	"github.com/brightfunnel/disposition/internal/obs"
	"github.com/brightfunnel/disposition/internal/store"
)

var transitionsCounter = mustInt64Counter(
	"disposition.statemachine.transitions",
	"Number of disposition status transitions applied.",
)

func mustInt64Counter(name, desc string) metric.Int64Counter {
	c, err := obs.Meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		panic(err)
	}
	return c
}

// Machine applies disposition transitions against a store.Store,
// reading HotConfig fresh on every call so a hot-reloaded cooldown
// takes effect on the next transition without a restart.
type Machine struct {
	store store.Store
	cfg   func() config.HotConfig
}

// New builds a Machine. cfg is called on every Transition so callers
// can wire it to a live config.Loader subscription.
func New(s store.Store, cfg func() config.HotConfig) *Machine {
	return &Machine{store: s, cfg: cfg}
}

// TransitionOptions carries the optional parameters of a transition.
// Channel defaults to email: cooldown and suppression fields are only
// ever written for the channel the caller names, so a LinkedIn-driven
// reply never touches the email cooldown clock and vice versa.
type TransitionOptions struct {
	Reason      string
	TriggeredBy domain.TriggeredBy
	CampaignID  string
	Channel     domain.Channel
}

// Transition moves a contact from its current disposition status to
// newStatus, validating legality, applying channel cooldowns and
// suppression, logging history, deriving company state, and cascading
// a hard-no suppression across the rest of the company. It runs in its
// own transaction; use TransitionInTx to compose it with other writes
// in a single transaction.
func (m *Machine) Transition(ctx context.Context, email, clientID string, newStatus domain.DispositionStatus, opts TransitionOptions) error {
	tx, err := m.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	applied, err := m.TransitionInTx(ctx, tx, email, clientID, newStatus, opts)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	if applied {
		m.RecordTransition(ctx, newStatus)
	}
	return nil
}

// TransitionInTx applies the same logic as Transition against an
// already-open tx, so a caller that must combine a transition with
// further writes in one transaction (e.g. fillengine's assignment
// unit, spec §4.5 step 8) can do so without a second commit point. The
// caller owns tx's commit/rollback and, on success, should call
// RecordTransition once its own commit succeeds. applied is false for
// a same-state no-op, which writes nothing and should not be recorded.
func (m *Machine) TransitionInTx(ctx context.Context, tx store.Tx, email, clientID string, newStatus domain.DispositionStatus, opts TransitionOptions) (applied bool, err error) {
	ctx, span := obs.Tracer.Start(ctx, "statemachine.Transition", trace.WithAttributes(
		attribute.String("client_id", clientID),
		attribute.String("new_status", string(newStatus)),
	))
	defer span.End()

	if opts.Channel == "" {
		opts.Channel = domain.ChannelEmail
	}
	if opts.TriggeredBy == "" {
		opts.TriggeredBy = domain.TriggeredBySystem
	}

	contact, err := tx.GetContact(ctx, email, clientID)
	if err != nil {
		return false, err
	}

	current := contact.DispositionStatus
	if current != newStatus && !IsLegal(current, newStatus) {
		return false, &dispoerrors.IllegalTransitionError{
			Current:   current,
			Requested: newStatus,
			Allowed:   Allowed(current),
		}
	}

	now := time.Now()
	if current == newStatus {
		// Same-state request: still a legal no-op, but nothing else
		// runs. No history row, no company re-derivation, no cooldown.
		return false, nil
	}

	hot := m.cfg()
	update := store.ContactUpdate{
		DispositionStatus:    &newStatus,
		DispositionUpdatedAt: &now,
	}

	if cooldown := cooldownFor(newStatus, hot.Cooldowns); cooldown > 0 {
		until := now.Add(cooldown)
		update.Channel = opts.Channel
		update.ChannelCooldownUntil = &until
	}

	if newStatus == domain.StatusRepliedHardNo {
		yes := true
		update.AllChannelsSuppressed = &yes
	} else if suppress := suppressionFor(newStatus); suppress != nil {
		update.Channel = opts.Channel
		update.ChannelSuppressed = suppress
	}

	if err := tx.UpdateContact(ctx, contact.ID, update); err != nil {
		return false, err
	}

	if err := tx.InsertDispositionHistory(ctx, &domain.DispositionHistory{
		ContactID:        contact.ID,
		ClientID:         clientID,
		PreviousStatus:   current,
		NewStatus:        newStatus,
		TransitionReason: opts.Reason,
		TriggeredBy:      opts.TriggeredBy,
		CampaignID:       opts.CampaignID,
		CreatedAt:        now,
	}); err != nil {
		return false, err
	}

	if err := m.updateCompanyState(ctx, tx, contact.CompanyDomain, current, newStatus, now); err != nil {
		return false, err
	}

	if newStatus == domain.StatusRepliedHardNo {
		if err := tx.CascadeSuppressCompany(ctx, contact.CompanyDomain); err != nil {
			return false, err
		}
	}

	return true, nil
}

// RecordTransition increments the transition counter for newStatus.
// Call once after a transaction composing TransitionInTx has
// committed successfully.
func (m *Machine) RecordTransition(ctx context.Context, newStatus domain.DispositionStatus) {
	transitionsCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("new_status", string(newStatus)),
	))
}

// updateCompanyState derives the company-level counters and status
// that follow from a single contact's transition (spec §4.1, §4.2).
func (m *Machine) updateCompanyState(ctx context.Context, tx store.Tx, domainName string, oldStatus, newStatus domain.DispositionStatus, now time.Time) error {
	company, err := tx.GetCompany(ctx, domainName)
	if err != nil {
		return err
	}

	var update store.CompanyUpdate
	var touched bool

	if newStatus == domain.StatusInSequence {
		update.ContactsInSequenceDelta = 1
		update.ContactsTouchedDelta = 1
		active := domain.CompanyActive
		update.Status = &active
		update.LastContactDate = &now
		touched = true
	} else if oldStatus == domain.StatusInSequence {
		update.ContactsInSequenceDelta = -1
		touched = true
		// COOLING only applies once the last in-sequence contact has
		// left and the company has been touched at least once.
		if company.ContactsInSequence-1 <= 0 && company.ContactsTouched > 0 {
			cooling := domain.CompanyCooling
			update.Status = &cooling
		}
	}

	if newStatus == domain.StatusWonCustomer {
		customer := domain.CompanyCustomer
		update.Status = &customer
		isCustomer := true
		update.IsCustomer = &isCustomer
		update.CustomerSince = &now
		touched = true
	}

	// CUSTOMER + later hard-no: the original unconditionally flips
	// company_status to SUPPRESSED even for a won customer. Keeping
	// that behavior; is_customer/customer_since are left untouched so
	// reporting can still tell the company was once won.
	if newStatus == domain.StatusRepliedHardNo {
		suppressed := domain.CompanySuppressed
		update.Status = &suppressed
		yes := true
		update.Suppressed = &yes
		reason := "hard_no_received"
		update.SuppressedReason = &reason
		update.SuppressedAt = &now
		touched = true
	}

	if !touched {
		return nil
	}
	return tx.UpdateCompany(ctx, domainName, update)
}

func cooldownFor(status domain.DispositionStatus, c config.CooldownDefaults) time.Duration {
	days := 0
	switch status {
	case domain.StatusCompletedNoResponse:
		days = c.NoResponseDays
	case domain.StatusRepliedNeutral:
		days = c.NeutralDays
	case domain.StatusRepliedNegative:
		days = c.NegativeDays
	case domain.StatusLostClosed:
		days = c.LostClosedDays
	default:
		return 0
	}
	return time.Duration(days) * 24 * time.Hour
}

// suppressionFor returns the single-channel suppression flag to set
// for Bounced/Unsubscribed. REPLIED_HARD_NO is handled separately in
// Transition: it suppresses all three channels at once, not just
// opts.Channel.
func suppressionFor(status domain.DispositionStatus) *bool {
	switch status {
	case domain.StatusBounced, domain.StatusUnsubscribed:
		yes := true
		return &yes
	}
	return nil
}

// SweepExpiredCooldowns moves every contact whose cooldown has expired
// into RETOUCH_ELIGIBLE, one transition per contact so an individually
// illegal transition (e.g. a concurrent update already moved it) never
// aborts the rest of the batch.
func (m *Machine) SweepExpiredCooldowns(ctx context.Context) (int, error) {
	tx, err := m.store.BeginTx(ctx)
	if err != nil {
		return 0, err
	}
	candidates, err := tx.SweepExpiredCooldowns(ctx, time.Now())
	rollbackErr := tx.Rollback()
	if err != nil {
		return 0, err
	}
	if rollbackErr != nil {
		return 0, rollbackErr
	}

	count := 0
	for _, c := range candidates {
		err := m.Transition(ctx, c.Email, c.ClientID, domain.StatusRetouchEligible, TransitionOptions{
			Reason:      "cooldown_expired",
			TriggeredBy: domain.TriggeredByMaintenance,
		})
		if err != nil {
			if dispoerrors.IsIllegalTransition(err) {
				continue
			}
			return count, fmt.Errorf("sweep expired cooldowns: %w", err)
		}
		count++
	}
	return count, nil
}

// SweepStaleData flags contacts whose enrichment data has aged past
// the configured threshold as STALE_DATA.
func (m *Machine) SweepStaleData(ctx context.Context) (int, error) {
	hot := m.cfg()
	months := hot.StaleDataMonths
	if months <= 0 {
		months = 6
	}
	cutoff := time.Now().AddDate(0, -months, 0)

	tx, err := m.store.BeginTx(ctx)
	if err != nil {
		return 0, err
	}
	candidates, err := tx.SweepStaleDataCandidates(ctx, cutoff)
	rollbackErr := tx.Rollback()
	if err != nil {
		return 0, err
	}
	if rollbackErr != nil {
		return 0, rollbackErr
	}

	count := 0
	for _, c := range candidates {
		err := m.Transition(ctx, c.Email, c.ClientID, domain.StatusStaleData, TransitionOptions{
			Reason:      fmt.Sprintf("data_enriched_at older than %d months", months),
			TriggeredBy: domain.TriggeredByMaintenance,
		})
		if err != nil {
			if dispoerrors.IsIllegalTransition(err) {
				continue
			}
			return count, fmt.Errorf("sweep stale data: %w", err)
		}
		count++
	}
	return count, nil
}
