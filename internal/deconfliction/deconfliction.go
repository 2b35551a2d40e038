// Package deconfliction implements cross-client first-mover company
// ownership: a company can be actively worked by at most one client at
// a time, with ownership expiring automatically once its working
// window lapses and no sequence is still in flight. Grounded on
// original_source/src/lead_disposition/deconfliction.py.
package deconfliction

import (
	"context"
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

var claimsCounter = mustInt64Counter(
	"disposition.deconfliction.claims",
	"Number of company ownership claim attempts, labeled by outcome.",
)

func mustInt64Counter(name, desc string) metric.Int64Counter {
	c, err := obs.Meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		panic(err)
	}
	return c
}

// Deconfliction manages Company.ClientOwnerID transitions.
type Deconfliction struct {
	store store.Store
	cfg   func() config.HotConfig
}

// New builds a Deconfliction backed by s, reading OwnershipDurationMonths
// fresh from cfg on every claim/transfer.
func New(s store.Store, cfg func() config.HotConfig) *Deconfliction {
	return &Deconfliction{store: s, cfg: cfg}
}

// expiry computes the ownership window's end. The default measures
// months as months*30 days, matching the original exactly; a caller
// wanting calendar-accurate months (28/29/30/31-day awareness) can set
// CalendarAccurateExpiry, which switches to AddDate.
type Config struct {
	CalendarAccurateExpiry bool
}

func (d *Deconfliction) expiry(now time.Time, months int, calendarAccurate bool) time.Time {
	if calendarAccurate {
		return now.AddDate(0, months, 0)
	}
	return now.Add(time.Duration(months) * 30 * 24 * time.Hour)
}

// CanTarget reports whether clientID may work domainName: true if the
// company doesn't exist yet, is unowned, is already owned by clientID,
// or its ownership has expired with no contacts still in sequence.
func (d *Deconfliction) CanTarget(ctx context.Context, domainName, clientID string) (bool, error) {
	company, err := d.store.GetCompany(ctx, domainName)
	if err != nil {
		if dispoerrors.IsNotFound(err) {
			return true, nil
		}
		return false, err
	}
	if company.Unowned() {
		return true, nil
	}
	if company.ClientOwnerID == clientID {
		return true, nil
	}
	if company.OwnershipExpiresAt != nil && !company.OwnershipExpiresAt.After(time.Now()) {
		return company.ContactsInSequence == 0, nil
	}
	return false, nil
}

// Claim grants clientID first-mover ownership of domainName if it is
// currently unowned or already owned by clientID. Returns false
// without error if another client holds a claim, expired or not.
func (d *Deconfliction) Claim(ctx context.Context, domainName, clientID string, opts Config) (bool, error) {
	ctx, span := obs.Tracer.Start(ctx, "deconfliction.Claim", trace.WithAttributes(
		attribute.String("client_id", clientID),
	))
	defer span.End()

	tx, err := d.store.BeginTx(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback() //nolint:errcheck

	company, err := tx.GetOrCreateCompany(ctx, domainName)
	if err != nil {
		return false, err
	}
	if !company.Unowned() && company.ClientOwnerID != clientID {
		claimsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "denied")))
		return false, nil
	}

	now := time.Now()
	months := d.cfg().OwnershipDurationMonths
	if months <= 0 {
		months = 12
	}
	expiry := d.expiry(now, months, opts.CalendarAccurateExpiry)

	newOwner := clientID
	if err := tx.UpdateCompany(ctx, domainName, store.CompanyUpdate{
		ClientOwnerID:      &newOwner,
		ClientOwnedAt:      &now,
		OwnershipExpiresAt: &expiry,
	}); err != nil {
		return false, err
	}
	if err := tx.InsertOwnershipChange(ctx, &domain.OwnershipChange{
		CompanyDomain:   domainName,
		PreviousOwnerID: company.ClientOwnerID,
		NewOwnerID:      clientID,
		ChangeReason:    domain.OwnershipFirstClaim,
		ChangedAt:       now,
	}); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	claimsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "granted")))
	return true, nil
}

// Release clears ownership of domainName (an admin action; no
// eligibility checks beyond "is it owned").
func (d *Deconfliction) Release(ctx context.Context, domainName string) (bool, error) {
	tx, err := d.store.BeginTx(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback() //nolint:errcheck

	company, err := tx.GetCompany(ctx, domainName)
	if err != nil {
		if dispoerrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if company.Unowned() {
		return false, nil
	}

	previous := company.ClientOwnerID
	empty := ""
	if err := tx.UpdateCompany(ctx, domainName, store.CompanyUpdate{ClientOwnerID: &empty}); err != nil {
		return false, err
	}
	if err := tx.InsertOwnershipChange(ctx, &domain.OwnershipChange{
		CompanyDomain:   domainName,
		PreviousOwnerID: previous,
		NewOwnerID:      "",
		ChangeReason:    domain.OwnershipManualRelease,
		ChangedAt:       time.Now(),
	}); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// Transfer moves ownership of domainName to newClientID unconditionally
// (an admin override; bypasses the expiry/in-sequence checks Claim
// enforces).
func (d *Deconfliction) Transfer(ctx context.Context, domainName, newClientID string, opts Config) (bool, error) {
	tx, err := d.store.BeginTx(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback() //nolint:errcheck

	company, err := tx.GetOrCreateCompany(ctx, domainName)
	if err != nil {
		return false, err
	}

	previous := company.ClientOwnerID
	now := time.Now()
	months := d.cfg().OwnershipDurationMonths
	if months <= 0 {
		months = 12
	}
	expiry := d.expiry(now, months, opts.CalendarAccurateExpiry)

	newOwner := newClientID
	if err := tx.UpdateCompany(ctx, domainName, store.CompanyUpdate{
		ClientOwnerID:      &newOwner,
		ClientOwnedAt:      &now,
		OwnershipExpiresAt: &expiry,
	}); err != nil {
		return false, err
	}
	if err := tx.InsertOwnershipChange(ctx, &domain.OwnershipChange{
		CompanyDomain:   domainName,
		PreviousOwnerID: previous,
		NewOwnerID:      newClientID,
		ChangeReason:    domain.OwnershipAdminTransfer,
		ChangedAt:       now,
	}); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// SweepExpired releases ownership for every company whose
// ownership window has lapsed with no contacts still in sequence.
func (d *Deconfliction) SweepExpired(ctx context.Context) (int, error) {
	tx, err := d.store.BeginTx(ctx)
	if err != nil {
		return 0, err
	}
	candidates, err := tx.SweepExpiredOwnershipCandidates(ctx, time.Now())
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	count := 0
	for _, company := range candidates {
		tx2, err := d.store.BeginTx(ctx)
		if err != nil {
			return count, err
		}
		previous := company.ClientOwnerID
		empty := ""
		if err := tx2.UpdateCompany(ctx, company.Domain, store.CompanyUpdate{ClientOwnerID: &empty}); err != nil {
			tx2.Rollback() //nolint:errcheck
			return count, err
		}
		if err := tx2.InsertOwnershipChange(ctx, &domain.OwnershipChange{
			CompanyDomain:   company.Domain,
			PreviousOwnerID: previous,
			NewOwnerID:      "",
			ChangeReason:    domain.OwnershipExpired,
			ChangedAt:       time.Now(),
		}); err != nil {
			tx2.Rollback() //nolint:errcheck
			return count, err
		}
		if err := tx2.Commit(); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
