package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brightfunnel/disposition/internal/dispoerrors"
	"github.com/brightfunnel/disposition/internal/domain"
	"github.com/brightfunnel/disposition/internal/store"
)

// tx implements store.Tx over the parent Store's maps while holding its
// mutex for the tx's lifetime, approximating row-locking with a single
// global lock. Writes are applied to the maps in place as they are
// made; Rollback releases the lock but does not undo writes already
// made through this tx.
type tx struct {
	s         *Store
	committed bool
	done      bool
}

func (t *tx) GetContact(_ context.Context, email, clientID string) (*domain.Contact, error) {
	return t.s.getContactLocked(email, clientID)
}

func (t *tx) GetContactByID(_ context.Context, id string) (*domain.Contact, error) {
	c, ok := t.s.contacts[id]
	if !ok {
		return nil, fmt.Errorf("get contact %s: %w", id, dispoerrors.ErrContactNotFound)
	}
	cp := *c
	return &cp, nil
}

func (t *tx) GetCompany(_ context.Context, domainName string) (*domain.Company, error) {
	c, ok := t.s.companies[domainName]
	if !ok {
		return nil, fmt.Errorf("get company %s: %w", domainName, dispoerrors.ErrCompanyNotFound)
	}
	cp := *c
	return &cp, nil
}

func (t *tx) GetOrCreateCompany(_ context.Context, domainName string) (*domain.Company, error) {
	c, ok := t.s.companies[domainName]
	if ok {
		cp := *c
		return &cp, nil
	}
	now := time.Now()
	c = &domain.Company{
		Domain:    domainName,
		Status:    domain.CompanyFresh,
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.s.companies[domainName] = c
	cp := *c
	return &cp, nil
}

func (t *tx) UpdateContact(_ context.Context, contactID string, u store.ContactUpdate) error {
	c, ok := t.s.contacts[contactID]
	if !ok {
		return fmt.Errorf("update contact %s: %w", contactID, dispoerrors.ErrContactNotFound)
	}
	if u.DispositionStatus != nil {
		c.DispositionStatus = *u.DispositionStatus
	}
	if u.DispositionUpdatedAt != nil {
		c.DispositionUpdatedAt = *u.DispositionUpdatedAt
	}
	if u.Channel != "" {
		cf := c.Channel(u.Channel)
		if u.ChannelLastContactedAt != nil {
			cf.LastContactedAt = u.ChannelLastContactedAt
		}
		if u.ChannelCooldownUntil != nil {
			cf.CooldownUntil = u.ChannelCooldownUntil
		}
		if u.ChannelSuppressed != nil {
			cf.Suppressed = *u.ChannelSuppressed
		}
	}
	if u.AllChannelsSuppressed != nil {
		c.Channel(domain.ChannelEmail).Suppressed = *u.AllChannelsSuppressed
		c.Channel(domain.ChannelLinkedIn).Suppressed = *u.AllChannelsSuppressed
		c.Channel(domain.ChannelPhone).Suppressed = *u.AllChannelsSuppressed
	}
	if u.SequenceCountIncrement {
		c.SequenceCount++
	}
	c.UpdatedAt = time.Now()
	return nil
}

func (t *tx) UpdateCompany(_ context.Context, domainName string, u store.CompanyUpdate) error {
	c, ok := t.s.companies[domainName]
	if !ok {
		return fmt.Errorf("update company %s: %w", domainName, dispoerrors.ErrCompanyNotFound)
	}
	if u.Status != nil {
		c.Status = *u.Status
	}
	if u.Suppressed != nil {
		c.Suppressed = *u.Suppressed
	}
	if u.SuppressedReason != nil {
		c.SuppressedReason = *u.SuppressedReason
	}
	if u.SuppressedAt != nil {
		c.SuppressedAt = u.SuppressedAt
	}
	c.ContactsInSequence += u.ContactsInSequenceDelta
	if c.ContactsInSequence < 0 {
		c.ContactsInSequence = 0
	}
	c.ContactsTouched += u.ContactsTouchedDelta
	if u.LastContactDate != nil {
		c.LastContactDate = u.LastContactDate
	}
	if u.IsCustomer != nil {
		c.IsCustomer = *u.IsCustomer
	}
	if u.CustomerSince != nil {
		c.CustomerSince = u.CustomerSince
	}
	if u.ClientOwnerID != nil {
		c.ClientOwnerID = *u.ClientOwnerID
	}
	if u.ClientOwnedAt != nil {
		c.ClientOwnedAt = u.ClientOwnedAt
	} else if u.ClientOwnerID != nil && *u.ClientOwnerID == "" {
		c.ClientOwnedAt = nil
	}
	if u.OwnershipExpiresAt != nil {
		c.OwnershipExpiresAt = u.OwnershipExpiresAt
	} else if u.ClientOwnerID != nil && *u.ClientOwnerID == "" {
		c.OwnershipExpiresAt = nil
	}
	c.UpdatedAt = time.Now()
	return nil
}

func (t *tx) CascadeSuppressCompany(_ context.Context, domainName string) error {
	for _, c := range t.s.contacts {
		if c.CompanyDomain == domainName {
			c.Channel(domain.ChannelEmail).Suppressed = true
		}
	}
	return nil
}

func (t *tx) InsertDispositionHistory(_ context.Context, h *domain.DispositionHistory) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	cp := *h
	t.s.history = append(t.s.history, &cp)
	return nil
}

func (t *tx) InsertOwnershipChange(_ context.Context, o *domain.OwnershipChange) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.ChangedAt.IsZero() {
		o.ChangedAt = time.Now()
	}
	cp := *o
	t.s.ownership = append(t.s.ownership, &cp)
	return nil
}

func (t *tx) InsertCampaignAssignment(_ context.Context, a *domain.CampaignAssignment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.AssignedAt.IsZero() {
		a.AssignedAt = time.Now()
	}
	cp := *a
	t.s.assignments = append(t.s.assignments, &cp)
	return nil
}

func (t *tx) InsertContact(_ context.Context, c *domain.Contact) (bool, error) {
	key := emailKey(c.Email, c.ClientID)
	if _, exists := t.s.byEmail[key]; exists {
		return false, nil
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	cp := *c
	t.s.contacts[cp.ID] = &cp
	t.s.byEmail[key] = cp.ID
	if _, ok := t.s.companies[cp.CompanyDomain]; !ok && cp.CompanyDomain != "" {
		t.s.companies[cp.CompanyDomain] = &domain.Company{
			Domain:    cp.CompanyDomain,
			Status:    domain.CompanyFresh,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	return true, nil
}

func (t *tx) SweepExpiredCooldowns(_ context.Context, now time.Time) ([]*domain.Contact, error) {
	var out []*domain.Contact
	for _, c := range t.s.contacts {
		if !isCooldownStatus(c.DispositionStatus) {
			continue
		}
		cf := c.Channels[domain.ChannelEmail]
		if cf == nil || cf.CooldownUntil == nil || cf.CooldownUntil.After(now) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (t *tx) SweepStaleDataCandidates(_ context.Context, cutoff time.Time) ([]*domain.Contact, error) {
	var out []*domain.Contact
	for _, c := range t.s.contacts {
		if domain.PermanentExclusionStatuses[c.DispositionStatus] {
			continue
		}
		if c.DataEnrichedAt == nil || c.DataEnrichedAt.After(cutoff) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (t *tx) SweepExpiredOwnershipCandidates(_ context.Context, now time.Time) ([]*domain.Company, error) {
	var out []*domain.Company
	for _, c := range t.s.companies {
		if c.Unowned() {
			continue
		}
		if c.OwnershipExpiresAt == nil || c.OwnershipExpiresAt.After(now) {
			continue
		}
		if c.ContactsInSequence != 0 {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (t *tx) Commit() error {
	if t.done {
		return fmt.Errorf("commit: %w", dispoerrors.ErrStoreError)
	}
	t.done = true
	t.committed = true
	t.s.mu.Unlock()
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.s.mu.Unlock()
	return nil
}
