package domain

import "time"

// ChannelFields groups the three per-channel timestamp/flag triples a
// Contact carries, keyed by Channel so callers that parameterize on
// channel (state machine, eligibility query) don't special-case email.
type ChannelFields struct {
	LastContactedAt *time.Time
	CooldownUntil   *time.Time
	Suppressed      bool
}

// Contact is a sales-outreach target, keyed by (Email, ClientID): two
// tenants independently track the same person at the same company.
type Contact struct {
	ID             string // opaque store-assigned primary key
	Email          string
	ClientID       string
	CompanyDomain  string
	FirstName      string
	LastName       string
	Title          string
	CompanyName    string

	DispositionStatus  DispositionStatus
	DispositionUpdatedAt time.Time

	Channels map[Channel]*ChannelFields

	DataEnrichedAt *time.Time
	SequenceCount  int

	SourceSystem string
	SourceID     string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Channel returns c's fields for ch, creating an empty entry if absent.
// Never returns nil, so callers can read/write through it directly.
func (c *Contact) Channel(ch Channel) *ChannelFields {
	if c.Channels == nil {
		c.Channels = make(map[Channel]*ChannelFields)
	}
	cf, ok := c.Channels[ch]
	if !ok {
		cf = &ChannelFields{}
		c.Channels[ch] = cf
	}
	return cf
}

// EmailSuppressed is a convenience accessor for the invariant-critical
// email channel, which every eligibility and sweep query reads.
func (c *Contact) EmailSuppressed() bool {
	cf, ok := c.Channels[ChannelEmail]
	return ok && cf.Suppressed
}

// Company is a prospective-customer organization, keyed globally by
// domain (not per-client): first-mover ownership is meaningful only
// because the key is shared across tenants.
type Company struct {
	Domain string
	Name   string

	Status            CompanyStatus
	Suppressed        bool
	SuppressedReason  string
	SuppressedAt      *time.Time

	ContactsTotal      int
	ContactsInSequence int
	ContactsTouched    int

	LastContactDate    *time.Time
	CompanyCooldownUntil *time.Time

	IsCustomer     bool
	CustomerSince  *time.Time

	ClientOwnerID      string
	ClientOwnedAt      *time.Time
	OwnershipExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Unowned reports whether no client currently holds first-mover rights.
func (c *Company) Unowned() bool {
	return c.ClientOwnerID == ""
}

// DispositionHistory is an append-only log row recording one state
// transition. TAM burn-rate counts NewStatus=IN_SEQUENCE rows in a
// rolling window, so this table is never mutated or deleted.
type DispositionHistory struct {
	ID               string
	ContactID        string
	ClientID         string
	PreviousStatus   DispositionStatus
	NewStatus        DispositionStatus
	TransitionReason string
	TriggeredBy      TriggeredBy
	CampaignID       string
	Metadata         map[string]any
	CreatedAt        time.Time
}

// OwnershipChange is an append-only log row recording one ownership
// mutation on a Company (claim, release, transfer, or expiry).
type OwnershipChange struct {
	ID               string
	CompanyDomain    string
	PreviousOwnerID  string
	NewOwnerID       string
	ChangeReason     OwnershipChangeReason
	ChangedAt        time.Time
}

// CampaignAssignment is one row per (contact, campaign) assignment made
// by the fill engine.
type CampaignAssignment struct {
	ID          string
	ContactID   string
	CampaignID  string
	ClientID    string
	Channel     Channel
	AssignedAt  time.Time
	CompletedAt *time.Time
	Outcome     string
}

// TAMSnapshot is one row per (SnapshotDate, ClientID); ClientID empty
// string represents the global snapshot.
type TAMSnapshot struct {
	ID                string
	SnapshotDate      time.Time
	ClientID          string
	TotalUniverse     int
	NeverTouched      int
	InCooldown        int
	AvailableNow      int
	PermanentSuppress int
	InSequence        int
	WonCustomer       int
	BurnRateWeekly    float64
	ExhaustionETAWeeks *float64
	HealthStatus      string
	CreatedAt         time.Time
}

// Lead is a provider-shaped search result row, convertible into a
// Contact by the write-back mapping (see internal/waterfall).
type Lead struct {
	Email         string
	CompanyDomain string
	FirstName     string
	LastName      string
	Title         string
	CompanyName   string
	ProviderName  string
	ProviderLeadID string
}
