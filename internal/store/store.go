// Package store defines the canonical transactional contract every
// driver (postgres, mysql, memory) must satisfy. Components never talk
// to database/sql directly; they talk to a Store.
package store

import (
	"context"
	"time"

	"github.com/brightfunnel/disposition/internal/domain"
)

// EligibilityFilter is the bound-parameter set for the query of
// spec §4.4. It is shared verbatim by every driver.
type EligibilityFilter struct {
	ClientID      string
	Statuses      []domain.DispositionStatus
	Channel       domain.Channel
	TitleKeywords []string
	FreshnessCutoff time.Time
	Limit         int
}

// ContactUpdate is the set of fields a transition is allowed to write
// on a Contact in a single statement. The store exposes no free-form
// field setter; every mutation is named here, matching the narrow
// typed-update boundary spec.md §9 calls for in place of the source's
// arbitrary-field-by-name pattern.
type ContactUpdate struct {
	DispositionStatus    *domain.DispositionStatus
	DispositionUpdatedAt *time.Time
	Channel              domain.Channel
	ChannelLastContactedAt *time.Time
	ChannelCooldownUntil   *time.Time
	ChannelSuppressed      *bool
	// AllChannelsSuppressed, when set, writes email_suppressed,
	// linkedin_suppressed, and phone_suppressed together, independent of
	// Channel. Used for REPLIED_HARD_NO, which suppresses a contact on
	// every channel at once rather than just the one that triggered it.
	AllChannelsSuppressed *bool
	// SequenceCountIncrement, when true, adds one to sequence_count.
	// The hard-no cascade across the company domain is not part of this
	// single-row update; it is Tx.CascadeSuppressCompany, a separate
	// statement in the same transaction.
	SequenceCountIncrement bool
}

// CompanyUpdate is the set of fields a transition or sweep may write on
// a Company in a single statement.
type CompanyUpdate struct {
	Status                *domain.CompanyStatus
	Suppressed             *bool
	SuppressedReason       *string
	SuppressedAt           *time.Time
	ContactsInSequenceDelta int
	ContactsTouchedDelta   int
	LastContactDate        *time.Time
	IsCustomer              *bool
	CustomerSince           *time.Time
	ClientOwnerID           *string // pointer-to-empty-string clears ownership
	ClientOwnedAt           *time.Time
	OwnershipExpiresAt      *time.Time
}

// TAMPools is the result of the aggregate query of spec §4.8.
type TAMPools struct {
	TotalUniverse     int
	NeverTouched      int
	InCooldown        int
	AvailableNow      int
	PermanentSuppress int
	InSequence        int
	WonCustomer       int
}

// BridgeJob is one row of the external bridge intake queue (spec §6).
type BridgeJob struct {
	ID                 string
	ClientID           string
	SuggestionID       string
	Volume             int
	Channel             string
	EnableExternal      bool
	MaxExternalCredits  float64
	SearchCriteriaJSON []byte
	Status             string
	StartedAt          *time.Time
	CompletedAt        *time.Time
	ResultDataJSON     []byte
	ErrorMessage       string
	CreatedAt          time.Time
}

// Store is the canonical contract. A transactional unit (fill one
// contact, run one transition, claim one job) is always: BeginTx,
// a handful of these calls against the returned Tx, Commit or Rollback.
type Store interface {
	// BeginTx opens a transactional unit. GetContact, GetContactByID
	// and GetCompany are also on Tx; the contact/company/history writes
	// exist only on Tx, while the snapshot and bridge-job writes below
	// run outside any Tx.
	BeginTx(ctx context.Context) (Tx, error)

	// GetContact fetches a single contact by (email, client_id).
	GetContact(ctx context.Context, email, clientID string) (*domain.Contact, error)
	GetContactByID(ctx context.Context, id string) (*domain.Contact, error)
	GetCompany(ctx context.Context, domainName string) (*domain.Company, error)

	// QueryEligible runs the eligibility query of spec §4.4.
	QueryEligible(ctx context.Context, f EligibilityFilter) ([]*domain.Contact, error)

	// GetTAMPools runs the pool-segmentation aggregate of spec §4.8.
	GetTAMPools(ctx context.Context, clientID string, now time.Time) (TAMPools, error)
	// GetBurnRate counts IN_SEQUENCE transitions in the last 7 days.
	GetBurnRate(ctx context.Context, clientID string, since time.Time) (int, error)
	// DistinctClientIDs lists every client_id present in Contacts, for
	// capture_all_snapshots fan-out.
	DistinctClientIDs(ctx context.Context) ([]string, error)
	// UpsertTAMSnapshot writes a snapshot keyed on (snapshot_date, client_id).
	UpsertTAMSnapshot(ctx context.Context, s *domain.TAMSnapshot) error
	// GetTAMTrends returns snapshots for a client (or global, if empty)
	// ordered by date ascending, for trend reporting.
	GetTAMTrends(ctx context.Context, clientID string, limit int) ([]*domain.TAMSnapshot, error)

	// ClaimNextBridgeJob dequeues the oldest pending job under a
	// SKIP LOCKED claim, marking it processing, or returns
	// (nil, nil) if no job is pending.
	ClaimNextBridgeJob(ctx context.Context) (*BridgeJob, error)
	CompleteBridgeJob(ctx context.Context, id string, resultJSON []byte) error
	FailBridgeJob(ctx context.Context, id string, errMsg string) error

	Close() error
}

// Tx is the transactional subset of Store used inside a single
// assignment/transition/claim unit. Every method commits nothing by
// itself; the caller must Commit or Rollback the Tx.
type Tx interface {
	GetContact(ctx context.Context, email, clientID string) (*domain.Contact, error)
	GetContactByID(ctx context.Context, id string) (*domain.Contact, error)
	GetCompany(ctx context.Context, domainName string) (*domain.Company, error)
	GetOrCreateCompany(ctx context.Context, domainName string) (*domain.Company, error)

	UpdateContact(ctx context.Context, contactID string, u ContactUpdate) error
	UpdateCompany(ctx context.Context, domainName string, u CompanyUpdate) error
	// CascadeSuppressCompany sets email_suppressed=true on every
	// contact sharing domainName, used by the hard-no cascade.
	CascadeSuppressCompany(ctx context.Context, domainName string) error

	InsertDispositionHistory(ctx context.Context, h *domain.DispositionHistory) error
	InsertOwnershipChange(ctx context.Context, o *domain.OwnershipChange) error
	InsertCampaignAssignment(ctx context.Context, a *domain.CampaignAssignment) error

	// InsertContact inserts a new Contact (write-back), returning
	// false for created if a row with the same (email, client_id)
	// already existed (duplicate-skip semantics, spec §4.9).
	InsertContact(ctx context.Context, c *domain.Contact) (created bool, err error)

	// SweepExpiredCooldowns/SweepStaleDataCandidates/
	// SweepExpiredOwnershipCandidates select the candidate rows for a maintenance pass; the caller
	// (statemachine/deconfliction) drives the per-row transition.
	SweepExpiredCooldowns(ctx context.Context, now time.Time) ([]*domain.Contact, error)
	SweepStaleDataCandidates(ctx context.Context, cutoff time.Time) ([]*domain.Contact, error)
	SweepExpiredOwnershipCandidates(ctx context.Context, now time.Time) ([]*domain.Company, error)

	Commit() error
	Rollback() error
}
