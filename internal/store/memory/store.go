// Package memory provides an in-process Store implementation backed by
// mutex-guarded maps instead of a SQL engine. It exists for component
// tests that want serialized transactions (one mutex, not row locks or
// MVCC; Rollback does not undo writes) without a live database, mirroring the
// teacher's ephemeral SQLite store's role as a lightweight stand-in.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brightfunnel/disposition/internal/dispoerrors"
	"github.com/brightfunnel/disposition/internal/domain"
	"github.com/brightfunnel/disposition/internal/store"
)

// Store is a single-process, mutex-guarded implementation of
// store.Store. It serializes every transaction on one global lock,
// which is stronger isolation than any real driver provides but
// sufficient (and simpler) for tests that exercise invariants rather
// than throughput.
type Store struct {
	mu sync.Mutex

	contacts  map[string]*domain.Contact // by ID
	byEmail   map[string]string          // email|clientID -> ID
	companies map[string]*domain.Company // by domain
	history   []*domain.DispositionHistory
	ownership []*domain.OwnershipChange
	assignments []*domain.CampaignAssignment
	snapshots map[string]*domain.TAMSnapshot // by date|clientID
	jobs      []*store.BridgeJob
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		contacts:  make(map[string]*domain.Contact),
		byEmail:   make(map[string]string),
		companies: make(map[string]*domain.Company),
		snapshots: make(map[string]*domain.TAMSnapshot),
	}
}

func emailKey(email, clientID string) string {
	return strings.ToLower(email) + "|" + clientID
}

func snapshotKey(date time.Time, clientID string) string {
	return date.Format("2006-01-02") + "|" + clientID
}

// Seed directly inserts a Contact and lazily its Company, bypassing
// transactional semantics. Test-only convenience.
func (s *Store) Seed(c *domain.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	cp := *c
	s.contacts[cp.ID] = &cp
	s.byEmail[emailKey(cp.Email, cp.ClientID)] = cp.ID
	if _, ok := s.companies[cp.CompanyDomain]; !ok && cp.CompanyDomain != "" {
		s.companies[cp.CompanyDomain] = &domain.Company{
			Domain:    cp.CompanyDomain,
			Status:    domain.CompanyFresh,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
	}
}

// SeedCompany directly inserts or replaces a Company. Test-only.
func (s *Store) SeedCompany(c *domain.Company) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.companies[cp.Domain] = &cp
}

func (s *Store) BeginTx(_ context.Context) (store.Tx, error) {
	s.mu.Lock()
	return &tx{s: s, committed: false}, nil
}

func (s *Store) GetContact(_ context.Context, email, clientID string) (*domain.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getContactLocked(email, clientID)
}

func (s *Store) getContactLocked(email, clientID string) (*domain.Contact, error) {
	id, ok := s.byEmail[emailKey(email, clientID)]
	if !ok {
		return nil, fmt.Errorf("get contact %s/%s: %w", email, clientID, dispoerrors.ErrContactNotFound)
	}
	cp := *s.contacts[id]
	return &cp, nil
}

func (s *Store) GetContactByID(_ context.Context, id string) (*domain.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[id]
	if !ok {
		return nil, fmt.Errorf("get contact %s: %w", id, dispoerrors.ErrContactNotFound)
	}
	cp := *c
	return &cp, nil
}

func (s *Store) GetCompany(_ context.Context, domainName string) (*domain.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.companies[domainName]
	if !ok {
		return nil, fmt.Errorf("get company %s: %w", domainName, dispoerrors.ErrCompanyNotFound)
	}
	cp := *c
	return &cp, nil
}

func (s *Store) QueryEligible(_ context.Context, f store.EligibilityFilter) ([]*domain.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	statusSet := make(map[domain.DispositionStatus]bool, len(f.Statuses))
	for _, st := range f.Statuses {
		statusSet[st] = true
	}
	now := time.Now()

	var out []*domain.Contact
	for _, c := range s.contacts {
		if c.ClientID != f.ClientID {
			continue
		}
		if !statusSet[c.DispositionStatus] {
			continue
		}
		cf := c.Channels[f.Channel]
		if cf != nil && cf.Suppressed {
			continue
		}
		if cf != nil && cf.CooldownUntil != nil && cf.CooldownUntil.After(now) {
			continue
		}
		comp, ok := s.companies[c.CompanyDomain]
		if ok {
			if comp.Suppressed {
				continue
			}
			if comp.IsCustomer {
				continue
			}
			if comp.ClientOwnerID != "" && comp.ClientOwnerID != f.ClientID {
				continue
			}
		}
		if !f.FreshnessCutoff.IsZero() && c.DataEnrichedAt != nil && c.DataEnrichedAt.Before(f.FreshnessCutoff) {
			continue
		}
		if len(f.TitleKeywords) > 0 {
			matched := false
			lowerTitle := strings.ToLower(c.Title)
			for _, kw := range f.TitleKeywords {
				if strings.Contains(lowerTitle, strings.ToLower(kw)) {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		cp := *c
		out = append(out, &cp)
	}

	sort.SliceStable(out, func(i, j int) bool {
		iFresh := out[i].DispositionStatus == domain.StatusFresh
		jFresh := out[j].DispositionStatus == domain.StatusFresh
		if iFresh != jFresh {
			return iFresh
		}
		ei, ej := out[i].DataEnrichedAt, out[j].DataEnrichedAt
		switch {
		case ei == nil && ej == nil:
		case ei == nil:
			return false
		case ej == nil:
			return true
		default:
			if !ei.Equal(*ej) {
				return ei.After(*ej)
			}
		}
		return out[i].SequenceCount < out[j].SequenceCount
	})

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) GetTAMPools(_ context.Context, clientID string, now time.Time) (store.TAMPools, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var p store.TAMPools
	for _, c := range s.contacts {
		if clientID != "" && c.ClientID != clientID {
			continue
		}
		p.TotalUniverse++
		switch {
		case c.DispositionStatus == domain.StatusFresh && c.SequenceCount == 0:
			p.NeverTouched++
		case isCooldownStatus(c.DispositionStatus) && isCoolingDown(c, now):
			p.InCooldown++
		case c.DispositionStatus == domain.StatusInSequence:
			p.InSequence++
		case c.DispositionStatus == domain.StatusWonCustomer:
			p.WonCustomer++
		case isPermanentSuppress(c.DispositionStatus):
			p.PermanentSuppress++
		}
		if isAvailableNow(c, now) {
			p.AvailableNow++
		}
	}
	return p, nil
}

func isCooldownStatus(s domain.DispositionStatus) bool {
	switch s {
	case domain.StatusCompletedNoResponse, domain.StatusRepliedNeutral, domain.StatusRepliedNegative, domain.StatusLostClosed:
		return true
	}
	return false
}

func isCoolingDown(c *domain.Contact, now time.Time) bool {
	cf := c.Channels[domain.ChannelEmail]
	return cf != nil && cf.CooldownUntil != nil && cf.CooldownUntil.After(now)
}

func isPermanentSuppress(s domain.DispositionStatus) bool {
	switch s {
	case domain.StatusRepliedHardNo, domain.StatusBounced, domain.StatusUnsubscribed:
		return true
	}
	return false
}

func isAvailableNow(c *domain.Contact, now time.Time) bool {
	if c.DispositionStatus != domain.StatusFresh && c.DispositionStatus != domain.StatusRetouchEligible {
		return false
	}
	if c.EmailSuppressed() {
		return false
	}
	cf := c.Channels[domain.ChannelEmail]
	if cf != nil && cf.CooldownUntil != nil && cf.CooldownUntil.After(now) {
		return false
	}
	return true
}

func (s *Store) GetBurnRate(_ context.Context, clientID string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, h := range s.history {
		if clientID != "" && h.ClientID != clientID {
			continue
		}
		if h.NewStatus == domain.StatusInSequence && h.CreatedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (s *Store) DistinctClientIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, c := range s.contacts {
		if !seen[c.ClientID] {
			seen[c.ClientID] = true
			out = append(out, c.ClientID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) UpsertTAMSnapshot(_ context.Context, snap *domain.TAMSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	cp := *snap
	s.snapshots[snapshotKey(snap.SnapshotDate, snap.ClientID)] = &cp
	return nil
}

func (s *Store) GetTAMTrends(_ context.Context, clientID string, limit int) ([]*domain.TAMSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.TAMSnapshot
	for _, snap := range s.snapshots {
		if snap.ClientID == clientID {
			cp := *snap
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SnapshotDate.Before(out[j].SnapshotDate) })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *Store) ClaimNextBridgeJob(_ context.Context) (*store.BridgeJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.Status == "pending" {
			j.Status = "processing"
			now := time.Now()
			j.StartedAt = &now
			cp := *j
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) CompleteBridgeJob(_ context.Context, id string, resultJSON []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.ID == id {
			j.Status = "completed"
			j.ResultDataJSON = resultJSON
			now := time.Now()
			j.CompletedAt = &now
			return nil
		}
	}
	return fmt.Errorf("complete bridge job %s: %w", id, dispoerrors.ErrStoreError)
}

func (s *Store) FailBridgeJob(_ context.Context, id string, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.ID == id {
			j.Status = "failed"
			j.ErrorMessage = errMsg
			return nil
		}
	}
	return fmt.Errorf("fail bridge job %s: %w", id, dispoerrors.ErrStoreError)
}

// EnqueueBridgeJob is a test/seed helper; the real bridge queue is
// populated by the external collaborator described in spec §6.
func (s *Store) EnqueueBridgeJob(j *store.BridgeJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	j.Status = "pending"
	j.CreatedAt = time.Now()
	s.jobs = append(s.jobs, j)
}

func (s *Store) Close() error { return nil }
