package statemachine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightfunnel/disposition/internal/config"
	"github.com/brightfunnel/disposition/internal/dispoerrors"
	"github.com/brightfunnel/disposition/internal/domain"
	"github.com/brightfunnel/disposition/internal/statemachine"
	"github.com/brightfunnel/disposition/internal/store/memory"
)

func hotConfig() config.HotConfig {
	return config.HotConfig{
		Cooldowns: config.CooldownDefaults{
			NoResponseDays: 90,
			NeutralDays:    45,
			NegativeDays:   180,
			LostClosedDays: 90,
			LinkedInDays:   30,
			PhoneDays:      60,
		},
		StaleDataMonths: 6,
	}
}

func seedContact(s *memory.Store, email, clientID, companyDomain string, status domain.DispositionStatus) *domain.Contact {
	c := &domain.Contact{
		ID:                email + "-" + clientID,
		Email:             email,
		ClientID:          clientID,
		CompanyDomain:     companyDomain,
		DispositionStatus: status,
		Channels:          map[domain.Channel]*domain.ChannelFields{},
	}
	s.Seed(c)
	return c
}

func TestTransition_LegalMovesApply(t *testing.T) {
	s := memory.New()
	seedContact(s, "a@acme.com", "client1", "acme.com", domain.StatusFresh)
	m := statemachine.New(s, hotConfig)

	err := m.Transition(context.Background(), "a@acme.com", "client1", domain.StatusInSequence, statemachine.TransitionOptions{
		TriggeredBy: domain.TriggeredByCampaignFill,
		CampaignID:  "camp-1",
	})
	require.NoError(t, err)

	got, err := s.GetContact(context.Background(), "a@acme.com", "client1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInSequence, got.DispositionStatus)

	company, err := s.GetCompany(context.Background(), "acme.com")
	require.NoError(t, err)
	assert.Equal(t, domain.CompanyActive, company.Status)
	assert.Equal(t, 1, company.ContactsInSequence)
	assert.Equal(t, 1, company.ContactsTouched)
}

func TestTransition_IllegalMoveRejected(t *testing.T) {
	s := memory.New()
	seedContact(s, "a@acme.com", "client1", "acme.com", domain.StatusFresh)
	m := statemachine.New(s, hotConfig)

	err := m.Transition(context.Background(), "a@acme.com", "client1", domain.StatusWonCustomer, statemachine.TransitionOptions{})
	require.Error(t, err)
	assert.True(t, dispoerrors.IsIllegalTransition(err))
}

func TestTransition_SameStateIsNoOp(t *testing.T) {
	s := memory.New()
	seedContact(s, "a@acme.com", "client1", "acme.com", domain.StatusFresh)
	m := statemachine.New(s, hotConfig)

	err := m.Transition(context.Background(), "a@acme.com", "client1", domain.StatusFresh, statemachine.TransitionOptions{})
	require.NoError(t, err)

	got, err := s.GetContact(context.Background(), "a@acme.com", "client1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFresh, got.DispositionStatus)
}

func TestTransition_CooldownSetOnCompletedNoResponse(t *testing.T) {
	s := memory.New()
	seedContact(s, "a@acme.com", "client1", "acme.com", domain.StatusInSequence)
	m := statemachine.New(s, hotConfig)

	before := time.Now()
	err := m.Transition(context.Background(), "a@acme.com", "client1", domain.StatusCompletedNoResponse, statemachine.TransitionOptions{})
	require.NoError(t, err)

	got, err := s.GetContact(context.Background(), "a@acme.com", "client1")
	require.NoError(t, err)
	email := got.Channel(domain.ChannelEmail)
	require.NotNil(t, email.CooldownUntil)
	assert.WithinDuration(t, before.AddDate(0, 0, 90), *email.CooldownUntil, time.Minute)
}

func TestTransition_HardNoSuppressesEntireCompany(t *testing.T) {
	s := memory.New()
	seedContact(s, "a@acme.com", "client1", "acme.com", domain.StatusInSequence)
	seedContact(s, "b@acme.com", "client1", "acme.com", domain.StatusInSequence)
	m := statemachine.New(s, hotConfig)

	err := m.Transition(context.Background(), "a@acme.com", "client1", domain.StatusRepliedHardNo, statemachine.TransitionOptions{})
	require.NoError(t, err)

	company, err := s.GetCompany(context.Background(), "acme.com")
	require.NoError(t, err)
	assert.Equal(t, domain.CompanySuppressed, company.Status)
	assert.True(t, company.Suppressed)

	hardNo, err := s.GetContact(context.Background(), "a@acme.com", "client1")
	require.NoError(t, err)
	assert.True(t, hardNo.EmailSuppressed())
	assert.True(t, hardNo.Channel(domain.ChannelLinkedIn).Suppressed)
	assert.True(t, hardNo.Channel(domain.ChannelPhone).Suppressed)

	other, err := s.GetContact(context.Background(), "b@acme.com", "client1")
	require.NoError(t, err)
	assert.True(t, other.EmailSuppressed())
	assert.False(t, other.Channel(domain.ChannelLinkedIn).Suppressed)
	assert.False(t, other.Channel(domain.ChannelPhone).Suppressed)
}

func TestTransition_WonCustomerMarksCompany(t *testing.T) {
	s := memory.New()
	seedContact(s, "a@acme.com", "client1", "acme.com", domain.StatusRepliedPositive)
	m := statemachine.New(s, hotConfig)

	err := m.Transition(context.Background(), "a@acme.com", "client1", domain.StatusWonCustomer, statemachine.TransitionOptions{})
	require.NoError(t, err)

	company, err := s.GetCompany(context.Background(), "acme.com")
	require.NoError(t, err)
	assert.Equal(t, domain.CompanyCustomer, company.Status)
	assert.True(t, company.IsCustomer)
	assert.NotNil(t, company.CustomerSince)
}

func TestSweepExpiredCooldowns_MovesToRetouchEligible(t *testing.T) {
	s := memory.New()
	c := seedContact(s, "a@acme.com", "client1", "acme.com", domain.StatusCompletedNoResponse)
	past := time.Now().Add(-time.Hour)
	c.Channels[domain.ChannelEmail] = &domain.ChannelFields{CooldownUntil: &past}
	s.Seed(c)

	m := statemachine.New(s, hotConfig)
	n, err := m.SweepExpiredCooldowns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.GetContact(context.Background(), "a@acme.com", "client1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRetouchEligible, got.DispositionStatus)
}

func TestSweepStaleData_FlagsOldEnrichment(t *testing.T) {
	s := memory.New()
	c := seedContact(s, "a@acme.com", "client1", "acme.com", domain.StatusFresh)
	old := time.Now().AddDate(0, -7, 0)
	c.DataEnrichedAt = &old
	s.Seed(c)

	m := statemachine.New(s, hotConfig)
	n, err := m.SweepStaleData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.GetContact(context.Background(), "a@acme.com", "client1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusStaleData, got.DispositionStatus)
}
