package deconfliction_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightfunnel/disposition/internal/config"
	"github.com/brightfunnel/disposition/internal/deconfliction"
	"github.com/brightfunnel/disposition/internal/domain"
	"github.com/brightfunnel/disposition/internal/store/memory"
)

func hotConfig() config.HotConfig {
	return config.HotConfig{OwnershipDurationMonths: 12}
}

func TestClaim_UnownedCompanySucceeds(t *testing.T) {
	s := memory.New()
	s.SeedCompany(&domain.Company{Domain: "acme.com", Status: domain.CompanyFresh})
	d := deconfliction.New(s, hotConfig)

	ok, err := d.Claim(context.Background(), "acme.com", "client1", deconfliction.Config{})
	require.NoError(t, err)
	assert.True(t, ok)

	company, err := s.GetCompany(context.Background(), "acme.com")
	require.NoError(t, err)
	assert.Equal(t, "client1", company.ClientOwnerID)
	assert.NotNil(t, company.OwnershipExpiresAt)
}

func TestClaim_AlreadyOwnedByAnotherClientFails(t *testing.T) {
	s := memory.New()
	expiry := time.Now().Add(30 * 24 * time.Hour)
	s.SeedCompany(&domain.Company{Domain: "acme.com", ClientOwnerID: "client1", OwnershipExpiresAt: &expiry})
	d := deconfliction.New(s, hotConfig)

	ok, err := d.Claim(context.Background(), "acme.com", "client2", deconfliction.Config{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCanTarget_ExpiredWithNoActiveSequenceAllows(t *testing.T) {
	s := memory.New()
	expired := time.Now().Add(-time.Hour)
	s.SeedCompany(&domain.Company{Domain: "acme.com", ClientOwnerID: "client1", OwnershipExpiresAt: &expired, ContactsInSequence: 0})
	d := deconfliction.New(s, hotConfig)

	ok, err := d.CanTarget(context.Background(), "acme.com", "client2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCanTarget_ExpiredWithActiveSequenceDenies(t *testing.T) {
	s := memory.New()
	expired := time.Now().Add(-time.Hour)
	s.SeedCompany(&domain.Company{Domain: "acme.com", ClientOwnerID: "client1", OwnershipExpiresAt: &expired, ContactsInSequence: 2})
	d := deconfliction.New(s, hotConfig)

	ok, err := d.CanTarget(context.Background(), "acme.com", "client2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRelease_ClearsOwnership(t *testing.T) {
	s := memory.New()
	expiry := time.Now().Add(30 * 24 * time.Hour)
	s.SeedCompany(&domain.Company{Domain: "acme.com", ClientOwnerID: "client1", OwnershipExpiresAt: &expiry})
	d := deconfliction.New(s, hotConfig)

	ok, err := d.Release(context.Background(), "acme.com")
	require.NoError(t, err)
	assert.True(t, ok)

	company, err := s.GetCompany(context.Background(), "acme.com")
	require.NoError(t, err)
	assert.True(t, company.Unowned())
}

func TestTransfer_MovesOwnershipUnconditionally(t *testing.T) {
	s := memory.New()
	expiry := time.Now().Add(30 * 24 * time.Hour)
	s.SeedCompany(&domain.Company{Domain: "acme.com", ClientOwnerID: "client1", OwnershipExpiresAt: &expiry, ContactsInSequence: 5})
	d := deconfliction.New(s, hotConfig)

	ok, err := d.Transfer(context.Background(), "acme.com", "client2", deconfliction.Config{})
	require.NoError(t, err)
	assert.True(t, ok)

	company, err := s.GetCompany(context.Background(), "acme.com")
	require.NoError(t, err)
	assert.Equal(t, "client2", company.ClientOwnerID)
}

func TestSweepExpired_ReleasesEligibleCompanies(t *testing.T) {
	s := memory.New()
	expired := time.Now().Add(-time.Hour)
	s.SeedCompany(&domain.Company{Domain: "acme.com", ClientOwnerID: "client1", OwnershipExpiresAt: &expired, ContactsInSequence: 0})
	notExpired := time.Now().Add(time.Hour)
	s.SeedCompany(&domain.Company{Domain: "other.com", ClientOwnerID: "client1", OwnershipExpiresAt: &notExpired, ContactsInSequence: 0})
	d := deconfliction.New(s, hotConfig)

	n, err := d.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	acme, err := s.GetCompany(context.Background(), "acme.com")
	require.NoError(t, err)
	assert.True(t, acme.Unowned())

	other, err := s.GetCompany(context.Background(), "other.com")
	require.NoError(t, err)
	assert.False(t, other.Unowned())
}
