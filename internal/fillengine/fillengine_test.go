package fillengine_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightfunnel/disposition/internal/config"
	"github.com/brightfunnel/disposition/internal/domain"
	"github.com/brightfunnel/disposition/internal/fillengine"
	"github.com/brightfunnel/disposition/internal/statemachine"
	"github.com/brightfunnel/disposition/internal/store/memory"
)

func hotConfig() config.HotConfig {
	return config.HotConfig{
		FreshRetouchRatio:       0.7,
		MaxContactsPerCompany:   2,
		OwnershipDurationMonths: 12,
		Cooldowns:               config.CooldownDefaults{},
	}
}

func seedFreshPool(s *memory.Store, n int, companyPrefix string, perCompany int) {
	companyIdx, withinCompany := 0, 0
	for i := 0; i < n; i++ {
		if withinCompany == perCompany {
			companyIdx++
			withinCompany = 0
		}
		domainName := fmt.Sprintf("%s%d.com", companyPrefix, companyIdx)
		s.SeedCompany(&domain.Company{Domain: domainName, Status: domain.CompanyFresh})
		s.Seed(&domain.Contact{
			Email:             fmt.Sprintf("c%d@%s", i, domainName),
			ClientID:          "client1",
			CompanyDomain:     domainName,
			DispositionStatus: domain.StatusFresh,
			Channels:          map[domain.Channel]*domain.ChannelFields{},
		})
		withinCompany++
	}
}

func TestFill_BlendsFreshAndRetouchByRatio(t *testing.T) {
	s := memory.New()
	seedFreshPool(s, 20, "fresh", 1)
	for i := 0; i < 10; i++ {
		domainName := fmt.Sprintf("retouch%d.com", i)
		s.SeedCompany(&domain.Company{Domain: domainName, Status: domain.CompanyFresh})
		s.Seed(&domain.Contact{
			Email:             fmt.Sprintf("r%d@%s", i, domainName),
			ClientID:          "client1",
			CompanyDomain:     domainName,
			DispositionStatus: domain.StatusRetouchEligible,
			Channels:          map[domain.Channel]*domain.ChannelFields{},
		})
	}

	sm := statemachine.New(s, hotConfig)
	e := fillengine.New(s, sm, hotConfig)

	result, err := e.Fill(context.Background(), fillengine.Request{
		CampaignID: "camp-1",
		ClientID:   "client1",
		Volume:     10,
		Channel:    domain.ChannelEmail,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, result.TotalAssigned)
	assert.Equal(t, 7, result.FreshCount)
	assert.Equal(t, 3, result.RetouchCount)
}

func TestFill_RespectsPerCompanyCap(t *testing.T) {
	s := memory.New()
	// One company with far more eligible contacts than the cap allows.
	s.SeedCompany(&domain.Company{Domain: "big.com", Status: domain.CompanyFresh})
	for i := 0; i < 10; i++ {
		s.Seed(&domain.Contact{
			Email:             fmt.Sprintf("c%d@big.com", i),
			ClientID:          "client1",
			CompanyDomain:     "big.com",
			DispositionStatus: domain.StatusFresh,
			Channels:          map[domain.Channel]*domain.ChannelFields{},
		})
	}

	sm := statemachine.New(s, hotConfig)
	e := fillengine.New(s, sm, hotConfig)

	result, err := e.Fill(context.Background(), fillengine.Request{
		CampaignID:    "camp-1",
		ClientID:      "client1",
		Volume:        10,
		Channel:       domain.ChannelEmail,
		MaxPerCompany: 2,
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, result.TotalAssigned, 2)
	assert.Contains(t, result.Warnings[0], "volume shortfall")
}

func TestFill_ExcludesContactsWithStaleEnrichmentData(t *testing.T) {
	s := memory.New()
	s.SeedCompany(&domain.Company{Domain: "acme.com", Status: domain.CompanyFresh})

	stale := time.Now().AddDate(0, 0, -200)
	s.Seed(&domain.Contact{
		Email:             "stale@acme.com",
		ClientID:          "client1",
		CompanyDomain:     "acme.com",
		DispositionStatus: domain.StatusFresh,
		DataEnrichedAt:    &stale,
		Channels:          map[domain.Channel]*domain.ChannelFields{},
	})
	fresh := time.Now().AddDate(0, 0, -10)
	s.Seed(&domain.Contact{
		Email:             "fresh@acme.com",
		ClientID:          "client1",
		CompanyDomain:     "acme.com",
		DispositionStatus: domain.StatusFresh,
		DataEnrichedAt:    &fresh,
		Channels:          map[domain.Channel]*domain.ChannelFields{},
	})

	sm := statemachine.New(s, hotConfig)
	e := fillengine.New(s, sm, hotConfig)

	result, err := e.Fill(context.Background(), fillengine.Request{
		CampaignID: "camp-1",
		ClientID:   "client1",
		Volume:     10,
		Channel:    domain.ChannelEmail,
	})
	require.NoError(t, err)
	require.Len(t, result.Contacts, 1)
	assert.Equal(t, "fresh@acme.com", result.Contacts[0].Email)
}

func TestFill_ClaimsUnownedCompanyOwnership(t *testing.T) {
	s := memory.New()
	s.SeedCompany(&domain.Company{Domain: "acme.com", Status: domain.CompanyFresh})
	s.Seed(&domain.Contact{
		Email:             "a@acme.com",
		ClientID:          "client1",
		CompanyDomain:     "acme.com",
		DispositionStatus: domain.StatusFresh,
		Channels:          map[domain.Channel]*domain.ChannelFields{},
	})

	sm := statemachine.New(s, hotConfig)
	e := fillengine.New(s, sm, hotConfig)

	_, err := e.Fill(context.Background(), fillengine.Request{
		CampaignID: "camp-1",
		ClientID:   "client1",
		Volume:     1,
		Channel:    domain.ChannelEmail,
	})
	require.NoError(t, err)

	company, err := s.GetCompany(context.Background(), "acme.com")
	require.NoError(t, err)
	assert.Equal(t, "client1", company.ClientOwnerID)
}

func TestFill_TransitionsContactsToInSequence(t *testing.T) {
	s := memory.New()
	s.SeedCompany(&domain.Company{Domain: "acme.com", Status: domain.CompanyFresh})
	s.Seed(&domain.Contact{
		Email:             "a@acme.com",
		ClientID:          "client1",
		CompanyDomain:     "acme.com",
		DispositionStatus: domain.StatusFresh,
		Channels:          map[domain.Channel]*domain.ChannelFields{},
	})

	sm := statemachine.New(s, hotConfig)
	e := fillengine.New(s, sm, hotConfig)

	_, err := e.Fill(context.Background(), fillengine.Request{
		CampaignID: "camp-1",
		ClientID:   "client1",
		Volume:     1,
		Channel:    domain.ChannelEmail,
	})
	require.NoError(t, err)

	got, err := s.GetContact(context.Background(), "a@acme.com", "client1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInSequence, got.DispositionStatus)
	assert.Equal(t, 1, got.SequenceCount)
}
