package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cenkalti/backoff/v4"

	"github.com/brightfunnel/disposition/internal/domain"
)

// aiArkAdapter wraps AI Ark's B2B contact database, a semantic and
// similarity search API over people records. Grounded on
// original_source/src/lead_disposition/providers/ai_ark.py.
type aiArkAdapter struct {
	httpBase
	endpoint string
	apiKey   string
}

func newAIArk(cfg AdapterConfig) Adapter {
	return &aiArkAdapter{
		httpBase: newHTTPBase("ai_ark", 1, cfg.TimeoutSeconds),
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
	}
}

type aiArkRequest struct {
	Limit          int      `json:"limit"`
	JobTitles      []string `json:"job_titles,omitempty"`
	Industry       string   `json:"industry,omitempty"`
	Locations      []string `json:"locations,omitempty"`
	CompanySizes   []string `json:"company_sizes,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
	CompanyDomains []string `json:"company_domains,omitempty"`
}

type aiArkPerson struct {
	Email         string `json:"email"`
	WorkEmail     string `json:"work_email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Company       string `json:"company"`
	CompanyName   string `json:"company_name"`
	Domain        string `json:"domain"`
	CompanyDomain string `json:"company_domain"`
	Title         string `json:"title"`
	JobTitle      string `json:"job_title"`
	ID            string `json:"id"`
}

type aiArkResponse struct {
	Results []aiArkPerson `json:"results"`
	Data    []aiArkPerson `json:"data"`
	Total   int           `json:"total"`
}

func (a *aiArkAdapter) SearchLeads(ctx context.Context, criteria SearchCriteria) (Result, error) {
	if a.apiKey == "" {
		return Result{Errors: []string{"AI Ark API key not configured"}}, nil
	}

	payload := aiArkRequest{
		Limit:          criteria.Limit,
		JobTitles:      criteria.JobTitles,
		Industry:       criteria.Industry,
		Locations:      criteria.Locations,
		CompanySizes:   criteria.CompanySizes,
		Keywords:       criteria.Keywords,
		CompanyDomains: criteria.CompanyDomains,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("marshal ai_ark request: %w", err)
	}

	var parsed aiArkResponse
	err = a.do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint+"/people/search", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := a.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(fmt.Errorf("ai_ark api error: %d", resp.StatusCode))
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("ai_ark api error: %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(&parsed)
	})
	if err != nil {
		return Result{Errors: []string{err.Error()}}, nil
	}

	results := parsed.Results
	if len(results) == 0 {
		results = parsed.Data
	}

	var leads []domain.Lead
	for _, item := range results {
		email := firstNonEmpty(item.Email, item.WorkEmail)
		if email == "" {
			continue
		}
		leads = append(leads, domain.Lead{
			Email:          email,
			FirstName:      item.FirstName,
			LastName:       item.LastName,
			CompanyName:    firstNonEmpty(item.CompanyName, item.Company),
			CompanyDomain:  firstNonEmpty(item.CompanyDomain, item.Domain),
			Title:          firstNonEmpty(item.Title, item.JobTitle),
			ProviderName:   a.Name(),
			ProviderLeadID: item.ID,
		})
	}

	total := parsed.Total
	if total == 0 {
		total = len(leads)
	}

	return Result{
		Leads:           leads,
		TotalFound:      total,
		CreditsConsumed: float64(len(leads)),
	}, nil
}

func (a *aiArkAdapter) HealthCheck(ctx context.Context) (bool, error) {
	if a.apiKey == "" {
		return false, nil
	}
	return a.httpBase.HealthCheck(ctx, a.endpoint+"/health")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
