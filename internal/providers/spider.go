package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"github.com/brightfunnel/disposition/internal/domain"
)

var spiderRelevantKeywords = []string{"team", "about", "contact", "people", "staff", "leadership"}

// spiderAdapter crawls a company's site via spider.cloud and
// regex-extracts emails from pages whose URL or leading content looks
// like a team/contact page. Grounded on
// original_source/src/lead_disposition/providers/spider.py.
type spiderAdapter struct {
	httpBase
	endpoint string
	apiKey   string
}

func newSpider(cfg AdapterConfig) Adapter {
	return &spiderAdapter{
		httpBase: newHTTPBase("spider", 4, cfg.TimeoutSeconds),
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
	}
}

type spiderPage struct {
	Content  string `json:"content"`
	Markdown string `json:"markdown"`
	URL      string `json:"url"`
}

type spiderCrawlResponse struct {
	Data []spiderPage `json:"data"`
}

func (s *spiderAdapter) SearchLeads(ctx context.Context, criteria SearchCriteria) (Result, error) {
	if s.apiKey == "" {
		return Result{Errors: []string{"Spider API key not configured"}}, nil
	}
	if len(criteria.CompanyDomains) == 0 {
		return Result{Errors: []string{"Spider requires company_domains to crawl"}}, nil
	}

	domains := criteria.CompanyDomains
	if criteria.Limit > 0 && criteria.Limit < len(domains) {
		domains = domains[:criteria.Limit]
	}

	var allLeads []domain.Lead
	var errs []string
	credits := 0.0

	for _, companyDomain := range domains {
		leads, c, crawlErrs := s.crawlCompany(ctx, companyDomain)
		allLeads = append(allLeads, leads...)
		errs = append(errs, crawlErrs...)
		credits += c
	}

	if criteria.Limit > 0 && len(allLeads) > criteria.Limit {
		allLeads = allLeads[:criteria.Limit]
	}

	return Result{
		Leads:           allLeads,
		TotalFound:      len(allLeads),
		CreditsConsumed: credits,
		Errors:          errs,
	}, nil
}

func (s *spiderAdapter) crawlCompany(ctx context.Context, companyDomain string) ([]domain.Lead, float64, []string) {
	payload := map[string]any{
		"url":           "https://" + companyDomain,
		"limit":         10,
		"return_format": "markdown",
		"request":       "smart",
		"depth":         2,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, []string{err.Error()}
	}

	var parsed spiderCrawlResponse
	err = s.do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/crawl", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(fmt.Errorf("spider api error for %s: %d", companyDomain, resp.StatusCode))
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("spider api error for %s: %d", companyDomain, resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(&parsed)
	})
	if err != nil {
		return nil, 1.0, []string{fmt.Sprintf("spider connection error for %s: %v", companyDomain, err)}
	}

	seen := map[string]bool{}
	var leads []domain.Lead
	for _, page := range parsed.Data {
		content := page.Content
		if content == "" {
			content = page.Markdown
		}
		if !pageLooksRelevant(page.URL, content) {
			continue
		}
		for _, lead := range extractContacts(content, companyDomain, s.Name()) {
			if seen[lead.Email] {
				continue
			}
			if localIsGeneric(lead.Email, "sales", "marketing") {
				continue
			}
			seen[lead.Email] = true
			leads = append(leads, lead)
		}
	}

	return leads, float64(len(parsed.Data)) * 0.5, nil
}

func pageLooksRelevant(pageURL, content string) bool {
	lowerURL := strings.ToLower(pageURL)
	for _, kw := range spiderRelevantKeywords {
		if strings.Contains(lowerURL, kw) {
			return true
		}
	}
	preview := content
	if len(preview) > 500 {
		preview = preview[:500]
	}
	preview = strings.ToLower(preview)
	for _, kw := range spiderRelevantKeywords {
		if strings.Contains(preview, kw) {
			return true
		}
	}
	return false
}

func localIsGeneric(email string, extra ...string) bool {
	local := email
	if at := strings.Index(email, "@"); at >= 0 {
		local = email[:at]
	}
	if genericLocalParts[local] {
		return true
	}
	for _, e := range extra {
		if local == e {
			return true
		}
	}
	return false
}

func (s *spiderAdapter) HealthCheck(ctx context.Context) (bool, error) {
	if s.apiKey == "" {
		return false, nil
	}
	body, _ := json.Marshal(map[string]any{"url": "https://example.com", "return_format": "markdown"})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/scrape", bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return false, nil //nolint:nilerr
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500, nil
}
