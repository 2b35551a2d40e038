package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/brightfunnel/disposition/internal/domain"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
)

var genericLocalParts = map[string]bool{
	"info": true, "support": true, "hello": true, "contact": true,
	"noreply": true, "no-reply": true, "admin": true,
}

// jinaAdapter uses Jina AI Reader to fetch a page as markdown and
// regex-extracts contact emails from it, either from a company's
// team/about pages or from a keyword search. Grounded on
// original_source/src/lead_disposition/providers/jina.py.
type jinaAdapter struct {
	httpBase
	readerURL string
	apiKey    string
}

var teamPagePaths = []string{"/team", "/about", "/about-us", "/contact", "/our-team", "/people"}

func newJina(cfg AdapterConfig) Adapter {
	return &jinaAdapter{
		httpBase:  newHTTPBase("jina", 3, cfg.TimeoutSeconds),
		readerURL: cfg.Endpoint,
		apiKey:    cfg.APIKey,
	}
}

func (j *jinaAdapter) SearchLeads(ctx context.Context, criteria SearchCriteria) (Result, error) {
	if len(criteria.CompanyDomains) == 0 {
		return j.searchByKeywords(ctx, criteria)
	}

	domains := criteria.CompanyDomains
	if criteria.Limit > 0 && criteria.Limit < len(domains) {
		domains = domains[:criteria.Limit]
	}

	var allLeads []domain.Lead
	var errs []string
	credits := 0.0

	for _, companyDomain := range domains {
		leads, c, scrapeErrs := j.scrapeCompany(ctx, companyDomain)
		allLeads = append(allLeads, leads...)
		errs = append(errs, scrapeErrs...)
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

func (j *jinaAdapter) scrapeCompany(ctx context.Context, companyDomain string) ([]domain.Lead, float64, []string) {
	var leads []domain.Lead
	var errs []string
	credits := 0.0

	for _, path := range teamPagePaths {
		target := fmt.Sprintf("https://%s%s", companyDomain, path)
		content, status, err := j.fetch(ctx, target)
		credits++
		if err != nil {
			errs = append(errs, fmt.Sprintf("jina scrape error for %s: %v", target, err))
			continue
		}
		if status != http.StatusOK {
			continue
		}
		extracted := extractContacts(content, companyDomain, j.Name())
		leads = append(leads, extracted...)
		if len(leads) > 0 {
			break
		}
	}

	return leads, credits, errs
}

func (j *jinaAdapter) searchByKeywords(ctx context.Context, criteria SearchCriteria) (Result, error) {
	var parts []string
	if criteria.Industry != "" {
		parts = append(parts, criteria.Industry)
	}
	if len(criteria.JobTitles) > 0 {
		parts = append(parts, strings.Join(criteria.JobTitles, " "))
	}
	if len(criteria.Keywords) > 0 {
		parts = append(parts, strings.Join(criteria.Keywords, " "))
	}
	if len(parts) == 0 {
		return Result{Errors: []string{"No search criteria provided for Jina"}}, nil
	}

	query := strings.Join(parts, " ") + " team contact email"
	searchURL := "https://s.jina.ai/?q=" + url.QueryEscape(query)

	content, status, err := j.fetch(ctx, searchURL)
	if err != nil {
		return Result{Errors: []string{fmt.Sprintf("jina search error: %v", err)}}, nil
	}
	if status != http.StatusOK {
		return Result{Errors: []string{fmt.Sprintf("jina search returned %d", status)}, CreditsConsumed: 1.0}, nil
	}

	leads := extractContacts(content, "", j.Name())
	if criteria.Limit > 0 && len(leads) > criteria.Limit {
		leads = leads[:criteria.Limit]
	}
	return Result{Leads: leads, TotalFound: len(leads), CreditsConsumed: 1.0}, nil
}

func (j *jinaAdapter) fetch(ctx context.Context, target string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.readerURL+"/"+target, nil)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Accept", "text/plain")
	if j.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+j.apiKey)
	}
	resp, err := j.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, err
	}
	return string(body), resp.StatusCode, nil
}

func (j *jinaAdapter) HealthCheck(ctx context.Context) (bool, error) {
	ok, err := j.httpBase.HealthCheck(ctx, j.readerURL+"/https://example.com")
	return ok, err
}

// extractContacts pulls unique, non-generic email addresses out of
// scraped markdown and guesses a first/last name from a
// "first.last@" local part, matching the shared heuristic in the
// jina and spider adapters.
func extractContacts(content, companyDomain, providerName string) []domain.Lead {
	seen := map[string]bool{}
	var leads []domain.Lead

	for _, email := range emailPattern.FindAllString(content, -1) {
		emailLower := strings.ToLower(email)
		if seen[emailLower] {
			continue
		}
		local := emailLower
		if at := strings.Index(emailLower, "@"); at >= 0 {
			local = emailLower[:at]
		}
		if genericLocalParts[local] {
			continue
		}
		seen[emailLower] = true

		var firstName, lastName string
		if strings.Contains(local, ".") {
			parts := strings.SplitN(local, ".", 2)
			firstName = capitalize(parts[0])
			lastName = capitalize(parts[len(parts)-1])
		}

		domainName := companyDomain
		if domainName == "" {
			if at := strings.Index(emailLower, "@"); at >= 0 {
				domainName = emailLower[at+1:]
			}
		}

		leads = append(leads, domain.Lead{
			Email:         emailLower,
			FirstName:     firstName,
			LastName:      lastName,
			CompanyDomain: domainName,
			ProviderName:  providerName,
		})
	}
	return leads
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
