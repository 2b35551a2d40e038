package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/brightfunnel/disposition/internal/domain"
)

// clayAdapter pushes search criteria to a Clay webhook, which fans the
// request out across Clay's own waterfall of 150+ enrichment sources
// and either responds immediately or returns a run ID to poll.
// Grounded on original_source/src/lead_disposition/providers/clay.py.
type clayAdapter struct {
	httpBase
	webhookURL string
	apiKey     string
}

func newClay(cfg AdapterConfig) Adapter {
	return &clayAdapter{
		httpBase:   newHTTPBase("clay", 2, cfg.TimeoutSeconds),
		webhookURL: cfg.Endpoint,
		apiKey:     cfg.APIKey,
	}
}

type clayRow struct {
	Email         string `json:"email"`
	WorkEmail     string `json:"work_email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Company       string `json:"company"`
	Domain        string `json:"domain"`
	Title         string `json:"title"`
}

type clayResponse struct {
	Results []clayRow `json:"results"`
	Rows    []clayRow `json:"rows"`
	RunID   string    `json:"run_id"`
	ID      string    `json:"id"`
	Status  string    `json:"status"`
	Error   string    `json:"error"`
}

func (c *clayAdapter) SearchLeads(ctx context.Context, criteria SearchCriteria) (Result, error) {
	if c.webhookURL == "" {
		return Result{Errors: []string{"Clay webhook URL not configured"}}, nil
	}

	payload := map[string]any{
		"client_id":       criteria.ClientID,
		"industry":        criteria.Industry,
		"job_titles":      criteria.JobTitles,
		"locations":       criteria.Locations,
		"company_sizes":   criteria.CompanySizes,
		"keywords":        criteria.Keywords,
		"company_domains": criteria.CompanyDomains,
		"limit":           criteria.Limit,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("marshal clay request: %w", err)
	}

	var parsed clayResponse
	err = c.do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(fmt.Errorf("clay webhook error: %d", resp.StatusCode))
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("clay webhook error: %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(&parsed)
	})
	if err != nil {
		return Result{Errors: []string{err.Error()}}, nil
	}

	if len(parsed.Results) > 0 || len(parsed.Rows) > 0 {
		return c.parseRows(parsed), nil
	}

	runID := firstNonEmpty(parsed.RunID, parsed.ID)
	if runID != "" && c.apiKey != "" {
		return c.pollResults(ctx, runID)
	}

	return Result{Errors: []string{"Clay webhook accepted - results will arrive asynchronously"}}, nil
}

func (c *clayAdapter) parseRows(parsed clayResponse) Result {
	rows := parsed.Results
	if len(rows) == 0 {
		rows = parsed.Rows
	}
	var leads []domain.Lead
	for _, row := range rows {
		email := firstNonEmpty(row.Email, row.WorkEmail)
		if email == "" {
			continue
		}
		leads = append(leads, domain.Lead{
			Email:         email,
			FirstName:     row.FirstName,
			LastName:      row.LastName,
			CompanyName:   row.Company,
			CompanyDomain: row.Domain,
			Title:         row.Title,
			ProviderName:  c.Name(),
		})
	}
	return Result{
		Leads:           leads,
		TotalFound:      len(leads),
		CreditsConsumed: float64(len(leads)) * 2.0,
	}
}

// pollResults polls a Clay run until it completes, fails, or max_wait
// elapses, matching the 10s-interval/180s-ceiling cadence of the
// original polling loop.
func (c *clayAdapter) pollResults(ctx context.Context, runID string) (Result, error) {
	pollURL := fmt.Sprintf("https://api.clay.com/v1/runs/%s", runID)
	deadline := time.Now().Add(180 * time.Second)

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return Result{Errors: []string{ctx.Err().Error()}}, nil
		case <-time.After(10 * time.Second):
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pollURL, nil)
		if err != nil {
			return Result{}, err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			continue
		}
		var data clayResponse
		decErr := json.NewDecoder(resp.Body).Decode(&data)
		resp.Body.Close()
		if decErr != nil {
			continue
		}
		switch data.Status {
		case "completed", "done":
			return c.parseRows(data), nil
		case "failed", "error":
			return Result{Errors: []string{fmt.Sprintf("clay run %s failed: %s", runID, data.Error)}}, nil
		}
	}

	return Result{Errors: []string{fmt.Sprintf("clay run %s timed out after 180s", runID)}}, nil
}

func (c *clayAdapter) HealthCheck(ctx context.Context) (bool, error) {
	return c.webhookURL != "", nil
}
