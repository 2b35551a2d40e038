// Package bridge maps one intake queue row from the external
// onboarding/suggestion system into a waterfall.Request. It is a pure
// mapper: no I/O, no store dependency, so it can be unit tested against
// raw JSON fixtures. Grounded on
// original_source/src/lead_disposition/bridge/charm_mapper.py.
package bridge

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/brightfunnel/disposition/internal/domain"
	"github.com/brightfunnel/disposition/internal/store"
	"github.com/brightfunnel/disposition/internal/waterfall"
)

// searchCriteria is the shape of BridgeJob.SearchCriteriaJSON, written
// by the upstream onboarding pipeline's trigger.
type searchCriteria struct {
	TitleKeywords  json.RawMessage `json:"title_keywords"`
	PersonaTitles  json.RawMessage `json:"persona_titles"`
	SearchKeywords json.RawMessage `json:"search_keywords"`
	Signals        json.RawMessage `json:"signals"`
	Industry       string          `json:"industry"`
}

// MapJobRow converts a claimed BridgeJob into a waterfall.Request
// (spec §6). It returns an error when search_criteria is not valid
// JSON for the expected shape; within well-formed criteria, list
// entries it can't flatten are dropped rather than rejecting the job.
func MapJobRow(job *store.BridgeJob) (waterfall.Request, error) {
	var criteria searchCriteria
	if len(job.SearchCriteriaJSON) > 0 {
		if err := json.Unmarshal(job.SearchCriteriaJSON, &criteria); err != nil {
			return waterfall.Request{}, fmt.Errorf("unmarshal search_criteria: %w", err)
		}
	}

	titleKeywords := flattenStrings(criteria.TitleKeywords)
	personaTitles := flattenStrings(criteria.PersonaTitles)
	allTitles := dedupPreserveOrder(append(titleKeywords, personaTitles...))

	searchKeywords := flattenStrings(criteria.SearchKeywords)
	searchKeywords = append(searchKeywords, flattenSignals(criteria.Signals)...)

	campaignID := job.SuggestionID
	if campaignID == "" {
		campaignID = job.ID
	}

	channel := domain.Channel(strings.ToLower(job.Channel))
	if !channel.IsValid() {
		channel = domain.ChannelEmail
	}

	volume := job.Volume
	if volume <= 0 {
		volume = 500
	}

	maxCredits := job.MaxExternalCredits
	if maxCredits <= 0 {
		maxCredits = 100.0
	}

	req := waterfall.Request{
		CampaignID:         campaignID,
		ClientID:           job.ClientID,
		Channel:            channel,
		Volume:             volume,
		TitleKeywords:      allTitles,
		SearchKeywords:     searchKeywords,
		Industry:           criteria.Industry,
		EnableExternal:     job.EnableExternal,
		MaxExternalCredits: maxCredits,
	}
	return req, nil
}

// flattenStrings normalizes a JSON value that may be a string, a list
// of strings, or absent, into a []string.
func flattenStrings(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == "" {
			return nil
		}
		return []string{single}
	}

	var list []any
	if err := json.Unmarshal(raw, &list); err == nil {
		var out []string
		for _, v := range list {
			if s := stringify(v); s != "" {
				out = append(out, s)
			}
		}
		return out
	}

	return nil
}

// flattenSignals handles the signals field, which may hold plain
// strings or {"name": "..."} objects.
func flattenSignals(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}
	var out []string
	for _, item := range list {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			if s != "" {
				out = append(out, s)
			}
			continue
		}
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(item, &obj); err == nil && obj.Name != "" {
			out = append(out, obj.Name)
		}
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func dedupPreserveOrder(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range in {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
