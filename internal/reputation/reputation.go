// Package reputation scores company credibility from an allowlist of
// established tech companies plus optional funding-signal searches
// against a local SearXNG instance. Reputation never blocks a job; a
// failed check degrades to a neutral score with an evidence note.
package reputation

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var knownCompanies = map[string]bool{
	"google": true, "meta": true, "apple": true, "amazon": true,
	"microsoft": true, "netflix": true, "openai": true, "anthropic": true,
	"nvidia": true, "tesla": true, "stripe": true, "figma": true,
	"airbnb": true, "uber": true, "lyft": true, "coinbase": true,
	"databricks": true, "snowflake": true, "datadog": true,
	"cloudflare": true, "twilio": true, "atlassian": true, "shopify": true,
	"salesforce": true, "adobe": true, "oracle": true, "ibm": true,
	"intel": true, "amd": true, "qualcomm": true, "broadcom": true,
	"palantir": true, "spotify": true, "twitter": true, "x": true,
	"reddit": true, "discord": true, "slack": true, "zoom": true,
	"doordash": true, "instacart": true, "robinhood": true, "plaid": true,
	"square": true, "block": true, "paypal": true, "linkedin": true,
	"github": true, "gitlab": true, "hashicorp": true, "elastic": true,
	"mongodb": true, "vercel": true, "supabase": true,
	"hugging face": true, "huggingface": true, "cohere": true,
	"deepmind": true, "stability ai": true, "midjourney": true,
	"notion": true, "linear": true, "anyscale": true, "langchain": true,
	"mistral": true, "together ai": true,
}

var fundingSignals = []string{
	"series a", "series b", "series c", "series d", "series e",
	"ipo", "publicly traded", "nasdaq", "nyse", "fortune 500",
	"raised", "funding", "valuation", "unicorn", "billion",
}

const maxEvidence = 5

// Assessment is the outcome of one company check.
type Assessment struct {
	Score    int // 0-10
	Evidence []string
}

// Checker assesses companies. A nil searx client limits checks to the
// allowlist and returns neutral scores for unknown companies.
type Checker struct {
	searx *SearxClient
}

func NewChecker(searx *SearxClient) *Checker {
	return &Checker{searx: searx}
}

// Check scores one company. Allowlist hits are definitive; otherwise
// funding signals from web search decide, and with search disabled the
// score stays neutral.
func (c *Checker) Check(ctx context.Context, company string) Assessment {
	lower := strings.ToLower(strings.TrimSpace(company))

	if knownCompanies[lower] {
		return Assessment{Score: 9,
			Evidence: []string{fmt.Sprintf("%s is a well-known tech company", company)}}
	}
	for known := range knownCompanies {
		if strings.Contains(lower, known) || strings.Contains(known, lower) {
			return Assessment{Score: 8,
				Evidence: []string{fmt.Sprintf("%s appears related to known company %q", company, known)}}
		}
	}

	if c.searx == nil {
		return Assessment{Score: 5,
			Evidence: []string{"web search disabled, using neutral score"}}
	}
	return c.searchSignals(ctx, company)
}

func (c *Checker) searchSignals(ctx context.Context, company string) Assessment {
	queries := []string{
		company + " company funding",
		company + " careers hiring",
	}

	var evidence []string
	hits := 0
	for _, q := range queries {
		results, err := c.searx.Search(ctx, q, 3)
		if err != nil {
			log.Printf("reputation search failed for %q: %v", company, err)
			return Assessment{Score: 5,
				Evidence: []string{fmt.Sprintf("reputation check failed: %v", err)}}
		}
		for _, r := range results {
			combined := strings.ToLower(r.Content + " " + r.Title)
			for _, signal := range fundingSignals {
				if strings.Contains(combined, signal) {
					hits++
					title := r.Title
					if len(title) > 80 {
						title = title[:80]
					}
					evidence = append(evidence, fmt.Sprintf("signal %q found: %s", signal, title))
					break
				}
			}
		}
	}

	score := 4
	switch {
	case hits >= 3:
		score = 8
	case hits >= 1:
		score = 6
	default:
		evidence = append(evidence, "no strong reputation signals found")
	}
	if len(evidence) > maxEvidence {
		evidence = evidence[:maxEvidence]
	}
	return Assessment{Score: score, Evidence: evidence}
}

// SearxClient queries a local SearXNG metasearch instance.
type SearxClient struct {
	baseURL string
	client  *http.Client
}

func NewSearxClient(baseURL string) *SearxClient {
	return &SearxClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// SearchResult is one SearXNG hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type searxResponse struct {
	Results []SearchResult `json:"results"`
}

// Search runs one query and returns at most max results.
func (s *SearxClient) Search(ctx context.Context, query string, max int) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("categories", "general")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("searxng returned status %d", resp.StatusCode)
	}

	var sr searxResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(sr.Results) > max {
		sr.Results = sr.Results[:max]
	}
	return sr.Results, nil
}
