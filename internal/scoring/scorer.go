// Package scoring evaluates jobs against the candidate's criteria with
// a local Ollama model. Malformed model output gets one repair attempt;
// after that the job falls back to a deterministic keyword score so no
// candidate is ever silently dropped.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/agstya/antigravity-job-search-agent/internal/criteria"
	"github.com/agstya/antigravity-job-search-agent/internal/jobs"
)

const (
	maxPromptDescription = 2000
	maxRepairEcho        = 500
)

const scoringPrompt = `You are a job relevance evaluator. Given the candidate's criteria and a job listing, evaluate how well the job matches.

## Candidate Criteria:
%s

## Job Listing:
- **Title**: %s
- **Company**: %s
- **Location**: %s
- **Remote**: %s
- **Salary**: %s
- **Posted**: %s
- **Description**: %s

## Instructions:
Evaluate the job against the candidate's criteria. Consider:
1. Role relevance (title, keywords, seniority match)
2. Company quality (is it a reputed, established company?)
3. Technical fit against the candidate's target keywords
4. Compensation alignment (if salary is available)
5. Red flags (contract, hourly, junior-level, etc.)

## Required Output:
Respond ONLY with valid JSON matching this exact schema:
{
    "is_match": true/false,
    "score": <integer 1-10>,
    "reasons": ["reason1", "reason2", ...],
    "flags": ["flag1", ...],
    "confidence": "low" | "medium" | "high"
}

Rules:
- score 1-3: poor match
- score 4-6: partial match
- score 7-10: good match
- reasons: max 6 short bullet points explaining why
- flags: note issues like "missing_salary", "unknown_company", "seniority_mismatch"
- confidence: your confidence in the assessment

Respond ONLY with the JSON object. No other text.
`

const repairPrompt = `Your previous response was not valid JSON. Please respond with ONLY a valid JSON object matching this schema:
{
    "is_match": true/false,
    "score": <integer 1-10>,
    "reasons": ["reason1", "reason2", ...],
    "flags": ["flag1", ...],
    "confidence": "low" | "medium" | "high"
}

Previous response:
%s

Please fix the JSON and respond with ONLY the corrected JSON object.
`

// Scorer calls Ollama's /api/generate endpoint.
type Scorer struct {
	baseURL string
	model   string
	client  *http.Client
	dryRun  bool
}

// NewScorer creates a scoring client for the given model.
func NewScorer(baseURL, model string) *Scorer {
	return &Scorer{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// NewDryRunScorer returns a scorer that never touches the network and
// assigns every job a fixed neutral verdict.
func NewDryRunScorer() *Scorer {
	return &Scorer{dryRun: true}
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Score evaluates one job. The attempt sequence is strictly sequential:
// first prompt, then at most one repair prompt embedding the invalid
// output, then the keyword fallback.
func (s *Scorer) Score(ctx context.Context, job *jobs.JobRecord, spec criteria.Spec) *Result {
	if s.dryRun {
		return &Result{IsMatch: true, Score: 5, Confidence: "low",
			Reasons: []string{"dry run: scoring skipped"}}
	}

	raw, err := s.generate(ctx, s.buildPrompt(job, spec))
	if err != nil {
		log.Printf("scoring call failed for %q: %v", job.Title, err)
		return fallbackResult(job)
	}
	result, parseErr := ParseResult(raw)
	if parseErr == nil {
		return result
	}

	log.Printf("invalid scoring output for %q, retrying with repair prompt: %v", job.Title, parseErr)
	echo := raw
	if len(echo) > maxRepairEcho {
		echo = echo[:maxRepairEcho]
	}
	raw, err = s.generate(ctx, fmt.Sprintf(repairPrompt, echo))
	if err == nil {
		if result, parseErr = ParseResult(raw); parseErr == nil {
			return result
		}
	}

	log.Printf("all scoring attempts failed for %q at %s", job.Title, job.Company)
	return fallbackResult(job)
}

// fallbackResult scales the deterministic keyword count into the 1-10
// band and marks the job so the report shows scoring did not run.
func fallbackResult(job *jobs.JobRecord) *Result {
	score := job.KeywordHits * 2
	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}
	return &Result{
		IsMatch:    false,
		Score:      score,
		Reasons:    []string{fmt.Sprintf("keyword fallback: %d keyword matches", job.KeywordHits)},
		Flags:      []string{"scoring_failed"},
		Confidence: "low",
	}
}

// Apply copies a scoring result onto the job record.
func Apply(job *jobs.JobRecord, r *Result) {
	job.LLMScore = r.Score
	job.LLMReasons = r.Reasons
	job.LLMConfidence = r.Confidence
	job.IsMatch = r.IsMatch
	for _, f := range r.Flags {
		job.AddFlag(f)
	}
}

// ScoreAll scores jobs in place with up to workers concurrent model
// calls. Each job's attempt-repair-fallback sequence stays on one
// goroutine.
func (s *Scorer) ScoreAll(ctx context.Context, batch []*jobs.JobRecord, spec criteria.Spec, workers int) {
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, job := range batch {
		wg.Add(1)
		sem <- struct{}{}
		go func(n int, job *jobs.JobRecord) {
			defer wg.Done()
			defer func() { <-sem }()
			log.Printf("scoring job %d/%d: %q at %s", n+1, len(batch), job.Title, job.Company)
			Apply(job, s.Score(ctx, job, spec))
		}(i, job)
	}
	wg.Wait()
}

func (s *Scorer) buildPrompt(job *jobs.JobRecord, spec criteria.Spec) string {
	desc := job.Description
	if desc == "" {
		desc = "No description available"
	} else if len(desc) > maxPromptDescription {
		desc = desc[:maxPromptDescription]
	}
	return fmt.Sprintf(scoringPrompt,
		spec.PromptText(),
		job.Title,
		job.Company,
		orDefault(job.Location, "Not specified"),
		string(job.RemoteType),
		orDefault(job.SalaryText, "Not specified"),
		orDefault(job.PostedDate, "Unknown"),
		desc,
	)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func (s *Scorer) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:   s.model,
		Prompt:  prompt,
		Stream:  false,
		Options: generateOptions{Temperature: 0.1, NumPredict: 512},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return genResp.Response, nil
}
