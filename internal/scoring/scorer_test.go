package scoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/agstya/antigravity-job-search-agent/internal/criteria"
	"github.com/agstya/antigravity-job-search-agent/internal/jobs"
)

func TestParseResult(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
		score   int
	}{
		{
			name:  "bare object",
			raw:   `{"is_match": true, "score": 8, "reasons": ["fit"], "flags": [], "confidence": "high"}`,
			score: 8,
		},
		{
			name:  "surrounded by prose",
			raw:   `Here is my evaluation: {"is_match": false, "score": 3, "reasons": [], "flags": [], "confidence": "medium"} hope that helps`,
			score: 3,
		},
		{
			name: "fenced block",
			raw: "Sure!\n```json\n{\"is_match\": true, \"score\": 7, \"reasons\": [], \"flags\": [], \"confidence\": \"low\"}\n```",
			score: 7,
		},
		{name: "no json", raw: "I cannot evaluate this job.", wantErr: true},
		{name: "score out of range", raw: `{"is_match": true, "score": 11, "reasons": [], "flags": [], "confidence": "high"}`, wantErr: true},
		{name: "score zero", raw: `{"is_match": false, "score": 0, "reasons": [], "flags": [], "confidence": "low"}`, wantErr: true},
		{name: "bad confidence", raw: `{"is_match": true, "score": 5, "reasons": [], "flags": [], "confidence": "certain"}`, wantErr: true},
		{name: "truncated json", raw: `{"is_match": true, "score": 5,`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseResult(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", r)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.Score != tt.score {
				t.Fatalf("score = %d, want %d", r.Score, tt.score)
			}
		})
	}
}

func TestParseResultTruncatesReasons(t *testing.T) {
	raw := `{"is_match": true, "score": 8, "reasons": ["a","b","c","d","e","f","g","h"], "flags": [], "confidence": "high"}`
	r, err := ParseResult(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(r.Reasons) != 6 {
		t.Fatalf("reasons not truncated to 6, got %d", len(r.Reasons))
	}
}

// ollamaStub serves canned /api/generate responses in order.
func ollamaStub(t *testing.T, responses []string) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if calls >= len(responses) {
			t.Errorf("unexpected extra call %d", calls+1)
			http.Error(w, "too many calls", http.StatusInternalServerError)
			return
		}
		resp := responses[calls]
		calls++
		json.NewEncoder(w).Encode(map[string]string{"response": resp})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testJob() *jobs.JobRecord {
	return &jobs.JobRecord{
		Title:       "ML Engineer",
		Company:     "Acme",
		URL:         "https://a/1",
		Description: "build agents",
		KeywordHits: 3,
	}
}

func TestScoreRepairRecovers(t *testing.T) {
	valid := `{"is_match": true, "score": 9, "reasons": ["strong fit"], "flags": [], "confidence": "high"}`
	srv, calls := ollamaStub(t, []string{"sorry, I can't do JSON today", valid})

	s := NewScorer(srv.URL, "llama3")
	r := s.Score(context.Background(), testJob(), criteria.Defaults())
	if r.Score != 9 || !r.IsMatch {
		t.Fatalf("expected repaired score 9, got %+v", r)
	}
	for _, f := range r.Flags {
		if f == "scoring_failed" {
			t.Fatalf("repaired result should not carry scoring_failed")
		}
	}
	if *calls != 2 {
		t.Fatalf("expected 2 calls (attempt + repair), got %d", *calls)
	}
}

func TestScoreDoubleFailureFallsBack(t *testing.T) {
	srv, calls := ollamaStub(t, []string{"nope", "still nope"})

	s := NewScorer(srv.URL, "llama3")
	job := testJob()
	r := s.Score(context.Background(), job, criteria.Defaults())
	if *calls != 2 {
		t.Fatalf("expected exactly 2 calls, got %d", *calls)
	}
	if r.Score != 6 {
		t.Fatalf("3 keyword hits should scale to score 6, got %d", r.Score)
	}
	if r.IsMatch {
		t.Fatalf("fallback result should not be a match")
	}
	found := false
	for _, f := range r.Flags {
		if f == "scoring_failed" {
			found = true
		}
	}
	if !found {
		t.Fatalf("fallback result missing scoring_failed flag: %v", r.Flags)
	}
}

func TestFallbackScoreBounds(t *testing.T) {
	j := testJob()
	j.KeywordHits = 0
	if r := fallbackResult(j); r.Score != 1 {
		t.Fatalf("zero hits should floor at 1, got %d", r.Score)
	}
	j.KeywordHits = 12
	if r := fallbackResult(j); r.Score != 10 {
		t.Fatalf("many hits should cap at 10, got %d", r.Score)
	}
}

func TestDryRunSkipsNetwork(t *testing.T) {
	s := NewDryRunScorer()
	r := s.Score(context.Background(), testJob(), criteria.Defaults())
	if r.Score != 5 || !r.IsMatch || r.Confidence != "low" {
		t.Fatalf("dry run verdict wrong: %+v", r)
	}
}

func TestRepairPromptEmbedsTruncatedOutput(t *testing.T) {
	long := strings.Repeat("x", 2000)
	var prompts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		prompts = append(prompts, req.Prompt)
		json.NewEncoder(w).Encode(map[string]string{"response": long})
	}))
	defer srv.Close()

	s := NewScorer(srv.URL, "llama3")
	s.Score(context.Background(), testJob(), criteria.Defaults())
	if len(prompts) != 2 {
		t.Fatalf("expected 2 prompts, got %d", len(prompts))
	}
	if !strings.Contains(prompts[1], strings.Repeat("x", 500)) {
		t.Fatalf("repair prompt should embed previous output")
	}
	if strings.Contains(prompts[1], strings.Repeat("x", 501)) {
		t.Fatalf("previous output should be truncated to 500 chars")
	}
}

func TestScoreAllAppliesResults(t *testing.T) {
	valid := `{"is_match": true, "score": 8, "reasons": ["fit"], "flags": ["missing_salary"], "confidence": "medium"}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"response": valid})
	}))
	defer srv.Close()

	batch := []*jobs.JobRecord{testJob(), testJob()}
	NewScorer(srv.URL, "llama3").ScoreAll(context.Background(), batch, criteria.Defaults(), 2)
	for _, j := range batch {
		if j.LLMScore != 8 || !j.IsMatch || j.LLMConfidence != "medium" {
			t.Fatalf("result not applied: %+v", j)
		}
		if !j.HasFlag("missing_salary") {
			t.Fatalf("flags not applied")
		}
	}
}
