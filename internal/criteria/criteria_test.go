package criteria

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleCriteria = `# Job Search Criteria

## Work arrangement
- Fully remote: yes
- Full-time only: yes
- Avoid contract: yes
- Avoid hourly: no

## Compensation
- Minimum salary: 150,000
- Maximum salary: 250,000

## Focus
- Keywords: agentic AI, LLM, machine learning, Go
- Seniority: senior, staff
- Exclude keywords: junior, intern

## Output
- Posted within days: 3
- Minimum LLM score: 7
- Max results per report: 20
`

func TestParseFields(t *testing.T) {
	spec := Parse(sampleCriteria)

	if !spec.FullyRemote || !spec.FullTimeOnly || !spec.AvoidContract {
		t.Fatalf("boolean flags parsed wrong: %+v", spec)
	}
	if spec.AvoidHourly {
		t.Fatalf("avoid hourly: no should parse as false")
	}
	if spec.MinSalary != 150000 || spec.MaxSalary != 250000 {
		t.Fatalf("salary parsed wrong: min=%d max=%d", spec.MinSalary, spec.MaxSalary)
	}
	if len(spec.Keywords) != 4 || spec.Keywords[0] != "agentic AI" {
		t.Fatalf("keywords parsed wrong: %v", spec.Keywords)
	}
	if len(spec.Seniority) != 2 || len(spec.ExcludeKeywords) != 2 {
		t.Fatalf("lists parsed wrong: %v / %v", spec.Seniority, spec.ExcludeKeywords)
	}
	if spec.PostedWithinDays != 3 || spec.MinLLMScore != 7 || spec.MaxResults != 20 {
		t.Fatalf("numeric fields parsed wrong: %+v", spec)
	}
	if spec.RawText == "" {
		t.Fatalf("raw text should be retained for prompts")
	}
}

func TestParseEmptyUsesDefaults(t *testing.T) {
	spec := Parse("")
	def := Defaults()
	if spec.PostedWithinDays != def.PostedWithinDays || spec.MinLLMScore != def.MinLLMScore {
		t.Fatalf("empty criteria should keep defaults: %+v", spec)
	}
	if spec.MaxResults != def.MaxResults || spec.MinKeywordHits != def.MinKeywordHits {
		t.Fatalf("empty criteria should keep defaults: %+v", spec)
	}
}

func TestParseFileMissing(t *testing.T) {
	if _, err := ParseFile(filepath.Join(t.TempDir(), "nope.md")); err == nil {
		t.Fatalf("expected error for missing criteria file")
	}
}

func TestParseFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "criteria.md")
	if err := os.WriteFile(path, []byte(sampleCriteria), 0o644); err != nil {
		t.Fatal(err)
	}
	spec, err := ParseFile(path)
	if err != nil {
		t.Fatalf("parse file: %v", err)
	}
	if spec.MinSalary != 150000 {
		t.Fatalf("unexpected min salary: %d", spec.MinSalary)
	}
}

func TestPromptTextFallback(t *testing.T) {
	spec := Defaults()
	spec.Keywords = []string{"LLM", "Go"}
	text := spec.PromptText()
	if text == "" {
		t.Fatalf("prompt text should summarize parsed fields when raw text is empty")
	}
}
