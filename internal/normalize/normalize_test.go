package normalize

import (
	"testing"

	"github.com/agstya/antigravity-job-search-agent/internal/criteria"
	"github.com/agstya/antigravity-job-search-agent/internal/jobs"
)

func TestDate(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"2025-06-01T12:00:00Z", "2025-06-01T12:00:00Z"},
		{"Mon, 02 Jun 2025 10:30:00 +0000", "2025-06-02T10:30:00Z"},
		{"2025-06-03", "2025-06-03T00:00:00Z"},
		{"June 4, 2025", "2025-06-04T00:00:00Z"},
		{"", ""},
		{"sometime soon", "sometime soon"}, // unparseable passes through
	}
	for _, c := range cases {
		if got := Date(c.in); got != c.want {
			t.Errorf("Date(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSalary(t *testing.T) {
	cases := []struct {
		in       string
		min, max int
	}{
		{"pays $150,000 - $200,000 per year", 150000, 200000},
		{"pays $150k–$200k", 150000, 200000},
		{"range 120,000 to 160,000 USD", 120000, 160000},
		{"base of $185,000", 185000, 0},
		{"competitive salary", 0, 0},
		{"$50 per hour", 0, 0}, // too small to be annual
	}
	for _, c := range cases {
		_, min, max := Salary(c.in)
		if min != c.min || max != c.max {
			t.Errorf("Salary(%q) = (%d, %d), want (%d, %d)", c.in, min, max, c.min, c.max)
		}
	}
}

func TestRemote(t *testing.T) {
	cases := []struct {
		in   string
		want jobs.RemoteType
	}{
		{"Fully remote, work from anywhere", jobs.RemoteRemote},
		{"Hybrid schedule in NYC", jobs.RemoteHybrid},
		{"On-site in Austin", jobs.RemoteOnsite},
		{"Remote (US only)", jobs.RemoteRemote},
		{"Great office perks", jobs.RemoteUnknown},
	}
	for _, c := range cases {
		if got := Remote(c.in); got != c.want {
			t.Errorf("Remote(%q) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestEmployment(t *testing.T) {
	cases := []struct {
		in   string
		want jobs.EmploymentType
	}{
		{"6-month contract position", jobs.EmploymentContract},
		{"Part-time role", jobs.EmploymentPartTime},
		{"Paid hourly", jobs.EmploymentHourly},
		{"Summer internship", jobs.EmploymentInternship},
		{"Full-time with benefits", jobs.EmploymentFullTime},
		{"Engineer needed", jobs.EmploymentUnknown},
	}
	for _, c := range cases {
		if got := Employment(c.in); got != c.want {
			t.Errorf("Employment(%q) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestRecordNeverFails(t *testing.T) {
	j := &jobs.JobRecord{Title: "Engineer", Company: "Acme", URL: "https://x/1"}
	Record(j)
	if !j.HasFlag("missing_salary") {
		t.Fatalf("record without salary should be flagged, got %v", j.Flags)
	}
	if j.RemoteType != jobs.RemoteUnknown || j.EmploymentType != jobs.EmploymentUnknown {
		t.Fatalf("absent signals should yield unknown")
	}
}

func TestAnnotateCountsKeywords(t *testing.T) {
	spec := criteria.Defaults()
	spec.Keywords = []string{"LLM", "machine learning", "rust"}

	j := &jobs.JobRecord{
		Title:       "LLM Engineer",
		Description: "Work on machine learning systems.",
	}
	Annotate(j, spec)
	if j.KeywordHits != 2 {
		t.Fatalf("expected 2 keyword hits, got %d", j.KeywordHits)
	}
	if !j.HasFlag("keyword_matches:2") {
		t.Fatalf("expected keyword_matches flag, got %v", j.Flags)
	}
}

func TestAnnotateIsOrderIndependent(t *testing.T) {
	a := criteria.Defaults()
	a.Keywords = []string{"go", "llm"}
	b := criteria.Defaults()
	b.Keywords = []string{"llm", "go"}

	j1 := &jobs.JobRecord{Title: "Go LLM engineer"}
	j2 := &jobs.JobRecord{Title: "Go LLM engineer"}
	Annotate(j1, a)
	Annotate(j2, b)
	if j1.KeywordHits != j2.KeywordHits {
		t.Fatalf("keyword count must not depend on keyword order")
	}
}

func TestSelectForScoring(t *testing.T) {
	records := []*jobs.JobRecord{
		{Title: "a", KeywordHits: 1},
		{Title: "b", KeywordHits: 5},
		{Title: "c", KeywordHits: 3},
		{Title: "d", KeywordHits: 5},
	}
	top := SelectForScoring(records, 2)
	if len(top) != 2 || top[0].Title != "b" || top[1].Title != "d" {
		t.Fatalf("unexpected selection: %+v", top)
	}
	// Zero or negative n means no cap.
	all := SelectForScoring(records, 0)
	if len(all) != 4 {
		t.Fatalf("n<=0 should return all records")
	}
}
