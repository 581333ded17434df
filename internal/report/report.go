// Package report renders a run's matches as markdown and HTML, saves
// them under the reports directory, and delivers them by email.
package report

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agstya/antigravity-job-search-agent/internal/jobs"
)

// Stats summarizes one pipeline run for the report header.
type Stats struct {
	RunDate      string
	Mode         string
	TotalFetched int
	TotalScored  int
	TotalMatched int
	TotalNew     int
	Errors       []string
	Degraded     bool
}

// Report holds both renderings of one run's results.
type Report struct {
	Markdown string
	HTML     string
	Subject  string
}

// Assemble sorts new jobs by score (reputation breaks ties), caps the
// list at maxResults, and renders the report. Borderline jobs (one
// point under the match threshold) appear in a separate section.
func Assemble(newJobs, borderline []*jobs.JobRecord, stats Stats, maxResults int) *Report {
	sorted := make([]*jobs.JobRecord, len(newJobs))
	copy(sorted, newJobs)
	sort.SliceStable(sorted, func(a, b int) bool {
		if sorted[a].LLMScore != sorted[b].LLMScore {
			return sorted[a].LLMScore > sorted[b].LLMScore
		}
		return sorted[a].ReputationScore > sorted[b].ReputationScore
	})
	if maxResults > 0 && len(sorted) > maxResults {
		sorted = sorted[:maxResults]
	}

	return &Report{
		Markdown: renderMarkdown(sorted, borderline, stats),
		HTML:     renderHTML(sorted, borderline, stats),
		Subject:  fmt.Sprintf("Job matches for %s: %d new", stats.RunDate, len(sorted)),
	}
}

// Save writes both renderings under dir, named by run date.
func (r *Report) Save(dir, runDate string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}
	mdPath := filepath.Join(dir, fmt.Sprintf("report-%s.md", runDate))
	if err := os.WriteFile(mdPath, []byte(r.Markdown), 0o644); err != nil {
		return "", fmt.Errorf("write markdown report: %w", err)
	}
	htmlPath := filepath.Join(dir, fmt.Sprintf("report-%s.html", runDate))
	if err := os.WriteFile(htmlPath, []byte(r.HTML), 0o644); err != nil {
		return "", fmt.Errorf("write html report: %w", err)
	}
	return mdPath, nil
}

func renderMarkdown(newJobs, borderline []*jobs.JobRecord, stats Stats) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Job Matches: %s (%s run)\n\n", stats.RunDate, stats.Mode)
	fmt.Fprintf(&b, "Fetched %d, scored %d, matched %d, new %d.\n\n",
		stats.TotalFetched, stats.TotalScored, stats.TotalMatched, stats.TotalNew)

	if stats.Degraded {
		b.WriteString("> Semantic dedup was degraded this run; near-duplicates may appear.\n\n")
	}

	if len(newJobs) == 0 {
		b.WriteString("No new matches today.\n")
	}
	for i, j := range newJobs {
		fmt.Fprintf(&b, "## %d. %s at %s\n\n", i+1, j.Title, j.Company)
		fmt.Fprintf(&b, "- Score: %d/10 (%s confidence)", j.LLMScore, j.LLMConfidence)
		if j.ReputationScore > 0 {
			fmt.Fprintf(&b, ", reputation %d/10", j.ReputationScore)
		}
		b.WriteString("\n")
		if j.Location != "" {
			fmt.Fprintf(&b, "- Location: %s (%s)\n", j.Location, j.RemoteType)
		}
		if j.SalaryText != "" {
			fmt.Fprintf(&b, "- Salary: %s\n", j.SalaryText)
		}
		fmt.Fprintf(&b, "- Source: %s\n", j.Source)
		fmt.Fprintf(&b, "- Link: %s\n", j.URL)
		for _, reason := range j.LLMReasons {
			fmt.Fprintf(&b, "  - %s\n", reason)
		}
		if len(j.Flags) > 0 {
			fmt.Fprintf(&b, "- Flags: %s\n", strings.Join(j.Flags, ", "))
		}
		b.WriteString("\n")
	}

	if len(borderline) > 0 {
		b.WriteString("## Borderline\n\n")
		for _, j := range borderline {
			fmt.Fprintf(&b, "- %s at %s (%d/10) %s\n", j.Title, j.Company, j.LLMScore, j.URL)
		}
		b.WriteString("\n")
	}

	if len(stats.Errors) > 0 {
		b.WriteString("## Run errors\n\n")
		for _, e := range stats.Errors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}
	return b.String()
}

func renderHTML(newJobs, borderline []*jobs.JobRecord, stats Stats) string {
	var b strings.Builder

	b.WriteString("<html><body>\n")
	fmt.Fprintf(&b, "<h1>Job Matches: %s (%s run)</h1>\n",
		html.EscapeString(stats.RunDate), html.EscapeString(stats.Mode))
	fmt.Fprintf(&b, "<p>Fetched %d, scored %d, matched %d, new %d.</p>\n",
		stats.TotalFetched, stats.TotalScored, stats.TotalMatched, stats.TotalNew)

	if stats.Degraded {
		b.WriteString("<p><em>Semantic dedup was degraded this run; near-duplicates may appear.</em></p>\n")
	}

	if len(newJobs) == 0 {
		b.WriteString("<p>No new matches today.</p>\n")
	}
	for i, j := range newJobs {
		fmt.Fprintf(&b, "<h2>%d. <a href=%q>%s at %s</a></h2>\n",
			i+1, j.URL, html.EscapeString(j.Title), html.EscapeString(j.Company))
		fmt.Fprintf(&b, "<p>Score %d/10 (%s confidence)", j.LLMScore, html.EscapeString(j.LLMConfidence))
		if j.ReputationScore > 0 {
			fmt.Fprintf(&b, ", reputation %d/10", j.ReputationScore)
		}
		b.WriteString("</p>\n<ul>\n")
		if j.Location != "" {
			fmt.Fprintf(&b, "<li>Location: %s (%s)</li>\n", html.EscapeString(j.Location), j.RemoteType)
		}
		if j.SalaryText != "" {
			fmt.Fprintf(&b, "<li>Salary: %s</li>\n", html.EscapeString(j.SalaryText))
		}
		fmt.Fprintf(&b, "<li>Source: %s</li>\n", html.EscapeString(j.Source))
		for _, reason := range j.LLMReasons {
			fmt.Fprintf(&b, "<li>%s</li>\n", html.EscapeString(reason))
		}
		b.WriteString("</ul>\n")
	}

	if len(borderline) > 0 {
		b.WriteString("<h2>Borderline</h2>\n<ul>\n")
		for _, j := range borderline {
			fmt.Fprintf(&b, "<li><a href=%q>%s at %s</a> (%d/10)</li>\n",
				j.URL, html.EscapeString(j.Title), html.EscapeString(j.Company), j.LLMScore)
		}
		b.WriteString("</ul>\n")
	}

	if len(stats.Errors) > 0 {
		b.WriteString("<h2>Run errors</h2>\n<ul>\n")
		for _, e := range stats.Errors {
			fmt.Fprintf(&b, "<li>%s</li>\n", html.EscapeString(e))
		}
		b.WriteString("</ul>\n")
	}
	b.WriteString("</body></html>\n")
	return b.String()
}
