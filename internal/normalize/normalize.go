// Package normalize fills missing structured fields on raw job records by
// regex and heuristic inference from free text. Every function here is
// pure and total: a missing signal yields unknown/zero, never an error.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/agstya/antigravity-job-search-agent/internal/jobs"
)

var dateFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	time.RFC1123Z, // RFC 822 feed dates
	time.RFC1123,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2 Jan 2006",
	"January 2, 2006",
}

// Date normalizes a free-form date string to ISO-8601 (RFC 3339). When the
// string cannot be parsed it is returned unchanged so downstream display
// still has something to show.
func Date(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return raw
}

var salaryPatterns = []struct {
	re        *regexp.Regexp
	thousands bool
}{
	// $150,000 - $200,000
	{regexp.MustCompile(`\$(\d{1,3}(?:,\d{3})*(?:\.\d+)?)\s*(?:[-–—]|to)+\s*\$(\d{1,3}(?:,\d{3})*(?:\.\d+)?)`), false},
	// $150k - $200k
	{regexp.MustCompile(`\$(\d+\.?\d*)[kK]\s*(?:[-–—]|to)+\s*\$(\d+\.?\d*)[kK]`), true},
	// 150,000 - 200,000
	{regexp.MustCompile(`(\d{1,3}(?:,\d{3})+)\s*(?:[-–—]|to)+\s*(\d{1,3}(?:,\d{3})+)`), false},
}

var singleSalaryPattern = regexp.MustCompile(`\$(\d{1,3}(?:,\d{3})*)`)

// Salary extracts a salary range from text. Returns the matched raw text
// plus min/max in whole currency units; zero values when nothing matches.
func Salary(text string) (salaryText string, min, max int) {
	if text == "" {
		return "", 0, 0
	}
	for _, p := range salaryPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		lo := parseAmount(m[1], p.thousands)
		hi := parseAmount(m[2], p.thousands)
		if lo == 0 || hi == 0 {
			continue
		}
		return m[0], lo, hi
	}
	if m := singleSalaryPattern.FindStringSubmatch(text); m != nil {
		v := parseAmount(m[1], false)
		if v > 10000 { // below that it is unlikely to be an annual figure
			return m[0], v, 0
		}
	}
	return "", 0, 0
}

func parseAmount(s string, thousands bool) int {
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0
	}
	if thousands {
		f *= 1000
	}
	return int(f)
}

// Remote infers the remote-work arrangement from text content.
func Remote(text string) jobs.RemoteType {
	t := strings.ToLower(text)
	switch {
	case containsAny(t, "fully remote", "100% remote", "remote only", "anywhere"):
		return jobs.RemoteRemote
	case strings.Contains(t, "hybrid"):
		return jobs.RemoteHybrid
	case containsAny(t, "on-site", "onsite", "in-office", "in office"):
		return jobs.RemoteOnsite
	case strings.Contains(t, "remote"):
		return jobs.RemoteRemote
	}
	return jobs.RemoteUnknown
}

// Employment infers the engagement model from text content.
func Employment(text string) jobs.EmploymentType {
	t := strings.ToLower(text)
	switch {
	case containsAny(t, "contract", "contractor", "1099", "freelance"):
		return jobs.EmploymentContract
	case containsAny(t, "part-time", "part time"):
		return jobs.EmploymentPartTime
	case strings.Contains(t, "hourly"):
		return jobs.EmploymentHourly
	case containsAny(t, "intern", "internship"):
		return jobs.EmploymentInternship
	case containsAny(t, "full-time", "full time", "fte"):
		return jobs.EmploymentFullTime
	}
	return jobs.EmploymentUnknown
}

func containsAny(text string, terms ...string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

// Record fills the inferable fields of a job in place: date normalization,
// salary extraction, remote/employment inference, and the missing_salary
// flag. It never rejects a record.
func Record(j *jobs.JobRecord) {
	j.PostedDate = Date(j.PostedDate)

	if j.SalaryText == "" && j.SalaryMin == 0 {
		text, min, max := Salary(j.Title + " " + j.Description)
		j.SalaryText = text
		j.SalaryMin = min
		j.SalaryMax = max
	}
	if j.SalaryText == "" && j.SalaryMin == 0 {
		j.AddFlag("missing_salary")
	}

	if j.RemoteType == "" || j.RemoteType == jobs.RemoteUnknown {
		j.RemoteType = Remote(j.Title + " " + j.Description + " " + j.Location)
	}
	if j.EmploymentType == "" || j.EmploymentType == jobs.EmploymentUnknown {
		j.EmploymentType = Employment(j.Title + " " + j.Description)
	}
}
