// Package criteria parses the human-written criteria.md file into the
// structured search preferences that drive filtering, ranking, and the
// scoring prompt.
package criteria

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Spec holds parsed search preferences. Built once per run, read-only
// afterwards. RawText keeps the original file content for prompt
// construction.
type Spec struct {
	FullyRemote   bool
	FullTimeOnly  bool
	AvoidHourly   bool
	AvoidContract bool

	MinSalary int
	MaxSalary int

	Keywords        []string
	Seniority       []string
	ExcludeKeywords []string

	PostedWithinDays int
	MinLLMScore      int
	MaxResults       int
	MinKeywordHits   int

	RawText string
}

// Defaults returns a Spec with the baseline preferences used when a field
// is absent from the criteria file.
func Defaults() Spec {
	return Spec{
		FullyRemote:      true,
		FullTimeOnly:     true,
		AvoidHourly:      true,
		AvoidContract:    true,
		PostedWithinDays: 1,
		MinLLMScore:      7,
		MaxResults:       30,
		MinKeywordHits:   1,
	}
}

// ParseFile reads and parses a criteria file. A missing or unreadable file
// is an error; the caller treats it as fatal before any stage runs.
func ParseFile(path string) (Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, fmt.Errorf("read criteria: %w", err)
	}
	return Parse(string(raw)), nil
}

// Parse extracts structured criteria from free-form markdown. The parser
// is intentionally lenient: it looks for labelled bullet points and falls
// back to defaults for anything it cannot find.
func Parse(text string) Spec {
	spec := Defaults()
	spec.RawText = text

	spec.FullyRemote = parseBool(text, `fully\s+remote`, spec.FullyRemote)
	spec.FullTimeOnly = parseBool(text, `full[- ]time\s+only`, spec.FullTimeOnly)
	spec.AvoidHourly = parseBool(text, `avoid\s+hourly`, spec.AvoidHourly)
	spec.AvoidContract = parseBool(text, `avoid\s+contract`, spec.AvoidContract)

	if v, ok := parseNumber(text, `(?i)minimum\s+salary[:\s]+(\d[\d,]*)`); ok {
		spec.MinSalary = v
	}
	if v, ok := parseNumber(text, `(?i)maximum\s+salary[:\s]+(\d[\d,]*)`); ok {
		spec.MaxSalary = v
	}

	spec.Keywords = parseList(text, `(?i)-\s*keywords?\s*:\s*(.*)`)
	spec.Seniority = parseList(text, `(?i)-\s*seniority\s*:\s*(.*)`)
	spec.ExcludeKeywords = parseList(text, `(?i)-\s*exclu(?:de|sion)\s+keywords?\s*:\s*(.*)`)

	if v, ok := parseNumber(text, `(?i)posted\s+within\s+days?[:\s]+(\d+)`); ok {
		spec.PostedWithinDays = v
	}
	if v, ok := parseNumber(text, `(?i)minimum\s+llm\s+score[:\s]+(\d+)`); ok {
		spec.MinLLMScore = v
	}
	if v, ok := parseNumber(text, `(?i)max\s+results?\s+per\s+(?:email|report)[:\s]+(\d+)`); ok {
		spec.MaxResults = v
	}
	if v, ok := parseNumber(text, `(?i)min(?:imum)?\s+keyword\s+match(?:es)?[:\s]+(\d+)`); ok {
		spec.MinKeywordHits = v
	}

	return spec
}

// PromptText returns the criteria text embedded in scoring prompts: the
// raw file when present, otherwise a bullet summary of parsed fields.
func (s Spec) PromptText() string {
	if strings.TrimSpace(s.RawText) != "" {
		return s.RawText
	}
	var parts []string
	if s.FullyRemote {
		parts = append(parts, "Must be fully remote")
	}
	if s.FullTimeOnly {
		parts = append(parts, "Must be full-time")
	}
	if s.AvoidContract {
		parts = append(parts, "No contract/1099 roles")
	}
	if s.AvoidHourly {
		parts = append(parts, "No hourly roles")
	}
	if s.MinSalary > 0 || s.MaxSalary > 0 {
		parts = append(parts, fmt.Sprintf("Salary range: $%d-$%d", s.MinSalary, s.MaxSalary))
	}
	if len(s.Keywords) > 0 {
		parts = append(parts, "Target keywords: "+strings.Join(s.Keywords, ", "))
	}
	if len(s.Seniority) > 0 {
		parts = append(parts, "Seniority levels: "+strings.Join(s.Seniority, ", "))
	}
	if len(s.ExcludeKeywords) > 0 {
		parts = append(parts, "Exclude: "+strings.Join(s.ExcludeKeywords, ", "))
	}
	for i, p := range parts {
		parts[i] = "- " + p
	}
	return strings.Join(parts, "\n")
}

func parseBool(text, pattern string, def bool) bool {
	re := regexp.MustCompile(`(?i)` + pattern + `[:\s]+(yes|no|true|false)`)
	if m := re.FindStringSubmatch(text); m != nil {
		v := strings.ToLower(m[1])
		return v == "yes" || v == "true"
	}
	// Mentioning the preference with no value means it is wanted.
	if regexp.MustCompile(`(?i)` + pattern).MatchString(text) {
		return true
	}
	return def
}

func parseNumber(text, pattern string) (int, bool) {
	re := regexp.MustCompile(pattern)
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseList(text, pattern string) []string {
	re := regexp.MustCompile(pattern)
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	var items []string
	for _, item := range strings.Split(m[1], ",") {
		item = strings.TrimSpace(strings.Trim(strings.TrimSpace(item), "-"))
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
