package jobs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

// RemoteType classifies how remote-friendly a listing is.
type RemoteType string

const (
	RemoteRemote  RemoteType = "remote"
	RemoteHybrid  RemoteType = "hybrid"
	RemoteOnsite  RemoteType = "onsite"
	RemoteUnknown RemoteType = "unknown"
)

// EmploymentType classifies the engagement model of a listing.
type EmploymentType string

const (
	EmploymentFullTime   EmploymentType = "full_time"
	EmploymentPartTime   EmploymentType = "part_time"
	EmploymentContract   EmploymentType = "contract"
	EmploymentHourly     EmploymentType = "hourly"
	EmploymentInternship EmploymentType = "internship"
	EmploymentUnknown    EmploymentType = "unknown"
)

// Confidence levels reported by the scorer.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// JobRecord is one normalized job listing flowing through the pipeline.
// Identity fields are derived (see JobID/DedupeKey); annotation fields are
// appended by later stages and a record is never rewritten once scored.
type JobRecord struct {
	Title       string
	Company     string
	URL         string
	Source      string
	Location    string
	Description string

	PostedDate     string // ISO-8601, empty if unknown
	EmploymentType EmploymentType
	RemoteType     RemoteType

	SalaryText string
	SalaryMin  int
	SalaryMax  int

	Flags         []string
	KeywordHits   int
	LLMScore      int // 1-10, 0 means unscored
	LLMReasons    []string
	LLMConfidence string
	IsMatch       bool

	ReputationScore    int // 1-10, 0 means unchecked
	ReputationEvidence []string
}

// JobID returns the stable identifier for a listing: the first 16 hex
// characters of sha256("url|company|title") with company/title lowercased
// and trimmed. The derivation must never change; it keys the persistent
// job history across runs.
func JobID(url, company, title string) string {
	normalized := fmt.Sprintf("%s|%s|%s",
		url,
		strings.ToLower(strings.TrimSpace(company)),
		strings.ToLower(strings.TrimSpace(title)),
	)
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])[:16]
}

// DedupeKey returns the fuzzy-match key "company|title" with both parts
// lowercased and stripped to letters and digits only.
func DedupeKey(company, title string) string {
	return normalizeAlnum(company) + "|" + normalizeAlnum(title)
}

func normalizeAlnum(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ID returns the record's stable job_id.
func (j *JobRecord) ID() string {
	return JobID(j.URL, j.Company, j.Title)
}

// Key returns the record's fuzzy dedupe key.
func (j *JobRecord) Key() string {
	return DedupeKey(j.Company, j.Title)
}

// AddFlag appends a flag unless it is already present.
func (j *JobRecord) AddFlag(flag string) {
	for _, f := range j.Flags {
		if f == flag {
			return
		}
	}
	j.Flags = append(j.Flags, flag)
}

// HasFlag reports whether the record carries the given flag.
func (j *JobRecord) HasFlag(flag string) bool {
	for _, f := range j.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// EmbeddingText returns the text used for semantic dedup: title, company
// and the first 500 characters of the description. Must stay stable so
// embeddings remain comparable across runs.
func (j *JobRecord) EmbeddingText() string {
	desc := j.Description
	if len(desc) > 500 {
		desc = desc[:500]
	}
	return j.Title + " " + j.Company + " " + desc
}
