package storage

import (
	"time"

	"github.com/agstya/antigravity-job-search-agent/internal/jobs"
)

// maxStoredDescription caps how much description text is persisted per job.
const maxStoredDescription = 5000

// PersistedJob is the durable row for an accepted job. Written once when a
// job is classified new, never mutated afterwards.
type PersistedJob struct {
	JobID     string
	URL       string
	DedupeKey string

	Title          string
	Company        string
	Source         string
	Location       string
	Description    string
	PostedDate     string
	EmploymentType string
	RemoteType     string
	SalaryText     string
	SalaryMin      int
	SalaryMax      int

	LLMScore        int
	LLMReasons      []string
	LLMConfidence   string
	IsMatch         bool
	ReputationScore int
	Flags           []string

	RunDate   string
	CreatedAt time.Time
}

// NewPersistedJob builds the durable row for a job accepted on runDate.
func NewPersistedJob(j *jobs.JobRecord, runDate string) *PersistedJob {
	desc := j.Description
	if len(desc) > maxStoredDescription {
		desc = desc[:maxStoredDescription]
	}
	return &PersistedJob{
		JobID:           j.ID(),
		URL:             j.URL,
		DedupeKey:       j.Key(),
		Title:           j.Title,
		Company:         j.Company,
		Source:          j.Source,
		Location:        j.Location,
		Description:     desc,
		PostedDate:      j.PostedDate,
		EmploymentType:  string(j.EmploymentType),
		RemoteType:      string(j.RemoteType),
		SalaryText:      j.SalaryText,
		SalaryMin:       j.SalaryMin,
		SalaryMax:       j.SalaryMax,
		LLMScore:        j.LLMScore,
		LLMReasons:      j.LLMReasons,
		LLMConfidence:   j.LLMConfidence,
		IsMatch:         j.IsMatch,
		ReputationScore: j.ReputationScore,
		Flags:           j.Flags,
		RunDate:         runDate,
	}
}

// RunLog is one row per pipeline invocation, written once at run end.
type RunLog struct {
	RunID        string
	RunDate      string
	Mode         string
	TotalFetched int
	TotalScored  int
	TotalMatched int
	TotalNew     int
	Errors       []string
	Duration     time.Duration
	CreatedAt    time.Time
}
