package normalize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agstya/antigravity-job-search-agent/internal/criteria"
	"github.com/agstya/antigravity-job-search-agent/internal/jobs"
)

// Annotate computes the deterministic keyword-match count for a job and
// appends it as a flag. Annotation never drops jobs: the full candidate
// pool is preserved and ranking decides who reaches the scorer.
func Annotate(j *jobs.JobRecord, spec criteria.Spec) {
	text := strings.ToLower(j.Title + " " + j.Description)

	hits := 0
	for _, kw := range spec.Keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			hits++
		}
	}
	j.KeywordHits = hits
	j.AddFlag(fmt.Sprintf("keyword_matches:%d", hits))
}

// AnnotateAll annotates every job in the slice against the criteria.
func AnnotateAll(records []*jobs.JobRecord, spec criteria.Spec) {
	for _, r := range records {
		Annotate(r, spec)
	}
}

// SelectForScoring returns the top-n jobs by keyword count, preserving the
// original ordering among equals so selection stays deterministic. It
// bounds inference cost; jobs outside the cut remain in the candidate
// pool but are not sent to the scorer.
func SelectForScoring(records []*jobs.JobRecord, n int) []*jobs.JobRecord {
	out := make([]*jobs.JobRecord, len(records))
	copy(out, records)
	if n <= 0 || len(records) <= n {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].KeywordHits > out[j].KeywordHits
	})
	return out[:n]
}
