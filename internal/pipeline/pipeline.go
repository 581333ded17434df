// Package pipeline orchestrates one discovery run: load criteria and
// sources, fetch, normalize, annotate, score, check reputation, dedupe
// and persist, then report and notify. Stage failures are isolated;
// only an unreadable config or store aborts a run.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/agstya/antigravity-job-search-agent/internal/config"
	"github.com/agstya/antigravity-job-search-agent/internal/criteria"
	"github.com/agstya/antigravity-job-search-agent/internal/dedupe"
	"github.com/agstya/antigravity-job-search-agent/internal/jobs"
	"github.com/agstya/antigravity-job-search-agent/internal/normalize"
	"github.com/agstya/antigravity-job-search-agent/internal/report"
	"github.com/agstya/antigravity-job-search-agent/internal/reputation"
	"github.com/agstya/antigravity-job-search-agent/internal/sources"
	"github.com/agstya/antigravity-job-search-agent/internal/storage"
)

// Options selects the behavior of one run.
type Options struct {
	Mode    string // "daily" or "weekly"
	DryRun  bool
	NoEmail bool
}

// RunContext is the working state of one invocation. Stages append to
// it in order; it is discarded when the run ends.
type RunContext struct {
	RunID   string
	RunDate string
	Options Options

	Criteria criteria.Spec

	Raw        []*jobs.JobRecord
	Annotated  []*jobs.JobRecord
	Scored     []*jobs.JobRecord
	Matched    []*jobs.JobRecord
	Borderline []*jobs.JobRecord
	New        []*jobs.JobRecord

	Errors   []string
	Degraded bool
}

// RunResult is the durable summary handed back to the caller.
type RunResult struct {
	RunID        string
	TotalFetched int
	TotalScored  int
	TotalMatched int
	TotalNew     int
	Errors       []string
	Duration     time.Duration
	ReportPath   string
	EmailSent    bool
}

// Scorer is the inference surface the executor drives.
type Scorer interface {
	ScoreAll(ctx context.Context, batch []*jobs.JobRecord, spec criteria.Spec, workers int)
}

// JobIndexer receives accepted jobs for full-text search. Best-effort:
// indexing failures are run warnings, never pipeline errors.
type JobIndexer interface {
	IndexJob(job *storage.PersistedJob) error
}

// Executor wires the run's collaborators. Construct one per process;
// Run may be called repeatedly (the scheduler does).
type Executor struct {
	Config   config.Config
	Store    *storage.Store
	Dedupe   *dedupe.Engine
	Scorer   Scorer
	Checker  *reputation.Checker
	Indexer  JobIndexer      // optional
	Notifier report.Notifier // optional
}

// Run executes the full pipeline once. The returned error is non-nil
// only for fatal failures; partial failures land in RunResult.Errors.
// A run log row and a report are produced in every case where the
// store, respectively the reports directory, is still usable.
func (e *Executor) Run(ctx context.Context, opts Options) (*RunResult, error) {
	start := time.Now()
	rc := &RunContext{
		RunID:   uuid.New().String(),
		RunDate: time.Now().Format("2006-01-02"),
		Options: opts,
	}
	log.Printf("run %s starting (mode=%s dry-run=%v)", rc.RunID, opts.Mode, opts.DryRun)

	if e.Config.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Config.RunTimeout)
		defer cancel()
	}

	spec, err := criteria.ParseFile(e.Config.CriteriaPath)
	if err != nil {
		return e.abort(rc, start, fmt.Errorf("load criteria: %w", err))
	}
	rc.Criteria = spec

	configs, err := sources.LoadConfigs(e.Config.SourcesPath)
	if err != nil {
		return e.abort(rc, start, fmt.Errorf("load sources: %w", err))
	}
	fetchers, skipped := sources.BuildFetchers(configs)
	rc.Errors = append(rc.Errors, skipped...)

	e.fetchStage(ctx, rc, fetchers)
	e.annotateStage(rc)
	e.scoreStage(ctx, rc)
	e.reputationStage(ctx, rc)
	e.dedupeStage(ctx, rc)

	r := report.Assemble(rc.New, rc.Borderline, e.stats(rc), rc.Criteria.MaxResults)
	reportPath := e.reportStage(rc, r)
	emailSent := e.notifyStage(rc, r)

	result := e.finish(rc, start, reportPath, emailSent)
	log.Printf("run %s done: %d fetched, %d new, %d errors in %s",
		rc.RunID, result.TotalFetched, result.TotalNew, len(result.Errors), result.Duration.Round(time.Millisecond))
	return result, nil
}

// abort handles fatal errors: no stage ran or can run, but the run log
// still gets its row when the store is open.
func (e *Executor) abort(rc *RunContext, start time.Time, err error) (*RunResult, error) {
	rc.Errors = append(rc.Errors, err.Error())
	result := e.finish(rc, start, "", false)
	return result, err
}

func (e *Executor) fetchStage(ctx context.Context, rc *RunContext, fetchers []sources.Fetcher) {
	raw, errs := sources.FetchAll(ctx, fetchers, e.Config.FetchWorkers)
	rc.Raw = raw
	rc.Errors = append(rc.Errors, errs...)
	log.Printf("fetched %d jobs from %d sources", len(raw), len(fetchers))
}

func (e *Executor) annotateStage(rc *RunContext) {
	for _, j := range rc.Raw {
		normalize.Record(j)
	}
	normalize.AnnotateAll(rc.Raw, rc.Criteria)
	rc.Annotated = rc.Raw
}

func (e *Executor) scoreStage(ctx context.Context, rc *RunContext) {
	candidates := normalize.SelectForScoring(rc.Annotated, e.Config.ScoreTopN)
	e.Scorer.ScoreAll(ctx, candidates, rc.Criteria, e.Config.ScoreWorkers)
	rc.Scored = candidates

	minScore := rc.Criteria.MinLLMScore
	for _, j := range candidates {
		switch {
		case rc.Options.DryRun:
			rc.Matched = append(rc.Matched, j)
		case j.IsMatch && j.LLMScore >= minScore:
			rc.Matched = append(rc.Matched, j)
		case j.LLMScore == minScore-1:
			rc.Borderline = append(rc.Borderline, j)
		}
	}
	log.Printf("scored %d jobs: %d matched, %d borderline",
		len(candidates), len(rc.Matched), len(rc.Borderline))
}

func (e *Executor) reputationStage(ctx context.Context, rc *RunContext) {
	if e.Checker == nil {
		return
	}
	for _, j := range rc.Matched {
		a := e.Checker.Check(ctx, j.Company)
		j.ReputationScore = a.Score
		j.ReputationEvidence = a.Evidence
	}
}

func (e *Executor) dedupeStage(ctx context.Context, rc *RunContext) {
	out := e.Dedupe.Process(ctx, rc.Matched, rc.RunDate)
	rc.New = out.New
	rc.Errors = append(rc.Errors, out.Errors...)
	rc.Degraded = out.Degraded
	log.Printf("dedupe: %d matched, %d new, %d duplicates", len(rc.Matched), len(out.New), out.Duplicates)

	if e.Indexer == nil {
		return
	}
	for _, j := range rc.New {
		if err := e.Indexer.IndexJob(storage.NewPersistedJob(j, rc.RunDate)); err != nil {
			rc.Errors = append(rc.Errors, fmt.Sprintf("index %s: %v", j.URL, err))
		}
	}
}

func (e *Executor) reportStage(rc *RunContext, r *report.Report) string {
	path, err := r.Save(e.Config.ReportsDir, rc.RunDate)
	if err != nil {
		rc.Errors = append(rc.Errors, fmt.Sprintf("save report: %v", err))
		return ""
	}
	return path
}

func (e *Executor) notifyStage(rc *RunContext, r *report.Report) bool {
	if e.Notifier == nil || rc.Options.NoEmail || rc.Options.DryRun || len(rc.New) == 0 {
		return false
	}
	if err := e.Notifier.Notify(r); err != nil {
		rc.Errors = append(rc.Errors, fmt.Sprintf("send email: %v", err))
		return false
	}
	return true
}

func (e *Executor) stats(rc *RunContext) report.Stats {
	return report.Stats{
		RunDate:      rc.RunDate,
		Mode:         rc.Options.Mode,
		TotalFetched: len(rc.Raw),
		TotalScored:  len(rc.Scored),
		TotalMatched: len(rc.Matched),
		TotalNew:     len(rc.New),
		Errors:       rc.Errors,
		Degraded:     rc.Degraded,
	}
}

// finish writes the run log exactly once and builds the result.
func (e *Executor) finish(rc *RunContext, start time.Time, reportPath string, emailSent bool) *RunResult {
	if rc.Degraded {
		rc.Errors = append(rc.Errors, "semantic-dedup degraded")
	}
	duration := time.Since(start)

	if e.Store != nil {
		err := e.Store.RecordRun(&storage.RunLog{
			RunID:        rc.RunID,
			RunDate:      rc.RunDate,
			Mode:         rc.Options.Mode,
			TotalFetched: len(rc.Raw),
			TotalScored:  len(rc.Scored),
			TotalMatched: len(rc.Matched),
			TotalNew:     len(rc.New),
			Errors:       rc.Errors,
			Duration:     duration,
		})
		if err != nil {
			log.Printf("run log write failed: %v", err)
		}
	}

	return &RunResult{
		RunID:        rc.RunID,
		TotalFetched: len(rc.Raw),
		TotalScored:  len(rc.Scored),
		TotalMatched: len(rc.Matched),
		TotalNew:     len(rc.New),
		Errors:       rc.Errors,
		Duration:     duration,
		ReportPath:   reportPath,
		EmailSent:    emailSent,
	}
}
