package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/agstya/antigravity-job-search-agent/internal/jobs"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testJob(url, company, title string) *PersistedJob {
	j := &jobs.JobRecord{
		Title:       title,
		Company:     company,
		URL:         url,
		Source:      "test",
		Description: "Test job description",
		LLMScore:    8,
		LLMReasons:  []string{"good fit"},
		IsMatch:     true,
		Flags:       []string{"keyword_matches:3"},
	}
	return NewPersistedJob(j, "2025-01-01")
}

func insert(t *testing.T, s *Store, job *PersistedJob) {
	t.Helper()
	tx, err := s.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := s.InsertJobTx(tx, job); err != nil {
		tx.Rollback()
		t.Fatalf("insert: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestInsertAndLookup(t *testing.T) {
	s := openTestStore(t)
	job := testJob("https://example.com/job/1", "Acme Corp", "ML Engineer")
	insert(t, s, job)

	if ok, err := s.ExistsByURL(job.URL); err != nil || !ok {
		t.Fatalf("ExistsByURL = %v, %v; want true", ok, err)
	}
	if ok, err := s.ExistsByDedupeKey(job.DedupeKey); err != nil || !ok {
		t.Fatalf("ExistsByDedupeKey = %v, %v; want true", ok, err)
	}
	if ok, _ := s.ExistsByURL("https://example.com/other"); ok {
		t.Fatalf("unexpected URL hit")
	}

	got, err := s.GetJob(job.JobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got == nil || got.Title != "ML Engineer" || got.LLMScore != 8 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if len(got.LLMReasons) != 1 || got.LLMReasons[0] != "good fit" {
		t.Fatalf("reasons round trip mismatch: %v", got.LLMReasons)
	}
	if !got.IsMatch {
		t.Fatalf("is_match lost in round trip")
	}
}

func TestInsertIsNotUpsert(t *testing.T) {
	s := openTestStore(t)
	job := testJob("https://example.com/job/1", "Acme Corp", "ML Engineer")
	insert(t, s, job)

	tx, err := s.Begin()
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()
	if err := s.InsertJobTx(tx, job); !errors.Is(err, ErrDuplicateJob) {
		t.Fatalf("second insert: got %v, want ErrDuplicateJob", err)
	}
}

func TestJobAndEmbeddingCommitTogether(t *testing.T) {
	s := openTestStore(t)
	job := testJob("https://example.com/job/1", "Acme Corp", "ML Engineer")

	tx, err := s.Begin()
	if err != nil {
		t.Fatal(err)
	}
	if err := s.InsertJobTx(tx, job); err != nil {
		t.Fatalf("insert job: %v", err)
	}
	if err := s.InsertEmbeddingTx(tx, job.JobID, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("insert embedding: %v", err)
	}
	// Roll back: neither the row nor the embedding may survive.
	if err := tx.Rollback(); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.ExistsByURL(job.URL); ok {
		t.Fatalf("rolled-back job visible in store")
	}
	embs, err := s.ListEmbeddings()
	if err != nil {
		t.Fatal(err)
	}
	if len(embs) != 0 {
		t.Fatalf("rolled-back embedding visible in store")
	}
}

func TestListByRunDateOrdersByScore(t *testing.T) {
	s := openTestStore(t)
	low := testJob("https://example.com/job/1", "A", "Engineer One")
	low.LLMScore = 3
	high := testJob("https://example.com/job/2", "B", "Engineer Two")
	high.LLMScore = 9
	insert(t, s, low)
	insert(t, s, high)

	got, err := s.ListByRunDate("2025-01-01")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].LLMScore != 9 {
		t.Fatalf("expected score-descending order, got %+v", got)
	}
}

func TestRecordRunRoundTrip(t *testing.T) {
	s := openTestStore(t)
	run := &RunLog{
		RunID:        "run-1",
		RunDate:      "2025-01-01",
		Mode:         "daily",
		TotalFetched: 100,
		TotalScored:  40,
		TotalMatched: 10,
		TotalNew:     4,
		Errors:       []string{"source b timed out"},
		Duration:     45 * time.Second,
	}
	if err := s.RecordRun(run); err != nil {
		t.Fatalf("record run: %v", err)
	}

	runs, err := s.ListRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	got := runs[0]
	if got.TotalNew != 4 || got.Mode != "daily" {
		t.Fatalf("run round trip mismatch: %+v", got)
	}
	if len(got.Errors) != 1 || got.Errors[0] != "source b timed out" {
		t.Fatalf("errors round trip mismatch: %v", got.Errors)
	}
}

func TestDescriptionCappedOnPersist(t *testing.T) {
	long := make([]byte, maxStoredDescription+500)
	for i := range long {
		long[i] = 'a'
	}
	j := &jobs.JobRecord{Title: "T", Company: "C", URL: "https://x/1", Description: string(long)}
	p := NewPersistedJob(j, "2025-01-01")
	if len(p.Description) != maxStoredDescription {
		t.Fatalf("description not capped: %d", len(p.Description))
	}
}
