package dedupe

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/agstya/antigravity-job-search-agent/internal/jobs"
	"github.com/agstya/antigravity-job-search-agent/internal/storage"
	"github.com/agstya/antigravity-job-search-agent/internal/vector"
)

// stubEmbedder maps embedding text to fixed unit vectors so tests can
// dial in exact similarities.
type stubEmbedder struct {
	vectors map[string][]float32
	healthy bool
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (s *stubEmbedder) Health(context.Context) error {
	if !s.healthy {
		return errors.New("backend down")
	}
	return nil
}

// unitVec builds a 2-d unit vector whose cosine against (1,0) is cos.
func unitVec(cos float64) []float32 {
	return []float32{float32(cos), float32(math.Sqrt(1 - cos*cos))}
}

func newTestEngine(t *testing.T, emb vector.Embedder, threshold float32) (*Engine, *storage.Store) {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewEngine(store, vector.NewIndex(emb, store), threshold), store
}

func job(title, company, url string) *jobs.JobRecord {
	return &jobs.JobRecord{Title: title, Company: company, URL: url, Description: "desc"}
}

func TestClassifyExactURL(t *testing.T) {
	eng, _ := newTestEngine(t, &stubEmbedder{healthy: true}, 0.92)
	ctx := context.Background()

	first := job("SRE", "Acme", "https://jobs.acme.com/1")
	if err := eng.Accept(ctx, first, "2025-01-01"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	c, err := eng.Classify(ctx, job("Different Title", "Other Co", "https://jobs.acme.com/1"))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if !c.Duplicate || c.Layer != LayerURL {
		t.Fatalf("expected url-layer duplicate, got %+v", c)
	}
}

func TestClassifyFuzzyKey(t *testing.T) {
	eng, _ := newTestEngine(t, &stubEmbedder{healthy: true}, 0.92)
	ctx := context.Background()

	if err := eng.Accept(ctx, job("Senior ML Engineer", "Acme Inc.", "https://a/1"), "2025-01-01"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	c, err := eng.Classify(ctx, job("senior ml engineer", "ACME, inc", "https://b/2"))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if !c.Duplicate || c.Layer != LayerKey {
		t.Fatalf("expected dedupe-key duplicate, got %+v", c)
	}
}

func TestSemanticThresholdBoundary(t *testing.T) {
	stored := job("Platform Engineer", "Acme", "https://a/1")
	nearDup := job("Platform Eng", "Acme Corp", "https://b/2")
	distinct := job("Janitor", "Mop Co", "https://c/3")

	emb := &stubEmbedder{
		healthy: true,
		vectors: map[string][]float32{
			stored.EmbeddingText():   unitVec(1),
			nearDup.EmbeddingText():  unitVec(0.93),
			distinct.EmbeddingText(): unitVec(0.90),
		},
	}
	eng, _ := newTestEngine(t, emb, 0.92)
	ctx := context.Background()

	if err := eng.Accept(ctx, stored, "2025-01-01"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	c, err := eng.Classify(ctx, nearDup)
	if err != nil {
		t.Fatalf("classify near duplicate: %v", err)
	}
	if !c.Duplicate || c.Layer != LayerSemantic {
		t.Fatalf("0.93 vs 0.92 threshold should be a semantic duplicate, got %+v", c)
	}
	if c.MatchedID != stored.ID() {
		t.Fatalf("matched wrong job: %s", c.MatchedID)
	}

	c, err = eng.Classify(ctx, distinct)
	if err != nil {
		t.Fatalf("classify distinct: %v", err)
	}
	if c.Duplicate {
		t.Fatalf("0.90 vs 0.92 threshold should be new, got %+v", c)
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	eng, _ := newTestEngine(t, &stubEmbedder{healthy: true}, 0.92)
	ctx := context.Background()
	j := job("SRE", "Acme", "https://a/1")

	first, err := eng.Classify(ctx, j)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	second, err := eng.Classify(ctx, j)
	if err != nil {
		t.Fatalf("classify again: %v", err)
	}
	if first != second {
		t.Fatalf("classification changed without a persist: %+v vs %+v", first, second)
	}
	if first.Duplicate {
		t.Fatalf("unpersisted job classified as duplicate")
	}
}

func TestDegradedBackendStillPersists(t *testing.T) {
	eng, store := newTestEngine(t, &stubEmbedder{healthy: false}, 0.92)
	ctx := context.Background()

	out := eng.Process(ctx, []*jobs.JobRecord{job("SRE", "Acme", "https://a/1")}, "2025-01-01")
	if len(out.New) != 1 {
		t.Fatalf("expected 1 new job despite degraded backend, got %d (errors: %v)", len(out.New), out.Errors)
	}
	if !out.Degraded {
		t.Fatalf("outcome should be flagged degraded")
	}
	n, err := store.CountJobs()
	if err != nil || n != 1 {
		t.Fatalf("expected 1 persisted job, got %d (%v)", n, err)
	}
}

func TestProcessDedupesWithinBatch(t *testing.T) {
	batch := []*jobs.JobRecord{
		job("SRE", "Acme", "https://a/1"),
		job("SRE", "Acme", "https://a/1"),
		job("Backend Engineer", "Other", "https://b/2"),
	}
	emb := &stubEmbedder{
		healthy: true,
		vectors: map[string][]float32{
			batch[0].EmbeddingText(): {1, 0},
			batch[2].EmbeddingText(): {0, 1},
		},
	}
	eng, _ := newTestEngine(t, emb, 0.92)
	ctx := context.Background()

	out := eng.Process(ctx, batch, "2025-01-01")
	if len(out.New) != 2 {
		t.Fatalf("expected 2 new jobs, got %d", len(out.New))
	}
	if out.Duplicates != 1 {
		t.Fatalf("expected 1 duplicate, got %d", out.Duplicates)
	}
	if len(out.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", out.Errors)
	}
}
