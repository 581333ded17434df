package dedupe

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/agstya/antigravity-job-search-agent/internal/jobs"
	"github.com/agstya/antigravity-job-search-agent/internal/storage"
	"github.com/agstya/antigravity-job-search-agent/internal/vector"
)

// Layer names the duplicate-detection layer that matched.
type Layer string

const (
	LayerURL      Layer = "url"
	LayerKey      Layer = "dedupe_key"
	LayerSemantic Layer = "semantic"
)

// Classification is the outcome of checking one job against history.
type Classification struct {
	Duplicate  bool
	Layer      Layer
	MatchedID  string
	Similarity float32
}

// Engine classifies incoming jobs against persisted history and admits
// the new ones. Checks run cheapest first: exact URL, then the
// normalized company|title key, then embedding similarity. Each layer
// short-circuits the ones after it.
type Engine struct {
	store     *storage.Store
	index     *vector.Index
	threshold float32

	degraded bool
}

func NewEngine(store *storage.Store, index *vector.Index, threshold float32) *Engine {
	return &Engine{store: store, index: index, threshold: threshold}
}

// Degraded reports whether the semantic layer was skipped during this
// engine's lifetime because the embedding backend was unavailable.
func (e *Engine) Degraded() bool {
	return e.degraded
}

// Classify decides whether job duplicates something already persisted.
// Classifying the same job twice yields the same answer: no layer
// mutates state. A similarity exactly at the threshold counts as a
// duplicate; strictly below is new.
func (e *Engine) Classify(ctx context.Context, job *jobs.JobRecord) (Classification, error) {
	exists, err := e.store.ExistsByURL(job.URL)
	if err != nil {
		return Classification{}, fmt.Errorf("url check: %w", err)
	}
	if exists {
		return Classification{Duplicate: true, Layer: LayerURL}, nil
	}

	exists, err = e.store.ExistsByDedupeKey(job.Key())
	if err != nil {
		return Classification{}, fmt.Errorf("dedupe key check: %w", err)
	}
	if exists {
		return Classification{Duplicate: true, Layer: LayerKey}, nil
	}

	matches, err := e.index.QueryNearest(ctx, job.EmbeddingText(), 1)
	if err != nil {
		if errors.Is(err, vector.ErrUnavailable) {
			e.degraded = true
			return Classification{}, nil
		}
		return Classification{}, fmt.Errorf("semantic check: %w", err)
	}
	if len(matches) > 0 && matches[0].Similarity >= e.threshold {
		return Classification{
			Duplicate:  true,
			Layer:      LayerSemantic,
			MatchedID:  matches[0].ID,
			Similarity: matches[0].Similarity,
		}, nil
	}
	return Classification{}, nil
}

// Accept persists job and its embedding in a single transaction, so a
// job row never lands without its embedding and vice versa. When the
// embedding backend is unavailable the job still persists, without an
// embedding, and the engine marks itself degraded.
func (e *Engine) Accept(ctx context.Context, job *jobs.JobRecord, runDate string) error {
	tx, err := e.store.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := e.store.InsertJobTx(tx, storage.NewPersistedJob(job, runDate)); err != nil {
		return err
	}
	if err := e.index.UpsertTx(ctx, tx, job.ID(), job.EmbeddingText()); err != nil {
		if !errors.Is(err, vector.ErrUnavailable) {
			return fmt.Errorf("index job %s: %w", job.ID(), err)
		}
		e.degraded = true
	}
	return tx.Commit()
}

// Outcome summarizes one batch run through the engine.
type Outcome struct {
	New        []*jobs.JobRecord
	Duplicates int
	Errors     []string
	Degraded   bool
}

// Process classifies and admits jobs one at a time, in order. Earlier
// accepts are visible to later classifications, so a batch containing
// two copies of the same posting keeps only the first. A failure on one
// job is recorded and does not stop the rest.
func (e *Engine) Process(ctx context.Context, batch []*jobs.JobRecord, runDate string) Outcome {
	var out Outcome
	for _, job := range batch {
		c, err := e.Classify(ctx, job)
		if err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("classify %s: %v", job.URL, err))
			continue
		}
		if c.Duplicate {
			out.Duplicates++
			log.Printf("duplicate (%s): %s @ %s", c.Layer, job.Title, job.Company)
			continue
		}
		if err := e.Accept(ctx, job, runDate); err != nil {
			if errors.Is(err, storage.ErrDuplicateJob) {
				out.Duplicates++
				continue
			}
			out.Errors = append(out.Errors, fmt.Sprintf("persist %s: %v", job.URL, err))
			continue
		}
		out.New = append(out.New, job)
	}
	out.Degraded = e.degraded
	return out
}
