package vector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/agstya/antigravity-job-search-agent/internal/storage"
)

// ErrUnavailable is returned when the embedding backend cannot be
// initialized. Callers degrade by skipping the semantic layer.
var ErrUnavailable = errors.New("similarity index unavailable")

// Match is one nearest-neighbor result.
type Match struct {
	ID         string
	Similarity float32
}

// Index performs nearest-neighbor lookups over stored job embeddings.
// Initialization is lazy and idempotent: the embedding backend is not
// touched until the first query or upsert, so runs that never reach the
// dedupe stage pay nothing. Owned by the executor; not a global.
type Index struct {
	embedder Embedder
	store    *storage.Store

	mu      sync.Mutex
	checked bool
	initErr error
}

// NewIndex creates an index over the store's embeddings table.
func NewIndex(embedder Embedder, store *storage.Store) *Index {
	return &Index{embedder: embedder, store: store}
}

// ensureReady performs the one-time backend health check.
func (i *Index) ensureReady(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.checked {
		return i.initErr
	}
	i.checked = true
	if err := i.embedder.Health(ctx); err != nil {
		i.initErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return i.initErr
}

// QueryNearest returns up to k stored embeddings most similar to text,
// sorted by descending similarity.
func (i *Index) QueryNearest(ctx context.Context, text string, k int) ([]Match, error) {
	if err := i.ensureReady(ctx); err != nil {
		return nil, err
	}

	query, err := i.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	stored, err := i.store.ListEmbeddings()
	if err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}

	matches := make([]Match, 0, len(stored))
	for _, e := range stored {
		vec := DeserializeEmbedding(e.Blob)
		if vec == nil {
			continue
		}
		matches = append(matches, Match{ID: e.JobID, Similarity: CosineSimilarity(query, vec)})
	}

	sort.Slice(matches, func(a, b int) bool {
		return matches[a].Similarity > matches[b].Similarity
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// UpsertTx embeds text and writes the embedding for id inside the
// caller's transaction, so the embedding commits or rolls back together
// with the job row it belongs to.
func (i *Index) UpsertTx(ctx context.Context, tx *sql.Tx, id, text string) error {
	if err := i.ensureReady(ctx); err != nil {
		return err
	}
	vec, err := i.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed text: %w", err)
	}
	return i.store.InsertEmbeddingTx(tx, id, SerializeEmbedding(vec))
}

// Close releases index resources. The SQLite handle is owned by the
// store, so there is nothing to tear down today; the method exists so the
// executor controls the index lifecycle explicitly.
func (i *Index) Close() error {
	return nil
}
