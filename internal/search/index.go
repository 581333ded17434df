// Package search provides full-text search over the persisted job
// history, backed by a Bleve index on disk. Indexing is best-effort:
// the SQLite store is the source of truth and the index can always be
// rebuilt from it.
package search

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/agstya/antigravity-job-search-agent/internal/storage"
)

// Index wraps a Bleve search index over accepted jobs.
type Index struct {
	index bleve.Index
}

// IndexedJob is the document shape stored in the index.
type IndexedJob struct {
	ID          string
	Title       string
	Company     string
	Location    string
	Description string
	Source      string
	URL         string
	RunDate     string
}

// Result is one search hit.
type Result struct {
	ID        string
	Title     string
	Company   string
	URL       string
	Score     float64
	Fragments map[string][]string // Highlighted snippets
}

// Open opens or creates a Bleve index at path.
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	return &Index{index: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()

	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = "en" // English analyzer for better stemming

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("ID", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("Title", titleFieldMapping)
	docMapping.AddFieldMappingsAt("Company", titleFieldMapping)
	docMapping.AddFieldMappingsAt("Description", textFieldMapping)
	docMapping.AddFieldMappingsAt("Location", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("URL", bleve.NewTextFieldMapping())

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}

// Close closes the index.
func (i *Index) Close() error {
	return i.index.Close()
}

// IndexJob adds or updates one job in the index.
func (i *Index) IndexJob(job *storage.PersistedJob) error {
	return i.index.Index(job.JobID, toDocument(job))
}

// Delete removes a job from the index.
func (i *Index) Delete(id string) error {
	return i.index.Delete(id)
}

// Search runs a query string (supports quotes, boolean operators,
// fuzzy ~) against the job history.
func (i *Index) Search(queryStr string, limit int) ([]*Result, error) {
	query := bleve.NewQueryStringQuery(queryStr)

	req := bleve.NewSearchRequestOptions(query, limit, 0, false)
	req.Highlight = bleve.NewHighlightWithStyle("html")
	req.Fields = []string{"Title", "Company", "URL"}

	results, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var hits []*Result
	for _, hit := range results.Hits {
		r := &Result{
			ID:        hit.ID,
			Score:     hit.Score,
			Fragments: hit.Fragments,
		}
		if title, ok := hit.Fields["Title"].(string); ok {
			r.Title = title
		}
		if company, ok := hit.Fields["Company"].(string); ok {
			r.Company = company
		}
		if url, ok := hit.Fields["URL"].(string); ok {
			r.URL = url
		}
		hits = append(hits, r)
	}
	return hits, nil
}

// Rebuild reindexes the full job history from the store.
func (i *Index) Rebuild(store *storage.Store) error {
	all, err := store.ListJobs()
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	batch := i.index.NewBatch()
	for _, job := range all {
		if err := batch.Index(job.JobID, toDocument(job)); err != nil {
			return fmt.Errorf("batch index %s: %w", job.JobID, err)
		}
	}
	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Count returns the number of indexed jobs.
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}

func toDocument(job *storage.PersistedJob) *IndexedJob {
	return &IndexedJob{
		ID:          job.JobID,
		Title:       job.Title,
		Company:     job.Company,
		Location:    job.Location,
		Description: job.Description,
		Source:      job.Source,
		URL:         job.URL,
		RunDate:     job.RunDate,
	}
}
