package sources

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/agstya/antigravity-job-search-agent/internal/jobs"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "JobSearchAgent/1.0 (+https://github.com/agstya/antigravity-job-search-agent)"
)

// Fetcher retrieves raw job records from one configured source.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]*jobs.JobRecord, error)
}

// FetchAll runs fetchers with a bounded worker pool. A failing or
// timed-out source contributes zero jobs and one error string; it never
// blocks its siblings. Job order follows the fetchers slice so runs are
// reproducible regardless of which worker finished first.
func FetchAll(ctx context.Context, fetchers []Fetcher, workers int) ([]*jobs.JobRecord, []string) {
	if workers < 1 {
		workers = 1
	}

	type result struct {
		jobs []*jobs.JobRecord
		err  error
	}
	results := make([]result, len(fetchers))

	work := make(chan int, len(fetchers))
	for i := range fetchers {
		work <- i
	}
	close(work)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				f := fetchers[i]
				fetched, err := f.Fetch(ctx)
				if err != nil {
					log.Printf("source %s failed: %v", f.Name(), err)
				} else {
					log.Printf("source %s: %d jobs", f.Name(), len(fetched))
				}
				results[i] = result{jobs: fetched, err: err}
			}
		}()
	}
	wg.Wait()

	var all []*jobs.JobRecord
	var errs []string
	for i, r := range results {
		if r.err != nil {
			errs = append(errs, fmt.Sprintf("source %s: %v", fetchers[i].Name(), r.err))
			continue
		}
		all = append(all, r.jobs...)
	}
	return all, errs
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

func get(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp, nil
}
