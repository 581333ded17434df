package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/agstya/antigravity-job-search-agent/internal/jobs"
)

const defaultRemoteOKURL = "https://remoteok.com/api"

// RemoteOK fetches from the RemoteOK JSON API. The endpoint returns a
// JSON array whose first element is API metadata, not a job.
type RemoteOK struct {
	url    string
	client *http.Client
}

func NewRemoteOK(url string) *RemoteOK {
	if url == "" {
		url = defaultRemoteOKURL
	}
	return &RemoteOK{url: url, client: newHTTPClient()}
}

func (r *RemoteOK) Name() string { return "RemoteOK" }

type remoteOKItem struct {
	Position    string   `json:"position"`
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	URL         string   `json:"url"`
	Slug        string   `json:"slug"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
	SalaryMin   int      `json:"salary_min"`
	SalaryMax   int      `json:"salary_max"`
	Location    string   `json:"location"`
	Tags        []string `json:"tags"`
}

func (r *RemoteOK) Fetch(ctx context.Context) ([]*jobs.JobRecord, error) {
	resp, err := get(ctx, r.client, r.url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var items []remoteOKItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(items) < 2 {
		return nil, nil
	}

	var out []*jobs.JobRecord
	for _, item := range items[1:] {
		title := item.Position
		if title == "" {
			title = item.Title
		}
		url := item.URL
		if url == "" && item.Slug != "" {
			url = "https://remoteok.com/remote-jobs/" + item.Slug
		}
		if title == "" || url == "" {
			continue
		}

		company := item.Company
		if company == "" {
			company = "Unknown"
		}
		description := CleanHTML(item.Description)
		if len(item.Tags) > 0 {
			description += " " + strings.Join(item.Tags, " ")
		}

		var salaryText string
		if item.SalaryMin > 0 || item.SalaryMax > 0 {
			salaryText = fmt.Sprintf("$%d–$%d", item.SalaryMin, item.SalaryMax)
		}

		location := item.Location
		if location == "" {
			location = "Remote"
		}

		out = append(out, &jobs.JobRecord{
			Title:          title,
			Company:        company,
			URL:            url,
			Source:         r.Name(),
			PostedDate:     item.Date,
			EmploymentType: jobs.EmploymentFullTime,
			RemoteType:     jobs.RemoteRemote,
			SalaryText:     salaryText,
			SalaryMin:      item.SalaryMin,
			SalaryMax:      item.SalaryMax,
			Location:       location,
			Description:    description,
		})
	}
	return out, nil
}
