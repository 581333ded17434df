package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"

	"github.com/agstya/antigravity-job-search-agent/internal/jobs"
)

// rssFeed matches the subset of RSS 2.0 that job boards actually emit.
type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

// titleSeparators split "Senior Engineer at Acme" style feed titles
// into title and company. Order matters: " at " is the most specific.
var titleSeparators = []string{" at ", " @ ", " - ", " — ", " | "}

// RSS fetches a generic RSS 2.0 job feed.
type RSS struct {
	name   string
	url    string
	client *http.Client

	// company overrides title-based company extraction when the feed
	// belongs to a single employer's board.
	company string
	// locationFromTitle splits "Title – Location" suffixes (Lever).
	locationFromTitle bool
}

func NewRSS(name, url string) *RSS {
	return &RSS{name: name, url: url, client: newHTTPClient()}
}

// NewGreenhouse fetches a Greenhouse company board feed. The company
// name is derived from the slug since every entry belongs to it.
func NewGreenhouse(slug string) *RSS {
	return &RSS{
		name:    fmt.Sprintf("Greenhouse (%s)", slug),
		url:     fmt.Sprintf("https://boards.greenhouse.io/%s.rss", slug),
		client:  newHTTPClient(),
		company: slugToCompany(slug),
	}
}

// NewLever fetches a Lever company board feed. Lever titles carry a
// trailing location segment.
func NewLever(slug string) *RSS {
	return &RSS{
		name:              fmt.Sprintf("Lever (%s)", slug),
		url:               fmt.Sprintf("https://jobs.lever.co/%s?format=rss", slug),
		client:            newHTTPClient(),
		company:           slugToCompany(slug),
		locationFromTitle: true,
	}
}

func (r *RSS) Name() string { return r.name }

func (r *RSS) Fetch(ctx context.Context) ([]*jobs.JobRecord, error) {
	resp, err := get(ctx, r.client, r.url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var feed rssFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	var out []*jobs.JobRecord
	for _, item := range feed.Channel.Items {
		title := strings.TrimSpace(item.Title)
		link := strings.TrimSpace(item.Link)
		if title == "" || link == "" {
			continue
		}

		company := r.company
		var location string
		if company == "" {
			title, company = splitTitleCompany(title)
		} else if r.locationFromTitle {
			title, location = splitTitleLocation(title)
		}

		out = append(out, &jobs.JobRecord{
			Title:       title,
			Company:     company,
			URL:         link,
			Source:      r.name,
			PostedDate:  strings.TrimSpace(item.PubDate),
			Location:    location,
			Description: CleanHTML(item.Description),
		})
	}
	return out, nil
}

func splitTitleCompany(title string) (string, string) {
	for _, sep := range titleSeparators {
		if i := strings.Index(title, sep); i >= 0 {
			return strings.TrimSpace(title[:i]), strings.TrimSpace(title[i+len(sep):])
		}
	}
	return title, "Unknown"
}

func splitTitleLocation(title string) (string, string) {
	if i := strings.LastIndex(title, " – "); i >= 0 {
		return strings.TrimSpace(title[:i]), strings.TrimSpace(title[i+len(" – "):])
	}
	return title, ""
}

func slugToCompany(slug string) string {
	words := strings.Split(strings.ReplaceAll(slug, "-", " "), " ")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
