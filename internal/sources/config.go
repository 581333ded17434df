// Package sources fetches raw job postings from configured job boards.
// Each adapter is independent; one board failing or timing out never
// affects the others.
package sources

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SourceConfig is one entry in sources.yaml.
type SourceConfig struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	URL         string `yaml:"url"`
	CompanySlug string `yaml:"company_slug"`
	Enabled     bool   `yaml:"enabled"`
}

type configFile struct {
	Sources []SourceConfig `yaml:"sources"`
}

// LoadConfigs reads sources.yaml and returns the enabled entries.
func LoadConfigs(path string) ([]SourceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources config: %w", err)
	}
	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse sources config: %w", err)
	}
	enabled := make([]SourceConfig, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		if s.Enabled {
			enabled = append(enabled, s)
		}
	}
	return enabled, nil
}

// BuildFetchers turns configs into fetchers, skipping entries that are
// missing required fields or have an unknown type. Skips are reported
// as strings so the run log can surface them.
func BuildFetchers(configs []SourceConfig) ([]Fetcher, []string) {
	var fetchers []Fetcher
	var skipped []string
	for _, c := range configs {
		switch c.Type {
		case "remoteok_api":
			fetchers = append(fetchers, NewRemoteOK(c.URL))
		case "rss":
			if c.URL == "" {
				skipped = append(skipped, fmt.Sprintf("rss source %q has no url", c.Name))
				continue
			}
			fetchers = append(fetchers, NewRSS(c.Name, c.URL))
		case "greenhouse":
			if c.CompanySlug == "" {
				skipped = append(skipped, fmt.Sprintf("greenhouse source %q has no company_slug", c.Name))
				continue
			}
			fetchers = append(fetchers, NewGreenhouse(c.CompanySlug))
		case "lever":
			if c.CompanySlug == "" {
				skipped = append(skipped, fmt.Sprintf("lever source %q has no company_slug", c.Name))
				continue
			}
			fetchers = append(fetchers, NewLever(c.CompanySlug))
		default:
			skipped = append(skipped, fmt.Sprintf("unknown source type %q for %q", c.Type, c.Name))
		}
	}
	return fetchers, skipped
}
