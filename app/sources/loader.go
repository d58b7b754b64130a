package sources

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Source is a single configured news feed.
type Source struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Enabled *bool  `yaml:"enabled,omitempty"`
}

func (s Source) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

type fileFormat struct {
	Sources []Source `yaml:"sources"`
}

// Defaults is the built-in source list used when no sources file exists.
var Defaults = []Source{
	{Name: "BBC News", URL: "http://feeds.bbci.co.uk/news/rss.xml"},
	{Name: "NPR", URL: "https://feeds.npr.org/1001/rss.xml"},
	{Name: "The Guardian", URL: "https://www.theguardian.com/world/rss"},
	{Name: "New York Times World", URL: "https://rss.nytimes.com/services/xml/rss/nyt/World.xml"},
	{Name: "Yahoo News", URL: "https://news.yahoo.com/rss/"},
	{Name: "ABC News International", URL: "https://abcnews.go.com/abcnews/internationalheadlines"},
	{Name: "South China Morning Post", URL: "https://www.scmp.com/rss/91/feed"},
}

// Load reads the source list from path. A missing file is not an error:
// the built-in defaults are returned instead.
func Load(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Defaults, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}

	if len(f.Sources) == 0 {
		return nil, fmt.Errorf("sources file %s defines no sources", path)
	}

	seen := make(map[string]bool, len(f.Sources))
	for i, s := range f.Sources {
		if s.Name == "" {
			return nil, fmt.Errorf("source %d has no name", i)
		}
		if s.URL == "" {
			return nil, fmt.Errorf("source %q has no url", s.Name)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("duplicate source name %q", s.Name)
		}
		seen[s.Name] = true
	}

	return f.Sources, nil
}

// Enabled filters the list down to enabled sources.
func Enabled(list []Source) []Source {
	out := make([]Source, 0, len(list))
	for _, s := range list {
		if s.IsEnabled() {
			out = append(out, s)
		}
	}
	return out
}
