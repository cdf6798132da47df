package scheduler

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Source is a configured news source. Sources files are YAML or JSON:
//
//	sources:
//	  - id: bbc
//	    name: BBC News
//	    url: https://www.bbc.com/news
//	    country: uk
//	    link_pattern: /news/articles/
type Source struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	URL         string `yaml:"url"`
	Country     string `yaml:"country"`
	Enabled     *bool  `yaml:"enabled"`
	LinkPattern string `yaml:"link_pattern"`
}

// IsEnabled reports whether the source is enabled. Sources are enabled
// unless they say otherwise.
func (s Source) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

// LoadSources reads a sources file. A missing file yields no sources.
func LoadSources(path string) ([]Source, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read sources file %s: %w", path, err)
	}

	var f sourcesFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("unable to parse sources file %s: %w", path, err)
	}
	for i, s := range f.Sources {
		if s.ID == "" || s.URL == "" {
			return nil, fmt.Errorf("source %d in %s needs an id and a url", i, path)
		}
		if s.Name == "" {
			f.Sources[i].Name = s.ID
		}
	}
	return f.Sources, nil
}
