// Package scrape harvests raw listing pages from the classifieds portal
// through a rendering proxy and stores them for the dataset builder.
package scrape

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Source describes one model search on the portal: where its result
// pages start, how many to pull and where they land on disk. The vehicle
// identity fields are joined onto dataset rows later, keyed by
// destination folder.
type Source struct {
	Brand             string `yaml:"brand"`
	Model             string `yaml:"model"`
	Segment           string `yaml:"segment"`
	BodyType          string `yaml:"body_type"`
	FirstURL          string `yaml:"first_url"`
	Pages             int    `yaml:"pages"`
	DestinationFolder string `yaml:"destination_folder"`

	// Load gates the source: the list keeps retired searches around
	// with load false.
	Load bool `yaml:"load"`
}

type sourceFile struct {
	Sources []Source `yaml:"sources"`
}

// LoadSources reads the source list. Every source must carry a first
// URL, a destination folder and a positive page count.
func LoadSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source list: %w", err)
	}

	var f sourceFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse source list: %w", err)
	}
	if len(f.Sources) == 0 {
		return nil, errors.New("source list is empty")
	}

	for i, s := range f.Sources {
		if s.FirstURL == "" {
			return nil, fmt.Errorf("source %d (%s %s): missing first_url", i, s.Brand, s.Model)
		}
		if s.DestinationFolder == "" {
			return nil, fmt.Errorf("source %d (%s %s): missing destination_folder", i, s.Brand, s.Model)
		}
		if s.Pages <= 0 {
			return nil, fmt.Errorf("source %d (%s %s): pages must be positive", i, s.Brand, s.Model)
		}
	}
	return f.Sources, nil
}

// Enabled filters the list down to sources flagged for loading.
func Enabled(sources []Source) []Source {
	out := sources[:0:0]
	for _, s := range sources {
		if s.Load {
			out = append(out, s)
		}
	}
	return out
}

// Credentials holds the proxy access configuration.
type Credentials struct {
	ProxyAPIKey string `yaml:"proxy_api_key"`
	ProxyURL    string `yaml:"proxy_url"`
	CACertPath  string `yaml:"ca_cert_path"`
}

// LoadCredentials reads the credentials file.
func LoadCredentials(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("read credentials: %w", err)
	}

	var c Credentials
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Credentials{}, fmt.Errorf("parse credentials: %w", err)
	}
	if c.ProxyAPIKey == "" {
		return Credentials{}, errors.New("credentials: proxy_api_key is required")
	}
	if c.ProxyURL == "" {
		c.ProxyURL = "http://api.zyte.com:8011"
	}
	return c, nil
}
