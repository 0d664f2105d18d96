// Package figuredb imports figures from a community-maintained catalog
// published as JSON files in a GitHub repository. Each file under the
// configured path holds an array of figure records; the source walks the
// directory listing and streams every record.
package figuredb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"

	"github.com/vitrina/vitrina/pkg/core"
	"github.com/vitrina/vitrina/pkg/log"
)

func init() {
	core.RegisterSourcePrototype("figuredb", &Source{})
}

type Config struct {
	Owner     string `toml:"owner,omitempty"`
	RepoOwner string `toml:"repo_owner"`
	RepoName  string `toml:"repo_name"`
	// Path is the directory inside the repository holding the JSON files.
	Path string `toml:"path"`
	// Token raises the API rate limit; anonymous access works for public
	// repositories.
	Token string `toml:"token,omitempty"`
}

func (c *Config) SetOwner(owner string) { c.Owner = owner }

func (c *Config) Validate() error {
	if c.RepoOwner == "" || c.RepoName == "" {
		return fmt.Errorf("figuredb source requires repo_owner and repo_name")
	}
	if c.Path == "" {
		c.Path = "figures"
	}
	return nil
}

type Source struct {
	config       *Config
	client       *github.Client
	logger       *log.Logger
	instanceName string
}

// record is one entry in a catalog file.
type record struct {
	Slug         string `json:"slug"`
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
	Scale        string `json:"scale"`
	Link         string `json:"link"`
	ImageURL     string `json:"image_url"`
}

func NewSource(instanceName string, config interface{}) (core.Source, error) {
	var cfg *Config
	if config == nil {
		cfg = &Config{}
	} else {
		var ok bool
		cfg, ok = config.(*Config)
		if !ok {
			return nil, fmt.Errorf("invalid config type for figuredb source")
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	s := &Source{
		config:       cfg,
		logger:       log.For(instanceName),
		instanceName: instanceName,
	}
	s.client = newClient(context.Background(), cfg.Token)
	return s, nil
}

func newClient(ctx context.Context, token string) *github.Client {
	if token == "" {
		return github.NewClient(nil)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return github.NewClient(oauth2.NewClient(ctx, ts))
}

func (s *Source) Type() string    { return "figuredb" }
func (s *Source) Name() string    { return s.instanceName }
func (s *Source) OwnerID() string { return s.config.Owner }

func (s *Source) ConfigType() interface{} { return &Config{} }

func (s *Source) SetConfig(config interface{}) error {
	if cfg, ok := config.(*Config); ok {
		if err := cfg.Validate(); err != nil {
			return err
		}
		s.config = cfg
		s.client = newClient(context.Background(), cfg.Token)
		return nil
	}
	return fmt.Errorf("invalid config type for figuredb source")
}

func (s *Source) GetConfig() interface{} { return s.config }

func (s *Source) Close() error { return nil }

func (s *Source) Factory(instanceName string, config interface{}) (core.Source, error) {
	return NewSource(instanceName, config)
}

func (s *Source) FetchFigures(ctx context.Context, figureCh chan<- core.Figure) error {
	_, entries, _, err := s.client.Repositories.GetContents(ctx,
		s.config.RepoOwner, s.config.RepoName, s.config.Path, nil)
	if err != nil {
		return fmt.Errorf("listing %s/%s/%s: %w", s.config.RepoOwner, s.config.RepoName, s.config.Path, err)
	}

	total := 0
	for _, entry := range entries {
		if entry.GetType() != "file" || !strings.HasSuffix(entry.GetName(), ".json") {
			continue
		}

		n, err := s.fetchFile(ctx, entry.GetPath(), figureCh)
		if err != nil {
			return fmt.Errorf("reading %s: %w", entry.GetPath(), err)
		}
		total += n
	}

	s.logger.Infof("imported %d records from %s/%s", total, s.config.RepoOwner, s.config.RepoName)
	return nil
}

func (s *Source) fetchFile(ctx context.Context, path string, figureCh chan<- core.Figure) (int, error) {
	content, _, _, err := s.client.Repositories.GetContents(ctx,
		s.config.RepoOwner, s.config.RepoName, path, nil)
	if err != nil {
		return 0, err
	}

	raw, err := content.GetContent()
	if err != nil {
		return 0, fmt.Errorf("decoding content: %w", err)
	}

	var records []record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return 0, fmt.Errorf("parsing catalog file: %w", err)
	}

	sent := 0
	for _, rec := range records {
		if rec.Slug == "" || rec.Name == "" || rec.Manufacturer == "" {
			continue
		}
		figure := core.Figure{
			ID:           "figuredb-" + rec.Slug,
			OwnerID:      s.config.Owner,
			Manufacturer: rec.Manufacturer,
			Name:         rec.Name,
			Scale:        rec.Scale,
			SourceLink:   rec.Link,
			ImageURL:     rec.ImageURL,
		}
		select {
		case <-ctx.Done():
			return sent, ctx.Err()
		case figureCh <- figure:
			sent++
		}
	}
	return sent, nil
}
