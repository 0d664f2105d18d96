// Package hlj scrapes a HobbyLink Japan style shop API for figure
// listings. The shop exposes paginated JSON; each product becomes one
// figure with a deterministic id so repeated scrapes update rather than
// duplicate.
package hlj

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/vitrina/vitrina/pkg/core"
	"github.com/vitrina/vitrina/pkg/log"
)

func init() {
	core.RegisterSourcePrototype("hlj", &Source{})
}

const defaultBaseURL = "https://www.hlj.com/api/v1"

type Config struct {
	Owner      string   `toml:"owner,omitempty"`
	BaseURL    string   `toml:"base_url,omitempty"`
	Categories []string `toml:"categories"`
	MaxItems   int      `toml:"max_items"`
}

func (c *Config) SetOwner(owner string) { c.Owner = owner }

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if len(c.Categories) == 0 {
		c.Categories = []string{"figures"}
	}
	if c.MaxItems <= 0 {
		c.MaxItems = 200
	}
	if c.MaxItems > 1000 {
		c.MaxItems = 1000
	}
	return nil
}

type Source struct {
	config       *Config
	client       *http.Client
	logger       *log.Logger
	instanceName string
}

// product mirrors the shop API's JSON shape.
type product struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Maker    string `json:"maker"`
	Scale    string `json:"scale"`
	URL      string `json:"url"`
	ImageURL string `json:"image_url"`
}

type productPage struct {
	Items   []product `json:"items"`
	HasMore bool      `json:"has_more"`
}

func NewSource(instanceName string, config interface{}) (core.Source, error) {
	var cfg *Config
	if config == nil {
		cfg = &Config{}
	} else {
		var ok bool
		cfg, ok = config.(*Config)
		if !ok {
			return nil, fmt.Errorf("invalid config type for hlj source")
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Source{
		config:       cfg,
		client:       &http.Client{Timeout: 30 * time.Second},
		logger:       log.For(instanceName),
		instanceName: instanceName,
	}, nil
}

func (s *Source) Type() string    { return "hlj" }
func (s *Source) Name() string    { return s.instanceName }
func (s *Source) OwnerID() string { return s.config.Owner }

func (s *Source) ConfigType() interface{} { return &Config{} }

func (s *Source) SetConfig(config interface{}) error {
	if cfg, ok := config.(*Config); ok {
		if err := cfg.Validate(); err != nil {
			return err
		}
		s.config = cfg
		return nil
	}
	return fmt.Errorf("invalid config type for hlj source")
}

func (s *Source) GetConfig() interface{} { return s.config }

func (s *Source) Close() error {
	if s.client != nil {
		s.client.CloseIdleConnections()
	}
	return nil
}

func (s *Source) Factory(instanceName string, config interface{}) (core.Source, error) {
	return NewSource(instanceName, config)
}

func (s *Source) FetchFigures(ctx context.Context, figureCh chan<- core.Figure) error {
	total := 0
	for _, category := range s.config.Categories {
		n, err := s.fetchCategory(ctx, category, s.config.MaxItems-total, figureCh)
		if err != nil {
			return fmt.Errorf("fetching category %s: %w", category, err)
		}
		total += n
		if total >= s.config.MaxItems {
			break
		}
	}
	s.logger.Infof("fetched %d products", total)
	return nil
}

func (s *Source) fetchCategory(ctx context.Context, category string, budget int, figureCh chan<- core.Figure) (int, error) {
	if budget <= 0 {
		return 0, nil
	}

	sent := 0
	for page := 1; ; page++ {
		items, hasMore, err := s.fetchPage(ctx, category, page)
		if err != nil {
			return sent, err
		}

		for _, item := range items {
			if item.Code == "" || item.Name == "" || item.Maker == "" {
				continue
			}
			figure := core.Figure{
				ID:           "hlj-" + item.Code,
				OwnerID:      s.config.Owner,
				Manufacturer: item.Maker,
				Name:         item.Name,
				Scale:        item.Scale,
				SourceLink:   item.URL,
				ImageURL:     item.ImageURL,
			}
			select {
			case <-ctx.Done():
				return sent, ctx.Err()
			case figureCh <- figure:
				sent++
			}
			if sent >= budget {
				return sent, nil
			}
		}

		if !hasMore {
			return sent, nil
		}
	}
}

func (s *Source) fetchPage(ctx context.Context, category string, page int) ([]product, bool, error) {
	u := fmt.Sprintf("%s/products?category=%s&page=%d", s.config.BaseURL, url.QueryEscape(category), page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, u)
	}

	var pageData productPage
	if err := json.NewDecoder(resp.Body).Decode(&pageData); err != nil {
		return nil, false, fmt.Errorf("decoding product page: %w", err)
	}
	return pageData.Items, pageData.HasMore, nil
}
