// Package dump reads collection dumps: JSON lines files, optionally
// zstd-compressed (.zst). Dumps are how users migrate an existing
// collection in, so rows without an id get a fresh one minted.
package dump

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/vitrina/vitrina/pkg/core"
	"github.com/vitrina/vitrina/pkg/log"
)

func init() {
	core.RegisterSourcePrototype("dump", &Source{})
}

type Config struct {
	Owner string `toml:"owner,omitempty"`
	Path  string `toml:"path"`
}

func (c *Config) SetOwner(owner string) { c.Owner = owner }

func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("dump source requires a path")
	}
	return nil
}

type Source struct {
	config       *Config
	logger       *log.Logger
	instanceName string
}

// row is one dump line. The field names match what the export command
// writes, so a dump round-trips.
type row struct {
	ID           string `json:"id,omitempty"`
	Manufacturer string `json:"manufacturer"`
	Name         string `json:"name"`
	Scale        string `json:"scale,omitempty"`
	SourceLink   string `json:"source_link,omitempty"`
	Location     string `json:"location,omitempty"`
	BoxNumber    string `json:"box_number,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
}

func NewSource(instanceName string, config interface{}) (core.Source, error) {
	var cfg *Config
	if config == nil {
		cfg = &Config{}
	} else {
		var ok bool
		cfg, ok = config.(*Config)
		if !ok {
			return nil, fmt.Errorf("invalid config type for dump source")
		}
	}

	return &Source{
		config:       cfg,
		logger:       log.For(instanceName),
		instanceName: instanceName,
	}, nil
}

func (s *Source) Type() string    { return "dump" }
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
	return fmt.Errorf("invalid config type for dump source")
}

func (s *Source) GetConfig() interface{} { return s.config }

func (s *Source) Close() error { return nil }

func (s *Source) Factory(instanceName string, config interface{}) (core.Source, error) {
	return NewSource(instanceName, config)
}

func (s *Source) FetchFigures(ctx context.Context, figureCh chan<- core.Figure) error {
	if err := s.config.Validate(); err != nil {
		return err
	}

	file, err := os.Open(s.config.Path)
	if err != nil {
		return fmt.Errorf("opening dump %s: %w", s.config.Path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	var reader io.Reader = file
	if strings.HasSuffix(s.config.Path, ".zst") {
		decoder, err := zstd.NewReader(file)
		if err != nil {
			return fmt.Errorf("creating zstd decoder: %w", err)
		}
		defer decoder.Close()
		reader = decoder
	}

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	sent := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var r row
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			s.logger.Warnf("skipping malformed line %d: %v", lineNo, err)
			continue
		}
		if r.Name == "" || r.Manufacturer == "" {
			s.logger.Warnf("skipping line %d: missing name or manufacturer", lineNo)
			continue
		}

		id := r.ID
		if id == "" {
			id = "dump-" + uuid.New().String()
		}

		figure := core.Figure{
			ID:           id,
			OwnerID:      s.config.Owner,
			Manufacturer: r.Manufacturer,
			Name:         r.Name,
			Scale:        r.Scale,
			SourceLink:   r.SourceLink,
			Location:     r.Location,
			BoxNumber:    r.BoxNumber,
			ImageURL:     r.ImageURL,
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case figureCh <- figure:
			sent++
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading dump: %w", err)
	}

	s.logger.Infof("read %d figures from %s", sent, s.config.Path)
	return nil
}
