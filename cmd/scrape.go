package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/vitrina/vitrina/pkg/config"
	"github.com/vitrina/vitrina/pkg/core"
	"github.com/vitrina/vitrina/pkg/log"
	"github.com/vitrina/vitrina/pkg/realtime"
	"github.com/vitrina/vitrina/pkg/scraper"
)

// ScrapeCommand creates the scrape command
func ScrapeCommand() *cli.Command {
	return &cli.Command{
		Name:  "scrape",
		Usage: "Scrape configured sources once and exit",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "source",
				Usage: "Scrape a single source instead of all of them",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return scrapeOnce(ctx, c.String("config"), c.String("source"))
		},
	}
}

func scrapeOnce(ctx context.Context, configPath, sourceName string) error {
	logger := log.For("scrape")

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	registry := core.GetGlobalRegistry()
	if err := createSourcesFromConfig(registry, cfg); err != nil {
		return fmt.Errorf("creating sources: %w", err)
	}
	defer func() {
		if err := registry.Close(); err != nil {
			logger.Warnf("closing registry: %v", err)
		}
	}()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warnf("closing store: %v", err)
		}
	}()

	engine, err := buildEngine(ctx, store)
	if err != nil {
		return fmt.Errorf("building search engine: %w", err)
	}

	scheduler := scraper.NewScheduler(scraper.Config{}, store, engine, realtime.NewHub(1))

	for _, name := range cfg.ListSources() {
		src, err := registry.GetSource(name)
		if err != nil {
			return fmt.Errorf("looking up source %s: %w", name, err)
		}
		if err := scheduler.AddSource(name, src, 0); err != nil {
			return fmt.Errorf("adding source %s: %w", name, err)
		}
	}

	if sourceName != "" {
		fmt.Printf("Scraping source %s...\n", sourceName)
		return scheduler.ScrapeSource(ctx, sourceName)
	}

	fmt.Printf("Scraping %d sources...\n", len(cfg.ListSources()))
	return scheduler.ScrapeAll(ctx)
}
