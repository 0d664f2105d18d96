package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/vitrina/vitrina/pkg/config"
	"github.com/vitrina/vitrina/pkg/core"
	"github.com/vitrina/vitrina/pkg/realtime"
	"github.com/vitrina/vitrina/pkg/scraper"
	"github.com/vitrina/vitrina/pkg/search"
	"github.com/vitrina/vitrina/pkg/sources/dump"
)

// ImportCommand creates the import command
func ImportCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import figures from a dump file (JSON lines, optionally .zst)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "user",
				Usage:    "Username (or user id) to import the figures into",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "file",
				Usage:    "Dump file path",
				Required: true,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return importDump(ctx, c.String("config"), c.String("user"), c.String("file"))
		},
	}
}

func importDump(ctx context.Context, configPath, user, path string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()

	ownerID, err := resolveOwnerID(ctx, store, user)
	if err != nil {
		return err
	}

	engine := search.NewEngine(store, search.NewIndex())
	if err := engine.RebuildOwner(ctx, ownerID); err != nil {
		return fmt.Errorf("building index: %w", err)
	}

	src, err := dump.NewSource("import", &dump.Config{Owner: ownerID, Path: path})
	if err != nil {
		return fmt.Errorf("creating dump reader: %w", err)
	}

	scheduler := scraper.NewScheduler(scraper.Config{}, store, engine, realtime.NewHub(1))

	figureCh := make(chan core.Figure, 64)
	ingestErrCh := make(chan error, 1)
	imported := 0
	go func() {
		var ingestErr error
		for figure := range figureCh {
			if ingestErr != nil {
				// Keep draining so the reader never blocks.
				continue
			}
			f := figure
			if err := scheduler.Ingest(ctx, &f, "import"); err != nil {
				ingestErr = fmt.Errorf("importing figure %s: %w", f.Name, err)
				continue
			}
			imported++
		}
		ingestErrCh <- ingestErr
	}()

	fetchErr := src.FetchFigures(ctx, figureCh)
	close(figureCh)
	if err := <-ingestErrCh; err != nil {
		return err
	}
	if fetchErr != nil {
		return fmt.Errorf("reading dump: %w", fetchErr)
	}

	fmt.Printf("Imported %d figures from %s\n", imported, path)
	return nil
}
