package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/vitrina/vitrina/pkg/config"
	"github.com/vitrina/vitrina/pkg/search"
)

// RebuildCommand creates the rebuild command
func RebuildCommand() *cli.Command {
	return &cli.Command{
		Name:  "rebuild",
		Usage: "Rebuild the search index from the store and verify it",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "user",
				Usage: "Only rebuild this user's section",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return rebuildIndex(ctx, c.String("config"), c.String("user"))
		},
	}
}

// rebuildIndex walks every owner's figures through a fresh index build.
// The serving index lives in the serve process and is rebuilt there on
// startup; this command is a dry run that proves the store contents are
// indexable and reports per-owner figure counts.
func rebuildIndex(ctx context.Context, configPath, user string) error {
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

	var owners []string
	if user != "" {
		ownerID, err := resolveOwnerID(ctx, store, user)
		if err != nil {
			return err
		}
		owners = []string{ownerID}
	} else {
		owners, err = store.ListOwnerIDs(ctx)
		if err != nil {
			return fmt.Errorf("listing owners: %w", err)
		}
	}

	engine := search.NewEngine(store, search.NewIndex())
	for _, owner := range owners {
		if err := engine.RebuildOwner(ctx, owner); err != nil {
			return fmt.Errorf("rebuilding index for owner %s: %w", owner, err)
		}
		count, err := store.CountByOwner(ctx, owner)
		if err != nil {
			return fmt.Errorf("counting figures for owner %s: %w", owner, err)
		}
		fmt.Printf("owner %s: %d figures indexed\n", owner, count)
	}

	fmt.Printf("Rebuilt %d index section(s)\n", len(owners))
	return nil
}
