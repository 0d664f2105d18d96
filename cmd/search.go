package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/vitrina/vitrina/pkg/config"
	"github.com/vitrina/vitrina/pkg/core"
	"github.com/vitrina/vitrina/pkg/search"
)

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search a user's figure catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "user",
				Usage:    "Username (or user id) whose catalog to search",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "query",
				Usage: "Search text",
			},
			&cli.BoolFlag{
				Name:  "partial",
				Usage: "Substring search instead of prefix autocomplete",
				Value: false,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of results",
				Value: search.DefaultLimit,
			},
			&cli.IntFlag{
				Name:  "offset",
				Usage: "Results to skip (partial search only)",
				Value: 0,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return searchCatalog(ctx, c.String("config"), c.String("user"),
				c.String("query"), c.Bool("partial"), c.Int("limit"), c.Int("offset"))
		},
	}
}

func searchCatalog(ctx context.Context, configPath, user, queryText string, partial bool, limit, offset int) error {
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

	query, err := search.Validate(ownerID, queryText,
		strconv.Itoa(limit), strconv.Itoa(offset), partial)
	if err != nil {
		return fmt.Errorf("invalid query: %w", err)
	}

	var figures []*core.Figure
	if partial {
		figures, err = engine.Partial(ctx, query)
	} else {
		figures, err = engine.WordWheel(ctx, query)
	}
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	if len(figures) == 0 {
		fmt.Println(noDataStyle.Render("No figures matched."))
		return nil
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("%d result(s) for %q", len(figures), query.Text)))
	for _, f := range figures {
		printFigure(f)
	}
	return nil
}
