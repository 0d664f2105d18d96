package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/vitrina/vitrina/pkg/config"
	"github.com/vitrina/vitrina/pkg/core"
	"github.com/vitrina/vitrina/pkg/storage"
)

// ListCommand creates the list command
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List a user's figures",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "user",
				Usage:    "Username (or user id) whose figures to list",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "prefix",
				Usage: "Only show figures whose name starts with this prefix",
			},
			&cli.StringFlag{
				Name:  "field",
				Usage: "Field the prefix applies to: name or manufacturer",
				Value: storage.FieldName,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return listFigures(ctx, c.String("config"), c.String("user"),
				c.String("prefix"), c.String("field"))
		},
	}
}

func listFigures(ctx context.Context, configPath, user, prefix, field string) error {
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

	var figures []*core.Figure
	if prefix != "" {
		figures, err = store.FindByOwnerPrefix(ctx, ownerID, field, prefix)
	} else {
		figures, err = store.FindAllByOwner(ctx, ownerID)
	}
	if err != nil {
		return fmt.Errorf("listing figures: %w", err)
	}

	if len(figures) == 0 {
		fmt.Println(noDataStyle.Render("No figures found."))
		return nil
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("%d figure(s)", len(figures))))
	for _, f := range figures {
		printFigure(f)
	}
	return nil
}
