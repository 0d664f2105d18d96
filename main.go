package main

import (
	"context"
	stdlog "log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/vitrina/vitrina/cmd"
	"github.com/vitrina/vitrina/pkg/config"
	"github.com/vitrina/vitrina/pkg/log"

	_ "github.com/vitrina/vitrina/pkg/sources/dump"
	_ "github.com/vitrina/vitrina/pkg/sources/figuredb"
	_ "github.com/vitrina/vitrina/pkg/sources/hlj"
)

func main() {
	// Optional .env for VITRINA_JWT_SECRET and friends.
	_ = godotenv.Load()

	app := &cli.Command{
		Name:  "vitrina",
		Usage: "A personal collectible figure catalog with fast search",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
				Value: false,
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Configuration file path",
				Value: getDefaultConfigPathOrExit(),
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			if c.Bool("debug") {
				log.SetGlobalDebug(true)
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			cmd.InitCommand(),
			cmd.ServeCommand(),
			cmd.ScrapeCommand(),
			cmd.SearchCommand(),
			cmd.ListCommand(),
			cmd.UserCommand(),
			cmd.ImportCommand(),
			cmd.ExportCommand(),
			cmd.RebuildCommand(),
			cmd.StatsCommand(),
			cmd.MigrateCommand(),
			cmd.VersionCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		stdlog.Fatal(err)
	}
}

func getDefaultConfigPathOrExit() string {
	path, err := config.GetDefaultConfigPath()
	if err != nil {
		stdlog.Fatalf("Failed to get default config path: %v", err)
	}
	return path
}
