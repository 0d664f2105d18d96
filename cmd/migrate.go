package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/urfave/cli/v3"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/vitrina/vitrina/pkg/config"
	"github.com/vitrina/vitrina/pkg/db"
)

// MigrateCommand creates the migrate command
func MigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Run database migrations",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "status",
				Usage: "Show migration status without applying migrations",
				Value: false,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runMigrations(c.String("config"), c.Bool("status"))
		},
	}
}

func runMigrations(configPath string, statusOnly bool) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Open the raw handle so nothing migrates behind our back.
	sqlDB, err := sql.Open("sqlite3", cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		_ = sqlDB.Close()
	}()

	manager := db.NewManager(sqlDB)

	if statusOnly {
		migrations, err := manager.Status()
		if err != nil {
			return fmt.Errorf("getting migration status: %w", err)
		}
		for _, m := range migrations {
			state := "pending"
			if m.AppliedAt != nil {
				state = "applied " + m.AppliedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%03d %-40s %s\n", m.Version, m.Name, state)
		}
		return nil
	}

	applied, err := manager.MigrateUp()
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	if applied == 0 {
		fmt.Println("Database is up to date.")
	} else {
		fmt.Printf("Applied %d migration(s)\n", applied)
	}
	return nil
}
