package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/vitrina/vitrina/pkg/auth"
	"github.com/vitrina/vitrina/pkg/config"
	"github.com/vitrina/vitrina/pkg/core"
)

// UserCommand creates the user command
func UserCommand() *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "Manage catalog users",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Create a user",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "username",
						Usage:    "Username for the new user",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "password",
						Usage: "Password (prompted when omitted)",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return addUser(ctx, c.String("config"), c.String("username"), c.String("password"))
				},
			},
			{
				Name:  "list",
				Usage: "List users",
				Action: func(ctx context.Context, c *cli.Command) error {
					return listUsers(ctx, c.String("config"))
				},
			},
		},
	}
}

func addUser(ctx context.Context, configPath, username, password string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if password == "" {
		fmt.Print("Password: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
		password = string(raw)
	}
	if password == "" {
		return fmt.Errorf("password must not be empty")
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	user := &core.User{Username: username, PasswordHash: hash}
	if err := store.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("creating user: %w", err)
	}

	fmt.Printf("Created user %s (%s)\n", user.Username, user.ID)
	return nil
}

func listUsers(ctx context.Context, configPath string) error {
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

	users, err := store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("listing users: %w", err)
	}

	if len(users) == 0 {
		fmt.Println(noDataStyle.Render("No users yet."))
		return nil
	}
	for _, u := range users {
		fmt.Printf("%s  %s  (created %s)\n", u.ID, u.Username, u.CreatedAt.Format("2006-01-02"))
	}
	return nil
}
