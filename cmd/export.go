package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/urfave/cli/v3"

	"github.com/vitrina/vitrina/pkg/config"
)

// ExportCommand creates the export command
func ExportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export a user's figures as a dump file (JSON lines, .zst for compressed)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "user",
				Usage:    "Username (or user id) whose figures to export",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "file",
				Usage: "Output path (stdout when omitted)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return exportDump(ctx, c.String("config"), c.String("user"), c.String("file"))
		},
	}
}

func exportDump(ctx context.Context, configPath, user, path string) error {
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

	figures, err := store.FindAllByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("loading figures: %w", err)
	}

	var out io.Writer = os.Stdout
	if path != "" {
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer func() {
			_ = file.Close()
		}()
		out = file

		if strings.HasSuffix(path, ".zst") {
			encoder, err := zstd.NewWriter(file)
			if err != nil {
				return fmt.Errorf("creating zstd encoder: %w", err)
			}
			defer func() {
				_ = encoder.Close()
			}()
			out = encoder
		}
	}

	encoder := json.NewEncoder(out)
	for _, f := range figures {
		row := map[string]string{
			"id":           f.ID,
			"manufacturer": f.Manufacturer,
			"name":         f.Name,
		}
		if f.Scale != "" {
			row["scale"] = f.Scale
		}
		if f.SourceLink != "" {
			row["source_link"] = f.SourceLink
		}
		if f.Location != "" {
			row["location"] = f.Location
		}
		if f.BoxNumber != "" {
			row["box_number"] = f.BoxNumber
		}
		if f.ImageURL != "" {
			row["image_url"] = f.ImageURL
		}
		if err := encoder.Encode(row); err != nil {
			return fmt.Errorf("writing figure %s: %w", f.ID, err)
		}
	}

	if path != "" {
		fmt.Fprintf(os.Stderr, "Exported %d figures to %s\n", len(figures), path)
	}
	return nil
}
