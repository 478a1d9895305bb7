package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/vrindex/internal"
	pkgconfig "github.com/starford/vrindex/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadWithDefaults(cmd.String("config"), "", cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func dump(_ context.Context, cmd *cli.Command) error {
	files := cmd.Args().Slice()
	if len(files) == 0 {
		files = []string{"-"}
	}
	idx := internal.NewDefaultConfig().Index
	idx.Overwrite = cmd.String("overwrite")

	return internal.Dump(os.Stdout, os.Stdin, internal.DumpOptions{
		Files:     files,
		Sets:      cmd.StringSlice("set"),
		Name:      cmd.String("name"),
		Serialize: cmd.Bool("serialize"),
		Limit:     int(cmd.Int("limit")),
		Index:     idx,
	})
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}

	cmd := &cli.Command{
		Name:   "vrindex",
		Usage:  "Hierarchical typed configuration index with an HTTP API, snapshot journal and live source reload",
		Action: serve,
		Flags:  []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Load the sources and serve the HTTP API (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools over stdio",
				Action: mcp,
			},
			{
				Name:      "dump",
				Usage:     "Load XML files (- for stdin) and print the structure or markup",
				ArgsUsage: "[file ...]",
				Action:    dump,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "set", Aliases: []string{"s"}, Usage: "name=value assignment applied after loading"},
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Entry to print (default the whole index)"},
					&cli.BoolFlag{Name: "serialize", Usage: "Print markup instead of the structure tree"},
					&cli.IntFlag{Name: "limit", Usage: "Cut values longer than this in the structure tree"},
					&cli.StringFlag{Name: "overwrite", Value: "overwrite", Usage: "Duplicate write policy: overwrite, reject or error"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
