package cmd

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/stupside/lutra/internal/app"
	"github.com/stupside/lutra/internal/browser"
	"github.com/stupside/lutra/internal/version"
)

// browserConfig maps the loaded settings onto the session config the browser
// package expects.
func browserConfig(cfg *app.Config) browser.Config {
	return browser.Config{
		RemoteURL:  cfg.Browser.RemoteURL,
		ChromePath: cfg.Browser.ChromePath,
		Headless:   cfg.Browser.Headless,
		NoSandbox:  cfg.Browser.NoSandbox,
		Timeout:    cfg.Browser.Timeout,
	}
}

// Root returns the root CLI command.
func Root() *cli.Command {
	var configPath string

	return &cli.Command{
		Name:    "lutra",
		Usage:   "Discover, save, and play media from live webpages",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to configuration file",
				Value:       "config.yaml",
				Destination: &configPath,
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg, err := app.Load(configPath)
			if err != nil {
				return ctx, err
			}
			cmd.Metadata["config"] = cfg
			return ctx, nil
		},
		Commands: []*cli.Command{
			tabsCommand(),
			watchCommand(),
			scanCommand(),
			fetchCommand(),
			playCommand(),
			devicesCommand(),
			{
				Name:  "info",
				Usage: "Print build information",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					slog.Info("build",
						"version", version.Version,
						"commit", version.Commit,
						"build_time", version.BuildTime,
					)
					return nil
				},
			},
		},
		Metadata: map[string]any{},
	}
}
