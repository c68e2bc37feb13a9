package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/stupside/lutra/internal/app"
	"github.com/stupside/lutra/internal/browser"
	"github.com/stupside/lutra/internal/observe"
)

// watchCommand returns the "watch" CLI subcommand.
func watchCommand() *cli.Command {
	var (
		contextID string
		openURL   string
	)

	return &cli.Command{
		Name:  "watch",
		Usage: "Print media observations from a tab as they happen",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:        "context",
				Destination: &contextID,
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "url",
				Usage:       "Open a new tab at this URL and watch it",
				Destination: &openURL,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := app.ConfigFrom(cmd)
			if err != nil {
				return err
			}
			if contextID == "" && openURL == "" {
				return fmt.Errorf("pass a tab id or --url")
			}

			registry := observe.NewRegistry()
			registry.OnObserve(func(id string, obs observe.Observation) {
				slog.Info("media observed",
					"context", id,
					"kind", string(obs.Kind),
					"url", obs.URL,
				)
			})

			session, err := browser.NewSession(ctx, browserConfig(cfg), registry)
			if err != nil {
				return fmt.Errorf("connecting to browser: %w", err)
			}
			defer session.Close()

			id := contextID
			if openURL != "" {
				if id, err = session.Navigate(ctx, openURL); err != nil {
					return err
				}
			}

			if err := session.Watch(ctx, id); err != nil {
				return err
			}

			slog.InfoContext(ctx, "watching", "context", id)
			<-ctx.Done()
			return nil
		},
	}
}
