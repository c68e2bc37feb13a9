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

// tabsCommand returns the "tabs" CLI subcommand.
func tabsCommand() *cli.Command {
	return &cli.Command{
		Name:  "tabs",
		Usage: "List the browser's open tabs",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := app.ConfigFrom(cmd)
			if err != nil {
				return err
			}

			session, err := browser.NewSession(ctx, browserConfig(cfg), observe.NewRegistry())
			if err != nil {
				return fmt.Errorf("connecting to browser: %w", err)
			}
			defer session.Close()

			tabs, err := session.Tabs()
			if err != nil {
				return err
			}
			if len(tabs) == 0 {
				slog.Info("no open tabs")
				return nil
			}

			rows := make([][]string, 0, len(tabs))
			for _, t := range tabs {
				rows = append(rows, []string{t.ID, truncate(t.Title, 40), t.URL})
			}
			fmt.Println(renderTable([]string{"ID", "TITLE", "URL"}, rows))
			return nil
		},
	}
}
