package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/stupside/lutra/internal/app"
	"github.com/stupside/lutra/internal/player"
)

// devicesCommand returns the "devices" CLI subcommand.
func devicesCommand() *cli.Command {
	return &cli.Command{
		Name:  "devices",
		Usage: "List renderers on the local network",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := app.ConfigFrom(cmd)
			if err != nil {
				return err
			}

			devices, err := player.Discover(ctx, cfg.Play.DiscoverTimeout)
			if err != nil {
				return fmt.Errorf("discovery failed: %w", err)
			}
			if len(devices) == 0 {
				slog.Info("no renderers found")
				return nil
			}

			rows := make([][]string, 0, len(devices))
			for _, d := range devices {
				rows = append(rows, []string{d.Name, string(d.Type), d.Address})
			}
			fmt.Println(renderTable([]string{"NAME", "TYPE", "ADDRESS"}, rows))
			return nil
		},
	}
}
