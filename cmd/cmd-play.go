package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/stupside/lutra/internal/app"
	"github.com/stupside/lutra/internal/play"
)

// playCommand returns the "play" CLI subcommand.
func playCommand() *cli.Command {
	var rawURL string

	return &cli.Command{
		Name:  "play",
		Usage: "Send media to the configured renderer",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:        "url",
				Destination: &rawURL,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := app.ConfigFrom(cmd)
			if err != nil {
				return err
			}
			if rawURL == "" {
				return fmt.Errorf("pass a media URL")
			}
			return play.Play(ctx, cfg, rawURL)
		},
	}
}
