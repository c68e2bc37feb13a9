package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/stupside/lutra/internal/app"
	"github.com/stupside/lutra/internal/fetch"
)

// fetchCommand returns the "fetch" CLI subcommand.
func fetchCommand() *cli.Command {
	var (
		manifestURL string
		outName     string
	)

	return &cli.Command{
		Name:  "fetch",
		Usage: "Reconstruct a stream into a single local file",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:        "url",
				Destination: &manifestURL,
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "Output file name",
				Destination: &outName,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := app.ConfigFrom(cmd)
			if err != nil {
				return err
			}
			if manifestURL == "" {
				return fmt.Errorf("pass a manifest URL")
			}

			dest, err := outputPath(cfg.Fetch.Dir, outName, manifestURL)
			if err != nil {
				return err
			}

			service := fetch.NewService()
			service.OnUpdate(func(job *fetch.Job) {
				if job.State == fetch.StateRunning && job.Total > 0 {
					slog.InfoContext(ctx, "fetching", "segment", job.Done, "of", job.Total)
				}
			})

			job := service.Start(ctx, manifestURL, dest)
			if err := job.Wait(ctx); err != nil {
				return fmt.Errorf("fetch failed: %w", err)
			}

			var size uint64
			if st, err := os.Stat(dest); err == nil {
				size = uint64(st.Size())
			}
			slog.InfoContext(ctx, "stream saved", "path", dest, "size", humanize.Bytes(size))
			return nil
		},
	}
}

// outputPath decides where the reconstructed stream lands. The name falls
// back to the manifest's path stem with a .ts extension.
func outputPath(dir, name, manifestURL string) (string, error) {
	if name == "" {
		u, err := url.Parse(manifestURL)
		if err != nil {
			return "", fmt.Errorf("invalid URL %q: %w", manifestURL, err)
		}
		base := path.Base(u.Path)
		stem := strings.TrimSuffix(base, path.Ext(base))
		if stem == "" || stem == "." || stem == "/" {
			stem = "stream"
		}
		name = stem + ".ts"
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	return filepath.Join(dir, name), nil
}
