package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/atotto/clipboard"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/stupside/lutra/internal/app"
	"github.com/stupside/lutra/internal/browser"
	"github.com/stupside/lutra/internal/observe"
	"github.com/stupside/lutra/internal/pipeline"
)

// scanCommand returns the "scan" CLI subcommand.
func scanCommand() *cli.Command {
	var (
		contextID string
		openURL   string
		asJSON    bool
		copyIndex int
	)

	return &cli.Command{
		Name:  "scan",
		Usage: "Discover playable media in a browser tab",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:        "context",
				Destination: &contextID,
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "url",
				Usage:       "Open a new tab at this URL and scan it",
				Destination: &openURL,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "Print observations as JSON",
				Destination: &asJSON,
			},
			&cli.IntFlag{
				Name:        "copy",
				Usage:       "Copy the N-th observed URL to the clipboard",
				Destination: &copyIndex,
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

			// Let the page's own traffic accumulate before merging.
			select {
			case <-time.After(cfg.Scan.Settle):
			case <-ctx.Done():
				return ctx.Err()
			}

			pl := pipeline.New(session, registry, pipeline.Config{
				ProbeTimeout:   cfg.Scan.ProbeTimeout,
				ManifestPrefix: int64(cfg.Scan.ManifestPrefix),
			})

			results, err := pl.Scan(ctx, id)
			if err != nil {
				return err
			}

			if copyIndex > 0 {
				if copyIndex > len(results) {
					return fmt.Errorf("only %d observations, cannot copy #%d", len(results), copyIndex)
				}
				target := results[copyIndex-1].URL
				if err := clipboard.WriteAll(target); err != nil {
					return fmt.Errorf("writing clipboard: %w", err)
				}
				slog.Info("copied to clipboard", "url", target)
			}

			return printObservations(results, asJSON)
		},
	}
}

func printObservations(results []observe.Observation, asJSON bool) error {
	if asJSON {
		out, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(results) == 0 {
		slog.Info("no media found")
		return nil
	}

	rows := make([][]string, 0, len(results))
	for i, obs := range results {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			string(obs.Kind),
			describeOrigin(obs),
			formatSize(obs.SizeBytes),
			formatDuration(obs.DurationSeconds),
			string(obs.ManifestRole),
			obs.URL,
		})
	}
	fmt.Println(renderTable([]string{"#", "KIND", "ORIGIN", "SIZE", "DURATION", "ROLE", "URL"}, rows, 0, 3, 4))

	for _, obs := range results {
		if obs.SuggestedMasterURL != "" {
			slog.Info("media playlist has a likely master", "url", obs.URL, "master", obs.SuggestedMasterURL)
		}
	}
	return nil
}

func describeOrigin(obs observe.Observation) string {
	if obs.OriginDetail != "" {
		return fmt.Sprintf("%s (%s)", obs.Origin, obs.OriginDetail)
	}
	return string(obs.Origin)
}

func formatSize(n int64) string {
	if n <= 0 {
		return ""
	}
	return humanize.Bytes(uint64(n))
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return ""
	}
	return time.Duration(seconds * float64(time.Second)).Round(time.Second).String()
}
