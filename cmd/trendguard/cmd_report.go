package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"trendguard/domain"
	"trendguard/infrastructure/artifacts"
)

func reportCmd(ctx context.Context, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Show today's scan with changes against the previous scan day",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			client := artifacts.NewClient(a.cfg.Artifacts.BaseURL, a.log)
			today, err := client.Today(ctx)
			if err != nil {
				return err
			}

			var previous []domain.ScanEntry
			if prevDate := previousScanDate(ctx, client, today.Date); prevDate != "" {
				prev, err := client.History(ctx, prevDate)
				if err != nil {
					a.log.Warn().Err(err).Str("date", prevDate).Msg("previous scan unavailable")
				} else {
					previous = prev.Stocks
				}
			}
			changes := domain.DiffScans(previous, today.Stocks)

			fmt.Printf("%s: %d candidates (%d new, %d continued, %d dropped)\n",
				today.Date, len(today.Stocks), len(changes.New), len(changes.Continued), len(changes.Removed))
			printEntries("new", changes.New)
			printEntries("dropped", changes.Removed)

			if art, err := client.Article(ctx, today.Date); err == nil {
				fmt.Printf("\narticle: %s\n", art.Title)
			} else if !errors.Is(err, artifacts.ErrNotFound) {
				a.log.Warn().Err(err).Msg("article fetch failed")
			}
			return nil
		},
	}
}

func previousScanDate(ctx context.Context, client *artifacts.Client, today string) string {
	dates, err := client.DateIndex(ctx)
	if err != nil {
		return ""
	}
	for _, d := range dates {
		if d < today {
			return d
		}
	}
	return ""
}

func printEntries(label string, entries []domain.ScanEntry) {
	if len(entries) == 0 {
		return
	}
	fmt.Println(label + ":")
	for _, e := range entries {
		if e.Sector != "" {
			fmt.Printf("  %s %s (%s)\n", e.Ticker, e.Name, e.Sector)
			continue
		}
		fmt.Printf("  %s %s\n", e.Ticker, e.Name)
	}
}
