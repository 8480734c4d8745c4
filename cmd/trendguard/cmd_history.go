package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"trendguard/application/history"
	"trendguard/infrastructure/artifacts"
	"trendguard/infrastructure/statecache"
)

func historyCmd(ctx context.Context, configPath *string) *cobra.Command {
	var ticker string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Refresh the local scan-history cache and show appearance counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			source := artifacts.NewClient(a.cfg.Artifacts.BaseURL, a.log)
			cache := statecache.NewFileCache(a.cfg.History.CachePath, a.log)
			svc := history.NewService(source, cache, a.log)

			index, err := svc.Refresh(ctx)
			if err != nil {
				return err
			}

			if ticker != "" {
				dates := index.Dates(ticker)
				fmt.Printf("%s appeared on %d of the recent scan days\n", ticker, len(dates))
				for _, d := range dates {
					fmt.Println("  " + d)
				}
				return nil
			}

			a.log.Info().Int("tickers", len(index)).Msg("history cache refreshed")
			return nil
		},
	}
	cmd.Flags().StringVar(&ticker, "ticker", "", "show appearance dates for one ticker")
	return cmd
}
