package main

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"trendguard/application/portfolio"
	"trendguard/application/session"
	appsync "trendguard/application/sync"
	"trendguard/domain"
	"trendguard/infrastructure/artifacts"
	"trendguard/infrastructure/quote"
)

func syncCmd(ctx context.Context, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Refresh quote snapshots for held tickers absent from today's scan",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			userID, err := a.requireUser()
			if err != nil {
				return err
			}

			listed := todaysTickers(ctx, a)

			store := portfolio.NewStore(a.docs, a.log)
			gate := session.NewGate(store, a.log)
			if err := signIn(ctx, gate, userID); err != nil {
				return err
			}

			fetcher := quote.NewClient(a.cfg.Quote.BaseURL, a.log)
			coord := appsync.NewCoordinator(fetcher, a.docs, a.log,
				appsync.WithPacer(rate.NewLimiter(rate.Every(a.cfg.Quote.Pace()), 1)),
				appsync.WithIdentityCheck(gate.Current))

			sctx, ok := gate.SessionContext()
			if !ok {
				sctx = ctx
			}
			result, err := coord.Run(sctx, userID, store.Holdings(), listed)
			if err != nil {
				return err
			}

			if result.RateLimited {
				a.log.Warn().Str("notice", result.Notice).Msg("batch aborted")
			}
			a.log.Info().
				Int("synced", len(result.Synced)).
				Int("failed", len(result.Failed)).
				Int("remaining", result.Remaining).
				Msg("sync complete")
			return nil
		},
	}
}

// todaysTickers loads today's candidate list. When the scan document is
// unavailable every holding counts as unlisted and gets refreshed.
func todaysTickers(ctx context.Context, a *app) domain.TickerSet {
	client := artifacts.NewClient(a.cfg.Artifacts.BaseURL, a.log)
	scan, err := client.Today(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("today's scan unavailable, refreshing all holdings")
		return domain.NewTickerSet()
	}
	return domain.NewTickerSet(scan.Tickers()...)
}
