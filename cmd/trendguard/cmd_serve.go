package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"trendguard/infrastructure/docstore"
	"trendguard/infrastructure/push"
)

func serveCmd(ctx context.Context, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve websocket push of portfolio and analysis updates",
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

			hub := push.NewHub(a.log)
			defer hub.Close()

			relays := []struct {
				collection string
				msgType    string
			}{
				{"users", push.TypePortfolio},
				{docstore.AnalysisCollection(userID), push.TypeAnalysis},
			}
			for _, r := range relays {
				events, err := a.docs.Subscribe(ctx, r.collection)
				if err != nil {
					if errors.Is(err, docstore.ErrSubscribeUnsupported) {
						a.log.Warn().Str("collection", r.collection).Msg("store has no change feed, push disabled for it")
						continue
					}
					return err
				}
				go hub.Relay(ctx, events, r.msgType)
			}

			mux := http.NewServeMux()
			mux.Handle("/ws", hub)
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})

			srv := &http.Server{
				Addr:         a.cfg.Serve.Addr,
				Handler:      mux,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 0, // websocket connections stay open
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info().Str("addr", srv.Addr).Msg("push server listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}
}
