package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"trendguard/application/session"
	"trendguard/config"
	"trendguard/infrastructure/docstore"
)

func execute(ctx context.Context) error {
	var configPath string
	root := &cobra.Command{
		Use:   "trendguard",
		Short: "Portfolio sync and scan-history engine for the stock dashboard",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config YAML")

	root.AddCommand(syncCmd(ctx, &configPath))
	root.AddCommand(historyCmd(ctx, &configPath))
	root.AddCommand(reportCmd(ctx, &configPath))
	root.AddCommand(importCmd(ctx, &configPath))
	root.AddCommand(serveCmd(ctx, &configPath))
	root.AddCommand(versionCmd())

	return root.Execute()
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n", appName, version)
		},
	}
}

// app bundles the config and document store shared by the commands.
type app struct {
	cfg  *config.Config
	log  zerolog.Logger
	docs docstore.Store
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log.Logger}
	switch cfg.Store.Backend {
	case config.BackendRedis:
		a.docs = docstore.NewRedisStore(cfg.Store.Redis.Addr, cfg.Store.Redis.Password, cfg.Store.Redis.DB, a.log)
	case config.BackendPostgres:
		store, err := docstore.NewPostgresStore(ctx, cfg.Store.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		a.docs = store
	default:
		a.docs = docstore.NewMemoryStore()
	}
	return a, nil
}

func (a *app) close() {
	if err := a.docs.Close(); err != nil {
		a.log.Warn().Err(err).Msg("document store close failed")
	}
}

func (a *app) requireUser() (string, error) {
	if a.cfg.User.ID == "" {
		return "", fmt.Errorf("no user configured (set user.id or TRENDGUARD_USER_ID)")
	}
	return a.cfg.User.ID, nil
}

// signIn runs the identity gate for a single configured user and waits for
// the initial portfolio load to finish.
func signIn(ctx context.Context, gate *session.Gate, userID string) error {
	transitions, err := session.StaticProvider{UserID: userID}.Identities(ctx)
	if err != nil {
		return err
	}
	go gate.Run(ctx, transitions)

	deadline := time.Now().Add(30 * time.Second)
	for {
		if _, signedIn := gate.Current(); signedIn {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("sign-in for %s timed out", userID)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
	}
}
