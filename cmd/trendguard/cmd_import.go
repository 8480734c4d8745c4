package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"trendguard/application/importer"
	"trendguard/application/portfolio"
	"trendguard/application/session"
)

func importCmd(ctx context.Context, configPath *string) *cobra.Command {
	var (
		file  string
		union bool
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import holdings from delimited text (ticker,name,cost,shares)",
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

			text, err := readImportText(file)
			if err != nil {
				return err
			}

			rec := importer.NewReconciler(a.log)
			holdings, policy := rec.ParseDelimited(text)
			if len(holdings) == 0 {
				return fmt.Errorf("no valid rows in import text")
			}
			if union {
				policy = importer.PolicyUnion
			}

			store := portfolio.NewStore(a.docs, a.log)
			gate := session.NewGate(store, a.log)
			if err := signIn(ctx, gate, userID); err != nil {
				return err
			}

			switch policy {
			case importer.PolicyOverwrite:
				store.ReplaceAll(holdings)
			default:
				store.MergeAdd(holdings)
			}
			if err := store.Flush(ctx); err != nil {
				return err
			}

			a.log.Info().Int("holdings", len(holdings)).Str("policy", string(policy)).Msg("import persisted")
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "CSV file to import (defaults to stdin)")
	cmd.Flags().BoolVar(&union, "union", false, "add to the existing portfolio instead of replacing it")
	return cmd
}

func readImportText(file string) (string, error) {
	if file == "" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(raw), nil
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("read import file: %w", err)
	}
	return string(raw), nil
}
