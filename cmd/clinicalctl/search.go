package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"clinical-backend/internal/bootstrap"
	"clinical-backend/internal/config"
	"clinical-backend/internal/search"
	"clinical-backend/internal/shared/storage/db"
)

func searchCmd() *cobra.Command {
	var (
		limit        int
		analyzedOnly bool
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search patient notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			ctx := context.Background()

			app, err := bootstrap.New(ctx, cfg, db.DefaultBatchOptions())
			if err != nil {
				return err
			}
			defer app.Close()

			results, err := app.Search.Search(ctx, search.Query{Text: args[0], Limit: limit}, analyzedOnly)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			for _, r := range results {
				line := fmt.Sprintf("%d  %s", r.RecordID, r.Title)
				if r.Relevance != nil {
					line += fmt.Sprintf("  (%.3f)", *r.Relevance)
				}
				fmt.Println(line)
			}
			fmt.Printf("%d result(s)\n", len(results))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum results")
	cmd.Flags().BoolVar(&analyzedOnly, "analyzed-only", false, "only return records with a stored analysis")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output results as JSON")

	return cmd
}
