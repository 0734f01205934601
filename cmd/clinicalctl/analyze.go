package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"clinical-backend/internal/bootstrap"
	"clinical-backend/internal/config"
	"clinical-backend/internal/shared/storage/db"
)

func analyzeCmd() *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "analyze [patient-id]",
		Short: "Analyze one patient and print the stored result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("patient id must be a positive integer, got %q", args[0])
			}

			cfg := config.Load()
			ctx := context.Background()

			app, err := bootstrap.New(ctx, cfg, db.DefaultBatchOptions())
			if err != nil {
				return err
			}
			defer app.Close()

			out, err := app.Analysis.AnalyzeRecord(ctx, id, model)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "completion model override")
	return cmd
}
