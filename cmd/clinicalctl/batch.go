package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"clinical-backend/internal/batch"
	"clinical-backend/internal/bootstrap"
	"clinical-backend/internal/config"
	"clinical-backend/internal/shared/storage/db"
)

func batchCmd() *cobra.Command {
	var (
		limit    int
		force    bool
		model    string
		targetID int64
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Analyze all records without a stored result",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := bootstrap.New(ctx, cfg, db.DefaultBatchOptions())
			if err != nil {
				return err
			}
			defer app.Close()

			req := batch.Request{Limit: limit, Force: force, Model: model}
			if targetID > 0 {
				req.TargetID = &targetID
			}

			if !asJSON {
				app.Orchestrator.OnProgress = func(p batch.Progress) {
					fmt.Printf("progress: %d/%d (ok=%d failed=%d)\n", p.Processed, p.Total, p.Succeeded, p.Failed)
				}
			}

			summary, err := app.Orchestrator.Execute(ctx, req)
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(summary); encErr != nil {
					return encErr
				}
			} else {
				fmt.Printf("run %s: %s processed=%d succeeded=%d failed=%d\n",
					summary.Run.RunID, summary.Run.Status,
					summary.Run.Processed, summary.Run.Succeeded, summary.Run.Failed)
				for _, item := range summary.FailedItems {
					fmt.Printf("  failed record %d (%s): %s\n", item.RecordID, item.ErrorKind, item.Message)
				}
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "cap the candidate set (0 = all)")
	cmd.Flags().BoolVar(&force, "force", false, "reprocess records that already have a result")
	cmd.Flags().StringVarP(&model, "model", "m", "", "completion model override")
	cmd.Flags().Int64Var(&targetID, "patient", 0, "analyze a single patient id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output the run summary as JSON")

	return cmd
}
