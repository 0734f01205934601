package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"clinical-backend/internal/bootstrap"
	"clinical-backend/internal/config"
	"clinical-backend/internal/extract"
	"clinical-backend/internal/patients"
	"clinical-backend/internal/shared/storage/db"
	"clinical-backend/internal/shared/storage/object/local"
)

func ingestCmd() *cobra.Command {
	var startID int64

	cmd := &cobra.Command{
		Use:   "ingest [file...]",
		Short: "Load note documents (PDF or plain text) into the patient store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			ctx := context.Background()

			app, err := bootstrap.New(ctx, cfg, db.DefaultBatchOptions())
			if err != nil {
				return err
			}
			defer app.Close()

			store := local.New(cfg.LocalStoreDir)
			id := startID
			for _, path := range args {
				raw, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}

				name := filepath.Base(path)
				key := "ingest/" + name
				if err := store.Put(ctx, key, strings.NewReader(string(raw))); err != nil {
					return fmt.Errorf("store %s: %w", path, err)
				}

				mimeType := mime.TypeByExtension(filepath.Ext(name))
				text, err := extract.ExtractText(ctx, store, key, mimeType, name)
				if err != nil {
					return fmt.Errorf("extract %s: %w", path, err)
				}
				if strings.TrimSpace(text) == "" {
					return fmt.Errorf("extract %s: no text found", path)
				}

				p := patients.Patient{
					ID:        id,
					UID:       strings.TrimSuffix(name, filepath.Ext(name)),
					Title:     firstLine(text),
					Notes:     text,
					CreatedAt: time.Now().UTC(),
				}
				if err := app.Patients.Insert(ctx, p); err != nil {
					return fmt.Errorf("insert %s: %w", path, err)
				}
				fmt.Printf("ingested %s as patient %d\n", name, id)
				id++
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&startID, "start-id", 1, "patient id assigned to the first file")
	return cmd
}

func firstLine(text string) string {
	line := text
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)
	if len(line) > 120 {
		line = line[:120]
	}
	return line
}
